package studio

import (
	"context"
	"sync"

	"github.com/shouni/gemini-pose-studio/pkg/domain"
	"google.golang.org/genai"

	"github.com/shouni/gemini-pose-studio/pkg/generator"
)

// mockGenerator は generator.Generator のテスト用モックです。
// release が設定されていれば、閉じられるまで応答を保留します。
type mockGenerator struct {
	mu      sync.Mutex
	calls   int
	started chan struct{}
	release chan struct{}
	result  *domain.GenerationResult
	err     error
	panicV  any
}

var _ generator.Generator = (*mockGenerator)(nil)

func (m *mockGenerator) Generate(ctx context.Context, character, pose domain.EncodedImage) (*domain.GenerationResult, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.started != nil {
		m.started <- struct{}{}
	}
	if m.release != nil {
		<-m.release
	}
	if m.panicV != nil {
		panic(m.panicV)
	}
	return m.result, m.err
}

func (m *mockGenerator) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// fakeBackend は generator.ContentGenerator の代わりに固定の応答を返します。
type fakeBackend struct {
	resp  *genai.GenerateContentResponse
	parts []*genai.Part
}

func (f *fakeBackend) GenerateContent(ctx context.Context, model string, parts []*genai.Part, opts generator.RequestOptions) (*genai.GenerateContentResponse, error) {
	f.parts = parts
	return f.resp, nil
}
