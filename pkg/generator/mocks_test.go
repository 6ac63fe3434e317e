package generator

import (
	"context"

	"github.com/shouni/go-gemini-client/pkg/gemini"
	"google.golang.org/genai"
)

// --- Mocks ---

// mockBackend は ContentGenerator のテスト用モックなのだ。
type mockBackend struct {
	resp  *genai.GenerateContentResponse
	err   error
	calls int

	lastModel string
	lastParts []*genai.Part
	lastOpts  RequestOptions
}

func (m *mockBackend) GenerateContent(ctx context.Context, model string, parts []*genai.Part, opts RequestOptions) (*genai.GenerateContentResponse, error) {
	m.calls++
	m.lastModel = model
	m.lastParts = parts
	m.lastOpts = opts
	return m.resp, m.err
}

// mockAIClient は gemini.GenerativeModel のテスト用モックなのだ。
// 使わないメソッドは埋め込みインターフェースで解決するのだ。
type mockAIClient struct {
	gemini.GenerativeModel
	generateWithPartsFunc func(ctx context.Context, model string, parts []*genai.Part, opts gemini.GenerateOptions) (*gemini.Response, error)
}

func (m *mockAIClient) GenerateWithParts(ctx context.Context, model string, parts []*genai.Part, opts gemini.GenerateOptions) (*gemini.Response, error) {
	return m.generateWithPartsFunc(ctx, model, parts, opts)
}

// replyWith は 1 候補のレスポンスを組み立てるヘルパーなのだ。
func replyWith(parts ...*genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content:      &genai.Content{Role: "model", Parts: parts},
			FinishReason: genai.FinishReasonStop,
		}},
	}
}

func imagePart(data string) *genai.Part {
	return &genai.Part{InlineData: &genai.Blob{MIMEType: "image/png", Data: []byte(data)}}
}

func textPart(text string) *genai.Part {
	return &genai.Part{Text: text}
}
