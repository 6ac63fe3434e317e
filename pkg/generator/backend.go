package generator

import (
	"context"
	"errors"
	"fmt"

	"github.com/shouni/gemini-pose-studio/pkg/domain"
	"github.com/shouni/go-gemini-client/pkg/gemini"
	"google.golang.org/genai"
)

// GenAIBackend は google.golang.org/genai を直接使うバックエンドです。
type GenAIBackend struct {
	models *genai.Models
}

// NewGenAIBackend は API キーで Gemini API クライアントを作成します。
func NewGenAIBackend(ctx context.Context, apiKey string) (*GenAIBackend, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("apiKey is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("Geminiクライアントの初期化に失敗しました: %w", err)
	}
	return &GenAIBackend{models: client.Models}, nil
}

// GenerateContent はパーツを 1 つのユーザーコンテンツとして送信します。
func (b *GenAIBackend) GenerateContent(ctx context.Context, model string, parts []*genai.Part, opts RequestOptions) (*genai.GenerateContentResponse, error) {
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	cfg := &genai.GenerateContentConfig{
		ResponseModalities: opts.ResponseModalities,
		Seed:               seedToPtrInt32(opts.Seed),
	}
	return b.models.GenerateContent(ctx, model, contents, cfg)
}

// GeminiClientBackend は go-gemini-client の GenerativeModel をバックエンドとして使うアダプターです。
// 応答モダリティはクライアント側の既定値に従い、シードのみ引き継ぎます。
// go-gemini-client は一時的なネットワークエラーを最低 1 回リトライするため（MaxRetries 0 でも既定値 1 が使われる）、
// リトライなしで呼び出したい場合は GenAIBackend を使います。
// ブロックされた応答（*gemini.APIResponseError）は BackendRejection として返します。
type GeminiClientBackend struct {
	client gemini.GenerativeModel
}

// NewGeminiClientBackend は既存の GenerativeModel を包みます。
func NewGeminiClientBackend(client gemini.GenerativeModel) (*GeminiClientBackend, error) {
	if client == nil {
		return nil, fmt.Errorf("client (gemini.GenerativeModel) is required")
	}
	return &GeminiClientBackend{client: client}, nil
}

// GenerateContent は GenerateWithParts を呼び出し、生のレスポンスを返します。
func (b *GeminiClientBackend) GenerateContent(ctx context.Context, model string, parts []*genai.Part, opts RequestOptions) (*genai.GenerateContentResponse, error) {
	resp, err := b.client.GenerateWithParts(ctx, model, parts, gemini.GenerateOptions{Seed: opts.Seed})
	if err != nil {
		var apiErr *gemini.APIResponseError
		if errors.As(err, &apiErr) {
			return nil, rejectionFromAPIError(apiErr)
		}
		return nil, err
	}
	if resp == nil {
		return nil, nil
	}
	return resp.RawResponse, nil
}

func rejectionFromAPIError(apiErr *gemini.APIResponseError) *domain.Failure {
	f := domain.NewRejectionFailure(rejectionMessage)
	if detail := apiErr.Error(); detail != "" {
		f.Message = fmt.Sprintf("%s (%s)", rejectionMessage, detail)
	}
	f.Err = apiErr
	return f
}
