package generator

import (
	"errors"
	"fmt"

	"github.com/shouni/gemini-pose-studio/pkg/domain"
	"google.golang.org/genai"
)

var errMalformedResponse = errors.New("malformed response")

// parseResponse は Gemini のレスポンスから画像とキャプションを取り出します。
// 最初の候補 (Candidate) のみを利用し、複数ある場合は最後の画像・最後のテキストを採用します。
func parseResponse(resp *genai.GenerateContentResponse, seed int64) (*domain.GenerationResult, error) {
	if resp == nil {
		return nil, domain.NewTransportFailure("Geminiからの有効な応答がありませんでした", errMalformedResponse)
	}

	result := &domain.GenerationResult{UsedSeed: seed}
	var candidate *genai.Candidate
	if len(resp.Candidates) > 0 {
		candidate = resp.Candidates[0]
	}

	if candidate != nil {
		result.FinishReason = string(candidate.FinishReason)
		if candidate.Content != nil {
			for _, part := range candidate.Content.Parts {
				if part == nil {
					continue
				}
				switch {
				case part.InlineData != nil && len(part.InlineData.Data) > 0:
					img := domain.EncodedImage{Data: part.InlineData.Data, MimeType: part.InlineData.MIMEType}
					result.Image = &img
				case part.Text != "":
					result.Caption = part.Text
				}
			}
		}
	}

	if result.Image == nil {
		return nil, domain.NewRejectionFailure(rejectionDetail(resp, candidate))
	}
	return result, nil
}

// rejectionDetail はブロック理由や終了理由が分かる場合にメッセージへ付け加えます。
func rejectionDetail(resp *genai.GenerateContentResponse, candidate *genai.Candidate) string {
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return fmt.Sprintf("%s (BlockReason: %s)", rejectionMessage, resp.PromptFeedback.BlockReason)
	}
	if candidate != nil && candidate.FinishReason != genai.FinishReasonUnspecified && candidate.FinishReason != genai.FinishReasonStop {
		return fmt.Sprintf("%s (FinishReason: %s)", rejectionMessage, candidate.FinishReason)
	}
	return rejectionMessage
}
