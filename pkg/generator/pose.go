package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shouni/gemini-pose-studio/pkg/domain"
	"github.com/shouni/gemini-pose-studio/pkg/imgutil"
	"google.golang.org/genai"
)

// PoseGenerator はキャラクター画像とポーズ画像を 1 回のリクエストにまとめて生成 API を呼び出します。
type PoseGenerator struct {
	backend     ContentGenerator
	model       string
	instruction string
	seed        *int64
	compress    bool
}

// NewPoseGenerator は依存関係を注入して PoseGenerator を初期化するのだ。
func NewPoseGenerator(backend ContentGenerator, cfg Config) (*PoseGenerator, error) {
	if backend == nil {
		return nil, fmt.Errorf("backend (ContentGenerator) is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Instruction == "" {
		cfg.Instruction = PoseInstruction
	}

	return &PoseGenerator{
		backend:     backend,
		model:       cfg.Model,
		instruction: cfg.Instruction,
		seed:        cfg.Seed,
		compress:    cfg.CompressReference,
	}, nil
}

// Generate はキャラクター（1 枚目）とポーズ（2 枚目）と指示文を送信し、結果の画像とキャプションを返します。
// リトライは行いません。
func (g *PoseGenerator) Generate(ctx context.Context, character, pose domain.EncodedImage) (*domain.GenerationResult, error) {
	characterPart, err := g.characterPart(character)
	if err != nil {
		return nil, err
	}
	posePart, err := toPart(pose)
	if err != nil {
		return nil, domain.NewPreconditionFailure("ポーズ画像が不正です: %v", err)
	}

	parts := []*genai.Part{characterPart, posePart, {Text: g.instruction}}
	opts := RequestOptions{ResponseModalities: responseModalities, Seed: g.seed}

	slog.InfoContext(ctx, "Geminiにポーズ画像の生成をリクエストします",
		"model", g.model,
		"character_mime", characterPart.InlineData.MIMEType,
		"character_bytes", len(characterPart.InlineData.Data),
		"pose_bytes", len(pose.Data),
	)

	resp, err := g.backend.GenerateContent(ctx, g.model, parts, opts)
	if err != nil {
		slog.ErrorContext(ctx, "Gemini APIの呼び出しに失敗しました", "model", g.model, "error", err)
		// バックエンドが分類済みの失敗はそのまま返すのだ
		var f *domain.Failure
		if errors.As(err, &f) {
			return nil, f
		}
		return nil, domain.NewTransportFailure("画像の生成に失敗しました", err)
	}

	result, err := parseResponse(resp, dereferenceSeed(g.seed))
	if err != nil {
		slog.WarnContext(ctx, "生成結果に画像が含まれていませんでした", "error", err)
		return nil, err
	}

	slog.InfoContext(ctx, "ポーズ画像の生成が完了しました",
		"mime", result.Image.MimeType, "bytes", len(result.Image.Data), "has_caption", result.Caption != "")
	return result, nil
}

func (g *PoseGenerator) characterPart(character domain.EncodedImage) (*genai.Part, error) {
	if character.IsZero() {
		return nil, domain.NewPreconditionFailure("キャラクター画像がアップロードされていません")
	}

	if g.compress {
		if compressed, err := imgutil.CompressToJPEG(character.Data, ImageCompressionQuality); err == nil {
			character = domain.EncodedImage{Data: compressed, MimeType: "image/jpeg"}
		} else {
			slog.Warn("キャラクター画像の圧縮に失敗したため元画像を送信します", "error", err)
		}
	}

	part, err := toPart(character)
	if err != nil {
		return nil, domain.NewPreconditionFailure("キャラクター画像が不正です: %v", err)
	}
	return part, nil
}

// toPart は画像を genai.Part (InlineData) に変換します。MIME タイプが空ならデータから判定します。
func toPart(img domain.EncodedImage) (*genai.Part, error) {
	if img.IsZero() {
		return nil, fmt.Errorf("画像データが空です")
	}
	mimeType := img.MimeType
	if mimeType == "" {
		mimeType = imgutil.DetectMimeType(img.Data, "")
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, fmt.Errorf("MIMEタイプが画像ではありません: %q", mimeType)
	}
	return &genai.Part{
		InlineData: &genai.Blob{
			MIMEType: mimeType,
			Data:     img.Data,
		},
	}, nil
}
