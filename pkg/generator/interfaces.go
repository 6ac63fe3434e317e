package generator

import (
	"context"

	"github.com/shouni/gemini-pose-studio/pkg/domain"
	"google.golang.org/genai"
)

// Generator はアプリケーション層が利用する生成窓口です。
type Generator interface {
	// Generate はキャラクター画像とポーズ画像から、そのポーズを取るキャラクターの画像を生成します。
	// 失敗は *domain.Failure として返します。
	Generate(ctx context.Context, character, pose domain.EncodedImage) (*domain.GenerationResult, error)
}

// ContentGenerator は生成 API への 1 回のリクエストを抽象化するインターフェースです。
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, parts []*genai.Part, opts RequestOptions) (*genai.GenerateContentResponse, error)
}
