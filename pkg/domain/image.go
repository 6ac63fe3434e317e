package domain

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// EncodedImage はエンコード済みの画像バイト列と MIME タイプの組です。
// 生成後は変更しない前提で値渡しします。
type EncodedImage struct {
	Data     []byte
	MimeType string
}

// IsZero は画像データが空かどうかを返します。
func (e EncodedImage) IsZero() bool {
	return len(e.Data) == 0
}

// DataURL は data:<mime>;base64,<data> 形式の文字列に変換します。
func (e EncodedImage) DataURL() string {
	return "data:" + e.MimeType + ";base64," + base64.StdEncoding.EncodeToString(e.Data)
}

// ParseDataURL は base64 形式の data URL を EncodedImage に変換します。
func ParseDataURL(s string) (EncodedImage, error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return EncodedImage{}, fmt.Errorf("data URL ではありません")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return EncodedImage{}, fmt.Errorf("data URL にペイロードがありません")
	}
	mimeType, ok := strings.CutSuffix(meta, ";base64")
	if !ok {
		return EncodedImage{}, fmt.Errorf("base64 以外の data URL には対応していません")
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return EncodedImage{}, fmt.Errorf("data URL のデコードに失敗しました: %w", err)
	}
	return EncodedImage{Data: data, MimeType: mimeType}, nil
}

// CharacterInfo はアップロードされたキャラクター画像のメタデータです。
type CharacterInfo struct {
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	MimeType      string `json:"mime_type"`
	DominantColor string `json:"dominant_color"` // ブラシ色の候補として提示する
}

// GenerationResult は生成された画像とキャプションです。
// 成功時は Image が必ず設定されます。
type GenerationResult struct {
	Image        *EncodedImage
	Caption      string // 空文字はキャプションなし
	UsedSeed     int64
	FinishReason string
}
