package canvas

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"golang.org/x/image/draw"

	"github.com/shouni/gemini-pose-studio/pkg/domain"
)

const SnapshotMimeType = "image/png"

// Snapshot はサーフェスを不透明な背景色の上に合成し、PNG にエンコードします。
// 生成 API がアルファを正しく扱えない場合があるため、出力に透過は含めません。
func Snapshot(s *Surface) (domain.EncodedImage, error) {
	if s == nil || s.pix == nil {
		return domain.EncodedImage{}, domain.NewPreconditionFailure("キャンバスからポーズ画像を取得できませんでした")
	}

	dst := image.NewNRGBA(s.Bounds())
	draw.Draw(dst, dst.Bounds(), image.NewUniform(mustParseColor(BackgroundColor)), image.Point{}, draw.Src)
	s.DrawOnto(dst)

	buf := new(bytes.Buffer)
	if err := png.Encode(buf, dst); err != nil {
		return domain.EncodedImage{}, fmt.Errorf("スナップショットのエンコードに失敗しました: %w", err)
	}
	return domain.EncodedImage{Data: buf.Bytes(), MimeType: SnapshotMimeType}, nil
}
