package imgutil

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"net/http"
	"strings"

	"github.com/cenkalti/dominantcolor"
	"golang.org/x/image/draw"

	"github.com/shouni/gemini-pose-studio/pkg/domain"
)

var ErrNotImage = errors.New("not a supported image")

// DetectMimeType はデータから MIME タイプを判定します。
// 判定できない場合は申告された MIME タイプを返します。
func DetectMimeType(data []byte, declared string) string {
	detected := http.DetectContentType(data)
	if strings.HasPrefix(detected, "image/") {
		return detected
	}
	return strings.TrimSpace(declared)
}

// Decode は画像としてデコードし、実際の MIME タイプと合わせて返します。
func Decode(data []byte, declared string) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%w: empty data", ErrNotImage)
	}
	mimeType := DetectMimeType(data, declared)
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, "", fmt.Errorf("%w: %s", ErrNotImage, mimeType)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrNotImage, err)
	}
	return img, mimeType, nil
}

// NormalizeUpload はアップロードされた画像を検証し、EncodedImage とメタデータに変換します。
// 長辺が maxEdge を超える場合は縮小して PNG に再エンコードします（maxEdge <= 0 で無効）。
func NormalizeUpload(data []byte, declared string, maxEdge int) (domain.EncodedImage, domain.CharacterInfo, error) {
	img, mimeType, err := Decode(data, declared)
	if err != nil {
		return domain.EncodedImage{}, domain.CharacterInfo{}, err
	}

	out := domain.EncodedImage{Data: data, MimeType: mimeType}
	if scaled, ok := FitWithin(img, maxEdge); ok {
		buf := new(bytes.Buffer)
		if err := png.Encode(buf, scaled); err != nil {
			return domain.EncodedImage{}, domain.CharacterInfo{}, fmt.Errorf("縮小画像のエンコードに失敗しました: %w", err)
		}
		slog.Info("参照画像を縮小しました",
			"from", img.Bounds().Size().String(), "to", scaled.Bounds().Size().String())
		img = scaled
		out = domain.EncodedImage{Data: buf.Bytes(), MimeType: "image/png"}
	}

	info := domain.CharacterInfo{
		Width:         img.Bounds().Dx(),
		Height:        img.Bounds().Dy(),
		MimeType:      out.MimeType,
		DominantColor: DominantColor(img),
	}
	return out, info, nil
}

// FitWithin は長辺が maxEdge に収まるよう縦横比を保って縮小します。
// 縮小が不要な場合は false を返します。
func FitWithin(img image.Image, maxEdge int) (image.Image, bool) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxEdge <= 0 || (w <= maxEdge && h <= maxEdge) {
		return img, false
	}

	nw, nh := maxEdge, maxEdge
	if w >= h {
		nh = max(1, h*maxEdge/w)
	} else {
		nw = max(1, w*maxEdge/h)
	}
	dst := image.NewNRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst, true
}

// DominantColor は画像の支配色を "#RRGGBB" 形式で返します。
func DominantColor(img image.Image) string {
	return dominantcolor.Hex(dominantcolor.Find(img))
}
