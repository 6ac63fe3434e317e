package imgutil

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidPNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	buf := new(bytes.Buffer)
	require.NoError(t, png.Encode(buf, img))
	return buf.Bytes()
}

func TestDetectMimeType(t *testing.T) {
	pngData := createDummyImageData(t, "png")
	jpegData := createDummyImageData(t, "jpeg")

	assert.Equal(t, "image/png", DetectMimeType(pngData, "image/jpeg"), "中身から判定した値を優先する")
	assert.Equal(t, "image/jpeg", DetectMimeType(jpegData, ""))
	assert.Equal(t, "image/x-custom", DetectMimeType([]byte("????"), " image/x-custom "))
}

func TestDecode(t *testing.T) {
	t.Run("PNG をデコードできる", func(t *testing.T) {
		img, mimeType, err := Decode(createDummyImageData(t, "png"), "")
		require.NoError(t, err)
		assert.Equal(t, "image/png", mimeType)
		assert.Equal(t, 10, img.Bounds().Dx())
	})

	t.Run("画像でないデータは ErrNotImage", func(t *testing.T) {
		_, _, err := Decode([]byte("hello, world"), "text/plain")
		assert.ErrorIs(t, err, ErrNotImage)
	})

	t.Run("空データは ErrNotImage", func(t *testing.T) {
		_, _, err := Decode(nil, "image/png")
		assert.ErrorIs(t, err, ErrNotImage)
	})

	t.Run("MIME だけ画像で中身が壊れている場合も ErrNotImage", func(t *testing.T) {
		_, _, err := Decode([]byte("\x89PNG\r\n\x1a\nbroken"), "image/png")
		assert.ErrorIs(t, err, ErrNotImage)
	})
}

func TestNormalizeUpload(t *testing.T) {
	hexColor := regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

	t.Run("上限以下の画像はそのまま保持される", func(t *testing.T) {
		data := solidPNG(t, 100, 100, color.RGBA{255, 0, 0, 255})

		img, info, err := NormalizeUpload(data, "image/png", 2048)
		require.NoError(t, err)
		assert.Equal(t, data, img.Data)
		assert.Equal(t, "image/png", img.MimeType)
		assert.Equal(t, 100, info.Width)
		assert.Equal(t, 100, info.Height)
		assert.Regexp(t, hexColor, info.DominantColor)
	})

	t.Run("上限を超える画像は縮小して PNG になる", func(t *testing.T) {
		data := createDummyImageData(t, "jpeg")

		img, info, err := NormalizeUpload(data, "image/jpeg", 5)
		require.NoError(t, err)
		assert.Equal(t, "image/png", img.MimeType)
		assert.Equal(t, 5, info.Width)
		assert.Equal(t, 5, info.Height)

		decoded, err := png.Decode(bytes.NewReader(img.Data))
		require.NoError(t, err)
		assert.Equal(t, image.Rect(0, 0, 5, 5), decoded.Bounds())
	})
}

func TestFitWithin(t *testing.T) {
	tests := []struct {
		name       string
		w, h, edge int
		wantW      int
		wantH      int
		wantScaled bool
	}{
		{"横長", 400, 200, 100, 100, 50, true},
		{"縦長", 200, 400, 100, 50, 100, true},
		{"収まる", 80, 60, 100, 80, 60, false},
		{"無効", 4000, 4000, 0, 4000, 4000, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := image.NewNRGBA(image.Rect(0, 0, tt.w, tt.h))
			got, scaled := FitWithin(src, tt.edge)
			assert.Equal(t, tt.wantScaled, scaled)
			assert.Equal(t, tt.wantW, got.Bounds().Dx())
			assert.Equal(t, tt.wantH, got.Bounds().Dy())
		})
	}
}
