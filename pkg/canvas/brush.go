package canvas

import (
	"errors"
	"fmt"
	"image/color"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

const (
	// SurfaceWidth と SurfaceHeight はキャンバスの内部解像度です。
	SurfaceWidth  = 512
	SurfaceHeight = 512

	// MinBrushWidth と MaxBrushWidth はブラシの太さの許容範囲（サーフェスのピクセル単位）です。
	MinBrushWidth     = 1
	MaxBrushWidth     = 50
	DefaultBrushWidth = 5

	DefaultBrushColor = "#FFFFFF"
	// EraseColor は消しゴムで塗るパネル背景色です。
	EraseColor = "#1f2937"
	// BackgroundColor はエクスポート時に敷く不透明な背景色です。
	BackgroundColor = "#111827"
)

// Mode はブラシの描画モードです。
type Mode string

const (
	// ModeDraw はブラシ色で描きます。
	ModeDraw Mode = "draw"
	// ModeErase はパネル背景色で塗りつぶして消します。
	ModeErase Mode = "erase"
)

// ErrInvalidBrush は色・太さ・モードのいずれかが不正な場合のエラーです。
var ErrInvalidBrush = errors.New("invalid brush")

// Brush は 1 ストロークに適用される色・太さ・モードです。
type Brush struct {
	Color string
	Width float64
	Mode  Mode
}

// DefaultBrush は白・太さ 5 の描画ブラシを返します。
func DefaultBrush() Brush {
	return Brush{Color: DefaultBrushColor, Width: DefaultBrushWidth, Mode: ModeDraw}
}

// Validate はブラシ設定を検証します。
func (b Brush) Validate() error {
	if b.Width < MinBrushWidth || b.Width > MaxBrushWidth {
		return fmt.Errorf("%w: width %.1f is outside [%d, %d]", ErrInvalidBrush, b.Width, MinBrushWidth, MaxBrushWidth)
	}
	switch b.Mode {
	case ModeDraw, ModeErase:
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidBrush, b.Mode)
	}
	if _, err := ParseColor(b.Color); err != nil {
		return err
	}
	return nil
}

// paint は実際にサーフェスへ塗る色を返します。消しゴムは背景色で上塗りします。
func (b Brush) paint() color.NRGBA {
	if b.Mode == ModeErase {
		return mustParseColor(EraseColor)
	}
	c, err := ParseColor(b.Color)
	if err != nil {
		return mustParseColor(DefaultBrushColor)
	}
	return c
}

// ParseColor は "#rrggbb" / "#rgb" 形式の色を不透明な NRGBA に変換します。
func ParseColor(s string) (color.NRGBA, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("%w: color %q: %v", ErrInvalidBrush, s, err)
	}
	r, g, bl := c.RGB255()
	return color.NRGBA{R: r, G: g, B: bl, A: 0xff}, nil
}

// FormatColor は色を "#rrggbb" 形式で返します。
func FormatColor(c color.Color) string {
	cf, ok := colorful.MakeColor(c)
	if !ok {
		return BackgroundColor
	}
	return cf.Hex()
}

func mustParseColor(s string) color.NRGBA {
	c, err := ParseColor(s)
	if err != nil {
		panic(err)
	}
	return c
}
