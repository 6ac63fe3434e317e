package canvas

import (
	"image"
	"image/color"
	"math"
	"sync"

	"golang.org/x/image/draw"
	"golang.org/x/image/vector"
)

// arcSteps は丸いキャップの半円を近似する分割数です。
const arcSteps = 16

// coordLimit を超える座標は丸めてからクリップします。
const coordLimit = 1e6

// Point はサーフェス座標系の点です。
type Point struct {
	X, Y float64
}

// Surface はポーズを描き込む固定サイズのピクセルバッファです。
// 書き込みは Tracker、読み出しは Snapshot から行われ、RWMutex で排他します。
type Surface struct {
	mu     sync.RWMutex
	pix    *image.NRGBA
	raster *vector.Rasterizer
}

// NewSurface は透明な 512x512 のサーフェスを作成します。
func NewSurface() *Surface {
	return NewSurfaceSize(SurfaceWidth, SurfaceHeight)
}

// NewSurfaceSize は任意サイズのサーフェスを作成します。
func NewSurfaceSize(w, h int) *Surface {
	return &Surface{
		pix:    image.NewNRGBA(image.Rect(0, 0, w, h)),
		raster: vector.NewRasterizer(w, h),
	}
}

// Bounds はサーフェスの範囲を返します。
func (s *Surface) Bounds() image.Rectangle {
	return s.pix.Bounds()
}

// Clear はすべてのピクセルを透明に戻します。元に戻すことはできません。
func (s *Surface) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.pix.Pix)
}

// DrawSegment は from から to への線分を丸いキャップ付きで描画します。
// 範囲外の座標はブラシ半径分だけ広げたサーフェス境界でクリップされ、NaN を含む線分は無視されます。
func (s *Surface) DrawSegment(from, to Point, b Brush) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bounds := s.pix.Bounds()
	r := b.Width / 2
	if math.IsNaN(r) || math.IsInf(r, 0) || r < 0 {
		return
	}
	margin := r + 1
	from, to, ok := clipSegment(from.clamp(), to.clamp(),
		float64(bounds.Min.X)-margin, float64(bounds.Min.Y)-margin,
		float64(bounds.Max.X)+margin, float64(bounds.Max.Y)+margin)
	if !ok {
		return
	}

	s.raster.Reset(bounds.Dx(), bounds.Dy())
	addCapsule(s.raster, from, to, r)
	s.raster.Draw(s.pix, bounds, image.NewUniform(b.paint()), image.Point{})
}

// At は 1 ピクセルの色を返します。
func (s *Surface) At(x, y int) color.NRGBA {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pix.NRGBAAt(x, y)
}

// DrawOnto は現在の内容を dst に Over で重ねます。
func (s *Surface) DrawOnto(dst draw.Image) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	draw.Draw(dst, s.pix.Bounds(), s.pix, image.Point{}, draw.Over)
}

// clamp は ±Inf を含む座標を有限の範囲に収めます。NaN はそのまま残ります。
func (p Point) clamp() Point {
	return Point{
		X: math.Max(-coordLimit, math.Min(coordLimit, p.X)),
		Y: math.Max(-coordLimit, math.Min(coordLimit, p.Y)),
	}
}

// clipSegment は Liang–Barsky 法で線分を矩形に切り詰めます。
// 線分が矩形と交わらない場合や NaN を含む場合は false を返します。
func clipSegment(p0, p1 Point, minX, minY, maxX, maxY float64) (Point, Point, bool) {
	if math.IsNaN(p0.X) || math.IsNaN(p0.Y) || math.IsNaN(p1.X) || math.IsNaN(p1.Y) {
		return p0, p1, false
	}

	dx, dy := p1.X-p0.X, p1.Y-p0.Y
	t0, t1 := 0.0, 1.0
	edges := [4][2]float64{
		{-dx, p0.X - minX},
		{dx, maxX - p0.X},
		{-dy, p0.Y - minY},
		{dy, maxY - p0.Y},
	}
	for _, e := range edges {
		p, q := e[0], e[1]
		if p == 0 {
			if q < 0 {
				return p0, p1, false
			}
			continue
		}
		t := q / p
		if p < 0 {
			if t > t1 {
				return p0, p1, false
			}
			t0 = math.Max(t0, t)
		} else {
			if t < t0 {
				return p0, p1, false
			}
			t1 = math.Min(t1, t)
		}
	}
	return Point{p0.X + t0*dx, p0.Y + t0*dy}, Point{p0.X + t1*dx, p0.Y + t1*dy}, true
}

// addCapsule は線分を半径 r で太らせた図形（両端が半円）をパスとして追加します。
// 連続する線分同士は端の半円が重なるため、結合部も丸くなります。
func addCapsule(z *vector.Rasterizer, from, to Point, r float64) {
	dx, dy := to.X-from.X, to.Y-from.Y
	length := math.Hypot(dx, dy)
	if length < 1e-9 {
		addArc(z, from, r, 0, 2*math.Pi, true)
		z.ClosePath()
		return
	}

	// 進行方向に対して左側の法線
	theta := math.Atan2(dy, dx) + math.Pi/2
	addArc(z, to, r, theta, -math.Pi, true)
	addArc(z, from, r, theta-math.Pi, -math.Pi, false)
	z.ClosePath()
}

func addArc(z *vector.Rasterizer, c Point, r, start, sweep float64, move bool) {
	for i := 0; i <= arcSteps; i++ {
		a := start + sweep*float64(i)/arcSteps
		x := float32(c.X + r*math.Cos(a))
		y := float32(c.Y + r*math.Sin(a))
		if i == 0 && move {
			z.MoveTo(x, y)
			continue
		}
		z.LineTo(x, y)
	}
}
