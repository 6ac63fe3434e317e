package canvas

import (
	"errors"
	"sync"
)

var ErrInvalidViewport = errors.New("viewport must have a positive size")

// Viewport は画面上に表示されているキャンバス要素の位置とサイズです。
type Viewport struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// PointerEvent は画面座標系のポインター位置です。
type PointerEvent struct {
	ClientX  float64  `json:"clientX"`
	ClientY  float64  `json:"clientY"`
	Viewport Viewport `json:"viewport"`
}

// ScalePoint は画面座標をサーフェス座標へ変換します。
// 表示サイズと内部解像度が異なっても、軸ごとの比率で補正します。
func ScalePoint(ev PointerEvent, surfaceW, surfaceH int) (Point, error) {
	vp := ev.Viewport
	if vp.Width <= 0 || vp.Height <= 0 {
		return Point{}, ErrInvalidViewport
	}
	return Point{
		X: (ev.ClientX - vp.Left) * float64(surfaceW) / vp.Width,
		Y: (ev.ClientY - vp.Top) * float64(surfaceH) / vp.Height,
	}, nil
}

// strokeState はポインターダウンからアップまでの一時的な状態です。
type strokeState struct {
	last  Point
	brush Brush
}

// Tracker はポインター操作を線分に変換してサーフェスへ描き込みます。
// 状態は Idle（stroke == nil）と Stroking の 2 つです。
type Tracker struct {
	mu      sync.Mutex
	surface *Surface
	brush   Brush
	stroke  *strokeState
}

// NewTracker はデフォルトブラシの Tracker を作成します。
func NewTracker(surface *Surface) *Tracker {
	return &Tracker{surface: surface, brush: DefaultBrush()}
}

// Surface は描画先のサーフェスを返します。
func (t *Tracker) Surface() *Surface {
	return t.surface
}

// PointerDown はストロークを開始します。ブラシ設定はこの時点のものが使われます。
func (t *Tracker) PointerDown(ev PointerEvent) error {
	p, err := t.scale(ev)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.stroke = &strokeState{last: p, brush: t.brush}
	return nil
}

// PointerMove は直前の点から現在の点まで線分を描画します。Idle 中は何もしません。
func (t *Tracker) PointerMove(ev PointerEvent) error {
	p, err := t.scale(ev)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stroke == nil {
		return nil
	}
	t.surface.DrawSegment(t.stroke.last, p, t.stroke.brush)
	t.stroke.last = p
	return nil
}

// PointerUp はストロークを終了します。
func (t *Tracker) PointerUp() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stroke = nil
}

// PointerLeave はポインターが描画領域を出たときに呼ばれ、PointerUp と同じ扱いです。
func (t *Tracker) PointerLeave() {
	t.PointerUp()
}

// Stroking はストローク中かどうかを返します。
func (t *Tracker) Stroking() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stroke != nil
}

// Clear はサーフェスを消去し、進行中のストロークも終了します。
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stroke = nil
	t.surface.Clear()
}

// Brush は現在のブラシ設定を返します。
func (t *Tracker) Brush() Brush {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.brush
}

// SetBrush はブラシ設定を置き換えます。
func (t *Tracker) SetBrush(b Brush) error {
	if err := b.Validate(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.brush = b
	return nil
}

// SetColor はブラシの色だけを変更します。進行中のストロークには影響しません。
func (t *Tracker) SetColor(c string) error {
	b := t.Brush()
	b.Color = c
	return t.SetBrush(b)
}

// SetWidth はブラシの太さを変更します。範囲外なら ErrInvalidBrush を返します。
func (t *Tracker) SetWidth(w float64) error {
	b := t.Brush()
	b.Width = w
	return t.SetBrush(b)
}

// SetMode は描画と消しゴムを切り替えます。
func (t *Tracker) SetMode(m Mode) error {
	b := t.Brush()
	b.Mode = m
	return t.SetBrush(b)
}

func (t *Tracker) scale(ev PointerEvent) (Point, error) {
	b := t.surface.Bounds()
	return ScalePoint(ev, b.Dx(), b.Dy())
}
