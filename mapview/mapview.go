package mapview

import (
	"image"
	"math"
	"slices"
	"time"

	"gioui.org/f32"
	"gioui.org/io/event"
	"gioui.org/io/pointer"
	"gioui.org/layout"
	"gioui.org/op/clip"
	maps "github.com/olablt/gio-nanomaps/tiles"
)

const (
	DefaultMinZoom           = 1
	DefaultMaxZoom           = 19
	DefaultLongPressDuration = 500 * time.Millisecond
	// DefaultTouchSlop is how far (in px) a press may wander and still count as a tap.
	DefaultTouchSlop = 8
)

// MapView is the map surface. It owns the view (center, zoom), the attached
// layers and the gesture recognizer. All methods must be called from the UI
// goroutine.
type MapView struct {
	Center  maps.LatLng
	Zoom    int
	MinZoom int
	MaxZoom int

	LongPressDuration time.Duration
	TouchSlop         float32

	// OnTap and OnLongTap receive the screen position of a completed gesture.
	// A long tap never pans the map.
	OnTap     func(pos f32.Point)
	OnLongTap func(pos f32.Point)

	layers    []Layer
	size      image.Point
	sizeDirty bool
	txn       *transaction
	refresh   chan struct{}

	// gesture state
	pressed   bool
	pressPos  f32.Point
	pressTime time.Duration
	lastPos   f32.Point
	panning   bool
}

type transaction struct {
	center maps.LatLng
	zoom   int
}

// New returns a map view that signals refresh whenever it needs a new frame
// outside of input handling (tiles landing, layers changing).
func New(refresh chan struct{}) *MapView {
	return &MapView{
		Zoom:              DefaultMinZoom,
		MinZoom:           DefaultMinZoom,
		MaxZoom:           DefaultMaxZoom,
		LongPressDuration: DefaultLongPressDuration,
		TouchSlop:         DefaultTouchSlop,
		refresh:           refresh,
	}
}

// Invalidate asks the window for a new frame without blocking.
func (mv *MapView) Invalidate() {
	if mv.refresh == nil {
		return
	}
	select {
	case mv.refresh <- struct{}{}:
	default:
	}
}

type onLoadSetter interface {
	SetOnLoad(func())
}

type releaser interface {
	Release()
}

// Attach adds l to the surface. Attaching a layer twice is a no-op.
func (mv *MapView) Attach(l Layer) {
	if mv.Attached(l) {
		return
	}
	if s, ok := l.(onLoadSetter); ok {
		s.SetOnLoad(mv.Invalidate)
	}
	mv.layers = append(mv.layers, l)
	mv.Invalidate()
}

// Detach removes l from the surface and releases its resources.
func (mv *MapView) Detach(l Layer) {
	i := slices.Index(mv.layers, l)
	if i < 0 {
		return
	}
	mv.layers = slices.Delete(mv.layers, i, i+1)
	if r, ok := l.(releaser); ok {
		r.Release()
	}
	mv.Invalidate()
}

// Update redraws l, attaching it first if needed.
func (mv *MapView) Update(l Layer) {
	if !mv.Attached(l) {
		mv.Attach(l)
		return
	}
	mv.Invalidate()
}

func (mv *MapView) Attached(l Layer) bool {
	return slices.Contains(mv.layers, l)
}

// Layers returns the attached layers in draw order.
func (mv *MapView) Layers() []Layer {
	out := slices.Clone(mv.layers)
	slices.SortStableFunc(out, func(a, b Layer) int { return int(a.Pane() - b.Pane()) })
	return out
}

// Begin opens a view transaction. View changes are buffered until Commit.
func (mv *MapView) Begin() {
	if mv.txn == nil {
		mv.txn = &transaction{center: mv.Center, zoom: mv.Zoom}
	}
}

// Commit applies the buffered view changes.
func (mv *MapView) Commit() {
	if mv.txn == nil {
		return
	}
	mv.Center = mv.txn.center
	mv.Zoom = mv.clampZoom(mv.txn.zoom)
	mv.txn = nil
	mv.Invalidate()
}

func (mv *MapView) SetLocation(ll maps.LatLng) {
	if mv.txn != nil {
		mv.txn.center = ll
		return
	}
	mv.Center = ll
	mv.Invalidate()
}

func (mv *MapView) SetZoom(zoom int) {
	if mv.txn != nil {
		mv.txn.zoom = mv.clampZoom(zoom)
		return
	}
	mv.setZoom(zoom)
}

func (mv *MapView) GetZoom() int {
	if mv.txn != nil {
		return mv.txn.zoom
	}
	return mv.Zoom
}

func (mv *MapView) ZoomIn() {
	mv.SetZoom(mv.GetZoom() + 1)
}

func (mv *MapView) ZoomOut() {
	mv.SetZoom(mv.GetZoom() - 1)
}

// SetSize makes the next frame recompute the surface size from its constraints.
func (mv *MapView) SetSize() {
	mv.sizeDirty = true
	mv.Invalidate()
}

// Location converts a screen position to geographic coordinates.
func (mv *MapView) Location(pos f32.Point) maps.LatLng {
	return mv.Viewport().Unproject(pos)
}

func (mv *MapView) Viewport() Viewport {
	return Viewport{Center: mv.Center, Zoom: mv.Zoom, Size: mv.size}
}

func (mv *MapView) Layout(gtx layout.Context) layout.Dimensions {
	if mv.sizeDirty || mv.size != gtx.Constraints.Max {
		mv.size = gtx.Constraints.Max
		mv.sizeDirty = false
	}

	mv.processEvents(gtx)

	// Confine the area of interest to a gtx Max
	defer clip.Rect{Max: mv.size}.Push(gtx.Ops).Pop()
	event.Op(gtx.Ops, mv)

	vp := mv.Viewport()
	lgtx := gtx
	lgtx.Constraints = layout.Constraints{Max: mv.size}
	for _, l := range mv.Layers() {
		l.Draw(lgtx, vp)
	}

	return layout.Dimensions{Size: mv.size}
}

func (mv *MapView) processEvents(gtx layout.Context) {
	for {
		ev, ok := gtx.Event(pointer.Filter{
			Target:  mv,
			Kinds:   pointer.Scroll | pointer.Drag | pointer.Press | pointer.Release | pointer.Cancel,
			ScrollY: pointer.ScrollRange{Min: -10, Max: 10},
		})
		if !ok {
			break
		}
		if x, ok := ev.(pointer.Event); ok {
			mv.pointerEvent(x)
		}
	}
}

func (mv *MapView) pointerEvent(x pointer.Event) {
	switch x.Kind {
	case pointer.Press:
		mv.pressed = true
		mv.panning = false
		mv.pressPos = x.Position
		mv.pressTime = x.Time
		mv.lastPos = x.Position
	case pointer.Drag:
		if !mv.pressed {
			return
		}
		if !mv.panning {
			if distance(x.Position, mv.pressPos) < mv.TouchSlop {
				return
			}
			if x.Time-mv.pressTime >= mv.LongPressDuration {
				// held in place long enough: this is a long tap, not a pan
				return
			}
			mv.panning = true
		}
		mv.pan(x.Position.Sub(mv.lastPos))
		mv.lastPos = x.Position
	case pointer.Release:
		if mv.pressed && !mv.panning && !mv.overlayHit(mv.pressPos) {
			if x.Time-mv.pressTime >= mv.LongPressDuration {
				if mv.OnLongTap != nil {
					mv.OnLongTap(mv.pressPos)
				}
			} else if mv.OnTap != nil {
				mv.OnTap(mv.pressPos)
			}
		}
		mv.pressed = false
		mv.panning = false
	case pointer.Cancel:
		mv.pressed = false
		mv.panning = false
	case pointer.Scroll:
		mv.scrollZoom(x.Position, x.Scroll.Y)
	}
}

// overlayHit reports whether pos lies on a layer that takes taps itself.
func (mv *MapView) overlayHit(pos f32.Point) bool {
	for _, l := range mv.layers {
		if h, ok := l.(Hitter); ok && h.Hit(pos) {
			return true
		}
	}
	return false
}

func (mv *MapView) pan(delta f32.Point) {
	worldX, worldY := maps.CalculateWorldCoordinates(mv.Center, mv.Zoom)
	mv.Center = maps.WorldToLatLng(worldX-float64(delta.X), worldY-float64(delta.Y), mv.Zoom)
	mv.Invalidate()
}

// scrollZoom zooms one level while keeping the geographic point under the
// cursor fixed on screen.
func (mv *MapView) scrollZoom(pos f32.Point, scrollY float32) {
	mouseOffsetX := float64(pos.X) - float64(mv.size.X)/2
	mouseOffsetY := float64(pos.Y) - float64(mv.size.Y)/2

	worldX, worldY := maps.CalculateWorldCoordinates(mv.Center, mv.Zoom)
	mouseWorldX := worldX + mouseOffsetX
	mouseWorldY := worldY + mouseOffsetY

	oldZoom := mv.Zoom
	if scrollY < 0 {
		mv.setZoom(mv.Zoom + 1)
	} else if scrollY > 0 {
		mv.setZoom(mv.Zoom - 1)
	}
	if oldZoom == mv.Zoom {
		return
	}

	zoomFactor := math.Pow(2, float64(mv.Zoom-oldZoom))
	newWorldCenterX := mouseWorldX*zoomFactor - mouseOffsetX
	newWorldCenterY := mouseWorldY*zoomFactor - mouseOffsetY
	mv.Center = maps.WorldToLatLng(newWorldCenterX, newWorldCenterY, mv.Zoom)
}

func (mv *MapView) clampZoom(zoom int) int {
	return max(mv.MinZoom, min(zoom, mv.MaxZoom))
}

func (mv *MapView) setZoom(newZoom int) {
	mv.Zoom = mv.clampZoom(newZoom)
	mv.Invalidate()
}

func distance(a, b f32.Point) float32 {
	d := a.Sub(b)
	return float32(math.Hypot(float64(d.X), float64(d.Y)))
}
