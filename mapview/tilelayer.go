package mapview

import (
	"context"
	"image"
	"log"

	"gioui.org/f32"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	maps "github.com/olablt/gio-nanomaps/tiles"
)

type readyChecker interface {
	Ready(tile maps.Tile) bool
}

type loadNotifier interface {
	SetOnLoadCallback(func())
}

// TileLayer draws the visible tiles of one tile source.
type TileLayer struct {
	Name string

	provider maps.TileProvider
	ops      *maps.ImageOpCache
	interim  *maps.ImageOpCache
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewTileLayer(name string, provider maps.TileProvider) *TileLayer {
	ctx, cancel := context.WithCancel(context.Background())
	return &TileLayer{
		Name:     name,
		provider: provider,
		ops:      maps.NewImageOpCache(),
		interim:  maps.NewImageOpCache(),
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (l *TileLayer) Pane() Pane { return PaneTiles }

// SetOnLoad forwards load notifications from providers that load in the background.
func (l *TileLayer) SetOnLoad(fn func()) {
	if n, ok := l.provider.(loadNotifier); ok {
		n.SetOnLoadCallback(fn)
	}
}

// Release cancels pending tile loads of a detached layer.
func (l *TileLayer) Release() {
	l.cancel()
}

func (l *TileLayer) Draw(gtx layout.Context, vp Viewport) {
	for _, tile := range vp.VisibleTiles() {
		imageOp, ok := l.imageOp(tile)
		if !ok {
			continue
		}
		origin := vp.TileOrigin(tile)
		transform := op.Offset(origin).Push(gtx.Ops)

		size := imageOp.Size()
		if size.X != maps.TileSize && size.X > 0 {
			scale := float32(maps.TileSize) / float32(size.X)
			scaled := op.Affine(f32.Affine2D{}.Scale(f32.Point{}, f32.Pt(scale, scale))).Push(gtx.Ops)
			drawImage(gtx.Ops, imageOp, size)
			scaled.Pop()
		} else {
			drawImage(gtx.Ops, imageOp, size)
		}

		transform.Pop()
	}
}

// imageOp returns a cached op for tile. Only final tiles are cached
// permanently; fallback images go to the interim cache until the real tile lands.
func (l *TileLayer) imageOp(tile maps.Tile) (paint.ImageOp, bool) {
	key := maps.GetTileKey(tile)
	if imageOp, ok := l.ops.Get(key); ok {
		return imageOp, true
	}

	final := true
	if rc, ok := l.provider.(readyChecker); ok {
		final = rc.Ready(tile)
	}
	if !final {
		if imageOp, ok := l.interim.Get(key); ok {
			return imageOp, true
		}
	}

	img, err := l.provider.GetTile(l.ctx, tile)
	if err != nil {
		log.Printf("Error loading tile %v: %v", tile, err)
		return paint.ImageOp{}, false
	}
	imageOp := paint.NewImageOp(img)
	if final {
		l.ops.Set(key, imageOp)
		l.interim.Delete(key)
	} else {
		l.interim.Set(key, imageOp)
	}
	return imageOp, true
}

func drawImage(ops *op.Ops, imageOp paint.ImageOp, size image.Point) {
	defer clip.Rect{Max: size}.Push(ops).Pop()
	imageOp.Add(ops)
	paint.PaintOp{}.Add(ops)
}
