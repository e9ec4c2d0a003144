package mapview

import (
	"image"

	"gioui.org/f32"
	"gioui.org/layout"
	maps "github.com/olablt/gio-nanomaps/tiles"
)

// Pane orders layers on the surface. Lower panes draw first.
type Pane int

const (
	PaneTiles Pane = iota
	PaneOverlay
	PaneMarker
	PanePopup
)

// Layer is anything the map surface can draw: tile layers, markers, popups.
type Layer interface {
	Pane() Pane
	Draw(gtx layout.Context, vp Viewport)
}

// Hitter is implemented by layers that handle their own taps. The surface
// does not report a tap or long tap that starts inside a hit area.
type Hitter interface {
	Hit(pos f32.Point) bool
}

// Viewport is the view state a layer draws against.
type Viewport struct {
	Center maps.LatLng
	Zoom   int
	Size   image.Point
}

func (vp Viewport) centerWorld() (float64, float64) {
	return maps.CalculateWorldCoordinates(vp.Center, vp.Zoom)
}

// Project converts a geographic location to screen coordinates.
func (vp Viewport) Project(ll maps.LatLng) f32.Point {
	cx, cy := vp.centerWorld()
	wx, wy := maps.CalculateWorldCoordinates(ll, vp.Zoom)
	return f32.Point{
		X: float32(float64(vp.Size.X)/2 + wx - cx),
		Y: float32(float64(vp.Size.Y)/2 + wy - cy),
	}
}

// Unproject converts screen coordinates to a geographic location.
func (vp Viewport) Unproject(pt f32.Point) maps.LatLng {
	cx, cy := vp.centerWorld()
	wx := cx + float64(pt.X) - float64(vp.Size.X)/2
	wy := cy + float64(pt.Y) - float64(vp.Size.Y)/2
	return maps.WorldToLatLng(wx, wy, vp.Zoom)
}

// TileOrigin returns the screen position of the top-left corner of tile.
func (vp Viewport) TileOrigin(tile maps.Tile) image.Point {
	cx, cy := vp.centerWorld()
	return image.Point{
		X: vp.Size.X/2 + int(float64(tile.X*maps.TileSize)-cx),
		Y: vp.Size.Y/2 + int(float64(tile.Y*maps.TileSize)-cy),
	}
}

// MetersPerPixel at the given latitude and the viewport zoom.
func (vp Viewport) MetersPerPixel(lat float64) float64 {
	return maps.CalculateMetersPerPixel(lat, vp.Zoom)
}

func (vp Viewport) VisibleTiles() []maps.Tile {
	return maps.CalculateVisibleTiles(vp.Center, vp.Zoom, vp.Size)
}
