package mapview

import (
	"image"
	"image/color"
	"math"

	"gioui.org/f32"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"gioui.org/unit"
	"gioui.org/widget"
	maps "github.com/olablt/gio-nanomaps/tiles"
)

// ImgMarker draws an image at a geographic location. The anchor pixel of
// the image sits on the location; by default that is the image center.
type ImgMarker struct {
	Location maps.LatLng
	Anchor   *image.Point
	// OnClick, when set, makes the marker tappable.
	OnClick func()

	src     image.Image
	imageOp paint.ImageOp
	click   widget.Clickable
	bounds  image.Rectangle
}

func NewImgMarker(src image.Image) *ImgMarker {
	return &ImgMarker{src: src, imageOp: paint.NewImageOp(src)}
}

func (m *ImgMarker) Pane() Pane { return PaneMarker }

func (m *ImgMarker) SetLocation(ll maps.LatLng) {
	m.Location = ll
}

// Size is the rendered size of the marker in pixels.
func (m *ImgMarker) Size() image.Point {
	return m.src.Bounds().Size()
}

func (m *ImgMarker) anchor() image.Point {
	if m.Anchor != nil {
		return *m.Anchor
	}
	return m.Size().Div(2)
}

func (m *ImgMarker) Draw(gtx layout.Context, vp Viewport) {
	pos := vp.Project(m.Location).Round().Sub(m.anchor())
	size := m.Size()
	m.bounds = image.Rectangle{Min: pos, Max: pos.Add(size)}
	defer op.Offset(pos).Push(gtx.Ops).Pop()

	if m.OnClick == nil {
		drawImage(gtx.Ops, m.imageOp, size)
		return
	}
	if m.click.Clicked(gtx) {
		m.OnClick()
	}
	m.click.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
		drawImage(gtx.Ops, m.imageOp, size)
		return layout.Dimensions{Size: size}
	})
}

// Hit reports whether pos is on a clickable marker as last drawn.
func (m *ImgMarker) Hit(pos f32.Point) bool {
	return m.OnClick != nil && pos.Round().In(m.bounds)
}

// EllipseMarker draws a circle whose radius is given in meters on the ground.
type EllipseMarker struct {
	Center       maps.LatLng
	RadiusMeters float64
	Fill         color.NRGBA
	Stroke       color.NRGBA
	StrokeWidth  unit.Dp
}

// NewErrorHalo returns the translucent blue halo used for location uncertainty.
func NewErrorHalo() *EllipseMarker {
	return &EllipseMarker{
		Fill:        color.NRGBA{R: 0x33, G: 0x88, B: 0xff, A: 0x40},
		Stroke:      color.NRGBA{R: 0x22, G: 0x66, B: 0xcc, A: 0xa0},
		StrokeWidth: 1,
	}
}

func (e *EllipseMarker) Pane() Pane { return PaneOverlay }

func (e *EllipseMarker) Set(center maps.LatLng, radiusMeters float64) {
	e.Center = center
	e.RadiusMeters = radiusMeters
}

// RadiusPixels converts the ground radius to screen pixels for vp.
func (e *EllipseMarker) RadiusPixels(vp Viewport) float64 {
	mpp := vp.MetersPerPixel(e.Center.Lat)
	if mpp <= 0 {
		return 0
	}
	return e.RadiusMeters / mpp
}

func (e *EllipseMarker) Draw(gtx layout.Context, vp Viewport) {
	r := e.RadiusPixels(vp)
	if r < 1 {
		return
	}
	c := vp.Project(e.Center)
	rect := image.Rect(
		int(math.Round(float64(c.X)-r)), int(math.Round(float64(c.Y)-r)),
		int(math.Round(float64(c.X)+r)), int(math.Round(float64(c.Y)+r)),
	)
	if !rect.Overlaps(image.Rectangle{Max: vp.Size}) {
		return
	}
	ellipse := clip.Ellipse(rect)
	paint.FillShape(gtx.Ops, e.Fill, ellipse.Op(gtx.Ops))
	if e.StrokeWidth > 0 {
		paint.FillShape(gtx.Ops, e.Stroke, clip.Stroke{
			Path:  ellipse.Path(gtx.Ops),
			Width: float32(gtx.Dp(e.StrokeWidth)),
		}.Op())
	}
}

// OrbImage draws a shaded disc of the given diameter, used for the
// current-location marker.
func OrbImage(diameter int, c color.NRGBA) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, diameter, diameter))
	r := float64(diameter) / 2
	for y := 0; y < diameter; y++ {
		for x := 0; x < diameter; x++ {
			dx, dy := float64(x)+0.5-r, float64(y)+0.5-r
			d := math.Hypot(dx, dy)
			switch {
			case d > r:
				continue
			case d > r-2:
				img.SetNRGBA(x, y, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
			default:
				// lighten towards the upper left
				shade := 1 - 0.35*math.Max(0, 1-math.Hypot(dx+r/3, dy+r/3)/r)
				img.SetNRGBA(x, y, color.NRGBA{
					R: uint8(255 - float64(255-c.R)*shade),
					G: uint8(255 - float64(255-c.G)*shade),
					B: uint8(255 - float64(255-c.B)*shade),
					A: c.A,
				})
			}
		}
	}
	return img
}

// PinImage draws a map pin whose tip is at the bottom center.
func PinImage(width int, c color.NRGBA) image.Image {
	height := width * 3 / 2
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	r := float64(width) / 2
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			fx, fy := float64(x)+0.5, float64(y)+0.5
			inHead := math.Hypot(fx-r, fy-r) <= r
			// triangle from the head's widest point down to the tip
			inTail := fy >= r && math.Abs(fx-r) <= r*(float64(height)-fy)/(float64(height)-r)
			if inHead || inTail {
				img.SetNRGBA(x, y, c)
			}
		}
	}
	return img
}

// PinAnchor is the anchor point for an image made by PinImage.
func PinAnchor(img image.Image) *image.Point {
	b := img.Bounds()
	return &image.Point{X: b.Dx() / 2, Y: b.Dy() - 1}
}
