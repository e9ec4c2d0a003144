package mapview

import (
	"image"
	"image/color"

	"gioui.org/f32"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"gioui.org/unit"
	"gioui.org/widget"
	"gioui.org/widget/material"
	maps "github.com/olablt/gio-nanomaps/tiles"
)

// InfoWindow is a small text popup anchored above a geographic location.
type InfoWindow struct {
	Theme    *material.Theme
	Text     string
	Location maps.LatLng
	// Offset lifts the popup above its anchor, e.g. to clear a marker icon.
	Offset image.Point
	// OnClick runs when the popup is tapped.
	OnClick func()

	click  widget.Clickable
	bounds image.Rectangle
}

func NewInfoWindow(th *material.Theme, text string) *InfoWindow {
	return &InfoWindow{Theme: th, Text: text}
}

func (iw *InfoWindow) Pane() Pane { return PanePopup }

func (iw *InfoWindow) SetLocation(ll maps.LatLng, offset image.Point) {
	iw.Location = ll
	iw.Offset = offset
}

func (iw *InfoWindow) Draw(gtx layout.Context, vp Viewport) {
	if iw.Theme == nil {
		return
	}
	if iw.click.Clicked(gtx) && iw.OnClick != nil {
		iw.OnClick()
	}

	gtx.Constraints = layout.Constraints{Max: image.Pt(gtx.Dp(unit.Dp(260)), gtx.Constraints.Max.Y)}
	macro := op.Record(gtx.Ops)
	dims := iw.click.Layout(gtx, iw.layoutBox)
	call := macro.Stop()

	anchor := vp.Project(iw.Location).Round()
	gap := gtx.Dp(unit.Dp(6))
	pos := image.Point{
		X: anchor.X - iw.Offset.X - dims.Size.X/2,
		Y: anchor.Y - iw.Offset.Y - gap - dims.Size.Y,
	}
	iw.bounds = image.Rectangle{Min: pos, Max: pos.Add(dims.Size)}
	defer op.Offset(pos).Push(gtx.Ops).Pop()
	call.Add(gtx.Ops)
}

// Hit reports whether pos is on the popup as last drawn.
func (iw *InfoWindow) Hit(pos f32.Point) bool {
	return pos.Round().In(iw.bounds)
}

func (iw *InfoWindow) layoutBox(gtx layout.Context) layout.Dimensions {
	return layout.Stack{}.Layout(gtx,
		layout.Expanded(func(gtx layout.Context) layout.Dimensions {
			bounds := image.Rectangle{Max: gtx.Constraints.Min}
			radius := gtx.Dp(unit.Dp(4))
			paint.FillShape(gtx.Ops, color.NRGBA{R: 255, G: 255, B: 255, A: 240}, clip.UniformRRect(bounds, radius).Op(gtx.Ops))
			paint.FillShape(gtx.Ops, color.NRGBA{A: 0x60}, clip.Stroke{
				Path:  clip.UniformRRect(bounds, radius).Path(gtx.Ops),
				Width: 1,
			}.Op())
			return layout.Dimensions{Size: gtx.Constraints.Min}
		}),
		layout.Stacked(func(gtx layout.Context) layout.Dimensions {
			return layout.UniformInset(unit.Dp(8)).Layout(gtx, material.Body2(iw.Theme, iw.Text).Layout)
		}),
	)
}
