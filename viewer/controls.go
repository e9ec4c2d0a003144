package viewer

import (
	"context"
	"image/color"

	"gioui.org/font/gofont"
	"gioui.org/layout"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"gioui.org/text"
	"gioui.org/unit"
	"gioui.org/widget"
	"gioui.org/widget/material"
)

// NewTheme returns a material theme with the Go fonts loaded.
func NewTheme() *material.Theme {
	th := material.NewTheme()
	th.Shaper = text.NewShaper(text.WithCollection(gofont.Collection()))
	return th
}

// Controls lays out the buttons, layer selector and info lines around the map.
type Controls struct {
	ctx     context.Context
	session *Session
	theme   *material.Theme

	zoomIn  widget.Clickable
	zoomOut widget.Clickable
	refresh widget.Clickable
	layers  widget.Enum
	list    layout.List
}

func NewControls(ctx context.Context, s *Session, th *material.Theme) *Controls {
	return &Controls{
		ctx:     ctx,
		session: s,
		theme:   th,
		list:    layout.List{Axis: layout.Horizontal},
	}
}

// update feeds the input of the last frame to the session.
func (c *Controls) update(gtx layout.Context) {
	for c.zoomIn.Clicked(gtx) {
		c.session.ZoomIn()
	}
	for c.zoomOut.Clicked(gtx) {
		c.session.ZoomOut()
	}
	for c.refresh.Clicked(gtx) {
		c.session.Refresh(c.ctx)
	}
	if c.layers.Update(gtx) && c.layers.Value != c.session.ActiveName() {
		c.session.Activate(c.layers.Value)
	}
	c.layers.Value = c.session.ActiveName()
}

func (c *Controls) Layout(gtx layout.Context, content layout.Widget) layout.Dimensions {
	c.update(gtx)
	return layout.Flex{Axis: layout.Vertical}.Layout(gtx,
		layout.Flexed(1, func(gtx layout.Context) layout.Dimensions {
			return layout.Stack{Alignment: layout.NE}.Layout(gtx,
				layout.Expanded(content),
				layout.Stacked(c.layoutZoom),
			)
		}),
		layout.Rigid(c.layoutBar),
	)
}

func (c *Controls) layoutZoom(gtx layout.Context) layout.Dimensions {
	return layout.UniformInset(unit.Dp(8)).Layout(gtx, func(gtx layout.Context) layout.Dimensions {
		return layout.Flex{Axis: layout.Vertical}.Layout(gtx,
			layout.Rigid(material.Button(c.theme, &c.zoomIn, "+").Layout),
			layout.Rigid(layout.Spacer{Height: unit.Dp(4)}.Layout),
			layout.Rigid(material.Button(c.theme, &c.zoomOut, "-").Layout),
		)
	})
}

func (c *Controls) layoutBar(gtx layout.Context) layout.Dimensions {
	gtx.Constraints.Min.X = gtx.Constraints.Max.X
	return layout.Stack{}.Layout(gtx,
		layout.Expanded(func(gtx layout.Context) layout.Dimensions {
			defer clip.Rect{Max: gtx.Constraints.Min}.Push(gtx.Ops).Pop()
			paint.Fill(gtx.Ops, color.NRGBA{R: 0xf4, G: 0xf4, B: 0xf4, A: 0xff})
			return layout.Dimensions{Size: gtx.Constraints.Min}
		}),
		layout.Stacked(func(gtx layout.Context) layout.Dimensions {
			return layout.UniformInset(unit.Dp(6)).Layout(gtx, func(gtx layout.Context) layout.Dimensions {
				return layout.Flex{Axis: layout.Vertical}.Layout(gtx,
					layout.Rigid(c.layoutLayers),
					layout.Rigid(c.caption(c.session.Attribution())),
					layout.Rigid(c.caption(c.session.Status())),
				)
			})
		}),
	)
}

func (c *Controls) layoutLayers(gtx layout.Context) layout.Dimensions {
	options := c.session.Options()
	return layout.Flex{Alignment: layout.Middle}.Layout(gtx,
		layout.Rigid(material.Button(c.theme, &c.refresh, "Refresh").Layout),
		layout.Rigid(layout.Spacer{Width: unit.Dp(8)}.Layout),
		layout.Flexed(1, func(gtx layout.Context) layout.Dimensions {
			return c.list.Layout(gtx, len(options), func(gtx layout.Context, i int) layout.Dimensions {
				name := options[i].Name
				return material.RadioButton(c.theme, &c.layers, name, name).Layout(gtx)
			})
		}),
	)
}

func (c *Controls) caption(s string) layout.Widget {
	return func(gtx layout.Context) layout.Dimensions {
		if s == "" {
			return layout.Dimensions{}
		}
		return material.Caption(c.theme, s).Layout(gtx)
	}
}
