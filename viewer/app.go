package viewer

import (
	"context"
	"image"

	"gioui.org/layout"
	"gioui.org/widget/material"

	"github.com/olablt/gio-nanomaps/catalog"
	"github.com/olablt/gio-nanomaps/mapview"
)

// App ties a map view, its session and the controls into one frame function.
type App struct {
	Map      *mapview.MapView
	Session  *Session
	Controls *Controls
	Queue    *Queue

	size image.Point
}

// NewApp builds the viewer. refresh is signalled whenever a new frame is
// needed; the window loop should invalidate on it.
func NewApp(ctx context.Context, cfg Config, refresh chan struct{}, th *material.Theme) *App {
	mv := mapview.New(refresh)
	mv.SetZoom(cfg.DefaultZoom)
	mv.SetLocation(cfg.DefaultCenter)

	queue := NewQueue(refresh)
	s := NewSession(cfg, mv, catalog.NewClient(cfg.CatalogURL), cfg.NewLocator(), queue, th)
	mv.OnTap = s.HandleTap
	mv.OnLongTap = s.HandleLongTap

	return &App{
		Map:      mv,
		Session:  s,
		Controls: NewControls(ctx, s, th),
		Queue:    queue,
	}
}

func (a *App) Start(ctx context.Context) {
	a.Session.Start(ctx)
}

func (a *App) Close() {
	a.Session.Close()
}

// Layout runs pending continuations and draws one frame.
func (a *App) Layout(gtx layout.Context) layout.Dimensions {
	a.Queue.Drain()
	if gtx.Constraints.Max != a.size {
		a.size = gtx.Constraints.Max
		a.Session.Resize()
	}
	return a.Controls.Layout(gtx, a.Map.Layout)
}
