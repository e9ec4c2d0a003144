package viewer

import (
	"context"
	"fmt"
	"image"
	"log"

	"gioui.org/f32"
	"gioui.org/widget/material"

	"github.com/olablt/gio-nanomaps/catalog"
	"github.com/olablt/gio-nanomaps/geolocation"
	"github.com/olablt/gio-nanomaps/mapview"
	"github.com/olablt/gio-nanomaps/tiles"
	"github.com/olablt/gio-nanomaps/tiles/worker"
)

// Surface is the map widget a session drives. *mapview.MapView implements it.
type Surface interface {
	Attach(l mapview.Layer)
	Detach(l mapview.Layer)
	Update(l mapview.Layer)
	SetLocation(ll tiles.LatLng)
	SetZoom(zoom int)
	Location(pos f32.Point) tiles.LatLng
	Begin()
	ZoomIn()
	ZoomOut()
	Commit()
	SetSize()
}

// Fetcher loads the layer catalog. *catalog.Client implements it.
type Fetcher interface {
	Fetch(ctx context.Context) (catalog.Catalog, error)
}

// LayerFactory builds the map layer for a catalog entry with a tile spec.
type LayerFactory func(d catalog.LayerDescriptor) mapview.Layer

// Option is one entry of the layer selector.
type Option struct {
	Name     string
	Selected bool
}

// Session owns the viewer state. Apart from LoadCatalog's fetch and the
// tracker's locator calls, every method must run on the UI goroutine;
// background results come back through the session's Queue.
type Session struct {
	cfg     Config
	surface Surface
	fetcher Fetcher
	queue   *Queue
	theme   *material.Theme

	newLayer LayerFactory
	pool     *worker.Pool
	fallback *tiles.TileManager

	catalog      catalog.Catalog
	options      []Option
	activeName   string
	activeLayers []mapview.Layer
	attribution  string
	status       string

	markers  Markers
	tapPopup *mapview.InfoWindow
	popupPin bool
	shown    bool
	tracker  *geolocation.Tracker
}

// NewSession wires a session to its collaborators. th may be nil, in which
// case popups are tracked but not drawn.
func NewSession(cfg Config, surface Surface, fetcher Fetcher, locator geolocation.Locator, queue *Queue, th *material.Theme) *Session {
	s := &Session{
		cfg:        cfg,
		surface:    surface,
		fetcher:    fetcher,
		queue:      queue,
		theme:      th,
		activeName: cfg.DefaultLayer,
		markers:    NewMarkers(),
	}
	s.newLayer = s.tileLayer
	s.markers.Location.OnClick = s.openLocationPopup
	s.tracker = geolocation.NewTracker(locator, s, queue.Post)
	return s
}

// SetLayerFactory replaces how tile layers are built.
func (s *Session) SetLayerFactory(f LayerFactory) {
	s.newLayer = f
}

// Start loads the catalog and begins tracking the position.
func (s *Session) Start(ctx context.Context) {
	s.LoadCatalog(ctx)
	s.tracker.Start(ctx)
}

// Close stops the tile workers.
func (s *Session) Close() {
	if s.pool != nil {
		s.pool.Shutdown()
		s.pool = nil
	}
}

func (s *Session) tileLayer(d catalog.LayerDescriptor) mapview.Layer {
	if s.pool == nil {
		s.pool = worker.NewPool(s.cfg.Workers, worker.DefaultTimeout)
		s.fallback = tiles.NewTileManager(tiles.NewLocalTileProvider())
	}
	primary := tiles.NewTemplateProvider(d.TileSpec, s.cfg.PixelRatio)
	return mapview.NewTileLayer(d.Name, tiles.NewCombinedTileProvider(primary, s.fallback, s.pool))
}

// LoadCatalog fetches the catalog in the background and applies it on the
// UI goroutine. It is safe to call repeatedly.
func (s *Session) LoadCatalog(ctx context.Context) {
	go func() {
		cat, err := s.fetcher.Fetch(ctx)
		s.queue.Post(func() { s.applyCatalog(cat, err) })
	}()
}

func (s *Session) applyCatalog(cat catalog.Catalog, err error) {
	if err != nil {
		log.Printf("Could not load map catalog: %v", err)
		s.status = "Map catalog unavailable"
		return
	}
	s.catalog = cat
	s.rebuildOptions()
	s.Activate(s.activeName)
}

func (s *Session) rebuildOptions() {
	s.options = make([]Option, 0, s.catalog.Len())
	for _, d := range s.catalog.Maps {
		s.options = append(s.options, Option{Name: d.Name, Selected: d.Name == s.activeName})
	}
}

// Activate replaces the active layers with the ones for name. A name that is
// not in the catalog leaves the map with no active layers.
func (s *Session) Activate(name string) {
	for _, l := range s.activeLayers {
		s.surface.Detach(l)
	}
	s.activeLayers = nil
	s.attribution = ""
	s.activeName = name
	for i := range s.options {
		s.options[i].Selected = s.options[i].Name == name
	}

	d, ok := s.catalog.Lookup(name)
	if !ok {
		return
	}
	if d.HasTiles() {
		l := s.newLayer(d)
		s.surface.Attach(l)
		s.activeLayers = append(s.activeLayers, l)
	}
	s.attribution = d.AttributionText()
}

// ShowMap centers the map the first time it is called and does nothing after.
// A nil pos means the configured default center. A level below 1 keeps the
// current zoom.
func (s *Session) ShowMap(pos *tiles.LatLng, level int) bool {
	if s.shown {
		return false
	}
	s.shown = true
	center := s.cfg.DefaultCenter
	if pos != nil {
		center = *pos
	}
	if level > 0 {
		s.surface.SetZoom(level)
	}
	s.surface.SetLocation(center)
	return true
}

// HandleFix moves the location marker and halo. The first fix also shows the map.
func (s *Session) HandleFix(fix geolocation.Fix, first bool) {
	ll := fix.LatLng()
	if first {
		s.ShowMap(&ll, s.cfg.InitialZoom)
	}
	s.markers.Location.SetLocation(ll)
	s.markers.Halo.Set(ll, fix.AccuracyMeters)
	s.surface.Update(s.markers.Halo)
	s.surface.Update(s.markers.Location)
}

// HandleError falls back to the default view when no fix ever arrived.
func (s *Session) HandleError(err error, failed bool) {
	if failed {
		s.status = fmt.Sprintf("Location unavailable: %v", err)
		s.ShowMap(nil, s.cfg.DefaultZoom)
	}
}

// HandleTap opens a popup with the coordinates under pos.
func (s *Session) HandleTap(pos f32.Point) {
	ll := s.surface.Location(pos)
	s.openPopup(fmt.Sprintf("Location: (%.6f, %.6f)", ll.Lat, ll.Lng), ll, image.Point{}, true)
}

// HandleLongTap reports the coordinates under pos in the status line.
func (s *Session) HandleLongTap(pos f32.Point) {
	ll := s.surface.Location(pos)
	s.status = fmt.Sprintf("Long tap: %.6f, %.6f", ll.Lat, ll.Lng)
}

func (s *Session) openLocationPopup() {
	s.openPopup("My Location", s.markers.Location.Location, s.markers.LocationPopupOffset(), false)
}

func (s *Session) openPopup(text string, ll tiles.LatLng, offset image.Point, pin bool) {
	s.ClosePopup()
	popup := mapview.NewInfoWindow(s.theme, text)
	popup.SetLocation(ll, offset)
	popup.OnClick = s.ClosePopup
	s.tapPopup = popup
	if pin {
		s.markers.Pin.SetLocation(ll)
		s.surface.Attach(s.markers.Pin)
		s.popupPin = true
	}
	s.surface.Attach(popup)
}

// ClosePopup detaches the open popup, if any.
func (s *Session) ClosePopup() {
	if s.tapPopup == nil {
		return
	}
	s.surface.Detach(s.tapPopup)
	s.tapPopup = nil
	if s.popupPin {
		s.surface.Detach(s.markers.Pin)
		s.popupPin = false
	}
}

// ZoomIn zooms the map in one level in a single view transaction.
func (s *Session) ZoomIn() {
	s.surface.Begin()
	s.surface.ZoomIn()
	s.surface.Commit()
}

// ZoomOut zooms the map out one level in a single view transaction.
func (s *Session) ZoomOut() {
	s.surface.Begin()
	s.surface.ZoomOut()
	s.surface.Commit()
}

// Refresh reloads the catalog.
func (s *Session) Refresh(ctx context.Context) {
	s.LoadCatalog(ctx)
}

// Resize asks the surface to recompute its size.
func (s *Session) Resize() {
	s.surface.SetSize()
}

// Options lists the catalog layers in catalog order.
func (s *Session) Options() []Option { return s.options }

// ActiveName is the name of the selected layer, even when it is missing from
// the catalog.
func (s *Session) ActiveName() string { return s.activeName }

// ActiveLayers returns the tile layers currently attached for ActiveName.
func (s *Session) ActiveLayers() []mapview.Layer { return s.activeLayers }

// Attribution is the credit line of the active layer.
func (s *Session) Attribution() string { return s.attribution }

// Status is the last user facing error, or empty.
func (s *Session) Status() string { return s.status }

// Popup returns the open tap popup, or nil.
func (s *Session) Popup() *mapview.InfoWindow { return s.tapPopup }

// Markers returns the location marker and accuracy halo.
func (s *Session) Markers() Markers { return s.markers }

// Tracker returns the geolocation tracker started by Start.
func (s *Session) Tracker() *geolocation.Tracker { return s.tracker }

// Catalog returns the last catalog that loaded successfully.
func (s *Session) Catalog() catalog.Catalog { return s.catalog }
