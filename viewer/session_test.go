package viewer

import (
	"context"
	"errors"
	"image"
	"math"
	"testing"
	"time"

	"gioui.org/f32"
	"gioui.org/layout"

	"github.com/olablt/gio-nanomaps/catalog"
	"github.com/olablt/gio-nanomaps/geolocation"
	"github.com/olablt/gio-nanomaps/mapview"
	"github.com/olablt/gio-nanomaps/tiles"
)

type fakeSurface struct {
	layers    []mapview.Layer
	center    tiles.LatLng
	zoom      int
	locations []tiles.LatLng
	zoomOps   []string
	resized   int
}

func (f *fakeSurface) Attach(l mapview.Layer) {
	for _, x := range f.layers {
		if x == l {
			return
		}
	}
	f.layers = append(f.layers, l)
}

func (f *fakeSurface) Detach(l mapview.Layer) {
	for i, x := range f.layers {
		if x == l {
			f.layers = append(f.layers[:i], f.layers[i+1:]...)
			return
		}
	}
}

func (f *fakeSurface) Update(l mapview.Layer) { f.Attach(l) }

func (f *fakeSurface) SetLocation(ll tiles.LatLng) {
	f.center = ll
	f.locations = append(f.locations, ll)
}

func (f *fakeSurface) SetZoom(zoom int) { f.zoom = zoom }

func (f *fakeSurface) Location(pos f32.Point) tiles.LatLng {
	return tiles.LatLng{Lat: float64(pos.Y), Lng: float64(pos.X)}
}

func (f *fakeSurface) Begin()   { f.zoomOps = append(f.zoomOps, "begin") }
func (f *fakeSurface) ZoomIn()  { f.zoomOps = append(f.zoomOps, "in") }
func (f *fakeSurface) ZoomOut() { f.zoomOps = append(f.zoomOps, "out") }
func (f *fakeSurface) Commit()  { f.zoomOps = append(f.zoomOps, "commit") }
func (f *fakeSurface) SetSize() { f.resized++ }

func (f *fakeSurface) count(match func(mapview.Layer) bool) int {
	n := 0
	for _, l := range f.layers {
		if match(l) {
			n++
		}
	}
	return n
}

func (f *fakeSurface) popups() int {
	return f.count(func(l mapview.Layer) bool {
		_, ok := l.(*mapview.InfoWindow)
		return ok
	})
}

type fakeLayer struct{ desc catalog.LayerDescriptor }

func (l *fakeLayer) Pane() mapview.Pane                           { return mapview.PaneTiles }
func (l *fakeLayer) Draw(gtx layout.Context, vp mapview.Viewport) {}

type fakeFetcher struct {
	cat catalog.Catalog
	err error
}

func (f *fakeFetcher) Fetch(context.Context) (catalog.Catalog, error) { return f.cat, f.err }

func newTestSession(t *testing.T, fetcher Fetcher) (*Session, *fakeSurface) {
	t.Helper()
	surface := &fakeSurface{}
	cfg := DefaultConfig()
	cfg.DefaultLayer = "streets"
	s := NewSession(cfg, surface, fetcher, geolocation.UnavailableLocator{}, NewQueue(make(chan struct{}, 1)), nil)
	s.SetLayerFactory(func(d catalog.LayerDescriptor) mapview.Layer { return &fakeLayer{desc: d} })
	t.Cleanup(s.Close)
	return s, surface
}

func testCatalog(names ...string) catalog.Catalog {
	var cat catalog.Catalog
	for _, n := range names {
		cat.Maps = append(cat.Maps, catalog.LayerDescriptor{
			Name:       n,
			TileSpec:   "http://tiles/" + n + "/{z}/{x}/{y}.png",
			Properties: catalog.Properties{"attribution": "© " + n},
		})
	}
	return cat
}

func tileLayersOf(surface *fakeSurface, name string) int {
	return surface.count(func(l mapview.Layer) bool {
		fl, ok := l.(*fakeLayer)
		return ok && fl.desc.Name == name
	})
}

// drain waits for posted work and runs it.
func drain(t *testing.T, q *Queue) {
	t.Helper()
	select {
	case <-q.wake:
	case <-time.After(2 * time.Second):
		t.Fatal("nothing posted")
	}
	q.Drain()
}

// loadCatalog runs LoadCatalog and waits for its continuation.
func loadCatalog(t *testing.T, s *Session) {
	t.Helper()
	s.LoadCatalog(context.Background())
	drain(t, s.queue)
}

func TestCatalogLoadBuildsOneOptionPerEntry(t *testing.T) {
	for _, n := range []int{0, 1, 3, 7} {
		names := make([]string, n)
		for i := range names {
			names[i] = string(rune('a' + i))
		}
		s, _ := newTestSession(t, &fakeFetcher{cat: testCatalog(names...)})
		loadCatalog(t, s)

		opts := s.Options()
		if len(opts) != n {
			t.Fatalf("n=%d: %d options", n, len(opts))
		}
		for i, o := range opts {
			if o.Name != names[i] {
				t.Fatalf("option %d=%q, want %q", i, o.Name, names[i])
			}
		}
	}
}

func TestCatalogLoadActivatesPriorSelection(t *testing.T) {
	cat := catalog.Catalog{Maps: []catalog.LayerDescriptor{{
		Name:       "streets",
		TileSpec:   "http://tiles/{z}/{x}/{y}.png",
		Properties: catalog.Properties{"attribution": "© X"},
	}}}
	s, surface := newTestSession(t, &fakeFetcher{cat: cat})
	loadCatalog(t, s)

	opts := s.Options()
	if len(opts) != 1 || opts[0].Name != "streets" || !opts[0].Selected {
		t.Fatalf("options=%+v, want one selected streets", opts)
	}
	if got := s.Attribution(); got != "© X" {
		t.Fatalf("attribution=%q, want © X", got)
	}
	if got := tileLayersOf(surface, "streets"); got != 1 {
		t.Fatalf("attached layers=%d, want 1", got)
	}
}

func TestCatalogFailureLeavesStateUntouched(t *testing.T) {
	fetcher := &fakeFetcher{cat: testCatalog("streets", "aerial")}
	s, surface := newTestSession(t, fetcher)
	loadCatalog(t, s)

	fetcher.err = errors.New("connection refused")
	fetcher.cat = catalog.Catalog{}
	loadCatalog(t, s)

	if s.Catalog().Len() != 2 || len(s.Options()) != 2 {
		t.Fatalf("catalog replaced after failed fetch: %d entries", s.Catalog().Len())
	}
	if got := tileLayersOf(surface, "streets"); got != 1 {
		t.Fatalf("attached layers=%d, want 1", got)
	}
	if s.Status() == "" {
		t.Fatal("failure not reported in status")
	}
}

func TestActivateTwiceIsIdempotent(t *testing.T) {
	s, surface := newTestSession(t, &fakeFetcher{cat: testCatalog("streets", "aerial")})
	loadCatalog(t, s)

	s.Activate("aerial")
	s.Activate("aerial")
	if got := len(surface.layers); got != 1 {
		t.Fatalf("attached layers=%d, want 1", got)
	}
	if got := len(s.ActiveLayers()); got != 1 {
		t.Fatalf("active layers=%d, want 1", got)
	}
}

func TestActivateDetachesPreviousSelection(t *testing.T) {
	s, surface := newTestSession(t, &fakeFetcher{cat: testCatalog("streets", "aerial")})
	loadCatalog(t, s)

	s.Activate("streets")
	s.Activate("aerial")
	if got := tileLayersOf(surface, "streets"); got != 0 {
		t.Fatalf("streets layers still attached: %d", got)
	}
	if got := tileLayersOf(surface, "aerial"); got != 1 {
		t.Fatalf("aerial layers=%d, want 1", got)
	}
	if got := s.Attribution(); got != "© aerial" {
		t.Fatalf("attribution=%q", got)
	}
	for _, o := range s.Options() {
		if o.Selected != (o.Name == "aerial") {
			t.Fatalf("option %q selected=%v", o.Name, o.Selected)
		}
	}
}

func TestActivateUnknownNameClearsMap(t *testing.T) {
	s, surface := newTestSession(t, &fakeFetcher{cat: testCatalog("streets")})
	loadCatalog(t, s)

	s.Activate("nope")
	if len(surface.layers) != 0 || len(s.ActiveLayers()) != 0 {
		t.Fatalf("layers left attached: %d", len(surface.layers))
	}
	if s.Attribution() != "" {
		t.Fatalf("attribution=%q, want empty", s.Attribution())
	}
	if s.ActiveName() != "nope" {
		t.Fatalf("active name=%q", s.ActiveName())
	}
}

func TestActivateBeforeCatalogLoadIsNoop(t *testing.T) {
	s, surface := newTestSession(t, &fakeFetcher{})
	s.Activate("streets")
	if len(surface.layers) != 0 {
		t.Fatalf("layers=%d, want 0", len(surface.layers))
	}
}

func TestActivateWithoutTileSpecOnlySetsAttribution(t *testing.T) {
	cat := catalog.Catalog{Maps: []catalog.LayerDescriptor{{
		Name:       "blank",
		Properties: catalog.Properties{"attributionHtml": "<b>Blank</b> map"},
	}}}
	s, surface := newTestSession(t, &fakeFetcher{cat: cat})
	loadCatalog(t, s)

	s.Activate("blank")
	if len(surface.layers) != 0 {
		t.Fatalf("layers=%d, want 0", len(surface.layers))
	}
	if got := s.Attribution(); got != "Blank map" {
		t.Fatalf("attribution=%q", got)
	}
}

func TestMapIsRecenteredOnlyOnFirstFix(t *testing.T) {
	s, surface := newTestSession(t, &fakeFetcher{})

	s.HandleFix(geolocation.Fix{Lat: 47.6, Lng: -122.3, AccuracyMeters: 20}, true)
	s.HandleFix(geolocation.Fix{Lat: 48, Lng: -123, AccuracyMeters: 30}, false)
	s.HandleFix(geolocation.Fix{Lat: 49, Lng: -124, AccuracyMeters: 40}, false)

	if len(surface.locations) != 1 {
		t.Fatalf("recentered %d times, want 1", len(surface.locations))
	}
	m := s.Markers()
	if m.Location.Location != (tiles.LatLng{Lat: 49, Lng: -124}) {
		t.Fatalf("marker at %v", m.Location.Location)
	}
	if m.Halo.RadiusMeters != 40 {
		t.Fatalf("halo radius=%v, want 40", m.Halo.RadiusMeters)
	}
}

func TestFirstFixCentersAtInitialZoom(t *testing.T) {
	s, surface := newTestSession(t, &fakeFetcher{})
	s.HandleFix(geolocation.Fix{Lat: 47.6, Lng: -122.3, AccuracyMeters: 20}, true)

	if surface.center != (tiles.LatLng{Lat: 47.6, Lng: -122.3}) {
		t.Fatalf("center=%v", surface.center)
	}
	if surface.zoom != s.cfg.InitialZoom {
		t.Fatalf("zoom=%d, want %d", surface.zoom, s.cfg.InitialZoom)
	}
	m := s.Markers()
	if m.Halo.RadiusMeters != 20 || m.Halo.Center != surface.center {
		t.Fatalf("halo=%v r=%v", m.Halo.Center, m.Halo.RadiusMeters)
	}
	if surface.count(func(l mapview.Layer) bool { return l == m.Halo || l == m.Location }) != 2 {
		t.Fatal("location marker and halo should be attached")
	}
}

func TestLocationFailureShowsDefaultViewOnce(t *testing.T) {
	s, surface := newTestSession(t, &fakeFetcher{})
	s.HandleError(geolocation.ErrTimeout, true)
	s.HandleError(geolocation.ErrTimeout, false)
	s.HandleFix(geolocation.Fix{Lat: 1, Lng: 2}, true)

	if len(surface.locations) != 1 || surface.locations[0] != s.cfg.DefaultCenter {
		t.Fatalf("locations=%v, want only the default center", surface.locations)
	}
	if surface.zoom != s.cfg.DefaultZoom {
		t.Fatalf("zoom=%d, want %d", surface.zoom, s.cfg.DefaultZoom)
	}
}

func TestShowMapGuard(t *testing.T) {
	s, surface := newTestSession(t, &fakeFetcher{})
	ll := tiles.LatLng{Lat: 3, Lng: 4}
	if !s.ShowMap(&ll, 0) {
		t.Fatal("first ShowMap should show")
	}
	if s.ShowMap(nil, 5) {
		t.Fatal("second ShowMap should be a no-op")
	}
	if surface.center != ll || surface.zoom != 0 {
		t.Fatalf("center=%v zoom=%d", surface.center, surface.zoom)
	}
}

func TestTapKeepsAtMostOnePopup(t *testing.T) {
	s, surface := newTestSession(t, &fakeFetcher{})
	s.HandleTap(f32.Pt(10, 20))
	first := s.Popup()
	s.HandleTap(f32.Pt(30, 40))

	if got := surface.popups(); got != 1 {
		t.Fatalf("popups=%d, want 1", got)
	}
	if s.Popup() == first {
		t.Fatal("second tap should replace the popup")
	}
	if got := s.Popup().Text; got != "Location: (40.000000, 30.000000)" {
		t.Fatalf("popup text=%q", got)
	}
	pin := s.Markers().Pin
	if pin.Location != (tiles.LatLng{Lat: 40, Lng: 30}) {
		t.Fatalf("pin at %v", pin.Location)
	}
	if surface.count(func(l mapview.Layer) bool { return l == pin }) != 1 {
		t.Fatal("pin should be attached once")
	}
}

func TestPopupClickDismisses(t *testing.T) {
	s, surface := newTestSession(t, &fakeFetcher{})
	s.HandleTap(f32.Pt(10, 20))
	s.Popup().OnClick()

	if len(surface.layers) != 0 || s.Popup() != nil {
		t.Fatalf("layers left after dismiss: %d", len(surface.layers))
	}
}

func TestLocationMarkerPopup(t *testing.T) {
	s, surface := newTestSession(t, &fakeFetcher{})
	s.HandleFix(geolocation.Fix{Lat: 5, Lng: 6, AccuracyMeters: 10}, true)
	s.HandleTap(f32.Pt(1, 1))

	m := s.Markers()
	m.Location.OnClick()

	p := s.Popup()
	if p == nil || p.Text != "My Location" {
		t.Fatalf("popup=%+v", p)
	}
	if p.Location != (tiles.LatLng{Lat: 5, Lng: 6}) {
		t.Fatalf("popup at %v", p.Location)
	}
	if want := image.Pt(0, m.Location.Size().Y/2); p.Offset != want {
		t.Fatalf("offset=%v, want %v", p.Offset, want)
	}
	if surface.popups() != 1 {
		t.Fatalf("popups=%d, want 1", surface.popups())
	}
	if surface.count(func(l mapview.Layer) bool { return l == m.Pin }) != 0 {
		t.Fatal("tap pin should go with the tap popup")
	}
}

func TestLongTapReportsCoordinates(t *testing.T) {
	s, surface := newTestSession(t, &fakeFetcher{})
	s.HandleLongTap(f32.Pt(12.5, -3))
	if got := s.Status(); got != "Long tap: -3.000000, 12.500000" {
		t.Fatalf("status=%q", got)
	}
	if len(surface.layers) != 0 {
		t.Fatal("long tap should not open a popup")
	}
}

func TestZoomButtonsUseTransactions(t *testing.T) {
	s, surface := newTestSession(t, &fakeFetcher{})
	s.ZoomIn()
	s.ZoomOut()
	want := []string{"begin", "in", "commit", "begin", "out", "commit"}
	if len(surface.zoomOps) != len(want) {
		t.Fatalf("ops=%v, want %v", surface.zoomOps, want)
	}
	for i := range want {
		if surface.zoomOps[i] != want[i] {
			t.Fatalf("ops=%v, want %v", surface.zoomOps, want)
		}
	}
}

func TestResizeOnlyRecomputesSize(t *testing.T) {
	s, surface := newTestSession(t, &fakeFetcher{})
	s.Resize()
	if surface.resized != 1 || len(surface.locations) != 0 || len(surface.layers) != 0 {
		t.Fatalf("resize touched more than the size: %+v", surface)
	}
}

func TestTrackerDrivesSessionThroughQueue(t *testing.T) {
	surface := &fakeSurface{}
	queue := NewQueue(make(chan struct{}, 1))
	s := NewSession(DefaultConfig(), surface, &fakeFetcher{}, geolocation.NewStaticLocator(47.6, -122.3, 20), queue, nil)
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Tracker().Start(ctx)
	for s.Tracker().State() != geolocation.Tracking {
		drain(t, queue)
	}
	if math.Abs(surface.center.Lat-47.6) > 1e-9 || surface.zoom != 15 {
		t.Fatalf("center=%v zoom=%d", surface.center, surface.zoom)
	}
	if s.Markers().Halo.RadiusMeters != 20 {
		t.Fatalf("halo radius=%v", s.Markers().Halo.RadiusMeters)
	}
}
