package tiles

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/olablt/gio-nanomaps/tiles/worker"
)

func TestExpandTemplate(t *testing.T) {
	tile := Tile{X: 3, Y: 5, Zoom: 4}
	tests := []struct {
		template string
		want     string
	}{
		{"http://tiles/{z}/{x}/{y}.png", "http://tiles/4/3/5.png"},
		{"http://h/map/streets/tile/${level}/${tileX}/${tileY}?pixelRatio=${pixelRatio}", "http://h/map/streets/tile/4/3/5?pixelRatio=2"},
		{"http://tiles/{z}/{x}/{y}@{r}x.png", "http://tiles/4/3/5@2x.png"},
	}
	for _, tt := range tests {
		if got := ExpandTemplate(tt.template, tile, 2); got != tt.want {
			t.Fatalf("ExpandTemplate(%q)=%q, want %q", tt.template, got, tt.want)
		}
	}
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, TileSize, TileSize))
	img.Set(1, 1, color.RGBA{255, 0, 0, 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestTemplateProviderFetchesTile(t *testing.T) {
	body := pngBytes(t)
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "image/png")
		w.Write(body)
	}))
	defer srv.Close()

	p := NewTemplateProvider(srv.URL+"/{z}/{x}/{y}.png", 1)
	img, err := p.GetTile(context.Background(), Tile{X: 1, Y: 2, Zoom: 3})
	if err != nil {
		t.Fatal(err)
	}
	if gotPath != "/3/1/2.png" {
		t.Fatalf("path=%q, want /3/1/2.png", gotPath)
	}
	if img.Bounds().Dx() != TileSize {
		t.Fatalf("width=%d, want %d", img.Bounds().Dx(), TileSize)
	}
}

func TestTemplateProviderRejectsBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewTemplateProvider(srv.URL+"/{z}/{x}/{y}", 1).GetTile(context.Background(), Tile{})
	if !errors.Is(err, ErrUnexpectedStatus) {
		t.Fatalf("err=%v, want ErrUnexpectedStatus", err)
	}
}

type countingProvider struct {
	calls atomic.Int32
	err   error
}

func (p *countingProvider) GetTile(_ context.Context, tile Tile) (image.Image, error) {
	p.calls.Add(1)
	if p.err != nil {
		return nil, p.err
	}
	return image.NewRGBA(image.Rect(0, 0, 1, 1)), nil
}

func TestTileManagerCaches(t *testing.T) {
	provider := &countingProvider{}
	tm := NewTileManager(provider)
	loads := 0
	tm.SetOnLoadCallback(func() { loads++ })

	for i := 0; i < 3; i++ {
		if _, err := tm.GetTile(context.Background(), Tile{X: 1, Y: 1, Zoom: 2}); err != nil {
			t.Fatal(err)
		}
	}
	if got := provider.calls.Load(); got != 1 {
		t.Fatalf("provider calls=%d, want 1", got)
	}
	if loads != 1 {
		t.Fatalf("onLoad calls=%d, want 1", loads)
	}
	if tm.GetCache().Len() != 1 {
		t.Fatalf("cache len=%d, want 1", tm.GetCache().Len())
	}
}

func TestCombinedProviderServesFallbackThenPrimary(t *testing.T) {
	pool := worker.NewPool(2, time.Second)
	defer pool.Shutdown()

	primary := &countingProvider{}
	p := NewCombinedTileProvider(primary, NewLocalTileProvider(), pool)
	loaded := make(chan struct{}, 1)
	p.SetOnLoadCallback(func() { loaded <- struct{}{} })

	tile := Tile{X: 0, Y: 0, Zoom: 0}
	img, err := p.GetTile(context.Background(), tile)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != TileSize {
		t.Fatalf("fallback width=%d, want %d", img.Bounds().Dx(), TileSize)
	}

	select {
	case <-loaded:
	case <-time.After(2 * time.Second):
		t.Fatal("primary tile never loaded")
	}
	if !p.Ready(tile) {
		t.Fatal("tile should be ready after load")
	}
	img, err = p.GetTile(context.Background(), tile)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 1 {
		t.Fatalf("expected primary image, got width %d", img.Bounds().Dx())
	}
}

func TestCombinedProviderDoesNotRetryFailedTile(t *testing.T) {
	pool := worker.NewPool(1, time.Second)
	defer pool.Shutdown()

	primary := &countingProvider{err: errors.New("offline")}
	p := NewCombinedTileProvider(primary, NewLocalTileProvider(), pool)
	tile := Tile{X: 0, Y: 0, Zoom: 0}

	p.GetTile(context.Background(), tile)
	deadline := time.Now().Add(2 * time.Second)
	for primary.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	// Let the failed load record itself.
	time.Sleep(50 * time.Millisecond)
	for i := 0; i < 5; i++ {
		if _, err := p.GetTile(context.Background(), tile); err != nil {
			t.Fatal(err)
		}
	}
	time.Sleep(50 * time.Millisecond)
	if got := primary.calls.Load(); got != 1 {
		t.Fatalf("primary calls=%d, want 1", got)
	}
}

func TestLocalTileProviderScale(t *testing.T) {
	p := NewLocalTileProvider()
	p.Scale = 2
	p.Label = "streets"
	img, err := p.GetTile(context.Background(), Tile{X: 1, Y: 2, Zoom: 3})
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 2*TileSize {
		t.Fatalf("width=%d, want %d", img.Bounds().Dx(), 2*TileSize)
	}
}

func TestBoundedCacheDropsOldest(t *testing.T) {
	c := NewBoundedCache[int](2)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("a", 10) // overwrite keeps the slot
	c.Set("c", 3)
	if c.Len() != 2 {
		t.Fatalf("len=%d, want 2", c.Len())
	}
	if _, ok := c.Get("a"); ok {
		t.Fatal("oldest entry should be gone")
	}
	for _, k := range []string{"b", "c"} {
		if _, ok := c.Get(k); !ok {
			t.Fatalf("%s missing", k)
		}
	}
	c.Delete("b")
	c.Set("d", 4)
	if _, ok := c.Get("c"); !ok || c.Len() != 2 {
		t.Fatalf("delete should free a slot, len=%d", c.Len())
	}
}

func TestTileManagerCacheLimit(t *testing.T) {
	tm := NewTileManager(NewLocalTileProvider()).WithCacheLimit(3)
	for x := 0; x < 10; x++ {
		if _, err := tm.GetTile(context.Background(), Tile{X: x, Y: 0, Zoom: 4}); err != nil {
			t.Fatal(err)
		}
	}
	if got := tm.GetCache().Len(); got != 3 {
		t.Fatalf("cached=%d, want 3", got)
	}
}
