package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"log"
	"math"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/danielgtaylor/huma/v2"

	"github.com/olablt/gio-nanomaps/catalog"
	"github.com/olablt/gio-nanomaps/tiles"
)

// MaxZoom is the deepest zoom level served.
const MaxZoom = 22

// DefaultCacheMaxAge is the Cache-Control max-age of tile responses, in seconds.
const DefaultCacheMaxAge = 5

// TileCacheSize is how many tiles each map source keeps in memory.
const TileCacheSize = 512

// Pixel ratios outside this range are clamped; fractional ratios are rounded.
const (
	minPixelRatio = 1
	maxPixelRatio = 4
)

// Handler serves the catalog and the tiles of a repository.
type Handler struct {
	repo        *Repository
	publicURL   string
	cacheMaxAge int

	mu      sync.Mutex
	sources map[string]*tiles.TileManager
}

func NewHandler(repo *Repository, publicURL string) *Handler {
	return &Handler{
		repo:        repo,
		publicURL:   strings.TrimSuffix(publicURL, "/"),
		cacheMaxAge: DefaultCacheMaxAge,
		sources:     make(map[string]*tiles.TileManager),
	}
}

type HealthBody struct {
	Status string `json:"status" doc:"Health status" example:"ok"`
}

// HostInput captures the request host for building absolute URLs.
type HostInput struct {
	host string
}

func (i *HostInput) Resolve(ctx huma.Context) []error {
	i.host = ctx.Host()
	return nil
}

type MapInput struct {
	HostInput
	Name string `path:"name" doc:"Map name" example:"mqstreet"`
}

type TileInput struct {
	Name       string  `path:"name" doc:"Map name" example:"mqstreet"`
	Z          int     `path:"z" doc:"Zoom level"`
	X          int     `path:"x" doc:"Tile column"`
	Y          int     `path:"y" doc:"Tile row"`
	PixelRatio float64 `query:"pixelRatio" doc:"Device pixels per map pixel" default:"1" minimum:"0.5" maximum:"4"`
}

type TileOutput struct {
	ContentType  string `header:"Content-Type"`
	CacheControl string `header:"Cache-Control"`
	Bounds       string `header:"X-Tile-Bounds" doc:"Tile bounds as minLng,minLat,maxLng,maxLat"`
	Body         []byte
}

func (h *Handler) Register(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
	huma.Get(api, "/map/", h.ListMaps, huma.OperationTags("maps"))
	huma.Get(api, "/map/{name}", h.GetMap, huma.OperationTags("maps"))
	huma.Get(api, "/map/{name}/tile/{z}/{x}/{y}", h.GetTile, huma.OperationTags("tiles"))
}

func (h *Handler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	return &struct{ Body HealthBody }{Body: HealthBody{Status: "ok"}}, nil
}

func (h *Handler) ListMaps(ctx context.Context, input *HostInput) (*struct{ Body catalog.Catalog }, error) {
	base := h.baseURL(input.host)
	out := &struct{ Body catalog.Catalog }{Body: catalog.Catalog{Maps: []catalog.LayerDescriptor{}}}
	for _, e := range h.repo.List() {
		if !e.Announced() {
			continue
		}
		out.Body.Maps = append(out.Body.Maps, describe(base, e))
	}
	return out, nil
}

func (h *Handler) GetMap(ctx context.Context, input *MapInput) (*struct{ Body catalog.LayerDescriptor }, error) {
	e, ok := h.repo.Lookup(input.Name)
	if !ok {
		return nil, huma.Error404NotFound(fmt.Sprintf("map %s not found", input.Name))
	}
	return &struct{ Body catalog.LayerDescriptor }{Body: describe(h.baseURL(input.host), e)}, nil
}

func (h *Handler) GetTile(ctx context.Context, input *TileInput) (*TileOutput, error) {
	e, ok := h.repo.Lookup(input.Name)
	if !ok {
		return nil, huma.Error404NotFound(fmt.Sprintf("map %s not found", input.Name))
	}
	tile := tiles.Tile{X: input.X, Y: input.Y, Zoom: input.Z}
	if !tile.Valid() || tile.Zoom > MaxZoom {
		return nil, huma.Error400BadRequest(fmt.Sprintf("tile %d/%d/%d does not exist", tile.Zoom, tile.X, tile.Y))
	}

	img, err := h.source(e, input.PixelRatio).GetTile(ctx, tile)
	if err != nil {
		log.Printf("Error loading tile %s/%s: %v", e.Name, tiles.GetTileKey(tile), err)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, huma.Error504GatewayTimeout("upstream timed out")
		}
		return nil, huma.Error502BadGateway("upstream tile unavailable")
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, huma.Error500InternalServerError("encode tile", err)
	}

	b := tile.MapTile().Bound()
	return &TileOutput{
		ContentType:  "image/png",
		CacheControl: "max-age=" + strconv.Itoa(h.cacheMaxAge),
		Bounds:       fmt.Sprintf("%g,%g,%g,%g", b.Min.Lon(), b.Min.Lat(), b.Max.Lon(), b.Max.Lat()),
		Body:         buf.Bytes(),
	}, nil
}

// pixelRatioStep rounds a requested ratio to one the server renders.
func pixelRatioStep(r float64) int {
	return min(max(int(math.Round(r)), minPixelRatio), maxPixelRatio)
}

// source returns the shared tile source for a map at a pixel ratio.
func (h *Handler) source(e MapEntry, pixelRatio float64) *tiles.TileManager {
	ratio := pixelRatioStep(pixelRatio)
	key := e.Name + "@" + strconv.Itoa(ratio)
	h.mu.Lock()
	defer h.mu.Unlock()
	if tm, ok := h.sources[key]; ok {
		return tm
	}

	var provider tiles.TileProvider
	if e.Upstream != "" {
		provider = tiles.NewTemplateProvider(e.Upstream, float64(ratio))
	} else {
		local := tiles.NewLocalTileProvider()
		local.Label = e.Name
		local.Scale = ratio
		provider = local
	}
	tm := tiles.NewTileManager(provider).WithCacheLimit(TileCacheSize)
	h.sources[key] = tm
	return tm
}

func (h *Handler) baseURL(host string) string {
	if h.publicURL != "" {
		return h.publicURL
	}
	return "http://" + host
}

func describe(base string, e MapEntry) catalog.LayerDescriptor {
	uri := base + "/map/" + url.PathEscape(e.Name)
	props := make(catalog.Properties, len(e.Properties))
	for k, v := range e.Properties {
		props[k] = v
	}
	return catalog.LayerDescriptor{
		Name:       e.Name,
		URI:        uri,
		TileSpec:   uri + "/tile/${level}/${tileX}/${tileY}?pixelRatio=${pixelRatio}",
		Properties: props,
	}
}
