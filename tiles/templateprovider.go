package tiles

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ErrUnexpectedStatus is returned when a tile server answers with a non-200 status.
var ErrUnexpectedStatus = errors.New("unexpected tile response status")

// UserAgent is sent with every tile request.
const UserAgent = "gio-nanomaps/0.1 (+https://github.com/olablt/gio-nanomaps)"

// TemplateProvider fetches tiles over HTTP from a URL template.
//
// Two placeholder styles are understood:
//
//	${level} ${tileX} ${tileY} ${pixelRatio}
//	{z}      {x}      {y}      {r}
type TemplateProvider struct {
	template   string
	pixelRatio float64
	client     *http.Client
}

func NewTemplateProvider(template string, pixelRatio float64) *TemplateProvider {
	if pixelRatio <= 0 {
		pixelRatio = 1
	}
	return &TemplateProvider{
		template:   template,
		pixelRatio: pixelRatio,
		client:     &http.Client{Timeout: 12 * time.Second},
	}
}

// WithClient replaces the HTTP client used for tile requests.
func (p *TemplateProvider) WithClient(c *http.Client) *TemplateProvider {
	p.client = c
	return p
}

func (p *TemplateProvider) Template() string {
	return p.template
}

func (p *TemplateProvider) GetTile(ctx context.Context, tile Tile) (image.Image, error) {
	url := p.GetTileURL(tile)
	log.Printf("Requesting tile: %s", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for tile %v: %w", tile, err)
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "image/png,image/jpeg,image/*;q=0.8")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch tile %v: %w", tile, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d for %s", ErrUnexpectedStatus, resp.StatusCode, url)
	}

	img, _, err := image.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decode tile %v: %w", tile, err)
	}
	return img, nil
}

// GetTileURL returns the URL for downloading the map tile
func (p *TemplateProvider) GetTileURL(tile Tile) string {
	return ExpandTemplate(p.template, tile, p.pixelRatio)
}

// ExpandTemplate substitutes tile coordinates and pixel ratio into a tile URL template.
func ExpandTemplate(template string, tile Tile, pixelRatio float64) string {
	z := strconv.Itoa(tile.Zoom)
	x := strconv.Itoa(tile.X)
	y := strconv.Itoa(tile.Y)
	r := strconv.FormatFloat(pixelRatio, 'f', -1, 64)
	return strings.NewReplacer(
		"${level}", z,
		"${tileX}", x,
		"${tileY}", y,
		"${pixelRatio}", r,
		"{z}", z,
		"{x}", x,
		"{y}", y,
		"{r}", r,
	).Replace(template)
}
