package viewer

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/olablt/gio-nanomaps/catalog"
	"github.com/olablt/gio-nanomaps/geolocation"
	"github.com/olablt/gio-nanomaps/mapview"
	"github.com/olablt/gio-nanomaps/tiles"
)

// Locator kinds accepted in Config.Locator.
const (
	LocatorIP     = "ip"
	LocatorStatic = "static"
	LocatorNone   = "none"
)

var ErrInvalidConfig = errors.New("invalid viewer config")

// StaticPosition configures the static locator.
type StaticPosition struct {
	Lat      float64 `yaml:"lat"`
	Lng      float64 `yaml:"lng"`
	Accuracy float64 `yaml:"accuracy"`
}

// Config holds the viewer configuration.
type Config struct {
	CatalogURL   string `yaml:"catalogUrl"`
	DefaultLayer string `yaml:"defaultLayer"`
	// DefaultCenter and DefaultZoom are shown when no position is available.
	DefaultCenter tiles.LatLng `yaml:"defaultCenter"`
	DefaultZoom   int          `yaml:"defaultZoom"`
	// InitialZoom is used when centering on the first position fix.
	InitialZoom int     `yaml:"initialZoom"`
	PixelRatio  float64 `yaml:"pixelRatio"`
	Workers     int     `yaml:"workers"`

	Locator       string         `yaml:"locator"`
	Static        StaticPosition `yaml:"static"`
	IPLookupURL   string         `yaml:"ipLookupUrl"`
	IPAccuracy    float64        `yaml:"ipAccuracy"`
	WatchInterval time.Duration  `yaml:"watchInterval"`
}

func DefaultConfig() Config {
	return Config{
		CatalogURL:    catalog.DefaultURL,
		DefaultLayer:  "mqstreet",
		DefaultZoom:   2,
		InitialZoom:   15,
		PixelRatio:    1,
		Workers:       4,
		Locator:       LocatorIP,
		IPLookupURL:   geolocation.DefaultIPLookupURL,
		IPAccuracy:    geolocation.DefaultIPAccuracy,
		WatchInterval: geolocation.DefaultWatchInterval,
	}
}

// LoadConfig reads a YAML file over the defaults. An empty path returns the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	u, err := url.Parse(c.CatalogURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: catalog url %q", ErrInvalidConfig, c.CatalogURL)
	}
	for name, z := range map[string]int{"initialZoom": c.InitialZoom, "defaultZoom": c.DefaultZoom} {
		if z < mapview.DefaultMinZoom || z > mapview.DefaultMaxZoom {
			return fmt.Errorf("%w: %s %d outside %d..%d", ErrInvalidConfig, name, z, mapview.DefaultMinZoom, mapview.DefaultMaxZoom)
		}
	}
	if c.PixelRatio <= 0 {
		return fmt.Errorf("%w: pixel ratio %v", ErrInvalidConfig, c.PixelRatio)
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers %d", ErrInvalidConfig, c.Workers)
	}
	switch c.Locator {
	case LocatorIP, LocatorStatic, LocatorNone:
	default:
		return fmt.Errorf("%w: unknown locator %q", ErrInvalidConfig, c.Locator)
	}
	return nil
}

// NewLocator builds the position source named by c.Locator.
func (c Config) NewLocator() geolocation.Locator {
	switch c.Locator {
	case LocatorStatic:
		return geolocation.NewStaticLocator(c.Static.Lat, c.Static.Lng, c.Static.Accuracy)
	case LocatorIP:
		l := geolocation.NewIPLocator(c.IPLookupURL)
		if c.IPAccuracy > 0 {
			l.AccuracyMeters = c.IPAccuracy
		}
		if c.WatchInterval > 0 {
			l.Interval = c.WatchInterval
		}
		return l
	}
	return geolocation.UnavailableLocator{}
}
