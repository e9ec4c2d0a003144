package geolocation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// StaticLocator always reports the same position.
type StaticLocator struct {
	Fix Fix
}

func NewStaticLocator(lat, lng, accuracyMeters float64) *StaticLocator {
	return &StaticLocator{Fix: Fix{Lat: lat, Lng: lng, AccuracyMeters: accuracyMeters}}
}

func (l *StaticLocator) CurrentPosition(ctx context.Context, _ Options) (Fix, error) {
	if err := ctx.Err(); err != nil {
		return Fix{}, err
	}
	fix := l.Fix
	fix.Timestamp = time.Now()
	return fix, nil
}

// Watch emits the position once; a static position never changes.
func (l *StaticLocator) Watch(ctx context.Context) (<-chan Update, error) {
	ch := make(chan Update, 1)
	fix, err := l.CurrentPosition(ctx, Options{})
	ch <- Update{Fix: fix, Err: err}
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}

// UnavailableLocator reports that no position source exists.
type UnavailableLocator struct{}

func (UnavailableLocator) CurrentPosition(context.Context, Options) (Fix, error) {
	return Fix{}, &PositionError{Code: PositionUnavailable, Message: "no location provider configured"}
}

func (UnavailableLocator) Watch(context.Context) (<-chan Update, error) {
	return nil, &PositionError{Code: PositionUnavailable, Message: "no location provider configured"}
}

const (
	DefaultIPLookupURL = "http://ip-api.com/json/?fields=status,message,lat,lon"
	// DefaultIPAccuracy is a city-level guess; IP lookups carry no accuracy.
	DefaultIPAccuracy    = 5000.0
	DefaultWatchInterval = time.Minute
)

// IPLocator estimates the position from the public IP address using an
// ip-api.com compatible JSON endpoint.
type IPLocator struct {
	URL            string
	AccuracyMeters float64
	Interval       time.Duration
	HTTPClient     *http.Client

	mu   sync.Mutex
	last *Fix
}

func NewIPLocator(url string) *IPLocator {
	if url == "" {
		url = DefaultIPLookupURL
	}
	return &IPLocator{
		URL:            url,
		AccuracyMeters: DefaultIPAccuracy,
		Interval:       DefaultWatchInterval,
		HTTPClient:     &http.Client{Timeout: 10 * time.Second},
	}
}

type ipLookupResponse struct {
	Status  string  `json:"status"`
	Message string  `json:"message"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

func (l *IPLocator) CurrentPosition(ctx context.Context, opts Options) (Fix, error) {
	if fix, ok := l.cached(opts.MaxAge); ok {
		return fix, nil
	}
	return l.lookup(ctx)
}

func (l *IPLocator) cached(maxAge time.Duration) (Fix, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.last == nil || maxAge <= 0 {
		return Fix{}, false
	}
	if maxAge != Unbounded && time.Since(l.last.Timestamp) > maxAge {
		return Fix{}, false
	}
	return *l.last, true
}

func (l *IPLocator) lookup(ctx context.Context) (Fix, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.URL, nil)
	if err != nil {
		return Fix{}, fmt.Errorf("build ip lookup request: %w", err)
	}
	resp, err := l.HTTPClient.Do(req)
	if err != nil {
		return Fix{}, toPositionError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Fix{}, &PositionError{Code: PositionUnavailable, Message: fmt.Sprintf("ip lookup returned %s", resp.Status)}
	}
	var body ipLookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Fix{}, &PositionError{Code: PositionUnavailable, Message: fmt.Sprintf("decode ip lookup: %v", err)}
	}
	if body.Status != "success" {
		msg := body.Message
		if msg == "" {
			msg = "ip lookup failed"
		}
		return Fix{}, &PositionError{Code: PositionUnavailable, Message: msg}
	}

	fix := Fix{Lat: body.Lat, Lng: body.Lon, AccuracyMeters: l.AccuracyMeters, Timestamp: time.Now()}
	l.mu.Lock()
	l.last = &fix
	l.mu.Unlock()
	return fix, nil
}

// Watch looks the position up immediately and then every Interval.
func (l *IPLocator) Watch(ctx context.Context) (<-chan Update, error) {
	interval := l.Interval
	if interval <= 0 {
		interval = DefaultWatchInterval
	}
	ch := make(chan Update, 1)
	go func() {
		defer close(ch)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			fix, err := l.lookup(ctx)
			select {
			case ch <- Update{Fix: fix, Err: err}:
			case <-ctx.Done():
				return
			}
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}
