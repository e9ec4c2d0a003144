// Package geolocation obtains the device position and tracks it over time.
package geolocation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/olablt/gio-nanomaps/tiles"
)

// Fix is a single position reading.
type Fix struct {
	Lat            float64
	Lng            float64
	AccuracyMeters float64
	Timestamp      time.Time
}

func (f Fix) LatLng() tiles.LatLng {
	return tiles.LatLng{Lat: f.Lat, Lng: f.Lng}
}

// Unbounded accepts a cached position of any age.
const Unbounded time.Duration = math.MaxInt64

// Options controls a one-shot position request.
type Options struct {
	// MaxAge is the oldest cached fix that may be returned. Zero forces a fresh reading.
	MaxAge time.Duration
	// Timeout bounds the request. Zero means no timeout.
	Timeout time.Duration
}

// ErrorCode mirrors the position error codes of the W3C geolocation API.
type ErrorCode int

const (
	PermissionDenied    ErrorCode = 1
	PositionUnavailable ErrorCode = 2
	Timeout             ErrorCode = 3
)

func (c ErrorCode) String() string {
	switch c {
	case PermissionDenied:
		return "permission denied"
	case PositionUnavailable:
		return "position unavailable"
	case Timeout:
		return "timeout"
	}
	return fmt.Sprintf("error code %d", int(c))
}

// PositionError is returned by locators when no position can be produced.
type PositionError struct {
	Code    ErrorCode
	Message string
}

func (e *PositionError) Error() string {
	if e.Message == "" {
		return e.Code.String()
	}
	return e.Message
}

// Is matches any PositionError with the same code, so errors.Is(err,
// &PositionError{Code: Timeout}) works.
func (e *PositionError) Is(target error) bool {
	t, ok := target.(*PositionError)
	return ok && t.Code == e.Code
}

var (
	ErrPermissionDenied = &PositionError{Code: PermissionDenied}
	ErrUnavailable      = &PositionError{Code: PositionUnavailable}
	ErrTimeout          = &PositionError{Code: Timeout}
)

// toPositionError maps context and transport errors onto position errors.
func toPositionError(err error) error {
	var pe *PositionError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &pe):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return &PositionError{Code: Timeout, Message: "position request timed out"}
	default:
		return &PositionError{Code: PositionUnavailable, Message: err.Error()}
	}
}

// Update is one reading delivered by a watch.
type Update struct {
	Fix Fix
	Err error
}

// Locator is a source of positions.
type Locator interface {
	// CurrentPosition returns one fix, honoring opts.
	CurrentPosition(ctx context.Context, opts Options) (Fix, error)
	// Watch delivers fixes until ctx is done, then closes the channel.
	Watch(ctx context.Context) (<-chan Update, error)
}

// CurrentPosition runs a one-shot request with the timeout from opts applied,
// normalizing any failure to a *PositionError.
func CurrentPosition(ctx context.Context, l Locator, opts Options) (Fix, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	fix, err := l.CurrentPosition(ctx, opts)
	return fix, toPositionError(err)
}
