package geolocation

import (
	"context"
	"log"
	"time"
)

// State of a Tracker.
type State int

const (
	Unstarted State = iota
	AwaitingFirstFix
	Tracking
	Failed
)

func (s State) String() string {
	switch s {
	case Unstarted:
		return "unstarted"
	case AwaitingFirstFix:
		return "awaiting first fix"
	case Tracking:
		return "tracking"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// InitialOptions are used for the first one-shot request: any cached
// position is acceptable, but the answer must come quickly.
var InitialOptions = Options{MaxAge: Unbounded, Timeout: 2 * time.Second}

// Handler receives tracker results on the UI goroutine.
type Handler interface {
	// HandleFix is called for every fix; first is true only for the fix
	// that moved the tracker into Tracking.
	HandleFix(fix Fix, first bool)
	// HandleError is called for every failed reading. failed is true when
	// the error ended the wait for the first fix.
	HandleError(err error, failed bool)
}

// Tracker runs the position state machine:
//
//	Unstarted -> AwaitingFirstFix -> Tracking
//	                              -> Failed
//
// Locator calls run on their own goroutines; their results are handed to
// post, which must run the continuation on the UI goroutine. State is only
// read or written from continuations, so no locking is needed.
type Tracker struct {
	locator Locator
	handler Handler
	post    func(func())
	opts    Options

	state    State
	watching bool
	ctx      context.Context
}

func NewTracker(locator Locator, handler Handler, post func(func())) *Tracker {
	return &Tracker{
		locator: locator,
		handler: handler,
		post:    post,
		opts:    InitialOptions,
	}
}

func (t *Tracker) State() State { return t.state }

// Watching reports whether the continuous watch has been started.
func (t *Tracker) Watching() bool { return t.watching }

// Start requests the first position. Calling Start more than once is a no-op.
// ctx bounds the lifetime of the watch.
func (t *Tracker) Start(ctx context.Context) {
	if t.state != Unstarted {
		return
	}
	t.ctx = ctx
	t.state = AwaitingFirstFix
	go func() {
		fix, err := CurrentPosition(ctx, t.locator, t.opts)
		t.post(func() { t.deliver(fix, err) })
	}()
}

func (t *Tracker) deliver(fix Fix, err error) {
	if err != nil {
		failed := t.state == AwaitingFirstFix
		if failed {
			t.state = Failed
		}
		log.Printf("Could not get location: %v", err)
		t.handler.HandleError(err, failed)
		return
	}

	first := t.state != Tracking
	t.state = Tracking
	t.handler.HandleFix(fix, first)

	if !t.watching {
		t.watching = true
		t.startWatch()
	}
}

func (t *Tracker) startWatch() {
	updates, err := t.locator.Watch(t.ctx)
	if err != nil {
		log.Printf("Could not watch location: %v", err)
		return
	}
	go func() {
		for u := range updates {
			t.post(func() { t.deliver(u.Fix, toPositionError(u.Err)) })
		}
	}()
}
