package viewer

import "sync"

// Queue hands continuations from background goroutines to the UI goroutine.
// Post may be called from any goroutine; Drain runs everything posted so far,
// in order, on the caller's goroutine. Each continuation runs to completion
// before the next starts.
type Queue struct {
	mu      sync.Mutex
	pending []func()
	wake    chan struct{}
}

// NewQueue returns a queue that signals wake (without blocking) whenever
// work is posted. wake may be nil.
func NewQueue(wake chan struct{}) *Queue {
	return &Queue{wake: wake}
}

func (q *Queue) Post(fn func()) {
	q.mu.Lock()
	q.pending = append(q.pending, fn)
	q.mu.Unlock()

	if q.wake == nil {
		return
	}
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Drain runs the posted continuations and reports how many ran.
// Continuations posted while draining run in the same call.
func (q *Queue) Drain() int {
	n := 0
	for {
		q.mu.Lock()
		fns := q.pending
		q.pending = nil
		q.mu.Unlock()
		if len(fns) == 0 {
			return n
		}
		for _, fn := range fns {
			fn()
			n++
		}
	}
}

// Len is the number of continuations waiting to run.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
