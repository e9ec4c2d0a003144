// Package worker runs tile loads on a bounded number of goroutines.
package worker

import (
	"context"
	"log"
	"time"
)

// DefaultTimeout bounds a single task when the pool is built with a zero timeout.
const DefaultTimeout = 10 * time.Second

type Pool struct {
	workers chan struct{}
	tasks   chan Task
	quit    chan struct{}
	timeout time.Duration
}

type Task struct {
	Ctx  context.Context
	Name string
	Work func(ctx context.Context) error
}

func NewPool(maxWorkers int, timeout time.Duration) *Pool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	p := &Pool{
		workers: make(chan struct{}, maxWorkers),
		tasks:   make(chan Task, 100),
		quit:    make(chan struct{}),
		timeout: timeout,
	}

	go p.dispatcher()
	return p
}

func (p *Pool) dispatcher() {
	for {
		select {
		case <-p.quit:
			return
		case task := <-p.tasks:
			select {
			case p.workers <- struct{}{}:
				go p.run(task)
			case <-p.quit:
				return
			}
		}
	}
}

func (p *Pool) run(task Task) {
	defer func() { <-p.workers }()

	parent := task.Ctx
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, p.timeout)
	defer cancel()

	if err := task.Work(ctx); err != nil {
		log.Printf("worker: task %s failed: %v", task.Name, err)
	}
}

// Submit queues a task. When the queue is full the task is retried shortly
// from a separate goroutine so the caller never blocks.
func (p *Pool) Submit(task Task) {
	select {
	case <-p.quit:
		return
	default:
	}
	select {
	case p.tasks <- task:
	default:
		go func() {
			select {
			case <-p.quit:
			case <-time.After(100 * time.Millisecond):
				p.Submit(task)
			}
		}()
	}
}

func (p *Pool) Shutdown() {
	close(p.quit)
}
