package viewer

import (
	"sync"
	"testing"
)

func TestQueueRunsInPostOrder(t *testing.T) {
	q := NewQueue(nil)
	var got []int
	for i := 0; i < 5; i++ {
		q.Post(func() { got = append(got, i) })
	}
	if n := q.Drain(); n != 5 {
		t.Fatalf("ran %d, want 5", n)
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("order=%v", got)
		}
	}
	if q.Drain() != 0 {
		t.Fatal("queue should be empty")
	}
}

func TestQueueRunsWorkPostedWhileDraining(t *testing.T) {
	q := NewQueue(nil)
	ran := false
	q.Post(func() { q.Post(func() { ran = true }) })
	if n := q.Drain(); n != 2 || !ran {
		t.Fatalf("ran %d nested=%v", n, ran)
	}
}

func TestQueueWakesWithoutBlocking(t *testing.T) {
	wake := make(chan struct{}, 1)
	q := NewQueue(wake)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Post(func() {})
		}()
	}
	wg.Wait()

	select {
	case <-wake:
	default:
		t.Fatal("expected a wake signal")
	}
	if q.Len() != 20 {
		t.Fatalf("pending=%d, want 20", q.Len())
	}
}
