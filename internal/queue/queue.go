// Package queue provides the in-process work queue feeding the pipeline
// worker. It is unbounded and FIFO: any number of producers may enqueue
// concurrently, a single consumer drains items in arrival order.
//
// The queue is not persisted. Items still queued when the process dies are
// lost; the dedup store never records them, so they are picked up again on
// the next history window.
package queue

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrClosed is returned by Dequeue once the queue is closed and drained.
var ErrClosed = errors.New("queue closed")

// Seed is the unit of queued work: one link from one inbound message.
type Seed struct {
	MessageID int64
	ChatID    string
	URL       string
	Enqueued  time.Time
}

// Queue is an unbounded FIFO of pipeline seeds.
type Queue struct {
	mu     sync.Mutex
	items  []Seed
	signal chan struct{}
	closed bool
}

func New() *Queue {
	return &Queue{
		signal: make(chan struct{}, 1),
	}
}

// Enqueue appends a seed. It never blocks. Enqueue on a closed queue is a
// no-op and reports false.
func (q *Queue) Enqueue(seed Seed) bool {
	q.mu.Lock()

	if q.closed {
		q.mu.Unlock()

		return false
	}

	if seed.Enqueued.IsZero() {
		seed.Enqueued = time.Now()
	}

	q.items = append(q.items, seed)
	q.mu.Unlock()

	q.notify()

	return true
}

// Dequeue removes and returns the oldest seed, blocking until one is
// available, the queue is closed and empty, or ctx is canceled.
func (q *Queue) Dequeue(ctx context.Context) (Seed, error) {
	for {
		q.mu.Lock()

		if len(q.items) > 0 {
			seed := q.items[0]
			q.items = q.items[1:]
			remaining := len(q.items)
			q.mu.Unlock()

			if remaining > 0 {
				q.notify()
			}

			return seed, nil
		}

		closed := q.closed
		q.mu.Unlock()

		if closed {
			return Seed{}, ErrClosed
		}

		select {
		case <-ctx.Done():
			return Seed{}, ctx.Err()
		case <-q.signal:
		}
	}
}

// Close marks the queue closed. Queued items remain dequeueable; once
// drained, Dequeue returns ErrClosed.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	q.notify()
}

// Len reports the number of queued items.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.items)
}

func (q *Queue) notify() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}
