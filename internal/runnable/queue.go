// Package runnable provides the bounded queues and worker loops that carry
// data between the robot links and the rest of the host process. Queues are
// fixed-capacity and drop on overflow: the telemetry path prefers fresh data
// over complete data, so a saturated queue sheds load instead of blocking
// its producer.
package runnable

import (
	"sync"
	"time"
)

// Queue is a fixed-capacity FIFO channel between a producer and a consumer.
// Capacity is set at construction and never changes. All operations are
// non-blocking: a put against a full queue drops the value, a get against an
// empty queue reports absence. Close is idempotent and safe to call while
// puts are in flight.
type Queue[T any] struct {
	ch     chan T
	mu     sync.RWMutex
	closed bool
}

// NewQueue returns a queue holding at most capacity items. Capacity must be
// at least 1.
func NewQueue[T any](capacity int) *Queue[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue[T]{ch: make(chan T, capacity)}
}

// TryPut enqueues v if there is room. It returns false when the queue is
// full or closed; the value is dropped in either case.
func (q *Queue[T]) TryPut(v T) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return false
	}
	select {
	case q.ch <- v:
		return true
	default:
		return false
	}
}

// PutTimeout enqueues v, waiting up to d for room. A non-positive d behaves
// like TryPut. Returns false when the value was dropped.
func (q *Queue[T]) PutTimeout(v T, d time.Duration) bool {
	if d <= 0 {
		return q.TryPut(v)
	}
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return false
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case q.ch <- v:
		return true
	case <-t.C:
		return false
	}
}

// TryGet dequeues the oldest item. It returns the zero value and false when
// the queue is empty. Items enqueued before Close remain readable after it.
func (q *Queue[T]) TryGet() (T, bool) {
	select {
	case v, ok := <-q.ch:
		if !ok {
			var zero T
			return zero, false
		}
		return v, true
	default:
		var zero T
		return zero, false
	}
}

// Len reports the number of buffered items.
func (q *Queue[T]) Len() int { return len(q.ch) }

// Cap reports the fixed capacity.
func (q *Queue[T]) Cap() int { return cap(q.ch) }

// Close marks the queue closed. Subsequent puts are dropped; buffered items
// can still be drained. Calling Close more than once is a no-op.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.ch)
}
