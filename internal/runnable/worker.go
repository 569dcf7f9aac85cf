package runnable

import (
	"context"
	"sync"
	"time"

	"github.com/durin-robotics/durin/internal/monitoring"
)

const (
	// DefaultIdle is how long a worker sleeps after an iteration that found
	// no work, keeping the poll loop off the CPU without adding meaningful
	// latency to the data path.
	DefaultIdle = time.Millisecond

	// DefaultStopWait bounds how long Stop waits for a worker goroutine to
	// exit before abandoning it.
	DefaultStopWait = time.Second
)

// Worker runs a poll loop in its own goroutine until stopped. Each iteration
// calls step; a step that reports no work idles the loop briefly before the
// next attempt, so steps must never block. Faults in one worker cannot reach
// another worker's state except through the queues they explicitly share.
type Worker struct {
	name     string
	step     func() bool
	idle     time.Duration
	stopWait time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	startOnce sync.Once
	stopOnce  sync.Once
}

// NewWorker builds a worker around step. The name appears in log lines only.
func NewWorker(name string, step func() bool) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		name:     name,
		step:     step,
		idle:     DefaultIdle,
		stopWait: DefaultStopWait,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// SetIdle overrides the idle interval. Must be called before Start.
func (w *Worker) SetIdle(d time.Duration) {
	if d > 0 {
		w.idle = d
	}
}

// SetStopWait overrides the graceful-stop bound. Must be called before Start.
func (w *Worker) SetStopWait(d time.Duration) {
	if d > 0 {
		w.stopWait = d
	}
}

// Start launches the worker goroutine and returns immediately. Additional
// calls are no-ops.
func (w *Worker) Start() {
	w.startOnce.Do(func() {
		go w.run()
	})
}

func (w *Worker) run() {
	defer close(w.done)
	for {
		select {
		case <-w.ctx.Done():
			return
		default:
		}
		if !w.step() {
			select {
			case <-w.ctx.Done():
				return
			case <-time.After(w.idle):
			}
		}
	}
}

// Stop signals the worker to exit and waits up to the stop bound for the
// goroutine to finish. A worker stuck in a step is abandoned after the bound
// rather than blocking the caller. Safe to call more than once, and safe to
// call on a worker that was never started.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		w.cancel()
		w.startOnce.Do(func() { close(w.done) }) // never started: nothing to wait for
		select {
		case <-w.done:
		case <-time.After(w.stopWait):
			monitoring.Logf("runnable: worker %s did not stop within %v, abandoning", w.name, w.stopWait)
		}
	})
}

// Producer polls a source and pushes produced values into a queue. A full
// queue drops the value; backpressure is never propagated to the source.
type Producer[T any] struct {
	*Worker
}

// NewProducer builds a producer worker. produce performs one non-blocking
// poll of the source, returning false when nothing was available.
func NewProducer[T any](name string, q *Queue[T], produce func() (T, bool)) *Producer[T] {
	p := &Producer[T]{}
	p.Worker = NewWorker(name, func() bool {
		v, ok := produce()
		if !ok {
			return false
		}
		q.TryPut(v)
		return true
	})
	return p
}

// Consumer drains a queue and hands each item to a sink. An empty queue
// idles the loop; the sink runs on the worker goroutine.
type Consumer[T any] struct {
	*Worker
}

// NewConsumer builds a consumer worker around sink.
func NewConsumer[T any](name string, q *Queue[T], sink func(T)) *Consumer[T] {
	c := &Consumer[T]{}
	c.Worker = NewWorker(name, func() bool {
		v, ok := q.TryGet()
		if !ok {
			return false
		}
		sink(v)
		return true
	})
	return c
}
