// Package loop provides a single-threaded event queue.
//
// Work posted to a [Loop] runs one callback at a time, in posting order, on
// whichever goroutine drives the loop via [Loop.Run] or [Loop.Drain]. State
// that is only touched from loop callbacks therefore needs no locking.
//
// Blocking work is started with [Loop.Spawn] (or the typed [Submit]): the
// work runs on its own goroutine and its completion is posted back onto the
// loop, so completions never overlap with other loop callbacks:
//
//	l := loop.New()
//
//	loop.Submit(l, fetch, func(v Value, err error) {
//	    // Runs on the loop.
//	})
//
//	err := l.Run(ctx)
package loop

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrClosed is returned by [Loop.Run] after [Loop.Close].
var ErrClosed = errors.New("loop closed")

// Executor schedules callbacks onto a single logical thread.
type Executor interface {
	// Post schedules fn to run on the executor's thread. Safe to call from
	// any goroutine, including the executor's own thread.
	Post(fn func())
	// Spawn runs work on a separate goroutine and schedules the completion
	// callback it returns on the executor's thread.
	Spawn(work func() func())
}

// Submit runs work off-thread via x and delivers its result to done on the
// executor's thread.
func Submit[T any](x Executor, work func() (T, error), done func(T, error)) {
	x.Spawn(func() func() {
		v, err := work()

		return func() { done(v, err) }
	})
}

// Loop is an unbounded FIFO [Executor].
//
// Create instances with [New].
type Loop struct {
	wake     chan struct{}
	done     chan struct{}
	queue    []func()
	inflight atomic.Int64
	mu       sync.Mutex
	closed   bool
}

// New creates an empty [Loop].
func New() *Loop {
	return &Loop{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Post appends fn to the queue. Posting to a closed loop is a no-op.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}

	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Spawn runs work on a new goroutine. The callback it returns is posted to
// the loop and counts as in flight until it has run.
func (l *Loop) Spawn(work func() func()) {
	l.inflight.Add(1)

	go func() {
		cb := work()

		l.Post(func() {
			l.inflight.Add(-1)
			cb()
		})
	}()
}

// Pending reports the number of queued callbacks plus spawned work whose
// completion has not run yet.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.queue) + int(l.inflight.Load())
}

// Run processes callbacks until ctx is done or the loop is closed.
func (l *Loop) Run(ctx context.Context) error {
	for {
		for {
			fn, ok := l.pop()
			if !ok {
				break
			}

			fn()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.done:
			return ErrClosed
		case <-l.wake:
		}
	}
}

// Drain processes callbacks on the calling goroutine until the queue is
// empty and no spawned work is in flight. Spawned work that never returns
// blocks Drain forever.
func (l *Loop) Drain() {
	for {
		fn, ok := l.pop()
		if ok {
			fn()
			continue
		}

		if l.inflight.Load() == 0 {
			return
		}

		select {
		case <-l.wake:
		case <-l.done:
			return
		}
	}
}

// Close stops [Loop.Run] and discards queued callbacks. Idempotent.
func (l *Loop) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}

	l.closed = true
	l.queue = nil
	close(l.done)
}

func (l *Loop) pop() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.queue) == 0 {
		return nil, false
	}

	fn := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]

	return fn, true
}
