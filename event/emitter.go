// Package event provides synchronous change notifications.
//
// An [Emitter] holds a list of listeners. [Emitter.Subscribe] registers a
// listener and returns a function that removes it again:
//
//	var changed event.Emitter[State]
//
//	dispose := changed.Subscribe(func(s State) {
//	    fmt.Println("state is now", s)
//	})
//	defer dispose()
//
//	changed.Emit(StateRunning)
//
// Listeners run on the goroutine that calls [Emitter.Emit], in subscription
// order, so an owner that updates its fields before emitting guarantees that
// listeners observe the updated values.
package event

import "sync"

// Emitter fans a value out to registered listeners.
//
// The zero value is ready to use. Safe for concurrent use, although
// listeners themselves are invoked without the internal lock held, so a
// listener may subscribe or dispose while it runs.
type Emitter[T any] struct {
	listeners []*listener[T]
	mu        sync.Mutex
}

type listener[T any] struct {
	fn       func(T)
	disposed bool
}

// Subscribe registers fn and returns a function that unregisters it.
// The returned function is idempotent.
func (e *Emitter[T]) Subscribe(fn func(T)) func() {
	l := &listener[T]{fn: fn}

	e.mu.Lock()
	e.listeners = append(e.listeners, l)
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()

		if l.disposed {
			return
		}

		l.disposed = true

		alive := e.listeners[:0]
		for _, other := range e.listeners {
			if other != l {
				alive = append(alive, other)
			}
		}
		// Clear trailing references for GC.
		for i := len(alive); i < len(e.listeners); i++ {
			e.listeners[i] = nil
		}

		e.listeners = alive
	}
}

// Emit calls every listener registered at the time of the call with v.
// A listener disposed by an earlier listener during the same Emit is
// skipped.
func (e *Emitter[T]) Emit(v T) {
	e.mu.Lock()
	snapshot := make([]*listener[T], len(e.listeners))
	copy(snapshot, e.listeners)
	e.mu.Unlock()

	for _, l := range snapshot {
		e.mu.Lock()
		disposed := l.disposed
		e.mu.Unlock()

		if disposed {
			continue
		}

		l.fn(v)
	}
}

// Len returns the number of registered listeners.
func (e *Emitter[T]) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return len(e.listeners)
}
