package event_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"go.jacobcolvin.com/hostprof/event"
)

func TestEmitterEmit(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		numListeners int
		want         []int
	}{
		"no listeners": {
			numListeners: 0,
			want:         nil,
		},
		"single listener": {
			numListeners: 1,
			want:         []int{0},
		},
		"listeners run in subscription order": {
			numListeners: 3,
			want:         []int{0, 1, 2},
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var (
				e   event.Emitter[string]
				got []int
			)

			for i := range tc.numListeners {
				e.Subscribe(func(v string) {
					assert.Equal(t, "changed", v)

					got = append(got, i)
				})
			}

			e.Emit("changed")

			assert.Equal(t, tc.want, got)
		})
	}
}

func TestEmitterDispose(t *testing.T) {
	t.Parallel()

	t.Run("stops delivery", func(t *testing.T) {
		t.Parallel()

		var (
			e     event.Emitter[int]
			calls int
		)

		dispose := e.Subscribe(func(int) { calls++ })

		e.Emit(1)
		dispose()
		e.Emit(2)

		assert.Equal(t, 1, calls)
		assert.Zero(t, e.Len())
	})

	t.Run("idempotent", func(t *testing.T) {
		t.Parallel()

		var e event.Emitter[int]

		keep := 0
		e.Subscribe(func(int) { keep++ })

		dispose := e.Subscribe(func(int) {})
		dispose()
		dispose() // must not remove the other listener
		dispose()

		e.Emit(1)

		assert.Equal(t, 1, keep)
		assert.Equal(t, 1, e.Len())
	})

	t.Run("dispose during emit skips later listener", func(t *testing.T) {
		t.Parallel()

		var (
			e           event.Emitter[int]
			disposeNext func()
			calledNext  bool
		)

		e.Subscribe(func(int) { disposeNext() })

		disposeNext = e.Subscribe(func(int) { calledNext = true })

		e.Emit(1)

		assert.False(t, calledNext)
		assert.Equal(t, 1, e.Len())
	})

	t.Run("subscribe during emit waits for next emit", func(t *testing.T) {
		t.Parallel()

		var (
			e     event.Emitter[int]
			inner int
		)

		e.Subscribe(func(int) {
			if e.Len() == 1 {
				e.Subscribe(func(int) { inner++ })
			}
		})

		e.Emit(1)
		assert.Zero(t, inner)

		e.Emit(2)
		assert.Equal(t, 1, inner)
	})
}

func TestEmitterConcurrency(t *testing.T) {
	t.Parallel()

	var (
		e  event.Emitter[int]
		wg sync.WaitGroup
	)

	for range 5 {
		wg.Go(func() {
			for range 50 {
				dispose := e.Subscribe(func(int) {})
				e.Emit(1)
				dispose()
			}
		})
	}

	wg.Wait()

	assert.Zero(t, e.Len())
}
