// Package indicator shows a live "profiling in progress" status element.
//
// An [Indicator] renders onto a [Surface]. While visible it redraws its
// label once per second with the number of seconds since it was shown, and
// it forwards clicks to the handler given to [Indicator.Show]. [Bind]
// drives an Indicator from a [session.Controller] so that it is visible
// exactly while a session is running.
package indicator

import (
	"fmt"
	"math"
	"time"

	"go.jacobcolvin.com/hostprof/loop"
)

// Label is the indicator text without elapsed time.
const Label = "Profiling extension host"

// DefaultInterval is the label refresh interval.
const DefaultInterval = time.Second

// Surface is the presentation element an [Indicator] draws on.
type Surface interface {
	SetVisible(visible bool)
	SetText(text string)
}

// Indicator is a status element with a periodically refreshed label.
//
// Methods must be called on the thread of the [loop.Executor] given to
// [New]; timer ticks are posted onto it.
//
// Create instances with [New].
type Indicator struct {
	surface  Surface
	clock    Clock
	exec     loop.Executor
	origin   time.Time
	stop     func()
	onClick  func()
	interval time.Duration
	timerGen uint64
	visible  bool
}

// Option configures an [Indicator].
type Option func(*Indicator)

// WithClock sets the clock. The default is [SystemClock].
func WithClock(c Clock) Option {
	return func(i *Indicator) {
		i.clock = c
	}
}

// WithInterval sets the label refresh interval. The default is
// [DefaultInterval]. Non-positive values keep the default.
func WithInterval(d time.Duration) Option {
	return func(i *Indicator) {
		if d > 0 {
			i.interval = d
		}
	}
}

// New creates a hidden [Indicator] and attaches it to surface.
func New(surface Surface, exec loop.Executor, opts ...Option) *Indicator {
	i := &Indicator{
		surface:  surface,
		exec:     exec,
		clock:    SystemClock{},
		interval: DefaultInterval,
	}
	for _, opt := range opts {
		opt(i)
	}

	i.surface.SetVisible(false)
	i.surface.SetText(i.Label())

	return i
}

// Visible reports whether the indicator is shown.
func (i *Indicator) Visible() bool {
	return i.visible
}

// Label returns the current label text.
func (i *Indicator) Label() string {
	if i.origin.IsZero() {
		return Label
	}

	elapsed := i.clock.Now().Sub(i.origin)

	return fmt.Sprintf("%s (%d sec)", Label, int64(math.Round(elapsed.Seconds())))
}

// Show makes the indicator visible and sets the click handler. Showing an
// already visible indicator only replaces the handler; the elapsed time
// keeps counting from the first Show.
func (i *Indicator) Show(onClick func()) {
	i.onClick = onClick

	if i.visible {
		return
	}

	i.visible = true
	i.origin = i.clock.Now()

	i.timerGen++
	gen := i.timerGen

	i.stopTimer()
	i.stop = i.clock.Every(i.interval, func() {
		i.exec.Post(func() {
			// Ticks posted before a Hide belong to a dead timer.
			if gen != i.timerGen || !i.visible {
				return
			}

			i.redraw()
		})
	})

	i.surface.SetVisible(true)
	i.redraw()
}

// Hide makes the indicator invisible, drops the click handler and cancels
// the refresh timer. Idempotent.
func (i *Indicator) Hide() {
	i.onClick = nil
	i.visible = false
	i.origin = time.Time{}
	i.timerGen++

	i.stopTimer()

	i.surface.SetVisible(false)
	i.redraw()
}

// Click invokes the current click handler, if any.
func (i *Indicator) Click() {
	if i.onClick == nil {
		return
	}

	i.onClick()
}

func (i *Indicator) stopTimer() {
	if i.stop == nil {
		return
	}

	i.stop()
	i.stop = nil
}

func (i *Indicator) redraw() {
	i.surface.SetText(i.Label())
}
