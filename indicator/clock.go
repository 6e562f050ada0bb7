package indicator

import "time"

// Clock supplies the current time and recurring timers.
type Clock interface {
	Now() time.Time
	// Every calls fn every d until the returned function is called. fn may
	// run on any goroutine. The returned function is idempotent.
	Every(d time.Duration, fn func()) (stop func())
}

// SystemClock is a [Clock] backed by the time package.
type SystemClock struct{}

// Now returns [time.Now].
func (SystemClock) Now() time.Time {
	return time.Now()
}

// Every starts a [time.Ticker] and calls fn from its own goroutine on each
// tick.
func (SystemClock) Every(d time.Duration, fn func()) func() {
	ticker := time.NewTicker(d)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				fn()
			}
		}
	}()

	var stopped bool

	return func() {
		if stopped {
			return
		}

		stopped = true

		ticker.Stop()
		close(done)
	}
}
