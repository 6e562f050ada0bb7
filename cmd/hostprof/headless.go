package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.jacobcolvin.com/hostprof/session"
)

// ErrNoProfile indicates a recording that ended without an artifact.
var ErrNoProfile = errors.New("no profile recorded")

// logSurface is the headless indicator: it logs visibility changes and
// label updates.
type logSurface struct {
	logger *slog.Logger
}

func (s logSurface) SetVisible(visible bool) {
	s.logger.Debug("indicator", slog.Bool("visible", visible))
}

func (s logSurface) SetText(text string) {
	s.logger.Debug(text)
}

// recordHeadless runs one session: it starts profiling, waits for d (or
// until ctx is done when d is zero), then clicks the indicator, which stops
// the session and opens the results.
func recordHeadless(ctx context.Context, a *app, d time.Duration) error {
	running := make(chan struct{})
	finished := make(chan struct{})

	var sawRunning, sawIdle bool

	a.onState(func(s session.State) {
		switch {
		case s == session.StateRunning && !sawRunning:
			sawRunning = true

			close(running)
		case s == session.StateIdle && !sawIdle:
			sawIdle = true

			close(finished)
		}
	})

	loopCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loopDone := make(chan error, 1)

	go func() {
		loopDone <- a.loop.Run(loopCtx)
	}()

	defer func() {
		cancel()
		<-loopDone
		a.close()
	}()

	a.loop.Post(a.ctrl.Start)

	select {
	case <-running:
	case <-finished:
		return a.noProfile()
	case <-ctx.Done():
		// A start in flight still completes. Stop the session if it came up.
		select {
		case <-running:
		case <-finished:
			return ctx.Err()
		}
	}

	a.logger.Info("recording, press ctrl+c to stop", slog.Duration("duration", d))

	if d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-ctx.Done():
		}
	} else {
		<-ctx.Done()
	}

	a.loop.Post(a.indicator.Click)

	<-finished

	if a.view.Shown() == 0 {
		return a.noProfile()
	}

	return nil
}

func (a *app) noProfile() error {
	if a.lastErr == nil {
		return ErrNoProfile
	}

	return fmt.Errorf("%w: %w", ErrNoProfile, a.lastErr)
}
