package main

import (
	"context"
	"io"
	"log/slog"

	"go.jacobcolvin.com/hostprof/indicator"
	"go.jacobcolvin.com/hostprof/loop"
	"go.jacobcolvin.com/hostprof/metrics"
	"go.jacobcolvin.com/hostprof/results"
	"go.jacobcolvin.com/hostprof/session"
)

// app wires a controller, its indicator, and its results view onto one
// event loop. Everything except loop.Post runs on the loop thread.
type app struct {
	loop      *loop.Loop
	ctrl      *session.Controller
	indicator *indicator.Indicator
	view      *results.View
	metrics   *metrics.Collector
	logger    *slog.Logger
	lastErr   error
	disposes  []func()
}

// newApp builds the app. It must be called before the loop runs.
func newApp(
	ctx context.Context,
	worker session.Worker,
	surface indicator.Surface,
	out io.Writer,
	logger *slog.Logger,
	opts ...indicator.Option,
) *app {
	a := &app{
		loop:    loop.New(),
		metrics: metrics.NewCollector(),
		logger:  logger,
	}

	reporter := a.metrics.Reporter(session.ReporterFunc(func(err error) {
		a.lastErr = err
		session.LogReporter{Logger: logger}.Report(err)
	}))

	a.ctrl = session.NewController(worker, a.loop,
		session.WithContext(ctx),
		session.WithLogger(logger),
		session.WithReporter(reporter),
	)
	a.indicator = indicator.New(surface, a.loop, opts...)
	a.view = results.NewView(a.ctrl, out, logger)

	a.disposes = append(a.disposes,
		a.metrics.Observe(a.ctrl),
		indicator.Bind(a.ctrl, a.indicator, a.view),
		a.view.Close,
	)

	return a
}

// onState registers fn for state changes until the app closes.
func (a *app) onState(fn func(session.State)) {
	a.disposes = append(a.disposes, a.ctrl.OnStateChanged(fn))
}

// onArtifact registers fn for artifact changes until the app closes.
func (a *app) onArtifact(fn func(*session.Artifact)) {
	a.disposes = append(a.disposes, a.ctrl.OnLastArtifactChanged(fn))
}

// close detaches every listener, hides the indicator, and stops the loop.
// It must run on the loop thread or after the loop has returned.
func (a *app) close() {
	for i := len(a.disposes) - 1; i >= 0; i-- {
		a.disposes[i]()
	}

	a.disposes = nil
	a.loop.Close()
}
