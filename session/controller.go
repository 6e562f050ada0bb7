package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.jacobcolvin.com/hostprof/event"
	"go.jacobcolvin.com/hostprof/loop"
)

var (
	// ErrStart indicates the worker could not begin profiling.
	ErrStart = errors.New("start profiling session")
	// ErrStop indicates the worker could not produce an artifact.
	ErrStop = errors.New("stop profiling session")
	// ErrNoHandle indicates a worker that started without returning a handle.
	ErrNoHandle = errors.New("worker returned no session")
	// ErrNoArtifact indicates a worker that stopped without returning an
	// artifact.
	ErrNoArtifact = errors.New("worker returned no artifact")
	// ErrInvalidTransition indicates a transition outside the state graph.
	ErrInvalidTransition = errors.New("invalid state transition")
)

// Controller is the profiling session state machine.
//
// All methods, and all listeners registered on a Controller, run on the
// thread of the [loop.Executor] given to [NewController]. Calls from other
// goroutines must go through [loop.Executor.Post].
//
// Create instances with [NewController].
type Controller struct {
	ctx             context.Context //nolint:containedctx // Scopes worker calls for the controller's lifetime.
	worker          Worker
	exec            loop.Executor
	reporter        Reporter
	logger          *slog.Logger
	active          Handle
	last            *Artifact
	stateChanged    event.Emitter[State]
	artifactChanged event.Emitter[*Artifact]
	state           State
}

// Option configures a [Controller].
type Option func(*Controller)

// WithReporter sets the [Reporter] for recovered worker errors. The default
// is a [LogReporter] using the controller's logger.
func WithReporter(r Reporter) Option {
	return func(c *Controller) {
		c.reporter = r
	}
}

// WithLogger sets the logger. The default is [slog.Default].
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = l
	}
}

// WithContext sets the context passed to worker calls. The default is
// [context.Background].
func WithContext(ctx context.Context) Option {
	return func(c *Controller) {
		c.ctx = ctx
	}
}

// NewController creates an idle [Controller] that profiles worker and runs
// completions on exec.
func NewController(worker Worker, exec loop.Executor, opts ...Option) *Controller {
	c := &Controller{
		ctx:    context.Background(),
		worker: worker,
		exec:   exec,
		logger: slog.Default(),
		state:  StateIdle,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.logger = c.logger.With(slog.String("component", "session"))
	if c.reporter == nil {
		c.reporter = LogReporter{Logger: c.logger}
	}

	return c
}

// State returns the current state.
func (c *Controller) State() State {
	return c.state
}

// Active reports whether a session handle is held.
func (c *Controller) Active() bool {
	return c.active != nil
}

// LastArtifact returns the last completed artifact, or nil.
func (c *Controller) LastArtifact() *Artifact {
	return c.last
}

// ClearLastArtifact drops the last artifact. Listeners are notified even
// when there was nothing to drop.
func (c *Controller) ClearLastArtifact() {
	c.setArtifact(nil)
}

// OnStateChanged registers fn to run after every accepted transition and
// returns a function that unregisters it.
func (c *Controller) OnStateChanged(fn func(State)) func() {
	return c.stateChanged.Subscribe(fn)
}

// OnLastArtifactChanged registers fn to run whenever the last artifact is
// replaced and returns a function that unregisters it.
func (c *Controller) OnLastArtifactChanged(fn func(*Artifact)) func() {
	return c.artifactChanged.Subscribe(fn)
}

// Start requests a new session from the worker. Ignored unless the
// controller is idle.
func (c *Controller) Start() {
	if c.state != StateIdle {
		c.logger.Debug("ignoring start", slog.String("state", c.state.String()))
		return
	}

	c.setState(StateStarting)

	loop.Submit(c.exec, func() (Handle, error) {
		return c.worker.StartSession(c.ctx)
	}, c.finishStart)
}

func (c *Controller) finishStart(h Handle, err error) {
	if err == nil && h == nil {
		err = ErrNoHandle
	}

	if err != nil {
		c.reporter.Report(fmt.Errorf("%w: %w", ErrStart, err))
		c.setState(StateIdle)

		return
	}

	c.active = h
	c.setState(StateRunning)
}

// Stop ends the running session and collects its artifact. Ignored unless
// the controller is running.
func (c *Controller) Stop() {
	if c.state != StateRunning {
		c.logger.Debug("ignoring stop", slog.String("state", c.state.String()))
		return
	}

	// Detach the handle before stopping it so it can only be stopped once.
	h := c.active
	c.active = nil
	c.setState(StateStopping)

	loop.Submit(c.exec, func() (*Artifact, error) {
		return h.Stop(c.ctx)
	}, c.finishStop)
}

func (c *Controller) finishStop(a *Artifact, err error) {
	if err == nil && a == nil {
		err = ErrNoArtifact
	}

	if err != nil {
		c.reporter.Report(fmt.Errorf("%w: %w", ErrStop, err))
		c.setState(StateIdle)

		return
	}

	c.setArtifact(a)
	c.setState(StateIdle)
}

func (c *Controller) setState(next State) {
	if !c.state.CanTransition(next) {
		panic(fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, c.state, next))
	}

	c.logger.Debug("state changed",
		slog.String("from", c.state.String()),
		slog.String("to", next.String()),
	)

	c.state = next
	c.stateChanged.Emit(next)
}

func (c *Controller) setArtifact(a *Artifact) {
	c.last = a
	c.artifactChanged.Emit(a)
}
