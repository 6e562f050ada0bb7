// Package session tracks the lifecycle of a profiling session running on a
// worker process.
//
// A [Controller] owns the session [State], the [Handle] of the active
// session and the last completed [Artifact]. It accepts [Controller.Start]
// and [Controller.Stop] requests, serializes them through a
// [loop.Executor], and publishes every accepted transition to listeners
// registered with [Controller.OnStateChanged].
//
// States only move along
//
//	Idle -> Starting -> Running -> Stopping -> Idle
//	            \-> Idle (start failed)
//
// Requests that do not fit the current state are ignored. Worker failures
// never reach the caller: they are handed to a [Reporter] and the controller
// settles back in [StateIdle].
//
// Typical wiring:
//
//	l := loop.New()
//	ctrl := session.NewController(worker, l,
//	    session.WithReporter(session.LogReporter{Logger: logger}),
//	)
//
//	ctrl.OnStateChanged(func(s session.State) {
//	    logger.Info("profiling state", slog.String("state", s.String()))
//	})
//
//	l.Post(ctrl.Start)
//	err := l.Run(ctx)
package session
