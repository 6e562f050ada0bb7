package session

import "fmt"

// State is the lifecycle state of a profiling session.
type State int

const (
	// StateIdle means no session exists. Initial state.
	StateIdle State = iota
	// StateStarting means a session was requested from the worker and has
	// not been acknowledged yet.
	StateStarting
	// StateRunning means the worker is profiling and a [Handle] is held.
	StateRunning
	// StateStopping means the session was asked to stop and its artifact
	// has not arrived yet.
	StateStopping
)

// States lists every [State] in declaration order.
var States = []State{StateIdle, StateStarting, StateRunning, StateStopping}

// String returns the lowercase name of s.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	}

	return fmt.Sprintf("state(%d)", int(s))
}

// CanTransition reports whether the controller may move from s to next.
func (s State) CanTransition(next State) bool {
	switch s {
	case StateIdle:
		return next == StateStarting
	case StateStarting:
		return next == StateRunning || next == StateIdle
	case StateRunning:
		return next == StateStopping
	case StateStopping:
		return next == StateIdle
	}

	return false
}
