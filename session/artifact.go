package session

import (
	"context"
	"time"
)

// Worker is the profiling capability of the worker process.
type Worker interface {
	// StartSession begins profiling and returns a handle for the new
	// session.
	StartSession(ctx context.Context) (Handle, error)
}

// Handle represents one in-progress profiling run.
type Handle interface {
	// Stop ends the run and returns its artifact. Stop is called at most
	// once per handle.
	Stop(ctx context.Context) (*Artifact, error)
}

// Artifact is the result of a completed profiling run. Artifacts are never
// modified after they are published.
type Artifact struct {
	StartedAt time.Time
	StoppedAt time.Time
	ID        string
	Host      string
	Profiles  []Profile
}

// Profile is one named profile captured during a run, in pprof format.
type Profile struct {
	Name string
	Data []byte
}

// Duration returns how long the run lasted.
func (a *Artifact) Duration() time.Duration {
	return a.StoppedAt.Sub(a.StartedAt)
}

// Size returns the total size of all profiles in bytes.
func (a *Artifact) Size() int {
	n := 0
	for _, p := range a.Profiles {
		n += len(p.Data)
	}

	return n
}
