// Package sessiontest provides a scripted [session.Worker] for tests.
package sessiontest

import (
	"context"
	"sync"
	"time"

	"go.jacobcolvin.com/hostprof/session"
)

// Worker is a [session.Worker] whose results are set by the test. Safe for
// concurrent use.
type Worker struct {
	startErr error
	stopErr  error
	artifact *session.Artifact
	handles  []*Handle
	mu       sync.Mutex
}

// NewWorker returns a [Worker] whose sessions succeed and stop with
// artifact.
func NewWorker(artifact *session.Artifact) *Worker {
	return &Worker{artifact: artifact}
}

// FailStart makes subsequent StartSession calls return err. A nil err
// restores success.
func (w *Worker) FailStart(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.startErr = err
}

// FailStop makes subsequent Handle.Stop calls return err. A nil err
// restores success.
func (w *Worker) FailStop(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.stopErr = err
}

// SetArtifact sets the artifact returned by subsequent stops.
func (w *Worker) SetArtifact(a *session.Artifact) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.artifact = a
}

// StartSession implements [session.Worker].
func (w *Worker) StartSession(ctx context.Context) (session.Handle, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.startErr != nil {
		return nil, w.startErr
	}

	err := ctx.Err()
	if err != nil {
		return nil, err
	}

	h := &Handle{worker: w}
	w.handles = append(w.handles, h)

	return h, nil
}

// Handles returns every handle handed out so far.
func (w *Worker) Handles() []*Handle {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]*Handle, len(w.handles))
	copy(out, w.handles)

	return out
}

// Handle is the [session.Handle] returned by [Worker].
type Handle struct {
	worker *Worker
	stops  int
}

// Stop implements [session.Handle].
func (h *Handle) Stop(_ context.Context) (*session.Artifact, error) {
	h.worker.mu.Lock()
	defer h.worker.mu.Unlock()

	h.stops++

	if h.worker.stopErr != nil {
		return nil, h.worker.stopErr
	}

	return h.worker.artifact, nil
}

// Stops returns how often Stop was called on h.
func (h *Handle) Stops() int {
	h.worker.mu.Lock()
	defer h.worker.mu.Unlock()

	return h.stops
}

// Artifact builds an artifact with a single CPU profile of the given data.
func Artifact(id string, data string) *session.Artifact {
	start := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	return &session.Artifact{
		ID:        id,
		Host:      "test",
		StartedAt: start,
		StoppedAt: start.Add(3 * time.Second),
		Profiles: []session.Profile{
			{Name: "cpu", Data: []byte(data)},
		},
	}
}
