// Package results displays the outcome of a profiling session.
//
// A [View] is the results opener handed to [indicator.Bind]. Opening it
// right after a stop request waits for the artifact the stop produces and
// then writes a YAML [Summary] of it.
package results

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/goccy/go-yaml"

	"go.jacobcolvin.com/hostprof/session"
)

// ErrRender indicates a summary could not be written.
var ErrRender = errors.New("render results")

// Summary describes an artifact without its profile data.
type Summary struct {
	ID         string           `yaml:"id"`
	Host       string           `yaml:"host"`
	Started    string           `yaml:"started"`
	Duration   string           `yaml:"duration"`
	Profiles   []ProfileSummary `yaml:"profiles"`
	TotalBytes int              `yaml:"totalBytes"`
}

// ProfileSummary describes one profile of an artifact.
type ProfileSummary struct {
	Name  string `yaml:"name"`
	Bytes int    `yaml:"bytes"`
}

// Summarize builds the [Summary] of a.
func Summarize(a *session.Artifact) Summary {
	s := Summary{
		ID:         a.ID,
		Host:       a.Host,
		Started:    a.StartedAt.UTC().Format(time.RFC3339),
		Duration:   a.Duration().Round(time.Millisecond).String(),
		TotalBytes: a.Size(),
		Profiles:   make([]ProfileSummary, 0, len(a.Profiles)),
	}

	for _, p := range a.Profiles {
		s.Profiles = append(s.Profiles, ProfileSummary{Name: p.Name, Bytes: len(p.Data)})
	}

	return s
}

// Render writes the YAML summary of a to w.
func Render(w io.Writer, a *session.Artifact) error {
	out, err := yaml.MarshalWithOptions(Summarize(a), yaml.IndentSequence(true))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRender, err)
	}

	_, err = w.Write(out)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRender, err)
	}

	return nil
}

// View renders the artifact of the most recent session when opened.
//
// Methods must be called on the controller's executor thread.
//
// Create instances with [NewView].
type View struct {
	w        io.Writer
	ctrl     *session.Controller
	logger   *slog.Logger
	disposes []func()
	shown    int
	open     bool
}

// NewView creates a closed [View] that writes summaries to w.
func NewView(ctrl *session.Controller, w io.Writer, logger *slog.Logger) *View {
	if logger == nil {
		logger = slog.Default()
	}

	v := &View{
		w:      w,
		ctrl:   ctrl,
		logger: logger.With(slog.String("component", "results")),
	}

	v.disposes = append(v.disposes,
		ctrl.OnLastArtifactChanged(v.artifactChanged),
		ctrl.OnStateChanged(v.stateChanged),
	)

	return v
}

// OpenResults opens the view. If no stop is in progress and an artifact
// exists it is shown immediately; otherwise the view waits for the stop to
// finish.
func (v *View) OpenResults() {
	if v.ctrl.State() == session.StateIdle {
		a := v.ctrl.LastArtifact()
		if a == nil {
			v.logger.Info("no profile to show")
			return
		}

		v.show(a)

		return
	}

	v.open = true
}

// Shown returns how many summaries were written.
func (v *View) Shown() int {
	return v.shown
}

// Close detaches the view from the controller. Idempotent.
func (v *View) Close() {
	for _, dispose := range v.disposes {
		dispose()
	}

	v.disposes = nil
	v.open = false
}

func (v *View) artifactChanged(a *session.Artifact) {
	if !v.open || a == nil {
		return
	}

	v.open = false
	v.show(a)
}

func (v *View) stateChanged(s session.State) {
	// The artifact is published before the controller returns to idle, so
	// a view still open here belongs to a stop that failed.
	if !v.open || s != session.StateIdle {
		return
	}

	v.open = false
	v.logger.Warn("profiling session ended without a profile")
}

func (v *View) show(a *session.Artifact) {
	err := Render(v.w, a)
	if err != nil {
		v.logger.Error("show results", slog.Any("err", err))
		return
	}

	v.shown++
}
