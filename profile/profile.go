package profile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"runtime/pprof"
	"sync"
	"time"

	"github.com/google/uuid"

	"go.jacobcolvin.com/hostprof/session"
)

var (
	// ErrBusy indicates a session is already running on the host.
	ErrBusy = errors.New("profiling session already running")
	// ErrNotActive indicates a session that was already stopped.
	ErrNotActive = errors.New("profiling session not active")
	// ErrUnknownProfile indicates an unsupported snapshot profile name.
	ErrUnknownProfile = errors.New("unknown profile")
)

// Host profiles the current process. It runs at most one session at a time
// because the runtime supports a single CPU profile. Safe for concurrent
// use.
//
// Create instances with [Config.NewHost].
type Host struct {
	logger *slog.Logger
	active *Session
	Config
	mu sync.Mutex
}

// StartSession configures the runtime profiling rates and starts CPU
// profiling if enabled. It implements [session.Worker].
func (h *Host) StartSession(ctx context.Context) (session.Handle, error) {
	err := ctx.Err()
	if err != nil {
		return nil, err
	}

	err = h.Validate()
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.active != nil {
		return nil, ErrBusy
	}

	configureRates(h.MemProfileRate, h.BlockProfileRate, h.MutexProfileFraction)

	s := &Session{
		host:    h,
		id:      uuid.NewString(),
		started: time.Now(),
	}

	if h.CPU {
		s.cpu = &bytes.Buffer{}

		err = pprof.StartCPUProfile(s.cpu)
		if err != nil {
			return nil, fmt.Errorf("starting CPU profile: %w", err)
		}
	}

	h.active = s

	h.logger.Info("profiling session started",
		slog.String("id", s.id),
		slog.Bool("cpu", h.CPU),
		slog.Any("snapshots", h.Snapshots),
	)

	return s, nil
}

// Session is a running profiling session on a [Host]. It implements
// [session.Handle].
type Session struct {
	started time.Time
	host    *Host
	cpu     *bytes.Buffer
	id      string
}

// Stop stops CPU profiling and writes all configured snapshot profiles into
// the returned artifact. Profiling is stopped even when ctx is done; the
// snapshots are then skipped and the artifact holding the CPU profile is
// returned along with ctx's error.
func (s *Session) Stop(ctx context.Context) (*session.Artifact, error) {
	h := s.host

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.active != s {
		return nil, ErrNotActive
	}

	h.active = nil

	a := &session.Artifact{
		ID:        s.id,
		Host:      h.Name,
		StartedAt: s.started,
	}

	// Stop CPU profiling.
	if s.cpu != nil {
		pprof.StopCPUProfile()

		a.Profiles = append(a.Profiles, session.Profile{Name: "cpu", Data: s.cpu.Bytes()})
	}

	err := ctx.Err()
	if err != nil {
		a.StoppedAt = time.Now()

		return a, err
	}

	for _, name := range h.Snapshots {
		p, err := writeSnapshot(name)
		if err != nil {
			return nil, fmt.Errorf("write %s profile: %w", name, err)
		}

		a.Profiles = append(a.Profiles, p)
	}

	a.StoppedAt = time.Now()

	h.logger.Info("profiling session stopped",
		slog.String("id", s.id),
		slog.Duration("duration", a.Duration()),
		slog.Int("bytes", a.Size()),
	)

	return a, nil
}

// ratesMu guards the process-wide runtime profiling rates, which every host
// shares.
var ratesMu sync.Mutex

func configureRates(mem, block, mutex int) {
	ratesMu.Lock()
	defer ratesMu.Unlock()

	runtime.MemProfileRate = mem
	runtime.SetBlockProfileRate(block)
	runtime.SetMutexProfileFraction(mutex)
}

// writeSnapshot captures a named pprof profile in memory.
func writeSnapshot(name string) (session.Profile, error) {
	prof := pprof.Lookup(name)
	if prof == nil {
		return session.Profile{}, fmt.Errorf("%w: %s", ErrUnknownProfile, name)
	}

	var buf bytes.Buffer

	err := prof.WriteTo(&buf, 0)
	if err != nil {
		return session.Profile{}, err
	}

	return session.Profile{Name: name, Data: buf.Bytes()}, nil
}
