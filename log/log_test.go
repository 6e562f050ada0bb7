package log_test

import (
	"bytes"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.jacobcolvin.com/hostprof/log"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		err   error
		input string
		want  log.Level
	}{
		"lower":   {input: "debug", want: log.LevelDebug},
		"upper":   {input: "ERROR", want: log.LevelError},
		"warning": {input: "WARNING", want: log.LevelWarn},
		"unknown": {input: "loud", err: log.ErrUnknownLogLevel},
		"empty":   {input: "", err: log.ErrUnknownLogLevel},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := log.ParseLevel(tc.input)
			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		err   error
		input string
		want  log.Format
	}{
		"text":    {input: "Text", want: log.FormatText},
		"logfmt":  {input: "logfmt", want: log.FormatLogfmt},
		"unknown": {input: "xml", err: log.ErrUnknownLogFormat},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := log.ParseFormat(tc.input)
			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestConfig_RegisterFlags(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		err        error
		flags      log.Flags
		args       []string
		wantLevel  log.Level
		wantFormat log.Format
	}{
		"defaults": {
			flags:      log.DefaultFlags(),
			wantLevel:  log.LevelInfo,
			wantFormat: log.FormatText,
		},
		"set": {
			flags:      log.DefaultFlags(),
			args:       []string{"--log-level=Warning", "--log-format=JSON"},
			wantLevel:  log.LevelWarn,
			wantFormat: log.FormatJSON,
		},
		"renamed": {
			flags:      log.Flags{Level: "verbosity", Format: "output"},
			args:       []string{"--verbosity=debug", "--output=logfmt"},
			wantLevel:  log.LevelDebug,
			wantFormat: log.FormatLogfmt,
		},
		"bad level": {
			flags: log.DefaultFlags(),
			args:  []string{"--log-level=loud"},
			err:   log.ErrUnknownLogLevel,
		},
		"bad format": {
			flags: log.DefaultFlags(),
			args:  []string{"--log-format=xml"},
			err:   log.ErrUnknownLogFormat,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			cfg := tc.flags.NewConfig()

			flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
			flags.SetOutput(&bytes.Buffer{})
			cfg.RegisterFlags(flags)

			assert.Equal(t, "info", flags.Lookup(tc.flags.Level).DefValue)
			assert.Equal(t, "text", flags.Lookup(tc.flags.Format).DefValue)
			assert.Equal(t, "level", flags.Lookup(tc.flags.Level).Value.Type())
			assert.Equal(t, "format", flags.Lookup(tc.flags.Format).Value.Type())

			err := flags.Parse(tc.args)
			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.wantLevel, cfg.Level)
			assert.Equal(t, tc.wantFormat, cfg.Format)
		})
	}
}

func TestConfig_RegisterCompletions(t *testing.T) {
	t.Parallel()

	cfg := log.Flags{Level: "verbosity", Format: "output"}.NewConfig()

	cmd := &cobra.Command{Use: "test"}
	cfg.RegisterFlags(cmd.Flags())
	require.NoError(t, cfg.RegisterCompletions(cmd))

	for flag, want := range map[string][]string{
		"verbosity": log.GetAllLevelStrings(),
		"output":    log.GetAllFormatStrings(),
	} {
		completionFn, ok := cmd.GetFlagCompletionFunc(flag)
		require.True(t, ok, flag)

		values, directive := completionFn(cmd, nil, "")
		assert.Equal(t, cobra.ShellCompDirectiveNoFileComp, directive)
		assert.Equal(t, want, values)
	}
}

func TestConfig_NewHandler(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		logFunc   func(*slog.Logger)
		level     log.Level
		format    log.Format
		contains  []string
		wantEmpty bool
	}{
		"text passes info": {
			level:  log.LevelInfo,
			format: log.FormatText,
			logFunc: func(l *slog.Logger) {
				l.Info("session started", slog.String("host", "worker-1"))
			},
			contains: []string{"INFO", "session started", "host=worker-1"},
		},
		"text blocks debug": {
			level:  log.LevelInfo,
			format: log.FormatText,
			logFunc: func(l *slog.Logger) {
				l.Debug("tick")
			},
			wantEmpty: true,
		},
		"text at debug": {
			level:  log.LevelDebug,
			format: log.FormatText,
			logFunc: func(l *slog.Logger) {
				l.Debug("tick")
			},
			contains: []string{"DEBU", "tick"},
		},
		"text derived logger": {
			level:  log.LevelWarn,
			format: log.FormatText,
			logFunc: func(l *slog.Logger) {
				l.With(slog.String("component", "indicator")).Warn("late tick")
			},
			contains: []string{"WARN", "late tick", "component=indicator"},
		},
		"json blocks info at error": {
			level:  log.LevelError,
			format: log.FormatJSON,
			logFunc: func(l *slog.Logger) {
				l.Info("session started")
			},
			wantEmpty: true,
		},
		"logfmt": {
			level:  log.LevelInfo,
			format: log.FormatLogfmt,
			logFunc: func(l *slog.Logger) {
				l.Info("session started")
			},
			contains: []string{"level=INFO", `msg="session started"`},
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			cfg := log.NewConfig()
			cfg.Level = tc.level
			cfg.Format = tc.format

			var buf bytes.Buffer

			tc.logFunc(slog.New(cfg.NewHandler(&buf)))

			if tc.wantEmpty {
				assert.Empty(t, buf.String())
				return
			}

			for _, want := range tc.contains {
				assert.Contains(t, buf.String(), want)
			}

			// Non-terminal writers get no color.
			assert.NotContains(t, buf.String(), "\x1b[")
		})
	}
}

// overlapWriter counts Write calls that run while another is in progress.
type overlapWriter struct {
	buf      bytes.Buffer
	mu       sync.Mutex
	active   atomic.Int32
	overlaps atomic.Int32
}

func (w *overlapWriter) Write(b []byte) (int, error) {
	if w.active.Add(1) > 1 {
		w.overlaps.Add(1)
	}
	defer w.active.Add(-1)

	runtime.Gosched()

	w.mu.Lock()
	defer w.mu.Unlock()

	return w.buf.Write(b)
}

func TestTextHandler_DerivedLoggersShareWriter(t *testing.T) {
	t.Parallel()

	const (
		workers = 8
		lines   = 50
	)

	w := &overlapWriter{}
	logger := slog.New(log.NewHandler(w, log.LevelInfo, log.FormatText))

	var wg sync.WaitGroup

	for i := range workers {
		wg.Go(func() {
			l := logger.With(slog.String("component", fmt.Sprintf("worker-%d", i)))
			for j := range lines {
				l.Info("tick", slog.Int("n", j))
			}
		})
	}

	wg.Wait()

	assert.Zero(t, w.overlaps.Load())

	out := strings.TrimRight(w.buf.String(), "\n")
	assert.Len(t, strings.Split(out, "\n"), workers*lines)
}
