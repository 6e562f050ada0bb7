package log

import (
	"errors"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"

	charmlog "charm.land/log/v2"
)

// Handler is the [slog.Handler] produced by this package.
type Handler = slog.Handler

// Level is a log severity name.
type Level string

const (
	// LevelError logs errors only.
	LevelError Level = "error"
	// LevelWarn logs warnings and errors.
	LevelWarn Level = "warn"
	// LevelInfo logs informational messages and above.
	LevelInfo Level = "info"
	// LevelDebug logs everything.
	LevelDebug Level = "debug"
)

// Format represents the log output format.
type Format string

const (
	// FormatJSON outputs logs as JSON objects.
	FormatJSON Format = "json"
	// FormatLogfmt outputs logs in logfmt format.
	FormatLogfmt Format = "logfmt"
	// FormatText outputs human-readable, colorized logs.
	FormatText Format = "text"
)

var (
	// ErrUnknownLogLevel indicates an unrecognized log level string.
	ErrUnknownLogLevel = errors.New("unknown log level")
	// ErrUnknownLogFormat indicates an unrecognized log format string.
	ErrUnknownLogFormat = errors.New("unknown log format")
)

var (
	allLevels  = []Level{LevelError, LevelWarn, LevelInfo, LevelDebug}
	allFormats = []Format{FormatJSON, FormatLogfmt, FormatText}
)

// GetAllLevelStrings returns every accepted level name.
func GetAllLevelStrings() []string {
	out := make([]string, 0, len(allLevels))
	for _, l := range allLevels {
		out = append(out, string(l))
	}

	return out
}

// GetAllFormatStrings returns every accepted format name.
func GetAllFormatStrings() []string {
	out := make([]string, 0, len(allFormats))
	for _, f := range allFormats {
		out = append(out, string(f))
	}

	return out
}

// NewHandler creates a [Handler] with the specified level and format.
// Unknown formats fall back to [FormatLogfmt].
func NewHandler(w io.Writer, lvl Level, logFmt Format) Handler {
	slogLvl := lvl.slog()

	switch logFmt {
	case FormatJSON:
		return slog.NewJSONHandler(w, &slog.HandlerOptions{
			AddSource: true,
			Level:     slogLvl,
		})

	case FormatText:
		// Loggers derived from a charm logger lock independently.
		return charmlog.NewWithOptions(&lockedWriter{w: w}, charmlog.Options{
			Level:           charmlog.Level(slogLvl),
			ReportTimestamp: true,
		})

	case FormatLogfmt:
	}

	return slog.NewTextHandler(w, &slog.HandlerOptions{
		AddSource: true,
		Level:     slogLvl,
	})
}

// ParseLevel parses a log level string, case-insensitively. "warning" is
// accepted as [LevelWarn].
func ParseLevel(level string) (Level, error) {
	l := Level(strings.ToLower(level))
	if l == "warning" {
		return LevelWarn, nil
	}

	if slices.Contains(allLevels, l) {
		return l, nil
	}

	return "", ErrUnknownLogLevel
}

// ParseFormat parses a log format string, case-insensitively.
func ParseFormat(format string) (Format, error) {
	logFmt := Format(strings.ToLower(format))
	if slices.Contains(allFormats, logFmt) {
		return logFmt, nil
	}

	return "", ErrUnknownLogFormat
}

// String implements [github.com/spf13/pflag.Value].
func (l *Level) String() string {
	return string(*l)
}

// Set implements [github.com/spf13/pflag.Value]. It accepts what [ParseLevel] accepts.
func (l *Level) Set(s string) error {
	v, err := ParseLevel(s)
	if err != nil {
		return err
	}

	*l = v

	return nil
}

// Type implements [github.com/spf13/pflag.Value].
func (*Level) Type() string {
	return "level"
}

// String implements [github.com/spf13/pflag.Value].
func (f *Format) String() string {
	return string(*f)
}

// Set implements [github.com/spf13/pflag.Value]. It accepts what [ParseFormat] accepts.
func (f *Format) Set(s string) error {
	v, err := ParseFormat(s)
	if err != nil {
		return err
	}

	*f = v

	return nil
}

// Type implements [github.com/spf13/pflag.Value].
func (*Format) Type() string {
	return "format"
}

func (l Level) slog() slog.Level {
	switch l {
	case LevelError:
		return slog.LevelError
	case LevelWarn:
		return slog.LevelWarn
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
	}

	return slog.LevelInfo
}

type lockedWriter struct {
	w  io.Writer
	mu sync.Mutex
}

func (lw *lockedWriter) Write(b []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()

	return lw.w.Write(b)
}
