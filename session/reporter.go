package session

import "log/slog"

// Reporter receives errors that the controller recovers from. Report must
// not block.
type Reporter interface {
	Report(err error)
}

// ReporterFunc adapts a function to [Reporter].
type ReporterFunc func(err error)

// Report calls f(err).
func (f ReporterFunc) Report(err error) {
	f(err)
}

// LogReporter logs reported errors at error level.
type LogReporter struct {
	Logger *slog.Logger
}

// Report logs err. A nil Logger falls back to [slog.Default].
func (r LogReporter) Report(err error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}

	logger.Error("unexpected error", slog.Any("err", err))
}
