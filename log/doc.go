// Package log provides structured logging handler construction for use with
// [log/slog].
//
// It supports multiple output formats ([FormatJSON], [FormatLogfmt], and
// [FormatText]) and severity levels ([LevelError], [LevelWarn], [LevelInfo],
// and [LevelDebug]). Use [NewHandler] to create a handler directly, or use
// [Config] with CLI flag integration via [github.com/spf13/pflag] and shell
// completion support via [github.com/spf13/cobra].
//
// Typical usage creates a [Config], registers flags, then builds a handler
// at startup:
//
//	cfg := log.NewConfig()
//	cfg.RegisterFlags(rootCmd.PersistentFlags())
//	cfg.RegisterCompletions(rootCmd)
//
//	handler := cfg.NewHandler(os.Stderr)
//	slog.SetDefault(slog.New(handler))
//
// A [Publisher] splits log output into lines and fans them out to
// subscribers, which is how the recorder TUI shows recent log lines:
//
//	pub := log.NewPublisher()
//	logger := slog.New(log.NewHandler(pub, log.LevelInfo, log.FormatLogfmt))
//
//	sub := pub.Subscribe()
//	go func() {
//	    for line := range sub.C() {
//	        program.Send(logLineMsg(line))
//	    }
//	}()
package log
