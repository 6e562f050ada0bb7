// Package main provides the CLI entry point for hostprof, which records
// profiling sessions of the running host process and shows a live
// indicator while a session is in progress.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"go.jacobcolvin.com/hostprof/config"
	"go.jacobcolvin.com/hostprof/log"
	"go.jacobcolvin.com/hostprof/profile"
	"go.jacobcolvin.com/hostprof/version"
)

// UI modes for the record command.
const (
	uiAuto     = "auto"
	uiTUI      = "tui"
	uiHeadless = "headless"
)

// ErrInvalidUI indicates an unknown --ui value.
var ErrInvalidUI = errors.New("invalid ui mode")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx)

	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Flag names for the record command's own flags.
const (
	flagConfig      = "config"
	flagMetricsAddr = "metrics-addr"
	flagUI          = "ui"
	flagDuration    = "duration"
)

// recordConfig holds the record command's own flags.
type recordConfig struct {
	ConfigPath  string
	MetricsAddr string
	UI          string
	Duration    time.Duration
}

func (c *recordConfig) registerFlags(cmd *cobra.Command) error {
	flags := cmd.Flags()
	flags.StringVar(&c.ConfigPath, flagConfig, "", "path to a YAML config file; flags override its values")
	flags.StringVar(&c.MetricsAddr, flagMetricsAddr, "", "serve Prometheus metrics on this address, e.g. :9090")
	flags.StringVar(&c.UI, flagUI, uiAuto, fmt.Sprintf("ui mode, one of: %s, %s, %s", uiAuto, uiTUI, uiHeadless))
	flags.DurationVar(&c.Duration, flagDuration, 0, "headless session length; zero records until interrupted")

	err := cmd.RegisterFlagCompletionFunc(flagUI,
		cobra.FixedCompletions([]string{uiAuto, uiTUI, uiHeadless}, cobra.ShellCompDirectiveNoFileComp))
	if err != nil {
		return fmt.Errorf("registering ui completion: %w", err)
	}

	err = cmd.MarkFlagFilename(flagConfig, "yaml", "yml")
	if err != nil {
		return fmt.Errorf("registering config completion: %w", err)
	}

	return nil
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	record := newRecordCmd(stdout, stderr)

	rootCmd := &cobra.Command{
		Use:   "hostprof",
		Short: "Record profiling sessions of the extension host",
		Long: `hostprof records CPU and snapshot profiles of the extension host process.

While a session runs, a live indicator shows how long it has been
profiling. Stopping the session prints a summary of the captured profiles.`,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE:          record.RunE,
	}

	rootCmd.Flags().AddFlagSet(record.Flags())
	rootCmd.AddCommand(record, newConfigCmd(stdout), newVersionCmd(stdout))
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	return rootCmd
}

func newRecordCmd(stdout, stderr io.Writer) *cobra.Command {
	logCfg := log.NewConfig()
	profCfg := profile.NewConfig()
	recCfg := &recordConfig{}

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a profiling session",
		Long: `Record a profiling session.

On a terminal an interactive view starts (--ui=auto). Press r to start,
s or enter to stop and show results, q to quit. Without a terminal, or with
--ui=headless, a session starts immediately and stops after --duration or
on interrupt.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if recCfg.ConfigPath != "" {
				f, err := config.Load(recCfg.ConfigPath)
				if err != nil {
					return err
				}

				err = f.Apply(cmd.Flags(), config.Names{
					Log:         logCfg.Flags,
					Profile:     profCfg.Flags,
					MetricsAddr: flagMetricsAddr,
					Duration:    flagDuration,
				})
				if err != nil {
					return err
				}
			}

			return runRecord(cmd.Context(), stdout, stderr, logCfg, profCfg, recCfg)
		},
	}

	logCfg.RegisterFlags(cmd.Flags())
	profCfg.RegisterFlags(cmd.Flags())

	for _, err := range []error{
		recCfg.registerFlags(cmd),
		logCfg.RegisterCompletions(cmd),
		profCfg.RegisterCompletions(cmd),
	} {
		if err != nil {
			fmt.Fprintf(stderr, "register completions: %v\n", err)
		}
	}

	return cmd
}

func runRecord(
	ctx context.Context,
	stdout, stderr io.Writer,
	logCfg *log.Config,
	profCfg *profile.Config,
	recCfg *recordConfig,
) error {
	err := profCfg.Validate()
	if err != nil {
		return err
	}

	useTUI, err := resolveUI(recCfg.UI, stdout)
	if err != nil {
		return err
	}

	// The TUI owns the terminal, so logs go to its log pane instead.
	var (
		logOut io.Writer = stderr
		sub    *log.Subscription
	)

	if useTUI {
		pub := log.NewPublisher()
		defer pub.Close() //nolint:errcheck // Close always returns nil.

		sub = pub.Subscribe()
		defer sub.Close()

		logOut = pub
	}

	logger := slog.New(logCfg.NewHandler(logOut))
	host := profCfg.NewHost(logger)

	// An interrupt ends the recording; it must not abort the stop that
	// captures it.
	workerCtx := context.WithoutCancel(ctx)

	if !useTUI {
		a := newApp(workerCtx, host, logSurface{logger: logger.With(slog.String("component", "indicator"))}, stdout, logger)

		stopMetrics, err := serveMetrics(recCfg.MetricsAddr, a, logger)
		if err != nil {
			return err
		}
		defer stopMetrics()

		return recordHeadless(ctx, a, recCfg.Duration)
	}

	s := newScreen()
	a := newApp(workerCtx, host, s, s, logger)

	stopMetrics, err := serveMetrics(recCfg.MetricsAddr, a, logger)
	if err != nil {
		return err
	}
	defer stopMetrics()

	return recordTUI(ctx, a, s, sub.C())
}

// resolveUI reports whether the record command should run the TUI.
func resolveUI(mode string, stdout io.Writer) (bool, error) {
	switch mode {
	case uiTUI:
		return true, nil
	case uiHeadless:
		return false, nil
	case uiAuto:
		f, ok := stdout.(*os.File)

		return ok && term.IsTerminal(int(f.Fd())), nil
	}

	return false, fmt.Errorf("%w: %q", ErrInvalidUI, mode)
}

// serveMetrics starts the Prometheus endpoint when addr is set. The returned
// function shuts the server down.
func serveMetrics(addr string, a *app, logger *slog.Logger) (func(), error) {
	if addr == "" {
		return func() {}, nil
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen for metrics: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		err := srv.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("serve metrics", slog.Any("err", err))
		}
	}()

	logger.Info("serving metrics", slog.String("addr", ln.Addr().String()))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		err := srv.Shutdown(ctx)
		if err != nil {
			logger.Warn("shutdown metrics server", slog.Any("err", err))
		}
	}, nil
}

func newConfigCmd(stdout io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration file format",
	}

	var indent int

	schema := &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of the configuration file",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			s, err := config.Schema()
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(s, "", fmt.Sprintf("%*s", indent, ""))
			if err != nil {
				return fmt.Errorf("marshal schema: %w", err)
			}

			_, err = fmt.Fprintln(stdout, string(out))

			return err
		},
	}

	schema.Flags().IntVar(&indent, "indent", 2, "number of spaces to indent the output")
	cmd.AddCommand(schema)

	return cmd
}

func newVersionCmd(stdout io.Writer) *cobra.Command {
	var asYAML bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			info := version.Get()

			if !asYAML {
				_, err := fmt.Fprintln(stdout, info.String())
				return err
			}

			out, err := yaml.Marshal(info)
			if err != nil {
				return fmt.Errorf("marshal version: %w", err)
			}

			_, err = stdout.Write(out)

			return err
		},
	}

	cmd.Flags().BoolVar(&asYAML, "yaml", false, "print build information as YAML")

	return cmd
}
