package profile

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// SnapshotNames lists the snapshot profiles a session can capture, in the
// order they are written to an artifact.
var SnapshotNames = []string{"heap", "allocs", "goroutine", "threadcreate", "block", "mutex"}

// Flags holds CLI flag names for profiling configuration, allowing callers to
// customize flag names while keeping sensible defaults via [NewConfig].
type Flags struct {
	Name      string
	CPU       string
	Snapshots string

	// Rate configuration flag names.
	MemProfileRate       string
	BlockProfileRate     string
	MutexProfileFraction string
}

// NewConfig creates a new [Config] embedding these flag names.
func (f Flags) NewConfig() *Config {
	return &Config{
		Flags: f,
	}
}

// Config holds profiling configuration: what a session captures and the
// runtime sampling rates applied when it starts. A zero-value Config
// captures nothing and leaves the runtime rates at zero.
//
// Create instances with [NewConfig] and register CLI flags with
// [Config.RegisterFlags]. Use [Config.NewHost] to create a [Host].
type Config struct {
	Flags Flags

	// Name identifies the host in artifacts.
	Name string

	// CPU enables CPU profiling for the whole session.
	CPU bool
	// Snapshots names the profiles captured when a session stops.
	Snapshots []string

	// Rate configuration.
	MemProfileRate       int
	BlockProfileRate     int
	MutexProfileFraction int
}

// NewConfig creates a new [Config] with default flag names and zero values.
// Use [Config.RegisterFlags] to add CLI flags, or set fields directly.
func NewConfig() *Config {
	f := Flags{
		Name:                 "host-name",
		CPU:                  "cpu",
		Snapshots:            "snapshot",
		MemProfileRate:       "mem-profile-rate",
		BlockProfileRate:     "block-profile-rate",
		MutexProfileFraction: "mutex-profile-fraction",
	}

	return f.NewConfig()
}

// RegisterFlags adds profiling flags to the given [*pflag.FlagSet].
func (c *Config) RegisterFlags(flags *pflag.FlagSet) {
	flags.StringVar(&c.Name, c.Flags.Name, "extension-host", "host name recorded in profile artifacts")
	flags.BoolVar(&c.CPU, c.Flags.CPU, true, "capture a CPU profile for the whole session")
	flags.StringSliceVar(&c.Snapshots, c.Flags.Snapshots, nil,
		fmt.Sprintf("snapshot profiles to capture when a session stops, any of: %s", strings.Join(SnapshotNames, ", ")))

	// Rate configuration.
	flags.IntVar(&c.MemProfileRate, c.Flags.MemProfileRate, 524288, "memory profile rate (bytes per sample)")
	flags.IntVar(&c.BlockProfileRate, c.Flags.BlockProfileRate, 1, "block profile rate (nanoseconds)")
	flags.IntVar(&c.MutexProfileFraction, c.Flags.MutexProfileFraction, 1, "mutex profile fraction (1/N sampling)")
}

// RegisterCompletions registers shell completions for profile flags on cmd.
// Integer flags disable file completion; the snapshot flag completes
// profile names.
func (c *Config) RegisterCompletions(cmd *cobra.Command) error {
	noFileComp := func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	for _, name := range []string{c.Flags.Name, c.Flags.MemProfileRate, c.Flags.BlockProfileRate, c.Flags.MutexProfileFraction} {
		err := cmd.RegisterFlagCompletionFunc(name, noFileComp)
		if err != nil {
			return fmt.Errorf("registering %s completion: %w", name, err)
		}
	}

	err := cmd.RegisterFlagCompletionFunc(c.Flags.Snapshots,
		cobra.FixedCompletions(SnapshotNames, cobra.ShellCompDirectiveNoFileComp))
	if err != nil {
		return fmt.Errorf("registering %s completion: %w", c.Flags.Snapshots, err)
	}

	return nil
}

// Validate checks that every configured snapshot is known.
func (c *Config) Validate() error {
	for _, name := range c.Snapshots {
		if !slices.Contains(SnapshotNames, name) {
			return fmt.Errorf("%w: %q", ErrUnknownProfile, name)
		}
	}

	return nil
}

// NewHost creates a new [Host] using a copy of this [Config].
func (c *Config) NewHost(logger *slog.Logger) *Host {
	if logger == nil {
		logger = slog.Default()
	}

	cfg := *c
	cfg.Snapshots = append([]string(nil), c.Snapshots...)

	return &Host{
		Config: cfg,
		logger: logger.With(slog.String("component", "profile")),
	}
}
