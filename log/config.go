package log

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Flags names the log flags. Configuration files address the same settings
// through these names, so renaming a flag here keeps file values flowing to
// it.
type Flags struct {
	Level  string
	Format string
}

// DefaultFlags returns the flag names used by [NewConfig].
func DefaultFlags() Flags {
	return Flags{
		Level:  "log-level",
		Format: "log-format",
	}
}

// NewConfig creates a [Config] with these flag names and the default
// level ([LevelInfo]) and format ([FormatText]).
func (f Flags) NewConfig() *Config {
	return &Config{
		Flags:  f,
		Level:  LevelInfo,
		Format: FormatText,
	}
}

// Config is the log configuration of a command. Its Level and Format are
// validated as flags are parsed, so [Config.NewHandler] cannot fail.
type Config struct {
	Flags  Flags
	Level  Level
	Format Format
}

// NewConfig returns a [Config] using [DefaultFlags].
func NewConfig() *Config {
	return DefaultFlags().NewConfig()
}

// RegisterFlags binds the level and format flags to c. The current field
// values become the flag defaults.
func (c *Config) RegisterFlags(flags *pflag.FlagSet) {
	flags.Var(&c.Level, c.Flags.Level, fmt.Sprintf("log level, one of: %s", GetAllLevelStrings()))
	flags.Var(&c.Format, c.Flags.Format, fmt.Sprintf("log format, one of: %s", GetAllFormatStrings()))
}

// RegisterCompletions completes level and format names for cmd.
func (c *Config) RegisterCompletions(cmd *cobra.Command) error {
	for name, values := range map[string][]string{
		c.Flags.Level:  GetAllLevelStrings(),
		c.Flags.Format: GetAllFormatStrings(),
	} {
		err := cmd.RegisterFlagCompletionFunc(name,
			cobra.FixedCompletions(values, cobra.ShellCompDirectiveNoFileComp))
		if err != nil {
			return fmt.Errorf("registering %s completion: %w", name, err)
		}
	}

	return nil
}

// NewHandler creates a [Handler] writing to w at c's level and format.
func (c *Config) NewHandler(w io.Writer) Handler {
	return NewHandler(w, c.Level, c.Format)
}
