// Package config loads the optional hostprof YAML configuration file.
//
// A [File] supplies defaults for command-line flags: [File.Apply] sets every
// flag the user did not pass explicitly, so flags always win over the file.
// [Names] ties file settings to flag names.
// [Schema] describes the file format as JSON Schema for editor integration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/spf13/pflag"

	"go.jacobcolvin.com/hostprof/log"
	"go.jacobcolvin.com/hostprof/profile"
)

var (
	// ErrInvalidFile indicates a configuration file that could not be read
	// or decoded.
	ErrInvalidFile = errors.New("invalid config file")
	// ErrApply indicates a file value that a flag rejected.
	ErrApply = errors.New("apply config")
)

// File is the on-disk configuration. Every field is optional.
type File struct {
	Log      Log     `json:"log,omitempty"      yaml:"log,omitempty"`
	Profile  Profile `json:"profile,omitempty"  yaml:"profile,omitempty"`
	Metrics  Metrics `json:"metrics,omitempty"  yaml:"metrics,omitempty"`
	Duration string  `json:"duration,omitempty" yaml:"duration,omitempty" jsonschema:"headless session length, e.g. 30s"`
}

// Log mirrors the log flags.
type Log struct {
	Level  string `json:"level,omitempty"  yaml:"level,omitempty"  jsonschema:"one of error, warn, info, debug"`
	Format string `json:"format,omitempty" yaml:"format,omitempty" jsonschema:"one of json, logfmt, text"`
}

// Profile mirrors the profile flags.
type Profile struct {
	CPU                  *bool    `json:"cpu,omitempty"                  yaml:"cpu,omitempty"                  jsonschema:"capture a CPU profile for the whole session"`
	MemProfileRate       *int     `json:"memProfileRate,omitempty"       yaml:"memProfileRate,omitempty"`
	BlockProfileRate     *int     `json:"blockProfileRate,omitempty"     yaml:"blockProfileRate,omitempty"`
	MutexProfileFraction *int     `json:"mutexProfileFraction,omitempty" yaml:"mutexProfileFraction,omitempty"`
	HostName             string   `json:"hostName,omitempty"             yaml:"hostName,omitempty"             jsonschema:"host name recorded in artifacts"`
	Snapshots            []string `json:"snapshots,omitempty"            yaml:"snapshots,omitempty"            jsonschema:"snapshot profiles captured when a session stops"`
}

// Metrics mirrors the metrics flags.
type Metrics struct {
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty" jsonschema:"listen address for the Prometheus endpoint"`
}

// Load reads and strictly decodes the file at path. Unknown keys are
// errors.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}

	return Parse(data)
}

// Parse strictly decodes YAML configuration.
func Parse(data []byte) (*File, error) {
	f := &File{}

	err := yaml.UnmarshalWithOptions(data, f, yaml.DisallowUnknownField())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}

	return f, nil
}

// Names maps file settings to the flags that receive them. Using the
// names from each package's Flags keeps file values flowing to renamed
// flags.
type Names struct {
	Log         log.Flags
	Profile     profile.Flags
	MetricsAddr string
	Duration    string
}

// Values returns the file's settings keyed by the flag names in n. Unset
// fields, and fields whose flag name is empty, are omitted.
func (f *File) Values(n Names) map[string]string {
	v := map[string]string{}

	set := func(name, value string) {
		if name != "" && value != "" {
			v[name] = value
		}
	}

	setInt := func(name string, value *int) {
		if value != nil {
			set(name, strconv.Itoa(*value))
		}
	}

	set(n.Log.Level, f.Log.Level)
	set(n.Log.Format, f.Log.Format)
	set(n.Profile.Name, f.Profile.HostName)
	set(n.Profile.Snapshots, strings.Join(f.Profile.Snapshots, ","))
	set(n.MetricsAddr, f.Metrics.Addr)
	set(n.Duration, f.Duration)

	if f.Profile.CPU != nil {
		set(n.Profile.CPU, strconv.FormatBool(*f.Profile.CPU))
	}

	setInt(n.Profile.MemProfileRate, f.Profile.MemProfileRate)
	setInt(n.Profile.BlockProfileRate, f.Profile.BlockProfileRate)
	setInt(n.Profile.MutexProfileFraction, f.Profile.MutexProfileFraction)

	return v
}

// Apply sets each flag named in n that has a value in f and was not
// changed on the command line. Values for flags missing from flags are
// ignored.
func (f *File) Apply(flags *pflag.FlagSet, n Names) error {
	for name, value := range f.Values(n) {
		fl := flags.Lookup(name)
		if fl == nil || fl.Changed {
			continue
		}

		err := flags.Set(name, value)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrApply, err)
		}
	}

	return nil
}

// Schema returns the JSON Schema of [File].
func Schema() (*jsonschema.Schema, error) {
	s, err := jsonschema.For[File](nil)
	if err != nil {
		return nil, fmt.Errorf("infer schema: %w", err)
	}

	s.Title = "hostprof configuration"

	return s, nil
}
