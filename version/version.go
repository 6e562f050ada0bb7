// Package version reports build information for the hostprof binary.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

var (
	// Version is the application version, set via ldflags.
	Version string
	// BuildDate is when the binary was built, set via ldflags.
	BuildDate string

	// Revision is the git commit revision.
	Revision = getRevision()
	// GoVersion is the Go version used to build.
	GoVersion = runtime.Version()
)

// Info is a snapshot of build information, shaped for YAML output.
type Info struct {
	Version   string `json:"version"             yaml:"version"`
	Revision  string `json:"revision"            yaml:"revision"`
	BuildDate string `json:"buildDate,omitempty" yaml:"buildDate,omitempty"`
	GoVersion string `json:"goVersion"           yaml:"goVersion"`
	Platform  string `json:"platform"            yaml:"platform"`
}

// Get returns the current build information. An unset [Version] reports
// "dev".
func Get() Info {
	v := Version
	if v == "" {
		v = "dev"
	}

	return Info{
		Version:   v,
		Revision:  Revision,
		BuildDate: BuildDate,
		GoVersion: GoVersion,
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// String formats i as a single line.
func (i Info) String() string {
	return fmt.Sprintf("hostprof %s (%s, %s, %s)", i.Version, i.Revision, i.GoVersion, i.Platform)
}

func getRevision() string {
	rev := "unknown"

	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return rev
	}

	modified := false

	for _, v := range buildInfo.Settings {
		switch v.Key {
		case "vcs.revision":
			rev = v.Value
		case "vcs.modified":
			modified = v.Value == "true"
		}
	}

	if modified {
		return rev + "-dirty"
	}

	return rev
}
