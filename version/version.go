// Package version reports build information for vgutils binaries.
package version

import (
	"fmt"
	"io"
	"runtime"
	"runtime/debug"
	"strings"
)

var (
	// Version is the release version, set via ldflags.
	Version string
	// BuildDate is when the binary was built, set via ldflags.
	BuildDate string

	// Revision is the VCS revision, with a "-dirty" suffix for modified
	// trees.
	Revision = revision(debug.ReadBuildInfo)
)

// Info describes a build.
type Info struct {
	Version   string
	Revision  string
	BuildDate string
	GoVersion string
	Platform  string
}

// Get returns the build information of the running binary.
func Get() Info {
	v := Version
	if v == "" {
		v = "dev"
	}

	return Info{
		Version:   v,
		Revision:  Revision,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// String returns a one-line summary.
func (i Info) String() string {
	parts := []string{i.Version, "(" + i.Revision + ")"}
	if i.BuildDate != "" {
		parts = append(parts, "built "+i.BuildDate)
	}

	parts = append(parts, i.GoVersion, i.Platform)

	return strings.Join(parts, " ")
}

// Write prints i to w, one field per line.
func (i Info) Write(w io.Writer) error {
	_, err := fmt.Fprintf(w,
		"version:    %s\nrevision:   %s\nbuild date: %s\ngo:         %s\nplatform:   %s\n",
		i.Version, i.Revision, i.BuildDate, i.GoVersion, i.Platform)
	if err != nil {
		return fmt.Errorf("writing version: %w", err)
	}

	return nil
}

func revision(read func() (*debug.BuildInfo, bool)) string {
	rev := "unknown"

	info, ok := read()
	if !ok {
		return rev
	}

	modified := false

	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value
		case "vcs.modified":
			modified = s.Value == "true"
		}
	}

	if modified {
		return rev + "-dirty"
	}

	return rev
}
