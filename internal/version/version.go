// Package version provides version information for the chembed binding layer.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

const unknownValue = "unknown"

// Build-time variables set by ldflags
var (
	Version   = "dev"
	GitCommit = unknownValue
	GoVersion = runtime.Version()
)

// BuildInfo contains detailed build information
type BuildInfo struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	GoVersion string `json:"go_version"`
	Module    string `json:"module"`
}

// Info returns detailed build information
func Info() BuildInfo {
	info := BuildInfo{
		Version:   Version,
		GitCommit: GitCommit,
		GoVersion: GoVersion,
	}
	if buildInfo, ok := debug.ReadBuildInfo(); ok {
		info.Module = buildInfo.Main.Path
	}
	return info
}

// String returns a formatted version string
func (b BuildInfo) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("chembed %s", b.Version))
	if b.GitCommit != unknownValue {
		commit := b.GitCommit
		if len(commit) > 7 {
			commit = commit[:7]
		}
		sb.WriteString(fmt.Sprintf(" (%s)", commit))
	}
	sb.WriteString(fmt.Sprintf(" %s", b.GoVersion))
	return sb.String()
}

// UserAgent returns an identification string for engine settings and logs.
func UserAgent() string {
	return fmt.Sprintf("chembed/%s", Version)
}

// IsRelease returns true if this is a release version (not dev)
func IsRelease() bool {
	return Version != "dev" && !strings.Contains(Version, "-")
}
