// Package version carries build metadata injected with ldflags:
//
//	go build -ldflags "-X github.com/licht-dev/licht-compile/internal/version.Version=v1.2.0"
package version

import "fmt"

// Version is the release version.
var Version = "unknown"

// BuildInfo contains additional build metadata.
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String renders the version line printed by --version.
func String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", Version, GitCommit, BuildTime)
}
