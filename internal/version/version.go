// Package version exposes shopassist build metadata.
package version

import "fmt"

// Overridden with -ldflags "-X github.com/kailas-cloud/shopassist/internal/version.Version=...".
//
//nolint:revive // Set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// String formats the build metadata for --version output.
func String() string {
	return fmt.Sprintf("shopassist %s (%s, %s)", Version, Commit, Date)
}
