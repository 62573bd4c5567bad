// Package version carries build metadata, set with -ldflags -X at build
// time and stored on every scan run.
package version

import "fmt"

var (
	Version   = "dev"
	GitSHA    = "unknown"
	BuildTime = "unknown"
)

// String formats the build metadata for `dailyqa version`.
func String() string {
	return fmt.Sprintf("dailyqa %s (git %s, built %s)", Version, GitSHA, BuildTime)
}
