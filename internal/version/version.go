// Package version reports which build of the placer is running.
//
// Release builds stamp the values with the linker:
//
//	go build -ldflags "-X union-bug-placer/internal/version.Version=1.2.0 \
//	    -X union-bug-placer/internal/version.GitCommit=$(git rev-parse --short HEAD) \
//	    -X union-bug-placer/internal/version.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
package version

import "fmt"

var (
	Version   = "0.1.0-dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String returns the version with the commit when it was stamped, e.g.
// "1.2.0 (a1b2c3d)".
func String() string {
	if GitCommit == "" || GitCommit == "unknown" {
		return Version
	}
	return fmt.Sprintf("%s (%s)", Version, GitCommit)
}

// Dev reports whether the binary was built without a release version.
func Dev() bool {
	return BuildTime == "unknown"
}
