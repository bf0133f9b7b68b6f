package version

import "fmt"

// Version contains the application version information.
// This should be set via build-time ldflags in production:
// go build -ldflags "-X git.home.luguber.info/inful/mdxbuilder/internal/version.Version=v0.1.0".
var Version = "unknown"

// BuildInfo contains additional build metadata.
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String renders the version line printed by --version.
func String() string {
	if GitCommit == "unknown" {
		return "mdxbuilder " + Version
	}
	return fmt.Sprintf("mdxbuilder %s (%s, built %s)", Version, GitCommit, BuildTime)
}
