package version

import "fmt"

// Version is the release version, set at build time:
// go build -ldflags "-X git.home.luguber.info/inful/quicksip/internal/version.Version=v0.3.0".
var Version = "unknown"

// BuildInfo contains additional build metadata.
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String renders the version line printed by `quicksip --version`.
func String() string {
	return fmt.Sprintf("quicksip %s (commit %s, built %s)", Version, GitCommit, BuildTime)
}
