package version

import "fmt"

// These variables are set at build time using ldflags.
// Example: go build -ldflags "-X github.com/abdullathedruid/devbox/internal/version.GitSHA=$(git rev-parse --short HEAD)"
var (
	// Version is the release tag, "dev" for local builds.
	Version = "dev"

	// GitSHA is the git commit SHA (short form) at build time.
	GitSHA = "unknown"
)

// Short returns a short version string suitable for the status bar.
func Short() string {
	if Version == "dev" {
		return GitSHA
	}
	return Version
}

// String returns the full version line printed by `devbox version`.
func String() string {
	return fmt.Sprintf("devbox %s (%s)", Version, GitSHA)
}
