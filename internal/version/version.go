package version

import "fmt"

var (
	// Version is the current application version
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String formats the build information for -version output.
func String(tool string) string {
	return fmt.Sprintf("%s %s (%s, built %s)", tool, Version, GitSHA, BuildTime)
}
