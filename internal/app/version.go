package app

import "fmt"

// Set via ldflags, e.g.
// go build -ldflags "-X github.com/frankbria/auto-author/internal/app.Version=1.4.0"
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// BuildVersion formats the build metadata for startup logs and /health.
func BuildVersion() string {
	if Commit == "unknown" {
		return Version
	}
	return fmt.Sprintf("%s+%s (built %s)", Version, shortCommit(Commit), BuildTime)
}

func shortCommit(c string) string {
	if len(c) > 7 {
		return c[:7]
	}
	return c
}
