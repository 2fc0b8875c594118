package config

import "fmt"

// Set at link time:
//
//	go build -ldflags "-X myomesh/internal/config.version=1.4.0 \
//	    -X myomesh/internal/config.commit=$(git rev-parse --short HEAD) \
//	    -X myomesh/internal/config.buildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

// BuildInfo holds build-time metadata. It is not read from the environment.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// String renders the build as "version (commit, built at)".
func (b BuildInfo) String() string {
	return fmt.Sprintf("%s (%s, built %s)", b.Version, b.Commit, b.BuildTime)
}

// NewBuildInfo returns the linker-injected build metadata.
func NewBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   version,
		Commit:    commit,
		BuildTime: buildTime,
	}
}
