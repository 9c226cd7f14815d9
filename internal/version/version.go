// Package version holds huddle's build stamp.
//
// Set at link time:
//
//	go build -ldflags "-X github.com/rickgao/huddle/internal/version.Version=0.3.0 \
//	                   -X github.com/rickgao/huddle/internal/version.Commit=$(git rev-parse --short HEAD) \
//	                   -X github.com/rickgao/huddle/internal/version.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)" ./cmd/huddle
package version

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// Info is the build stamp as reported by the health endpoint.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
}

// Current returns the linked-in build stamp.
func Current() Info {
	return Info{Version: Version, Commit: Commit, BuildTime: BuildTime}
}

// String formats the build stamp for logs.
func String() string {
	return Version + " (" + Commit + ") built " + BuildTime
}
