// Package version exposes build information.
package version

// Version is overridden at link time:
//
//	go build -ldflags "-X github.com/holocronapp/holocron-server/internal/version.Version=1.2.0"
var Version = "dev"

// APIVersion is the path prefix of the HTTP API.
const APIVersion = "v1"
