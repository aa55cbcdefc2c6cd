// Package version holds the build version, set with
// -ldflags "-X github.com/ndewijer/Adjusted-Price-Engine/internal/version.Version=...".
package version

// Version is the application version reported in responses and /api/system/version.
var Version = "dev"
