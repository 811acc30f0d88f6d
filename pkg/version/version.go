// Package version exposes the build version of bulkport.
package version

// version is set at build time via -ldflags "-X github.com/riveredge/bulkport/pkg/version.version=...".
//
//nolint:gochecknoglobals // Overridden by the linker.
var version = "dev"

// GetVersion returns the build version, or "dev" for local builds.
func GetVersion() string {
	if version == "" {
		return "dev"
	}
	return version
}
