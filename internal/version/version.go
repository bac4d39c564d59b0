// Package version carries build-time identification for execution records
// and CLI/MCP banners.
package version

const (
	// Version is the current semantic version of Magellan.
	Version = "0.1.0"

	// BuildDate is set during build time (use -ldflags).
	BuildDate = "development"

	// GitCommit is set during build time (use -ldflags).
	GitCommit = "unknown"

	// MagellanSchemaVersion is the current magellan_meta schema version
	// (spec §6); bump and add an upgrade rule in internal/migrate when the
	// relational schema changes.
	MagellanSchemaVersion = 6
)

// Info returns the short version string.
func Info() string {
	return Version
}

// FullInfo returns detailed version information for diagnostics output.
func FullInfo() string {
	return "magellan " + Version + " (commit: " + GitCommit + ", built: " + BuildDate + ")"
}
