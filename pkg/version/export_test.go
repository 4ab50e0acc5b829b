package version

import "runtime/debug"

// ApplyBuildInfo exposes apply for testing.
func ApplyBuildInfo(info *debug.BuildInfo) { apply(info) }

// Reset restores the unset values.
func Reset() {
	Version, Commit, Date = devVersion, unknown, unknown
}
