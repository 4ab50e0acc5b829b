// Package version carries build metadata injected with -ldflags.
package version

import (
	"fmt"
	"runtime/debug"
)

const (
	unknown    = "unknown"
	devVersion = "dev"

	settingRevision = "vcs.revision"
	settingTime     = "vcs.time"
	settingModified = "vcs.modified"

	shortRevision = 7
)

// Build metadata. Set with -ldflags "-X .../pkg/version.Version=v0.3.0" and
// completed from the embedded build info by InitBinaryVersion.
var (
	Version = devVersion
	Commit  = unknown
	Date    = unknown
)

// InitBinaryVersion fills unset fields from runtime/debug build info.
func InitBinaryVersion() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	apply(info)
}

func apply(info *debug.BuildInfo) {
	if Version == devVersion && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}

	var dirty bool

	for _, setting := range info.Settings {
		switch setting.Key {
		case settingRevision:
			if Commit == unknown {
				Commit = setting.Value
				if len(Commit) > shortRevision {
					Commit = Commit[:shortRevision]
				}
			}
		case settingTime:
			if Date == unknown {
				Date = setting.Value
			}
		case settingModified:
			dirty = setting.Value == "true"
		}
	}

	if dirty && Commit != unknown {
		Commit += "-dirty"
	}
}

// String renders "timewarp <version> (commit: <commit>, built: <date>)".
func String() string {
	return fmt.Sprintf("timewarp %s (commit: %s, built: %s)", Version, Commit, Date)
}
