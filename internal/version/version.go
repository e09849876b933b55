// Package version reports the build version of the binary.
package version

import "runtime/debug"

// Version is set at build time via ldflags:
//
//	-ldflags "-X github.com/wilbur182/filescope/internal/version.Version=v1.2.3"
var Version = ""

// String returns Version, falling back to the module version or VCS
// revision recorded in the build info.
func String() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return effective(Version, nil)
	}
	return effective(Version, info)
}

func effective(v string, info *debug.BuildInfo) string {
	if v != "" {
		return v
	}
	if info == nil {
		return "unknown"
	}
	if info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}

	var revision string
	var dirty bool
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			dirty = setting.Value == "true"
		}
	}
	if revision == "" {
		return "devel"
	}

	ver := "devel+" + shortRevision(revision)
	if dirty {
		ver += "+dirty"
	}
	return ver
}

// shortRevision returns the first 12 chars of a revision.
func shortRevision(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}
