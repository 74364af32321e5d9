// Package version reports the build of the harp binaries.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Version is set with -ldflags "-X .../internal/version.Version=v1.2.3" for
// releases. Development builds report the VCS revision instead.
var Version = "dev"

// Info describes one build.
type Info struct {
	Version   string `json:"version"`
	Revision  string `json:"revision,omitempty"`
	BuildTime string `json:"build_time,omitempty"`
	Dirty     bool   `json:"dirty,omitempty"`
	GoVersion string `json:"go_version"`
}

// Get collects build info for the running binary.
func Get() Info {
	info := Info{Version: Version, GoVersion: runtime.Version()}
	if bi, ok := debug.ReadBuildInfo(); ok {
		applySettings(&info, bi.Settings)
	}
	return info
}

func applySettings(info *Info, settings []debug.BuildSetting) {
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			info.Revision = s.Value
		case "vcs.time":
			info.BuildTime = s.Value
		case "vcs.modified":
			info.Dirty = s.Value == "true"
		}
	}
	if info.Version == "dev" && info.Revision != "" {
		info.Version = shortRevision(info.Revision, info.Dirty)
	}
}

func shortRevision(rev string, dirty bool) string {
	if len(rev) > 7 {
		rev = rev[:7]
	}
	if dirty {
		rev += "-dirty"
	}
	return rev
}

// String formats the info for `harp version`.
func (i Info) String() string {
	s := fmt.Sprintf("harp %s (%s)", i.Version, i.GoVersion)
	if i.BuildTime != "" {
		s += " built " + i.BuildTime
	}
	return s
}
