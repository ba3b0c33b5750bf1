package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set with -ldflags.
var (
	Version = "dev"
	Commit  = ""
)

// Info describes the running binary.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	Dirty     bool   `json:"dirty,omitempty"`
	GoVersion string `json:"go_version"`
}

// Get returns the build info, filling gaps from debug.ReadBuildInfo.
func Get() Info {
	return resolve(Version, Commit, debug.ReadBuildInfo)
}

func resolve(ver, commit string, read func() (*debug.BuildInfo, bool)) Info {
	info := Info{Version: ver, Commit: commit, GoVersion: runtime.Version()}
	bi, ok := read()
	if !ok || bi == nil {
		return shorten(info)
	}
	if bi.GoVersion != "" {
		info.GoVersion = bi.GoVersion
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == "" {
				info.Commit = s.Value
			}
		case "vcs.modified":
			info.Dirty = s.Value == "true"
		}
	}
	return shorten(info)
}

func shorten(info Info) Info {
	if len(info.Commit) > 7 {
		info.Commit = info.Commit[:7]
	}
	return info
}

// Short returns "version[-commit][-dirty]".
func (i Info) Short() string {
	s := i.Version
	if i.Commit != "" {
		s += "-" + i.Commit
	}
	if i.Dirty {
		s += "-dirty"
	}
	return s
}

// String is the --version line.
func (i Info) String() string {
	return fmt.Sprintf("%s (%s)", i.Short(), i.GoVersion)
}

// Short is Get().Short().
func Short() string {
	return Get().Short()
}
