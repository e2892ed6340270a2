// Package version reports build metadata. Values stamped with
// -ldflags "-X github.com/smazurov/framenode/internal/version.Version=..."
// win; otherwise the module and VCS data embedded by the go tool are used.
package version

import (
	"runtime"
	"runtime/debug"
	"sync"
)

// Stamped at link time.
var (
	Version   = ""
	GitCommit = ""
	BuildDate = ""
	BuildID   = ""
)

// Info contains version and build metadata.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	BuildID   string `json:"build_id"`
	GoVersion string `json:"go_version"`
	Compiler  string `json:"compiler"`
	Platform  string `json:"platform"`
}

var resolve = sync.OnceValue(func() Info {
	info := Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		BuildID:   BuildID,
		GoVersion: runtime.Version(),
		Compiler:  runtime.Compiler,
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		fillFromBuildInfo(&info, bi)
	}
	if info.Version == "" {
		info.Version = "dev"
	}
	for _, s := range []*string{&info.GitCommit, &info.BuildDate, &info.BuildID} {
		if *s == "" {
			*s = "unknown"
		}
	}
	return info
})

func fillFromBuildInfo(info *Info, bi *debug.BuildInfo) {
	if info.Version == "" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}
	dirty := false
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.GitCommit == "" {
				info.GitCommit = s.Value
				if len(info.GitCommit) > 7 {
					info.GitCommit = info.GitCommit[:7]
				}
			}
		case "vcs.time":
			if info.BuildDate == "" {
				info.BuildDate = s.Value
			}
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if dirty && info.GitCommit != "" {
		info.GitCommit += "-dirty"
	}
}

// Get returns version and build information.
func Get() Info {
	return resolve()
}

// String returns the application version string.
func String() string {
	return Get().Version
}
