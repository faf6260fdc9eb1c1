// Package buildinfo provides build-time version information.
//
// Values are injected at build time via ldflags:
//
//	go build -ldflags "-X github.com/yndnr/statesnap/internal/infra/buildinfo.Version=v1.0.0"
//
// When Commit is not injected it is read from the VCS stamp embedded by the
// Go toolchain.
package buildinfo

import (
	"runtime"
	"runtime/debug"
	"sort"
)

// Build-time variables (set via ldflags).
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// Info contains build information.
type Info struct {
	Version   string       `json:"version" yaml:"version"`
	Commit    string       `json:"commit" yaml:"commit"`
	BuildTime string       `json:"build_time" yaml:"build_time"`
	GoVersion string       `json:"go_version" yaml:"go_version"`
	Platform  string       `json:"platform" yaml:"platform"`
	Deps      []Dependency `json:"deps,omitempty" yaml:"deps,omitempty"`
}

// Dependency is one module linked into the binary.
type Dependency struct {
	Path    string `json:"path" yaml:"path"`
	Version string `json:"version" yaml:"version"`
}

// Get returns the build information without dependencies.
func Get() Info {
	info := Info{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		fillVCS(&info, bi)
	}
	return info
}

// GetWithDeps returns the build information including linked modules,
// sorted by path.
func GetWithDeps() Info {
	info := Get()
	if bi, ok := debug.ReadBuildInfo(); ok {
		info.Deps = dependencies(bi)
	}
	return info
}

// String returns a formatted version string.
func String() string {
	info := Get()
	return info.Version + " (" + info.Commit + ") built at " + info.BuildTime + " with " + info.GoVersion
}

func fillVCS(info *Info, bi *debug.BuildInfo) {
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == "unknown" && s.Value != "" {
				info.Commit = s.Value
				if len(info.Commit) > 12 {
					info.Commit = info.Commit[:12]
				}
			}
		case "vcs.time":
			if info.BuildTime == "unknown" && s.Value != "" {
				info.BuildTime = s.Value
			}
		}
	}
}

func dependencies(bi *debug.BuildInfo) []Dependency {
	deps := make([]Dependency, 0, len(bi.Deps))
	for _, d := range bi.Deps {
		m := d
		if d.Replace != nil {
			m = d.Replace
		}
		deps = append(deps, Dependency{Path: d.Path, Version: m.Version})
	}
	sort.Slice(deps, func(i, j int) bool { return deps[i].Path < deps[j].Path })
	return deps
}
