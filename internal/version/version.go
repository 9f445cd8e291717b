package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Values injected with -ldflags. Empty Commit and BuildTime fall back to the
// VCS stamps the Go toolchain records in the binary.
var (
	// Version is the semantic version of the build.
	Version = "0.1.0-dev"
	// Commit is the short git SHA of the build.
	Commit = ""
	// BuildTime is the UTC build timestamp.
	BuildTime = ""
)

// shortCommitLength is the number of SHA characters kept from vcs.revision.
const shortCommitLength = 12

// Info describes the running binary.
type Info struct {
	Version   string
	Commit    string
	BuildTime string
	GoVersion string
	Modified  bool
}

// Current returns the build info of the running binary.
func Current() Info {
	info := Info{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
	}

	if build, ok := debug.ReadBuildInfo(); ok {
		info.fillFromVCS(build.Settings)
	}

	if info.Commit == "" {
		info.Commit = "none"
	}

	if info.BuildTime == "" {
		info.BuildTime = "unknown"
	}

	return info
}

func (i *Info) fillFromVCS(settings []debug.BuildSetting) {
	for _, setting := range settings {
		switch setting.Key {
		case "vcs.revision":
			if i.Commit == "" {
				i.Commit = setting.Value
				if len(i.Commit) > shortCommitLength {
					i.Commit = i.Commit[:shortCommitLength]
				}
			}
		case "vcs.time":
			if i.BuildTime == "" {
				i.BuildTime = setting.Value
			}
		case "vcs.modified":
			i.Modified = setting.Value == "true"
		}
	}
}

// String renders the info on one line.
func (i Info) String() string {
	commit := i.Commit
	if i.Modified {
		commit += "-dirty"
	}

	return fmt.Sprintf("version: %s, commit: %s, built at: %s, go: %s", i.Version, commit, i.BuildTime, i.GoVersion)
}

// Short returns only the semantic version string.
func Short() string {
	return Version
}

// Full returns a human-readable version string with commit and build time.
func Full() string {
	return Current().String()
}
