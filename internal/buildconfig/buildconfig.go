package buildconfig

import "runtime"

// Set with -ldflags "-X github.com/Harshitk-cp/mastery/internal/buildconfig.version=..."
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = ""
)

// Info describes the running binary.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time,omitempty"`
	GoVersion string `json:"go_version"`
}

func Get() Info {
	return Info{
		Version:   version,
		Commit:    commit,
		BuildTime: buildTime,
		GoVersion: runtime.Version(),
	}
}
