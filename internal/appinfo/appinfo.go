// Package appinfo reports the build identity of the running binary
package appinfo

import (
	"os"
	"runtime"
	"runtime/debug"
)

// Name is the service name reported in logs and the monitoring dashboard
const Name = "unihub-gamification"

// Version is set at build time with -ldflags "-X unihub/internal/appinfo.Version=1.2.3"
var Version = ""

// Info describes the running build
type Info struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Revision  string `json:"revision,omitempty"`
	GoVersion string `json:"go_version"`
}

// Get returns the build identity
func Get() Info {
	info := Info{
		Name:      Name,
		Version:   GetVersion(),
		GoVersion: runtime.Version(),
	}
	if build, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range build.Settings {
			if setting.Key == "vcs.revision" {
				info.Revision = setting.Value
			}
		}
	}
	return info
}

// GetVersion resolves the version from the linker flag, then APP_VERSION,
// then the main module version recorded by the go tool
func GetVersion() string {
	if Version != "" {
		return Version
	}
	if version := os.Getenv("APP_VERSION"); version != "" {
		return version
	}
	if build, ok := debug.ReadBuildInfo(); ok {
		if v := build.Main.Version; v != "" && v != "(devel)" {
			return v
		}
	}
	return "0.0.0-unknown"
}
