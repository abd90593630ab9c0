package version

import (
	"fmt"
	"runtime/debug"
)

var (
	// Version is set at build time with
	// -ldflags "-X github.com/MiBe1991/sentinex/internal/version.Version=v1.2.3".
	// Falls back to the module version embedded by go install.
	Version = "dev"
	// Commit is the VCS revision, filled from build info when available.
	Commit = ""
)

func init() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	if Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}
	if Commit == "" {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" && len(s.Value) >= 7 {
				Commit = s.Value[:7]
			}
		}
	}
}

// UserAgent identifies sentinex in outbound HTTP requests.
func UserAgent(component string) string {
	return fmt.Sprintf("sentinex-%s/%s", component, Version)
}
