package main

import (
	"runtime/debug"

	"github.com/marcus/visita/cmd"
)

// Version is injected at release build time via
// -ldflags "-X main.Version=vX.Y.Z".
var Version = "dev"

// resolveVersion falls back to Go build info for non-release builds:
// the module version under `go install pkg@version`, or the VCS
// revision for builds from a checkout.
func resolveVersion() string {
	if Version != "" && Version != "dev" {
		return Version
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return Version
	}
	if v := info.Main.Version; v != "" && v != "(devel)" {
		return v
	}

	var rev string
	dirty := false
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if rev == "" {
		return Version
	}
	if len(rev) > 12 {
		rev = rev[:12]
	}
	if dirty {
		return "devel+" + rev + "+dirty"
	}
	return "devel+" + rev
}

func main() {
	cmd.SetVersion(resolveVersion())
	cmd.Execute()
}
