package version

import (
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

const defaultModule = "pkt.systems/mongoui"

// buildVersion is set via -ldflags "-X pkt.systems/mongoui/internal/version.buildVersion=...".
var buildVersion = ""

// Info describes the running binary.
type Info struct {
	Version  string
	Module   string
	Revision string
	Go       string
	Dirty    bool
}

// Current returns the best available version string.
func Current() string {
	return Read().Version
}

// Read collects version details from the linker flag and build info.
func Read() Info {
	info, _ := debug.ReadBuildInfo()
	return fromBuildInfo(info, buildVersion)
}

func fromBuildInfo(info *debug.BuildInfo, override string) Info {
	out := Info{Module: defaultModule, Go: runtime.Version(), Version: "v0.0.0-unknown"}
	if info == nil {
		if v := strings.TrimSpace(override); v != "" {
			out.Version = v
		}
		return out
	}
	if path := strings.TrimSpace(info.Main.Path); path != "" {
		out.Module = path
	}
	if info.GoVersion != "" {
		out.Go = info.GoVersion
	}
	var vcsTime string
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			out.Revision = setting.Value
		case "vcs.time":
			vcsTime = setting.Value
		case "vcs.modified":
			out.Dirty = setting.Value == "true"
		}
	}
	switch {
	case strings.TrimSpace(override) != "":
		out.Version = strings.TrimSpace(override)
	case info.Main.Version != "" && info.Main.Version != "(devel)":
		out.Version = info.Main.Version
	default:
		if v := pseudoVersion(out.Revision, vcsTime); v != "" {
			out.Version = v
		}
	}
	return out
}

func pseudoVersion(revision, vcsTime string) string {
	if revision == "" || vcsTime == "" {
		return ""
	}
	parsed, err := time.Parse(time.RFC3339, vcsTime)
	if err != nil {
		return ""
	}
	if len(revision) > 12 {
		revision = revision[:12]
	}
	return "v0.0.0-" + parsed.UTC().Format("20060102150405") + "-" + revision
}
