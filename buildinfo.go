package mpranalyze

import (
	"fmt"
	"runtime/debug"
)

// BuildInfo summarizes how the running binary was built, for the command
// line tools to log at startup.
func BuildInfo() string {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return "build information unavailable"
	}

	commit, commitTime := "unknown", "unknown"
	modified := ""
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			commit = s.Value
		case "vcs.time":
			commitTime = s.Value
		case "vcs.modified":
			if s.Value == "true" {
				modified = ", modified since"
			}
		}
	}

	return fmt.Sprintf("%s built with %s at commit %s (%s%s)", bi.Path, bi.GoVersion, commit, commitTime, modified)
}
