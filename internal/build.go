// Package internal holds the version control details the binary was built from.
package internal

import (
	"log/slog"
	"runtime/debug"
	"time"
)

// Build identifies the commit a binary was built from.
type Build struct {
	Revision     string
	RevisionTime time.Time
	// Modified is true when the working tree had uncommitted changes.
	Modified bool
}

// CurrentBuild describes the running binary. Revision is "unknown" when
// the binary was built without VCS stamping, for example by go test.
var CurrentBuild = readBuild()

func readBuild() Build {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return Build{Revision: "unknown"}
	}
	return buildFromSettings(info.Settings)
}

func buildFromSettings(settings []debug.BuildSetting) Build {
	b := Build{Revision: "unknown"}
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			if s.Value != "" {
				b.Revision = s.Value
			}
		case "vcs.time":
			// a malformed time leaves the zero value, it is informational only.
			t, err := time.Parse(time.RFC3339, s.Value)
			if err == nil {
				b.RevisionTime = t
			}
		case "vcs.modified":
			b.Modified = s.Value == "true"
		}
	}
	return b
}

// ShortRevision is the first 7 characters of the revision, as shown by git.
func (b Build) ShortRevision() string {
	if len(b.Revision) > 7 {
		return b.Revision[:7]
	}
	return b.Revision
}

func (b Build) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("revision", b.Revision),
		slog.Time("revisionTime", b.RevisionTime),
		slog.Bool("modified", b.Modified),
	)
}
