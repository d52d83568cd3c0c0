package internal

import (
	"bytes"
	"log/slog"
	"runtime/debug"
	"strings"
	"testing"
	"time"
)

func Test_buildFromSettings(t *testing.T) {
	tests := map[string]struct {
		settings []debug.BuildSetting
		want     Build
	}{
		"ok, no settings": {
			settings: nil,
			want:     Build{Revision: "unknown"},
		},
		"ok, all vcs settings": {
			settings: []debug.BuildSetting{
				{Key: "vcs.revision", Value: "0123456789abcdef"},
				{Key: "vcs.time", Value: "2024-05-01T10:00:00Z"},
				{Key: "vcs.modified", Value: "true"},
				{Key: "GOOS", Value: "linux"},
			},
			want: Build{
				Revision:     "0123456789abcdef",
				RevisionTime: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
				Modified:     true,
			},
		},
		"ok, malformed time is ignored": {
			settings: []debug.BuildSetting{
				{Key: "vcs.revision", Value: "abc"},
				{Key: "vcs.time", Value: "yesterday"},
			},
			want: Build{Revision: "abc"},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got := buildFromSettings(tc.settings)
			if got.Revision != tc.want.Revision || !got.RevisionTime.Equal(tc.want.RevisionTime) || got.Modified != tc.want.Modified {
				t.Errorf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}

func Test_Build_ShortRevision(t *testing.T) {
	tests := map[string]struct {
		rev  string
		want string
	}{
		"ok, long":    {rev: "0123456789abcdef", want: "0123456"},
		"ok, short":   {rev: "abc", want: "abc"},
		"ok, unknown": {rev: "unknown", want: "unknown"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got := Build{Revision: tc.rev}.ShortRevision()
			if got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func Test_Build_LogValue(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	logger.Info("starting", "build", Build{Revision: "abc", Modified: true})

	for _, want := range []string{"build.revision=abc", "build.modified=true"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("log output\n%s\ndoes not contain %s", buf.String(), want)
		}
	}
}
