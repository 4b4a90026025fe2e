package tools

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestNormalizeFFmpegVersion(t *testing.T) {
	cases := map[string]string{
		"ffmpeg version 6.1.1-3ubuntu5 Copyright (c) 2000-2023": "6.1.1",
		"ffprobe version 4.4.2-0ubuntu0.22.04.1":                "4.4.2",
		"ffmpeg version n7.0 Copyright":                         "7.0",
		"something else":                                        "something else",
	}
	for in, want := range cases {
		if got := normalizeFFmpegVersion(in); got != want {
			t.Errorf("normalizeFFmpegVersion(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMeetsMinimum(t *testing.T) {
	cases := []struct {
		version, minimum string
		want             bool
	}{
		{"6.1.1", "4.4", true},
		{"4.4", "4.4", true},
		{"4.3.9", "4.4", false},
		{"", "4.4", false},
		{"1.0", "", true},
		{"112233", "4.4", true},
	}
	for _, tc := range cases {
		if got := meetsMinimum(tc.version, tc.minimum); got != tc.want {
			t.Errorf("meetsMinimum(%q, %q) = %v, want %v", tc.version, tc.minimum, got, tc.want)
		}
	}
}

func TestLookupRejectsMissingOverride(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "ffmpeg")
	_, err := Lookup("ffmpeg", missing)
	if err == nil || !strings.Contains(err.Error(), "configured ffmpeg") {
		t.Fatalf("expected configured ffmpeg error, got %v", err)
	}
}
