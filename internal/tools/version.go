package tools

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
)

func readVersion(ctx context.Context, path string) (string, error) {
	cmd := exec.CommandContext(ctx, path, "-version")
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("%s -version: %w", path, err)
	}
	return normalizeFFmpegVersion(firstLine(strings.TrimSpace(string(output)))), nil
}

func firstLine(text string) string {
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		return text[:idx]
	}
	return text
}

var ffmpegVersionRegex = regexp.MustCompile(`([0-9]+)(?:\.([0-9]+))?(?:\.([0-9]+))?`)

// normalizeFFmpegVersion pulls the dotted release out of a banner such as
// "ffmpeg version 6.1.1-3ubuntu5 Copyright ...". Git builds ("N-112233-g...")
// yield their build number, which compares above any release.
func normalizeFFmpegVersion(line string) string {
	if rest, ok := strings.CutPrefix(line, "ffmpeg version "); ok {
		line = rest
	} else if rest, ok := strings.CutPrefix(line, "ffprobe version "); ok {
		line = rest
	}
	match := ffmpegVersionRegex.FindString(line)
	if match == "" {
		return line
	}
	return match
}

func meetsMinimum(version, minimum string) bool {
	if minimum == "" {
		return true
	}
	if version == "" {
		return false
	}

	vParts := numericParts(version)
	mParts := numericParts(minimum)
	for len(vParts) < len(mParts) {
		vParts = append(vParts, 0)
	}
	for len(mParts) < len(vParts) {
		mParts = append(mParts, 0)
	}
	for i := range vParts {
		if vParts[i] != mParts[i] {
			return vParts[i] > mParts[i]
		}
	}
	return true
}

func numericParts(version string) []int {
	var parts []int
	for _, field := range strings.FieldsFunc(version, func(r rune) bool { return r < '0' || r > '9' }) {
		val, _ := strconv.Atoi(field)
		parts = append(parts, val)
	}
	return parts
}
