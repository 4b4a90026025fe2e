package tools

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// MinimumFFmpeg is the oldest ffmpeg release known to handle the drawtext box
// options and concat demuxer flags used by the renderer.
const MinimumFFmpeg = "4.4"

// Status captures availability and version details for an external tool.
type Status struct {
	Tool      string   `json:"tool"`
	Path      string   `json:"path,omitempty"`
	Version   string   `json:"version,omitempty"`
	Minimum   string   `json:"minimum,omitempty"`
	Satisfied bool     `json:"satisfied"`
	Error     string   `json:"error,omitempty"`
	Hints     []string `json:"hints,omitempty"`
}

// KnownTools returns the external binaries pitchsync shells out to.
func KnownTools() []string {
	return []string{"ffmpeg", "ffprobe"}
}

// Lookup returns the path of name. A non-empty override wins when it points
// at an executable; ffprobe is looked for next to an overridden ffmpeg.
func Lookup(name, ffmpegOverride string) (string, error) {
	override := strings.TrimSpace(ffmpegOverride)
	if override != "" {
		candidate := override
		if name != "ffmpeg" {
			candidate = filepath.Join(filepath.Dir(override), executableName(name))
		}
		if path, err := exec.LookPath(candidate); err == nil {
			return path, nil
		} else if name == "ffmpeg" {
			return "", fmt.Errorf("configured ffmpeg %q: %w", override, err)
		}
	}
	path, err := exec.LookPath(executableName(name))
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", fmt.Errorf("%s not found on PATH", name)
		}
		return "", err
	}
	return path, nil
}

// Detect reports the status of every known tool.
func Detect(ctx context.Context, ffmpegOverride string) []Status {
	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
	}

	statuses := make([]Status, 0, len(KnownTools()))
	for _, name := range KnownTools() {
		statuses = append(statuses, detectOne(ctx, name, ffmpegOverride))
	}
	return statuses
}

func detectOne(ctx context.Context, name, override string) Status {
	status := Status{Tool: name, Minimum: MinimumFFmpeg}

	path, err := Lookup(name, override)
	if err != nil {
		status.Error = err.Error()
		status.Hints = installHints(name)
		return status
	}
	status.Path = path

	version, err := readVersion(ctx, path)
	if err != nil {
		status.Error = err.Error()
		return status
	}
	status.Version = version
	status.Satisfied = meetsMinimum(version, MinimumFFmpeg)
	if !status.Satisfied {
		status.Error = fmt.Sprintf("version %s below minimum %s", version, MinimumFFmpeg)
		status.Hints = installHints(name)
	}
	return status
}

func executableName(base string) string {
	if runtime.GOOS == "windows" && !strings.HasSuffix(base, ".exe") {
		return base + ".exe"
	}
	return base
}
