package tools

import "runtime"

// installHints suggests how to obtain ffmpeg; ffprobe ships with it.
func installHints(tool string) []string {
	if tool != "ffmpeg" && tool != "ffprobe" {
		return nil
	}

	switch runtime.GOOS {
	case "darwin":
		return []string{"brew install ffmpeg"}
	case "linux":
		return []string{"install ffmpeg from your distro, e.g. sudo apt install ffmpeg", "or set encoding.ffmpeg to a static build"}
	case "windows":
		return []string{"winget install Gyan.FFmpeg"}
	default:
		return []string{"install ffmpeg with the platform package manager"}
	}
}
