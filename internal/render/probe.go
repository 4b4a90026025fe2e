package render

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
)

// MediaInfo is the subset of ffprobe output the pipeline cares about.
type MediaInfo struct {
	Path            string  `json:"path"`
	FormatName      string  `json:"format_name"`
	DurationSeconds float64 `json:"duration_seconds"`
	VideoStreams    int     `json:"video_streams"`
	AudioStreams    int     `json:"audio_streams"`
	Width           int     `json:"width,omitempty"`
	Height          int     `json:"height,omitempty"`
	VideoCodec      string  `json:"video_codec,omitempty"`
}

type ffprobeOutput struct {
	Format struct {
		FormatName string `json:"format_name"`
		Duration   string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		CodecName string `json:"codec_name"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
}

// Probe runs ffprobe on path. A file without a video stream is an error
// because it can never be annotated.
func Probe(ctx context.Context, runner Runner, ffprobe, path string) (MediaInfo, error) {
	if runner == nil {
		runner = CmdRunner{}
	}
	args := []string{
		"-v", "error",
		"-show_format",
		"-show_streams",
		"-print_format", "json",
		path,
	}
	result, err := runner.Run(ctx, ffprobe, args, RunOptions{})
	if err != nil {
		return MediaInfo{}, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	if len(result.Stdout) == 0 {
		return MediaInfo{}, fmt.Errorf("ffprobe %s: no output", path)
	}

	var parsed ffprobeOutput
	if err := json.Unmarshal(result.Stdout, &parsed); err != nil {
		return MediaInfo{}, fmt.Errorf("decode ffprobe output for %s: %w", path, err)
	}

	info := MediaInfo{Path: path, FormatName: parsed.Format.FormatName}
	if parsed.Format.Duration != "" {
		if v, err := strconv.ParseFloat(parsed.Format.Duration, 64); err == nil {
			info.DurationSeconds = v
		}
	}
	for _, s := range parsed.Streams {
		switch s.CodecType {
		case "video":
			info.VideoStreams++
			if info.VideoCodec == "" {
				info.VideoCodec = s.CodecName
				info.Width = s.Width
				info.Height = s.Height
			}
		case "audio":
			info.AudioStreams++
		}
	}
	if info.VideoStreams == 0 {
		return info, fmt.Errorf("%s has no video stream", path)
	}
	return info, nil
}
