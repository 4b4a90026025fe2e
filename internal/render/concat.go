package render

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// WriteConcatList writes an ffmpeg concat demuxer list to concatFile.
// It verifies each input exists before writing.
func WriteConcatList(concatFile string, inputs []string) error {
	if len(inputs) == 0 {
		return fmt.Errorf("nothing to concatenate")
	}
	var missing []string
	for _, p := range inputs {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing %d clip file(s):\n  %s", len(missing), strings.Join(missing, "\n  "))
	}

	if err := os.MkdirAll(filepath.Dir(concatFile), 0o755); err != nil {
		return fmt.Errorf("prepare concat list dir: %w", err)
	}
	f, err := os.Create(concatFile)
	if err != nil {
		return fmt.Errorf("create concat list: %w", err)
	}
	defer f.Close()

	for _, p := range inputs {
		abs, err := filepath.Abs(p)
		if err != nil {
			abs = p
		}
		// Single quotes are closed, escaped and reopened in the concat format.
		escaped := strings.ReplaceAll(abs, "'", `'\''`)
		if _, err := fmt.Fprintf(f, "file '%s'\n", escaped); err != nil {
			return fmt.Errorf("write concat list: %w", err)
		}
	}
	return nil
}

// ConcatResult holds the outcome of a concat run.
type ConcatResult struct {
	OutputPath string `json:"output_path"`
	Method     string `json:"method"` // "stream_copy" or "re-encode"
}

// RunConcat joins the listed files with the ffmpeg concat demuxer. It tries
// stream copy first and re-encodes with enc when the inputs disagree on codec
// parameters, as bonus footage usually does.
func RunConcat(ctx context.Context, runner Runner, ffmpeg, concatFile, outputPath string, enc Encoding, stderr io.Writer) (ConcatResult, error) {
	if runner == nil {
		runner = CmdRunner{}
	}
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return ConcatResult{}, fmt.Errorf("prepare output dir: %w", err)
	}

	streamArgs := []string{
		"-hide_banner",
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", concatFile,
		"-c", "copy",
		outputPath,
	}
	if _, err := runner.Run(ctx, ffmpeg, streamArgs, RunOptions{Stderr: stderr}); err == nil {
		return ConcatResult{OutputPath: outputPath, Method: "stream_copy"}, nil
	}

	if _, err := runner.Run(ctx, ffmpeg, buildReencodeArgs(concatFile, outputPath, enc), RunOptions{Stderr: stderr}); err != nil {
		_ = os.Remove(outputPath)
		return ConcatResult{}, fmt.Errorf("concat re-encode failed: %w", err)
	}
	return ConcatResult{OutputPath: outputPath, Method: "re-encode"}, nil
}

func buildReencodeArgs(concatFile, outputPath string, enc Encoding) []string {
	codec := strings.TrimSpace(enc.VideoCodec)
	if codec == "" {
		codec = "libx264"
	}
	args := []string{
		"-hide_banner",
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", concatFile,
		"-c:v", codec,
	}
	if enc.Preset != "" {
		args = append(args, "-preset", enc.Preset)
	}
	args = append(args, "-pix_fmt", "yuv420p")
	if enc.KeepAudio {
		args = append(args, "-c:a", "aac")
	} else {
		args = append(args, "-an")
	}
	args = append(args, outputPath)
	return args
}
