package render

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"pitchsync/internal/logx"
	"pitchsync/internal/overlay"
	"pitchsync/internal/paths"
)

// Service stamps overlays onto clips with ffmpeg.
type Service struct {
	FFmpeg   string
	Runner   Runner
	Style    Style
	Encoding Encoding
	// OutputDir receives the annotated clips and LogsDir one ffmpeg log per clip.
	OutputDir string
	LogsDir   string
	Suffix    string

	logger *slog.Logger
	stderr io.Writer
}

// Options controls annotate execution behaviour.
type Options struct {
	Concurrency int
	Force       bool
	Reporter    ProgressReporter
}

// Job is one clip to annotate.
type Job struct {
	Number  int
	Source  string
	Overlay overlay.Spec
}

// Result captures the outcome of an annotate attempt. Index is the job's
// position in the input slice.
type Result struct {
	Index      int
	Number     int
	Source     string
	OutputPath string
	LogPath    string
	Skipped    bool
	Err        error
}

// ProgressReporter receives notifications as jobs move through the encoder.
type ProgressReporter interface {
	Start(job Job)
	Complete(result Result)
}

// NewService prepares an annotator. A nil runner means real subprocesses.
func NewService(ffmpeg string, runner Runner, logger *slog.Logger) *Service {
	if runner == nil {
		runner = CmdRunner{}
	}
	return &Service{
		FFmpeg: ffmpeg,
		Runner: runner,
		Suffix: "_edited",
		logger: logx.Component(logger, "render"),
	}
}

// SetStderr mirrors ffmpeg stderr to w in addition to the per-clip log.
func (s *Service) SetStderr(w io.Writer) {
	if s != nil {
		s.stderr = w
	}
}

// Annotate encodes every job with bounded concurrency. Results line up with
// jobs by index regardless of completion order.
func (s *Service) Annotate(ctx context.Context, jobs []Job, opts Options) []Result {
	if s == nil {
		return []Result{{Err: errors.New("render service is nil")}}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	results := make([]Result, len(jobs))
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	var (
		wg  sync.WaitGroup
		sem = make(chan struct{}, concurrency)
	)

	for i, job := range jobs {
		sem <- struct{}{}
		if opts.Reporter != nil {
			opts.Reporter.Start(job)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			res := s.annotateOne(ctx, job, opts.Force)
			res.Index = i
			results[i] = res
			if opts.Reporter != nil {
				opts.Reporter.Complete(res)
			}
		}()
	}

	wg.Wait()
	return results
}

func (s *Service) annotateOne(ctx context.Context, job Job, force bool) Result {
	result := Result{Number: job.Number, Source: job.Source}

	if err := ctx.Err(); err != nil {
		result.Err = err
		return result
	}
	if strings.TrimSpace(job.Source) == "" {
		result.Err = fmt.Errorf("clip %d missing source path", job.Number)
		return result
	}

	outputPath, logPath := s.jobPaths(job)
	result.OutputPath = outputPath

	if !force {
		if exists, err := paths.FileExists(outputPath); err != nil {
			result.Err = fmt.Errorf("stat clip output: %w", err)
			return result
		} else if exists {
			result.Skipped = true
			s.logger.Info("clip already annotated, skipping", "clip", job.Number, "output", outputPath)
			return result
		}
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		result.Err = fmt.Errorf("ensure output directory: %w", err)
		return result
	}

	filter, err := BuildFilterGraph(job.Overlay, s.Style)
	if err != nil {
		result.Err = fmt.Errorf("build filter graph: %w", err)
		return result
	}
	args, err := BuildFFmpegCmd(job.Source, outputPath, filter, s.Encoding)
	if err != nil {
		result.Err = err
		return result
	}

	runOpts := RunOptions{}
	if s.LogsDir != "" {
		if err := os.MkdirAll(s.LogsDir, 0o755); err != nil {
			result.Err = fmt.Errorf("ensure log directory: %w", err)
			return result
		}
		logFile, err := os.Create(logPath)
		if err != nil {
			result.Err = fmt.Errorf("open log file: %w", err)
			return result
		}
		defer logFile.Close()
		result.LogPath = logPath
		runOpts.Stderr = logFile
		if s.stderr != nil {
			runOpts.Stderr = io.MultiWriter(logFile, s.stderr)
		}
	} else if s.stderr != nil {
		runOpts.Stderr = s.stderr
	}

	s.logger.Info("annotating clip", "clip", job.Number, "source", job.Source, "output", outputPath)
	if _, err := s.Runner.Run(ctx, s.ffmpeg(), args, runOpts); err != nil {
		if result.LogPath != "" {
			result.Err = fmt.Errorf("ffmpeg failed: %w (see %s)", err, result.LogPath)
		} else {
			result.Err = fmt.Errorf("ffmpeg failed: %w", err)
		}
		_ = os.Remove(outputPath)
		s.logger.Error("clip annotation failed", "clip", job.Number, "error", err)
		return result
	}
	return result
}

func (s *Service) jobPaths(job Job) (string, string) {
	suffix := s.Suffix
	if suffix == "" {
		suffix = "_edited"
	}
	name := OutputName(job.Source, suffix)
	dir := s.OutputDir
	if dir == "" {
		dir = filepath.Dir(job.Source)
	}
	output := filepath.Join(dir, name)
	log := filepath.Join(s.LogsDir, strings.TrimSuffix(name, filepath.Ext(name))+".log")
	return output, log
}

func (s *Service) ffmpeg() string {
	if s.FFmpeg == "" {
		return "ffmpeg"
	}
	return s.FFmpeg
}
