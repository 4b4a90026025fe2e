package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"pitchsync/internal/clips"
	"pitchsync/internal/ledger"
	"pitchsync/internal/logx"
	"pitchsync/internal/overlay"
	"pitchsync/internal/render"
	"pitchsync/internal/sequence"
	"pitchsync/internal/tools"
)

// ErrLocked is returned when another run holds the project lock.
var ErrLocked = errors.New("another pitchsync run is in progress for this project")

// RunOptions tunes Run.
type RunOptions struct {
	RunID       string
	Force       bool
	Concurrency int
	SkipConcat  bool
	FFmpeg      string
	Runner      render.Runner
	Reporter    render.ProgressReporter
	Stderr      io.Writer
}

// ClipOutcome is the per-file result of a run.
type ClipOutcome struct {
	Number int
	File   string
	Key    string
	Output string
	Status string
	Err    error
}

// Report is the full outcome of Run.
type Report struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Plan       *Plan
	Annotated  []render.Result
	Clips      []ClipOutcome
	Sequence   []sequence.Entry
	Combined   *render.ConcatResult
	Err        error
}

// Counts tallies clip outcomes by status.
func (r *Report) Counts() map[string]int {
	counts := map[string]int{}
	for _, c := range r.Clips {
		counts[c.Status]++
	}
	return counts
}

// Status folds the report into a single ledger status.
func (r *Report) Status() string {
	counts := r.Counts()
	switch {
	case r.Err != nil && r.Combined == nil:
		return ledger.StatusFailed
	case counts[ledger.ClipFailed] > 0 || counts[ledger.ClipUnresolved] > 0:
		return ledger.StatusPartial
	case r.Plan != nil && r.Plan.Incomplete != nil:
		return ledger.StatusPartial
	default:
		return ledger.StatusOK
	}
}

// Run annotates every resolved clip, orders the outputs and concatenates
// them into the combined file. Unresolved clips are never annotated. A
// project lock keeps two runs from writing the same outputs.
func Run(ctx context.Context, plan *Plan, opts RunOptions, logger *slog.Logger) (*Report, error) {
	if plan == nil {
		return nil, errors.New("nil plan")
	}
	log := logx.Component(logger, "run")
	report := &Report{RunID: opts.RunID, StartedAt: time.Now(), Plan: plan}
	if report.RunID == "" {
		report.RunID = ledger.NewRunID()
	}

	pp := plan.Paths
	if err := pp.EnsureMetaDirs(); err != nil {
		return nil, err
	}
	lock := flock.New(pp.LockFile)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !locked {
		return nil, ErrLocked
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			log.Warn("failed to release run lock", "error", err)
		}
	}()

	ffmpeg := opts.FFmpeg
	if ffmpeg == "" {
		ffmpeg, err = tools.Lookup("ffmpeg", plan.Config.Encoding.FFmpeg)
		if err != nil {
			return nil, err
		}
	}

	svc := render.NewService(ffmpeg, opts.Runner, logger)
	svc.Style = render.StyleFromConfig(plan.Config.Overlay)
	svc.Encoding = render.EncodingFromConfig(plan.Config.Encoding)
	svc.OutputDir = pp.OutputDir
	svc.LogsDir = pp.ClipLogsDir
	svc.Suffix = plan.Config.Output.Suffix
	svc.SetStderr(opts.Stderr)

	resolved := plan.Resolved()
	jobs := make([]render.Job, 0, len(resolved))
	for _, res := range resolved {
		jobs = append(jobs, render.Job{
			Number:  res.Number,
			Source:  res.File.Path,
			Overlay: overlay.Format(res.Record),
		})
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = plan.Config.Encoding.Concurrency
	}
	log.Info("annotating clips", "run_id", report.RunID, "jobs", len(jobs), "concurrency", concurrency)
	report.Annotated = svc.Annotate(ctx, jobs, render.Options{
		Concurrency: concurrency,
		Force:       opts.Force,
		Reporter:    opts.Reporter,
	})

	primary := report.collectOutcomes(resolved)
	report.Sequence = sequence.Build(primary, plan.extraGroups()...)

	if opts.SkipConcat {
		report.FinishedAt = time.Now()
		return report, nil
	}
	if len(report.Sequence) == 0 {
		report.Err = errors.New("no clips to concatenate")
		report.FinishedAt = time.Now()
		return report, report.Err
	}

	listFile := filepath.Join(pp.MetaDir, "concat-"+report.RunID+".txt")
	if err := render.WriteConcatList(listFile, sequence.Paths(report.Sequence)); err != nil {
		report.Err = err
		report.FinishedAt = time.Now()
		return report, err
	}
	defer os.Remove(listFile)

	log.Info("concatenating", "entries", len(report.Sequence), "output", pp.CombinedFile)
	combined, err := render.RunConcat(ctx, svc.Runner, ffmpeg, listFile, pp.CombinedFile, svc.Encoding, opts.Stderr)
	report.FinishedAt = time.Now()
	if err != nil {
		report.Err = err
		log.Error("concat failed", "error", err)
		return report, err
	}
	report.Combined = &combined
	log.Info("run finished", "method", combined.Method, "status", report.Status())
	return report, nil
}

// collectOutcomes records a ClipOutcome for every numbered clip and returns
// the clips that belong in the sequence.
func (r *Report) collectOutcomes(resolved []clips.Resolution) []sequence.Clip {
	var primary []sequence.Clip
	for i, res := range r.Annotated {
		outcome := ClipOutcome{
			Number: res.Number,
			File:   resolved[i].File.Name,
			Key:    resolved[i].Record.Key,
			Output: res.OutputPath,
		}
		switch {
		case res.Err != nil:
			outcome.Status = ledger.ClipFailed
			outcome.Err = res.Err
		case res.Skipped:
			outcome.Status = ledger.ClipSkipped
			primary = append(primary, sequence.Clip{Number: res.Number, Path: res.OutputPath})
		default:
			outcome.Status = ledger.ClipAnnotated
			primary = append(primary, sequence.Clip{Number: res.Number, Path: res.OutputPath})
		}
		r.Clips = append(r.Clips, outcome)
	}

	for _, res := range r.Plan.Unresolved() {
		outcome := ClipOutcome{Number: res.Number, File: res.File.Name, Status: ledger.ClipUnresolved, Err: res.Err}
		if r.Plan.Config.Output.IncludeUnannotated {
			outcome.Status = ledger.ClipRaw
			outcome.Output = res.File.Path
			primary = append(primary, sequence.Clip{Number: res.Number, Path: res.File.Path})
		}
		r.Clips = append(r.Clips, outcome)
	}
	return primary
}

// LedgerRun converts the report into a ledger entry.
func (r *Report) LedgerRun() ledger.Run {
	run := PlanLedgerRun(r.Plan, "run")
	run.ID = r.RunID
	run.StartedAt = r.StartedAt
	run.FinishedAt = r.FinishedAt
	run.Status = r.Status()
	run.Clips = run.Clips[:0]
	counts := r.Counts()
	run.Annotated = counts[ledger.ClipAnnotated]
	run.Skipped = counts[ledger.ClipSkipped]
	run.Failed = counts[ledger.ClipFailed]
	if r.Combined != nil {
		run.Output = r.Combined.OutputPath
	}
	if r.Err != nil {
		run.Error = r.Err.Error()
	}
	for _, c := range r.Clips {
		clip := ledger.Clip{Number: c.Number, File: c.File, Key: c.Key, Output: c.Output, Status: c.Status}
		if c.Err != nil {
			clip.Error = c.Err.Error()
		}
		run.Clips = append(run.Clips, clip)
	}
	return run
}

// PlanLedgerRun describes a plan (or a bare linkage when plan has no clips)
// as a ledger entry for the given command.
func PlanLedgerRun(plan *Plan, command string) ledger.Run {
	run := ledger.Run{Command: command, Status: ledger.StatusPlanned}
	if plan == nil || plan.Linkage == nil {
		return run
	}
	run = LinkageLedgerRun(plan.Linkage, command)
	run.Output = plan.Paths.CombinedFile
	for _, res := range plan.Resolutions {
		clip := ledger.Clip{Number: res.Number, File: res.File.Name, Status: ledger.ClipPlanned}
		if res.Resolved() {
			clip.Key = res.Record.Key
			clip.Output = plan.OutputPath(res.File.Path)
		} else {
			clip.Status = ledger.ClipUnresolved
			clip.Error = res.Err.Error()
		}
		run.Clips = append(run.Clips, clip)
	}
	return run
}

// LinkageLedgerRun describes a join as a ledger entry.
func LinkageLedgerRun(l *Linkage, command string) ledger.Run {
	summary := l.Summary()
	run := ledger.Run{
		Command:  command,
		Mode:     l.Mode.String(),
		Tracking: summary.Tracking,
		Tagged:   summary.Tagged,
		Joined:   summary.Joined,
		Dropped:  len(l.Dropped),
		Complete: summary.Complete,
		Status:   ledger.StatusPlanned,
	}
	if !summary.Complete {
		run.Error = fmt.Sprintf("%d tagged rows unmatched", summary.Deficit)
	}
	return run
}
