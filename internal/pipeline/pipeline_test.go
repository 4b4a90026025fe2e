package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/gofrs/flock"

	"pitchsync/internal/clips"
	"pitchsync/internal/config"
	"pitchsync/internal/ledger"
	"pitchsync/internal/link"
	"pitchsync/internal/paths"
	"pitchsync/internal/render"
)

const trackingCSV = "Date,Pitcher,Batter,Inning,Balls,Strikes,Outs,TaggedPitchType,PitchCall,RelSpeed,InducedVertBreak,HorzBreak,SpinRate\n" +
	"2024-05-11,\"Smith, John\",\"Doe, Jane\",1,0,0,0,Fastball,StrikeCalled,92.44,15.1,-8.25,2301.6\n" +
	",\"Smith, John\",\"Doe, Jane\",1,0,0,0,Fastball,StrikeCalled,90,15,-8,2200\n" +
	"2024-05-11,\"Smith, John\",\"Doe, Jane\",1,0,1,0,Slider,BallCalled,84.05,3.2,4.1,2450\n" +
	"2024-05-11,\"Smith, John\",\"Doe, Jane\",1,1,1,0,Changeup,InPlay,81.96,9.9,-12.3,1800\n"

const taggedCSV = "Date,Pitcher,Hitter,Inning,Count,#\n" +
	"05/11/2024,\"Smith, J.\",\"Doe, J.\",T1,0-0,1\n" +
	"05/11/2024,\"Smith, J.\",\"Doe, J.\",T1,0-1,2\n" +
	"05/11/2024,\"Smith, J.\",\"Doe, J.\",T1,1-1,3\n"

type fakeRunner struct {
	mu    sync.Mutex
	calls [][]string
}

func (f *fakeRunner) Run(_ context.Context, _ string, args []string, _ render.RunOptions) (render.RunResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, args)
	f.mu.Unlock()
	return render.RunResult{}, os.WriteFile(args[len(args)-1], []byte("video"), 0o644)
}

func setupProject(t *testing.T, tracking, tagged string, clipNames ...string) (config.Config, paths.ProjectPaths) {
	t.Helper()
	root := t.TempDir()
	write := func(rel, data string) {
		t.Helper()
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}
	write("tracking.csv", tracking)
	write("tagged.csv", tagged)
	for _, name := range clipNames {
		write(filepath.Join("clips", name), "raw")
	}
	write("bonus/A.mp4", "raw")
	write("bonus/B.mp4", "raw")

	cfg := config.Default()
	cfg.Clips.Extra = []string{"bonus"}

	pp, err := paths.Resolve(root)
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	return cfg, paths.ApplyConfig(pp, cfg)
}

func TestLinkEndToEndCountMode(t *testing.T) {
	cfg, pp := setupProject(t, trackingCSV, taggedCSV)

	linkage, err := Link(context.Background(), cfg, pp, nil)
	if err != nil {
		t.Fatalf("Link error: %v", err)
	}
	summary := linkage.Summary()
	if !summary.Complete || summary.Joined != 3 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if len(linkage.Dropped) != 1 || linkage.Dropped[0].Line != 3 {
		t.Fatalf("expected the dateless row to be dropped, got %+v", linkage.Dropped)
	}
	rec := linkage.Result.Records[2]
	if rec.Outcome != "InPlay" || rec.Velocity != 81.96 {
		t.Fatalf("tracking fields not carried through: %+v", rec)
	}
}

func TestLinkIncompleteStopsUnlessConfigured(t *testing.T) {
	partial := strings.Join(strings.Split(trackingCSV, "\n")[:3], "\n") + "\n"
	cfg, pp := setupProject(t, partial, taggedCSV)

	linkage, err := Link(context.Background(), cfg, pp, nil)
	var incomplete *link.LinkageIncompleteError
	if !errors.As(err, &incomplete) {
		t.Fatalf("expected LinkageIncompleteError, got %v", err)
	}
	if linkage == nil || linkage.Summary().Deficit != 2 {
		t.Fatalf("expected linkage with deficit 2 to be returned, got %+v", linkage)
	}

	cfg.Link.ProceedOnIncomplete = true
	linkage, err = Link(context.Background(), cfg, pp, nil)
	if err != nil {
		t.Fatalf("expected to proceed, got %v", err)
	}
	if linkage.Incomplete == nil || linkage.Incomplete.Deficit != 2 {
		t.Fatalf("expected deficit to stay visible, got %+v", linkage.Incomplete)
	}
}

func TestLinkUnevenRepeatedKeysAreNotPairedSilently(t *testing.T) {
	tracking := "Date,Pitcher,Batter,Inning,Balls,Strikes,Outs,TaggedPitchType,PitchCall,RelSpeed\n" +
		"2024-05-11,\"Smith, John\",\"Doe, Jane\",1,0,2,0,Fastball,FoulA,90\n" +
		"2024-05-11,\"Smith, John\",\"Doe, Jane\",1,0,2,0,Fastball,FoulB,91\n" +
		"2024-05-11,\"Smith, John\",\"Doe, Jane\",1,0,2,0,Slider,StrikeoutC,92\n"
	tagged := "Date,Pitcher,Hitter,Inning,Count,#\n" +
		"05/11/2024,\"Smith, J.\",\"Doe, J.\",T1,0-2,2\n" +
		"05/11/2024,\"Smith, J.\",\"Doe, J.\",T1,0-2,3\n"
	cfg, pp := setupProject(t, tracking, tagged)

	linkage, err := Link(context.Background(), cfg, pp, nil)
	var incomplete *link.LinkageIncompleteError
	if !errors.As(err, &incomplete) {
		t.Fatalf("expected LinkageIncompleteError, got %v", err)
	}
	summary := linkage.Summary()
	if summary.Complete || summary.Joined != 0 || summary.Deficit != 2 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if len(incomplete.Ambiguous) != 2 {
		t.Fatalf("expected both clips flagged ambiguous, got %+v", incomplete.Ambiguous)
	}
}

func TestLinkMalformedInningAborts(t *testing.T) {
	bad := strings.Replace(taggedCSV, "T1,0-1", "Top,0-1", 1)
	cfg, pp := setupProject(t, trackingCSV, bad)

	linkage, err := Link(context.Background(), cfg, pp, nil)
	if err == nil || linkage != nil {
		t.Fatalf("expected abort with no linkage, got %v / %+v", err, linkage)
	}
	if !strings.Contains(err.Error(), "inning") {
		t.Fatalf("expected inning in error, got %v", err)
	}
}

func TestBuildPlanResolvesAndSequences(t *testing.T) {
	cfg, pp := setupProject(t, trackingCSV, taggedCSV, "3_clip.mp4", "1_clip.mp4", "2_clip.mov", "4_clip.mp4", "intro.mp4", "notes.txt")

	plan, err := BuildPlan(context.Background(), cfg, pp, nil)
	if err != nil {
		t.Fatalf("BuildPlan error: %v", err)
	}
	if len(plan.Resolved()) != 3 {
		t.Fatalf("expected 3 resolved clips, got %+v", plan.Resolutions)
	}
	unresolved := plan.Unresolved()
	var cre *clips.ClipResolutionError
	if len(unresolved) != 1 || !errors.As(unresolved[0].Err, &cre) || cre.File != "4_clip.mp4" {
		t.Fatalf("expected 4_clip.mp4 to be unresolved, got %+v", unresolved)
	}
	if len(plan.Unnumbered) != 1 || plan.Unnumbered[0].Name != "intro.mp4" {
		t.Fatalf("unexpected unnumbered %+v", plan.Unnumbered)
	}
	if len(plan.Listing.Skipped) != 1 {
		t.Fatalf("expected notes.txt to be skipped, got %+v", plan.Listing.Skipped)
	}

	var names []string
	for _, e := range plan.Sequence {
		names = append(names, filepath.Base(e.Path))
	}
	want := "1_clip_edited.mp4 2_clip_edited.mp4 3_clip_edited.mp4 A.mp4 B.mp4"
	if strings.Join(names, " ") != want {
		t.Fatalf("unexpected sequence %v", names)
	}
}

func TestRunAnnotatesAndConcatenates(t *testing.T) {
	cfg, pp := setupProject(t, trackingCSV, taggedCSV, "1_clip.mp4", "2_clip.mp4", "3_clip.mp4", "4_clip.mp4")
	plan, err := BuildPlan(context.Background(), cfg, pp, nil)
	if err != nil {
		t.Fatalf("BuildPlan error: %v", err)
	}

	runner := &fakeRunner{}
	report, err := Run(context.Background(), plan, RunOptions{FFmpeg: "ffmpeg", Runner: runner}, nil)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if report.Combined == nil || report.Combined.OutputPath != pp.CombinedFile {
		t.Fatalf("expected combined output, got %+v", report.Combined)
	}
	if _, err := os.Stat(pp.CombinedFile); err != nil {
		t.Fatalf("combined file missing: %v", err)
	}
	// three clip encodes plus one stream-copy concat
	if len(runner.calls) != 4 {
		t.Fatalf("expected 4 encoder calls, got %d", len(runner.calls))
	}
	for _, call := range runner.calls[:3] {
		if strings.Contains(strings.Join(call, " "), "4_clip") {
			t.Fatal("unresolved clip must never be annotated")
		}
	}

	counts := report.Counts()
	if counts[ledger.ClipAnnotated] != 3 || counts[ledger.ClipUnresolved] != 1 {
		t.Fatalf("unexpected counts %v", counts)
	}
	if report.Status() != ledger.StatusPartial {
		t.Fatalf("expected partial status, got %s", report.Status())
	}
	if len(report.Sequence) != 5 || report.Sequence[0].Number != 1 {
		t.Fatalf("unexpected sequence %+v", report.Sequence)
	}

	entry := report.LedgerRun()
	if entry.ID != report.RunID || entry.Annotated != 3 || len(entry.Clips) != 4 || entry.Output != pp.CombinedFile {
		t.Fatalf("unexpected ledger entry %+v", entry)
	}
}

func TestRunIncludesUnannotatedWhenConfigured(t *testing.T) {
	cfg, pp := setupProject(t, trackingCSV, taggedCSV, "1_clip.mp4", "5_clip.mp4")
	cfg.Output.IncludeUnannotated = true
	plan, err := BuildPlan(context.Background(), cfg, pp, nil)
	if err != nil {
		t.Fatalf("BuildPlan error: %v", err)
	}

	report, err := Run(context.Background(), plan, RunOptions{FFmpeg: "ffmpeg", Runner: &fakeRunner{}, SkipConcat: true}, nil)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(report.Sequence) != 4 || filepath.Base(report.Sequence[1].Path) != "5_clip.mp4" {
		t.Fatalf("expected raw clip 5 after annotated clip 1, got %+v", report.Sequence)
	}
	if report.Counts()[ledger.ClipRaw] != 1 {
		t.Fatalf("expected one raw clip, got %v", report.Counts())
	}
}

func TestRunRefusesWhenLocked(t *testing.T) {
	cfg, pp := setupProject(t, trackingCSV, taggedCSV, "1_clip.mp4")
	plan, err := BuildPlan(context.Background(), cfg, pp, nil)
	if err != nil {
		t.Fatalf("BuildPlan error: %v", err)
	}
	if err := pp.EnsureMetaDirs(); err != nil {
		t.Fatalf("EnsureMetaDirs: %v", err)
	}

	held := flock.New(pp.LockFile)
	if ok, err := held.TryLock(); err != nil || !ok {
		t.Fatalf("could not take lock: %v", err)
	}
	defer held.Unlock()

	if _, err := Run(context.Background(), plan, RunOptions{FFmpeg: "ffmpeg", Runner: &fakeRunner{}}, nil); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
}

func TestHeaderAliasesMergeWithDefaults(t *testing.T) {
	aliases := headerAliases(map[string]string{" Speed ": "RelSpeed"})
	if aliases["speed"] != "relspeed" {
		t.Fatalf("expected custom alias, got %v", aliases)
	}
	if aliases["velo"] != "relspeed" {
		t.Fatalf("expected default alias to remain, got %v", aliases)
	}
}
