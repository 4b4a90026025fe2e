package paths

import (
	"os"
	"path/filepath"
	"testing"

	"pitchsync/internal/config"
)

func TestResolveFindsTOMLConfig(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "pitchsync.toml"), nil, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	pp, err := Resolve(root)
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if pp.ConfigFile != filepath.Join(root, "pitchsync.toml") {
		t.Fatalf("expected toml config, got %s", pp.ConfigFile)
	}
	if pp.LedgerFile != filepath.Join(root, ".pitchsync", "ledger.db") {
		t.Fatalf("unexpected ledger path %s", pp.LedgerFile)
	}
}

func TestResolveDefaultsToYAML(t *testing.T) {
	root := t.TempDir()
	pp, err := Resolve(root)
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if pp.ConfigFile != filepath.Join(root, "pitchsync.yaml") {
		t.Fatalf("expected yaml default, got %s", pp.ConfigFile)
	}
}

func TestApplyConfigRelative(t *testing.T) {
	root := t.TempDir()
	pp := newProjectPaths(root)

	cfg := config.Default()
	cfg.Inputs.Tracking = "game/trackman.csv"
	cfg.Clips.Extra = []string{"bonus", " "}

	applied := ApplyConfig(pp, cfg)

	if applied.TrackingFile != filepath.Join(root, "game/trackman.csv") {
		t.Fatalf("unexpected tracking path %s", applied.TrackingFile)
	}
	if applied.ClipsDir != filepath.Join(root, "clips") {
		t.Fatalf("unexpected clips dir %s", applied.ClipsDir)
	}
	if len(applied.ExtraDirs) != 1 || applied.ExtraDirs[0] != filepath.Join(root, "bonus") {
		t.Fatalf("unexpected extra dirs %v", applied.ExtraDirs)
	}
	if applied.CombinedFile != filepath.Join(root, "out", "combined.mp4") {
		t.Fatalf("unexpected combined path %s", applied.CombinedFile)
	}
}

func TestApplyConfigAbsolute(t *testing.T) {
	root := t.TempDir()
	other := t.TempDir()
	pp := newProjectPaths(root)

	cfg := config.Default()
	cfg.Inputs.Tagged = filepath.Join(other, "synergy.csv")
	cfg.Output.Combined = filepath.Join(other, "final.mp4")

	applied := ApplyConfig(pp, cfg)
	if applied.TaggedFile != filepath.Join(other, "synergy.csv") {
		t.Fatalf("expected absolute tagged path, got %s", applied.TaggedFile)
	}
	if applied.CombinedFile != filepath.Join(other, "final.mp4") {
		t.Fatalf("expected absolute combined path, got %s", applied.CombinedFile)
	}
}

func TestRel(t *testing.T) {
	pp := newProjectPaths("/game")
	if got := pp.Rel("/game/out/1_edited.mp4"); got != filepath.Join("out", "1_edited.mp4") {
		t.Fatalf("unexpected rel path %s", got)
	}
	if got := pp.Rel("/elsewhere/x.mp4"); got != "/elsewhere/x.mp4" {
		t.Fatalf("expected path outside root unchanged, got %s", got)
	}
}

func TestEnsureMetaDirs(t *testing.T) {
	root := t.TempDir()
	pp := ApplyConfig(newProjectPaths(root), config.Default())
	if err := pp.EnsureMetaDirs(); err != nil {
		t.Fatalf("EnsureMetaDirs error: %v", err)
	}
	for _, dir := range []string{pp.MetaDir, pp.ClipLogsDir, pp.OutputDir} {
		if ok, err := DirExists(dir); err != nil || !ok {
			t.Fatalf("expected %s to exist (err=%v)", dir, err)
		}
	}
}
