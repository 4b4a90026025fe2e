package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"pitchsync/internal/config"
	"pitchsync/internal/keys"
	"pitchsync/internal/ledger"
	"pitchsync/internal/logx"
	"pitchsync/internal/paths"
)

// overrideFlags are the per-invocation replacements for config values.
type overrideFlags struct {
	mode     string
	tracking string
	tagged   string
	clips    string
	extra    []string
	out      string
}

var overrides overrideFlags

func addOverrideFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&overrides.mode, "mode", "", "Key mode: "+keys.ModeNames())
	f.StringVar(&overrides.tracking, "tracking", "", "Tracking CSV export")
	f.StringVar(&overrides.tagged, "tagged", "", "Tagged CSV export")
	f.StringVar(&overrides.clips, "clips", "", "Directory of numbered clips")
	f.StringSliceVar(&overrides.extra, "extra", nil, "Bonus footage directory appended after the clips (repeatable)")
	f.StringVar(&overrides.out, "out", "", "Output directory for annotated clips")
}

func (o overrideFlags) apply(cfg *config.Config) {
	if v := strings.TrimSpace(o.mode); v != "" {
		cfg.Link.Mode = v
	}
	if v := strings.TrimSpace(o.tracking); v != "" {
		cfg.Inputs.Tracking = v
	}
	if v := strings.TrimSpace(o.tagged); v != "" {
		cfg.Inputs.Tagged = v
	}
	if v := strings.TrimSpace(o.clips); v != "" {
		cfg.Clips.Dir = v
	}
	if len(o.extra) > 0 {
		cfg.Clips.Extra = append([]string(nil), o.extra...)
	}
	if v := strings.TrimSpace(o.out); v != "" {
		cfg.Output.Dir = v
	}
}

// session bundles what every pipeline command needs.
type session struct {
	pp     paths.ProjectPaths
	cfg    config.Config
	logger *slog.Logger
	closer io.Closer
}

func openSession() (*session, error) {
	pp, err := paths.Resolve(projectDir)
	if err != nil {
		return nil, err
	}
	exists, err := paths.DirExists(pp.Root)
	if err != nil {
		return nil, fmt.Errorf("stat project dir: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("project directory does not exist: %s", pp.Root)
	}

	cfg, err := config.Load(pp.ConfigFile)
	if err != nil {
		return nil, err
	}
	overrides.apply(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	pp = paths.ApplyConfig(pp, cfg)

	logger, closer, err := logx.New(pp, cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	logger.Info("session opened", "root", pp.Root, "config", pp.Rel(pp.ConfigFile), "mode", cfg.Link.Mode)
	return &session{pp: pp, cfg: cfg, logger: logger, closer: closer}, nil
}

func (s *session) Close() {
	if s.closer != nil {
		_ = s.closer.Close()
	}
}

// record appends run to the project ledger. Ledger failures are logged and
// reported as warnings; they never fail the command.
func (s *session) record(ctx context.Context, cmd *cobra.Command, run ledger.Run) string {
	store, err := ledger.Open(ctx, s.pp.LedgerFile)
	if err != nil {
		s.logger.Warn("ledger unavailable", "error", err)
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: ledger unavailable: %v\n", err)
		return ""
	}
	defer store.Close()
	id, err := store.RecordRun(ctx, run)
	if err != nil {
		s.logger.Warn("ledger write failed", "error", err)
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: ledger write failed: %v\n", err)
		return ""
	}
	s.logger.Info("run recorded", "id", id, "command", run.Command, "status", run.Status)
	return id
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
