package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"pitchsync/internal/ledger"
	"pitchsync/internal/pipeline"
	"pitchsync/internal/tui"
)

var (
	runForce       bool
	runConcurrency int
	runSkipConcat  bool
	runNoProgress  bool
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Annotate every resolved clip and concatenate the results",
		RunE:  runRun,
	}
	addOverrideFlags(cmd)
	cmd.Flags().BoolVar(&runForce, "force", false, "Re-encode clips whose output already exists")
	cmd.Flags().IntVar(&runConcurrency, "concurrency", 0, "Parallel encoder processes (default from config)")
	cmd.Flags().BoolVar(&runSkipConcat, "skip-concat", false, "Annotate clips but do not build the combined video")
	cmd.Flags().BoolVar(&runNoProgress, "no-progress", false, "Print plain progress lines instead of the live table")
	return cmd
}

type runClipJSON struct {
	Number int    `json:"number"`
	File   string `json:"file"`
	Status string `json:"status"`
	Output string `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
}

type runReportJSON struct {
	RunID    string         `json:"run_id"`
	Status   string         `json:"status"`
	Counts   map[string]int `json:"counts"`
	Clips    []runClipJSON  `json:"clips"`
	Combined string         `json:"combined,omitempty"`
	Method   string         `json:"method,omitempty"`
	Error    string         `json:"error,omitempty"`
}

func runRun(cmd *cobra.Command, _ []string) error {
	sess, err := openSession()
	if err != nil {
		return err
	}
	defer sess.Close()

	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	errOut := cmd.ErrOrStderr()
	mode := tui.DetectMode(errOut, runNoProgress, outputJSON)

	var status *tui.StatusLine
	if mode == tui.ModeTUI {
		status = tui.NewStatusLine(errOut)
		status.Phase("linking exports")
	}
	plan, err := pipeline.BuildPlan(ctx, sess.cfg, sess.pp, sess.logger)
	if status != nil {
		status.Stop()
	}
	if err != nil {
		return err
	}

	opts := pipeline.RunOptions{
		RunID:       ledger.NewRunID(),
		Force:       runForce,
		Concurrency: runConcurrency,
		SkipConcat:  runSkipConcat,
	}

	var (
		report *pipeline.Report
		runErr error
	)
	switch mode {
	case tui.ModeTUI:
		model := tui.NewProgressModel("pitchsync run "+shortID(opts.RunID), tui.ClipColumns())
		for _, res := range plan.Resolved() {
			model.AddRow(tui.RowKey(res.Number, res.File.Path), strconv.Itoa(res.Number), res.File.Name, tui.StatusPending)
		}
		done := make(chan struct{})
		tuiErr := tui.RunWithWork(errOut, model, func(send func(tea.Msg)) error {
			defer close(done)
			opts.Reporter = tui.NewTableReporter(send)
			opts.Stderr = io.Discard
			report, runErr = pipeline.Run(ctx, plan, opts, sess.logger)
			return runErr
		})
		if errors.Is(tuiErr, tui.ErrInterrupted) {
			cancel()
		}
		<-done
	case tui.ModePlain:
		opts.Reporter = tui.NewLineReporter(errOut)
		report, runErr = pipeline.Run(ctx, plan, opts, sess.logger)
	default:
		report, runErr = pipeline.Run(ctx, plan, opts, sess.logger)
	}

	if report == nil {
		return runErr
	}
	sess.record(context.WithoutCancel(ctx), cmd, report.LedgerRun())

	summary := newRunReport(report)
	if outputJSON {
		if err := writeJSON(cmd.OutOrStdout(), summary); err != nil {
			return err
		}
	} else {
		printRunReport(cmd.OutOrStdout(), summary, plan.Paths.Rel)
	}

	if runErr != nil {
		return runErr
	}
	if failed := summary.Counts[ledger.ClipFailed]; failed > 0 {
		return fmt.Errorf("%d clips failed to annotate; see %s", failed, plan.Paths.Rel(plan.Paths.ClipLogsDir))
	}
	return nil
}

func newRunReport(r *pipeline.Report) runReportJSON {
	out := runReportJSON{
		RunID:  r.RunID,
		Status: r.Status(),
		Counts: r.Counts(),
		Clips:  make([]runClipJSON, 0, len(r.Clips)),
	}
	for _, c := range r.Clips {
		clip := runClipJSON{Number: c.Number, File: c.File, Status: c.Status, Output: c.Output}
		if c.Err != nil {
			clip.Error = c.Err.Error()
		}
		out.Clips = append(out.Clips, clip)
	}
	if r.Combined != nil {
		out.Combined = r.Combined.OutputPath
		out.Method = r.Combined.Method
	}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}
	return out
}

func printRunReport(out io.Writer, r runReportJSON, rel func(string) string) {
	rows := make([][]string, 0, len(r.Clips))
	for _, c := range r.Clips {
		detail := c.Error
		if detail == "" && c.Output != "" {
			detail = filepath.Base(c.Output)
		}
		rows = append(rows, []string{strconv.Itoa(c.Number), c.File, c.Status, tui.OrDash(detail)})
	}
	fmt.Fprintln(out, renderTable([]string{"#", "File", "Status", "Output / reason"}, rows, []columnAlignment{alignRight}))
	fmt.Fprintf(out, "run %s: %s (annotated %d, skipped %d, failed %d, unresolved %d)\n",
		shortID(r.RunID), r.Status,
		r.Counts[ledger.ClipAnnotated], r.Counts[ledger.ClipSkipped], r.Counts[ledger.ClipFailed],
		r.Counts[ledger.ClipUnresolved]+r.Counts[ledger.ClipRaw])
	if r.Combined != "" {
		fmt.Fprintf(out, "combined video: %s (%s)\n", rel(r.Combined), r.Method)
	}
}
