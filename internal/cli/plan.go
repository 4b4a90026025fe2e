package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"pitchsync/internal/ledger"
	"pitchsync/internal/overlay"
	"pitchsync/internal/pipeline"
)

func newPlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show which clip gets which overlay and the final order, without encoding",
		RunE:  runPlan,
	}
	addOverrideFlags(cmd)
	return cmd
}

type planClipJSON struct {
	Number  int      `json:"number"`
	File    string   `json:"file"`
	Key     string   `json:"key,omitempty"`
	Output  string   `json:"output,omitempty"`
	Overlay []string `json:"overlay,omitempty"`
	Error   string   `json:"error,omitempty"`
}

type planSequenceJSON struct {
	Path   string `json:"path"`
	Group  string `json:"group"`
	Number int    `json:"number,omitempty"`
}

type planReportJSON struct {
	RunID      string             `json:"run_id,omitempty"`
	Link       linkReportJSON     `json:"link"`
	ClipsDir   string             `json:"clips_dir"`
	Clips      []planClipJSON     `json:"clips"`
	Unnumbered []string           `json:"unnumbered,omitempty"`
	Skipped    []string           `json:"skipped,omitempty"`
	Sequence   []planSequenceJSON `json:"sequence"`
	Combined   string             `json:"combined"`
}

func runPlan(cmd *cobra.Command, _ []string) error {
	sess, err := openSession()
	if err != nil {
		return err
	}
	defer sess.Close()
	ctx := commandContext(cmd)

	started := time.Now()
	plan, err := pipeline.BuildPlan(ctx, sess.cfg, sess.pp, sess.logger)
	if err != nil {
		return err
	}

	run := pipeline.PlanLedgerRun(plan, "plan")
	run.StartedAt = started
	run.FinishedAt = time.Now()
	report := newPlanReport(plan)
	report.RunID = sess.record(ctx, cmd, run)

	if outputJSON {
		return writeJSON(cmd.OutOrStdout(), report)
	}
	printPlanReport(cmd.OutOrStdout(), report)
	return nil
}

func newPlanReport(plan *pipeline.Plan) planReportJSON {
	pp := plan.Paths
	report := planReportJSON{
		Link:     newLinkReport(plan.Linkage, nil),
		ClipsDir: pp.Rel(pp.ClipsDir),
		Clips:    make([]planClipJSON, 0, len(plan.Resolutions)),
		Sequence: make([]planSequenceJSON, 0, len(plan.Sequence)),
		Combined: pp.Rel(pp.CombinedFile),
	}
	if plan.Incomplete != nil {
		report.Link.Error = fmt.Sprintf("linkage incomplete: %d tagged rows unmatched", plan.Incomplete.Deficit)
	}
	for _, res := range plan.Resolutions {
		clip := planClipJSON{Number: res.Number, File: res.File.Name}
		if res.Resolved() {
			spec := overlay.Format(res.Record)
			clip.Key = res.Record.Key
			clip.Output = pp.Rel(plan.OutputPath(res.File.Path))
			clip.Overlay = []string{spec.Left, spec.Right}
		} else {
			clip.Error = res.Err.Error()
		}
		report.Clips = append(report.Clips, clip)
	}
	for _, f := range plan.Unnumbered {
		report.Unnumbered = append(report.Unnumbered, f.Name)
	}
	for _, skip := range plan.Listing.Skipped {
		report.Skipped = append(report.Skipped, filepath.Base(skip.Path))
	}
	for _, e := range plan.Sequence {
		report.Sequence = append(report.Sequence, planSequenceJSON{Path: pp.Rel(e.Path), Group: e.Group, Number: e.Number})
	}
	return report
}

func printPlanReport(out io.Writer, r planReportJSON) {
	printLinkReport(out, linkReportJSON{Mode: r.Link.Mode, Summary: r.Link.Summary, Dropped: r.Link.Dropped, Unmatched: r.Link.Unmatched, Warnings: r.Link.Warnings})

	rows := make([][]string, 0, len(r.Clips))
	for _, c := range r.Clips {
		status := ledger.ClipPlanned
		detail := c.Output
		if c.Error != "" {
			status = ledger.ClipUnresolved
			detail = c.Error
		}
		rows = append(rows, []string{strconv.Itoa(c.Number), c.File, status, detail})
	}
	fmt.Fprintf(out, "Clips in %s\n", r.ClipsDir)
	fmt.Fprintln(out, renderTable([]string{"#", "File", "Status", "Output / reason"}, rows, []columnAlignment{alignRight}))

	seq := make([][]string, 0, len(r.Sequence))
	for i, e := range r.Sequence {
		seq = append(seq, []string{strconv.Itoa(i + 1), e.Group, e.Path})
	}
	fmt.Fprintf(out, "Sequence for %s\n", r.Combined)
	fmt.Fprintln(out, renderTable([]string{"#", "Group", "Path"}, seq, []columnAlignment{alignRight}))

	for _, name := range r.Unnumbered {
		fmt.Fprintf(out, "ignored (no clip number): %s\n", name)
	}
	for _, name := range r.Skipped {
		fmt.Fprintf(out, "skipped (not media): %s\n", name)
	}
	if r.RunID != "" {
		fmt.Fprintf(out, "recorded as %s\n", shortID(r.RunID))
	}
}
