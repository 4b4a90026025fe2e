package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"pitchsync/internal/link"
	"pitchsync/internal/overlay"
	"pitchsync/internal/pipeline"
	"pitchsync/internal/tui"
)

func newLinkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "link",
		Short: "Join the tracking and tagged exports and report the outcome",
		RunE:  runLink,
	}
	addOverrideFlags(cmd)
	return cmd
}

type linkedRecordJSON struct {
	Clip      int      `json:"clip"`
	Key       string   `json:"key"`
	Pitcher   string   `json:"pitcher"`
	Batter    string   `json:"batter"`
	Inning    int      `json:"inning"`
	Count     string   `json:"count"`
	Outs      int      `json:"outs"`
	PitchType string   `json:"pitch_type"`
	Result    string   `json:"result"`
	Velocity  float64  `json:"velocity"`
	IVB       float64  `json:"induced_vert_break"`
	HB        float64  `json:"horz_break"`
	SpinRate  float64  `json:"spin_rate"`
	Missing   []string `json:"missing,omitempty"`
}

type unmatchedJSON struct {
	Clip      int    `json:"clip"`
	Line      int    `json:"line"`
	Key       string `json:"key"`
	Ambiguity string `json:"ambiguity,omitempty"`
}

type droppedJSON struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

type linkReportJSON struct {
	RunID     string             `json:"run_id,omitempty"`
	Mode      string             `json:"mode"`
	Summary   link.Summary       `json:"summary"`
	Warnings  []string           `json:"warnings,omitempty"`
	Dropped   []droppedJSON      `json:"dropped,omitempty"`
	Unmatched []unmatchedJSON    `json:"unmatched,omitempty"`
	Records   []linkedRecordJSON `json:"records"`
	Error     string             `json:"error,omitempty"`
}

func runLink(cmd *cobra.Command, _ []string) error {
	sess, err := openSession()
	if err != nil {
		return err
	}
	defer sess.Close()
	ctx := commandContext(cmd)

	started := time.Now()
	linkage, linkErr := pipeline.Link(ctx, sess.cfg, sess.pp, sess.logger)
	if linkage == nil {
		return linkErr
	}

	run := pipeline.LinkageLedgerRun(linkage, "link")
	run.StartedAt = started
	run.FinishedAt = time.Now()
	if linkErr != nil {
		run.Error = linkErr.Error()
	}
	runID := sess.record(ctx, cmd, run)

	report := newLinkReport(linkage, linkErr)
	report.RunID = runID
	if outputJSON {
		if err := writeJSON(cmd.OutOrStdout(), report); err != nil {
			return err
		}
	} else {
		printLinkReport(cmd.OutOrStdout(), report)
	}
	return linkErr
}

func newLinkReport(l *pipeline.Linkage, linkErr error) linkReportJSON {
	report := linkReportJSON{
		Mode:     l.Mode.String(),
		Summary:  l.Summary(),
		Warnings: l.Warnings,
		Records:  make([]linkedRecordJSON, 0, len(l.Result.Records)),
	}
	for _, d := range l.Dropped {
		report.Dropped = append(report.Dropped, droppedJSON{Line: d.Line, Reason: d.Reason})
	}
	for _, tag := range l.Result.Unmatched {
		u := unmatchedJSON{Clip: tag.Clip, Line: tag.Row.Line, Key: tag.Key}
		if a, ok := l.Result.AmbiguityFor(tag.Clip); ok {
			u.Ambiguity = a.String()
		}
		report.Unmatched = append(report.Unmatched, u)
	}
	for _, rec := range l.Result.Records {
		report.Records = append(report.Records, linkedRecordJSON{
			Clip:      rec.ClipSeq,
			Key:       rec.Key,
			Pitcher:   rec.Pitcher,
			Batter:    rec.Batter,
			Inning:    rec.Inning,
			Count:     fmt.Sprintf("%d-%d", rec.Balls, rec.Strikes),
			Outs:      rec.Outs,
			PitchType: rec.PitchType,
			Result:    rec.Outcome,
			Velocity:  overlay.Round1(rec.Velocity),
			IVB:       overlay.Round1(rec.InducedVertBreak),
			HB:        overlay.Round1(rec.HorzBreak),
			SpinRate:  rec.SpinRate,
			Missing:   rec.Missing,
		})
	}
	var incomplete *link.LinkageIncompleteError
	if linkErr != nil && errors.As(linkErr, &incomplete) {
		report.Error = fmt.Sprintf("linkage incomplete: %d tagged rows unmatched", incomplete.Deficit)
	}
	return report
}

func printLinkReport(out io.Writer, r linkReportJSON) {
	s := r.Summary
	complete := "yes"
	if !s.Complete {
		complete = fmt.Sprintf("no (%d missing)", s.Deficit)
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Mode", "Tracking", "Dropped", "Tagged", "Joined", "Complete"},
		[][]string{{r.Mode, strconv.Itoa(s.Tracking), strconv.Itoa(len(r.Dropped)), strconv.Itoa(s.Tagged), strconv.Itoa(s.Joined), complete}},
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight},
	))

	if len(r.Records) > 0 {
		rows := make([][]string, 0, len(r.Records))
		for _, rec := range r.Records {
			rows = append(rows, []string{
				strconv.Itoa(rec.Clip),
				rec.Pitcher,
				rec.Batter,
				strconv.Itoa(rec.Inning),
				rec.Count,
				tui.OrDash(rec.PitchType),
				tui.OrDash(rec.Result),
				strconv.FormatFloat(rec.Velocity, 'f', 1, 64),
			})
		}
		fmt.Fprintln(out, renderTable(
			[]string{"Clip", "Pitcher", "Batter", "Inn", "Count", "Type", "Result", "Velo"},
			rows,
			[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignLeft, alignRight},
		))
	}

	for _, d := range r.Dropped {
		fmt.Fprintf(out, "dropped tracking line %d: %s\n", d.Line, d.Reason)
	}
	for _, w := range r.Warnings {
		fmt.Fprintf(out, "warning: %s\n", w)
	}
	for _, u := range r.Unmatched {
		if u.Ambiguity != "" {
			fmt.Fprintf(out, "ambiguous: clip %d (tagged line %d) %s\n", u.Clip, u.Line, u.Ambiguity)
			continue
		}
		fmt.Fprintf(out, "unmatched: clip %d (tagged line %d) key %s\n", u.Clip, u.Line, u.Key)
	}
	if r.RunID != "" {
		fmt.Fprintf(out, "recorded as %s\n", shortID(r.RunID))
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
