package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"pitchsync/internal/ledger"
	"pitchsync/internal/paths"
	"pitchsync/internal/tui"
)

var historyLimit int

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List recorded runs, or show one run's clips",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runHistory,
	}
	cmd.Flags().IntVar(&historyLimit, "limit", 20, "Number of runs to list (0 for all)")
	return cmd
}

func runHistory(cmd *cobra.Command, args []string) error {
	pp, err := paths.Resolve(projectDir)
	if err != nil {
		return err
	}
	ok, err := paths.FileExists(pp.LedgerFile)
	if err != nil {
		return err
	}
	if !ok {
		if outputJSON {
			return writeJSON(cmd.OutOrStdout(), []ledger.Run{})
		}
		fmt.Fprintln(cmd.OutOrStdout(), "no runs recorded yet")
		return nil
	}

	ctx := commandContext(cmd)
	store, err := ledger.Open(ctx, pp.LedgerFile)
	if err != nil {
		return err
	}
	defer store.Close()

	if len(args) == 1 {
		run, err := store.Run(ctx, args[0])
		if err != nil {
			return err
		}
		if outputJSON {
			return writeJSON(cmd.OutOrStdout(), run)
		}
		printRunDetail(cmd, run)
		return nil
	}

	runs, err := store.Runs(ctx, historyLimit)
	if err != nil {
		return err
	}
	if outputJSON {
		if runs == nil {
			runs = []ledger.Run{}
		}
		return writeJSON(cmd.OutOrStdout(), runs)
	}

	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			shortID(r.ID),
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.Command,
			r.Mode,
			fmt.Sprintf("%d/%d", r.Joined, r.Tagged),
			strconv.Itoa(r.Annotated),
			strconv.Itoa(r.Failed),
			r.Status,
		})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(
		[]string{"ID", "Started", "Command", "Mode", "Joined", "Annotated", "Failed", "Status"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight},
	))
	return nil
}

func printRunDetail(cmd *cobra.Command, r ledger.Run) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run %s (%s, %s mode) %s\n", r.ID, r.Command, r.Mode, r.Status)
	fmt.Fprintf(out, "started %s, finished %s\n",
		r.StartedAt.Local().Format("2006-01-02 15:04:05"),
		r.FinishedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "tracking %d, dropped %d, tagged %d, joined %d\n", r.Tracking, r.Dropped, r.Tagged, r.Joined)
	if r.Output != "" {
		fmt.Fprintf(out, "output %s\n", r.Output)
	}
	if r.Error != "" {
		fmt.Fprintf(out, "error: %s\n", r.Error)
	}
	if len(r.Clips) == 0 {
		return
	}
	rows := make([][]string, 0, len(r.Clips))
	for _, c := range r.Clips {
		detail := c.Error
		if detail == "" {
			detail = c.Output
		}
		rows = append(rows, []string{strconv.Itoa(c.Number), c.File, c.Status, tui.OrDash(detail)})
	}
	fmt.Fprintln(out, renderTable([]string{"#", "File", "Status", "Output / reason"}, rows, []columnAlignment{alignRight}))
}
