package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"pitchsync/internal/clips"
	"pitchsync/internal/config"
	"pitchsync/internal/ledger"
	"pitchsync/internal/paths"
	"pitchsync/internal/render"
	"pitchsync/internal/tools"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check tools, configuration and inputs",
		RunE:  runDoctor,
	}
}

const (
	checkOK      = "ok"
	checkWarning = "warning"
	checkError   = "error"
)

type healthCheck struct {
	Name    string   `json:"name"`
	Status  string   `json:"status"`
	Summary string   `json:"summary"`
	Hints   []string `json:"hints,omitempty"`
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	pp, err := paths.Resolve(projectDir)
	if err != nil {
		return err
	}
	exists, err := paths.DirExists(pp.Root)
	if err != nil {
		return fmt.Errorf("stat project dir: %w", err)
	}
	if !exists {
		return fmt.Errorf("project directory does not exist: %s", pp.Root)
	}

	cfg, cfgErr := config.Load(pp.ConfigFile)
	if cfgErr == nil {
		cfgErr = cfg.Validate()
	}

	var checks []healthCheck
	checks = append(checks, checkTools(cmd, cfg.Encoding.FFmpeg)...)
	checks = append(checks, checkConfig(pp, cfgErr))
	if cfgErr != nil {
		return writeDoctorResult(cmd, pp.Root, checks)
	}

	pp = paths.ApplyConfig(pp, cfg)
	checks = append(checks,
		checkInput("Tracking", pp, pp.TrackingFile),
		checkInput("Tagged", pp, pp.TaggedFile),
		checkClips(pp, cfg),
		checkMedia(cmd, pp, cfg),
		checkLedger(cmd, pp),
	)
	return writeDoctorResult(cmd, pp.Root, checks)
}

func checkTools(cmd *cobra.Command, ffmpegOverride string) []healthCheck {
	var checks []healthCheck
	for _, st := range tools.Detect(cmd.Context(), ffmpegOverride) {
		check := healthCheck{Name: st.Tool, Status: checkOK, Summary: st.Version, Hints: st.Hints}
		if !st.Satisfied {
			check.Status = checkError
			check.Summary = st.Error
		}
		checks = append(checks, check)
	}
	return checks
}

func checkConfig(pp paths.ProjectPaths, err error) healthCheck {
	if err != nil {
		return healthCheck{Name: "Config", Status: checkError, Summary: err.Error()}
	}
	if ok, _ := paths.FileExists(pp.ConfigFile); !ok {
		return healthCheck{Name: "Config", Status: checkWarning, Summary: "no config file, using defaults (pitchsync config init)"}
	}
	return healthCheck{Name: "Config", Status: checkOK, Summary: pp.Rel(pp.ConfigFile)}
}

func checkInput(name string, pp paths.ProjectPaths, path string) healthCheck {
	ok, err := paths.FileExists(path)
	switch {
	case err != nil:
		return healthCheck{Name: name, Status: checkError, Summary: err.Error()}
	case !ok:
		return healthCheck{Name: name, Status: checkError, Summary: "missing " + pp.Rel(path)}
	default:
		return healthCheck{Name: name, Status: checkOK, Summary: pp.Rel(path)}
	}
}

func checkClips(pp paths.ProjectPaths, cfg config.Config) healthCheck {
	listing, err := clips.Discover(pp.ClipsDir, cfg.Clips.Extensions)
	if err != nil {
		return healthCheck{Name: "Clips", Status: checkError, Summary: err.Error()}
	}
	unnumbered := clips.Unnumbered(listing.Files)
	summary := fmt.Sprintf("%d clips in %s", len(listing.Files)-len(unnumbered), pp.Rel(pp.ClipsDir))
	if len(unnumbered) > 0 {
		names := make([]string, 0, len(unnumbered))
		for _, f := range unnumbered {
			names = append(names, f.Name)
		}
		return healthCheck{Name: "Clips", Status: checkWarning, Summary: summary + "; no clip number: " + strings.Join(names, ", ")}
	}
	if len(listing.Files) == 0 {
		return healthCheck{Name: "Clips", Status: checkWarning, Summary: summary}
	}
	return healthCheck{Name: "Clips", Status: checkOK, Summary: summary}
}

// checkMedia probes every numbered clip so unreadable files show up before a
// run spends time encoding the rest.
func checkMedia(cmd *cobra.Command, pp paths.ProjectPaths, cfg config.Config) healthCheck {
	ffprobe, err := tools.Lookup("ffprobe", cfg.Encoding.FFmpeg)
	if err != nil {
		return healthCheck{Name: "Media", Status: checkWarning, Summary: "not probed: " + err.Error()}
	}
	listing, err := clips.Discover(pp.ClipsDir, cfg.Clips.Extensions)
	if err != nil {
		return healthCheck{Name: "Media", Status: checkWarning, Summary: "not probed: " + err.Error()}
	}

	var probed int
	var bad []string
	for _, f := range listing.Files {
		if _, ok := clips.ClipNumber(f.Name); !ok {
			continue
		}
		probed++
		if _, err := render.Probe(commandContext(cmd), render.CmdRunner{}, ffprobe, f.Path); err != nil {
			bad = append(bad, f.Name)
		}
	}
	if len(bad) > 0 {
		return healthCheck{Name: "Media", Status: checkError, Summary: fmt.Sprintf("%d of %d clips unreadable: %s", len(bad), probed, strings.Join(bad, ", "))}
	}
	return healthCheck{Name: "Media", Status: checkOK, Summary: fmt.Sprintf("%d clips readable", probed)}
}

func checkLedger(cmd *cobra.Command, pp paths.ProjectPaths) healthCheck {
	if ok, _ := paths.FileExists(pp.LedgerFile); !ok {
		return healthCheck{Name: "Ledger", Status: checkOK, Summary: "no runs recorded yet"}
	}
	store, err := ledger.Open(commandContext(cmd), pp.LedgerFile)
	if err != nil {
		return healthCheck{Name: "Ledger", Status: checkWarning, Summary: err.Error()}
	}
	defer store.Close()
	runs, err := store.Runs(commandContext(cmd), 1)
	if err != nil {
		return healthCheck{Name: "Ledger", Status: checkWarning, Summary: err.Error()}
	}
	if len(runs) == 0 {
		return healthCheck{Name: "Ledger", Status: checkOK, Summary: "no runs recorded yet"}
	}
	last := runs[0]
	return healthCheck{Name: "Ledger", Status: checkOK, Summary: fmt.Sprintf("last %s %s (%s)", last.Command, shortID(last.ID), last.Status)}
}

func writeDoctorResult(cmd *cobra.Command, projectRoot string, checks []healthCheck) error {
	if outputJSON {
		return writeJSON(cmd.OutOrStdout(), checks)
	}

	bold := lipgloss.NewStyle().Bold(true).Inline(true)
	styles := map[string]lipgloss.Style{
		checkOK:      lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Inline(true),
		checkWarning: lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Inline(true),
		checkError:   lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Inline(true),
	}
	labels := map[string]string{checkOK: "OK", checkWarning: "WARN", checkError: "ERROR"}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, bold.Render("PROJECT HEALTH:")+" "+projectRoot)
	for _, c := range checks {
		fmt.Fprintf(out, "  %-10s %s    %s\n", c.Name+":", styles[c.Status].Render(labels[c.Status]), c.Summary)
		for _, hint := range c.Hints {
			fmt.Fprintf(out, "             hint: %s\n", hint)
		}
	}
	return nil
}
