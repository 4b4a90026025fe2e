package tui

import "github.com/charmbracelet/lipgloss"

// Column headers shared by the progress table and the reporters.
const (
	ColClip   = "CLIP"
	ColFile   = "FILE"
	ColStatus = "STATUS"
	ColDetail = "DETAIL"
)

// Row statuses.
const (
	StatusPending    = "pending"
	StatusAnnotating = "annotating"
	StatusAnnotated  = "annotated"
	StatusSkipped    = "skipped"
	StatusFailed     = "failed"
)

var (
	// TitleStyle styles the line above the table.
	TitleStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	// HeaderStyle styles the column header row.
	HeaderStyle = lipgloss.NewStyle().Bold(true)

	statusStyles = map[string]lipgloss.Style{
		StatusAnnotated:  lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		StatusAnnotating: lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		StatusSkipped:    lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		"unresolved":     lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		StatusFailed:     lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
		StatusPending:    lipgloss.NewStyle().Faint(true),
	}
)

// StatusStyle returns the style for a status cell.
func StatusStyle(status string) lipgloss.Style {
	if s, ok := statusStyles[status]; ok {
		return s
	}
	return lipgloss.NewStyle()
}
