package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

const tickInterval = 120 * time.Millisecond

// ErrInterrupted is reported when the user quits the table before the work finishes.
var ErrInterrupted = errors.New("interrupted")

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

type tickMsg time.Time

// Column is one column of the progress table.
type Column struct {
	Header string
	Width  int
}

type row struct {
	key    string
	fields []string
}

// ProgressModel renders the clips of a run as a live table with a spinner
// footer counting finished rows.
type ProgressModel struct {
	title   string
	columns []Column
	rows    []row
	index   map[string]int
	status  int
	tick    int
	done    bool
	err     error
}

// ClipColumns is the default layout used by the run command.
func ClipColumns() []Column {
	return []Column{
		{Header: ColClip, Width: 4},
		{Header: ColFile, Width: 28},
		{Header: ColStatus, Width: 10},
		{Header: ColDetail, Width: 40},
	}
}

// NewProgressModel creates an empty table.
func NewProgressModel(title string, columns []Column) ProgressModel {
	status := -1
	for i, c := range columns {
		if c.Header == ColStatus {
			status = i
		}
	}
	return ProgressModel{
		title:   title,
		columns: columns,
		index:   map[string]int{},
		status:  status,
	}
}

// AddRow registers a row before the program starts. Missing fields are blank.
func (m *ProgressModel) AddRow(key string, fields ...string) {
	padded := make([]string, len(m.columns))
	copy(padded, fields)
	m.index[key] = len(m.rows)
	m.rows = append(m.rows, row{key: key, fields: padded})
}

// Init implements tea.Model.
func (m ProgressModel) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Update implements tea.Model.
func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		if m.done {
			return m, nil
		}
		m.tick++
		return m, tick()
	case ClipUpdateMsg:
		m.apply(msg)
		return m, nil
	case WorkDoneMsg:
		m.done = true
		return m, tea.Quit
	case ErrorMsg:
		m.err = msg.Err
		m.done = true
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.err = ErrInterrupted
			m.done = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m *ProgressModel) apply(msg ClipUpdateMsg) {
	i, ok := m.index[msg.Key]
	if !ok {
		return
	}
	for j, col := range m.columns {
		if v, ok := msg.Fields[col.Header]; ok {
			m.rows[i].fields[j] = v
		}
	}
}

// View implements tea.Model.
func (m ProgressModel) View() string {
	if m.err != nil {
		return fmt.Sprintf("error: %v\n", m.err)
	}
	var b strings.Builder
	if m.title != "" {
		b.WriteString(TitleStyle.Render(m.title))
		b.WriteString("\n\n")
	}

	cells := make([]string, len(m.columns))
	for i, col := range m.columns {
		cells[i] = HeaderStyle.Render(pad(col.Header, m.width(i)))
	}
	b.WriteString(strings.Join(cells, "  "))
	b.WriteByte('\n')

	for _, r := range m.rows {
		for i := range m.columns {
			val := Truncate(r.fields[i], m.width(i))
			if i == m.status {
				cells[i] = StatusStyle(val).Render(pad(val, m.width(i)))
			} else {
				cells[i] = pad(val, m.width(i))
			}
		}
		b.WriteString(strings.Join(cells, "  "))
		b.WriteByte('\n')
	}

	if !m.done {
		finished, failed := m.Counts()
		fmt.Fprintf(&b, "\n%s annotating %d/%d", spinnerFrames[m.tick%len(spinnerFrames)], finished, len(m.rows))
		if failed > 0 {
			fmt.Fprintf(&b, " (%d failed)", failed)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func (m ProgressModel) width(i int) int {
	w := len(m.columns[i].Header)
	if m.columns[i].Width > w {
		w = m.columns[i].Width
	}
	return w
}

// Counts returns how many rows reached a terminal status and how many of
// those failed.
func (m ProgressModel) Counts() (finished, failed int) {
	if m.status < 0 {
		return 0, 0
	}
	for _, r := range m.rows {
		switch r.fields[m.status] {
		case StatusAnnotated, StatusSkipped:
			finished++
		case StatusFailed:
			finished++
			failed++
		}
	}
	return finished, failed
}

// Done reports whether the program has been told to quit.
func (m ProgressModel) Done() bool { return m.done }

// Err returns the fatal error, if any.
func (m ProgressModel) Err() error { return m.err }

// Cell returns the value of column header in the row for key.
func (m ProgressModel) Cell(key, header string) string {
	i, ok := m.index[key]
	if !ok {
		return ""
	}
	for j, col := range m.columns {
		if col.Header == header {
			return m.rows[i].fields[j]
		}
	}
	return ""
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// Truncate shortens value to max bytes, ending in "..." when cut.
func Truncate(value string, max int) string {
	value = strings.TrimSpace(value)
	if max <= 0 {
		return ""
	}
	if len(value) <= max {
		return value
	}
	if max <= 3 {
		return value[:max]
	}
	return value[:max-3] + "..."
}

// OrDash returns "-" for blank values.
func OrDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
