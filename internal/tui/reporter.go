package tui

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"pitchsync/internal/render"
)

// RowKey identifies a clip row in the progress table.
func RowKey(number int, source string) string {
	return strconv.Itoa(number) + ":" + filepath.Base(source)
}

// TableReporter forwards annotate progress to a running ProgressModel.
type TableReporter struct {
	send func(tea.Msg)
}

// NewTableReporter wraps a tea send function.
func NewTableReporter(send func(tea.Msg)) *TableReporter {
	return &TableReporter{send: send}
}

// Start implements render.ProgressReporter.
func (r *TableReporter) Start(job render.Job) {
	r.send(ClipUpdateMsg{
		Key:    RowKey(job.Number, job.Source),
		Fields: map[string]string{ColStatus: StatusAnnotating, ColDetail: firstLine(job.Overlay.Left)},
	})
}

// Complete implements render.ProgressReporter.
func (r *TableReporter) Complete(res render.Result) {
	status, detail := describe(res)
	r.send(ClipUpdateMsg{
		Key:    RowKey(res.Number, res.Source),
		Fields: map[string]string{ColStatus: status, ColDetail: detail},
	})
}

// LineReporter prints one line per finished clip. Safe for concurrent use.
type LineReporter struct {
	mu  sync.Mutex
	out io.Writer
}

// NewLineReporter writes to out.
func NewLineReporter(out io.Writer) *LineReporter {
	return &LineReporter{out: out}
}

// Start implements render.ProgressReporter.
func (r *LineReporter) Start(render.Job) {}

// Complete implements render.ProgressReporter.
func (r *LineReporter) Complete(res render.Result) {
	status, detail := describe(res)
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, "clip %3d  %-10s %s  %s\n", res.Number, status, filepath.Base(res.Source), detail)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func describe(res render.Result) (string, string) {
	switch {
	case res.Err != nil:
		return StatusFailed, res.Err.Error()
	case res.Skipped:
		return StatusSkipped, "output exists"
	default:
		return StatusAnnotated, filepath.Base(res.OutputPath)
	}
}
