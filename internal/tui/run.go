package tui

import (
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// RunWithWork starts a bubbletea program for model, runs work in a goroutine
// and blocks until the program exits. An error from work is shown by the
// model and returned. When the user interrupts, ErrInterrupted is returned
// while work may still be running; callers cancel its context.
func RunWithWork(out io.Writer, model ProgressModel, work func(send func(tea.Msg)) error) error {
	p := tea.NewProgram(model, tea.WithOutput(out))

	workErr := make(chan error, 1)
	go func() {
		// give the program a moment to draw the initial frame
		time.Sleep(50 * time.Millisecond)
		err := work(p.Send)
		workErr <- err
		if err != nil {
			p.Send(ErrorMsg{Err: err})
			return
		}
		p.Send(WorkDoneMsg{})
	}()

	final, err := p.Run()
	if err != nil {
		return err
	}
	if m, ok := final.(ProgressModel); ok && m.Err() != nil {
		return m.Err()
	}
	select {
	case err := <-workErr:
		return err
	default:
		return nil
	}
}
