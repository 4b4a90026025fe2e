package tui

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// StatusLine animates a single "spinner phase (elapsed)" line while the
// slow steps before annotation run (loading, linking, clip discovery).
type StatusLine struct {
	w     io.Writer
	mu    sync.Mutex
	phase string
	since time.Time
	stop  chan struct{}
	once  sync.Once
	wg    sync.WaitGroup
}

// NewStatusLine starts redrawing on w every 100ms.
func NewStatusLine(w io.Writer) *StatusLine {
	s := &StatusLine{w: w, since: time.Now(), stop: make(chan struct{})}
	s.wg.Add(1)
	go s.loop()
	return s
}

// Phase replaces the message and restarts the elapsed timer.
func (s *StatusLine) Phase(msg string) {
	s.mu.Lock()
	s.phase = msg
	s.since = time.Now()
	s.mu.Unlock()
}

// Stop erases the line. Further calls are no-ops.
func (s *StatusLine) Stop() {
	s.once.Do(func() {
		close(s.stop)
		s.wg.Wait()
		fmt.Fprint(s.w, "\r\033[K")
	})
}

func (s *StatusLine) loop() {
	defer s.wg.Done()
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for frame := 0; ; frame++ {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
		}
		s.mu.Lock()
		phase, since := s.phase, s.since
		s.mu.Unlock()
		fmt.Fprintf(s.w, "\r\033[K%s %s (%s)", spinnerFrames[frame%len(spinnerFrames)], phase, elapsed(time.Since(since)))
	}
}

func elapsed(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < 10*time.Second:
		return fmt.Sprintf("%.1fs", d.Seconds())
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	default:
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	}
}
