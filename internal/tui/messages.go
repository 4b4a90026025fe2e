package tui

// ClipUpdateMsg replaces the named column values of one clip row.
type ClipUpdateMsg struct {
	Key    string
	Fields map[string]string
}

// WorkDoneMsg signals that the background work has returned.
type WorkDoneMsg struct{}

// ErrorMsg carries a fatal error; the program quits and reports it.
type ErrorMsg struct {
	Err error
}
