package tui

import (
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// OutputMode describes how run progress is rendered.
type OutputMode int

const (
	// ModeTUI redraws a live clip table with bubbletea.
	ModeTUI OutputMode = iota
	// ModePlain prints one line per finished clip.
	ModePlain
	// ModeJSON suppresses progress; the command prints a JSON document at the end.
	ModeJSON
)

func (m OutputMode) String() string {
	switch m {
	case ModeTUI:
		return "tui"
	case ModeJSON:
		return "json"
	default:
		return "plain"
	}
}

// DetectMode picks the output mode for out. Anything that is not an
// interactive terminal gets plain output.
func DetectMode(out io.Writer, noProgress, jsonOutput bool) OutputMode {
	if jsonOutput {
		return ModeJSON
	}
	if noProgress {
		return ModePlain
	}
	file, ok := out.(*os.File)
	if !ok {
		return ModePlain
	}
	fd := file.Fd()
	if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
		return ModePlain
	}
	if term := os.Getenv("TERM"); strings.EqualFold(term, "dumb") {
		return ModePlain
	}
	return ModeTUI
}
