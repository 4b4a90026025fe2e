package keys

import (
	"fmt"
	"strings"
)

// Mode selects which fields make up a join key. It is chosen once per run.
type Mode int

const (
	// ModeCount keys a pitch by date, pitcher, batter, inning and count.
	ModeCount Mode = iota + 1
	// ModeSequence keys a pitch by pitcher and per-pitcher pitch number.
	ModeSequence
)

func (m Mode) String() string {
	switch m {
	case ModeCount:
		return "count"
	case ModeSequence:
		return "sequence"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode accepts "count" or "sequence" (case-insensitive).
func ParseMode(value string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "count", "count-addressed", "date":
		return ModeCount, nil
	case "sequence", "sequence-addressed", "seq":
		return ModeSequence, nil
	default:
		return 0, fmt.Errorf("unknown key mode %q (expected %s)", value, ModeNames())
	}
}

// Modes lists the supported modes in display order.
func Modes() []Mode {
	return []Mode{ModeCount, ModeSequence}
}

// ModeNames joins the mode names for help and error text.
func ModeNames() string {
	names := make([]string, 0, 2)
	for _, m := range Modes() {
		names = append(names, m.String())
	}
	return strings.Join(names, " or ")
}
