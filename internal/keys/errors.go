package keys

import "fmt"

// MalformedFieldError reports a linking field that could not be normalised.
// A run must not continue past one: a corrupted key would silently pair the
// wrong pitch with a clip.
type MalformedFieldError struct {
	Source string // "tracking" or "tagged"
	Line   int
	Field  string
	Value  string
	Reason string
}

func (e *MalformedFieldError) Error() string {
	loc := e.Source
	if e.Line > 0 {
		loc = fmt.Sprintf("%s line %d", e.Source, e.Line)
	}
	if loc == "" {
		loc = "input"
	}
	return fmt.Sprintf("%s: malformed %s %q: %s", loc, e.Field, e.Value, e.Reason)
}

// at returns a copy of e annotated with its source position.
func (e *MalformedFieldError) at(source string, line int) *MalformedFieldError {
	out := *e
	out.Source = source
	out.Line = line
	return &out
}
