package pitchtab

import (
	"fmt"
	"strings"
)

// ValidationError describes a cell that could not be coerced to its column type.
type ValidationError struct {
	Table   string
	Line    int
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	var b strings.Builder
	if e.Table != "" {
		b.WriteString(e.Table)
		b.WriteByte(' ')
	}
	if e.Line > 0 {
		fmt.Fprintf(&b, "line %d", e.Line)
	} else {
		b.WriteString("row")
	}
	if e.Field != "" {
		fmt.Fprintf(&b, " [%s]", e.Field)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

// ValidationErrors is returned alongside the parsed rows when one or more
// cells failed coercion. The rows remain usable; offending cells are absent.
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	switch len(errs) {
	case 0:
		return "validation failed"
	case 1:
		return errs[0].Error()
	}
	messages := make([]string, len(errs))
	for i, err := range errs {
		messages[i] = err.Error()
	}
	return fmt.Sprintf("%d cell(s) failed validation: %s", len(errs), strings.Join(messages, "; "))
}

// Issues returns a copy of the underlying validation errors.
func (errs ValidationErrors) Issues() []ValidationError {
	return append([]ValidationError(nil), errs...)
}
