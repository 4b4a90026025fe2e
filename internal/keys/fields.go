package keys

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// CanonicalDateLayout is the layout every date is rewritten to before it
// becomes part of a key.
const CanonicalDateLayout = "2006-01-02"

// DefaultDateLayouts covers the ISO dates written by the sensor export and the
// US-style dates written by the tagging export.
var DefaultDateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"2006/01/02",
	"01-02-2006",
	"1/2/06",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// NormalizeInning extracts the first run of decimal digits from an inning
// label such as "T1", "Bot 7" or "3".
func NormalizeInning(raw string) (int, error) {
	start := strings.IndexFunc(raw, isDigit)
	if start < 0 {
		return 0, &MalformedFieldError{Field: "inning", Value: raw, Reason: "no digits in inning label"}
	}
	end := start
	for end < len(raw) && isDigit(rune(raw[end])) {
		end++
	}
	n, err := strconv.Atoi(raw[start:end])
	if err != nil {
		return 0, &MalformedFieldError{Field: "inning", Value: raw, Reason: err.Error()}
	}
	return n, nil
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// NormalizeName rewrites "Last, First [Middle...]" as "Last, F.". Names that
// do not have exactly one comma separating a surname from given names are
// returned unchanged apart from trimming and NFC composition; several exports
// already write the abbreviated form.
func NormalizeName(raw string) string {
	name := strings.TrimSpace(norm.NFC.String(raw))
	parts := strings.Split(name, ",")
	if len(parts) != 2 {
		return name
	}
	last := strings.TrimSpace(parts[0])
	given := strings.Fields(parts[1])
	if last == "" || len(given) == 0 {
		return name
	}
	initial, _ := utf8.DecodeRuneInString(given[0])
	if initial == utf8.RuneError {
		return name
	}
	return last + ", " + string(initial) + "."
}

// NormalizeDate parses raw with the first matching layout and renders it in
// CanonicalDateLayout.
func NormalizeDate(raw string, layouts []string) (string, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", &MalformedFieldError{Field: "date", Value: raw, Reason: "date is required"}
	}
	if len(layouts) == 0 {
		layouts = DefaultDateLayouts
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format(CanonicalDateLayout), nil
		}
	}
	return "", &MalformedFieldError{Field: "date", Value: raw, Reason: "does not match any configured date layout"}
}

// Count is a ball-strike count.
type Count struct {
	Balls   int
	Strikes int
}

func (c Count) String() string {
	return strconv.Itoa(c.Balls) + "-" + strconv.Itoa(c.Strikes)
}

// ParseCount parses a "B-S" count label.
func ParseCount(raw string) (Count, error) {
	value := strings.TrimSpace(raw)
	b, s, ok := strings.Cut(value, "-")
	if !ok {
		return Count{}, &MalformedFieldError{Field: "count", Value: raw, Reason: `expected "balls-strikes"`}
	}
	balls, err := strconv.Atoi(strings.TrimSpace(b))
	if err != nil || balls < 0 {
		return Count{}, &MalformedFieldError{Field: "count", Value: raw, Reason: "balls must be a non-negative integer"}
	}
	strikes, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || strikes < 0 {
		return Count{}, &MalformedFieldError{Field: "count", Value: raw, Reason: "strikes must be a non-negative integer"}
	}
	return Count{Balls: balls, Strikes: strikes}, nil
}
