package pitchtab

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Options tunes header matching.
type Options struct {
	// HeaderAliases maps an alternate header spelling (lower-case) onto a
	// canonical column name. DefaultAliases is used when nil.
	HeaderAliases map[string]string
}

// Number is a numeric cell that may be absent.
type Number struct {
	Value float64
	Valid bool
}

// Num builds a present Number.
func Num(v float64) Number {
	return Number{Value: v, Valid: true}
}

// Int returns the value truncated to an int, or 0 when absent.
func (n Number) Int() int {
	if !n.Valid {
		return 0
	}
	return int(n.Value)
}

// table is the untyped intermediate form shared by both loaders.
type table struct {
	name    string
	header  map[string]int
	records []record
}

type record struct {
	line   int
	fields []string
}

func (t table) has(column string) bool {
	_, ok := t.header[column]
	return ok
}

func readTable(name, path string, required []string, opts Options) (table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return table{}, fmt.Errorf("read %s file: %w", name, err)
	}
	if len(data) == 0 {
		return table{}, fmt.Errorf("%s file is empty", name)
	}

	data = bytes.TrimPrefix(data, []byte("\ufeff"))
	comma, err := detectDelimiter(data)
	if err != nil {
		return table{}, fmt.Errorf("%s file: %w", name, err)
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = comma
	reader.FieldsPerRecord = -1

	aliases := opts.HeaderAliases
	if aliases == nil {
		aliases = DefaultAliases()
	}

	t := table{name: name}
	line := 0
	for {
		fields, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return table{}, fmt.Errorf("parse %s file: %w", name, err)
		}
		line++

		if t.header == nil {
			t.header, err = buildHeaderMap(fields, aliases)
			if err != nil {
				return table{}, fmt.Errorf("%s file: %w", name, err)
			}
			continue
		}
		if isEmptyRecord(fields) {
			continue
		}
		t.records = append(t.records, record{line: line, fields: fields})
	}

	if t.header == nil {
		return table{}, fmt.Errorf("%s file: missing header row", name)
	}
	for _, col := range required {
		if !t.has(col) {
			return table{}, fmt.Errorf("%s file: missing required column %q", name, col)
		}
	}
	if len(t.records) == 0 {
		return table{}, fmt.Errorf("%s file: no data rows found", name)
	}
	return t, nil
}

func detectDelimiter(data []byte) (rune, error) {
	headerLine := string(data)
	if newline := strings.IndexAny(headerLine, "\r\n"); newline >= 0 {
		headerLine = headerLine[:newline]
	}

	if strings.Contains(headerLine, "\t") {
		return '\t', nil
	}
	if strings.Contains(headerLine, ",") {
		return ',', nil
	}
	return 0, errors.New("unable to detect delimiter (expected comma or tab)")
}

func buildHeaderMap(header []string, aliases map[string]string) (map[string]int, error) {
	if len(header) == 0 {
		return nil, errors.New("header row is empty")
	}

	headerMap := make(map[string]int, len(header))
	for idx, raw := range header {
		name := normalizeHeader(raw)
		if name == "" {
			continue
		}
		if canonical, ok := aliases[name]; ok {
			name = canonical
		}
		if _, exists := headerMap[name]; exists {
			return nil, fmt.Errorf("duplicate header: %s", name)
		}
		headerMap[name] = idx
	}
	return headerMap, nil
}

func normalizeHeader(value string) string {
	value = strings.TrimPrefix(strings.TrimSpace(value), "\ufeff")
	return strings.ToLower(strings.TrimSpace(value))
}

func isEmptyRecord(fields []string) bool {
	for _, field := range fields {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

// cells reads typed values out of one record, collecting coercion errors.
type cells struct {
	t    table
	rec  record
	errs []ValidationError
}

func (c *cells) text(column string) string {
	pos, ok := c.t.header[column]
	if !ok || pos >= len(c.rec.fields) {
		return ""
	}
	return strings.TrimSpace(c.rec.fields[pos])
}

func (c *cells) number(column string) Number {
	raw := c.text(column)
	if raw == "" || strings.EqualFold(raw, "nan") || strings.EqualFold(raw, "null") {
		return Number{}
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		c.errs = append(c.errs, ValidationError{
			Table:   c.t.name,
			Line:    c.rec.line,
			Field:   column,
			Message: fmt.Sprintf("%q is not a number", raw),
		})
		return Number{}
	}
	return Num(value)
}
