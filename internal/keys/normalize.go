package keys

import (
	"fmt"
	"strconv"
	"strings"

	"pitchsync/pkg/pitchtab"
)

const (
	sourceTracking = "tracking"
	sourceTagged   = "tagged"

	keySeparator = "_"
	// repeatMarker separates a key from the occurrence ordinal added when the
	// same key is produced more than once on one side of the join.
	repeatMarker = "~"
)

// Options controls field normalisation.
type Options struct {
	DateLayouts []string
}

// TrackingRecord is a normalised sensor row.
type TrackingRecord struct {
	Key     string
	BaseKey string // Key without the occurrence ordinal
	Seq     int    // per-pitcher running count, 1-based
	Date    string
	Pitcher string
	Batter  string
	Inning  int
	Count   Count
	Row     pitchtab.TrackingRow
}

// TaggedRecord is a normalised tagging row.
type TaggedRecord struct {
	Key     string
	BaseKey string
	Seq     int // explicit per-pitcher number, 0 when the export has none
	Clip    int // clip number of the video file this row describes
	Date    string
	Pitcher string
	Hitter  string
	Inning  int
	Count   Count
	Row     pitchtab.TaggedRow
}

// Dropped records a tracking row removed before sequence numbering.
type Dropped struct {
	Line   int
	Reason string
}

// TrackingSet is the output of NormalizeTracking.
type TrackingSet struct {
	Records []TrackingRecord
	Dropped []Dropped
}

// NormalizeTracking builds keyed records from sensor rows. Rows lacking the
// pitcher (or, in count mode, the date) are dropped first so they never take
// a sequence slot.
func NormalizeTracking(rows []pitchtab.TrackingRow, mode Mode, opts Options) (TrackingSet, error) {
	if err := checkMode(mode); err != nil {
		return TrackingSet{}, err
	}

	var set TrackingSet
	kept := make([]pitchtab.TrackingRow, 0, len(rows))
	for _, row := range rows {
		switch {
		case strings.TrimSpace(row.Pitcher) == "":
			set.Dropped = append(set.Dropped, Dropped{Line: row.Line, Reason: "missing pitcher"})
		case mode == ModeCount && strings.TrimSpace(row.Date) == "":
			set.Dropped = append(set.Dropped, Dropped{Line: row.Line, Reason: "missing date"})
		default:
			kept = append(kept, row)
		}
	}

	seqs := make(map[string]int)
	keys := newKeyTally()
	set.Records = make([]TrackingRecord, 0, len(kept))
	for _, row := range kept {
		rec := TrackingRecord{
			Pitcher: NormalizeName(row.Pitcher),
			Batter:  NormalizeName(row.Batter),
			Row:     row,
		}
		seqs[rec.Pitcher]++
		rec.Seq = seqs[rec.Pitcher]

		inning, err := NormalizeInning(row.Inning)
		if err != nil {
			return TrackingSet{}, annotate(err, sourceTracking, row.Line)
		}
		rec.Inning = inning

		if mode == ModeCount {
			if rec.Date, err = NormalizeDate(row.Date, opts.DateLayouts); err != nil {
				return TrackingSet{}, annotate(err, sourceTracking, row.Line)
			}
			if rec.Count, err = trackingCount(row); err != nil {
				return TrackingSet{}, annotate(err, sourceTracking, row.Line)
			}
		} else {
			rec.Count = Count{Balls: row.Balls.Int(), Strikes: row.Strikes.Int()}
			if row.Date != "" {
				if date, derr := NormalizeDate(row.Date, opts.DateLayouts); derr == nil {
					rec.Date = date
				}
			}
		}

		rec.BaseKey = assemble(mode, rec.Date, rec.Pitcher, rec.Batter, rec.Inning, rec.Count, rec.Seq)
		rec.Key = keys.unique(rec.BaseKey)
		set.Records = append(set.Records, rec)
	}
	return set, nil
}

// NormalizeTagged builds keyed records from tagging rows. Tagged rows are the
// authority for which clips exist, so none are dropped: a missing linking
// field is a MalformedFieldError.
func NormalizeTagged(rows []pitchtab.TaggedRow, mode Mode, opts Options) ([]TaggedRecord, error) {
	if err := checkMode(mode); err != nil {
		return nil, err
	}

	keys := newKeyTally()
	records := make([]TaggedRecord, 0, len(rows))
	for _, row := range rows {
		if strings.TrimSpace(row.Pitcher) == "" {
			return nil, &MalformedFieldError{Source: sourceTagged, Line: row.Line, Field: "pitcher", Reason: "pitcher is required"}
		}
		rec := TaggedRecord{
			Pitcher: NormalizeName(row.Pitcher),
			Hitter:  NormalizeName(row.Hitter),
			Clip:    row.ClipNumber(),
			Row:     row,
		}
		if row.Sequence.Valid {
			rec.Seq = row.Sequence.Int()
		}

		inning, err := NormalizeInning(row.Inning)
		if err != nil {
			return nil, annotate(err, sourceTagged, row.Line)
		}
		rec.Inning = inning

		switch mode {
		case ModeCount:
			if rec.Date, err = NormalizeDate(row.Date, opts.DateLayouts); err != nil {
				return nil, annotate(err, sourceTagged, row.Line)
			}
			if rec.Count, err = ParseCount(row.Count); err != nil {
				return nil, annotate(err, sourceTagged, row.Line)
			}
		case ModeSequence:
			if !row.Sequence.Valid || rec.Seq <= 0 {
				return nil, &MalformedFieldError{
					Source: sourceTagged,
					Line:   row.Line,
					Field:  "#",
					Value:  formatNumber(row.Sequence),
					Reason: "sequence mode needs a positive per-pitcher pitch number",
				}
			}
		}

		rec.BaseKey = assemble(mode, rec.Date, rec.Pitcher, rec.Hitter, rec.Inning, rec.Count, rec.Seq)
		rec.Key = keys.unique(rec.BaseKey)
		records = append(records, rec)
	}
	return records, nil
}

func assemble(mode Mode, date, pitcher, batter string, inning int, count Count, seq int) string {
	if mode == ModeSequence {
		return pitcher + keySeparator + strconv.Itoa(seq)
	}
	return strings.Join([]string{
		date,
		pitcher,
		batter,
		strconv.Itoa(inning),
		count.String(),
	}, keySeparator)
}

func trackingCount(row pitchtab.TrackingRow) (Count, error) {
	if !row.Balls.Valid {
		return Count{}, &MalformedFieldError{Field: "balls", Value: formatNumber(row.Balls), Reason: "balls is required in count mode"}
	}
	if !row.Strikes.Valid {
		return Count{}, &MalformedFieldError{Field: "strikes", Value: formatNumber(row.Strikes), Reason: "strikes is required in count mode"}
	}
	return Count{Balls: row.Balls.Int(), Strikes: row.Strikes.Int()}, nil
}

// keyTally appends an occurrence ordinal to repeated keys. The n-th repeat on
// one side pairs with the n-th on the other only when both sides repeat the
// base key the same number of times; link.Link enforces that.
type keyTally map[string]int

func newKeyTally() keyTally {
	return make(keyTally)
}

func (t keyTally) unique(key string) string {
	t[key]++
	if n := t[key]; n > 1 {
		return key + repeatMarker + strconv.Itoa(n)
	}
	return key
}

func annotate(err error, source string, line int) error {
	if mf, ok := err.(*MalformedFieldError); ok {
		return mf.at(source, line)
	}
	return fmt.Errorf("%s line %d: %w", source, line, err)
}

func checkMode(mode Mode) error {
	if mode != ModeCount && mode != ModeSequence {
		return fmt.Errorf("unsupported key mode %s", mode)
	}
	return nil
}

func formatNumber(n pitchtab.Number) string {
	if !n.Valid {
		return ""
	}
	return strconv.FormatFloat(n.Value, 'f', -1, 64)
}
