// Package link joins normalised tracking and tagged records on their keys and
// projects the result onto the fields the overlay needs.
package link

import (
	"fmt"
	"sort"
	"strings"

	"pitchsync/internal/keys"
	"pitchsync/pkg/pitchtab"
)

// Numeric fields that may be absent on a partial tracking record.
const (
	FieldBalls            = "balls"
	FieldStrikes          = "strikes"
	FieldOuts             = "outs"
	FieldVelocity         = "velocity"
	FieldInducedVertBreak = "induced_vert_break"
	FieldHorzBreak        = "horz_break"
	FieldSpinRate         = "spin_rate"
)

// Record is one linked pitch: the tracking measurements for a tagged clip.
type Record struct {
	Key string

	Pitcher   string
	Batter    string
	Balls     int
	Strikes   int
	PitchType string
	Outcome   string

	Velocity         float64
	InducedVertBreak float64
	HorzBreak        float64
	SpinRate         float64

	Inning int
	Outs   int

	TrackingSeq int
	TaggedSeq   int
	// ClipSeq is the clip number carried over from the tagged row; it is
	// what a file on disk is resolved against.
	ClipSeq int
	// TaggedIndex is the 1-based position of the tagged row in its export.
	TaggedIndex int

	// Missing names numeric fields that were absent and filled with zero.
	Missing []string
}

// IsMissing reports whether field was zero-filled.
func (r Record) IsMissing(field string) bool {
	for _, m := range r.Missing {
		if m == field {
			return true
		}
	}
	return false
}

// Ambiguity is a tagged row whose base key occurs a different number of
// times in each export. Occurrence order cannot tell which tracking pitch
// the clip shows, so the row is left unmatched.
type Ambiguity struct {
	Tag      keys.TaggedRecord
	Tracking int
	Tagged   int
}

func (a Ambiguity) String() string {
	return fmt.Sprintf("key %s occurs %d times in tracking and %d in tagged", a.Tag.BaseKey, a.Tracking, a.Tagged)
}

// Result is the output of Link. Ambiguous rows are also listed in Unmatched.
type Result struct {
	Records       []Record
	Unmatched     []keys.TaggedRecord
	Ambiguous     []Ambiguity
	TrackingCount int
	TaggedCount   int
}

// AmbiguityFor returns the ambiguity recorded for clip number n.
func (r Result) AmbiguityFor(n int) (Ambiguity, bool) {
	for _, a := range r.Ambiguous {
		if a.Tag.Clip == n {
			return a, true
		}
	}
	return Ambiguity{}, false
}

// Summary is the operator-facing outcome of a join.
type Summary struct {
	Joined   int  `json:"joined"`
	Tagged   int  `json:"tagged"`
	Tracking int  `json:"tracking"`
	Deficit  int  `json:"deficit"`
	Complete bool `json:"complete"`
}

// Summary reports joined versus tagged counts.
func (r Result) Summary() Summary {
	return Summary{
		Joined:   len(r.Records),
		Tagged:   r.TaggedCount,
		Tracking: r.TrackingCount,
		Deficit:  r.TaggedCount - len(r.Records),
		Complete: len(r.Records) == r.TaggedCount,
	}
}

// ByClip returns the record linked to clip number n.
func (r Result) ByClip(n int) (Record, bool) {
	for _, rec := range r.Records {
		if rec.ClipSeq == n {
			return rec, true
		}
	}
	return Record{}, false
}

// LinkageIncompleteError reports tagged rows that found no tracking
// counterpart. The Result returned with it is still usable.
type LinkageIncompleteError struct {
	Joined    int
	Tagged    int
	Deficit   int
	Unmatched []keys.TaggedRecord
	Ambiguous []Ambiguity
}

func (e *LinkageIncompleteError) Error() string {
	msg := fmt.Sprintf("linkage incomplete: %d of %d tagged rows joined (%d unmatched)", e.Joined, e.Tagged, e.Deficit)
	if len(e.Unmatched) == 0 {
		return msg
	}
	ambiguous := make(map[int]bool, len(e.Ambiguous))
	for _, a := range e.Ambiguous {
		ambiguous[a.Tag.Clip] = true
	}
	clips := make([]string, 0, len(e.Unmatched))
	for _, rec := range e.Unmatched {
		if ambiguous[rec.Clip] {
			clips = append(clips, fmt.Sprintf("clip %d (%s, ambiguous)", rec.Clip, rec.Key))
			continue
		}
		clips = append(clips, fmt.Sprintf("clip %d (%s)", rec.Clip, rec.Key))
	}
	return msg + ": " + strings.Join(clips, ", ")
}

// Link inner-joins tracking and tagged records on their keys. Output follows
// tagged order. A base key repeated a different number of times on each side
// joins none of its tagged rows. When some tagged rows are unmatched, Link
// returns the partial Result together with a *LinkageIncompleteError.
func Link(tracking []keys.TrackingRecord, tagged []keys.TaggedRecord) (Result, error) {
	index := make(map[string]int, len(tracking))
	trackingRepeats := make(map[string]int, len(tracking))
	for i, rec := range tracking {
		if _, dup := index[rec.Key]; dup {
			return Result{}, fmt.Errorf("duplicate tracking key %q (line %d)", rec.Key, rec.Row.Line)
		}
		index[rec.Key] = i
		trackingRepeats[baseKey(rec.BaseKey, rec.Key)]++
	}
	taggedRepeats := make(map[string]int, len(tagged))
	for _, tag := range tagged {
		taggedRepeats[baseKey(tag.BaseKey, tag.Key)]++
	}

	result := Result{
		Records:       make([]Record, 0, len(tagged)),
		TrackingCount: len(tracking),
		TaggedCount:   len(tagged),
	}

	clips := make(map[int]int, len(tagged))
	for _, tag := range tagged {
		if prev, dup := clips[tag.Clip]; dup {
			return Result{}, fmt.Errorf("clip number %d appears on tagged lines %d and %d", tag.Clip, prev, tag.Row.Line)
		}
		clips[tag.Clip] = tag.Row.Line

		base := baseKey(tag.BaseKey, tag.Key)
		if n, m := trackingRepeats[base], taggedRepeats[base]; n > 0 && n != m {
			result.Ambiguous = append(result.Ambiguous, Ambiguity{Tag: tag, Tracking: n, Tagged: m})
			result.Unmatched = append(result.Unmatched, tag)
			continue
		}

		i, ok := index[tag.Key]
		if !ok {
			result.Unmatched = append(result.Unmatched, tag)
			continue
		}
		result.Records = append(result.Records, project(tracking[i], tag))
	}

	if len(result.Unmatched) > 0 {
		return result, &LinkageIncompleteError{
			Joined:    len(result.Records),
			Tagged:    len(tagged),
			Deficit:   len(tagged) - len(result.Records),
			Unmatched: result.Unmatched,
			Ambiguous: result.Ambiguous,
		}
	}
	return result, nil
}

func baseKey(base, key string) string {
	if base == "" {
		return key
	}
	return base
}

func project(tr keys.TrackingRecord, tag keys.TaggedRecord) Record {
	row := tr.Row
	rec := Record{
		Key:         tag.Key,
		Pitcher:     tr.Pitcher,
		Batter:      firstNonEmpty(tag.Hitter, tr.Batter),
		PitchType:   row.PitchType,
		Outcome:     row.PitchCall,
		Inning:      tr.Inning,
		TrackingSeq: tr.Seq,
		TaggedSeq:   tag.Seq,
		ClipSeq:     tag.Clip,
		TaggedIndex: tag.Row.Index,
	}

	fill := func(field string, n pitchtab.Number) float64 {
		if !n.Valid {
			rec.Missing = append(rec.Missing, field)
			return 0
		}
		return n.Value
	}
	rec.Balls = int(fill(FieldBalls, row.Balls))
	rec.Strikes = int(fill(FieldStrikes, row.Strikes))
	rec.Outs = int(fill(FieldOuts, row.Outs))
	rec.Velocity = fill(FieldVelocity, row.RelSpeed)
	rec.InducedVertBreak = fill(FieldInducedVertBreak, row.InducedVertBreak)
	rec.HorzBreak = fill(FieldHorzBreak, row.HorzBreak)
	rec.SpinRate = fill(FieldSpinRate, row.SpinRate)
	sort.Strings(rec.Missing)
	return rec
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
