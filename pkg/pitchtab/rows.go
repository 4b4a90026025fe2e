package pitchtab

// TrackingRow is one sensor-captured pitch as read from the tracking export.
type TrackingRow struct {
	Index int // 1-based data row position in file order
	Line  int // 1-based line in the source file

	Date      string
	Pitcher   string
	Batter    string
	Inning    string
	Balls     Number
	Strikes   Number
	Outs      Number
	PitchType string
	PitchCall string

	RelSpeed         Number
	InducedVertBreak Number
	HorzBreak        Number
	SpinRate         Number
	PitchNo          Number
}

// TaggedRow is one manually tagged clip as read from the video tagging export.
type TaggedRow struct {
	Index int
	Line  int

	Date    string
	Pitcher string
	Hitter  string
	Inning  string
	Count   string

	// Sequence is the explicit per-pitcher pitch number, present only in
	// exports that carry a "#" column.
	Sequence Number
	// Clip is the explicit clip number when the export carries one; when
	// absent the row position stands in for it.
	Clip Number
}

// ClipNumber returns the number of the video file this row describes.
func (r TaggedRow) ClipNumber() int {
	if r.Clip.Valid && r.Clip.Value > 0 {
		return r.Clip.Int()
	}
	return r.Index
}

// LoadTracking reads the sensor export. When cells fail numeric coercion the
// rows are still returned together with a ValidationErrors value.
func LoadTracking(path string, opts Options) ([]TrackingRow, error) {
	t, err := readTable("tracking", path, trackingRequired, opts)
	if err != nil {
		return nil, err
	}

	var errs ValidationErrors
	rows := make([]TrackingRow, 0, len(t.records))
	for i, rec := range t.records {
		c := cells{t: t, rec: rec}
		rows = append(rows, TrackingRow{
			Index:            i + 1,
			Line:             rec.line,
			Date:             c.text(ColDate),
			Pitcher:          c.text(ColPitcher),
			Batter:           c.text(ColBatter),
			Inning:           c.text(ColInning),
			Balls:            c.number(ColBalls),
			Strikes:          c.number(ColStrikes),
			Outs:             c.number(ColOuts),
			PitchType:        c.text(ColPitchType),
			PitchCall:        c.text(ColPitchCall),
			RelSpeed:         c.number(ColRelSpeed),
			InducedVertBreak: c.number(ColInducedVertBreak),
			HorzBreak:        c.number(ColHorzBreak),
			SpinRate:         c.number(ColSpinRate),
			PitchNo:          c.number(ColPitchNo),
		})
		errs = append(errs, c.errs...)
	}

	if len(errs) > 0 {
		return rows, errs
	}
	return rows, nil
}

// LoadTagged reads the clip tagging export.
func LoadTagged(path string, opts Options) ([]TaggedRow, error) {
	t, err := readTable("tagged", path, taggedRequired, opts)
	if err != nil {
		return nil, err
	}

	hitterCol := ColHitter
	if !t.has(ColHitter) && t.has(ColBatter) {
		hitterCol = ColBatter
	}

	var errs ValidationErrors
	rows := make([]TaggedRow, 0, len(t.records))
	for i, rec := range t.records {
		c := cells{t: t, rec: rec}
		rows = append(rows, TaggedRow{
			Index:    i + 1,
			Line:     rec.line,
			Date:     c.text(ColDate),
			Pitcher:  c.text(ColPitcher),
			Hitter:   c.text(hitterCol),
			Inning:   c.text(ColInning),
			Count:    c.text(ColCount),
			Sequence: c.number(ColSequence),
			Clip:     c.number(ColClip),
		})
		errs = append(errs, c.errs...)
	}

	if len(errs) > 0 {
		return rows, errs
	}
	return rows, nil
}
