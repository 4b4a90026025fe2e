package keys

import (
	"errors"
	"strings"
	"testing"

	"pitchsync/pkg/pitchtab"
)

func TestNormalizeName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Smith, John", "Smith, J."},
		{"Smith, John Paul", "Smith, J."},
		{"  Smith ,  john  ", "Smith, j."},
		{"Smith, J.", "Smith, J."},
		{"Núñez, Ángel", "Núñez, Á."},
		{"John Smith", "John Smith"},
		{"Smith, John, Jr.", "Smith, John, Jr."},
		{"Smith,", "Smith,"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := NormalizeName(tc.in); got != tc.want {
			t.Errorf("NormalizeName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeNameIdempotent(t *testing.T) {
	inputs := []string{"Smith, John", "Doe, Jane Marie", "O'Neil, Pat", "Lee, X", "Álvarez, Élan"}
	for _, in := range inputs {
		once := NormalizeName(in)
		if twice := NormalizeName(once); twice != once {
			t.Errorf("NormalizeName not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestNormalizeNameComposesUnicode(t *testing.T) {
	decomposed := "Nun\u0303ez, Jose\u0301"
	if got := NormalizeName(decomposed); got != "Nu\u00f1ez, J." {
		t.Fatalf("expected NFC-composed surname, got %q", got)
	}
}

func TestNormalizeInning(t *testing.T) {
	cases := map[string]int{
		"T1":    1,
		"B9":    9,
		"Bot 7": 7,
		"12":    12,
		"3.0":   3,
		"T10a2": 10,
	}
	for in, want := range cases {
		got, err := NormalizeInning(in)
		if err != nil {
			t.Errorf("NormalizeInning(%q) error: %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("NormalizeInning(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestNormalizeInningRejectsLabelsWithoutDigits(t *testing.T) {
	for _, in := range []string{"", "Top", "extra"} {
		_, err := NormalizeInning(in)
		var mf *MalformedFieldError
		if !errors.As(err, &mf) {
			t.Fatalf("NormalizeInning(%q): expected MalformedFieldError, got %v", in, err)
		}
		if mf.Field != "inning" {
			t.Errorf("expected inning field, got %q", mf.Field)
		}
	}
}

func TestNormalizeDate(t *testing.T) {
	for _, in := range []string{"2024-05-11", "05/11/2024", "5/11/2024"} {
		got, err := NormalizeDate(in, nil)
		if err != nil {
			t.Fatalf("NormalizeDate(%q) error: %v", in, err)
		}
		if got != "2024-05-11" {
			t.Errorf("NormalizeDate(%q) = %q", in, got)
		}
	}
	if _, err := NormalizeDate("May 11", nil); err == nil {
		t.Fatal("expected error for unparseable date")
	}
}

func TestParseCount(t *testing.T) {
	c, err := ParseCount(" 3-2 ")
	if err != nil {
		t.Fatalf("ParseCount error: %v", err)
	}
	if c.Balls != 3 || c.Strikes != 2 || c.String() != "3-2" {
		t.Fatalf("unexpected count %+v", c)
	}
	for _, bad := range []string{"", "3", "a-2", "1--2", "-1-2"} {
		if _, err := ParseCount(bad); err == nil {
			t.Errorf("ParseCount(%q): expected error", bad)
		}
	}
}

func TestParseMode(t *testing.T) {
	if m, err := ParseMode("Count"); err != nil || m != ModeCount {
		t.Fatalf("ParseMode(Count) = %v, %v", m, err)
	}
	if m, err := ParseMode("sequence"); err != nil || m != ModeSequence {
		t.Fatalf("ParseMode(sequence) = %v, %v", m, err)
	}
	if _, err := ParseMode("fuzzy"); err == nil || !strings.Contains(err.Error(), "count or sequence") {
		t.Fatalf("expected error listing the modes, got %v", err)
	}
	for _, m := range Modes() {
		if got, err := ParseMode(m.String()); err != nil || got != m {
			t.Errorf("ParseMode(%s) = %v, %v", m, got, err)
		}
	}
}

func trackingRow(line int, date, pitcher, batter, inning string, balls, strikes float64) pitchtab.TrackingRow {
	return pitchtab.TrackingRow{
		Index:   line - 1,
		Line:    line,
		Date:    date,
		Pitcher: pitcher,
		Batter:  batter,
		Inning:  inning,
		Balls:   pitchtab.Num(balls),
		Strikes: pitchtab.Num(strikes),
	}
}

func TestTrackingSequenceIsContiguousPerPitcher(t *testing.T) {
	rows := []pitchtab.TrackingRow{
		trackingRow(2, "2024-05-11", "Smith, John", "Doe, Jane", "1", 0, 0),
		trackingRow(3, "2024-05-11", "Jones, Al", "Roe, Rick", "1", 0, 0),
		trackingRow(4, "2024-05-11", "Smith, John", "Doe, Jane", "1", 0, 1),
		trackingRow(5, "2024-05-11", "Smith, J.", "Doe, Jane", "1", 1, 1),
		trackingRow(6, "2024-05-11", "Jones, Al", "Roe, Rick", "1", 1, 0),
	}

	set, err := NormalizeTracking(rows, ModeSequence, Options{})
	if err != nil {
		t.Fatalf("NormalizeTracking error: %v", err)
	}

	seen := map[string][]int{}
	for _, rec := range set.Records {
		seen[rec.Pitcher] = append(seen[rec.Pitcher], rec.Seq)
	}
	for pitcher, seqs := range seen {
		for i, seq := range seqs {
			if seq != i+1 {
				t.Fatalf("pitcher %s: sequence %v is not contiguous from 1", pitcher, seqs)
			}
		}
	}
	if got := seen["Smith, J."]; len(got) != 3 {
		t.Fatalf("expected abbreviated and full names to share a sequence, got %v", seen)
	}
	if set.Records[3].Key != "Smith, J._3" {
		t.Fatalf("unexpected sequence key %q", set.Records[3].Key)
	}
}

func TestTrackingDropsBeforeNumbering(t *testing.T) {
	rows := []pitchtab.TrackingRow{
		trackingRow(2, "2024-05-11", "Smith, John", "Doe, Jane", "1", 0, 0),
		trackingRow(3, "", "Smith, John", "Doe, Jane", "1", 0, 1),
		trackingRow(4, "2024-05-11", "", "Doe, Jane", "1", 0, 1),
		trackingRow(5, "2024-05-11", "Smith, John", "Doe, Jane", "1", 0, 2),
	}

	set, err := NormalizeTracking(rows, ModeCount, Options{})
	if err != nil {
		t.Fatalf("NormalizeTracking error: %v", err)
	}
	if len(set.Dropped) != 2 {
		t.Fatalf("expected 2 dropped rows, got %+v", set.Dropped)
	}
	if set.Dropped[0].Line != 3 || set.Dropped[1].Line != 4 {
		t.Fatalf("unexpected dropped lines: %+v", set.Dropped)
	}
	if len(set.Records) != 2 || set.Records[1].Seq != 2 {
		t.Fatalf("expected dropped rows not to consume a sequence slot, got %+v", set.Records)
	}
}

func TestCountKeysMatchAcrossSources(t *testing.T) {
	tracking := []pitchtab.TrackingRow{
		trackingRow(2, "2024-05-11", "Smith, John", "Doe, Jane", "1", 1, 2),
	}
	tagged := []pitchtab.TaggedRow{{
		Index:   1,
		Line:    2,
		Date:    "05/11/2024",
		Pitcher: "Smith, J.",
		Hitter:  "Doe, J.",
		Inning:  "T1",
		Count:   "1-2",
	}}

	tset, err := NormalizeTracking(tracking, ModeCount, Options{})
	if err != nil {
		t.Fatalf("NormalizeTracking error: %v", err)
	}
	trecs, err := NormalizeTagged(tagged, ModeCount, Options{})
	if err != nil {
		t.Fatalf("NormalizeTagged error: %v", err)
	}

	want := "2024-05-11_Smith, J._Doe, J._1_1-2"
	if tset.Records[0].Key != want {
		t.Errorf("tracking key = %q, want %q", tset.Records[0].Key, want)
	}
	if trecs[0].Key != want {
		t.Errorf("tagged key = %q, want %q", trecs[0].Key, want)
	}
}

func TestKeysAreDeterministicAndInjective(t *testing.T) {
	rows := []pitchtab.TrackingRow{
		trackingRow(2, "2024-05-11", "Smith, John", "Doe, Jane", "1", 0, 2),
		trackingRow(3, "2024-05-11", "Smith, John", "Doe, Jane", "1", 0, 2),
		trackingRow(4, "2024-05-11", "Smith, John", "Doe, Jane", "1", 0, 2),
		trackingRow(5, "2024-05-11", "Smith, John", "Roe, Rick", "1", 0, 2),
	}

	first, err := NormalizeTracking(rows, ModeCount, Options{})
	if err != nil {
		t.Fatalf("NormalizeTracking error: %v", err)
	}
	second, err := NormalizeTracking(rows, ModeCount, Options{})
	if err != nil {
		t.Fatalf("NormalizeTracking error: %v", err)
	}

	unique := map[string]bool{}
	for i, rec := range first.Records {
		if rec.Key != second.Records[i].Key {
			t.Fatalf("key %d not deterministic: %q vs %q", i, rec.Key, second.Records[i].Key)
		}
		if unique[rec.Key] {
			t.Fatalf("duplicate key %q", rec.Key)
		}
		unique[rec.Key] = true
	}
	if first.Records[1].Key != "2024-05-11_Smith, J._Doe, J._1_0-2~2" {
		t.Fatalf("unexpected repeat key %q", first.Records[1].Key)
	}
}

func TestTrackingMalformedInningAborts(t *testing.T) {
	rows := []pitchtab.TrackingRow{
		trackingRow(2, "2024-05-11", "Smith, John", "Doe, Jane", "1", 0, 0),
		trackingRow(3, "2024-05-11", "Smith, John", "Doe, Jane", "top", 0, 0),
	}
	_, err := NormalizeTracking(rows, ModeCount, Options{})
	var mf *MalformedFieldError
	if !errors.As(err, &mf) {
		t.Fatalf("expected MalformedFieldError, got %v", err)
	}
	if mf.Source != "tracking" || mf.Line != 3 || mf.Field != "inning" {
		t.Fatalf("unexpected error detail: %+v", mf)
	}
}

func TestTaggedSequenceModeRequiresNumber(t *testing.T) {
	tagged := []pitchtab.TaggedRow{{Index: 1, Line: 2, Pitcher: "Smith, J.", Inning: "T1"}}
	_, err := NormalizeTagged(tagged, ModeSequence, Options{})
	var mf *MalformedFieldError
	if !errors.As(err, &mf) || mf.Field != "#" {
		t.Fatalf("expected MalformedFieldError on #, got %v", err)
	}

	tagged[0].Sequence = pitchtab.Num(4)
	recs, err := NormalizeTagged(tagged, ModeSequence, Options{})
	if err != nil {
		t.Fatalf("NormalizeTagged error: %v", err)
	}
	if recs[0].Key != "Smith, J._4" || recs[0].Clip != 1 {
		t.Fatalf("unexpected record %+v", recs[0])
	}
}

func TestTaggedMalformedCount(t *testing.T) {
	tagged := []pitchtab.TaggedRow{{Index: 1, Line: 7, Date: "05/11/2024", Pitcher: "Smith, J.", Hitter: "Doe, J.", Inning: "T1", Count: "full"}}
	_, err := NormalizeTagged(tagged, ModeCount, Options{})
	var mf *MalformedFieldError
	if !errors.As(err, &mf) || mf.Field != "count" || mf.Line != 7 {
		t.Fatalf("expected MalformedFieldError on count line 7, got %v", err)
	}
}
