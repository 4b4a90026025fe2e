// Package overlay turns a linked record into the two text blocks stamped on
// its clip.
package overlay

import (
	"math"
	"strconv"
	"strings"

	"pitchsync/internal/link"
)

// Placeholder is rendered for a numeric field the tracking export left empty.
const Placeholder = "-"

// Spec holds the two overlay blocks. Left carries the pitch data and Right
// the game situation. Lines are joined with "\n".
type Spec struct {
	Left  string
	Right string
}

// Format builds the overlay for rec. Numbers are rounded half away from zero:
// one decimal place for velocity and both breaks, whole numbers for spin rate.
func Format(rec link.Record) Spec {
	left := []string{
		"Pitch Type: " + text(rec.PitchType),
		"Result: " + text(rec.Outcome),
		"Velo: " + decimal(rec, link.FieldVelocity, rec.Velocity),
		"iVB: " + decimal(rec, link.FieldInducedVertBreak, rec.InducedVertBreak),
		"HB: " + decimal(rec, link.FieldHorzBreak, rec.HorzBreak),
		"Spin Rate: " + whole(rec, link.FieldSpinRate, rec.SpinRate),
	}
	right := []string{
		"Inning: " + strconv.Itoa(rec.Inning),
		"Pitcher: " + text(rec.Pitcher),
		"Batter: " + text(rec.Batter),
		"Count: " + count(rec),
		"Outs: " + whole(rec, link.FieldOuts, float64(rec.Outs)),
	}
	return Spec{
		Left:  strings.Join(left, "\n"),
		Right: strings.Join(right, "\n"),
	}
}

// Round1 rounds v to one decimal place, half away from zero.
func Round1(v float64) float64 {
	r := math.Round(v*10) / 10
	if r == 0 {
		return 0 // drops the sign of -0
	}
	return r
}

func decimal(rec link.Record, field string, v float64) string {
	if rec.IsMissing(field) {
		return Placeholder
	}
	return strconv.FormatFloat(Round1(v), 'f', 1, 64)
}

func whole(rec link.Record, field string, v float64) string {
	if rec.IsMissing(field) {
		return Placeholder
	}
	return strconv.FormatInt(int64(math.Round(v)), 10)
}

func count(rec link.Record) string {
	balls := strconv.Itoa(rec.Balls)
	strikes := strconv.Itoa(rec.Strikes)
	if rec.IsMissing(link.FieldBalls) {
		balls = Placeholder
	}
	if rec.IsMissing(link.FieldStrikes) {
		strikes = Placeholder
	}
	return balls + "-" + strikes
}

func text(v string) string {
	if v = strings.TrimSpace(v); v == "" {
		return Placeholder
	}
	return v
}
