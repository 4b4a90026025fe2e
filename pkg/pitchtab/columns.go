package pitchtab

// Canonical column names, compared after lower-casing and trimming the raw
// header. Tracking columns follow the sensor export; tagged columns follow the
// video tagging export.
const (
	ColDate             = "date"
	ColPitcher          = "pitcher"
	ColBatter           = "batter"
	ColHitter           = "hitter"
	ColInning           = "inning"
	ColBalls            = "balls"
	ColStrikes          = "strikes"
	ColOuts             = "outs"
	ColPitchType        = "taggedpitchtype"
	ColPitchCall        = "pitchcall"
	ColRelSpeed         = "relspeed"
	ColInducedVertBreak = "inducedvertbreak"
	ColHorzBreak        = "horzbreak"
	ColSpinRate         = "spinrate"
	ColPitchNo          = "pitchno"
	ColCount            = "count"
	ColSequence         = "#"
	ColClip             = "clip"
)

var trackingRequired = []string{ColPitcher, ColBatter, ColInning, ColBalls, ColStrikes}

var taggedRequired = []string{ColPitcher, ColInning}

// DefaultAliases maps header spellings seen in the wild onto canonical names.
func DefaultAliases() map[string]string {
	return map[string]string{
		"pitch_type":         ColPitchType,
		"pitchtype":          ColPitchType,
		"pitch_call":         ColPitchCall,
		"result":             ColPitchCall,
		"velo":               ColRelSpeed,
		"velocity":           ColRelSpeed,
		"ivb":                ColInducedVertBreak,
		"induced_vert_break": ColInducedVertBreak,
		"hb":                 ColHorzBreak,
		"horz_break":         ColHorzBreak,
		"spin_rate":          ColSpinRate,
		"pitch_no":           ColPitchNo,
		"seq":                ColSequence,
		"pitch #":            ColSequence,
		"clip #":             ColClip,
		"clip_no":            ColClip,
	}
}
