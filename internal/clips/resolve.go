package clips

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strconv"

	"pitchsync/internal/link"
)

// ClipResolutionError reports a clip file whose number does not address a
// linked record. It aborts only that file.
type ClipResolutionError struct {
	File     string
	Number   int
	Position int
	Size     int
	Reason   string
}

func (e *ClipResolutionError) Error() string {
	msg := fmt.Sprintf("clip %s: position %d outside linked table of %d rows", e.File, e.Position, e.Size)
	if e.Reason != "" {
		msg = fmt.Sprintf("clip %s (number %d): %s", e.File, e.Number, e.Reason)
	}
	return msg
}

// Resolution pairs a numbered clip file with its linked record.
type Resolution struct {
	File   File
	Number int
	Record link.Record
	Err    error
}

// Resolved reports whether the file has a record to annotate with.
func (r Resolution) Resolved() bool {
	return r.Err == nil
}

// ClipNumber parses the leading decimal run of the file's base name. A run
// too long for int saturates to math.MaxInt so it still resolves out of range.
func ClipNumber(name string) (int, bool) {
	base := filepath.Base(name)
	end := 0
	for end < len(base) && base[end] >= '0' && base[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(base[:end])
	if errors.Is(err, strconv.ErrRange) {
		return math.MaxInt, true
	}
	if err != nil {
		return 0, false
	}
	return n, true
}

// Unnumbered returns the files whose names carry no clip number.
func Unnumbered(files []File) []File {
	var out []File
	for _, f := range files {
		if _, ok := ClipNumber(f.Name); !ok {
			out = append(out, f)
		}
	}
	return out
}

// Resolve maps every numbered file onto the linked table. Clip number n
// addresses row position n-1; the record is found through its clip number
// rather than its index in result.Records so a partial join cannot shift
// later clips onto the wrong row. Files without a number are left out.
func Resolve(result link.Result, files []File) []Resolution {
	size := result.TaggedCount
	if size < len(result.Records) {
		size = len(result.Records)
	}
	unmatched := make(map[int]string, len(result.Unmatched))
	for _, tag := range result.Unmatched {
		unmatched[tag.Clip] = tag.Key
	}

	resolutions := make([]Resolution, 0, len(files))
	for _, f := range files {
		n, ok := ClipNumber(f.Name)
		if !ok {
			continue
		}
		res := Resolution{File: f, Number: n}
		position := n - 1

		if rec, found := result.ByClip(n); found {
			res.Record = rec
		} else {
			cre := &ClipResolutionError{File: f.Name, Number: n, Position: position, Size: size}
			if a, ambiguous := result.AmbiguityFor(n); ambiguous {
				cre.Reason = "tagged row is ambiguous: " + a.String()
			} else if key, miss := unmatched[n]; miss {
				cre.Reason = fmt.Sprintf("tagged row %q has no tracking match", key)
			} else if position >= 0 && position < size {
				cre.Reason = "no tagged row carries this clip number"
			}
			res.Err = cre
		}
		resolutions = append(resolutions, res)
	}
	return resolutions
}
