// Package sequence orders annotated clips and bonus footage into the list
// handed to the concatenation step.
package sequence

import "sort"

// GroupPrimary names the annotated clips in an Entry.
const GroupPrimary = "primary"

// Clip is an annotated clip tagged with the clip number it came from.
type Clip struct {
	Number int
	Path   string
}

// Group is a run of supplementary files appended as-is.
type Group struct {
	Name  string
	Paths []string
}

// Entry is one item of the final sequence.
type Entry struct {
	Path   string
	Group  string
	Number int // clip number, 0 for supplementary entries
}

// Build sorts primary by clip number and appends each group in the order
// given. The input slices are not modified.
func Build(primary []Clip, groups ...Group) []Entry {
	sorted := make([]Clip, len(primary))
	copy(sorted, primary)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Number < sorted[j].Number
	})

	size := len(sorted)
	for _, g := range groups {
		size += len(g.Paths)
	}

	entries := make([]Entry, 0, size)
	for _, c := range sorted {
		entries = append(entries, Entry{Path: c.Path, Group: GroupPrimary, Number: c.Number})
	}
	for _, g := range groups {
		for _, p := range g.Paths {
			entries = append(entries, Entry{Path: p, Group: g.Name})
		}
	}
	return entries
}

// Paths flattens entries into their file paths.
func Paths(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Path)
	}
	return out
}
