package sequence

import (
	"reflect"
	"testing"
)

func TestBuildSortsPrimary(t *testing.T) {
	primary := []Clip{
		{Number: 5, Path: "5_edited.mp4"},
		{Number: 1, Path: "1_edited.mp4"},
		{Number: 3, Path: "3_edited.mp4"},
	}

	got := Paths(Build(primary))
	want := []string{"1_edited.mp4", "3_edited.mp4", "5_edited.mp4"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Build order = %v, want %v", got, want)
	}
	if primary[0].Number != 5 {
		t.Fatal("Build must not reorder its input")
	}
}

func TestBuildAppendsGroupsUnmodified(t *testing.T) {
	primary := []Clip{{Number: 5, Path: "5"}, {Number: 1, Path: "1"}, {Number: 3, Path: "3"}}
	bonus := Group{Name: "extra", Paths: []string{"A", "B"}}

	entries := Build(primary, bonus)
	want := []string{"1", "3", "5", "A", "B"}
	if got := Paths(entries); !reflect.DeepEqual(got, want) {
		t.Fatalf("Build order = %v, want %v", got, want)
	}
	if entries[3].Group != "extra" || entries[3].Number != 0 {
		t.Fatalf("unexpected supplementary entry %+v", entries[3])
	}
	if entries[0].Group != GroupPrimary || entries[0].Number != 1 {
		t.Fatalf("unexpected primary entry %+v", entries[0])
	}
}

func TestBuildKeepsGroupOrder(t *testing.T) {
	got := Paths(Build(nil,
		Group{Name: "b", Paths: []string{"z", "y"}},
		Group{Name: "a", Paths: []string{"x"}},
	))
	if !reflect.DeepEqual(got, []string{"z", "y", "x"}) {
		t.Fatalf("unexpected order %v", got)
	}
}
