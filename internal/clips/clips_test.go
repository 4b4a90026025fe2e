package clips

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"pitchsync/internal/keys"
	"pitchsync/internal/link"
)

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}

func TestDiscoverFiltersAndSorts(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "3_clip.MP4", "10_clip.mov", "1_clip.mp4", "notes.txt", "README", ".DS_Store")
	if err := os.Mkdir(filepath.Join(dir, "2_nested.mp4"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	listing, err := Discover(dir, []string{"mp4", ".MOV"})
	if err != nil {
		t.Fatalf("Discover error: %v", err)
	}

	var names []string
	for _, f := range listing.Files {
		names = append(names, f.Name)
	}
	want := []string{"10_clip.mov", "1_clip.mp4", "3_clip.MP4"}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("unexpected files %v, want %v", names, want)
	}

	if len(listing.Skipped) != 2 {
		t.Fatalf("expected 2 skipped entries, got %d", len(listing.Skipped))
	}
	var unsupported *UnsupportedFileError
	if !errors.As(error(listing.Skipped[0]), &unsupported) {
		t.Fatal("expected skip signal to be an UnsupportedFileError")
	}
}

func TestDiscoverMissingDirectory(t *testing.T) {
	if _, err := Discover(filepath.Join(t.TempDir(), "absent"), nil); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestNormalizeExtensionsDefaults(t *testing.T) {
	got := NormalizeExtensions(nil)
	if !reflect.DeepEqual(got, DefaultExtensions) {
		t.Fatalf("expected defaults, got %v", got)
	}
	got = NormalizeExtensions([]string{"MKV", ".mkv", " avi "})
	if !reflect.DeepEqual(got, []string{".mkv", ".avi"}) {
		t.Fatalf("unexpected normalised list %v", got)
	}
}

func TestClipNumber(t *testing.T) {
	cases := []struct {
		name string
		want int
		ok   bool
	}{
		{"3_clip.mp4", 3, true},
		{"012-Smith.mov", 12, true},
		{"0_clip.mp4", 0, true},
		{"/videos/7.mkv", 7, true},
		{"clip_3.mp4", 0, false},
		{"bonus.mp4", 0, false},
		{"99999999999999999999_z.mp4", math.MaxInt, true},
	}
	for _, tc := range cases {
		got, ok := ClipNumber(tc.name)
		if got != tc.want || ok != tc.ok {
			t.Errorf("ClipNumber(%q) = %d, %v; want %d, %v", tc.name, got, ok, tc.want, tc.ok)
		}
	}
}

func linkedTable(n int) link.Result {
	result := link.Result{TaggedCount: n, TrackingCount: n}
	for i := 1; i <= n; i++ {
		result.Records = append(result.Records, link.Record{
			Key:         "k" + string(rune('0'+i)),
			ClipSeq:     i,
			TaggedIndex: i,
			Outcome:     "row" + string(rune('0'+i)),
		})
	}
	return result
}

func files(names ...string) []File {
	out := make([]File, 0, len(names))
	for _, name := range names {
		out = append(out, File{Name: name, Path: "/clips/" + name})
	}
	return out
}

func TestResolveBounds(t *testing.T) {
	table := linkedTable(4)
	resolutions := Resolve(table, files("0_clip.mp4", "3_clip.mp4", "5_clip.mp4", "bonus.mp4"))

	if len(resolutions) != 3 {
		t.Fatalf("expected unnumbered file to be excluded, got %d resolutions", len(resolutions))
	}

	var cre *ClipResolutionError
	if !errors.As(resolutions[0].Err, &cre) {
		t.Fatalf("expected ClipResolutionError for 0_clip.mp4, got %v", resolutions[0].Err)
	}
	if cre.Position != -1 || cre.File != "0_clip.mp4" || cre.Size != 4 {
		t.Fatalf("unexpected error detail %+v", cre)
	}

	if !resolutions[1].Resolved() {
		t.Fatalf("expected 3_clip.mp4 to resolve, got %v", resolutions[1].Err)
	}
	if got := resolutions[1].Record.Outcome; got != "row3" {
		t.Fatalf("expected 3_clip.mp4 to resolve to the third row, got %q", got)
	}

	if !errors.As(resolutions[2].Err, &cre) {
		t.Fatalf("expected ClipResolutionError for 5_clip.mp4, got %v", resolutions[2].Err)
	}
	if cre.Position != 4 || !strings.Contains(cre.Error(), "position 4") {
		t.Fatalf("unexpected error %v", cre)
	}
}

func TestResolveUnmatchedTaggedRow(t *testing.T) {
	table := linkedTable(3)
	missing := table.Records[1]
	table.Records = append(table.Records[:1], table.Records[2:]...)
	table.Unmatched = []keys.TaggedRecord{{Key: missing.Key, Clip: 2}}

	resolutions := Resolve(table, files("1.mp4", "2.mp4", "3.mp4"))

	var cre *ClipResolutionError
	if !errors.As(resolutions[1].Err, &cre) {
		t.Fatalf("expected ClipResolutionError for unmatched clip, got %v", resolutions[1].Err)
	}
	if !strings.Contains(cre.Error(), "no tracking match") {
		t.Fatalf("expected reason in error, got %v", cre)
	}
	if !resolutions[2].Resolved() || resolutions[2].Record.Outcome != "row3" {
		t.Fatalf("expected clip 3 to keep its own row after a gap, got %+v", resolutions[2])
	}
}

func TestResolveOverflowingNumberIsOutOfRange(t *testing.T) {
	resolutions := Resolve(linkedTable(3), files("99999999999999999999_z.mp4"))

	if len(resolutions) != 1 {
		t.Fatalf("expected the oversized number to be resolved, got %+v", resolutions)
	}
	var cre *ClipResolutionError
	if !errors.As(resolutions[0].Err, &cre) {
		t.Fatalf("expected ClipResolutionError, got %v", resolutions[0].Err)
	}
	if cre.Position != math.MaxInt-1 || cre.Reason != "" {
		t.Fatalf("unexpected error detail %+v", cre)
	}
}

func TestResolveGapInClipNumbers(t *testing.T) {
	table := linkedTable(3)
	for i := range table.Records {
		table.Records[i].ClipSeq += 9
	}

	resolutions := Resolve(table, files("1.mp4", "11.mp4"))

	var cre *ClipResolutionError
	if !errors.As(resolutions[0].Err, &cre) {
		t.Fatalf("expected ClipResolutionError for 1.mp4, got %v", resolutions[0].Err)
	}
	if strings.Contains(cre.Error(), "outside") || !strings.Contains(cre.Error(), "no tagged row carries this clip number") {
		t.Fatalf("unexpected message %q", cre.Error())
	}
	if !resolutions[1].Resolved() || resolutions[1].Record.Outcome != "row2" {
		t.Fatalf("expected 11.mp4 to resolve through its clip number, got %+v", resolutions[1])
	}
}

func TestResolveAmbiguousTaggedRow(t *testing.T) {
	table := linkedTable(3)
	tag := keys.TaggedRecord{Key: "k2", BaseKey: "k2", Clip: 2}
	table.Records = append(table.Records[:1], table.Records[2:]...)
	table.Unmatched = []keys.TaggedRecord{tag}
	table.Ambiguous = []link.Ambiguity{{Tag: tag, Tracking: 3, Tagged: 2}}

	resolutions := Resolve(table, files("2.mp4"))

	var cre *ClipResolutionError
	if !errors.As(resolutions[0].Err, &cre) || !strings.Contains(cre.Reason, "ambiguous") {
		t.Fatalf("expected ambiguity reason, got %v", resolutions[0].Err)
	}
}

func TestUnnumbered(t *testing.T) {
	got := Unnumbered(files("1.mp4", "intro.mp4", "outro.mov"))
	if len(got) != 2 || got[0].Name != "intro.mp4" {
		t.Fatalf("unexpected unnumbered files %+v", got)
	}
}
