// Package clips enumerates media directories and maps numbered clip files
// onto linked records.
package clips

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultExtensions lists the media extensions considered when none are configured.
var DefaultExtensions = []string{".mp4", ".mov", ".avi", ".mkv"}

// File is one media entry from a directory listing.
type File struct {
	Name string
	Path string
}

// Listing is the result of Discover.
type Listing struct {
	Dir     string
	Files   []File
	Skipped []*UnsupportedFileError
}

// UnsupportedFileError marks a directory entry that is not a media file. It is
// a skip signal, never a failure.
type UnsupportedFileError struct {
	Path string
	Ext  string
}

func (e *UnsupportedFileError) Error() string {
	if e.Ext == "" {
		return fmt.Sprintf("%s: no file extension", e.Path)
	}
	return fmt.Sprintf("%s: unsupported extension %s", e.Path, e.Ext)
}

// Discover lists regular files in dir whose extension is in exts, sorted by
// name. Sub-directories are ignored and other files land in Skipped.
func Discover(dir string, exts []string) (Listing, error) {
	listing := Listing{Dir: dir}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return listing, fmt.Errorf("read clip directory: %w", err)
	}

	allowed := extensionSet(exts)
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if !allowed[ext] {
			listing.Skipped = append(listing.Skipped, &UnsupportedFileError{Path: path, Ext: ext})
			continue
		}
		listing.Files = append(listing.Files, File{Name: entry.Name(), Path: path})
	}

	sort.SliceStable(listing.Files, func(i, j int) bool {
		return listing.Files[i].Name < listing.Files[j].Name
	})
	return listing, nil
}

// Paths returns the file paths in listing order.
func (l Listing) Paths() []string {
	out := make([]string, 0, len(l.Files))
	for _, f := range l.Files {
		out = append(out, f.Path)
	}
	return out
}

// NormalizeExtensions lower-cases extensions and adds the leading dot.
func NormalizeExtensions(exts []string) []string {
	if len(exts) == 0 {
		return append([]string(nil), DefaultExtensions...)
	}
	out := make([]string, 0, len(exts))
	seen := map[string]bool{}
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if seen[ext] {
			continue
		}
		seen[ext] = true
		out = append(out, ext)
	}
	return out
}

func extensionSet(exts []string) map[string]bool {
	set := make(map[string]bool)
	for _, ext := range NormalizeExtensions(exts) {
		set[ext] = true
	}
	return set
}
