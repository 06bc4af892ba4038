package paths

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"seiir/internal/failure"
)

// EntryType filters discovery results.
type EntryType int

const (
	AnyEntry EntryType = iota
	DirEntry
	FileEntry
)

// Discover returns the sorted paths of entries in dir whose names match the
// glob pattern. A missing dir is reported as failure.ErrNotFound.
func Discover(dir, pattern string, want EntryType) ([]string, error) {
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, failure.Wrap(failure.ErrValidation, "paths", "discover",
			fmt.Sprintf("bad pattern %q", pattern), err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, failure.Wrap(failure.ErrNotFound, "paths", "discover",
				fmt.Sprintf("directory %s", dir), err)
		}
		return nil, fmt.Errorf("paths: list %q: %w", dir, err)
	}
	matches := make([]string, 0, len(entries))
	for _, entry := range entries {
		switch want {
		case DirEntry:
			if !entry.IsDir() {
				continue
			}
		case FileEntry:
			if entry.IsDir() {
				continue
			}
		}
		ok, _ := filepath.Match(pattern, entry.Name())
		if ok {
			matches = append(matches, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(matches)
	return matches, nil
}

// DiscoverOne returns the single entry in dir matching pattern. label names
// the thing being looked up in error messages.
func DiscoverOne(dir, pattern string, want EntryType, label string) (string, error) {
	matches, err := Discover(dir, pattern, want)
	if err != nil {
		return "", err
	}
	switch len(matches) {
	case 0:
		return "", failure.Wrap(failure.ErrNotFound, "paths", "discover",
			fmt.Sprintf("no %s matching %q in %s", label, pattern, dir), nil)
	case 1:
		return matches[0], nil
	default:
		return "", failure.Wrap(failure.ErrAmbiguous, "paths", "discover",
			fmt.Sprintf("%d entries for %s matching %q in %s: %v", len(matches), label, pattern, dir, matches), nil)
	}
}
