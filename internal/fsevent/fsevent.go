// Package fsevent turns raw fsnotify notifications into the four change kinds
// the watch reactions understand.
package fsevent

import (
	"errors"
	"io/fs"
	"os"

	"github.com/fsnotify/fsnotify"
)

// Kind is the semantic kind of a file change.
type Kind int

const (
	Added Kind = iota + 1
	Changed
	Renamed
	Deleted
)

func (k Kind) String() string {
	switch k {
	case Added:
		return "added"
	case Changed:
		return "changed"
	case Renamed:
		return "renamed"
	case Deleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Tag is the label used in watch reaction log lines.
func (k Kind) Tag() string {
	switch k {
	case Added:
		return "ADDED"
	case Changed:
		return "MODIFY"
	case Renamed:
		return "RENAMED"
	case Deleted:
		return "DELETED"
	default:
		return "UNKNOWN"
	}
}

// FileEvent is one classified change. It is consumed by exactly one reaction and not retained.
type FileEvent struct {
	Kind Kind
	Path string
}

// ExistsFunc reports whether a path is still present on disk.
type ExistsFunc func(path string) bool

// PathExists is the ExistsFunc backed by os.Lstat.
func PathExists(path string) bool {
	_, err := os.Lstat(path)
	return !errors.Is(err, fs.ErrNotExist)
}

// Classify maps ev to a FileEvent. The second result is false for
// notifications that carry no content change, such as chmod.
//
// fsnotify reports a rename on the old name; the new name arrives as a
// separate create. A rename whose path still exists (a file moved back, or a
// platform that reports the new name) is reported as Renamed, otherwise as
// Deleted so the stale copy is removed.
func Classify(ev fsnotify.Event, exists ExistsFunc) (FileEvent, bool) {
	if exists == nil {
		exists = PathExists
	}
	switch {
	case ev.Has(fsnotify.Remove):
		return FileEvent{Kind: Deleted, Path: ev.Name}, true
	case ev.Has(fsnotify.Rename):
		if exists(ev.Name) {
			return FileEvent{Kind: Renamed, Path: ev.Name}, true
		}
		return FileEvent{Kind: Deleted, Path: ev.Name}, true
	case ev.Has(fsnotify.Create):
		return FileEvent{Kind: Added, Path: ev.Name}, true
	case ev.Has(fsnotify.Write):
		return FileEvent{Kind: Changed, Path: ev.Name}, true
	default:
		return FileEvent{}, false
	}
}
