// Package watcher delivers classified file events for a directory tree.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/quicksip/internal/fsevent"
	"git.home.luguber.info/inful/quicksip/internal/logfields"
)

// Matcher selects the paths a subscription delivers.
type Matcher interface {
	Match(path string) bool
}

// MatchFunc adapts a function to Matcher.
type MatchFunc func(path string) bool

func (f MatchFunc) Match(path string) bool { return f(path) }

// Watcher creates fsnotify-backed subscriptions.
type Watcher struct {
	exists fsevent.ExistsFunc
	buffer int
	logger *slog.Logger
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithExists overrides how renames are told apart from deletions.
func WithExists(fn fsevent.ExistsFunc) Option {
	return func(w *Watcher) { w.exists = fn }
}

// WithBuffer sets the per-subscription channel capacity.
func WithBuffer(n int) Option {
	return func(w *Watcher) { w.buffer = n }
}

// WithLogger sets the logger used for watcher errors.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

func New(opts ...Option) *Watcher {
	w := &Watcher{exists: fsevent.PathExists, buffer: 64, logger: slog.Default()}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Subscribe watches root recursively and delivers the events whose path
// matches m, in the order fsnotify reports them. Directories created later
// are added to the watch, and the files they already contain are delivered
// as Added. The channel is closed once ctx is done.
func (w *Watcher) Subscribe(ctx context.Context, root string, m Matcher) (<-chan fsevent.FileEvent, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fsnotify: %w", err)
	}
	if err := w.addDirsRecursive(fw, root); err != nil {
		_ = fw.Close()
		return nil, err
	}

	out := make(chan fsevent.FileEvent, w.buffer)
	go w.loop(ctx, fw, m, out)
	return out, nil
}

func (w *Watcher) loop(ctx context.Context, fw *fsnotify.Watcher, m Matcher, out chan<- fsevent.FileEvent) {
	defer close(out)
	defer func() { _ = fw.Close() }()

	send := func(ev fsevent.FileEvent) bool {
		select {
		case out <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-fw.Events:
			if !ok {
				return
			}
			if shouldIgnoreEvent(raw.Name) {
				continue
			}
			if raw.Has(fsnotify.Create) {
				if fi, err := os.Stat(raw.Name); err == nil && fi.IsDir() {
					_ = w.addDirsRecursive(fw, raw.Name)
					for _, p := range filesUnder(raw.Name) {
						if m.Match(p) && !send(fsevent.FileEvent{Kind: fsevent.Added, Path: p}) {
							return
						}
					}
					continue
				}
			}
			ev, ok := fsevent.Classify(raw, w.exists)
			if !ok || !m.Match(ev.Path) {
				continue
			}
			if !send(ev) {
				return
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", logfields.Error(err))
		}
	}
}

func (w *Watcher) addDirsRecursive(fw *fsnotify.Watcher, root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("watch %s: %w", root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("watch %s: not a directory", root)
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			if err := fw.Add(path); err != nil {
				w.logger.Warn("watch add failed", logfields.Path(path), logfields.Error(err))
			}
		}
		return nil
	})
}

func filesUnder(dir string) []string {
	var files []string
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err == nil && !d.IsDir() && !shouldIgnoreEvent(path) {
			files = append(files, path)
		}
		return nil
	})
	return files
}

// shouldIgnoreEvent returns true for editor and OS artifacts that never count as source changes.
func shouldIgnoreEvent(path string) bool {
	base := filepath.Base(path)

	if strings.HasPrefix(base, ".") {
		return true
	}
	if strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#") {
		return true
	}
	return base == "Thumbs.db"
}
