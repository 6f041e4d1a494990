// Package watch reloads the engine when its taxonomy or corpus files change.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 500 * time.Millisecond

// ReloadFunc rebuilds and swaps in the engine snapshot.
type ReloadFunc func(ctx context.Context) error

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets how long the watcher waits after the last change before
// reloading. Default: 500ms.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithOnError sets a callback invoked when a reload fails.
// Default: logs a warning via slog.
func WithOnError(f func(error)) Option {
	return func(w *Watcher) { w.errFunc = f }
}

// Watcher calls a reload function whenever one of its files is written,
// created or replaced. Bursts of events collapse into one reload.
type Watcher struct {
	reload   ReloadFunc
	files    map[string]struct{}
	dirs     []string
	debounce time.Duration
	errFunc  func(error)
}

// New creates a watcher over paths. Empty paths are ignored.
func New(reload ReloadFunc, paths []string, opts ...Option) *Watcher {
	w := &Watcher{
		reload:   reload,
		files:    make(map[string]struct{}, len(paths)),
		debounce: defaultDebounce,
		errFunc: func(err error) {
			slog.Warn("reload failed, keeping previous snapshot", "error", err)
		},
	}
	for _, opt := range opts {
		opt(w)
	}

	seen := make(map[string]bool)
	for _, p := range paths {
		if p == "" {
			continue
		}
		p = filepath.Clean(p)
		w.files[p] = struct{}{}

		// Watch the directory so atomic replacements are still seen.
		dir := filepath.Dir(p)
		if !seen[dir] {
			seen[dir] = true
			w.dirs = append(w.dirs, dir)
		}
	}
	return w
}

// Files returns the number of files being watched.
func (w *Watcher) Files() int {
	return len(w.files)
}

// Run blocks until ctx is canceled.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() { _ = fsw.Close() }()

	watched := 0
	for _, dir := range w.dirs {
		if err := fsw.Add(dir); err != nil {
			slog.Warn("cannot watch directory", "path", dir, "error", err)
			continue
		}
		watched++
	}
	if watched == 0 {
		return fmt.Errorf("no watchable directories among %d files", len(w.files))
	}
	slog.Debug("watching for changes", "files", len(w.files), "directories", watched)

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			slog.Debug("file changed", "path", event.Name, "op", event.Op.String())
			timer.Reset(w.debounce)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("file watcher error", "error", err)

		case <-timer.C:
			if err := w.reload(ctx); err != nil {
				w.errFunc(err)
				continue
			}
			slog.Info("reloaded after file change")
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}
	_, ok := w.files[filepath.Clean(event.Name)]
	return ok
}
