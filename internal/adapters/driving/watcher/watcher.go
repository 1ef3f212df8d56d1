// Package watcher reloads the version registry when another process edits
// the persisted registry file.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/ragdesk/internal/logger"
)

// DefaultDebounce is how long the watcher waits for a burst of events to settle.
const DefaultDebounce = 250 * time.Millisecond

// ErrMissingReloader is returned when no reloader is configured.
var ErrMissingReloader = errors.New("watcher: reloader is required")

// Reloader re-reads persisted state and reports the models whose active
// version changed.
type Reloader interface {
	Reload(ctx context.Context) ([]string, error)
}

// ChangeFunc is called after a reload that changed at least one model.
type ChangeFunc func(ctx context.Context, models []string)

// Watcher watches one file through its parent directory. Watching the
// directory keeps the watch alive across temp-file + rename replacement.
type Watcher struct {
	path     string
	reloader Reloader
	onChange ChangeFunc
	debounce time.Duration

	mu      sync.Mutex
	reloads int
}

// New creates a watcher for path. onChange may be nil.
func New(path string, reloader Reloader, onChange ChangeFunc) (*Watcher, error) {
	if reloader == nil {
		return nil, ErrMissingReloader
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving watch path: %w", err)
	}
	return &Watcher{
		path:     abs,
		reloader: reloader,
		onChange: onChange,
		debounce: DefaultDebounce,
	}, nil
}

// SetDebounce overrides the settle interval.
func (w *Watcher) SetDebounce(d time.Duration) {
	if d > 0 {
		w.debounce = d
	}
}

// Reloads returns how many reloads have run.
func (w *Watcher) Reloads() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.reloads
}

// Run watches until ctx is cancelled. It returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fsw.Close()

	dir := filepath.Dir(w.path)
	if err := fsw.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	logger.Debug("Watching %s", w.path)

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
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
			timer.Reset(w.debounce)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("File watcher error: %v", err)

		case <-timer.C:
			w.reload(ctx)
		}
	}
}

// relevant reports whether event touches the watched file in a way that can
// change its content.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}

func (w *Watcher) reload(ctx context.Context) {
	w.mu.Lock()
	w.reloads++
	w.mu.Unlock()

	models, err := w.reloader.Reload(ctx)
	if err != nil {
		logger.Warn("Reloading %s: %v", filepath.Base(w.path), err)
		return
	}
	if len(models) == 0 {
		return
	}
	logger.Info("Reloaded %s; active version changed for %v", filepath.Base(w.path), models)
	if w.onChange != nil {
		w.onChange(ctx, models)
	}
}
