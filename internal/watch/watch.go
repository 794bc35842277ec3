// Package watch runs a trigger whenever update files land in a folder.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/roach88/lfmerge/internal/updates"
)

// DefaultDebounce is how long the folder must stay quiet before the trigger
// runs.
const DefaultDebounce = 500 * time.Millisecond

// Trigger is run once at start and then after each burst of update files.
type Trigger func(ctx context.Context) error

// Watcher watches one folder for .lift.update files.
type Watcher struct {
	dir      string
	trigger  Trigger
	debounce time.Duration
	logger   *slog.Logger
}

// Option configures a Watcher.
type Option func(*Watcher)

func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// New creates a Watcher over dir.
func New(dir string, trigger Trigger, opts ...Option) *Watcher {
	w := &Watcher{
		dir:      dir,
		trigger:  trigger,
		debounce: DefaultDebounce,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run blocks until ctx is done. Trigger errors are logged and do not stop
// the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}
	w.logger.Info("watching for updates", "dir", w.dir, "debounce", w.debounce)

	// Files that arrived before the watch started.
	w.fire(ctx)

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
			if !relevant(event) {
				continue
			}
			w.logger.Debug("update file event", "path", event.Name, "op", event.Op.String())
			timer.Reset(w.debounce)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)

		case <-timer.C:
			w.fire(ctx)
		}
	}
}

func (w *Watcher) fire(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if err := w.trigger(ctx); err != nil {
		w.logger.Error("processing updates failed", "error", err)
	}
}

// relevant reports whether event may have produced a new update file.
// Removals are ignored since the merge itself deletes consumed files.
func relevant(event fsnotify.Event) bool {
	if !strings.HasSuffix(event.Name, updates.Extension) {
		return false
	}
	return event.Has(fsnotify.Create) || event.Has(fsnotify.Write) || event.Has(fsnotify.Rename)
}
