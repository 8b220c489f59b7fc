// Package reload watches a computed index's directory for a whole-directory
// replace (the usual way a freshly-built index is published: build into a
// staging directory, then swap it into place) and signals the daemon/MCP
// server to drop their cached *index.Computed so the next query reloads
// from disk.
package reload

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces the burst of events a directory replace
// produces (four file writes, sometimes a temp-then-rename per file) into
// a single reload signal.
const DefaultDebounce = 300 * time.Millisecond

// Watcher watches one index directory and emits a signal on Changed()
// whenever its contents are replaced.
type Watcher struct {
	fsw      *fsnotify.Watcher
	dir      string
	debounce time.Duration
	changed  chan struct{}
	errors   chan error
	stopCh   chan struct{}

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
	logger  *slog.Logger
}

// New starts watching dir for content changes. Close stops the watcher and
// releases the underlying fsnotify handle.
func New(dir string, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	w := &Watcher{
		fsw:      fsw,
		dir:      dir,
		debounce: debounce,
		changed:  make(chan struct{}, 1),
		errors:   make(chan error, 10),
		stopCh:   make(chan struct{}),
		logger:   logger,
	}
	go w.run()
	return w, nil
}

// Changed receives a value each time the watched directory's contents have
// settled after a change (debounced). Buffered to 1: a pending reload
// signal is never lost to a slow consumer, but repeated changes before the
// consumer drains collapse into one signal.
func (w *Watcher) Changed() <-chan struct{} {
	return w.changed
}

// Errors receives non-fatal fsnotify errors; the watcher keeps running.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.scheduleSignal()
			w.logger.Debug("reload: fs event", "dir", w.dir, "event", event.String())
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			select {
			case w.errors <- err:
			default:
			}
		case <-w.stopCh:
			return
		}
	}
}

func (w *Watcher) scheduleSignal() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case w.changed <- struct{}{}:
		default:
		}
	})
}

// Close stops the watcher. Safe to call more than once.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	close(w.stopCh)
	return w.fsw.Close()
}
