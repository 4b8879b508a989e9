// Package watcher reports external changes to the files open in the
// workspace.
package watcher

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/excalibur/internal/checksum"
	"github.com/starford/excalibur/internal/models"
	"github.com/starford/excalibur/internal/sse"
	"github.com/starford/excalibur/internal/storage"
)

// DefaultDebounce is how long the watcher waits for a burst of file system
// events to settle before comparing contents.
const DefaultDebounce = 200 * time.Millisecond

// Event is the payload of file.changed and file.removed events.
type Event struct {
	Kind models.Kind `json:"kind"`
	Path string      `json:"path"`
}

// Publisher receives file events.
type Publisher interface {
	Publish(event sse.Event)
}

type tracked struct {
	path string
	sum  string
}

// Watcher watches the directories of tracked files. A tracked file whose
// contents no longer match what the host last loaded or saved produces
// file.changed; a tracked file that disappears produces file.removed.
type Watcher struct {
	fsw      *fsnotify.Watcher
	store    storage.Provider
	pub      Publisher
	logger   *slog.Logger
	debounce time.Duration

	mu    sync.Mutex
	files map[models.Kind]tracked
	dirs  map[string]int
}

// New creates a watcher. Run must be called to process events.
func New(store storage.Provider, pub Publisher, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		fsw:      fsw,
		store:    store,
		pub:      pub,
		logger:   logger,
		debounce: DefaultDebounce,
		files:    make(map[models.Kind]tracked),
		dirs:     make(map[string]int),
	}, nil
}

// Track starts following path as the open document of kind, replacing any
// file previously tracked for kind.
func (w *Watcher) Track(kind models.Kind, path string, contents []byte) {
	path = filepath.Clean(path)
	w.mu.Lock()
	defer w.mu.Unlock()

	if old, ok := w.files[kind]; ok {
		if old.path == path {
			w.files[kind] = tracked{path: path, sum: checksum.Sum(contents)}
			return
		}
		w.releaseDirLocked(filepath.Dir(old.path))
	}
	w.files[kind] = tracked{path: path, sum: checksum.Sum(contents)}
	w.watchDirLocked(filepath.Dir(path))
}

// Untrack stops following the document of kind.
func (w *Watcher) Untrack(kind models.Kind) {
	w.mu.Lock()
	defer w.mu.Unlock()
	old, ok := w.files[kind]
	if !ok {
		return
	}
	delete(w.files, kind)
	w.releaseDirLocked(filepath.Dir(old.path))
}

func (w *Watcher) watchDirLocked(dir string) {
	w.dirs[dir]++
	if w.dirs[dir] > 1 {
		return
	}
	if err := w.fsw.Add(dir); err != nil {
		w.logger.Warn("watcher: add dir failed", slog.String("dir", dir), slog.String("error", err.Error()))
		return
	}
	w.logger.Debug("watcher: watching dir", slog.String("dir", dir))
}

func (w *Watcher) releaseDirLocked(dir string) {
	w.dirs[dir]--
	if w.dirs[dir] > 0 {
		return
	}
	delete(w.dirs, dir)
	if err := w.fsw.Remove(dir); err != nil && !errors.Is(err, fsnotify.ErrNonExistentWatch) {
		w.logger.Debug("watcher: remove dir failed", slog.String("dir", dir), slog.String("error", err.Error()))
	}
}

// isTracked reports whether path belongs to an open document.
func (w *Watcher) isTracked(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, f := range w.files {
		if f.path == path {
			return true
		}
	}
	return false
}

// Run processes file system events until ctx is cancelled, then releases
// the underlying watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	w.logger.Info("watcher: started")

	// Bursts of events (atomic saves write a temp file and rename it)
	// are coalesced by a debounce timer.
	var debounceTimer *time.Timer
	var debounceCh <-chan time.Time
	dirty := make(map[string]struct{})

	schedule := func() {
		if debounceTimer == nil {
			debounceTimer = time.NewTimer(w.debounce)
			debounceCh = debounceTimer.C
		} else {
			debounceTimer.Reset(w.debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			w.logger.Info("watcher: stopped")
			return nil

		case <-debounceCh:
			for path := range dirty {
				w.check(path)
			}
			clear(dirty)

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			path := filepath.Clean(ev.Name)
			if !w.isTracked(path) {
				continue
			}
			dirty[path] = struct{}{}
			schedule()

		case watchErr, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// check compares path against every document tracking it.
func (w *Watcher) check(path string) {
	data, readErr := w.store.Read(path)

	var events []sse.Event
	w.mu.Lock()
	for kind, f := range w.files {
		if f.path != path {
			continue
		}
		switch {
		case errors.Is(readErr, os.ErrNotExist):
			events = append(events, sse.Event{Type: sse.EventFileRemoved, Data: Event{Kind: kind, Path: path}})
		case readErr != nil:
			w.logger.Warn("watcher: read failed", slog.String("path", path), slog.String("error", readErr.Error()))
		case !checksum.Matches(f.sum, data):
			// Remember the new contents so one edit is reported once.
			w.files[kind] = tracked{path: path, sum: checksum.Sum(data)}
			events = append(events, sse.Event{Type: sse.EventFileChanged, Data: Event{Kind: kind, Path: path}})
		}
	}
	w.mu.Unlock()

	for _, ev := range events {
		w.logger.Debug("watcher: "+ev.Type, slog.String("path", path))
		w.pub.Publish(ev)
	}
}
