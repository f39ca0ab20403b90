package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"teepress/internal/ports"
)

// debounceDelay is how long a file must stay quiet before it is emitted;
// downloaders and editors fire several events while a file lands.
const debounceDelay = 500 * time.Millisecond

// DirWatcher emits staged design files as they finish appearing in the
// directory.
type DirWatcher struct {
	dir     string
	pattern string
	logger  *slog.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer
}

var _ ports.DirWatcher = (*DirWatcher)(nil)

// New builds a watcher over dir for files matching pattern.
func New(dir, pattern string, log *slog.Logger) *DirWatcher {
	return &DirWatcher{
		dir:     dir,
		pattern: pattern,
		logger:  log,
		pending: map[string]*time.Timer{},
	}
}

// Watch starts the fsnotify loop. The returned channel is never closed;
// consumers stop when ctx ends.
func (w *DirWatcher) Watch(ctx context.Context) (<-chan string, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(w.dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", w.dir, err)
	}

	out := make(chan string, 16)
	go w.loop(ctx, fw, out)
	return out, nil
}

func (w *DirWatcher) loop(ctx context.Context, fw *fsnotify.Watcher, out chan<- string) {
	defer fw.Close()

	for {
		select {
		case <-ctx.Done():
			w.cancelPending()
			return
		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !w.matches(event.Name) {
				continue
			}
			w.schedule(ctx, event.Name, out)
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.debug("watch error", "error", err)
		}
	}
}

// schedule (re)arms the debounce timer for one path; only the last event
// inside the window emits.
func (w *DirWatcher) schedule(ctx context.Context, path string, out chan<- string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.pending[path]; ok {
		timer.Stop()
	}
	w.pending[path] = time.AfterFunc(debounceDelay, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()

		select {
		case out <- path:
		case <-ctx.Done():
		}
	})
}

func (w *DirWatcher) cancelPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, timer := range w.pending {
		timer.Stop()
		delete(w.pending, path)
	}
}

func (w *DirWatcher) matches(path string) bool {
	ok, err := filepath.Match(w.pattern, filepath.Base(path))
	return err == nil && ok
}

func (w *DirWatcher) debug(msg string, args ...interface{}) {
	if w.logger != nil {
		w.logger.Debug(msg, args...)
	}
}
