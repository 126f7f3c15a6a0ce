// Package watcher monitors a directory tree and reports settled file
// changes so indexed collections can be kept current.
package watcher

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/stackpine/ragcell/internal/logger"
)

// DefaultDebounce is how long a file must stay quiet before its change
// is reported. Editors and downloads write in bursts; reporting every
// write would re-index half-written files.
const DefaultDebounce = 500 * time.Millisecond

// Op classifies a reported change.
type Op int

const (
	// OpWrite is a created or modified file.
	OpWrite Op = iota
	// OpRemove is a deleted or renamed-away file.
	OpRemove
)

// Event is one settled file change.
type Event struct {
	Path string
	Op   Op
}

// Watcher watches a directory tree with fsnotify and emits debounced
// events for files with watched extensions.
type Watcher struct {
	fsw        *fsnotify.Watcher
	extensions []string
	debounce   time.Duration

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// New creates a watcher for the given extensions (leading dot,
// lower-case). A zero debounce gets the default.
func New(extensions []string, debounce time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		fsw:        fsw,
		extensions: extensions,
		debounce:   debounce,
		pending:    make(map[string]*time.Timer),
	}, nil
}

// Watch registers dir and its subdirectories and starts emitting
// events. The channel closes when ctx is cancelled or the watcher is
// closed. Directories created under dir while watching are registered
// as they appear.
func (w *Watcher) Watch(ctx context.Context, dir string) (<-chan Event, error) {
	if err := w.addTree(dir); err != nil {
		return nil, err
	}

	events := make(chan Event, 64)
	go w.run(ctx, events)
	return events, nil
}

// Close stops the underlying watcher. Pending debounce timers are
// dropped.
func (w *Watcher) Close() error {
	w.mu.Lock()
	for path, timer := range w.pending {
		timer.Stop()
		delete(w.pending, path)
	}
	w.mu.Unlock()
	return w.fsw.Close()
}

func (w *Watcher) run(ctx context.Context, events chan<- Event) {
	defer close(events)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ctx, ev, events)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logger.Warn("watch error: %v", err)
		}
	}
}

func (w *Watcher) handle(ctx context.Context, ev fsnotify.Event, events chan<- Event) {
	if ev.Op.Has(fsnotify.Create) {
		// A new directory needs registering before its files change.
		if err := w.addTree(ev.Name); err == nil {
			logger.Debug("watching new directory under %s", ev.Name)
		}
	}

	if !w.watched(ev.Name) {
		return
	}

	switch {
	case ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename):
		w.cancelPending(ev.Name)
		select {
		case events <- Event{Path: ev.Name, Op: OpRemove}:
		case <-ctx.Done():
		}
	case ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Write):
		w.schedule(ctx, ev.Name, events)
	}
}

// schedule arms (or re-arms) the debounce timer for path.
func (w *Watcher) schedule(ctx context.Context, path string, events chan<- Event) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.pending[path]; ok {
		timer.Reset(w.debounce)
		return
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		select {
		case events <- Event{Path: path, Op: OpWrite}:
		case <-ctx.Done():
		}
	})
}

func (w *Watcher) cancelPending(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if timer, ok := w.pending[path]; ok {
		timer.Stop()
		delete(w.pending, path)
	}
}

// addTree registers path and every directory below it. Non-directories
// and hidden directories are ignored.
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") && path != root {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

func (w *Watcher) watched(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range w.extensions {
		if ext == e {
			return true
		}
	}
	return false
}
