// Package watch reports changes to a single source file. On linux it uses
// inotify on the file's directory, so editors that save by renaming a
// temporary file are still seen; elsewhere it polls the modification time.
package watch

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/funvibe/dvi/internal/config"
)

// Watcher calls its callback once per burst of changes to one file.
type Watcher struct {
	path     string
	debounce time.Duration
	fn       func(path string)

	mu    sync.Mutex
	timer *time.Timer

	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
	closeFn func() error
}

// New starts watching path. fn runs on its own goroutine, debounce after
// the last change of a burst. A non-positive debounce uses
// config.DefaultDebounce.
func New(path string, debounce time.Duration, fn func(path string)) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(abs); err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	if debounce <= 0 {
		debounce = config.DefaultDebounce
	}
	w := &Watcher{
		path:     abs,
		debounce: debounce,
		fn:       fn,
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	if err := w.startNative(); err != nil {
		w.startPolling(pollInterval)
	}
	return w, nil
}

// Path is the absolute path being watched.
func (w *Watcher) Path() string { return w.path }

// Close stops the watcher and cancels a pending callback.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		<-w.stopped
		if w.closeFn != nil {
			err = w.closeFn()
		}
		w.mu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		w.mu.Unlock()
	})
	return err
}

func (w *Watcher) changed() {
	w.mu.Lock()
	defer w.mu.Unlock()
	select {
	case <-w.done:
		return
	default:
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() { w.fn(w.path) })
}
