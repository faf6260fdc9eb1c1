package confloader

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"
)

// ErrorLogInterval is the minimum time between two logged watcher errors.
const ErrorLogInterval = 10 * time.Second

// Watcher reports changes of individual files or of every file in a
// directory.
//
// Parent directories are watched instead of the files themselves so that
// editors replacing a file by rename are still noticed.
type Watcher struct {
	watcher *fsnotify.Watcher
	logger  *slog.Logger

	mu        sync.RWMutex
	files     map[string]struct{}
	dirs      map[string]struct{}
	callbacks []func(string)

	errLog     rate.Sometimes
	suppressed atomic.Int64

	done     chan struct{}
	stopOnce sync.Once
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithWatcherLogger sets the logger for the watcher.
func WithWatcherLogger(logger *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewWatcher creates a new file watcher.
func NewWatcher(opts ...WatcherOption) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher: fw,
		logger:  slog.Default(),
		files:   make(map[string]struct{}),
		dirs:    make(map[string]struct{}),
		errLog:  rate.Sometimes{First: 1, Interval: ErrorLogInterval},
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Watch reports changes of the file at path.
func (w *Watcher) Watch(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := w.add(filepath.Dir(abs)); err != nil {
		return err
	}

	w.mu.Lock()
	w.files[abs] = struct{}{}
	w.mu.Unlock()

	w.logger.Debug("watching file for changes", "file", abs)
	return nil
}

// WatchDir reports changes of any file directly inside dir.
func (w *Watcher) WatchDir(dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	if err := w.add(abs); err != nil {
		return err
	}

	w.mu.Lock()
	w.dirs[abs] = struct{}{}
	w.mu.Unlock()

	w.logger.Debug("watching directory for changes", "path", abs)
	return nil
}

func (w *Watcher) add(dir string) error {
	if err := w.watcher.Add(dir); err != nil {
		w.logger.Error("failed to watch directory", "path", dir, "error", err)
		return err
	}
	return nil
}

// OnChange registers a callback receiving the path of each changed file.
// Callbacks run on the watcher goroutine.
func (w *Watcher) OnChange(callback func(string)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, callback)
}

// Run delivers change notifications until ctx is done or Stop is called.
func (w *Watcher) Run(ctx context.Context) {
	w.logger.Debug("file watcher started")

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if w.matches(event.Name) {
				w.logger.Debug("watched file changed", "file", event.Name, "op", event.Op.String())
				w.notify(event.Name)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logError(err)
		case <-ctx.Done():
			return
		case <-w.done:
			return
		}
	}
}

// StartAsync runs the watcher in a goroutine.
func (w *Watcher) StartAsync() {
	go w.Run(context.Background())
}

// Stop stops the watcher. It is safe to call more than once.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		err = w.watcher.Close()
		if err != nil {
			w.logger.Error("failed to close watcher", "error", err)
		}
	})
	return err
}

// logError logs err unless another error was logged within ErrorLogInterval.
func (w *Watcher) logError(err error) {
	n := w.suppressed.Add(1)
	w.errLog.Do(func() {
		w.suppressed.Add(-n)
		w.logger.Error("file watcher error", "error", err, "suppressed", n-1)
	})
}

func (w *Watcher) matches(name string) bool {
	abs, err := filepath.Abs(name)
	if err != nil {
		return false
	}

	w.mu.RLock()
	defer w.mu.RUnlock()
	if _, ok := w.files[abs]; ok {
		return true
	}
	_, ok := w.dirs[filepath.Dir(abs)]
	return ok
}

func (w *Watcher) notify(path string) {
	w.mu.RLock()
	callbacks := append([]func(string){}, w.callbacks...)
	w.mu.RUnlock()

	for _, cb := range callbacks {
		cb(path)
	}
}
