// Package watcher reports changes to a graph document on disk.
package watcher

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is the quiet period after the last write before a change
// is reported.
const DefaultDebounce = 200 * time.Millisecond

// Watcher watches one file. It watches the containing directory so that
// editors which save by rename are still seen.
type Watcher struct {
	path string
	name string
	fs   *fsnotify.Watcher

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	timer    *time.Timer
	debounce time.Duration
	stopped  bool

	changed chan struct{}
	logger  *zap.SugaredLogger
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounceDuration sets the quiet period.
func WithDebounceDuration(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the watcher's logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// NewWatcher creates a watcher for path. Call Start to begin watching.
func NewWatcher(path string, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve %s", path)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "create fsnotify watcher")
	}
	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		path:     abs,
		name:     filepath.Base(abs),
		fs:       fsw,
		ctx:      ctx,
		cancel:   cancel,
		debounce: DefaultDebounce,
		changed:  make(chan struct{}, 1),
		logger:   zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string { return w.path }

// Start begins watching.
func (w *Watcher) Start() error {
	if err := w.fs.Add(filepath.Dir(w.path)); err != nil {
		return errors.Wrapf(err, "watch %s", filepath.Dir(w.path))
	}
	w.wg.Add(1)
	go w.watchLoop()
	w.logger.Debugw("Watching graph document", "path", w.path)
	return nil
}

// Changed delivers one signal per burst of writes. Signals coalesce when
// the receiver is slow.
func (w *Watcher) Changed() <-chan struct{} {
	return w.changed
}

// Stop shuts the watcher down. Pending debounced signals are dropped.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	w.cancel()
	_ = w.fs.Close()
	w.wg.Wait()
}

func (w *Watcher) watchLoop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != w.name {
				continue
			}
			// Only notify on content changes (not chmod, etc)
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.arm()

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			// Errors are logged but don't stop the watcher
			w.logger.Warnw("File watch error", "path", w.path, "error", err)
		}
	}
}

// arm restarts the debounce timer.
func (w *Watcher) arm() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.notify)
}

func (w *Watcher) notify() {
	w.mu.Lock()
	stopped := w.stopped
	w.mu.Unlock()
	if stopped {
		return
	}
	select {
	case w.changed <- struct{}{}:
	default:
		// Receiver hasn't drained the last signal; it will reload anyway
	}
}
