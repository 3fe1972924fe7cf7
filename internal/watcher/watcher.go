package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a directory must be quiet before changed
// installs are handled.
const DefaultDebounce = 500 * time.Millisecond

// Handler is called with the name of an install whose executable changed.
type Handler func(ctx context.Context, name string) error

// Watcher watches install executables and calls a Handler when they change.
type Watcher struct {
	fs       *fsnotify.Watcher
	handler  Handler
	logger   *slog.Logger
	debounce time.Duration

	mu      sync.RWMutex
	paths   map[string]string // executable path -> install name
	watched map[string]bool   // directories added to fs

	stopCh  chan struct{}
	stopped sync.Once
	wg      sync.WaitGroup
}

// New creates a new Watcher.
func New(handler Handler, logger *slog.Logger) (*Watcher, error) {
	if handler == nil {
		return nil, fmt.Errorf("handler cannot be nil")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	return &Watcher{
		fs:       fsw,
		handler:  handler,
		logger:   logger,
		debounce: DefaultDebounce,
		paths:    make(map[string]string),
		watched:  make(map[string]bool),
		stopCh:   make(chan struct{}),
	}, nil
}

// SetDebounce changes the quiet period. Must be called before Start.
func (w *Watcher) SetDebounce(d time.Duration) {
	if d > 0 {
		w.debounce = d
	}
}

// Start processes file events in the background until Stop is called or
// ctx is done.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.RLock()
	n := len(w.paths)
	w.mu.RUnlock()
	if n == 0 {
		return fmt.Errorf("no installs to watch")
	}

	w.wg.Add(1)
	go w.run(ctx)
	return nil
}

func (w *Watcher) run(ctx context.Context) {
	defer w.wg.Done()

	pending := make(map[string]bool)
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Rename) {
				continue
			}
			name, ok := w.MatchPath(ev.Name)
			if !ok {
				continue
			}
			w.logger.Debug("executable changed", "install", name, "op", ev.Op.String())
			pending[name] = true
			timer.Reset(w.debounce)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error", "error", err)

		case <-timer.C:
			w.flush(ctx, pending)

		case <-w.stopCh:
			w.flush(ctx, pending)
			return

		case <-ctx.Done():
			w.flush(context.WithoutCancel(ctx), pending)
			return
		}
	}
}

func (w *Watcher) flush(ctx context.Context, pending map[string]bool) {
	for _, name := range slices.Sorted(maps.Keys(pending)) {
		if err := w.handler(ctx, name); err != nil {
			w.logger.Warn("failed to handle changed install", "install", name, "error", err)
		}
	}
	clear(pending)
}

// Stop halts the watcher and handles any changes still pending.
func (w *Watcher) Stop() error {
	var err error
	w.stopped.Do(func() {
		close(w.stopCh)
		w.wg.Wait()
		err = w.fs.Close()
	})
	return err
}
