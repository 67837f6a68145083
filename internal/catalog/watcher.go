package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stwalsh4118/livetv/internal/logger"
)

const (
	defaultWatchDebounce     = 250 * time.Millisecond
	defaultWatchPollInterval = 2 * time.Second
	defaultReloadTimeout     = 10 * time.Second
)

// ReloadFunc receives each freshly loaded catalog
type ReloadFunc func(ctx context.Context, c *Catalog)

// Watcher reloads a fixture lineup when its file changes.
// It uses fsnotify on the parent directory and falls back to polling the file's mtime.
type Watcher struct {
	provider     *FixtureProvider
	onReload     ReloadFunc
	debounce     time.Duration
	pollInterval time.Duration

	fsw      *fsnotify.Watcher
	stopChan chan struct{}
	done     chan struct{}

	mu      sync.Mutex
	started bool
	stopped bool
}

// WatcherOption configures a Watcher
type WatcherOption func(*Watcher)

// WithDebounce sets the quiet period before a change triggers a reload
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithPollInterval sets the mtime polling interval used without fsnotify
func WithPollInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.pollInterval = d
		}
	}
}

// NewWatcher creates a watcher for the provider's fixture file
func NewWatcher(provider *FixtureProvider, onReload ReloadFunc, opts ...WatcherOption) (*Watcher, error) {
	if provider == nil || provider.Path() == "" {
		return nil, fmt.Errorf("watcher requires a file-backed fixture provider")
	}
	if onReload == nil {
		return nil, fmt.Errorf("reload callback cannot be nil")
	}

	w := &Watcher{
		provider:     provider,
		onReload:     onReload,
		debounce:     defaultWatchDebounce,
		pollInterval: defaultWatchPollInterval,
		stopChan:     make(chan struct{}),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start begins watching. It may be called once.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return fmt.Errorf("watcher has been stopped")
	}
	if w.started {
		return fmt.Errorf("watcher already started")
	}
	w.started = true

	path := w.provider.Path()
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Log.Warn().
			Err(err).
			Str("path", path).
			Msg("Failed to create fsnotify watcher, falling back to polling")
	} else if err := fsw.Add(filepath.Dir(path)); err != nil {
		logger.Log.Warn().
			Err(err).
			Str("path", path).
			Msg("Failed to watch lineup directory, falling back to polling")
		_ = fsw.Close()
	} else {
		w.fsw = fsw
	}

	go w.run()

	logger.Log.Info().
		Str("path", path).
		Bool("using_fsnotify", w.fsw != nil).
		Msg("Lineup watcher started")

	return nil
}

// Stop stops watching and waits for an in-progress reload to finish
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	started := w.started
	w.mu.Unlock()

	close(w.stopChan)
	if !started {
		return nil
	}

	var err error
	if w.fsw != nil {
		err = w.fsw.Close()
	}
	<-w.done

	logger.Log.Debug().
		Str("path", w.provider.Path()).
		Msg("Lineup watcher stopped")

	return err
}

func (w *Watcher) run() {
	defer close(w.done)

	if w.fsw != nil {
		w.watch()
	} else {
		w.poll()
	}
}

// watch consumes fsnotify events and coalesces bursts into one reload
func (w *Watcher) watch() {
	target := filepath.Clean(w.provider.Path())

	var (
		timer   *time.Timer
		pending <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-w.stopChan:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			pending = timer.C
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logger.Log.Warn().
				Err(err).
				Msg("fsnotify error, continuing")
		case <-pending:
			pending = nil
			w.reload()
		}
	}
}

// poll compares the file's modification time on an interval
func (w *Watcher) poll() {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	var last time.Time
	if info, err := os.Stat(w.provider.Path()); err == nil {
		last = info.ModTime()
	}

	for {
		select {
		case <-w.stopChan:
			return
		case <-ticker.C:
			info, err := os.Stat(w.provider.Path())
			if err != nil {
				if !errors.Is(err, os.ErrNotExist) {
					logger.Log.Warn().
						Err(err).
						Str("path", w.provider.Path()).
						Msg("Failed to stat lineup during polling")
				}
				continue
			}
			if info.ModTime().After(last) {
				last = info.ModTime()
				w.reload()
			}
		}
	}
}

func (w *Watcher) reload() {
	ctx, cancel := context.WithTimeout(context.Background(), defaultReloadTimeout)
	defer cancel()

	go func() {
		select {
		case <-w.stopChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	c, err := Load(ctx, w.provider)
	if err != nil {
		logger.Log.Warn().
			Err(err).
			Str("path", w.provider.Path()).
			Msg("Lineup reload failed, keeping current catalog")
		return
	}

	logger.Log.Info().
		Str("path", w.provider.Path()).
		Int("events", c.Len()).
		Msg("Lineup reloaded")

	w.onReload(ctx, c)
}
