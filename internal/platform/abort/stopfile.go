package abort

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// StopFileWatcher raises a Signal as soon as the stop file appears. The
// `queuebreaker stop` command creates that file from another terminal.
type StopFileWatcher struct {
	path    string
	signal  *Signal
	logger  zerolog.Logger
	watcher *fsnotify.Watcher
	started atomic.Bool
	done    chan struct{}
}

func NewStopFileWatcher(path string, signal *Signal, logger zerolog.Logger) (*StopFileWatcher, error) {
	if path == "" {
		return nil, fmt.Errorf("stop file path is required")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create stop file dir: %w", err)
	}
	// A stop file left over from an earlier run must not abort this one.
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("remove stale stop file: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("new stop file watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	return &StopFileWatcher{
		path:    filepath.Clean(path),
		signal:  signal,
		logger:  logger.With().Str("component", "stop_file").Logger(),
		watcher: watcher,
		done:    make(chan struct{}),
	}, nil
}

// Start runs the watch loop until ctx ends or Close is called.
func (w *StopFileWatcher) Start(ctx context.Context) {
	if !w.started.CompareAndSwap(false, true) {
		return
	}
	go w.watchLoop(ctx)
}

func (w *StopFileWatcher) watchLoop(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&fsnotify.Create == fsnotify.Create || event.Op&fsnotify.Write == fsnotify.Write {
				w.logger.Warn().Str("file", event.Name).Msg("stop file detected, aborting session")
				w.signal.Set("stop_file")
				return
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error().Err(err).Msg("stop file watcher error")
		}
	}
}

func (w *StopFileWatcher) Close() error {
	err := w.watcher.Close()
	if w.started.Load() {
		<-w.done
	}
	return err
}

// RequestStop creates the stop file observed by a running session.
func RequestStop(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create stop file dir: %w", err)
	}
	if err := os.WriteFile(path, []byte("stop\n"), 0o644); err != nil {
		return fmt.Errorf("write stop file: %w", err)
	}
	return nil
}
