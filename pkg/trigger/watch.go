package trigger

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
)

// WatchSource is a DirSource that only scans the directory after fsnotify
// reports filesystem activity, making it cheap to poll at high refresh
// rates. Consume semantics are identical to DirSource.
type WatchSource struct {
	dir     *DirSource
	watcher *fsnotify.Watcher
	logger  *slog.Logger
	dirty   atomic.Bool
	done    chan struct{}
}

// NewWatchSource returns a WatchSource for dir. The directory must exist.
func NewWatchSource(dir string, logger *slog.Logger) (*WatchSource, error) {
	ds, err := NewDirSource(dir, logger)
	if err != nil {
		return nil, err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}

	w := &WatchSource{
		dir:     ds,
		watcher: watcher,
		logger:  ds.logger,
		done:    make(chan struct{}),
	}
	// Files may already be waiting when the watch starts.
	w.dirty.Store(true)
	go w.collect()
	return w, nil
}

// collect folds watcher notifications into the dirty flag.
func (w *WatchSource) collect() {
	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Write) || ev.Op.Has(fsnotify.Rename) {
				w.dirty.Store(true)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "error", err)
			// Fall back to scanning in case events were lost.
			w.dirty.Store(true)
		case <-w.done:
			return
		}
	}
}

// Poll scans the directory when activity was observed since the last poll,
// otherwise returns immediately.
func (w *WatchSource) Poll(ctx context.Context) ([]Firing, error) {
	if !w.dirty.Swap(false) {
		return nil, nil
	}
	return w.dir.Poll(ctx)
}

// Close stops the watcher.
func (w *WatchSource) Close() error {
	close(w.done)
	return w.watcher.Close()
}
