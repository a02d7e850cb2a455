package wordlist

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 300 * time.Millisecond

// Watcher reloads the bundled lists of a catalog when files in its
// directory change. Bursts of events are folded into one reload.
type Watcher struct {
	catalog  *Catalog
	logger   *zap.Logger
	debounce time.Duration
	reloaded func(n int)
}

type WatcherOption func(*Watcher)

func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.debounce = d }
}

// OnReload registers a callback run after every reload
func OnReload(fn func(n int)) WatcherOption {
	return func(w *Watcher) { w.reloaded = fn }
}

func NewWatcher(catalog *Catalog, logger *zap.Logger, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		catalog:  catalog,
		logger:   logger,
		debounce: defaultDebounce,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run watches until ctx ends
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.catalog.Dir()); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.catalog.Dir(), err)
	}
	w.logger.Info("Watching word lists", zap.String("dir", w.catalog.Dir()))

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !relevant(event) {
				continue
			}
			w.logger.Debug("Word list changed", zap.String("file", event.Name), zap.String("op", event.Op.String()))
			timer.Reset(w.debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("Watcher error", zap.Error(err))

		case <-timer.C:
			n, err := w.catalog.Reload(ctx)
			if err != nil {
				w.logger.Error("Failed to reload word lists", zap.Error(err))
				continue
			}
			if w.reloaded != nil {
				w.reloaded(n)
			}
		}
	}
}

func relevant(event fsnotify.Event) bool {
	if !strings.HasSuffix(strings.ToLower(event.Name), ".txt") {
		return false
	}
	return event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0
}
