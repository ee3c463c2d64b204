package links

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const debounceInterval = 300 * time.Millisecond

// Watcher reloads a flat links file whenever it changes on disk and swaps
// the result into a Registry. Entries from the file override base.
type Watcher struct {
	Path     string
	Base     map[string]string
	Registry *Registry
	Log      *zap.Logger

	// OnSubscriber, when set, is called with the subscriber id found in
	// each successfully reloaded file.
	OnSubscriber func(id string)
}

// Reload reads the file once and swaps the new table in. A broken file
// leaves the current table in place.
func (w *Watcher) Reload() error {
	entries, subscriberID, err := LoadFile(w.Path)
	if err != nil {
		return err
	}
	t, err := New(Merge(w.Base, entries))
	if err != nil {
		return err
	}
	w.Registry.Swap(t)
	if w.OnSubscriber != nil && subscriberID != "" {
		w.OnSubscriber(subscriberID)
	}
	return nil
}

// Run watches the file's directory (editors often replace files by rename)
// until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(w.Path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.Path, err)
	}

	target := filepath.Clean(w.Path)
	var debounce *time.Timer
	reload := func() {
		if err := w.Reload(); err != nil {
			w.Log.Warn("links reload failed, keeping previous table", zap.String("path", w.Path), zap.Error(err))
			return
		}
		w.Log.Info("links reloaded", zap.String("path", w.Path), zap.Int("links", w.Registry.Table().Len()))
	}

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceInterval, reload)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.Log.Warn("links watcher error", zap.Error(err))
		}
	}
}
