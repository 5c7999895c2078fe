package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"github.com/book-expert/gsv2p-tts/internal/core"
)

// Watcher serves the values of a config file and reloads them when the file
// changes. A reload that fails to parse keeps the previous values.
type Watcher struct {
	path    string
	current atomic.Pointer[Values]
	log     core.Logger
}

// NewWatcher loads path once and returns a watcher serving its values.
func NewWatcher(path string, log core.Logger) (*Watcher, error) {
	watcher := &Watcher{path: path, log: log}

	err := watcher.reload()
	if err != nil {
		return nil, err
	}

	return watcher, nil
}

// Get implements core.ConfigSource against the most recently loaded file.
func (w *Watcher) Get(key string) (any, bool) {
	return w.current.Load().Get(key)
}

// Run watches the directory holding the config file until ctx is done.
// The directory is watched instead of the file so that editors replacing the
// file by rename are still observed.
func (w *Watcher) Run(ctx context.Context) error {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fsWatcher.Close()

	err = fsWatcher.Add(filepath.Dir(w.path))
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.path, err)
	}

	target := filepath.Clean(w.path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsWatcher.Events:
			if !ok {
				return nil
			}

			if filepath.Clean(event.Name) != target {
				continue
			}

			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			reloadErr := w.reload()
			if reloadErr != nil {
				w.log.Warn("Keeping previous configuration, reload of %s failed: %v", w.path, reloadErr)

				continue
			}

			w.log.Info("Configuration reloaded from %s", w.path)
		case watchErr, ok := <-fsWatcher.Errors:
			if !ok {
				return nil
			}

			w.log.Error("Config watcher error: %v", watchErr)
		}
	}
}

func (w *Watcher) reload() error {
	cfg, err := LoadFile(w.path)
	if err != nil {
		return err
	}

	values, err := cfg.Values()
	if err != nil {
		return err
	}

	w.current.Store(&values)

	return nil
}
