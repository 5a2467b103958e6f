package watcher

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ConfigWatcher watches a config file and invokes a callback after edits
// settle. Editors typically emit bursts of write/rename events, so the
// callback runs behind a debouncer.
type ConfigWatcher struct {
	path      string
	watcher   *fsnotify.Watcher
	debouncer *Debouncer
	done      chan struct{}
}

// WatchConfig starts watching path and calls onChange after each settled
// modification. The parent directory is watched so atomic-rename saves
// are seen.
func WatchConfig(path string, debounce time.Duration, onChange func()) (*ConfigWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	cw := &ConfigWatcher{
		path:      path,
		watcher:   fsw,
		debouncer: NewDebouncer(debounce),
		done:      make(chan struct{}),
	}
	go cw.loop(onChange)
	return cw, nil
}

func (cw *ConfigWatcher) loop(onChange func()) {
	target := filepath.Clean(cw.path)
	for {
		select {
		case ev, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				cw.debouncer.Trigger(onChange)
			}
		case _, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
		case <-cw.done:
			return
		}
	}
}

// Close stops the watcher and cancels any pending callback.
func (cw *ConfigWatcher) Close() error {
	close(cw.done)
	cw.debouncer.Cancel()
	return cw.watcher.Close()
}
