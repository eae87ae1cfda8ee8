package lai

import (
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
)

// ShaderWatcher notices when any of a set of shader files is rewritten on
// disk. The frame loop polls it between frames.
type ShaderWatcher struct {
	watcher *fsnotify.Watcher
	paths   map[string]bool
	dirty   atomic.Bool
	done    chan struct{}
}

// NewShaderWatcher watches the directories holding paths.
func NewShaderWatcher(paths []string) (*ShaderWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &ShaderWatcher{
		watcher: watcher,
		paths:   make(map[string]bool, len(paths)),
		done:    make(chan struct{}),
	}

	dirs := map[string]bool{}
	for _, p := range paths {
		w.paths[filepath.Clean(p)] = true
		dirs[filepath.Dir(p)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return nil, err
		}
	}

	go w.watch()
	return w, nil
}

func (w *ShaderWatcher) watch() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if w.paths[filepath.Clean(event.Name)] {
				slog.Debug("shader file changed", "path", event.Name, "op", event.Op)
				w.dirty.Store(true)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("shader watcher error", "err", err)
		}
	}
}

// Changed reports whether a watched file changed since the last call.
func (w *ShaderWatcher) Changed() bool {
	return w.dirty.Swap(false)
}

func (w *ShaderWatcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}
