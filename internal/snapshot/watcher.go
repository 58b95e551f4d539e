// internal/snapshot/watcher.go
package snapshot

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher takes a fresh snapshot whenever the watched directory settles after
// a burst of filesystem events.
type Watcher struct {
	manager  *Manager
	fsw      *fsnotify.Watcher
	debounce time.Duration
	logger   *zap.Logger
}

func NewWatcher(manager *Manager, logger *zap.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Watcher{
		manager:  manager,
		fsw:      fsw,
		debounce: 750 * time.Millisecond,
		logger:   logger,
	}, nil
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if w.manager.ignoreDirs[d.Name()] && path != dir {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

// Run watches dir until ctx is cancelled, snapshotting with the "auto" label
// after each debounced burst of changes.
func (w *Watcher) Run(ctx context.Context, dir string) error {
	defer w.fsw.Close()

	if err := w.addRecursive(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if w.manager.ignoreDirs[filepath.Base(filepath.Dir(event.Name))] ||
				w.manager.ignoreDirs[filepath.Base(event.Name)] {
				continue
			}
			// New directories need their own watch before anything inside
			// them can be seen.
			if event.Op&fsnotify.Create != 0 {
				if err := w.addRecursive(event.Name); err != nil {
					w.logger.Debug("watch add failed", zap.String("path", event.Name), zap.Error(err))
				}
			}
			if pending && !timer.Stop() {
				<-timer.C
			}
			timer.Reset(w.debounce)
			pending = true

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", zap.Error(err))

		case <-timer.C:
			pending = false
			if _, err := w.manager.Take(dir, "auto"); err != nil {
				w.logger.Error("auto snapshot failed", zap.Error(err))
			}
		}
	}
}
