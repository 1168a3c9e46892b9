package storage

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/notekeep/internal/checksum"
)

// Change kinds reported to a ChangeCallback.
const (
	ChangeUpdated = "updated"
	ChangeRemoved = "removed"
)

// ChangeCallback is called after a collection file changes on disk.
type ChangeCallback func(kind string, key string)

// Watch reports changes to collection files under the data root until ctx
// is cancelled. Writes that leave a file's content unchanged are dropped,
// so a rewrite with identical bytes produces no callback.
func (f *FS) Watch(ctx context.Context, logger *slog.Logger, cb ChangeCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(f.root); err != nil {
		return err
	}

	seen := f.snapshot()
	logger.Info("watcher: started", slog.String("root", f.root))

	emit := func(kind, key string) {
		logger.Debug("watcher: change", slog.String("key", key), slog.String("op", kind))
		if cb != nil {
			cb(kind, key)
		}
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("watcher: stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			key, ok := keyFromFile(ev.Name)
			if !ok {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				data, readErr := os.ReadFile(ev.Name)
				if readErr != nil {
					// The file may already have been replaced again.
					if !errors.Is(readErr, os.ErrNotExist) {
						logger.Warn("watcher: read failed", slog.String("key", key), slog.String("error", readErr.Error()))
					}
					continue
				}
				sum := checksum.Sum(data)
				if seen[key] == sum {
					continue
				}
				seen[key] = sum
				emit(ChangeUpdated, key)

			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				if _, statErr := os.Stat(ev.Name); statErr == nil {
					continue
				}
				if _, tracked := seen[key]; !tracked {
					continue
				}
				delete(seen, key)
				emit(ChangeRemoved, key)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// snapshot returns the checksum of every collection file currently on disk.
func (f *FS) snapshot() map[string]string {
	out := make(map[string]string)
	matches, _ := filepath.Glob(filepath.Join(f.root, "*"+fileExt))
	for _, m := range matches {
		key, ok := keyFromFile(m)
		if !ok {
			continue
		}
		data, err := os.ReadFile(m)
		if err != nil {
			continue
		}
		out[key] = checksum.Sum(data)
	}
	return out
}
