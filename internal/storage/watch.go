// Watches the database file for modifications made by other processes.

package storage

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch calls fn whenever the store's file is modified by someone else.
//
// The directory is watched rather than the file, since editors and Save itself
// replace the file by renaming. Writes made through this store are ignored.
// Watching stops when ctx is canceled.
func (s *FileStore) Watch(ctx context.Context, fn func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(s.path)); err != nil {
		_ = w.Close()
		return err
	}
	go func() {
		defer func() { _ = w.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != s.path {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				if !s.Changed() {
					continue
				}
				slog.InfoContext(ctx, "Database file modified externally", "path", s.path, "op", event.Op.String())
				fn()
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.WarnContext(ctx, "Error watching database file", "err", err)
			}
		}
	}()
	return nil
}
