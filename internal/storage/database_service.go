package storage

import (
	"context"
	"log/slog"
	"sync"

	"github.com/maruel/tabledb/internal/catalog"
)

// DatabaseService ties a catalog to the file it is persisted in.
//
// The catalog may be replaced wholesale by Reload, so callers must fetch it
// with Catalog for every operation instead of keeping a reference.
type DatabaseService struct {
	fileStore *FileStore

	mu  sync.RWMutex
	cat *catalog.Catalog
	// saveMu serializes snapshot and write so an older snapshot never lands
	// after a newer one.
	saveMu sync.Mutex
}

// Options configures OpenDatabase.
type Options struct {
	// History commits the file to a git repository in its directory after
	// every save.
	History bool
}

// OpenDatabase loads the database file at path, creating it if missing.
func OpenDatabase(path string, opts Options) (*DatabaseService, error) {
	fs, err := NewFileStore(path)
	if err != nil {
		return nil, err
	}
	if opts.History {
		if err := fs.EnableHistory(); err != nil {
			return nil, err
		}
	}
	cat, err := fs.Load()
	if err != nil {
		return nil, err
	}
	return &DatabaseService{fileStore: fs, cat: cat}, nil
}

// FileStore returns the underlying file store.
func (s *DatabaseService) FileStore() *FileStore {
	return s.fileStore
}

// Catalog returns the current catalog.
func (s *DatabaseService) Catalog() *catalog.Catalog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cat
}

// Save writes the current catalog to disk. msg names the operation that
// changed it.
func (s *DatabaseService) Save(msg string) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	return s.fileStore.Save(s.Catalog(), msg)
}

// Reload replaces the catalog with the file content. On error the current
// catalog is kept.
func (s *DatabaseService) Reload() error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	cat, err := s.fileStore.Load()
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.cat = cat
	s.mu.Unlock()
	return nil
}

// Watch reloads the catalog whenever the file is modified by another process.
func (s *DatabaseService) Watch(ctx context.Context) error {
	return s.fileStore.Watch(ctx, func() {
		if err := s.Reload(); err != nil {
			slog.WarnContext(ctx, "Failed to reload database", "path", s.fileStore.Path(), "err", err)
			return
		}
		slog.InfoContext(ctx, "Reloaded database", "path", s.fileStore.Path(), "tables", s.Catalog().Len())
	})
}
