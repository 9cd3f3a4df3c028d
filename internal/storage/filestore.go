// Package storage persists a whole catalog to a single file.
//
// Every save rewrites the file; there is no incremental persistence. Writes go
// to a temporary file in the same directory which is then renamed over the
// target, so readers never see a partial document.
package storage

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/maruel/tabledb/internal/catalog"
	"github.com/maruel/tabledb/internal/table"
)

// ErrLoad is matched by every error returned when a file cannot be loaded.
var ErrLoad = errors.New("failed to load database")

// LoadError reports a database file that exists but cannot be read or decoded.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *LoadError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrLoad) true.
func (e *LoadError) Is(target error) bool {
	return target == ErrLoad
}

// FileStore loads and saves a catalog from one file.
type FileStore struct {
	path    string
	codec   Codec
	history *History

	mu sync.Mutex
	// sum is the hash of the content last written or read by this store; known
	// is false until then.
	sum   uint64
	known bool
}

// NewFileStore returns a store for path. The codec is chosen by extension.
func NewFileStore(path string) (*FileStore, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	return &FileStore{path: abs, codec: CodecFor(abs)}, nil
}

// EnableHistory commits the file to git after every save.
func (s *FileStore) EnableHistory() error {
	h, err := OpenHistory(s.path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.history = h
	s.mu.Unlock()
	return nil
}

// History returns the commit history, or nil when disabled.
func (s *FileStore) History() *History {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history
}

// Path returns the absolute path of the database file.
func (s *FileStore) Path() string {
	return s.path
}

// Codec returns the codec used for the file.
func (s *FileStore) Codec() Codec {
	return s.codec
}

// Load reads the catalog from disk.
//
// A missing file yields an empty catalog, which is saved immediately so the
// file exists afterwards. A file that cannot be decoded yields a *LoadError.
func (s *FileStore) Load() (*catalog.Catalog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, &LoadError{Path: s.path, Err: err}
		}
		slog.Info("Creating database", "path", s.path, "codec", s.codec.Name())
		c := catalog.New()
		if err := s.saveLocked(Document{}, "Create database"); err != nil {
			return nil, err
		}
		return c, nil
	}

	var doc Document
	if err := s.codec.Unmarshal(data, &doc); err != nil {
		return nil, &LoadError{Path: s.path, Err: err}
	}
	c, err := Restore(doc)
	if err != nil {
		return nil, &LoadError{Path: s.path, Err: err}
	}
	for _, name := range c.Tables() {
		if err := c.View(name, (*table.Table).Check); err != nil {
			return nil, &LoadError{Path: s.path, Err: fmt.Errorf("table %q: %w", name, err)}
		}
	}
	s.remember(data)
	slog.Debug("Loaded database", "path", s.path, "tables", c.Len())
	return c, nil
}

// Save writes the whole catalog to disk. msg describes the change in the
// history, when enabled.
func (s *FileStore) Save(c *catalog.Catalog, msg string) error {
	doc, err := Snapshot(c)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(doc, msg)
}

func (s *FileStore) saveLocked(doc Document, msg string) error {
	data, err := s.codec.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode database: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec // G301: data directories are world readable
		return fmt.Errorf("failed to create directory for %s: %w", s.path, err)
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmp := f.Name()
	defer func() {
		_ = os.Remove(tmp)
	}()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write database: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to sync database: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", s.path, err)
	}
	s.remember(data)
	if s.history != nil {
		if err := s.history.Record(msg); err != nil {
			return fmt.Errorf("failed to record history of %s: %w", s.path, err)
		}
	}
	return nil
}

// remember records the content of the file. Caller holds s.mu.
func (s *FileStore) remember(data []byte) {
	s.sum, s.known = xxhash.Sum64(data), true
}

// Changed reports whether the file content differs from what this store last
// read or wrote.
func (s *FileStore) Changed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.path)
	if err != nil {
		return s.known
	}
	return !s.known || xxhash.Sum64(data) != s.sum
}
