// Records every save of the database file as a git commit.

package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

const (
	historyName  = "tabledb"
	historyEmail = "tabledb@localhost"
)

// Commit is one entry of the database history.
type Commit struct {
	Hash    string
	Message string
	When    time.Time
}

// History commits the database file to a git repository in its directory.
type History struct {
	file string
	repo *gogit.Repository
	mu   sync.Mutex
}

// OpenHistory opens the git repository holding path, initializing one in the
// file's directory if there is none.
func OpenHistory(path string) (*History, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec // G301: data directories are world readable
		return nil, fmt.Errorf("failed to create repo directory: %w", err)
	}
	repo, err := gogit.PlainOpen(dir)
	if err != nil {
		if !errors.Is(err, gogit.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("failed to open git repo: %w", err)
		}
		if repo, err = gogit.PlainInit(dir, false); err != nil {
			return nil, fmt.Errorf("failed to initialize git repo: %w", err)
		}
		cfg, err := repo.Config()
		if err != nil {
			return nil, fmt.Errorf("failed to read git config: %w", err)
		}
		cfg.User.Name = historyName
		cfg.User.Email = historyEmail
		if err := repo.SetConfig(cfg); err != nil {
			return nil, fmt.Errorf("failed to write git config: %w", err)
		}
	}
	return &History{file: filepath.Base(path), repo: repo}, nil
}

// Record stages the database file and commits it with msg. Nothing is
// committed when the content is unchanged since the last commit.
func (h *History) Record(msg string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	w, err := h.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}
	if _, err := w.Add(h.file); err != nil {
		return fmt.Errorf("failed to stage %s: %w", h.file, err)
	}
	status, err := w.Status()
	if err != nil {
		return fmt.Errorf("failed to get worktree status: %w", err)
	}
	// Other files in the directory are none of our business.
	switch status.File(h.file).Staging {
	case gogit.Added, gogit.Modified:
	default:
		return nil
	}
	now := time.Now()
	sig := &object.Signature{Name: historyName, Email: historyEmail, When: now}
	if _, err := w.Commit(msg, &gogit.CommitOptions{Author: sig, Committer: sig}); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// Log returns up to n commits touching the database file, newest first. n <= 0
// means all of them.
func (h *History) Log(n int) ([]Commit, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, err := h.repo.Head(); err != nil {
		// No commit yet.
		return nil, nil
	}
	iter, err := h.repo.Log(&gogit.LogOptions{FileName: &h.file})
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	defer iter.Close()
	var out []Commit
	for n <= 0 || len(out) < n {
		c, err := iter.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return out, fmt.Errorf("failed to read history: %w", err)
		}
		subject, _, _ := strings.Cut(c.Message, "\n")
		out = append(out, Commit{Hash: c.Hash.String(), Message: subject, When: c.Author.When})
	}
	return out, nil
}
