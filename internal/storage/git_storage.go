// Versions a JSON data directory with go-git: every table write or edit
// becomes a commit.

package storage

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

const (
	defaultAuthorName  = "flatdb"
	defaultAuthorEmail = "flatdb@localhost"
)

// GitStorage is a JSONStorage whose data directory is a git repository.
type GitStorage struct {
	*JSONStorage
	repo *gogit.Repository
	mu   sync.Mutex
}

// NewGitStorage opens or initializes a repository at dir.
func NewGitStorage(dir string) (*GitStorage, error) {
	js, err := NewJSONStorage(dir)
	if err != nil {
		return nil, err
	}
	repo, err := gogit.PlainOpen(dir)
	if err != nil {
		repo, err = gogit.PlainInit(dir, false)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize git repo: %w", err)
		}
		cfg, err := repo.Config()
		if err != nil {
			return nil, fmt.Errorf("failed to read git config: %w", err)
		}
		cfg.User.Name = defaultAuthorName
		cfg.User.Email = defaultAuthorEmail
		if err := repo.SetConfig(cfg); err != nil {
			return nil, fmt.Errorf("failed to write git config: %w", err)
		}
	}
	return &GitStorage{JSONStorage: js, repo: repo}, nil
}

func (s *GitStorage) WriteTable(database, table string, data []byte) error {
	if err := s.JSONStorage.WriteTable(database, table, data); err != nil {
		return err
	}
	return s.commit(database, table, fmt.Sprintf("Create table %s/%s", database, table))
}

func (s *GitStorage) EditTable(database, table string, data []byte) error {
	if err := s.JSONStorage.EditTable(database, table, data); err != nil {
		return err
	}
	return s.commit(database, table, fmt.Sprintf("Update table %s/%s", database, table))
}

func (s *GitStorage) commit(database, table, msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := s.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}
	rel := filepath.ToSlash(filepath.Join(database, table+jsonExt))
	if _, err := w.Add(rel); err != nil {
		return fmt.Errorf("failed to stage %s: %w", rel, err)
	}
	status, err := w.Status()
	if err != nil {
		return fmt.Errorf("failed to get worktree status: %w", err)
	}
	// Only the table file is staged; other files in the worktree stay out
	// of the commit.
	if st, ok := status[rel]; !ok || st.Staging == gogit.Unmodified || st.Staging == gogit.Untracked {
		return nil
	}
	now := time.Now()
	sig := &object.Signature{Name: defaultAuthorName, Email: defaultAuthorEmail, When: now}
	if _, err := w.Commit(msg, &gogit.CommitOptions{Author: sig, Committer: sig}); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// CommitCount returns the number of commits reachable from HEAD.
func (s *GitStorage) CommitCount() (int, error) {
	head, err := s.repo.Head()
	if err != nil {
		return 0, fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	iter, err := s.repo.Log(&gogit.LogOptions{From: head.Hash()})
	if err != nil {
		return 0, fmt.Errorf("failed to read log: %w", err)
	}
	n := 0
	err = iter.ForEach(func(*object.Commit) error {
		n++
		return nil
	})
	return n, err
}
