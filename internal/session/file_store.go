package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
)

const (
	sessionFile = "session.json"
	userIDFile  = "userId"
)

// FileStore keeps the session record in a private directory on the local filesystem.
type FileStore struct {
	baseDir string
	mu      sync.Mutex
}

// NewFileStore creates a file backed store.
// If baseDir is empty, uses ~/.musickatta/
func NewFileStore(baseDir string) (*FileStore, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		baseDir = filepath.Join(home, ".musickatta")
	}

	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}

	log.Debug().Str("baseDir", baseDir).Msg("session store initialized")

	return &FileStore{baseDir: baseDir}, nil
}

// OpenFileStore is NewFileStore that degrades to Unavailable when the directory cannot
// be resolved or created, so callers read as logged out instead of failing.
func OpenFileStore(baseDir string) Store {
	store, err := NewFileStore(baseDir)
	if err != nil {
		log.Warn().Err(err).Msg("session storage unavailable, continuing logged out")
		return Unavailable{}
	}
	return store
}

func (s *FileStore) Get(ctx context.Context) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(sessionFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	return decodeOrClear(ctx, data, s.clear)
}

func (s *FileStore) Save(ctx context.Context, sess Session) error {
	data, err := Marshal(sess)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writeAtomic(sessionFile, data); err != nil {
		return err
	}

	if id := auxUserID(sess); id != "" {
		if err := s.writeAtomic(userIDFile, []byte(id)); err != nil {
			return err
		}
	} else if err := removeIfExists(s.path(userIDFile)); err != nil {
		return err
	}

	log.Ctx(ctx).Debug().Str("kind", string(sess.Kind())).Msg("session saved")
	return nil
}

func (s *FileStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.clear(); err != nil {
		return err
	}
	log.Ctx(ctx).Debug().Msg("session cleared")
	return nil
}

// UserID returns the auxiliary raw user id, empty when none is stored.
func (s *FileStore) UserID() (string, error) {
	data, err := os.ReadFile(s.path(userIDFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read user id: %w", err)
	}
	return string(data), nil
}

func (s *FileStore) clear() error {
	if err := removeIfExists(s.path(sessionFile)); err != nil {
		return err
	}
	return removeIfExists(s.path(userIDFile))
}

func (s *FileStore) path(name string) string {
	return filepath.Join(s.baseDir, name)
}

// writeAtomic writes to a temp file first and renames it into place.
func (s *FileStore) writeAtomic(name string, data []byte) error {
	target := s.path(name)
	tempPath := target + ".tmp"

	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}

	if err := os.Rename(tempPath, target); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to save %s: %w", name, err)
	}
	return nil
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", filepath.Base(path), err)
	}
	return nil
}
