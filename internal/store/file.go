package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/me/expensectl/internal/logging"
)

var validKey = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// FileStore keeps one file per key under dir. This is the terminal
// equivalent of browser-local storage: private to the OS user, surviving
// restarts.
type FileStore struct {
	dir    string
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
}

// NewFileStore creates dir (mode 0700) if needed.
func NewFileStore(dir string, logger *slog.Logger) (*FileStore, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}
	return &FileStore{dir: dir, logger: logger.With("component", "store", "backend", BackendFile)}, nil
}

// Dir returns the directory holding the entries.
func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) path(key string) (string, error) {
	if !validKey.MatchString(key) {
		return "", fmt.Errorf("invalid key %q", key)
	}
	return filepath.Join(s.dir, key), nil
}

func (s *FileStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", false, ErrClosed
	}

	p, err := s.path(key)
	if err != nil {
		return "", false, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read %s: %w", key, err)
	}
	return string(data), true, nil
}

// SetAll stages every entry in a temp file first, then renames them into
// place, so a failed write leaves the previous record untouched.
func (s *FileStore) SetAll(_ context.Context, entries map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	staged := make(map[string]string, len(entries))
	cleanup := func() {
		for tmp := range staged {
			os.Remove(tmp)
		}
	}

	for key, value := range entries {
		p, err := s.path(key)
		if err != nil {
			cleanup()
			return err
		}
		f, err := os.CreateTemp(s.dir, "."+key+".tmp-*")
		if err != nil {
			cleanup()
			return fmt.Errorf("stage %s: %w", key, err)
		}
		staged[f.Name()] = p
		if err := f.Chmod(0600); err != nil {
			f.Close()
			cleanup()
			return fmt.Errorf("chmod %s: %w", key, err)
		}
		if _, err := f.WriteString(value); err != nil {
			f.Close()
			cleanup()
			return fmt.Errorf("write %s: %w", key, err)
		}
		if err := f.Close(); err != nil {
			cleanup()
			return fmt.Errorf("close %s: %w", key, err)
		}
	}

	for tmp, final := range staged {
		if err := os.Rename(tmp, final); err != nil {
			cleanup()
			return fmt.Errorf("commit %s: %w", filepath.Base(final), err)
		}
		delete(staged, tmp)
	}

	s.logger.Debug("entries written", "count", len(entries))
	return nil
}

func (s *FileStore) DeleteAll(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	var errs []error
	for _, key := range keys {
		p, err := s.path(key)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, fmt.Errorf("remove %s: %w", key, err))
		}
	}
	s.logger.Debug("entries deleted", "count", len(keys))
	return errors.Join(errs...)
}

func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
