package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
)

// ErrClosed is returned by operations on a closed Store.
var ErrClosed = errors.New("store: closed")

// Store is durable key-value storage for the persisted session record.
// Entries written by one SetAll call become visible together.
type Store interface {
	// Get returns the value for key and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)
	// SetAll writes every entry atomically.
	SetAll(ctx context.Context, entries map[string]string) error
	// DeleteAll removes the keys; missing keys are not an error.
	DeleteAll(ctx context.Context, keys ...string) error
	Close() error
}

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Open returns the Store for backend rooted at stateDir.
func Open(ctx context.Context, backend, stateDir string, logger *slog.Logger) (Store, error) {
	switch backend {
	case BackendFile, "":
		return NewFileStore(filepath.Join(stateDir, "session"), logger)
	case BackendSQLite:
		st, err := NewSQLiteStore(filepath.Join(stateDir, "session.db"), logger)
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			st.Close()
			return nil, fmt.Errorf("migrate session db: %w", err)
		}
		return st, nil
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown session store %q (want file, sqlite or memory)", backend)
	}
}
