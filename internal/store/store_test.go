package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// backends returns a fresh instance of every Store implementation.
func backends(t *testing.T) map[string]Store {
	t.Helper()

	fs, err := NewFileStore(filepath.Join(t.TempDir(), "session"), nil)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	sq, err := NewSQLiteStore(":memory:", nil)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	if err := sq.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	all := map[string]Store{
		BackendFile:   fs,
		BackendSQLite: sq,
		BackendMemory: NewMemoryStore(),
	}
	t.Cleanup(func() {
		for _, st := range all {
			st.Close()
		}
	})
	return all
}

func TestStore_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if _, ok, err := st.Get(ctx, "token"); err != nil || ok {
				t.Fatalf("Get on empty store = ok %v, err %v", ok, err)
			}

			if err := st.SetAll(ctx, map[string]string{"token": "tok1", "user": `{"id":1}`}); err != nil {
				t.Fatalf("SetAll: %v", err)
			}

			v, ok, err := st.Get(ctx, "token")
			if err != nil || !ok || v != "tok1" {
				t.Errorf("Get(token) = %q, %v, %v; want tok1", v, ok, err)
			}
			v, ok, err = st.Get(ctx, "user")
			if err != nil || !ok || v != `{"id":1}` {
				t.Errorf("Get(user) = %q, %v, %v", v, ok, err)
			}

			// Overwrite.
			if err := st.SetAll(ctx, map[string]string{"token": "tok2"}); err != nil {
				t.Fatalf("SetAll overwrite: %v", err)
			}
			if v, _, _ := st.Get(ctx, "token"); v != "tok2" {
				t.Errorf("Get(token) after overwrite = %q, want tok2", v)
			}

			if err := st.DeleteAll(ctx, "token", "user", "never-set"); err != nil {
				t.Fatalf("DeleteAll: %v", err)
			}
			for _, k := range []string{"token", "user"} {
				if _, ok, _ := st.Get(ctx, k); ok {
					t.Errorf("%s still present after DeleteAll", k)
				}
			}
		})
	}
}

func TestMemoryStore_Closed(t *testing.T) {
	st := NewMemoryStore()
	st.Close()
	if _, _, err := st.Get(context.Background(), "token"); !errors.Is(err, ErrClosed) {
		t.Errorf("Get after Close err = %v, want ErrClosed", err)
	}
}

func TestFileStore_Permissions(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "session")
	st, err := NewFileStore(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := st.SetAll(context.Background(), map[string]string{"token": "tok1"}); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(filepath.Join(dir, "token"))
	if err != nil {
		t.Fatalf("stat token: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("token file mode = %o, want 600", perm)
	}

	// No staging files left behind.
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("expected exactly one file in %s, got %d", dir, len(entries))
	}
}

func TestFileStore_RejectsPathKeys(t *testing.T) {
	st, err := NewFileStore(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := st.SetAll(context.Background(), map[string]string{"../escape": "x"}); err == nil {
		t.Error("expected error for key containing a path separator")
	}
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.db")

	st, err := NewSQLiteStore(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := st.Migrate(ctx); err != nil {
		t.Fatal(err)
	}
	if err := st.SetAll(ctx, map[string]string{"token": "tok1"}); err != nil {
		t.Fatal(err)
	}
	st.Close()

	reopened, err := NewSQLiteStore(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()
	if err := reopened.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate should be idempotent: %v", err)
	}
	if v, ok, err := reopened.Get(ctx, "token"); err != nil || !ok || v != "tok1" {
		t.Errorf("Get after reopen = %q, %v, %v", v, ok, err)
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	for _, backend := range []string{BackendFile, BackendSQLite, BackendMemory} {
		st, err := Open(ctx, backend, dir, nil)
		if err != nil {
			t.Errorf("Open(%q): %v", backend, err)
			continue
		}
		st.Close()
	}
	if _, err := Open(ctx, "redis", dir, nil); err == nil {
		t.Error("expected error for unknown backend")
	}
}
