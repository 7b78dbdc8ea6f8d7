package storage

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

// NewTestDB creates a fully configured in-memory SQLite database for testing.
//
// The database includes:
//   - Foreign key constraints enabled (CRITICAL for cascade deletes)
//   - Full schema created
//   - Automatic cleanup registered with t.Cleanup()
func NewTestDB(t testing.TB) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	// A second pooled connection would see an empty database
	db.SetMaxOpenConns(1)

	// SQLite disables foreign keys by default for backward compatibility
	_, err = db.Exec("PRAGMA foreign_keys = ON")
	require.NoError(t, err)

	err = CreateSchema(db)
	require.NoError(t, err)

	return db
}

// NewTestStore wraps NewTestDB in a Store whose clock advances one second
// per call, so run ordering is deterministic.
func NewTestStore(t testing.TB) *Store {
	t.Helper()

	store := NewStore(NewTestDB(t))
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return store
}

// NewTestStoreFile opens a file-backed store in t.TempDir().
func NewTestStoreFile(t testing.TB) (*Store, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "nested", "runs.db")
	store, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store, path
}
