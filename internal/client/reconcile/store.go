package reconcile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

// LocalStore is the persisted key/value cache the reconciler renders from
// before the server answers. Values are opaque text.
//
// A LocalStore holds one user's data. Stores shared by several accounts
// must be wrapped with ForOwner before they reach a Reconciler.
type LocalStore interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
}

// =========================================================================
// OWNER SCOPING
// =========================================================================
//
// Cached collections are personal. A laptop used by two accounts, or one
// person signing in with two accounts, must never render the first
// account's trips for the second. ownerStore prefixes every key with the
// owner id, so "travelboard.trips.v2" for user "u1" is stored as
// "u1/travelboard.trips.v2" and is invisible under any other owner.
//
// Legacy keys are scoped the same way: migration only ever adopts entries
// the current owner wrote.

type ownerStore struct {
	inner  LocalStore
	prefix string
}

// ForOwner returns the view of store that belongs to ownerID.
func ForOwner(store LocalStore, ownerID string) LocalStore {
	return &ownerStore{inner: store, prefix: ownerID + "/"}
}

func (o *ownerStore) Get(key string) (string, bool, error) {
	return o.inner.Get(o.prefix + key)
}

func (o *ownerStore) Set(key, value string) error {
	return o.inner.Set(o.prefix+key, value)
}

// MemoryStore is a LocalStore for tests and throwaway sessions.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (m *MemoryStore) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryStore) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

// =========================================================================
// SQLITE STORE
// =========================================================================
//
// SQLiteStore keeps the cache in a single table of a local SQLite file:
//
//	CREATE TABLE cache (key TEXT PRIMARY KEY, value TEXT NOT NULL)
//
// Set is one upsert statement, so a crash leaves either the old value or
// the new one. The dashboard command opens one file per signed-in user.

const cacheSchema = `CREATE TABLE IF NOT EXISTS cache (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`

type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (creating if needed) the cache database at path.
// ":memory:" gives a private in-memory store.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("reconcile: opening cache %s: %w", path, err)
	}
	// One connection: writes serialise and ":memory:" stays one database.
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{"PRAGMA busy_timeout=5000", cacheSchema} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("reconcile: preparing cache %s: %w", path, err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Get(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(context.Background(),
		`SELECT value FROM cache WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reconcile: reading cache[%s]: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLiteStore) Set(key, value string) error {
	_, err := s.db.ExecContext(context.Background(), `
		INSERT INTO cache (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("reconcile: writing cache[%s]: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
