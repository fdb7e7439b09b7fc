// Package store provides SQLite persistence for feed snapshots.
//
// A snapshot is an opaque payload saved under (session, key). The feed
// queue keeps its restorable state here so a restarted client can resume
// where it left off. It is a recovery aid, not durable storage: callers
// treat a missing or unreadable snapshot as "nothing to restore".
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Store handles SQLite persistence. NOT an interface - concrete type.
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// SnapshotInfo describes a stored snapshot without its payload.
type SnapshotInfo struct {
	Session string
	Key     string
	Size    int
	SavedAt time.Time
}

// Open creates a Store at dbPath, creating tables if needed.
// ":memory:" opens a private in-memory database.
func Open(dbPath string) (*Store, error) {
	connStr := dbPath
	if dbPath == ":memory:" {
		connStr = "file::memory:?cache=shared"
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if dbPath != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	s := &Store{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return s, nil
}

func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		session TEXT NOT NULL,
		key TEXT NOT NULL,
		payload BLOB NOT NULL,
		saved_at INTEGER NOT NULL,
		PRIMARY KEY (session, key)
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// Save replaces the snapshot under (session, key).
func (s *Store) Save(session, key string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO snapshots (session, key, payload, saved_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(session, key) DO UPDATE SET payload = excluded.payload, saved_at = excluded.saved_at
	`, session, key, payload, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("save snapshot %s/%s: %w", session, key, err)
	}
	return nil
}

// Load returns the snapshot under (session, key). ok is false if none exists.
func (s *Store) Load(session, key string) (payload []byte, ok bool, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	err = s.db.QueryRow(`SELECT payload FROM snapshots WHERE session = ? AND key = ?`, session, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load snapshot %s/%s: %w", session, key, err)
	}
	return payload, true, nil
}

// Delete removes the snapshot under (session, key). Deleting nothing is not an error.
func (s *Store) Delete(session, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM snapshots WHERE session = ? AND key = ?`, session, key); err != nil {
		return fmt.Errorf("delete snapshot %s/%s: %w", session, key, err)
	}
	return nil
}

// DeleteSession removes every snapshot of a session, returning how many were removed.
func (s *Store) DeleteSession(session string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`DELETE FROM snapshots WHERE session = ?`, session)
	if err != nil {
		return 0, fmt.Errorf("delete session %s: %w", session, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// List describes every stored snapshot, newest first.
func (s *Store) List() ([]SnapshotInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT session, key, length(payload), saved_at FROM snapshots ORDER BY saved_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SnapshotInfo
	for rows.Next() {
		var info SnapshotInfo
		var savedAt int64
		if err := rows.Scan(&info.Session, &info.Key, &info.Size, &savedAt); err != nil {
			return nil, err
		}
		info.SavedAt = time.UnixMilli(savedAt)
		out = append(out, info)
	}
	return out, rows.Err()
}

// Session binds the store to one session name.
func (s *Store) Session(name string) *Session {
	return &Session{store: s, name: name}
}

// Session is a Store view scoped to one session.
type Session struct {
	store *Store
	name  string
}

// Name returns the session name.
func (s *Session) Name() string {
	return s.name
}

// Save stores payload under key.
func (s *Session) Save(key string, payload []byte) error {
	return s.store.Save(s.name, key, payload)
}

// Load returns the payload under key, or nil if there is none.
func (s *Session) Load(key string) ([]byte, error) {
	payload, _, err := s.store.Load(s.name, key)
	return payload, err
}

// Delete removes key.
func (s *Session) Delete(key string) error {
	return s.store.Delete(s.name, key)
}
