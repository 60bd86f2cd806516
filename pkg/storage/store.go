// Package storage keeps small pieces of local state, such as the signed-in
// user, in a SQLite database under the state directory.
//
// The store degrades instead of failing: if the database cannot be opened or
// written, reads return empty values and writes are dropped with a warning.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const keyCurrentUser = "current_user"

const schema = `
CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`

// Store is a key-value store. A Store whose database is unavailable is still
// usable; every operation becomes a no-op.
type Store struct {
	db   *sql.DB
	path string
	log  *zap.Logger
}

// Open opens (or creates) the database at path. It never fails: when the
// medium is unavailable the returned Store reports Available() == false.
func Open(path string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{path: path, log: logger}
	if path == "" {
		logger.Warn("local storage unavailable", zap.String("reason", "no state directory"))
		return s
	}

	db, err := openDB(path)
	if err != nil {
		logger.Warn("local storage unavailable", zap.String("path", path), zap.Error(err))
		return s
	}
	s.db = db
	return s
}

func openDB(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return db, nil
}

// Available reports whether the database was opened. A nil Store is
// unavailable, and every method treats it as a no-op.
func (s *Store) Available() bool {
	return s != nil && s.db != nil
}

// Path returns the database path.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.Available() {
		return s.db.Close()
	}
	return nil
}

// Get returns the value stored under key, or "" if absent or unavailable.
func (s *Store) Get(key string) string {
	if !s.Available() {
		return ""
	}
	var value string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.log.Warn("storage read failed", zap.String("key", key), zap.Error(err))
		}
		return ""
	}
	return value
}

// Set stores value under key.
func (s *Store) Set(key, value string) {
	if !s.Available() {
		if s != nil {
			s.log.Debug("storage write dropped", zap.String("key", key))
		}
		return
	}
	_, err := s.db.Exec(
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		s.log.Warn("storage write failed", zap.String("key", key), zap.Error(err))
	}
}

// Delete removes key.
func (s *Store) Delete(key string) {
	if !s.Available() {
		return
	}
	if _, err := s.db.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
		s.log.Warn("storage delete failed", zap.String("key", key), zap.Error(err))
	}
}

// CurrentUser returns the signed-in user id, or "" when nobody is signed in.
func (s *Store) CurrentUser() string {
	return s.Get(keyCurrentUser)
}

// SetCurrentUser records the signed-in user. A blank id signs out.
func (s *Store) SetCurrentUser(id string) {
	id = strings.TrimSpace(id)
	if id == "" {
		s.ClearCurrentUser()
		return
	}
	s.Set(keyCurrentUser, id)
}

// ClearCurrentUser signs out.
func (s *Store) ClearCurrentUser() {
	s.Delete(keyCurrentUser)
}
