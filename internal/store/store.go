// Package store provides the durable, watchable key-value storage shared
// by the engine, the planner, the coordinator and the dashboard. Values
// are JSON-encoded rows in SQLite; change notification is an in-process
// subscription list mirroring the storage.watch contract the rest of the
// system is written against.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// ErrClosed is returned once the store has been closed; callers treat it
// as a signal to stop relying on watches and mark themselves inactive.
var ErrClosed = errors.New("store is closed")

// WatchFunc receives the new raw value after a change. raw is nil when
// the key was removed. Callbacks must be reentrant-safe: they may fire
// while the engine is mid-iteration and should only swap in-memory state.
type WatchFunc func(raw json.RawMessage)

// Store wraps the SQLite database and the watch registry.
type Store struct {
	db *sql.DB

	mu       sync.Mutex
	closed   bool
	watchers map[string]map[int]WatchFunc
	nextID   int
}

// Open creates or opens the store at the given path.
func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &Store{
		db:       db,
		watchers: make(map[string]map[int]WatchFunc),
	}

	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection and drops all watchers.
func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.watchers = make(map[string]map[int]WatchFunc)
	s.mu.Unlock()
	return s.db.Close()
}

func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS follower_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			date TEXT UNIQUE NOT NULL,
			followers INTEGER DEFAULT 0,
			following INTEGER DEFAULT 0,
			posts INTEGER DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_follower_history_date ON follower_history(date)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w\nQuery: %s", err, migration)
		}
	}

	return nil
}

// Get unmarshals the stored value for key into out. The first return
// value reports whether the key existed.
func (s *Store) Get(key string, out interface{}) (bool, error) {
	if s.isClosed() {
		return false, ErrClosed
	}

	var value string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get %q: %w", key, err)
	}

	if out != nil {
		if err := json.Unmarshal([]byte(value), out); err != nil {
			return true, fmt.Errorf("failed to decode %q: %w", key, err)
		}
	}

	return true, nil
}

// Set stores the JSON encoding of v under key and notifies watchers.
func (s *Store) Set(key string, v interface{}) error {
	if s.isClosed() {
		return ErrClosed
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %q: %w", key, err)
	}

	_, err = s.db.Exec(`
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, string(data), time.Now())
	if err != nil {
		return fmt.Errorf("failed to set %q: %w", key, err)
	}

	s.notify(key, data)
	return nil
}

// Remove deletes the key and notifies watchers with a nil value.
func (s *Store) Remove(key string) error {
	if s.isClosed() {
		return ErrClosed
	}

	if _, err := s.db.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to remove %q: %w", key, err)
	}

	s.notify(key, nil)
	return nil
}

// Watch registers fn for changes to key and returns an unsubscribe
// function. Notifications are delivered on their own goroutine so a slow
// watcher cannot stall a writer.
func (s *Store) Watch(key string, fn WatchFunc) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return func() {}
	}

	if s.watchers[key] == nil {
		s.watchers[key] = make(map[int]WatchFunc)
	}
	id := s.nextID
	s.nextID++
	s.watchers[key][id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.watchers[key], id)
	}
}

func (s *Store) notify(key string, raw json.RawMessage) {
	s.mu.Lock()
	fns := make([]WatchFunc, 0, len(s.watchers[key]))
	for _, fn := range s.watchers[key] {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		go fn(raw)
	}
}

func (s *Store) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// TodayDate returns today's date in YYYY-MM-DD format.
func TodayDate() string {
	return time.Now().Format("2006-01-02")
}
