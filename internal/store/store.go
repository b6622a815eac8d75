// Package store provides SQLite persistence for showmore.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a bookmark does not exist.
var ErrNotFound = errors.New("store: bookmark not found")

// Store handles SQLite persistence. NOT an interface - concrete type.
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Store struct {
	db *sql.DB
	mu sync.RWMutex // Protects all database operations
}

// Bookmark is a captured image URL.
type Bookmark struct {
	ID         int64
	URL        string
	CapturedAt time.Time
}

// Open creates a new Store with the given database path.
// Creates tables if they don't exist.
// Uses WAL mode for better concurrent read performance (file-based DBs only).
func Open(dbPath string) (*Store, error) {
	connStr := dbPath
	if dbPath == ":memory:" {
		// Shared cache so all connections in the pool see the same database
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

// createTables creates the required tables if they don't exist.
func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS bookmarks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT NOT NULL UNIQUE,
		captured_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
// Thread-safe: acquires write lock to prevent closing during in-flight operations.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// AddBookmark records url. Returns false if it was already bookmarked.
// Thread-safe: acquires write lock.
func (s *Store) AddBookmark(url string, at time.Time) (bool, error) {
	if url == "" {
		return false, errors.New("store: empty bookmark url")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.Exec(
		"INSERT OR IGNORE INTO bookmarks (url, captured_at) VALUES (?, ?)",
		url, at.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("insert bookmark: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// AddBookmarks records several URLs, returning how many were new.
// Thread-safe: acquires write lock.
func (s *Store) AddBookmarks(urls []string, at time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(urls) == 0 {
		return 0, nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare("INSERT OR IGNORE INTO bookmarks (url, captured_at) VALUES (?, ?)")
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	newCount := 0
	for _, url := range urls {
		if url == "" {
			continue
		}
		result, err := stmt.Exec(url, at.UTC())
		if err != nil {
			return 0, err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return 0, err
		}
		if affected > 0 {
			newCount++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return newCount, nil
}

// Bookmarks returns every bookmark in capture order.
// Thread-safe: acquires read lock.
func (s *Store) Bookmarks() ([]Bookmark, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query("SELECT id, url, captured_at FROM bookmarks ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Bookmark
	for rows.Next() {
		var b Bookmark
		if err := rows.Scan(&b.ID, &b.URL, &b.CapturedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// BookmarkURLs returns the bookmarked URLs in capture order.
func (s *Store) BookmarkURLs() ([]string, error) {
	bms, err := s.Bookmarks()
	if err != nil {
		return nil, err
	}
	urls := make([]string, len(bms))
	for i, b := range bms {
		urls[i] = b.URL
	}
	return urls, nil
}

// CountBookmarks returns the number of bookmarks.
// Thread-safe: acquires read lock.
func (s *Store) CountBookmarks() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM bookmarks").Scan(&n)
	return n, err
}

// RemoveBookmark deletes url.
// Thread-safe: acquires write lock.
func (s *Store) RemoveBookmark(url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.Exec("DELETE FROM bookmarks WHERE url = ?", url)
	if err != nil {
		return fmt.Errorf("delete bookmark: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// RemoveBookmarkAt deletes the bookmark at position index (0-based) in
// capture order and returns its URL.
// Thread-safe: acquires write lock.
func (s *Store) RemoveBookmarkAt(index int) (string, error) {
	if index < 0 {
		return "", ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var id int64
	var url string
	err := s.db.QueryRow(
		"SELECT id, url FROM bookmarks ORDER BY id LIMIT 1 OFFSET ?", index,
	).Scan(&id, &url)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}

	if _, err := s.db.Exec("DELETE FROM bookmarks WHERE id = ?", id); err != nil {
		return "", fmt.Errorf("delete bookmark: %w", err)
	}
	return url, nil
}

// ResetBookmarks deletes every bookmark and returns how many were removed.
// Thread-safe: acquires write lock.
func (s *Store) ResetBookmarks() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.Exec("DELETE FROM bookmarks")
	if err != nil {
		return 0, fmt.Errorf("reset bookmarks: %w", err)
	}
	n, err := result.RowsAffected()
	return int(n), err
}

// boolToInt converts a bool to an int for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
