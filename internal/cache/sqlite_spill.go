package cache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteSpill is a SecondaryStore backed by an on-disk SQLite database,
// letting entries evicted from the in-memory LRU survive a restart
// instead of forcing a cold re-analyze. Wired in when CACHE_SPILL_PATH
// is set (spec §6 expansion).
type SQLiteSpill struct {
	db *sql.DB
}

// NewSQLiteSpill opens (creating if absent) the SQLite file at path and
// ensures its single spill table exists.
func NewSQLiteSpill(path string) (*SQLiteSpill, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("cache: open sqlite spill: %w", err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS cache_spill (
			key        TEXT PRIMARY KEY,
			entry_json BLOB NOT NULL,
			created_at INTEGER NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache: create spill table: %w", err)
	}
	return &SQLiteSpill{db: db}, nil
}

// Get looks up key in the spill table. Errors are treated as a miss —
// the spill store is a best-effort secondary, never a hard dependency
// of the analyzer/embedder path.
func (s *SQLiteSpill) Get(key string) (Entry, bool) {
	row := s.db.QueryRow(`SELECT entry_json, created_at FROM cache_spill WHERE key = ?`, key)
	var blob []byte
	var createdAtUnix int64
	if err := row.Scan(&blob, &createdAtUnix); err != nil {
		return Entry{}, false
	}
	var entry Entry
	if err := json.Unmarshal(blob, &entry); err != nil {
		return Entry{}, false
	}
	entry.CreatedAt = time.Unix(createdAtUnix, 0).UTC()
	return entry, true
}

// Put upserts key into the spill table. A marshal or write failure is
// swallowed: losing a spill write degrades to "cold miss on restart",
// never a processing failure.
func (s *SQLiteSpill) Put(key string, entry Entry) {
	blob, err := json.Marshal(entry)
	if err != nil {
		return
	}
	_, _ = s.db.Exec(`
		INSERT INTO cache_spill (key, entry_json, created_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET entry_json = excluded.entry_json, created_at = excluded.created_at
	`, key, blob, time.Now().Unix())
}

// Close releases the underlying SQLite handle.
func (s *SQLiteSpill) Close() error {
	return s.db.Close()
}
