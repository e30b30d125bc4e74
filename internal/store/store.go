// Package store persists rankings and raw posts in SQLite. All writes are
// conflict-key upserts against deterministic IDs, so every operation is
// safe to retry.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Repository is the persistence contract the pipeline writes against.
type Repository interface {
	UpsertRankings(rankings []Ranking) (int, error)
	UpsertRawPosts(posts []RawPost) (int, error)
	DeleteRankingsOlderThan(cutoff time.Time) (int64, error)
	QueryRankings(filter RankingFilter) ([]Ranking, error)
	QueryRawPostsByURL(urls []string) ([]RawPost, error)
	Stats() (*Stats, error)
}

// DB wraps a SQLite database connection.
type DB struct {
	conn *sql.DB
	path string
	now  func() time.Time
}

var _ Repository = (*DB)(nil)

// Open creates or opens a SQLite database at the given path.
func Open(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}

	return &DB{conn: conn, path: dbPath, now: time.Now}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// Timestamps are stored as RFC 3339 UTC strings so lexicographic
// comparison in SQL matches chronological order.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
