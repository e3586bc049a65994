package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// SQLiteRegistry is the default single-file registry. It needs no external
// service, which suits the one-shot CLI run.
type SQLiteRegistry struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the registry database at path, creating
// parent directories as needed.
func OpenSQLite(path string) (*SQLiteRegistry, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("registry: mkdir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("registry: open db: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite: single writer

	if err := initSQLiteSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("registry: init schema: %w", err)
	}
	return &SQLiteRegistry{db: db}, nil
}

// initSQLiteSchema creates the videos table if it doesn't exist. The id
// primary key is the sole uniqueness mechanism; first_seen_at defaults to
// the insertion time so callers never supply it.
func initSQLiteSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS videos (
		id               TEXT PRIMARY KEY,
		creator_id       INTEGER NOT NULL,
		creator_name     TEXT NOT NULL,
		title            TEXT NOT NULL,
		url              TEXT NOT NULL,
		duration_seconds INTEGER,
		published_at     INTEGER,
		first_seen_at    TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now'))
	)`)
	return err
}

// Exists reports whether a video id has been recorded before.
func (r *SQLiteRegistry) Exists(ctx context.Context, id string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM videos WHERE id = ? LIMIT 1`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("registry: exists %s: %w", id, err)
	}
	return true, nil
}

// InsertIfAbsent writes the record unless its id is already present. The
// INSERT OR IGNORE leaves the uniqueness decision to the primary key; a
// duplicate leaves the existing row untouched, first_seen_at included.
func (r *SQLiteRegistry) InsertIfAbsent(ctx context.Context, rec VideoRecord) (bool, error) {
	var published *int64
	if rec.PublishedAt != nil {
		ts := rec.PublishedAt.Unix()
		published = &ts
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO videos (id, creator_id, creator_name, title, url, duration_seconds, published_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.CreatorID, rec.CreatorName, rec.Title, rec.URL, rec.Duration, published,
	)
	if err != nil {
		return false, fmt.Errorf("registry: insert %s: %w", rec.ID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("registry: insert %s: %w", rec.ID, err)
	}
	return n > 0, nil
}

// Close releases the database handle.
func (r *SQLiteRegistry) Close() error {
	return r.db.Close()
}
