package coinmarketcap

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const defaultSnapshotName = "cryptocurrency_map"

// SQLiteStore keeps the catalog snapshot as one row of an SQLite table.
// The row's updated_at column plays the role of the file modification time.
type SQLiteStore struct {
	db   *sql.DB
	path string
	name string
	now  func() time.Time
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	_, err = db.Exec(`
	CREATE TABLE IF NOT EXISTS catalog_snapshots (
		name        TEXT PRIMARY KEY,
		entries     TEXT NOT NULL,
		entry_count INTEGER NOT NULL DEFAULT 0,
		updated_at  INTEGER NOT NULL
	);`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("catalog schema migration failed: %w", err)
	}

	return &SQLiteStore{db: db, path: dbPath, name: defaultSnapshotName, now: time.Now}, nil
}

func (s *SQLiteStore) String() string { return "sqlite:" + s.path }

func (s *SQLiteStore) Read(ctx context.Context) ([]CatalogEntry, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT entries FROM catalog_snapshots WHERE name = ?`, s.name,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSnapshotMissing
	}
	if err != nil {
		return nil, err
	}
	var entries []CatalogEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", s.name, err)
	}
	return entries, nil
}

func (s *SQLiteStore) Write(ctx context.Context, entries []CatalogEntry) error {
	if entries == nil {
		entries = []CatalogEntry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO catalog_snapshots (name, entries, entry_count, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
			entries = excluded.entries,
			entry_count = excluded.entry_count,
			updated_at = excluded.updated_at`,
		s.name, string(data), len(entries), s.now().UnixMilli(),
	)
	return err
}

func (s *SQLiteStore) Age(ctx context.Context) (time.Duration, error) {
	var updated int64
	err := s.db.QueryRowContext(ctx,
		`SELECT updated_at FROM catalog_snapshots WHERE name = ?`, s.name,
	).Scan(&updated)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrSnapshotMissing
	}
	if err != nil {
		return 0, err
	}
	return s.now().Sub(time.UnixMilli(updated)), nil
}

func (s *SQLiteStore) Remove(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM catalog_snapshots WHERE name = ?`, s.name)
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
