package coinmarketcap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// DefaultCacheFile is the snapshot file name used when none is configured.
const DefaultCacheFile = "cryptocurrency_map.json"

// CacheStore persists one catalog snapshot. The snapshot's age comes from
// the storage medium, not from a field inside the snapshot.
type CacheStore interface {
	Read(ctx context.Context) ([]CatalogEntry, error)
	Write(ctx context.Context, entries []CatalogEntry) error
	// Age reports how long ago the snapshot was written, or
	// ErrSnapshotMissing when there is none.
	Age(ctx context.Context) (time.Duration, error)
	Remove(ctx context.Context) error
	String() string
}

// FileStore keeps the snapshot as a JSON array in a single file and uses
// the file's modification time as the snapshot timestamp.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	if path == "" {
		path = DefaultCacheFile
	}
	return &FileStore{path: path}
}

func (s *FileStore) String() string { return s.path }

func (s *FileStore) Read(ctx context.Context) ([]CatalogEntry, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrSnapshotMissing
	}
	if err != nil {
		return nil, err
	}
	var entries []CatalogEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	return entries, nil
}

func (s *FileStore) Write(ctx context.Context, entries []CatalogEntry) error {
	if entries == nil {
		entries = []CatalogEntry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create cache directory %s: %w", dir, err)
		}
	}
	return os.WriteFile(s.path, data, 0o644)
}

func (s *FileStore) Age(ctx context.Context) (time.Duration, error) {
	info, err := os.Stat(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, ErrSnapshotMissing
	}
	if err != nil {
		return 0, err
	}
	return time.Since(info.ModTime()), nil
}

func (s *FileStore) Remove(ctx context.Context) error {
	err := os.Remove(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
