// Package cache stores introspection snapshots on disk or in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fairyhunter13/pgdeveloper/internal/domain"
)

// FileStore keeps one JSON file per connection under Dir.
type FileStore struct{ Dir string }

var _ domain.CacheStore = (*FileStore)(nil)

// NewFileStore constructs a FileStore rooted at dir.
func NewFileStore(dir string) *FileStore { return &FileStore{Dir: dir} }

func (s *FileStore) path(connection string) (string, error) {
	if connection == "" || strings.ContainsAny(connection, `/\`) || connection == "." || connection == ".." {
		return "", fmt.Errorf("%w: invalid connection name %q", domain.ErrInvalidArgument, connection)
	}
	return filepath.Join(s.Dir, connection+".json"), nil
}

// Get loads the snapshot of connection.
func (s *FileStore) Get(_ context.Context, connection string) (domain.DatabaseCache, error) {
	p, err := s.path(connection)
	if err != nil {
		return domain.DatabaseCache{}, fmt.Errorf("op=cache.get: %w", err)
	}
	b, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.DatabaseCache{}, fmt.Errorf("op=cache.get: %w: %s", domain.ErrNotFound, connection)
	}
	if err != nil {
		return domain.DatabaseCache{}, fmt.Errorf("op=cache.get: %w", err)
	}
	var c domain.DatabaseCache
	if err := json.Unmarshal(b, &c); err != nil {
		return domain.DatabaseCache{}, fmt.Errorf("op=cache.get: %w: %v", domain.ErrInvalidArgument, err)
	}
	return c, nil
}

// Put writes the snapshot, replacing any previous one.
func (s *FileStore) Put(_ context.Context, c domain.DatabaseCache) error {
	p, err := s.path(c.ConnectionName)
	if err != nil {
		return fmt.Errorf("op=cache.put: %w", err)
	}
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("op=cache.put: %w", err)
	}
	if err := os.MkdirAll(s.Dir, 0o700); err != nil {
		return fmt.Errorf("op=cache.put: %w", err)
	}
	tmp, err := os.CreateTemp(s.Dir, ".cache-*.tmp")
	if err != nil {
		return fmt.Errorf("op=cache.put: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("op=cache.put: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("op=cache.put: %w", err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return fmt.Errorf("op=cache.put: %w", err)
	}
	return nil
}

// Delete removes the snapshot. A missing snapshot is not an error.
func (s *FileStore) Delete(_ context.Context, connection string) error {
	p, err := s.path(connection)
	if err != nil {
		return fmt.Errorf("op=cache.delete: %w", err)
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("op=cache.delete: %w", err)
	}
	return nil
}
