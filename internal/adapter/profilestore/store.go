// Package profilestore persists connection profiles as a JSON file.
package profilestore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fairyhunter13/pgdeveloper/internal/adapter/secret"
	"github.com/fairyhunter13/pgdeveloper/internal/domain"
)

// FileStore reads and writes connections.json. Passwords are sealed on write
// and opened on read when a Sealer is configured.
type FileStore struct {
	Path   string
	Sealer *secret.Sealer
}

// NewFileStore constructs a FileStore for path.
func NewFileStore(path string, sealer *secret.Sealer) *FileStore {
	return &FileStore{Path: path, Sealer: sealer}
}

// Load returns the saved profiles. A missing file yields an empty list.
func (s *FileStore) Load() ([]domain.ConnectionProfile, error) {
	b, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return []domain.ConnectionProfile{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("op=profiles.load: %w", err)
	}
	var profiles []domain.ConnectionProfile
	if len(b) > 0 {
		if err := json.Unmarshal(b, &profiles); err != nil {
			return nil, fmt.Errorf("op=profiles.load: %w: %v", domain.ErrInvalidArgument, err)
		}
	}
	if profiles == nil {
		profiles = []domain.ConnectionProfile{}
	}
	for i := range profiles {
		pw, err := s.Sealer.Open(profiles[i].Password)
		if err != nil {
			return nil, fmt.Errorf("op=profiles.load: profile %s: %w", profiles[i].Name, err)
		}
		profiles[i].Password = pw
	}
	return profiles, nil
}

// Save appends p to the saved profiles.
func (s *FileStore) Save(p domain.ConnectionProfile) error {
	current, err := s.Load()
	if err != nil {
		return err
	}
	return s.SaveAll(append(current, p))
}

// SaveAll replaces the file with profiles. The write goes through a temp file
// in the same directory so readers never observe a partial file.
func (s *FileStore) SaveAll(profiles []domain.ConnectionProfile) error {
	out := make([]domain.ConnectionProfile, len(profiles))
	for i, p := range profiles {
		pw, err := s.Sealer.Seal(p.Password)
		if err != nil {
			return fmt.Errorf("op=profiles.save: %w", err)
		}
		p.Password = pw
		out[i] = p
	}
	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("op=profiles.save: %w", err)
	}
	if err := writeFileAtomic(s.Path, b); err != nil {
		return fmt.Errorf("op=profiles.save: %w", err)
	}
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".connections-*.tmp")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
