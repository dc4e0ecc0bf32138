// Package workspace keeps SQL consoles on disk: workspace.json lists the open
// consoles and each console's text lives in <id>.sql next to it.
package workspace

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/fairyhunter13/pgdeveloper/internal/domain"
)

// StateFile is the console list inside the workspace directory.
const StateFile = "workspace.json"

// Store implements domain.WorkspaceStore on a directory.
type Store struct {
	Dir string
	mu  sync.Mutex
}

var _ domain.WorkspaceStore = (*Store)(nil)

// NewStore creates dir when missing.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("op=workspace.new: %w", err)
	}
	return &Store{Dir: dir}, nil
}

// SaveState writes the console list. Console text is stored separately by
// SaveContent, so it is left out of the state file.
func (s *Store) SaveState(consoles []domain.ConsoleState) error {
	out := make([]domain.ConsoleState, len(consoles))
	for i, c := range consoles {
		c.Content = ""
		out[i] = c
	}
	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("op=workspace.save_state: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := writeAtomic(filepath.Join(s.Dir, StateFile), b); err != nil {
		return fmt.Errorf("op=workspace.save_state: %w", err)
	}
	return nil
}

// SaveContent writes the text of console id.
func (s *Store) SaveContent(id, content string) error {
	p, err := s.sqlPath(id)
	if err != nil {
		return fmt.Errorf("op=workspace.save_content: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := writeAtomic(p, []byte(content)); err != nil {
		return fmt.Errorf("op=workspace.save_content: %w", err)
	}
	return nil
}

// DeleteContent removes the text file of console id, if any.
func (s *Store) DeleteContent(id string) error {
	p, err := s.sqlPath(id)
	if err != nil {
		return fmt.Errorf("op=workspace.delete_content: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("op=workspace.delete_content: %w", err)
	}
	return nil
}

// LoadState reads the console list and fills each console's text from its
// .sql file. A missing state file yields an empty list and a missing .sql
// file yields empty content.
func (s *Store) LoadState() ([]domain.ConsoleState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := os.ReadFile(filepath.Join(s.Dir, StateFile))
	if errors.Is(err, fs.ErrNotExist) {
		return []domain.ConsoleState{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("op=workspace.load_state: %w", err)
	}
	var states []domain.ConsoleState
	if len(b) > 0 {
		if err := json.Unmarshal(b, &states); err != nil {
			return nil, fmt.Errorf("op=workspace.load_state: %w: %v", domain.ErrInvalidArgument, err)
		}
	}
	out := make([]domain.ConsoleState, 0, len(states))
	for _, c := range states {
		c.Content = ""
		if p, err := s.sqlPath(c.ID); err == nil {
			data, err := os.ReadFile(p)
			switch {
			case err == nil:
				c.Content = string(data)
			case !errors.Is(err, fs.ErrNotExist):
				return nil, fmt.Errorf("op=workspace.load_state: %w", err)
			}
		}
		out = append(out, c)
	}
	return out, nil
}

// sqlPath only accepts UUID ids so a console id can never escape Dir.
func (s *Store) sqlPath(id string) (string, error) {
	if _, err := uuid.Parse(id); err != nil {
		return "", fmt.Errorf("%w: invalid console id %q", domain.ErrInvalidArgument, id)
	}
	return filepath.Join(s.Dir, id+".sql"), nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".ws-*.tmp")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
