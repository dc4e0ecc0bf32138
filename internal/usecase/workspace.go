package usecase

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/fairyhunter13/pgdeveloper/internal/domain"
	"github.com/fairyhunter13/pgdeveloper/pkg/textx"
)

// MaxImportBytes bounds an imported console script.
const MaxImportBytes = 4 << 20

// WorkspaceService keeps the list of open SQL consoles and their text.
// Every change is written through to the store.
type WorkspaceService struct {
	Store domain.WorkspaceStore

	mu       sync.Mutex
	consoles []domain.ConsoleState
}

// NewWorkspaceService loads the saved consoles from store.
func NewWorkspaceService(store domain.WorkspaceStore) (*WorkspaceService, error) {
	consoles, err := store.LoadState()
	if err != nil {
		return nil, err
	}
	return &WorkspaceService{Store: store, consoles: consoles}, nil
}

// List returns the open consoles in tab order.
func (s *WorkspaceService) List() []domain.ConsoleState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.ConsoleState{}, s.consoles...)
}

// Get returns the console with id.
func (s *WorkspaceService) Get(id string) (domain.ConsoleState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return domain.ConsoleState{}, notFoundConsole(id)
	}
	return s.consoles[i], nil
}

// Create opens an empty console bound to connection.
func (s *WorkspaceService) Create(connection string) (domain.ConsoleState, error) {
	c := domain.NewConsole(connection)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.consoles = append(s.consoles, c)
	if err := s.Store.SaveState(s.consoles); err != nil {
		s.consoles = s.consoles[:len(s.consoles)-1]
		return domain.ConsoleState{}, err
	}
	return c, nil
}

// Save stores the console text.
func (s *WorkspaceService) Save(id, content string) (domain.ConsoleState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return domain.ConsoleState{}, notFoundConsole(id)
	}
	if err := s.Store.SaveContent(id, content); err != nil {
		return domain.ConsoleState{}, err
	}
	s.consoles[i].Content = content
	return s.consoles[i], nil
}

// Update changes the name and, when non-nil, the connection of a console.
func (s *WorkspaceService) Update(id, name string, connection *string) (domain.ConsoleState, error) {
	name = strings.TrimSpace(name)
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return domain.ConsoleState{}, notFoundConsole(id)
	}
	prev := s.consoles[i]
	if name != "" {
		s.consoles[i].Name = name
	}
	if connection != nil {
		s.consoles[i].ConnectionName = *connection
	}
	if err := s.Store.SaveState(s.consoles); err != nil {
		s.consoles[i] = prev
		return domain.ConsoleState{}, err
	}
	return s.consoles[i], nil
}

// Rename sets the console name.
func (s *WorkspaceService) Rename(id, name string) (domain.ConsoleState, error) {
	if strings.TrimSpace(name) == "" {
		return domain.ConsoleState{}, fmt.Errorf("op=workspace.rename: %w: empty name", domain.ErrInvalidArgument)
	}
	return s.Update(id, name, nil)
}

// Close removes the console and its text.
func (s *WorkspaceService) Close(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return notFoundConsole(id)
	}
	next := append(append([]domain.ConsoleState{}, s.consoles[:i]...), s.consoles[i+1:]...)
	if err := s.Store.SaveState(next); err != nil {
		return err
	}
	s.consoles = next
	if err := s.Store.DeleteContent(id); err != nil {
		slog.Warn("console text not removed", slog.String("console_id", id), slog.Any("error", err))
	}
	return nil
}

// Import opens a console holding data, which must be text. The name is the
// file name the script came from, or the first line of the script when empty.
func (s *WorkspaceService) Import(name string, data []byte, connection string) (domain.ConsoleState, error) {
	if len(data) > MaxImportBytes {
		return domain.ConsoleState{}, fmt.Errorf("op=workspace.import: %w: script larger than %d bytes", domain.ErrInvalidArgument, MaxImportBytes)
	}
	if err := textx.RequireText(data); err != nil {
		if errors.Is(err, textx.ErrNotText) {
			return domain.ConsoleState{}, fmt.Errorf("op=workspace.import: %w: %v", domain.ErrInvalidArgument, err)
		}
		return domain.ConsoleState{}, err
	}
	content := textx.NormalizeScript(string(data))
	name = strings.TrimSpace(name)
	if name == "" {
		name = textx.FirstLine(content, 40)
	}
	c, err := s.Create(connection)
	if err != nil {
		return domain.ConsoleState{}, err
	}
	if name != "" {
		if c, err = s.Update(c.ID, name, nil); err != nil {
			return domain.ConsoleState{}, err
		}
	}
	return s.Save(c.ID, content)
}

func (s *WorkspaceService) indexLocked(id string) int {
	for i, c := range s.consoles {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func notFoundConsole(id string) error {
	return fmt.Errorf("op=workspace: %w: console %s", domain.ErrNotFound, id)
}
