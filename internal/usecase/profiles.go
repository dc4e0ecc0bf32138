package usecase

import (
	"fmt"
	"log/slog"

	"github.com/fairyhunter13/pgdeveloper/internal/domain"
)

// ProfileView is a connection profile as shown to clients. The password is
// never included.
type ProfileView struct {
	domain.ConnectionProfile
	HasPassword bool `json:"hasPassword"`
	Active      bool `json:"active"`
	Temporary   bool `json:"temporary"`
}

// TemporaryConnection describes an ad-hoc connection that is never saved.
type TemporaryConnection struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Database string `json:"database"`
	Username string `json:"username"`
	Password string `json:"password"`
	UseSSL   bool   `json:"useSsl"`
}

// ProfileService manages connection profiles and the state keyed by them.
type ProfileService struct {
	DS    DataSource
	Cache domain.CacheStore
	Index domain.SearchIndex
}

// NewProfileService constructs a ProfileService.
func NewProfileService(ds DataSource, cache domain.CacheStore, index domain.SearchIndex) ProfileService {
	return ProfileService{DS: ds, Cache: cache, Index: index}
}

func (s ProfileService) view(p domain.ConnectionProfile, active string) ProfileView {
	v := ProfileView{ConnectionProfile: p, HasPassword: p.Password != "", Active: p.Name == active, Temporary: s.DS.IsTemporary(p.Name)}
	v.Password = ""
	return v
}

// List returns every profile, saved and temporary, sorted by name.
func (s ProfileService) List() []ProfileView {
	active := s.DS.ActiveName()
	profiles := s.DS.Profiles()
	out := make([]ProfileView, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, s.view(p, active))
	}
	return out
}

// Get returns one profile.
func (s ProfileService) Get(name string) (ProfileView, error) {
	p, ok := s.DS.Profile(name)
	if !ok {
		return ProfileView{}, fmt.Errorf("op=profiles.get: %w: profile %s", domain.ErrNotFound, name)
	}
	return s.view(p, s.DS.ActiveName()), nil
}

// Saved returns the persisted profiles including passwords, for export.
func (s ProfileService) Saved() []domain.ConnectionProfile {
	all := s.DS.Profiles()
	out := make([]domain.ConnectionProfile, 0, len(all))
	for _, p := range all {
		if !s.DS.IsTemporary(p.Name) {
			out = append(out, p)
		}
	}
	return out
}

// Save adds p or replaces the profile of the same name.
func (s ProfileService) Save(p domain.ConnectionProfile) error {
	return s.DS.AddProfile(p)
}

// Remove deletes a profile along with its cached structure and index rows.
func (s ProfileService) Remove(ctx domain.Context, name string) error {
	if err := s.DS.RemoveProfile(name); err != nil {
		return err
	}
	if s.Cache != nil {
		if err := s.Cache.Delete(ctx, name); err != nil {
			slog.Warn("cache delete failed", slog.String("profile", name), slog.Any("error", err))
		}
	}
	if s.Index != nil {
		if err := s.Index.Clear(ctx, name); err != nil {
			slog.Warn("index clear failed", slog.String("profile", name), slog.Any("error", err))
		}
	}
	return nil
}

// Activate makes name the active profile.
func (s ProfileService) Activate(name string) error {
	if !s.DS.SetActive(name) {
		return fmt.Errorf("op=profiles.activate: %w: profile %s", domain.ErrNotFound, name)
	}
	return nil
}

// Test reports whether the named profile ("" for active) accepts connections.
func (s ProfileService) Test(ctx domain.Context, name string) (bool, error) {
	if _, err := s.DS.Resolve(name); err != nil {
		return false, err
	}
	return s.DS.Test(ctx, name), nil
}

// TestUnsaved reports whether p accepts connections without registering it.
func (s ProfileService) TestUnsaved(ctx domain.Context, p domain.ConnectionProfile) bool {
	return s.DS.TestProfile(ctx, p)
}

// Connect registers a temporary profile, makes it active and tests it.
func (s ProfileService) Connect(ctx domain.Context, c TemporaryConnection) (ProfileView, bool, error) {
	p, err := s.DS.ConnectTemporary(c.Host, c.Port, c.Database, c.Username, c.Password, c.UseSSL)
	if err != nil {
		return ProfileView{}, false, err
	}
	ok := s.DS.Test(ctx, p.Name)
	slog.Info("temporary connection registered", slog.String("profile", p.Name), slog.Bool("reachable", ok))
	return s.view(p, s.DS.ActiveName()), ok, nil
}

// Info describes the active connection.
func (s ProfileService) Info() string { return s.DS.ConnectionInfo() }

// Import saves every profile in order and stops at the first invalid one.
// A profile imported without a password keeps the password already saved
// under its name. It returns how many were saved.
func (s ProfileService) Import(profiles []domain.ConnectionProfile) (int, error) {
	for i, p := range profiles {
		if p.Password == "" {
			if existing, ok := s.DS.Profile(p.Name); ok {
				p.Password = existing.Password
			}
		}
		if err := s.DS.AddProfile(p); err != nil {
			return i, fmt.Errorf("op=profiles.import: profile %q: %w", p.Name, err)
		}
	}
	return len(profiles), nil
}

// Reload swaps the saved profiles for profiles read back from disk.
func (s ProfileService) Reload(profiles []domain.ConnectionProfile) {
	s.DS.ReplaceProfiles(profiles)
}
