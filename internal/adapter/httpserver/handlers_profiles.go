package httpserver

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fairyhunter13/pgdeveloper/internal/adapter/profilestore"
	"github.com/fairyhunter13/pgdeveloper/internal/domain"
	"github.com/fairyhunter13/pgdeveloper/internal/usecase"
)

// maxProfilesYAML bounds an imported profiles document.
const maxProfilesYAML = 1 << 20

type temporaryConnectionRequest struct {
	Host     string `json:"host" validate:"required"`
	Port     int    `json:"port" validate:"required,min=1,max=65535"`
	Database string `json:"database" validate:"required"`
	Username string `json:"username" validate:"required"`
	Password string `json:"password"`
	UseSSL   bool   `json:"useSsl"`
}

// ListProfilesHandler returns every profile without passwords.
func (s *Server) ListProfilesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"profiles": s.Profiles.List(), "connection": s.Profiles.Info()})
	}
}

// GetProfileHandler returns one profile.
func (s *Server) GetProfileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := s.Profiles.Get(chi.URLParam(r, "name"))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

// SaveProfileHandler adds or replaces a profile.
func (s *Server) SaveProfileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p domain.ConnectionProfile
		if details, err := decodeJSON(w, r, &p); err != nil {
			writeError(w, r, err, details)
			return
		}
		if err := s.Profiles.Save(p); err != nil {
			writeError(w, r, err, nil)
			return
		}
		v, err := s.Profiles.Get(p.Name)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusCreated, v)
	}
}

// DeleteProfileHandler removes a profile.
func (s *Server) DeleteProfileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.Profiles.Remove(r.Context(), chi.URLParam(r, "name")); err != nil {
			writeError(w, r, err, nil)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ActivateProfileHandler makes a profile active.
func (s *Server) ActivateProfileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		if err := s.Profiles.Activate(name); err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"active": name, "connection": s.Profiles.Info()})
	}
}

// TestProfileHandler pings a saved profile.
func (s *Server) TestProfileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ok, err := s.Profiles.Test(r.Context(), chi.URLParam(r, "name"))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"ok": ok})
	}
}

// TestUnsavedProfileHandler pings the profile in the body without saving it.
func (s *Server) TestUnsavedProfileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p domain.ConnectionProfile
		if details, err := decodeJSON(w, r, &p); err != nil {
			writeError(w, r, err, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"ok": s.Profiles.TestUnsaved(r.Context(), p)})
	}
}

// ConnectHandler registers a temporary connection and makes it active.
func (s *Server) ConnectHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req temporaryConnectionRequest
		if details, err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err, details)
			return
		}
		v, ok, err := s.Profiles.Connect(r.Context(), usecase.TemporaryConnection(req))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"profile": v, "ok": ok})
	}
}

// ConnectionInfoHandler describes the active connection for the status bar.
func (s *Server) ConnectionInfoHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"active": s.Profiles.DS.ActiveName(), "connection": s.Profiles.Info()})
	}
}

// ExportProfilesHandler writes the saved profiles as YAML. Passwords are
// included only with ?passwords=true.
func (s *Server) ExportProfilesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		withPasswords, _ := strconv.ParseBool(r.URL.Query().Get("passwords"))
		var buf bytes.Buffer
		if err := profilestore.ExportYAML(&buf, s.Profiles.Saved(), withPasswords); err != nil {
			writeError(w, r, err, nil)
			return
		}
		w.Header().Set("Content-Type", "application/yaml")
		w.Header().Set("Content-Disposition", `attachment; filename="connections.yaml"`)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(buf.Bytes())
	}
}

// ImportProfilesHandler saves every profile of a YAML document.
func (s *Server) ImportProfilesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxProfilesYAML))
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err), nil)
			return
		}
		profiles, err := profilestore.ImportYAML(bytes.NewReader(body))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		n, err := s.Profiles.Import(profiles)
		if err != nil {
			writeError(w, r, err, map[string]int{"imported": n})
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"imported": n})
	}
}
