package httpserver

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/fairyhunter13/pgdeveloper/internal/domain"
	"github.com/fairyhunter13/pgdeveloper/internal/usecase"
)

type createConsoleRequest struct {
	ConnectionName string `json:"connectionName"`
}

type updateConsoleRequest struct {
	Name           string  `json:"name" validate:"max=128"`
	ConnectionName *string `json:"connectionName"`
}

type consoleContentRequest struct {
	Content string `json:"content"`
}

// ListConsolesHandler returns the open consoles in tab order.
func (s *Server) ListConsolesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"consoles": s.Workspace.List()})
	}
}

// CreateConsoleHandler opens an empty console. Without a connection the
// console is bound to the active profile.
func (s *Server) CreateConsoleHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createConsoleRequest
		if r.ContentLength != 0 {
			if details, err := decodeJSON(w, r, &req); err != nil {
				writeError(w, r, err, details)
				return
			}
		}
		c, err := s.Workspace.Create(s.consoleConnection(req.ConnectionName))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusCreated, c)
	}
}

// GetConsoleHandler returns one console with its text.
func (s *Server) GetConsoleHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := s.Workspace.Get(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}

// UpdateConsoleHandler renames a console or rebinds its connection.
func (s *Server) UpdateConsoleHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req updateConsoleRequest
		if details, err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err, details)
			return
		}
		c, err := s.Workspace.Update(chi.URLParam(r, "id"), req.Name, req.ConnectionName)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}

// SaveConsoleContentHandler replaces the text of a console.
func (s *Server) SaveConsoleContentHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req consoleContentRequest
		if details, err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err, details)
			return
		}
		c, err := s.Workspace.Save(chi.URLParam(r, "id"), req.Content)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}

// CloseConsoleHandler closes a console and removes its text.
func (s *Server) CloseConsoleHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.Workspace.Close(chi.URLParam(r, "id")); err != nil {
			writeError(w, r, err, nil)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ImportConsoleHandler opens a console from an uploaded .sql file sent as
// multipart field "file". The optional "connection" field binds it.
func (s *Server) ImportConsoleHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, usecase.MaxImportBytes*2)
		if err := r.ParseMultipartForm(usecase.MaxImportBytes * 2); err != nil {
			writeError(w, r, fmt.Errorf("%w: invalid multipart form: %v", domain.ErrInvalidArgument, err), nil)
			return
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: file is required", domain.ErrInvalidArgument), nil)
			return
		}
		defer func() { _ = f.Close() }()
		data, err := io.ReadAll(io.LimitReader(f, usecase.MaxImportBytes+1))
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: read file: %v", domain.ErrInvalidArgument, err), nil)
			return
		}
		name := filepath.Base(hdr.Filename)
		if name == "." || name == string(filepath.Separator) {
			name = ""
		}
		connection := s.consoleConnection(strings.TrimSpace(r.FormValue("connection")))
		c, err := s.Workspace.Import(name, data, connection)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusCreated, c)
	}
}

func (s *Server) consoleConnection(name string) string {
	if name != "" {
		return name
	}
	return s.Profiles.DS.ActiveName()
}
