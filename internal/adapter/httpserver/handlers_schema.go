package httpserver

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fairyhunter13/pgdeveloper/internal/domain"
)

type addColumnRequest struct {
	Profile    string `json:"profile"`
	Definition string `json:"definition" validate:"required"`
}

type routineRequest struct {
	Profile string `json:"profile"`
	Source  string `json:"source" validate:"required"`
}

type introspectRequest struct {
	Profile string `json:"profile"`
}

// SchemasHandler lists the schemas of a profile.
func (s *Server) SchemasHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := s.Meta.Schemas(r.Context(), profileParam(r))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"schemas": out})
	}
}

// TablesHandler lists the tables and views of a schema.
func (s *Server) TablesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := s.Meta.Tables(r.Context(), profileParam(r), chi.URLParam(r, "schema"))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"tables": out})
	}
}

// FunctionsHandler lists the functions of a schema.
func (s *Server) FunctionsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := s.Meta.Functions(r.Context(), profileParam(r), chi.URLParam(r, "schema"))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"functions": out})
	}
}

// ProceduresHandler lists the procedures of a schema.
func (s *Server) ProceduresHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := s.Meta.Procedures(r.Context(), profileParam(r), chi.URLParam(r, "schema"))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"procedures": out})
	}
}

// DescribeTableHandler returns the columns and indexes of a table.
func (s *Server) DescribeTableHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := s.Tables.Describe(r.Context(), profileParam(r), chi.URLParam(r, "schema"), chi.URLParam(r, "table"))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, d)
	}
}

// ColumnsHandler lists the columns of a table.
func (s *Server) ColumnsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := s.Meta.Columns(r.Context(), profileParam(r), chi.URLParam(r, "schema"), chi.URLParam(r, "table"))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"columns": out})
	}
}

// IndexesHandler lists the indexes of a table.
func (s *Server) IndexesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := s.Meta.Indexes(r.Context(), profileParam(r), chi.URLParam(r, "schema"), chi.URLParam(r, "table"))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"indexes": out})
	}
}

// AddColumnHandler appends a column to a table.
func (s *Server) AddColumnHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req addColumnRequest
		if details, err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err, details)
			return
		}
		if err := s.Tables.AddColumn(r.Context(), req.Profile, chi.URLParam(r, "schema"), chi.URLParam(r, "table"), req.Definition); err != nil {
			writeError(w, r, err, nil)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// DropColumnHandler drops a column of a table.
func (s *Server) DropColumnHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.Tables.DropColumn(r.Context(), profileParam(r), chi.URLParam(r, "schema"), chi.URLParam(r, "table"), chi.URLParam(r, "column")); err != nil {
			writeError(w, r, err, nil)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// DropIndexHandler drops an index of a schema.
func (s *Server) DropIndexHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.Tables.DropIndex(r.Context(), profileParam(r), chi.URLParam(r, "schema"), chi.URLParam(r, "index")); err != nil {
			writeError(w, r, err, nil)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// RoutineSourceHandler returns the CREATE statement of a function or procedure.
func (s *Server) RoutineSourceHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		schema, name := chi.URLParam(r, "schema"), chi.URLParam(r, "name")
		src, err := s.Tables.RoutineSource(r.Context(), profileParam(r), schema, name)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"schema": schema, "name": name, "source": src})
	}
}

// ApplyRoutineHandler executes an edited routine definition.
func (s *Server) ApplyRoutineHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req routineRequest
		if details, err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err, details)
			return
		}
		if err := s.Tables.ApplyRoutine(r.Context(), req.Profile, req.Source); err != nil {
			writeError(w, r, err, nil)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// IntrospectHandler refreshes the snapshot of a profile and returns the
// rebuilt explorer tree.
func (s *Server) IntrospectHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req introspectRequest
		if r.ContentLength != 0 {
			if details, err := decodeJSON(w, r, &req); err != nil {
				writeError(w, r, err, details)
				return
			}
		}
		if req.Profile == "" {
			req.Profile = profileParam(r)
		}
		c, err := s.Intro.Introspect(r.Context(), req.Profile)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		tree, err := s.Intro.Tree(r.Context(), c.ConnectionName)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"connectionName":        c.ConnectionName,
			"lastIntrospectionTime": c.LastIntrospectionTime,
			"schemas":               len(c.Schemas),
			"tree":                  tree,
		})
	}
}

// TreeHandler returns the explorer tree from the cached snapshot.
func (s *Server) TreeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tree, err := s.Intro.Tree(r.Context(), profileParam(r))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, tree)
	}
}

// SearchHandler matches q against indexed object names.
func (s *Server) SearchHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		if details := ValidateSearchQuery(q); len(details) > 0 {
			writeError(w, r, fmt.Errorf("%w: %s", domain.ErrInvalidArgument, details[0].Message), details)
			return
		}
		tree, results, err := s.Intro.Search(r.Context(), profileParam(r), q)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		items := make([]map[string]string, 0, len(results))
		for _, res := range results {
			item := domain.SidebarItem{Type: res.Type, Schema: res.Schema, Name: res.Name}
			items = append(items, map[string]string{
				"name":   res.Name,
				"type":   res.Type,
				"schema": res.Schema,
				"editor": s.Intro.EditorFor(item),
			})
		}
		writeJSON(w, http.StatusOK, map[string]any{"tree": tree, "results": items})
	}
}
