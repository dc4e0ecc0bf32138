package httpserver

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/fairyhunter13/pgdeveloper/internal/config"
	"github.com/fairyhunter13/pgdeveloper/internal/domain"
	"github.com/fairyhunter13/pgdeveloper/internal/usecase"
)

// DependencyCheck is one dependency checked by /readyz.
type DependencyCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Server aggregates handlers dependencies.
type Server struct {
	Cfg       config.Config
	Profiles  usecase.ProfileService
	Query     usecase.QueryService
	Intro     *usecase.IntrospectionService
	Tables    usecase.TableService
	Meta      domain.Metadata
	Workspace *usecase.WorkspaceService
	Checks    []DependencyCheck
}

// Services groups the usecase services a Server exposes.
type Services struct {
	Profiles  usecase.ProfileService
	Query     usecase.QueryService
	Intro     *usecase.IntrospectionService
	Tables    usecase.TableService
	Meta      domain.Metadata
	Workspace *usecase.WorkspaceService
}

// NewServer constructs an HTTP server with all handlers and checks wired.
func NewServer(cfg config.Config, svc Services, checks ...DependencyCheck) *Server {
	return &Server{
		Cfg:       cfg,
		Profiles:  svc.Profiles,
		Query:     svc.Query,
		Intro:     svc.Intro,
		Tables:    svc.Tables,
		Meta:      svc.Meta,
		Workspace: svc.Workspace,
		Checks:    checks,
	}
}

// profileParam is the ?profile= selector; empty means the active profile.
func profileParam(r *http.Request) string {
	return strings.TrimSpace(r.URL.Query().Get("profile"))
}

// ReadyzHandler reports the state of every readiness check.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		checks := make([]usecase.ReadinessCheck, 0, len(s.Checks))
		ok := true
		for _, p := range s.Checks {
			c := usecase.ReadinessCheck{Name: p.Name, OK: true}
			if err := p.Check(ctx); err != nil {
				c.OK = false
				c.Details = err.Error()
				ok = false
			}
			checks = append(checks, c)
		}
		st := http.StatusOK
		if !ok {
			st = http.StatusServiceUnavailable
		}
		writeJSON(w, st, map[string]any{"checks": checks})
	}
}

// HealthzHandler reports liveness.
func (s *Server) HealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
