package app

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	httpserver "github.com/fairyhunter13/pgdeveloper/internal/adapter/httpserver"
	"github.com/fairyhunter13/pgdeveloper/internal/adapter/observability"
	"github.com/fairyhunter13/pgdeveloper/internal/config"
)

// ParseOrigins splits a comma-separated origin list into a slice, trimming spaces.
// If the input is empty, returns ["*"].
func ParseOrigins(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" || s == "*" {
		return []string{"*"}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// BuildRouter constructs the HTTP handler with all middlewares and routes.
func BuildRouter(cfg config.Config, srv *httpserver.Server) http.Handler {
	r := chi.NewRouter()
	r.Use(httpserver.Recoverer())
	r.Use(httpserver.RequestID())
	r.Use(httpserver.TimeoutMiddleware(cfg.RequestTimeout))
	r.Use(httpserver.TraceMiddleware)
	r.Use(httpserver.AccessLog())
	r.Use(observability.HTTPMetricsMiddleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   ParseOrigins(cfg.CORSAllowOrigins),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Route("/v1", func(api chi.Router) {
		api.Use(httpserver.TokenGuard(cfg.APIToken))

		// Read-only endpoints
		api.Get("/profiles", srv.ListProfilesHandler())
		api.Get("/profiles/export", srv.ExportProfilesHandler())
		api.Get("/profiles/{name}", srv.GetProfileHandler())
		api.Get("/connection", srv.ConnectionInfoHandler())
		api.Get("/schemas", srv.SchemasHandler())
		api.Get("/schemas/{schema}/tables", srv.TablesHandler())
		api.Get("/schemas/{schema}/functions", srv.FunctionsHandler())
		api.Get("/schemas/{schema}/procedures", srv.ProceduresHandler())
		api.Get("/schemas/{schema}/tables/{table}", srv.DescribeTableHandler())
		api.Get("/schemas/{schema}/tables/{table}/columns", srv.ColumnsHandler())
		api.Get("/schemas/{schema}/tables/{table}/indexes", srv.IndexesHandler())
		api.Get("/schemas/{schema}/routines/{name}", srv.RoutineSourceHandler())
		api.Get("/tree", srv.TreeHandler())
		api.Get("/search", srv.SearchHandler())
		api.Post("/complete", srv.CompleteHandler())
		api.Post("/highlight", srv.HighlightHandler())
		api.Get("/consoles", srv.ListConsolesHandler())
		api.Get("/consoles/{id}", srv.GetConsoleHandler())
		// Console text is saved on every edit, so it is not rate limited.
		api.Put("/consoles/{id}/content", srv.SaveConsoleContentHandler())

		// Rate limit mutating endpoints
		api.Group(func(wr chi.Router) {
			wr.Use(httprate.LimitByIP(cfg.RateLimitPerMin, time.Minute))
			wr.Post("/profiles", srv.SaveProfileHandler())
			wr.Post("/profiles/import", srv.ImportProfilesHandler())
			wr.Post("/profiles/test", srv.TestUnsavedProfileHandler())
			wr.Delete("/profiles/{name}", srv.DeleteProfileHandler())
			wr.Post("/profiles/{name}/activate", srv.ActivateProfileHandler())
			wr.Post("/profiles/{name}/test", srv.TestProfileHandler())
			wr.Post("/connect", srv.ConnectHandler())
			wr.Post("/query", srv.QueryHandler())
			wr.Post("/introspect", srv.IntrospectHandler())
			wr.Post("/schemas/{schema}/tables/{table}/columns", srv.AddColumnHandler())
			wr.Delete("/schemas/{schema}/tables/{table}/columns/{column}", srv.DropColumnHandler())
			wr.Delete("/schemas/{schema}/indexes/{index}", srv.DropIndexHandler())
			wr.Post("/routines", srv.ApplyRoutineHandler())
			wr.Post("/consoles", srv.CreateConsoleHandler())
			wr.Post("/consoles/import", srv.ImportConsoleHandler())
			wr.Patch("/consoles/{id}", srv.UpdateConsoleHandler())
			wr.Delete("/consoles/{id}", srv.CloseConsoleHandler())
		})
	})

	// Health and metrics
	r.Get("/healthz", srv.HealthzHandler())
	r.Get("/readyz", srv.ReadyzHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) { promhttp.Handler().ServeHTTP(w, r) })

	return otelhttp.NewHandler(httpserver.SecurityHeaders(r), "pgdeveloper.http")
}
