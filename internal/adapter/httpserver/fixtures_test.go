package httpserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/pgdeveloper/internal/adapter/cache"
	httpserver "github.com/fairyhunter13/pgdeveloper/internal/adapter/httpserver"
	"github.com/fairyhunter13/pgdeveloper/internal/adapter/index/sqlite"
	"github.com/fairyhunter13/pgdeveloper/internal/adapter/workspace"
	"github.com/fairyhunter13/pgdeveloper/internal/config"
	"github.com/fairyhunter13/pgdeveloper/internal/domain"
	"github.com/fairyhunter13/pgdeveloper/internal/usecase"
)

// memDataSource is an in-memory profile registry.
type memDataSource struct {
	mu        sync.Mutex
	profiles  map[string]domain.ConnectionProfile
	temporary map[string]bool
	active    string
	reachable bool
}

func newMemDataSource() *memDataSource {
	return &memDataSource{profiles: map[string]domain.ConnectionProfile{}, temporary: map[string]bool{}, reachable: true}
}

func (d *memDataSource) AddProfile(p domain.ConnectionProfile) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if p.Name == "" {
		return fmt.Errorf("%w: name is required", domain.ErrInvalidArgument)
	}
	d.profiles[p.Name] = p
	return nil
}

func (d *memDataSource) RemoveProfile(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.profiles[name]; !ok {
		return fmt.Errorf("%w: profile %s", domain.ErrNotFound, name)
	}
	delete(d.profiles, name)
	if d.active == name {
		d.active = ""
	}
	return nil
}

func (d *memDataSource) SetActive(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.profiles[name]; !ok {
		return false
	}
	d.active = name
	return true
}

func (d *memDataSource) ActiveName() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}

func (d *memDataSource) Profiles() []domain.ConnectionProfile {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]domain.ConnectionProfile, 0, len(d.profiles))
	for _, p := range d.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (d *memDataSource) Profile(name string) (domain.ConnectionProfile, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.profiles[name]
	return p, ok
}

func (d *memDataSource) IsTemporary(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.temporary[name]
}

func (d *memDataSource) Resolve(name string) (string, error) {
	if name != "" {
		if _, ok := d.Profile(name); !ok {
			return "", fmt.Errorf("%w: profile %s", domain.ErrNotFound, name)
		}
		return name, nil
	}
	if a := d.ActiveName(); a != "" {
		return a, nil
	}
	return "", domain.ErrNoActiveProfile
}

func (d *memDataSource) Test(_ context.Context, name string) bool {
	_, err := d.Resolve(name)
	return err == nil && d.reachable
}

func (d *memDataSource) TestProfile(_ context.Context, _ domain.ConnectionProfile) bool {
	return d.reachable
}

func (d *memDataSource) ConnectionInfo() string {
	p, ok := d.Profile(d.ActiveName())
	if !ok {
		return "No Connection"
	}
	return fmt.Sprintf("%s [%s/%s]", p.Name, p.Host, p.Database)
}

func (d *memDataSource) ConnectTemporary(host string, port int, database, username, password string, useSSL bool) (domain.ConnectionProfile, error) {
	p := domain.ConnectionProfile{Name: "Temp-1", Host: host, Port: port, Database: database, Username: username, Password: password, UseSSL: useSSL}
	_ = d.AddProfile(p)
	d.mu.Lock()
	d.temporary[p.Name] = true
	d.active = p.Name
	d.mu.Unlock()
	return p, nil
}

func (d *memDataSource) ReplaceProfiles(profiles []domain.ConnectionProfile) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.profiles = map[string]domain.ConnectionProfile{}
	for _, p := range profiles {
		d.profiles[p.Name] = p
	}
}

// fakeMeta serves a fixed catalog: public.users, view public.user_stats and
// function public.touch_updated_at.
type fakeMeta struct{}

func (fakeMeta) Schemas(context.Context, string) ([]string, error) { return []string{"public"}, nil }
func (fakeMeta) Tables(_ context.Context, _, schema string) ([]domain.DbObject, error) {
	if schema != "public" {
		return []domain.DbObject{}, nil
	}
	return []domain.DbObject{{Name: "user_stats", Type: domain.TypeView}, {Name: "users", Type: domain.TypeTable}}, nil
}
func (fakeMeta) Functions(_ context.Context, _, schema string) ([]string, error) {
	if schema != "public" {
		return []string{}, nil
	}
	return []string{"touch_updated_at"}, nil
}
func (fakeMeta) Procedures(context.Context, string, string) ([]string, error) {
	return []string{}, nil
}
func (fakeMeta) Columns(_ context.Context, _, _, table string) ([]domain.ColumnInfo, error) {
	if table != "users" {
		return []domain.ColumnInfo{}, nil
	}
	return []domain.ColumnInfo{{Name: "id", Type: "integer", Size: 32}, {Name: "email", Type: "text", Nullable: true}}, nil
}
func (fakeMeta) Indexes(_ context.Context, _, _, table string) ([]domain.IndexInfo, error) {
	if table != "users" {
		return []domain.IndexInfo{}, nil
	}
	return []domain.IndexInfo{{Name: "users_pkey", Unique: true}}, nil
}
func (fakeMeta) RoutineSource(_ context.Context, _, schema, name string) (string, error) {
	if schema == "public" && name == "touch_updated_at" {
		return "CREATE OR REPLACE FUNCTION public.touch_updated_at() RETURNS trigger", nil
	}
	return "", fmt.Errorf("%w: %s.%s", domain.ErrNotFound, schema, name)
}

// recordingExecutor returns res or err and remembers the last statement.
type recordingExecutor struct {
	mu   sync.Mutex
	last string
	res  domain.QueryResult
	err  error
}

func (e *recordingExecutor) Execute(_ context.Context, _ string, sql string) (domain.QueryResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.last = sql
	return e.res, e.err
}

func (e *recordingExecutor) Last() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last
}

// recordingEditor remembers the DDL requests it receives.
type recordingEditor struct {
	mu    sync.Mutex
	calls []string
}

func (e *recordingEditor) record(s string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, s)
	return nil
}
func (e *recordingEditor) AddColumn(_ context.Context, _, schema, table, def string) error {
	return e.record("add " + schema + "." + table + " " + def)
}
func (e *recordingEditor) DropColumn(_ context.Context, _, schema, table, column string) error {
	return e.record("drop column " + schema + "." + table + "." + column)
}
func (e *recordingEditor) DropIndex(_ context.Context, _, schema, index string) error {
	return e.record("drop index " + schema + "." + index)
}
func (e *recordingEditor) ApplyRoutine(_ context.Context, _, source string) error {
	return e.record("routine " + source)
}

type fixture struct {
	ds     *memDataSource
	exec   *recordingExecutor
	editor *recordingEditor
	srv    *httpserver.Server
	h      http.Handler
}

func newFixture(t *testing.T, checks ...httpserver.DependencyCheck) *fixture {
	t.Helper()
	ctx := context.Background()
	idx, err := sqlite.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	ws, err := workspace.NewStore(t.TempDir())
	require.NoError(t, err)
	wsSvc, err := usecase.NewWorkspaceService(ws)
	require.NoError(t, err)

	f := &fixture{ds: newMemDataSource(), exec: &recordingExecutor{}, editor: &recordingEditor{}}
	store := cache.NewFileStore(t.TempDir())
	meta := fakeMeta{}
	intro := usecase.NewIntrospectionService(meta, store, idx, f.ds, usecase.IntrospectionOptions{Concurrency: 2})
	f.srv = httpserver.NewServer(config.Config{AppEnv: "test"}, httpserver.Services{
		Profiles:  usecase.NewProfileService(f.ds, store, idx),
		Query:     usecase.NewQueryService(f.exec, meta, intro),
		Intro:     intro,
		Tables:    usecase.NewTableService(meta, f.editor),
		Meta:      meta,
		Workspace: wsSvc,
	}, checks...)
	f.h = newRouter(f.srv)
	return f
}

func newRouter(s *httpserver.Server) http.Handler {
	r := chi.NewRouter()
	r.Use(httpserver.RequestID())
	r.Get("/readyz", s.ReadyzHandler())
	r.Route("/v1", func(api chi.Router) {
		api.Get("/profiles", s.ListProfilesHandler())
		api.Post("/profiles", s.SaveProfileHandler())
		api.Get("/profiles/export", s.ExportProfilesHandler())
		api.Post("/profiles/import", s.ImportProfilesHandler())
		api.Post("/profiles/test", s.TestUnsavedProfileHandler())
		api.Get("/profiles/{name}", s.GetProfileHandler())
		api.Delete("/profiles/{name}", s.DeleteProfileHandler())
		api.Post("/profiles/{name}/activate", s.ActivateProfileHandler())
		api.Post("/profiles/{name}/test", s.TestProfileHandler())
		api.Post("/connect", s.ConnectHandler())
		api.Get("/connection", s.ConnectionInfoHandler())
		api.Post("/query", s.QueryHandler())
		api.Post("/complete", s.CompleteHandler())
		api.Post("/highlight", s.HighlightHandler())
		api.Get("/schemas", s.SchemasHandler())
		api.Get("/schemas/{schema}/tables", s.TablesHandler())
		api.Get("/schemas/{schema}/functions", s.FunctionsHandler())
		api.Get("/schemas/{schema}/procedures", s.ProceduresHandler())
		api.Get("/schemas/{schema}/tables/{table}", s.DescribeTableHandler())
		api.Get("/schemas/{schema}/tables/{table}/columns", s.ColumnsHandler())
		api.Get("/schemas/{schema}/tables/{table}/indexes", s.IndexesHandler())
		api.Post("/schemas/{schema}/tables/{table}/columns", s.AddColumnHandler())
		api.Delete("/schemas/{schema}/tables/{table}/columns/{column}", s.DropColumnHandler())
		api.Delete("/schemas/{schema}/indexes/{index}", s.DropIndexHandler())
		api.Get("/schemas/{schema}/routines/{name}", s.RoutineSourceHandler())
		api.Post("/routines", s.ApplyRoutineHandler())
		api.Post("/introspect", s.IntrospectHandler())
		api.Get("/tree", s.TreeHandler())
		api.Get("/search", s.SearchHandler())
		api.Get("/consoles", s.ListConsolesHandler())
		api.Post("/consoles", s.CreateConsoleHandler())
		api.Post("/consoles/import", s.ImportConsoleHandler())
		api.Get("/consoles/{id}", s.GetConsoleHandler())
		api.Patch("/consoles/{id}", s.UpdateConsoleHandler())
		api.Delete("/consoles/{id}", s.CloseConsoleHandler())
		api.Put("/consoles/{id}/content", s.SaveConsoleContentHandler())
	})
	return r
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	switch b := body.(type) {
	case nil:
		rd = bytes.NewReader(nil)
	case string:
		rd = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.h.ServeHTTP(rec, req)
	return rec
}

// addActive saves profile name and makes it active.
func (f *fixture) addActive(t *testing.T, name string) {
	t.Helper()
	require.NoError(t, f.ds.AddProfile(domain.ConnectionProfile{Name: name, Host: "localhost", Port: 5432, Database: "app", Username: "postgres", Password: "secret"}))
	require.True(t, f.ds.SetActive(name))
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type envelope struct {
	Error struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}
