package usecase_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/fairyhunter13/pgdeveloper/internal/domain"
)

type mockDataSource struct{ mock.Mock }

func (m *mockDataSource) AddProfile(p domain.ConnectionProfile) error {
	return m.Called(p).Error(0)
}
func (m *mockDataSource) RemoveProfile(name string) error { return m.Called(name).Error(0) }
func (m *mockDataSource) SetActive(name string) bool    { return m.Called(name).Bool(0) }
func (m *mockDataSource) ActiveName() string            { return m.Called().String(0) }
func (m *mockDataSource) Profiles() []domain.ConnectionProfile {
	return m.Called().Get(0).([]domain.ConnectionProfile)
}
func (m *mockDataSource) Profile(name string) (domain.ConnectionProfile, bool) {
	args := m.Called(name)
	return args.Get(0).(domain.ConnectionProfile), args.Bool(1)
}
func (m *mockDataSource) IsTemporary(name string) bool { return m.Called(name).Bool(0) }
func (m *mockDataSource) Resolve(name string) (string, error) {
	args := m.Called(name)
	return args.String(0), args.Error(1)
}
func (m *mockDataSource) Test(ctx domain.Context, name string) bool {
	return m.Called(ctx, name).Bool(0)
}
func (m *mockDataSource) TestProfile(ctx domain.Context, p domain.ConnectionProfile) bool {
	return m.Called(ctx, p).Bool(0)
}
func (m *mockDataSource) ConnectionInfo() string { return m.Called().String(0) }
func (m *mockDataSource) ConnectTemporary(host string, port int, database, username, password string, useSSL bool) (domain.ConnectionProfile, error) {
	args := m.Called(host, port, database, username, password, useSSL)
	return args.Get(0).(domain.ConnectionProfile), args.Error(1)
}
func (m *mockDataSource) ReplaceProfiles(profiles []domain.ConnectionProfile) { m.Called(profiles) }

// staticResolver resolves "" to active and accepts any other name.
type staticResolver struct{ active string }

func (r staticResolver) Resolve(name string) (string, error) {
	if name != "" {
		return name, nil
	}
	if r.active == "" {
		return "", domain.ErrNoActiveProfile
	}
	return r.active, nil
}

type memCache struct {
	mu      sync.Mutex
	entries map[string]domain.DatabaseCache
	deleted []string
	err     error
}

func newMemCache() *memCache { return &memCache{entries: map[string]domain.DatabaseCache{}} }

func (c *memCache) Get(_ context.Context, conn string) (domain.DatabaseCache, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[conn]
	if !ok {
		return domain.DatabaseCache{}, domain.ErrNotFound
	}
	return v, nil
}
func (c *memCache) Put(_ context.Context, v domain.DatabaseCache) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.entries[v.ConnectionName] = v
	return nil
}
func (c *memCache) Delete(_ context.Context, conn string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, conn)
	c.deleted = append(c.deleted, conn)
	return c.err
}

type memIndex struct {
	mu      sync.Mutex
	items    map[string][]domain.SearchResult
	cleared  []string
	replaced []string
}

func newMemIndex() *memIndex { return &memIndex{items: map[string][]domain.SearchResult{}} }

func (x *memIndex) Clear(_ context.Context, conn string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	delete(x.items, conn)
	x.cleared = append(x.cleared, conn)
	return nil
}
func (x *memIndex) Replace(_ context.Context, conn string, items []domain.SearchResult) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.items[conn] = append([]domain.SearchResult(nil), items...)
	x.replaced = append(x.replaced, conn)
	return nil
}
func (x *memIndex) Search(_ context.Context, conn, q string) ([]domain.SearchResult, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	out := []domain.SearchResult{}
	for c, items := range x.items {
		if conn != "" && c != conn {
			continue
		}
		for _, it := range items {
			if q != "" && containsFold(it.Name, q) {
				out = append(out, it)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func containsFold(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if equalFoldASCII(s[i:i+len(sub)], sub) {
			return true
		}
	}
	return false
}

func equalFoldASCII(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		x, y := a[i]|0x20, b[i]|0x20
		if x != y {
			return false
		}
	}
	return true
}

// fakeMeta serves a fixed catalog and counts calls.
type fakeMeta struct {
	mu        sync.Mutex
	schemas   []string
	tables    map[string][]domain.DbObject
	functions map[string][]string
	procs     map[string][]string
	columns   map[string][]domain.ColumnInfo
	indexes   map[string][]domain.IndexInfo
	source    map[string]string
	failOn    string
	delay     time.Duration
	calls     map[string]int
}

var errCatalog = errors.New("catalog unavailable")

func (f *fakeMeta) hit(op string) error {
	f.mu.Lock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[op]++
	f.mu.Unlock()
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.failOn == op {
		return errCatalog
	}
	return nil
}

func (f *fakeMeta) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeMeta) Schemas(context.Context, string) ([]string, error) {
	return f.schemas, f.hit("schemas")
}
func (f *fakeMeta) Tables(_ context.Context, _, schema string) ([]domain.DbObject, error) {
	return f.tables[schema], f.hit("tables")
}
func (f *fakeMeta) Functions(_ context.Context, _, schema string) ([]string, error) {
	return f.functions[schema], f.hit("functions")
}
func (f *fakeMeta) Procedures(_ context.Context, _, schema string) ([]string, error) {
	return f.procs[schema], f.hit("procedures")
}
func (f *fakeMeta) Columns(_ context.Context, _, schema, table string) ([]domain.ColumnInfo, error) {
	return f.columns[schema+"."+table], f.hit("columns")
}
func (f *fakeMeta) Indexes(_ context.Context, _, schema, table string) ([]domain.IndexInfo, error) {
	return f.indexes[schema+"."+table], f.hit("indexes")
}
func (f *fakeMeta) RoutineSource(_ context.Context, _, schema, name string) (string, error) {
	if err := f.hit("source"); err != nil {
		return "", err
	}
	src, ok := f.source[schema+"."+name]
	if !ok {
		return "", domain.ErrNotFound
	}
	return src, nil
}

func sampleMeta() *fakeMeta {
	return &fakeMeta{
		schemas: []string{"public", "audit"},
		tables: map[string][]domain.DbObject{
			"public": {{Name: "users", Type: domain.TypeTable}, {Name: "user_stats", Type: domain.TypeView}},
			"audit":  {{Name: "events", Type: domain.TypeTable}},
		},
		functions: map[string][]string{"public": {"touch_updated_at"}},
		procs:     map[string][]string{"audit": {"rotate_events"}},
		columns: map[string][]domain.ColumnInfo{
			"public.users": {{Name: "id", Type: "integer"}, {Name: "email", Type: "text"}},
		},
		indexes: map[string][]domain.IndexInfo{
			"public.users": {{Name: "users_pkey", Unique: true}},
		},
		source: map[string]string{"public.touch_updated_at": "CREATE FUNCTION public.touch_updated_at() ..."},
	}
}
