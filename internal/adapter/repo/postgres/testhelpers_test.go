package postgres

import (
	"context"
	"errors"
	"reflect"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/fairyhunter13/pgdeveloper/internal/domain"
)

// rowStub implements pgx.Row
type rowStub struct{ scan func(dest ...any) error }

func (r rowStub) Scan(dest ...any) error { return r.scan(dest...) }

// rowsStub implements pgx.Rows over an in-memory table.
type rowsStub struct {
	fields []string
	data   [][]any
	tag    pgconn.CommandTag
	err    error
	i      int
	closed bool
}

func (r *rowsStub) Close()                        { r.closed = true }
func (r *rowsStub) Err() error                    { return r.err }
func (r *rowsStub) CommandTag() pgconn.CommandTag { return r.tag }
func (r *rowsStub) RawValues() [][]byte           { return nil }
func (r *rowsStub) Conn() *pgx.Conn               { return nil }

func (r *rowsStub) FieldDescriptions() []pgconn.FieldDescription {
	if len(r.fields) == 0 {
		return nil
	}
	out := make([]pgconn.FieldDescription, len(r.fields))
	for i, f := range r.fields {
		out[i] = pgconn.FieldDescription{Name: f}
	}
	return out
}

func (r *rowsStub) Next() bool {
	if r.closed || r.i >= len(r.data) {
		return false
	}
	r.i++
	return true
}

func (r *rowsStub) Values() ([]any, error) { return r.data[r.i-1], nil }

func (r *rowsStub) Scan(dest ...any) error {
	row := r.data[r.i-1]
	if len(dest) != len(row) {
		return errors.New("scan: column count mismatch")
	}
	for i, d := range dest {
		target := reflect.ValueOf(d).Elem()
		if row[i] == nil {
			target.Set(reflect.Zero(target.Type()))
			continue
		}
		target.Set(reflect.ValueOf(row[i]))
	}
	return nil
}

// poolStub implements PgxPool for tests. Unset hooks return an error.
type poolStub struct {
	mu      sync.Mutex
	sqls    []string
	args    [][]any
	closed  int
	pings   int
	query   func(sql string, args []any) (pgx.Rows, error)
	exec    func(sql string, args []any) (pgconn.CommandTag, error)
	row     func(sql string, args []any) pgx.Row
	pingErr error
}

func (p *poolStub) record(sql string, args []any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sqls = append(p.sqls, sql)
	p.args = append(p.args, args)
}

func (p *poolStub) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	p.record(sql, args)
	if p.exec == nil {
		return pgconn.CommandTag{}, errors.New("no exec configured")
	}
	return p.exec(sql, args)
}

func (p *poolStub) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	p.record(sql, args)
	if p.query == nil {
		return nil, errors.New("no query configured")
	}
	return p.query(sql, args)
}

func (p *poolStub) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	p.record(sql, args)
	if p.row == nil {
		return rowStub{scan: func(_ ...any) error { return errors.New("no row configured") }}
	}
	return p.row(sql, args)
}

func (p *poolStub) Ping(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pings++
	return p.pingErr
}

func (p *poolStub) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed++
}

func (p *poolStub) lastSQL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.sqls) == 0 {
		return ""
	}
	return p.sqls[len(p.sqls)-1]
}

// memStore is an in-memory domain.ProfileStore.
type memStore struct {
	mu       sync.Mutex
	profiles []domain.ConnectionProfile
	saves    int
	saveErr  error
}

func (s *memStore) Load() ([]domain.ConnectionProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.ConnectionProfile(nil), s.profiles...), nil
}

func (s *memStore) SaveAll(p []domain.ConnectionProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves++
	s.profiles = append([]domain.ConnectionProfile(nil), p...)
	return nil
}

func (s *memStore) names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.profiles))
	for i, p := range s.profiles {
		out[i] = p.Name
	}
	return out
}

func profile(name string) domain.ConnectionProfile {
	return domain.ConnectionProfile{Name: name, Host: "localhost", Port: 5432, Database: "app", Username: "postgres", Password: "secret"}
}

// stubOpener hands out one poolStub per profile and counts opens.
type stubOpener struct {
	mu     sync.Mutex
	pools  map[string]*poolStub
	opens  int
	err    error
	config func(name string, p *poolStub)
}

func newStubOpener() *stubOpener { return &stubOpener{pools: map[string]*poolStub{}} }

func (o *stubOpener) open(_ context.Context, p domain.ConnectionProfile) (PgxPool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return nil, o.err
	}
	o.opens++
	ps := &poolStub{}
	if o.config != nil {
		o.config(p.Name, ps)
	}
	o.pools[p.Name] = ps
	return ps, nil
}

func (o *stubOpener) pool(name string) *poolStub {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.pools[name]
}
