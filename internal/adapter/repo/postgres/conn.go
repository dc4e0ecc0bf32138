// Package postgres implements the PostgreSQL side of pgdeveloper: per-profile
// connection pools, SQL execution, catalog reads and table DDL.
package postgres

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fairyhunter13/pgdeveloper/internal/domain"
)

// PgxPool is the subset of *pgxpool.Pool used by the adapters.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PoolOptions tune the pools created for profiles.
type PoolOptions struct {
	MaxConns        int32
	ConnectTimeout  time.Duration
	MaxConnIdleTime time.Duration
}

// DefaultPoolOptions mirrors the stock configuration: five connections and a
// five second connect timeout.
func DefaultPoolOptions() PoolOptions {
	return PoolOptions{MaxConns: 5, ConnectTimeout: 5 * time.Second, MaxConnIdleTime: 5 * time.Minute}
}

// PoolName is the application_name reported to the server for profile.
func PoolName(profile string) string { return "pgdev-" + profile }

// ProfileConfig builds a pool configuration for p. Credentials are set on the
// parsed config rather than the URL so they never need escaping.
func ProfileConfig(p domain.ConnectionProfile, opt PoolOptions) (*pgxpool.Config, error) {
	sslmode := "prefer"
	if p.UseSSL {
		sslmode = "require"
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(p.Host, strconv.Itoa(p.Port)),
		Path:   "/" + p.Database,
	}
	q := url.Values{}
	q.Set("sslmode", sslmode)
	q.Set("application_name", PoolName(p.Name))
	u.RawQuery = q.Encode()

	cfg, err := pgxpool.ParseConfig(u.String())
	if err != nil {
		return nil, fmt.Errorf("op=pool.config: %w: %v", domain.ErrInvalidArgument, err)
	}
	cfg.ConnConfig.User = p.Username
	cfg.ConnConfig.Password = p.Password
	if opt.MaxConns > 0 {
		cfg.MaxConns = opt.MaxConns
	}
	if opt.ConnectTimeout > 0 {
		cfg.ConnConfig.ConnectTimeout = opt.ConnectTimeout
	}
	if opt.MaxConnIdleTime > 0 {
		cfg.MaxConnIdleTime = opt.MaxConnIdleTime
	}
	cfg.ConnConfig.Tracer = otelpgx.NewTracer()
	return cfg, nil
}

// NewPool creates a pool for p. pgxpool connects lazily, so an unreachable
// server surfaces on first use rather than here.
func NewPool(ctx context.Context, p domain.ConnectionProfile, opt PoolOptions) (*pgxpool.Pool, error) {
	cfg, err := ProfileConfig(p, opt)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("op=pool.new: %w: %s: %v", domain.ErrConnection, p.Name, err)
	}
	return pool, nil
}
