package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"

	"github.com/fairyhunter13/pgdeveloper/internal/adapter/cache"
	httpserver "github.com/fairyhunter13/pgdeveloper/internal/adapter/httpserver"
	"github.com/fairyhunter13/pgdeveloper/internal/adapter/index/sqlite"
	"github.com/fairyhunter13/pgdeveloper/internal/adapter/observability"
	"github.com/fairyhunter13/pgdeveloper/internal/adapter/profilestore"
	"github.com/fairyhunter13/pgdeveloper/internal/adapter/ratelimit"
	"github.com/fairyhunter13/pgdeveloper/internal/adapter/repo/postgres"
	"github.com/fairyhunter13/pgdeveloper/internal/adapter/secret"
	"github.com/fairyhunter13/pgdeveloper/internal/adapter/workspace"
	"github.com/fairyhunter13/pgdeveloper/internal/config"
	"github.com/fairyhunter13/pgdeveloper/internal/domain"
	"github.com/fairyhunter13/pgdeveloper/internal/usecase"
)

// Core is the assembled data layer and use cases shared by the daemon and
// the CLI.
type Core struct {
	Cfg      config.Config
	DS       *postgres.Manager
	Profiles *profilestore.FileStore
	Index    *sqlite.Index
	Redis    redis.UniversalClient
	Services httpserver.Services

	closers []func()
}

// Build opens every store named by cfg and wires the use cases on top.
// Nothing connects to PostgreSQL until a profile is used.
func Build(ctx context.Context, cfg config.Config) (*Core, error) {
	if err := os.MkdirAll(cfg.ConfigDir, 0o700); err != nil {
		return nil, fmt.Errorf("op=app.build: %w", err)
	}
	c := &Core{Cfg: cfg}
	ok := false
	defer func() {
		if !ok {
			c.Close()
		}
	}()

	c.Profiles = profilestore.NewFileStore(cfg.ProfilesPath(), secret.NewSealer(cfg.SecretKey))
	ds, err := postgres.NewManager(c.Profiles, postgres.ManagerOptions{
		Pool: postgres.PoolOptions{
			MaxConns:        cfg.PoolMaxConns,
			ConnectTimeout:  cfg.PoolConnectTimeout,
			MaxConnIdleTime: cfg.PoolMaxConnIdleTime,
		},
		Backoff: func() backoff.BackOff { return cfg.PingBackoff() },
	})
	if err != nil {
		return nil, err
	}
	c.DS = ds
	c.closers = append(c.closers, ds.Close)

	idx, err := sqlite.Open(ctx, cfg.IndexDSN)
	if err != nil {
		return nil, err
	}
	c.Index = idx
	c.closers = append(c.closers, func() { _ = idx.Close() })

	store, limiter, rdb, err := buildCache(cfg)
	if err != nil {
		return nil, err
	}
	if rdb != nil {
		c.Redis = rdb
		c.closers = append(c.closers, func() { _ = rdb.Close() })
	}

	ws, err := workspace.NewStore(cfg.WorkspaceDir)
	if err != nil {
		return nil, err
	}
	wsSvc, err := usecase.NewWorkspaceService(ws)
	if err != nil {
		return nil, err
	}

	meta := postgres.NewMetadata(ds)
	introOpts := usecase.IntrospectionOptions{
		Concurrency: cfg.IntrospectConcurrency,
		Observe:     observability.ObserveIntrospection,
	}
	if limiter != nil {
		introOpts.Limiter = limiter
	}
	intro := usecase.NewIntrospectionService(meta, store, idx, ds, introOpts)
	c.Services = httpserver.Services{
		Profiles:  usecase.NewProfileService(ds, store, idx),
		Query:     usecase.NewQueryService(postgres.NewExecutor(ds, cfg.QueryMaxRows, cfg.QueryTimeout), meta, intro),
		Intro:     intro,
		Tables:    usecase.NewTableService(meta, postgres.NewTableEditor(ds)),
		Meta:      meta,
		Workspace: wsSvc,
	}
	ok = true
	return c, nil
}

// WatchProfiles reloads the saved profiles whenever the profiles file
// changes on disk, until ctx is done.
func (c *Core) WatchProfiles(ctx context.Context) {
	err := c.Profiles.Watch(ctx, 250*time.Millisecond, c.Services.Profiles.Reload)
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Warn("profile watcher stopped", slog.Any("error", err))
	}
}

// Close releases pools, the index and the redis client in reverse order.
func (c *Core) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

// buildCache picks the snapshot store named by CACHE_BACKEND. The redis
// backend also backs the per-profile introspection throttle.
func buildCache(cfg config.Config) (domain.CacheStore, *ratelimit.RedisLimiter, redis.UniversalClient, error) {
	switch strings.ToLower(cfg.CacheBackend) {
	case "", "file":
		return cache.NewFileStore(cfg.CachePath()), nil, nil, nil
	case "none":
		return cache.NoopStore{}, nil, nil, nil
	case "redis":
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("op=app.redis: %w: %v", domain.ErrInvalidArgument, err)
		}
		rdb := redis.NewClient(opt)
		limiter := ratelimit.NewRedisLimiter(rdb, ratelimit.PerMinute(cfg.IntrospectPerMin))
		return cache.NewRedisStore(rdb, cfg.CacheTTL), limiter, rdb, nil
	default:
		return nil, nil, nil, fmt.Errorf("op=app.cache: %w: unknown cache backend %q", domain.ErrInvalidArgument, cfg.CacheBackend)
	}
}
