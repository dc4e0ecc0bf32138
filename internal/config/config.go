// Package config defines configuration parsing and helpers.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all application configuration parsed from environment variables.
type Config struct {
	AppEnv string `env:"APP_ENV" envDefault:"dev"`
	Port   int    `env:"PORT" envDefault:"8765"`
	// BindHost is the listen address of the daemon.
	BindHost string `env:"BIND_HOST" envDefault:"127.0.0.1"`
	// APIToken, when set, is required as a bearer token on every /v1 request.
	APIToken string `env:"PGDEV_API_TOKEN"`
	// ConfigDir holds connections.json and the file cache. Empty means ~/.pgdeveloper.
	ConfigDir    string `env:"PGDEV_CONFIG_DIR"`
	WorkspaceDir string `env:"PGDEV_WORKSPACE_DIR" envDefault:".pgdev_workspace"`
	// IndexDSN is the sqlite DSN of the object search index. The default keeps it in memory.
	IndexDSN string `env:"PGDEV_INDEX_DSN" envDefault:":memory:"`
	// SecretKey seals stored passwords when set.
	SecretKey string `env:"PGDEV_SECRET_KEY"`

	CacheBackend string        `env:"CACHE_BACKEND" envDefault:"file"`
	RedisURL     string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	CacheTTL     time.Duration `env:"CACHE_TTL" envDefault:"24h"`

	PoolMaxConns        int32         `env:"POOL_MAX_CONNS" envDefault:"5"`
	PoolConnectTimeout  time.Duration `env:"POOL_CONNECT_TIMEOUT" envDefault:"5s"`
	PoolMaxConnIdleTime time.Duration `env:"POOL_MAX_CONN_IDLE_TIME" envDefault:"5m"`

	QueryMaxRows int           `env:"QUERY_MAX_ROWS" envDefault:"500"`
	QueryTimeout time.Duration `env:"QUERY_TIMEOUT" envDefault:"60s"`
	// IntrospectConcurrency bounds how many schemas are read in parallel.
	IntrospectConcurrency int `env:"INTROSPECT_CONCURRENCY" envDefault:"4"`
	// IntrospectPerMin throttles introspections per profile when the redis
	// backend is used. Zero disables the throttle.
	IntrospectPerMin int `env:"INTROSPECT_PER_MIN" envDefault:"6"`

	OTLPEndpoint    string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`
	OTELServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"pgdeveloper"`

	CORSAllowOrigins      string        `env:"CORS_ALLOW_ORIGINS" envDefault:"http://localhost,http://127.0.0.1"`
	RateLimitPerMin       int           `env:"RATE_LIMIT_PER_MIN" envDefault:"600"`
	RequestTimeout        time.Duration `env:"REQUEST_TIMEOUT" envDefault:"5m"`
	ServerShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	HTTPReadTimeout       time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	HTTPWriteTimeout      time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"5m"`
	HTTPIdleTimeout       time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`

	// Connection test backoff
	PingBackoffInitialInterval time.Duration `env:"PING_BACKOFF_INITIAL_INTERVAL" envDefault:"200ms"`
	PingBackoffMaxInterval     time.Duration `env:"PING_BACKOFF_MAX_INTERVAL" envDefault:"1s"`
	PingBackoffMultiplier      float64       `env:"PING_BACKOFF_MULTIPLIER" envDefault:"2.0"`
}

// Load parses environment variables into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("op=config.Load: %w", err)
	}
	if cfg.ConfigDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Config{}, fmt.Errorf("op=config.Load: %w", err)
		}
		cfg.ConfigDir = filepath.Join(home, ".pgdeveloper")
	}
	return cfg, nil
}

// IsDev reports whether the app is running in development mode.
func (c Config) IsDev() bool { return strings.ToLower(c.AppEnv) == "dev" }

// IsProd reports whether the app is running in production mode.
func (c Config) IsProd() bool { return strings.ToLower(c.AppEnv) == "prod" }

// IsTest reports whether the app is running in test mode.
func (c Config) IsTest() bool { return strings.ToLower(c.AppEnv) == "test" }

// Addr is the host:port the daemon listens on.
func (c Config) Addr() string { return fmt.Sprintf("%s:%d", c.BindHost, c.Port) }

// ProfilesPath is the JSON file holding saved connection profiles.
func (c Config) ProfilesPath() string { return filepath.Join(c.ConfigDir, "connections.json") }

// CachePath is the directory of the file-backed introspection cache.
func (c Config) CachePath() string { return filepath.Join(c.ConfigDir, "cache") }
