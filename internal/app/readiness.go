package app

import (
	"context"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"

	httpserver "github.com/fairyhunter13/pgdeveloper/internal/adapter/httpserver"
	"github.com/fairyhunter13/pgdeveloper/internal/config"
)

// Pinger is the minimal interface for a store capable of Ping.
type Pinger interface{ Ping(ctx context.Context) error }

// BuildReadinessChecks returns the checks served by /readyz: the search
// index, the config directory and, when rdb is non-nil, redis.
func BuildReadinessChecks(cfg config.Config, index Pinger, rdb redis.UniversalClient) []httpserver.DependencyCheck {
	checks := []httpserver.DependencyCheck{
		{Name: "index", Check: func(ctx context.Context) error {
			if index == nil {
				return fmt.Errorf("index not configured")
			}
			return index.Ping(ctx)
		}},
		{Name: "config_dir", Check: func(context.Context) error {
			st, err := os.Stat(cfg.ConfigDir)
			if err != nil {
				return err
			}
			if !st.IsDir() {
				return fmt.Errorf("%s is not a directory", cfg.ConfigDir)
			}
			return nil
		}},
	}
	if rdb != nil {
		checks = append(checks, httpserver.DependencyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}
	return checks
}
