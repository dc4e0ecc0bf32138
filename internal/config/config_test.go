package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Load_Defaults(t *testing.T) {
	t.Setenv("PGDEV_CONFIG_DIR", "/tmp/pgdev-test")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsDev())
	assert.False(t, cfg.IsProd())
	assert.Equal(t, int32(5), cfg.PoolMaxConns)
	assert.Equal(t, 5*time.Second, cfg.PoolConnectTimeout)
	assert.Equal(t, 500, cfg.QueryMaxRows)
	assert.Equal(t, ":memory:", cfg.IndexDSN)
	assert.Equal(t, filepath.Join("/tmp/pgdev-test", "connections.json"), cfg.ProfilesPath())
	assert.Equal(t, filepath.Join("/tmp/pgdev-test", "cache"), cfg.CachePath())
	assert.Equal(t, "127.0.0.1:8765", cfg.Addr())
	assert.Empty(t, cfg.APIToken)
	assert.Equal(t, 6, cfg.IntrospectPerMin)
}

func Test_Load_HomeFallback(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("PGDEV_CONFIG_DIR", "")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".pgdeveloper"), cfg.ConfigDir)
}

func Test_Load_InvalidDuration(t *testing.T) {
	t.Setenv("QUERY_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "op=config.Load")
}

func Test_PingBackoff(t *testing.T) {
	cfg := Config{AppEnv: "prod", PoolConnectTimeout: 3 * time.Second, PingBackoffInitialInterval: 100 * time.Millisecond, PingBackoffMaxInterval: time.Second, PingBackoffMultiplier: 1.5}
	bo := cfg.PingBackoff()
	assert.Equal(t, 3*time.Second, bo.MaxElapsedTime)
	assert.Equal(t, 100*time.Millisecond, bo.InitialInterval)
	assert.Equal(t, 1.5, bo.Multiplier)

	cfg.AppEnv = "test"
	bo = cfg.PingBackoff()
	assert.Equal(t, 200*time.Millisecond, bo.MaxElapsedTime)
}
