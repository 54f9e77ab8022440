package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatnerd/internal/tier"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 10, cfg.Quota.DailyLimit)
	assert.Equal(t, tier.Plus, cfg.MinTier())
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Quota.DailyLimit, cfg.Quota.DailyLimit)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
quota:
  daily_limit: 3
  min_tier: free
sandbox:
  exec_timeout: 30s
  teardown_timeout: 5s
reader:
  timeout: 2s
logging:
  level: debug
  development: true
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Quota.DailyLimit)
	assert.Equal(t, tier.Free, cfg.MinTier())
	assert.Equal(t, 30*time.Second, cfg.Sandbox.ExecTimeout)
	assert.Equal(t, 2*time.Second, cfg.Reader.Timeout)
	assert.True(t, cfg.Logging.Development)
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("quota:\n  daily_limit: 0\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "daily_limit")
}

func TestLoadRejectsUnknownTier(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("quota:\n  daily_limit: 5\n  min_tier: platinum\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "min_tier")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CHATNERD_REDIS_ADDR", "redis.internal:6379")
	t.Setenv("CHATNERD_SANDBOX_API_KEY", "sk-test")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "redis.internal:6379", cfg.Redis.Addr)
	assert.Equal(t, "sk-test", cfg.Sandbox.APIKey)
}
