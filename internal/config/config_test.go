package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"castypos.com/posserver/internal/config"
	"castypos.com/posserver/internal/plan"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0644))
	return cfgPath
}

func TestLoad(t *testing.T) {
	t.Run("returns defaults when config file does not exist", func(t *testing.T) {
		cfg, err := config.Load("nonexistent.yaml")
		require.NoError(t, err)

		assert.Equal(t, ":8080", cfg.Addr)
		assert.Equal(t, "./posserver.db", cfg.DBPath)
		assert.Equal(t, "default", cfg.DBPathSource)
		assert.Equal(t, 5*time.Second, cfg.ReadTimeout)
		assert.Equal(t, 10*time.Second, cfg.WriteTimeout)
		assert.Equal(t, 120*time.Second, cfg.IdleTimeout)
		assert.Equal(t, 7, cfg.OfflineGraceDays)
		assert.Equal(t, 30, cfg.TrialDays)
		assert.Equal(t, "info", cfg.LogLevel)
		assert.False(t, cfg.RateLimitEnabled(), "no redis url means no limiter")
	})

	t.Run("loads values from YAML file", func(t *testing.T) {
		cfgPath := writeConfig(t, `
addr: ":9090"
db_path: "/data/test.db"
admin_api_key: "yaml-admin-key"
read_timeout: 15s
write_timeout: 30s
idle_timeout: 60s
offline_grace_days: 3
trial_days: 14
log_format: console
redis_url: "redis://localhost:6379/0"
rate_limit: 10
rate_window: 30s
plans:
  pro:
    label: "Pro Plus"
    max_devices: 5
`)

		cfg, err := config.Load(cfgPath)
		require.NoError(t, err)

		assert.Equal(t, ":9090", cfg.Addr)
		assert.Equal(t, "/data/test.db", cfg.DBPath)
		assert.Equal(t, "yaml file", cfg.DBPathSource)
		assert.Equal(t, "yaml-admin-key", cfg.AdminAPIKey)
		assert.Equal(t, 15*time.Second, cfg.ReadTimeout)
		assert.Equal(t, 30*time.Second, cfg.WriteTimeout)
		assert.Equal(t, 60*time.Second, cfg.IdleTimeout)
		assert.Equal(t, 3, cfg.OfflineGraceDays)
		assert.Equal(t, 14, cfg.TrialDays)
		assert.Equal(t, "console", cfg.LogFormat)
		assert.Equal(t, int64(10), cfg.RateLimit)
		assert.Equal(t, 30*time.Second, cfg.RateWindow)
		assert.True(t, cfg.RateLimitEnabled())

		require.Contains(t, cfg.Plans, plan.Pro)
		assert.Equal(t, "Pro Plus", cfg.Plans[plan.Pro].Label)
		assert.Equal(t, 5, cfg.Plans[plan.Pro].MaxDevices)
	})

	t.Run("env vars override YAML values", func(t *testing.T) {
		cfgPath := writeConfig(t, `
db_path: "/yaml/path.db"
admin_api_key: "yaml-admin-key"
offline_grace_days: 3
`)
		t.Setenv("DB_PATH", "/env/override.db")
		t.Setenv("ADMIN_API_KEY", "env-admin-key")
		t.Setenv("POSSERVER_OFFLINE_GRACE_DAYS", "10")

		cfg, err := config.Load(cfgPath)
		require.NoError(t, err)

		assert.Equal(t, "/env/override.db", cfg.DBPath)
		assert.Equal(t, "env var", cfg.DBPathSource)
		assert.Equal(t, "env-admin-key", cfg.AdminAPIKey)
		assert.Equal(t, 10, cfg.OfflineGraceDays)
	})

	t.Run("partial env var override", func(t *testing.T) {
		cfgPath := writeConfig(t, `
db_path: "/yaml/path.db"
admin_api_key: "yaml-admin-key"
`)
		t.Setenv("DB_PATH", "/env/only-db.db")

		cfg, err := config.Load(cfgPath)
		require.NoError(t, err)

		assert.Equal(t, "/env/only-db.db", cfg.DBPath)
		assert.Equal(t, "yaml-admin-key", cfg.AdminAPIKey)
	})

	t.Run("PORT sets the listen address", func(t *testing.T) {
		t.Setenv("PORT", "7070")

		cfg, err := config.Load("nonexistent.yaml")
		require.NoError(t, err)
		assert.Equal(t, ":7070", cfg.Addr)
	})

	t.Run("returns error for invalid YAML", func(t *testing.T) {
		cfgPath := writeConfig(t, `
addr: ":9090"
  invalid indentation
db_path: "/data/test.db"
`)
		_, err := config.Load(cfgPath)
		assert.Error(t, err)
	})

	t.Run("returns error for malformed env value", func(t *testing.T) {
		t.Setenv("TRIAL_DAYS", "thirty")

		_, err := config.Load("nonexistent.yaml")
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	base := func() config.Config {
		return config.Config{DBPath: "x.db", RateLimit: 5, RateWindow: time.Minute}
	}

	cfg := base()
	assert.NoError(t, cfg.Validate())

	cfg = base()
	cfg.OfflineGraceDays = -1
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.TrialDays = -1
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.RateWindow = 0
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.DBPath = ""
	assert.Error(t, cfg.Validate())
}
