package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/goharvest/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8060, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "goharvest", cfg.Database.DBName)
	assert.Equal(t, 2*time.Second, cfg.Harvest.InterSourceDelay)
	assert.Equal(t, 256*1024, cfg.Harvest.SnapshotMaxBytes)
	assert.Equal(t, "*/15 * * * *", cfg.Harvest.CronSchedule)
	assert.False(t, cfg.Harvest.CronEnabled)
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
debug: true
server:
  host: 127.0.0.1
  port: 9090
database:
  host: db.internal
  dbname: harvest_prod
harvest:
  inter_source_delay: 5s
  cron_enabled: true
  cron_schedule: "0 * * * *"
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.Debug)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "harvest_prod", cfg.Database.DBName)
	assert.Equal(t, 5*time.Second, cfg.Harvest.InterSourceDelay)
	assert.True(t, cfg.Harvest.CronEnabled)
	assert.Equal(t, "0 * * * *", cfg.Harvest.CronSchedule)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "7070")
	t.Setenv("DB_HOST", "env-db")
	t.Setenv("HARVEST_INTER_SOURCE_DELAY", "250ms")
	t.Setenv("REDIS_EVENTS_ENABLED", "yes")

	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)

	// Env always wins over file values and defaults.
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "env-db", cfg.Database.Host)
	assert.Equal(t, 250*time.Millisecond, cfg.Harvest.InterSourceDelay)
	assert.True(t, cfg.Redis.Enabled)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "server: [not a map")

	_, err := config.Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)

	cfg.Server.Port = 0
	assert.Error(t, cfg.Validate())

	cfg.Server.Port = 8060
	cfg.Harvest.SnapshotMaxBytes = -1
	assert.Error(t, cfg.Validate())
}
