package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("AVALON_CONFIG_FILE", writeConfig(t, "environment: development\n"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.API.ListenAddress)
	assert.Equal(t, 30*time.Second, cfg.API.ReadTimeout)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.True(t, cfg.Database.AutoMigrate)
	assert.Equal(t, "localhost:6379", cfg.Cache.Address)
	assert.Equal(t, 300, cfg.Cache.TTLSeconds)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Tracing.Enabled)
	assert.False(t, cfg.IsProduction())
}

func TestLoadFromFile(t *testing.T) {
	t.Setenv("AVALON_CONFIG_FILE", writeConfig(t, `
environment: production
api:
  listen_address: ":9090"
  rate_limit:
    enabled: true
    rps: 50
database:
  host: db.internal
  password: secret
cache:
  enabled: false
`))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.API.ListenAddress)
	assert.True(t, cfg.API.RateLimit.Enabled)
	assert.Equal(t, 50.0, cfg.API.RateLimit.RPS)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.False(t, cfg.Cache.Enabled)
	assert.True(t, cfg.IsProduction())
}

func TestEnvironmentOverridesFile(t *testing.T) {
	t.Setenv("AVALON_CONFIG_FILE", writeConfig(t, "api:\n  listen_address: \":9090\"\n"))
	t.Setenv("AVALON_API_LISTEN_ADDRESS", ":7070")
	t.Setenv("AVALON_DATABASE_HOST", "pg.internal")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.API.ListenAddress)
	assert.Equal(t, "pg.internal", cfg.Database.Host)
}

func TestDockerAliasEnvVars(t *testing.T) {
	t.Setenv("AVALON_CONFIG_FILE", writeConfig(t, "environment: development\n"))
	t.Setenv("REDIS_ADDR", "redis.internal:6379")
	t.Setenv("DATABASE_URL", "postgres://u:p@pg.internal:5432/avalon")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "redis.internal:6379", cfg.Cache.Address)
	assert.Equal(t, "postgres://u:p@pg.internal:5432/avalon", cfg.Database.DSN)
}

func TestValidateRejectsMissingDatabase(t *testing.T) {
	cfg := &Config{}
	cfg.API.ListenAddress = ":8080"

	assert.Error(t, cfg.Validate())

	cfg.Database.DSN = "postgres://u:p@localhost:5432/avalon"
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsMissingListenAddress(t *testing.T) {
	cfg := &Config{}
	cfg.Database.Host = "localhost"
	cfg.Database.Port = 5432
	cfg.Database.Database = "avalon"

	assert.Error(t, cfg.Validate())
}
