package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable Load reads so the host environment can't leak in
func clearEnv(t *testing.T) {
	for _, key := range []string{
		"POSTBOARD_CONFIG", "PORT", "DATABASE_URL", "ACCESS_TOKEN_SECRET", "REFRESH_TOKEN_SECRET",
		"REVOKED_TOKEN_PRUNE_SCHEDULE", "METRICS_PATH", "LOG_LEVEL", "LOG_FORMAT", "CORS_ORIGINS",
		"ACCESS_TOKEN_TTL", "REFRESH_TOKEN_TTL", "SECURE_COOKIES", "METRICS_ENABLED",
	} {
		t.Setenv(key, "")
	}
}

func setSecrets(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_SECRET", "access-secret")
	t.Setenv("REFRESH_TOKEN_SECRET", "refresh-secret")
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	setSecrets(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Empty(t, cfg.Server.CORSOrigins, "CORS stays off until origins are configured")
	assert.Equal(t, "postboard.sqlite", cfg.Database.URL)
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTokenTTL)
	assert.Equal(t, 168*time.Hour, cfg.Auth.RefreshTokenTTL)
	assert.Equal(t, "@hourly", cfg.Auth.PruneSchedule)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_FileThenEnv(t *testing.T) {
	content := []byte(`
server:
  port: "9090"
  cors_origins:
    - https://posts.example.com
database:
  url: /var/lib/postboard/db.sqlite
auth:
  access_token_secret: file-access
  refresh_token_secret: file-refresh
  access_token_ttl: 5m
metrics:
  enabled: false
logging:
  format: console
`)
	path := filepath.Join(t.TempDir(), "postboard.yaml")
	require.NoError(t, os.WriteFile(path, content, 0644))

	clearEnv(t)
	t.Setenv("POSTBOARD_CONFIG", path)
	t.Setenv("PORT", "4000")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "4000", cfg.Server.Port, "env wins over file")
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "/var/lib/postboard/db.sqlite", cfg.Database.URL)
	assert.Equal(t, "file-access", cfg.Auth.AccessTokenSecret)
	assert.Equal(t, 5*time.Minute, cfg.Auth.AccessTokenTTL)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestLoad_MissingSecrets(t *testing.T) {
	clearEnv(t)

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ACCESS_TOKEN_SECRET is required")
	assert.Contains(t, err.Error(), "REFRESH_TOKEN_SECRET is required")
}

func TestLoad_InvalidDuration(t *testing.T) {
	clearEnv(t)
	setSecrets(t)
	t.Setenv("ACCESS_TOKEN_TTL", "soon")

	_, err := Load()
	assert.ErrorContains(t, err, "invalid ACCESS_TOKEN_TTL")
}

func TestValidate_SameSecrets(t *testing.T) {
	cfg := &Config{Auth: AuthConfig{AccessTokenSecret: "x", RefreshTokenSecret: "x"}}
	assert.ErrorContains(t, cfg.Validate(), "must differ")
}
