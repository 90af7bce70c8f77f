package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"HTTP_ADDR", "DB_DRIVER", "TOKEN_TTL", "CORS_ORIGINS", "SUBMISSION_GRACE", "MAX_UPLOAD_MB", "SERVE_UPLOADS", "ESSAY_AUTO_ACCEPT", "ESSAY_MAX_EDIT"} {
		t.Setenv(k, "")
	}
	cfg := FromEnv()
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, 7*24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 30*time.Second, cfg.SubmissionGrace)
	assert.Equal(t, int64(10), cfg.MaxUploadMB)
	assert.True(t, cfg.ServeUploads)
	assert.False(t, cfg.EssayAutoAccept)
	assert.Zero(t, cfg.EssayMaxEdit)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:5173"}, cfg.CORSOrigins)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("TOKEN_TTL", "2h")
	t.Setenv("SUBMISSION_GRACE", "45")
	t.Setenv("AUTH_RATE_PER_MIN", "nope")
	t.Setenv("CORS_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("SERVE_UPLOADS", "false")
	t.Setenv("ESSAY_AUTO_ACCEPT", "true")
	t.Setenv("ESSAY_MAX_EDIT", "2")

	cfg := FromEnv()
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, 2*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 45*time.Second, cfg.SubmissionGrace)
	assert.Equal(t, 30, cfg.AuthRatePerMin)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.False(t, cfg.ServeUploads)
	assert.True(t, cfg.EssayAutoAccept)
	assert.Equal(t, 2, cfg.EssayMaxEdit)
}

func TestValidateRefusesDefaultSecretInProduction(t *testing.T) {
	t.Setenv("AUTH_HMAC_SECRET", "")
	t.Setenv("LOG_MODE", "development")
	cfg := FromEnv()
	assert.True(t, cfg.UsesDefaultSecret())
	assert.NoError(t, cfg.Validate())

	cfg.LogMode = "production"
	assert.Error(t, cfg.Validate())

	t.Setenv("AUTH_HMAC_SECRET", "a-real-secret")
	t.Setenv("LOG_MODE", "production")
	cfg = FromEnv()
	assert.False(t, cfg.UsesDefaultSecret())
	assert.NoError(t, cfg.Validate())
}

func TestLoadDotEnvDoesNotOverrideEnvironment(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(file, []byte("HTTP_ADDR=:9999\nLOG_MODE=production\n"), 0o600))
	t.Setenv("HTTP_ADDR", ":7000")
	t.Setenv("LOG_MODE", "")
	require.NoError(t, os.Unsetenv("LOG_MODE"))

	cfg := Load(file)
	assert.Equal(t, ":7000", cfg.HTTPAddr)
	assert.Equal(t, "production", cfg.LogMode)
}
