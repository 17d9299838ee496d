package config

import (
	"testing"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("STORE_BACKEND", "memory")
	for _, key := range []string{"PORT", "ALLOWED_ORIGINS", "WS_ALLOWED_ORIGINS", "REVIEW_MIN_COMMENT_LENGTH",
		"STORAGE_BACKEND", "MAX_UPLOAD_BYTES", "SMTP_HOST", "SMTP_PORT", "WS_PING_INTERVAL"} {
		t.Setenv(key, "")
	}

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.AllowedOrigins)
	assert.Equal(t, cfg.AllowedOrigins, cfg.WSAllowedOrigins)
	assert.Equal(t, 50, cfg.ReviewMinCommentLength)
	assert.Equal(t, StorageBackendLocal, cfg.StorageBackend)
	assert.EqualValues(t, 16<<20, cfg.MaxUploadBytes)
	assert.Equal(t, 587, cfg.SMTP.Port)
	assert.False(t, cfg.MailEnabled())
	assert.Equal(t, 30*time.Second, cfg.WSPingInterval)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("STORE_BACKEND", "POSTGRES")
	t.Setenv("DB_USER", "paperflow")
	t.Setenv("DB_NAME", "reviews")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.org, https://b.example.org")
	t.Setenv("WS_ALLOWED_ORIGINS", "https://ops.example.org")
	t.Setenv("REVIEW_MIN_COMMENT_LENGTH", "120")
	t.Setenv("SMTP_HOST", "smtp.example.org")
	t.Setenv("SHUTDOWN_TIMEOUT", "5s")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, StoreBackendPostgres, cfg.StoreBackend)
	assert.Equal(t, []string{"https://a.example.org", "https://b.example.org"}, cfg.AllowedOrigins)
	assert.Equal(t, []string{"https://ops.example.org"}, cfg.WSAllowedOrigins)
	assert.Equal(t, 120, cfg.ReviewMinCommentLength)
	assert.True(t, cfg.MailEnabled())
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
	assert.Contains(t, cfg.Database.DSN(), "dbname=reviews")
}

func TestFromEnvErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing secret", map[string]string{"STORE_BACKEND": "memory"}},
		{"unknown store", map[string]string{"JWT_SECRET": "x", "STORE_BACKEND": "sqlite"}},
		{"postgres without credentials", map[string]string{"JWT_SECRET": "x", "STORE_BACKEND": "postgres"}},
		{"gcs without bucket", map[string]string{"JWT_SECRET": "x", "STORE_BACKEND": "memory", "STORAGE_BACKEND": "gcs"}},
		{"bad integer", map[string]string{"JWT_SECRET": "x", "STORE_BACKEND": "memory", "REVIEW_MIN_COMMENT_LENGTH": "many"}},
		{"bad duration", map[string]string{"JWT_SECRET": "x", "STORE_BACKEND": "memory", "WS_PING_INTERVAL": "soon"}},
		{"origin without scheme", map[string]string{"JWT_SECRET": "x", "STORE_BACKEND": "memory", "ALLOWED_ORIGINS": "localhost:5173"}},
		{"websocket origin without scheme", map[string]string{"JWT_SECRET": "x", "STORE_BACKEND": "memory", "WS_ALLOWED_ORIGINS": "example.org"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "")
			t.Setenv("DB_USER", "")
			t.Setenv("DB_NAME", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}

func TestCORSConfigAcceptsValidOrigins(t *testing.T) {
	t.Setenv("JWT_SECRET", "x")
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("ALLOWED_ORIGINS", "https://reviews.example.org, http://localhost:5173")
	t.Setenv("WS_ALLOWED_ORIGINS", "*")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://reviews.example.org", "http://localhost:5173"}, cfg.CORS().AllowOrigins)
	assert.NotPanics(t, func() { cors.New(cfg.CORS()) })
}
