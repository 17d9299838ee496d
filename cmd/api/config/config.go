package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"

	"paperflow_go_backend/internal/database"
	"paperflow_go_backend/internal/manuscript"
	"paperflow_go_backend/internal/services"
	"paperflow_go_backend/internal/workflow"
)

const (
	StoreBackendPostgres = "postgres"
	StoreBackendMemory   = "memory"

	StorageBackendLocal = "local"
	StorageBackendGCS   = "gcs"
)

type Config struct {
	Port           string
	AllowedOrigins []string

	StoreBackend string
	Database     database.Config

	JWTSecret              []byte
	ReviewMinCommentLength int

	StorageBackend string
	UploadDir      string
	GCSBucketName  string
	MaxUploadBytes int64

	SMTP      services.SMTPConfig
	MailQueue int

	SeedFile  string
	LogLevel  string
	LogFormat string

	WSAllowedOrigins []string
	WSPingInterval   time.Duration
	ShutdownTimeout  time.Duration
}

// FromEnv reads the configuration from the process environment. Call
// godotenv.Load first to pick up a .env file.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:           getEnv("PORT", "3000"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:5173")),
		StoreBackend:   strings.ToLower(getEnv("STORE_BACKEND", StoreBackendPostgres)),
		Database: database.Config{
			Host:     getEnv("DB_HOST", "localhost"),
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     os.Getenv("DB_NAME"),
			Port:     getEnv("DB_PORT", "5432"),
			SSLMode:  os.Getenv("DB_SSLMODE"),
		},
		JWTSecret:      []byte(os.Getenv("JWT_SECRET")),
		StorageBackend: strings.ToLower(getEnv("STORAGE_BACKEND", StorageBackendLocal)),
		UploadDir:      getEnv("UPLOAD_DIR", "uploads"),
		GCSBucketName:  os.Getenv("GCS_BUCKET_NAME"),
		SMTP: services.SMTPConfig{
			Host: os.Getenv("SMTP_HOST"),
			User: os.Getenv("SMTP_USER"),
			Pass: os.Getenv("SMTP_PASS"),
			From: getEnv("SMTP_FROM", "no-reply@paperflow.local"),
		},
		SeedFile:  os.Getenv("SEED_FILE"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}
	cfg.WSAllowedOrigins = splitList(getEnv("WS_ALLOWED_ORIGINS", strings.Join(cfg.AllowedOrigins, ",")))

	var err error
	if cfg.ReviewMinCommentLength, err = getInt("REVIEW_MIN_COMMENT_LENGTH", workflow.DefaultMinCommentLength); err != nil {
		return nil, err
	}
	if cfg.SMTP.Port, err = getInt("SMTP_PORT", 587); err != nil {
		return nil, err
	}
	if cfg.MailQueue, err = getInt("MAIL_QUEUE_SIZE", 64); err != nil {
		return nil, err
	}
	maxUpload, err := getInt("MAX_UPLOAD_BYTES", int(manuscript.DefaultMaxBytes))
	if err != nil {
		return nil, err
	}
	cfg.MaxUploadBytes = int64(maxUpload)
	if cfg.WSPingInterval, err = getDuration("WS_PING_INTERVAL", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = getDuration("SHUTDOWN_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if len(c.JWTSecret) == 0 {
		return errors.New("JWT_SECRET environment variable is not set")
	}
	switch c.StoreBackend {
	case StoreBackendPostgres:
		if c.Database.User == "" || c.Database.Name == "" {
			return errors.New("DB_USER and DB_NAME must be set for the postgres store")
		}
	case StoreBackendMemory:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	switch c.StorageBackend {
	case StorageBackendLocal:
	case StorageBackendGCS:
		if c.GCSBucketName == "" {
			return errors.New("GCS_BUCKET_NAME environment variable is not set")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}
	if c.MaxUploadBytes < 1 {
		return errors.New("MAX_UPLOAD_BYTES must be positive")
	}
	if err := c.CORS().Validate(); err != nil {
		return fmt.Errorf("ALLOWED_ORIGINS: %w", err)
	}
	if err := (cors.Config{AllowOrigins: c.WSAllowedOrigins}).Validate(); err != nil {
		return fmt.Errorf("WS_ALLOWED_ORIGINS: %w", err)
	}
	return nil
}

// CORS is the middleware configuration for the HTTP API.
func (c *Config) CORS() cors.Config {
	return cors.Config{
		AllowOrigins:     c.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
}

// MailEnabled reports whether email notifications are configured.
func (c *Config) MailEnabled() bool {
	return c.SMTP.Host != ""
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
