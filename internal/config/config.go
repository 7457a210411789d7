package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage backend identifiers accepted by STORAGE_BACKEND.
const (
	StorageMemory = "memory"
	StorageS3     = "s3"
	StorageGCS    = "gcs"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	CORS     CORSConfig
	Storage  StorageConfig
	Upload   UploadConfig
	Viewer   ViewerConfig
	Session  SessionConfig
	Audit    AuditConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string
	Env  string
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
	PoolMin  int
	PoolMax  int
}

// CORSConfig holds CORS configuration.
type CORSConfig struct {
	Origins []string
}

// StorageConfig selects and configures the object store that receives
// plan images, visit photos, point clouds and BIM models.
type StorageConfig struct {
	Backend       string
	Bucket        string
	PublicBaseURL string

	S3Endpoint        string
	S3Region          string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3UsePathStyle    bool

	GCSCredentialsFile string
}

// UploadConfig bounds multipart request bodies.
type UploadConfig struct {
	MaxBytes int64
}

// ViewerConfig tunes the panorama orientation sync task.
type ViewerConfig struct {
	SyncInterval time.Duration
}

// SessionConfig controls workspace session lifetime.
type SessionConfig struct {
	IdleTimeout   time.Duration
	SweepInterval time.Duration
}

// AuditConfig bounds the best-effort audit writes.
type AuditConfig struct {
	Timeout time.Duration
}

// Load reads configuration from environment variables.
// Defaults target a local development stack with in-memory object storage.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_NAME", "sitetrack")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_POOL_MIN", 2)
	v.SetDefault("DB_POOL_MAX", 10)
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173,http://localhost:3000")
	v.SetDefault("STORAGE_BACKEND", StorageMemory)
	v.SetDefault("STORAGE_BUCKET", "plantas")
	v.SetDefault("S3_USE_PATH_STYLE", true)
	v.SetDefault("UPLOAD_MAX_BYTES", 200<<20)
	v.SetDefault("VIEWER_SYNC_INTERVAL", "16ms")
	v.SetDefault("SESSION_IDLE_TIMEOUT", "30m")
	v.SetDefault("SESSION_SWEEP_INTERVAL", "1m")
	v.SetDefault("AUDIT_TIMEOUT", "5s")

	v.AutomaticEnv()

	cfg := &Config{
		Server: ServerConfig{
			Port: v.GetString("PORT"),
			Env:  v.GetString("ENV"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			Name:     v.GetString("DB_NAME"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			SSLMode:  v.GetString("DB_SSLMODE"),
			PoolMin:  v.GetInt("DB_POOL_MIN"),
			PoolMax:  v.GetInt("DB_POOL_MAX"),
		},
		CORS: CORSConfig{
			Origins: parseOrigins(v.GetString("CORS_ORIGINS")),
		},
		Storage: StorageConfig{
			Backend:            strings.ToLower(strings.TrimSpace(v.GetString("STORAGE_BACKEND"))),
			Bucket:             v.GetString("STORAGE_BUCKET"),
			PublicBaseURL:      strings.TrimRight(v.GetString("STORAGE_PUBLIC_BASE_URL"), "/"),
			S3Endpoint:         v.GetString("S3_ENDPOINT"),
			S3Region:           v.GetString("S3_REGION"),
			S3AccessKeyID:      v.GetString("S3_ACCESS_KEY_ID"),
			S3SecretAccessKey:  v.GetString("S3_SECRET_ACCESS_KEY"),
			S3UsePathStyle:     v.GetBool("S3_USE_PATH_STYLE"),
			GCSCredentialsFile: v.GetString("GCS_CREDENTIALS_FILE"),
		},
		Upload: UploadConfig{
			MaxBytes: v.GetInt64("UPLOAD_MAX_BYTES"),
		},
		Viewer: ViewerConfig{
			SyncInterval: v.GetDuration("VIEWER_SYNC_INTERVAL"),
		},
		Session: SessionConfig{
			IdleTimeout:   v.GetDuration("SESSION_IDLE_TIMEOUT"),
			SweepInterval: v.GetDuration("SESSION_SWEEP_INTERVAL"),
		},
		Audit: AuditConfig{
			Timeout: v.GetDuration("AUDIT_TIMEOUT"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	if c.Database.Port == "" {
		return fmt.Errorf("DB_PORT is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("DB_USER is required")
	}
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.Database.PoolMin < 0 {
		return fmt.Errorf("DB_POOL_MIN must be non-negative")
	}
	if c.Database.PoolMax < 1 {
		return fmt.Errorf("DB_POOL_MAX must be at least 1")
	}
	if c.Database.PoolMin > c.Database.PoolMax {
		return fmt.Errorf("DB_POOL_MIN must be less than or equal to DB_POOL_MAX")
	}

	if len(c.CORS.Origins) == 0 {
		return fmt.Errorf("CORS_ORIGINS is required")
	}

	if err := c.Storage.validate(); err != nil {
		return err
	}

	if c.Upload.MaxBytes < 1 {
		return fmt.Errorf("UPLOAD_MAX_BYTES must be at least 1")
	}
	if c.Viewer.SyncInterval <= 0 {
		return fmt.Errorf("VIEWER_SYNC_INTERVAL must be positive")
	}
	if c.Session.IdleTimeout <= 0 {
		return fmt.Errorf("SESSION_IDLE_TIMEOUT must be positive")
	}
	if c.Session.SweepInterval <= 0 {
		return fmt.Errorf("SESSION_SWEEP_INTERVAL must be positive")
	}
	if c.Audit.Timeout <= 0 {
		return fmt.Errorf("AUDIT_TIMEOUT must be positive")
	}

	return nil
}

func (s StorageConfig) validate() error {
	if s.Bucket == "" {
		return fmt.Errorf("STORAGE_BUCKET is required")
	}

	switch s.Backend {
	case StorageMemory:
		return nil
	case StorageS3:
		if s.S3Region == "" {
			return fmt.Errorf("S3_REGION is required for the s3 storage backend")
		}
		if s.S3AccessKeyID == "" || s.S3SecretAccessKey == "" {
			return fmt.Errorf("S3_ACCESS_KEY_ID and S3_SECRET_ACCESS_KEY are required for the s3 storage backend")
		}
	case StorageGCS:
	default:
		return fmt.Errorf("STORAGE_BACKEND must be one of %s, %s, %s; got %q",
			StorageMemory, StorageS3, StorageGCS, s.Backend)
	}

	if s.PublicBaseURL == "" {
		return fmt.Errorf("STORAGE_PUBLIC_BASE_URL is required for the %s storage backend", s.Backend)
	}
	return nil
}

// parseOrigins splits a comma-separated string of origins into a slice.
func parseOrigins(origins string) []string {
	if origins == "" {
		return []string{}
	}

	parts := strings.Split(origins, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
