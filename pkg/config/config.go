// Package config loads application configuration from environment
// variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/storage"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Storage  storage.Config
	LogLevel string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	URL         string
	MaxConns    int
	MinConns    int
	Timeout     time.Duration
	MaxLifetime time.Duration
	MaxIdleTime time.Duration
}

// CacheConfig selects the dashboard cache backend.
type CacheConfig struct {
	Backend       string // "memory" or "redis"
	TTL           time.Duration
	MaxEntries    int // memory backend only
	RedisURL      string
	RedisPassword string
	RedisDB       int
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("PLANTAS_HOST", "0.0.0.0"),
			Port:            getEnv("PLANTAS_PORT", "8080"),
			ReadTimeout:     getEnvDuration("PLANTAS_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("PLANTAS_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("PLANTAS_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("PLANTAS_SHUTDOWN_TIMEOUT", 30*time.Second),
			HealthPort:      getEnv("PLANTAS_HEALTH_PORT", "9090"),
		},
		Database: DatabaseConfig{
			URL:         getEnv("PLANTAS_POSTGRES_URL", ""),
			MaxConns:    getEnvInt("PLANTAS_POSTGRES_MAX_CONNS", 25),
			MinConns:    getEnvInt("PLANTAS_POSTGRES_MIN_CONNS", 5),
			Timeout:     getEnvDuration("PLANTAS_POSTGRES_TIMEOUT", 10*time.Second),
			MaxLifetime: getEnvDuration("PLANTAS_POSTGRES_MAX_LIFETIME", 30*time.Minute),
			MaxIdleTime: getEnvDuration("PLANTAS_POSTGRES_MAX_IDLE_TIME", 5*time.Minute),
		},
		Cache: CacheConfig{
			Backend:       getEnv("PLANTAS_CACHE_BACKEND", "memory"),
			TTL:           getEnvDuration("PLANTAS_CACHE_TTL", 5*time.Minute),
			MaxEntries:    getEnvInt("PLANTAS_CACHE_MAX_ENTRIES", 4096),
			RedisURL:      getEnv("PLANTAS_REDIS_URL", "localhost:6379"),
			RedisPassword: getEnv("PLANTAS_REDIS_PASSWORD", ""),
			RedisDB:       getEnvInt("PLANTAS_REDIS_DB", 0),
		},
		Storage:  loadStorageConfig(),
		LogLevel: getEnv("PLANTAS_LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func loadStorageConfig() storage.Config {
	cfg := storage.DefaultConfig()

	if storageType := getEnv("PLANTAS_STORAGE_TYPE", ""); storageType != "" {
		cfg.Type = storageType
	}
	if fsRoot := getEnv("PLANTAS_FILESYSTEM_ROOT", ""); fsRoot != "" {
		cfg.FilesystemRoot = fsRoot
	}
	if s3Endpoint := getEnv("PLANTAS_S3_ENDPOINT", ""); s3Endpoint != "" {
		cfg.S3Endpoint = s3Endpoint
	}
	if s3Region := getEnv("PLANTAS_S3_REGION", ""); s3Region != "" {
		cfg.S3Region = s3Region
	}
	if s3Bucket := getEnv("PLANTAS_S3_BUCKET", ""); s3Bucket != "" {
		cfg.S3Bucket = s3Bucket
	}
	if s3AccessKey := getEnv("PLANTAS_S3_ACCESS_KEY", ""); s3AccessKey != "" {
		cfg.S3AccessKey = s3AccessKey
	}
	if s3SecretKey := getEnv("PLANTAS_S3_SECRET_KEY", ""); s3SecretKey != "" {
		cfg.S3SecretKey = s3SecretKey
	}
	if s3UsePathStyle := getEnv("PLANTAS_S3_USE_PATH_STYLE", ""); s3UsePathStyle != "" {
		cfg.S3UsePathStyle = strings.ToLower(s3UsePathStyle) == "true"
	}

	return cfg
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.Database.URL == "" {
		return fmt.Errorf("postgres URL is required")
	}

	switch c.Cache.Backend {
	case "memory":
		if c.Cache.MaxEntries <= 0 {
			return fmt.Errorf("cache max entries must be positive")
		}
	case "redis":
		if c.Cache.RedisURL == "" {
			return fmt.Errorf("redis URL is required for redis cache")
		}
	default:
		return fmt.Errorf("invalid cache backend: %s (must be memory or redis)", c.Cache.Backend)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache TTL must be positive")
	}

	switch c.Storage.Type {
	case "filesystem":
		if c.Storage.FilesystemRoot == "" {
			return fmt.Errorf("filesystem root is required for filesystem storage")
		}
	case "s3":
		if c.Storage.S3Bucket == "" {
			return fmt.Errorf("S3 bucket is required for s3 storage")
		}
	default:
		return fmt.Errorf("invalid storage type: %s (must be filesystem or s3)", c.Storage.Type)
	}

	return nil
}

// getEnv returns an environment variable value or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
