package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// GetDSN builds the lib/pq connection string.
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Config is the full coordinator configuration, loaded from environment
// variables with sensible defaults for local development.
type Config struct {
	HTTP struct {
		Addr string
	}

	Database DatabaseConfig
	Redis    RedisConfig

	Coordinator struct {
		// StoreTimeout bounds every persistent-store operation on the
		// ingestion path. After it elapses the operation fails fast
		// instead of hanging the reading.
		StoreTimeout time.Duration

		// DedupWindow is the trailing interval within which a repeated
		// alert of the same kind is suppressed.
		DedupWindow time.Duration

		// LivenessThreshold: a device whose last_seen is older than this
		// is reported as disconnected.
		LivenessThreshold time.Duration

		// FatigueWindow is the trailing interval the aggregate view
		// considers when picking the latest fatigue level per kind.
		FatigueWindow time.Duration
	}

	Cache struct {
		// KeyPrefix namespaces the latest-reading cache entries.
		KeyPrefix string
		// TTL for cached latest readings and fatigue levels.
		TTL time.Duration
		// AlertStream is the Redis stream that receives created alerts.
		AlertStream string
	}

	Notifier struct {
		// WebhookURL receives high-priority alerts. Empty disables the
		// notifier.
		WebhookURL string
		Timeout    time.Duration
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "deskwell")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 10)
	cfg.Database.MaxIdle = getEnvInt("DB_MAX_IDLE", 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	cfg.Coordinator.StoreTimeout = time.Duration(getEnvInt("STORE_TIMEOUT_SECONDS", 3)) * time.Second
	cfg.Coordinator.DedupWindow = time.Duration(getEnvInt("ALERT_DEDUP_WINDOW_SECONDS", 120)) * time.Second
	cfg.Coordinator.LivenessThreshold = time.Duration(getEnvInt("DEVICE_LIVENESS_SECONDS", 60)) * time.Second
	cfg.Coordinator.FatigueWindow = time.Duration(getEnvInt("FATIGUE_WINDOW_SECONDS", 300)) * time.Second

	cfg.Cache.KeyPrefix = getEnv("CACHE_KEY_PREFIX", "deskwell:session:")
	cfg.Cache.TTL = time.Duration(getEnvInt("CACHE_TTL_SECONDS", 300)) * time.Second
	cfg.Cache.AlertStream = getEnv("ALERT_STREAM", "deskwell:alerts:events")

	cfg.Notifier.WebhookURL = getEnv("ALERT_WEBHOOK_URL", "")
	cfg.Notifier.Timeout = time.Duration(getEnvInt("ALERT_WEBHOOK_TIMEOUT_SECONDS", 5)) * time.Second

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if v, err := strconv.Atoi(value); err == nil {
			return v
		}
	}
	return defaultValue
}
