package config

import (
	"os"
	"strconv"
	"time"
)

// RecipeCacheTTL bounds how stale a cached remote read may be served.
var RecipeCacheTTL = 10 * time.Minute

// Config captures process-level configuration so main stays lean. Remote
// backends are optional: an empty PostgresURL runs the process in local-only
// mode, an empty RedisURL keeps the read cache in memory.
type Config struct {
	Addr          string
	PostgresURL   string
	RedisURL      string
	KafkaBrokers  string
	KafkaTopic    string
	JWTSigningKey string
	BackupKey     string
	LocalDataDir  string

	RetryMaxAttempts  int
	RetryInitialDelay time.Duration
	CacheTTL          time.Duration

	RedisConfig RedisConfig
}

// RedisConfig carries go-redis tuning knobs.
type RedisConfig struct {
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Config from environment variables with development
// defaults. Secrets default to obvious placeholders that must be overridden
// in production.
func FromEnv() Config {
	cfg := Config{
		Addr:          envOr("LARDER_ADDR", ":8080"),
		PostgresURL:   os.Getenv("POSTGRES_URL"),
		RedisURL:      os.Getenv("REDIS_URL"),
		KafkaBrokers:  os.Getenv("KAFKA_BROKERS"),
		KafkaTopic:    envOr("KAFKA_AUDIT_TOPIC", "larder.audit"),
		JWTSigningKey: envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		BackupKey:     envOr("BACKUP_KEY", "dev-backup-key-32-bytes-change-it"),
		LocalDataDir:  envOr("LOCAL_DATA_DIR", "./data"),

		RetryMaxAttempts:  envOrInt("RETRY_MAX_ATTEMPTS", 3),
		RetryInitialDelay: envOrDuration("RETRY_INITIAL_DELAY", time.Second),
		CacheTTL:          envOrDuration("CACHE_TTL", RecipeCacheTTL),

		RedisConfig: RedisConfig{
			PoolSize:     envOrInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envOrInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envOrDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envOrDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envOrDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envOrDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
