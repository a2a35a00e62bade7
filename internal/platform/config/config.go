package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures process-level configuration. Values come from environment
// variables so main stays lean and deployments stay twelve-factor.
type Config struct {
	Addr          string
	DatabaseURL   string
	RedisURL      string
	KafkaBrokers  []string
	KafkaTopic    string
	JWTSigningKey string

	// DomainCacheTTL bounds how stale the domain→tenant cache may get.
	DomainCacheTTL time.Duration

	// RetentionInterval is how often the retention sweep runs after the
	// initial run at startup.
	RetentionInterval time.Duration

	// DefaultRetentionDays applies to analytics rows outside any tenant.
	DefaultRetentionDays int

	// LinkCacheTTL bounds the Redis hot cache for short code lookups.
	LinkCacheTTL time.Duration
}

// RedisConfig carries tuning for the shared Redis client.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	addr := os.Getenv("PUBLINK_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Development default, must be overridden in production.
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	var brokers []string
	if raw := os.Getenv("KAFKA_BROKERS"); raw != "" {
		for _, b := range strings.Split(raw, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
	}
	topic := os.Getenv("KAFKA_ANALYTICS_TOPIC")
	if topic == "" {
		topic = "publink.analytics.events"
	}

	return Config{
		Addr:                 addr,
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		RedisURL:             os.Getenv("REDIS_URL"),
		KafkaBrokers:         brokers,
		KafkaTopic:           topic,
		JWTSigningKey:        jwtSigningKey,
		DomainCacheTTL:       durationEnv("DOMAIN_CACHE_TTL", 60*time.Second),
		RetentionInterval:    durationEnv("RETENTION_INTERVAL", 24*time.Hour),
		DefaultRetentionDays: intEnv("DEFAULT_RETENTION_DAYS", 90),
		LinkCacheTTL:         durationEnv("LINK_CACHE_TTL", 5*time.Minute),
	}
}

// Redis derives the Redis client configuration with pool defaults.
func (c Config) Redis() RedisConfig {
	return RedisConfig{
		URL:          c.RedisURL,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	if raw := os.Getenv(key); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

func intEnv(key string, fallback int) int {
	if raw := os.Getenv(key); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			return n
		}
	}
	return fallback
}
