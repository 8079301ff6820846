// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment  string
	Server       ServerConfig
	Database     DatabaseConfig
	JWT          JWTConfig
	Redis        RedisConfig
	Matching     MatchingConfig
	Catalog      CatalogConfig
	Notification NotificationConfig
	Outbox       OutboxConfig
	I18n         I18nConfig
	CORS         CORSConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	ReadTimeout  int
	WriteTimeout int
	IdleTimeout  int
	RateLimit    float64 // requests per second per IP
	RateBurst    int
}

type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Database     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  int
	LogLevel     string
	AutoMigrate  bool
}

type JWTConfig struct {
	SecretKey string
	Issuer    string
}

// RedisConfig is optional; an empty Host disables the recompute lock.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	LockTTL  time.Duration
}

type MatchingConfig struct {
	FloorPrice      float64
	EscrowWindow    time.Duration
	DefaultRadiusKm float64
}

type CatalogConfig struct {
	CacheSize   int
	SearchLimit int
	// SeedFile is a JSON array of catalog rows loaded at startup when set.
	SeedFile string
}

type NotificationConfig struct {
	Workers       int
	QueueSize     int
	WebhookURL    string
	WebhookSecret string
	Timeout       time.Duration
}

type OutboxConfig struct {
	PollInterval time.Duration
	BatchSize    int
	Workers      int
	MaxAttempts  int
	Lease        time.Duration
}

type I18nConfig struct {
	DefaultLocale string
}

type CORSConfig struct {
	AllowedOrigins []string
}

func Load() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	config := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Host:         getEnv("SERVER_HOST", "localhost"),
			ReadTimeout:  getEnvAsInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout: getEnvAsInt("SERVER_WRITE_TIMEOUT", 15),
			IdleTimeout:  getEnvAsInt("SERVER_IDLE_TIMEOUT", 60),
			RateLimit:    getEnvAsFloat("RATE_LIMIT_RPS", 10),
			RateBurst:    getEnvAsInt("RATE_LIMIT_BURST", 20),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", ""),
			Database:     getEnv("DB_NAME", "cardswap"),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  getEnvAsInt("DB_MAX_LIFETIME", 300),
			LogLevel:     getEnv("DB_LOG_LEVEL", "warn"),
			AutoMigrate:  getEnvAsBool("DB_AUTO_MIGRATE", true),
		},
		JWT: JWTConfig{
			SecretKey: getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
			Issuer:    getEnv("JWT_ISSUER", ""),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", ""),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			LockTTL:  getEnvAsDuration("REDIS_LOCK_TTL", 30*time.Second),
		},
		Matching: MatchingConfig{
			FloorPrice:      getEnvAsFloat("MATCH_FLOOR_PRICE", 0.10),
			EscrowWindow:    getEnvAsDuration("MATCH_ESCROW_WINDOW", 7*24*time.Hour),
			DefaultRadiusKm: getEnvAsFloat("MATCH_DEFAULT_RADIUS_KM", 25),
		},
		Catalog: CatalogConfig{
			CacheSize:   getEnvAsInt("CATALOG_CACHE_SIZE", 10000),
			SearchLimit: getEnvAsInt("CATALOG_SEARCH_LIMIT", 20),
			SeedFile:    getEnv("CATALOG_SEED_FILE", ""),
		},
		Notification: NotificationConfig{
			Workers:       getEnvAsInt("NOTIFY_WORKERS", 4),
			QueueSize:     getEnvAsInt("NOTIFY_QUEUE_SIZE", 256),
			WebhookURL:    getEnv("NOTIFY_WEBHOOK_URL", ""),
			WebhookSecret: getEnv("NOTIFY_WEBHOOK_SECRET", ""),
			Timeout:       getEnvAsDuration("NOTIFY_TIMEOUT", 30*time.Second),
		},
		Outbox: OutboxConfig{
			PollInterval: getEnvAsDuration("OUTBOX_POLL_INTERVAL", 2*time.Second),
			BatchSize:    getEnvAsInt("OUTBOX_BATCH_SIZE", 50),
			Workers:      getEnvAsInt("OUTBOX_WORKERS", 4),
			MaxAttempts:  getEnvAsInt("OUTBOX_MAX_ATTEMPTS", 5),
			Lease:        getEnvAsDuration("OUTBOX_LEASE", time.Minute),
		},
		I18n: I18nConfig{
			DefaultLocale: getEnv("DEFAULT_LOCALE", "en"),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		},
	}

	return config, config.Validate()
}

func (c *Config) Validate() error {
	if c.JWT.SecretKey == "your-secret-key-change-in-production" && c.Environment == "production" {
		return fmt.Errorf("JWT secret key must be changed in production")
	}

	if c.Database.Password == "" && c.Environment == "production" {
		return fmt.Errorf("database password is required in production")
	}

	if c.Matching.FloorPrice < 0 {
		return fmt.Errorf("MATCH_FLOOR_PRICE must not be negative")
	}

	if c.Matching.EscrowWindow <= 0 {
		return fmt.Errorf("MATCH_ESCROW_WINDOW must be positive")
	}

	if c.Outbox.Workers <= 0 || c.Notification.Workers <= 0 {
		return fmt.Errorf("worker counts must be positive")
	}

	if c.Notification.WebhookURL != "" && c.Notification.WebhookSecret == "" {
		return fmt.Errorf("NOTIFY_WEBHOOK_SECRET is required when NOTIFY_WEBHOOK_URL is set")
	}

	return nil
}

func (r *RedisConfig) Enabled() bool {
	return r.Host != ""
}

func (r *RedisConfig) Addr() string {
	return r.Host + ":" + r.Port
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(strings.ToLower(value)); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
