package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"triphub/internal/models"
)

// Config holds all configuration for the application
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Cache       CacheConfig
	Auth        AuthConfig
	Logging     LoggingConfig
	Progression ProgressionConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            string
	Host            string
	Environment     string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	GracefulTimeout time.Duration
}

// DatabaseConfig holds Postgres configuration
type DatabaseConfig struct {
	URL                string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetime    time.Duration
	ConnMaxIdleTime    time.Duration
	ConnectTimeout     time.Duration
	SlowQueryThreshold time.Duration
	MigrationsPath     string
	MaxConnectRetries  int
}

// CacheConfig holds cache layer configuration
type CacheConfig struct {
	Provider      string // "memory" or "redis"
	RedisURL      string
	RedisDB       int
	RedisPassword string
	PoolSize      int
	DefaultTTL    time.Duration
	StatsTTL      time.Duration
	MaxKeys       int
}

// AuthConfig holds bearer-token verification configuration. Token issuing is
// the identity service's job; the engine only verifies.
type AuthConfig struct {
	JWTSecret string
	JWTIssuer string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string // "json" or "console"
}

// ProgressionConfig holds the engine's tunables: the action points table and
// the notification worker sizing.
type ProgressionConfig struct {
	ActionPoints      map[models.ActionType]int
	NotifyQueueSize   int
	NotifyWorkerCount int
	RecalcRetries     int
}

// PointsFor resolves the points for an action type. A zero entry is a valid
// "no points for this action" business decision, not an error.
func (c *ProgressionConfig) PointsFor(t models.ActionType) int {
	return c.ActionPoints[t]
}

// DefaultActionPoints returns the stock action->points table.
func DefaultActionPoints() map[models.ActionType]int {
	return map[models.ActionType]int{
		models.ActionReviewCreated:    10,
		models.ActionVoteReceived:     1,
		models.ActionProfileCompleted: 5,
		models.ActionCommentPosted:    2,
		models.ActionMediaUpload:      5,
		models.ActionPlaceAdded:       15,
		models.ActionExpenseCreated:   0,
	}
}

// Load reads configuration from the environment, with .env support outside
// production.
func Load() (*Config, error) {
	env := getEnv("GO_ENV", "development")
	if env != "production" {
		envFile := fmt.Sprintf(".env.%s", env)
		if _, err := os.Stat(envFile); err == nil {
			_ = godotenv.Load(envFile)
		} else {
			_ = godotenv.Load()
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "9000"),
			Host:            getEnv("HOST", "0.0.0.0"),
			Environment:     env,
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getDurationEnv("SERVER_IDLE_TIMEOUT", 60*time.Second),
			GracefulTimeout: getDurationEnv("SERVER_GRACEFUL_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			MaxOpenConns:       getIntEnv("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:       getIntEnv("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime:    getDurationEnv("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime:    getDurationEnv("DB_CONN_MAX_IDLE_TIME", 10*time.Minute),
			ConnectTimeout:     getDurationEnv("DB_CONNECT_TIMEOUT", 10*time.Second),
			SlowQueryThreshold: getDurationEnv("DB_SLOW_QUERY_THRESHOLD", 100*time.Millisecond),
			MigrationsPath:     getEnv("DB_MIGRATIONS_PATH", "migrations"),
			MaxConnectRetries:  getIntEnv("DB_MAX_CONNECT_RETRIES", 5),
		},
		Cache: CacheConfig{
			Provider:      getEnv("CACHE_PROVIDER", "memory"),
			RedisURL:      getEnv("REDIS_URL", ""),
			RedisDB:       getIntEnv("REDIS_DB", 0),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			PoolSize:      getIntEnv("REDIS_POOL_SIZE", 10),
			DefaultTTL:    getDurationEnv("CACHE_DEFAULT_TTL", 15*time.Minute),
			StatsTTL:      getDurationEnv("CACHE_STATS_TTL", 5*time.Minute),
			MaxKeys:       getIntEnv("CACHE_MAX_KEYS", 10000),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			JWTIssuer: getEnv("JWT_ISSUER", "triphub"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", defaultLogLevel(env)),
			Format: getEnv("LOG_FORMAT", defaultLogFormat(env)),
		},
		Progression: ProgressionConfig{
			ActionPoints:      DefaultActionPoints(),
			NotifyQueueSize:   getIntEnv("NOTIFY_QUEUE_SIZE", 1000),
			NotifyWorkerCount: getIntEnv("NOTIFY_WORKER_COUNT", 4),
			RecalcRetries:     getIntEnv("RECALC_RETRIES", 2),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks required settings.
func (c *Config) Validate() error {
	var problems []string

	if c.Database.URL == "" {
		problems = append(problems, "DATABASE_URL is required")
	}
	if c.Server.Environment == "production" && c.Auth.JWTSecret == "" {
		problems = append(problems, "JWT_SECRET is required in production")
	}
	if c.Cache.Provider == "redis" && c.Cache.RedisURL == "" {
		problems = append(problems, "REDIS_URL is required when CACHE_PROVIDER=redis")
	}
	if c.Progression.NotifyWorkerCount <= 0 {
		problems = append(problems, "NOTIFY_WORKER_COUNT must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func defaultLogLevel(env string) string {
	if env == "production" {
		return "info"
	}
	return "debug"
}

func defaultLogFormat(env string) string {
	if env == "production" {
		return "json"
	}
	return "console"
}

// ===============================
// ENV HELPERS
// ===============================

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}
