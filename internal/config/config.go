package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config is loaded from the environment, optionally seeded from a .env file.
type Config struct {
	Port            int           `envconfig:"PORT" default:"8080"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"15s"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
	AllowedOrigins  []string      `envconfig:"ALLOWED_ORIGINS" default:"*"`

	DatabaseURL      string `envconfig:"DATABASE_URL" required:"true"`
	DatabaseMaxConns int32  `envconfig:"DATABASE_MAX_CONNS" default:"20"`
	RunMigrations    bool   `envconfig:"RUN_MIGRATIONS" default:"true"`

	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	MinioEndpoint  string `envconfig:"MINIO_ENDPOINT"`
	MinioAccessKey string `envconfig:"MINIO_ACCESS_KEY"`
	MinioSecretKey string `envconfig:"MINIO_SECRET_KEY"`
	MinioUseSSL    bool   `envconfig:"MINIO_USE_SSL" default:"false"`
	MinioBucket    string `envconfig:"MINIO_USAGE_BUCKET" default:"usage-archive"`

	JWTSecret    string `envconfig:"JWT_SECRET"`
	AdminJWKSURL string `envconfig:"ADMIN_JWKS_URL"`

	StripeWebhookSecret string `envconfig:"STRIPE_WEBHOOK_SECRET"`

	LicenseKeyPepper string        `envconfig:"LICENSE_KEY_PEPPER"`
	RecheckInterval  time.Duration `envconfig:"LICENSE_RECHECK_INTERVAL" default:"24h"`
	LookupTimeout    time.Duration `envconfig:"VALIDATION_TIMEOUT" default:"3s"`

	UsageQueueSize int           `envconfig:"USAGE_QUEUE_SIZE" default:"1024"`
	UsageWorkers   int           `envconfig:"USAGE_WORKERS" default:"2"`
	UsageRetention time.Duration `envconfig:"USAGE_RETENTION" default:"720h"`

	RateLimitRequests int           `envconfig:"RATE_LIMIT_REQUESTS" default:"60"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`
}

// Load reads a .env file when present and then the process environment.
// Real environment variables win over the file.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.RecheckInterval <= 0 {
		return fmt.Errorf("LICENSE_RECHECK_INTERVAL must be positive")
	}
	if c.LookupTimeout <= 0 {
		return fmt.Errorf("VALIDATION_TIMEOUT must be positive")
	}
	if c.UsageQueueSize <= 0 || c.UsageWorkers <= 0 {
		return fmt.Errorf("USAGE_QUEUE_SIZE and USAGE_WORKERS must be positive")
	}
	if c.UsageRetention < 24*time.Hour {
		return fmt.Errorf("USAGE_RETENTION must be at least 24h")
	}
	return nil
}

// MinioEnabled reports whether usage archiving to object storage is configured.
func (c *Config) MinioEnabled() bool {
	return c.MinioEndpoint != "" && c.MinioAccessKey != "" && c.MinioSecretKey != ""
}

func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
