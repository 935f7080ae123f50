package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/recircle/account-service/pkg/config"
)

// Config holds all configuration for the account service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"ACCOUNT_HTTP_PORT" envDefault:"8006"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"recircle"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"recircle_secret"`
	PostgresDB   string `env:"ACCOUNT_DB_NAME" envDefault:"account_db"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// JWT
	JWTSecret     string `env:"JWT_SECRET" envDefault:"change-this-to-a-secure-secret"`
	TokenLifetime string `env:"TOKEN_LIFETIME" envDefault:"72h"`

	// Password hashing
	BcryptCost        int `env:"BCRYPT_COST" envDefault:"10"`
	HashMaxConcurrent int `env:"HASH_MAX_CONCURRENT" envDefault:"8"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load account config: %w", err)
	}
	if cfg.HTTPPort < 1 || cfg.HTTPPort > 65535 {
		return nil, fmt.Errorf("invalid HTTP port: %d", cfg.HTTPPort)
	}
	if _, err := time.ParseDuration(cfg.TokenLifetime); err != nil {
		return nil, fmt.Errorf("invalid TOKEN_LIFETIME %q: %w", cfg.TokenLifetime, err)
	}

	// In non-development environments, require an explicitly set, strong JWT secret.
	if cfg.Environment != "development" {
		if cfg.JWTSecret == "change-this-to-a-secure-secret" {
			return nil, fmt.Errorf("JWT_SECRET must be explicitly set via environment variable in %q mode", cfg.Environment)
		}
		if len(cfg.JWTSecret) < 32 {
			return nil, fmt.Errorf("JWT_SECRET must be at least 32 characters long, got %d", len(cfg.JWTSecret))
		}
	}

	return cfg, nil
}

// TokenLifetimeDuration returns the parsed session token lifetime.
// Load validates the value, so this never fails on a loaded config.
func (c *Config) TokenLifetimeDuration() time.Duration {
	d, err := time.ParseDuration(c.TokenLifetime)
	if err != nil {
		return 72 * time.Hour
	}
	return d
}

// PostgresDSN returns the PostgreSQL connection string.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.PostgresUser, c.PostgresPass, c.PostgresHost, c.PostgresPort, c.PostgresDB, c.PostgresSSL,
	)
}
