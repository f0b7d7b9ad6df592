// Package config loads application configuration from environment variables.
// All variables use the PATHSHALA_ prefix.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Cache       CacheConfig
	Auth        AuthConfig
	Quiz        QuizConfig
	Certificate CertificateConfig
	Log         LogConfig
	CatalogPath string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int
	Host string
}

// DatabaseConfig holds PostgreSQL connection settings.
// An empty URL selects the in-memory stores.
type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
	Migrate  bool
}

// CacheConfig holds Dragonfly/Redis connection settings.
// An empty URL keeps sessions in process memory.
type CacheConfig struct {
	URL string
}

// AuthConfig holds session and password settings.
type AuthConfig struct {
	SessionTTL time.Duration
	BcryptCost int
	AdminEmail string
	// MaxLoginFailures failed logins within LoginLockout lock the email out; 0 disables.
	MaxLoginFailures int
	LoginLockout     time.Duration
}

// QuizConfig holds defaults applied to quizzes that do not set their own.
type QuizConfig struct {
	PassPercent int
	MaxAttempts int
}

// CertificateConfig holds certificate issuance settings.
type CertificateConfig struct {
	Issuer string
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables with PATHSHALA_ prefix.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("PATHSHALA_SERVER_PORT", 8080),
			Host: envStr("PATHSHALA_SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			URL:      envStr("PATHSHALA_DATABASE_URL", ""),
			MaxConns: envInt("PATHSHALA_DATABASE_MAX_CONNS", 25),
			MinConns: envInt("PATHSHALA_DATABASE_MIN_CONNS", 2),
			Migrate:  envBool("PATHSHALA_DATABASE_MIGRATE", true),
		},
		Cache: CacheConfig{
			URL: envStr("PATHSHALA_CACHE_URL", ""),
		},
		Auth: AuthConfig{
			SessionTTL: envDuration("PATHSHALA_AUTH_SESSION_TTL", 7*24*time.Hour),
			BcryptCost: envInt("PATHSHALA_AUTH_BCRYPT_COST", 10),
			AdminEmail: strings.ToLower(envStr("PATHSHALA_AUTH_ADMIN_EMAIL", "")),

			MaxLoginFailures: envInt("PATHSHALA_AUTH_MAX_LOGIN_FAILURES", 5),
			LoginLockout:     envDuration("PATHSHALA_AUTH_LOGIN_LOCKOUT", 15*time.Minute),
		},
		Quiz: QuizConfig{
			PassPercent: envInt("PATHSHALA_QUIZ_PASS_PERCENT", 60),
			MaxAttempts: envInt("PATHSHALA_QUIZ_MAX_ATTEMPTS", 3),
		},
		Certificate: CertificateConfig{
			Issuer: envStr("PATHSHALA_CERTIFICATE_ISSUER", "পাঠশালা"),
		},
		Log: LogConfig{
			Level:  envStr("PATHSHALA_LOG_LEVEL", "info"),
			Format: envStr("PATHSHALA_LOG_FORMAT", "json"),
		},
		CatalogPath: envStr("PATHSHALA_CATALOG_PATH", "./courses"),
	}

	if raw := os.Getenv("PATHSHALA_SERVER_PORT"); raw != "" {
		if _, err := strconv.Atoi(raw); err != nil {
			return nil, fmt.Errorf("PATHSHALA_SERVER_PORT must be a number, got %q", raw)
		}
	}

	return cfg, nil
}

// Validate checks that configuration values are usable.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("PATHSHALA_SERVER_PORT out of range: %d", c.Server.Port)
	}

	if c.Quiz.PassPercent < 1 || c.Quiz.PassPercent > 100 {
		return fmt.Errorf("PATHSHALA_QUIZ_PASS_PERCENT must be between 1 and 100, got %d", c.Quiz.PassPercent)
	}

	if c.Quiz.MaxAttempts < 1 {
		return fmt.Errorf("PATHSHALA_QUIZ_MAX_ATTEMPTS must be at least 1, got %d", c.Quiz.MaxAttempts)
	}

	if c.Auth.SessionTTL <= 0 {
		return fmt.Errorf("PATHSHALA_AUTH_SESSION_TTL must be positive")
	}

	if c.Auth.MaxLoginFailures < 0 {
		return fmt.Errorf("PATHSHALA_AUTH_MAX_LOGIN_FAILURES must not be negative, got %d", c.Auth.MaxLoginFailures)
	}

	if c.Auth.MaxLoginFailures > 0 && c.Auth.LoginLockout <= 0 {
		return fmt.Errorf("PATHSHALA_AUTH_LOGIN_LOCKOUT must be positive")
	}

	if c.Database.URL != "" && c.Database.MinConns > c.Database.MaxConns {
		return fmt.Errorf("PATHSHALA_DATABASE_MIN_CONNS (%d) exceeds MAX_CONNS (%d)",
			c.Database.MinConns, c.Database.MaxConns)
	}

	if c.CatalogPath == "" {
		return fmt.Errorf("PATHSHALA_CATALOG_PATH is required")
	}

	return nil
}

// UsesDatabase reports whether a PostgreSQL database is configured.
func (c *Config) UsesDatabase() bool {
	return c.Database.URL != ""
}

// UsesCache reports whether a Redis-compatible cache is configured.
func (c *Config) UsesCache() bool {
	return c.Cache.URL != ""
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		return strings.EqualFold(v, "true") || v == "1"
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
