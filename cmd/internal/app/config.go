package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"newsletter/cmd/internal/pgstore"
)

// EnvPrefix namespaces every variable read by LoadConfig.
const EnvPrefix = "NEWSLETTER_"

// Email backends.
const (
	EmailBackendHTTP = "http"
	EmailBackendSES  = "ses"
	EmailBackendLog  = "log"
)

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr  string `env:"HTTP_ADDR" envDefault:"0.0.0.0:8000"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	ReadHeaderTimeout time.Duration `env:"HTTP_READ_HEADER_TIMEOUT" envDefault:"5s"`
	ReadTimeout       time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout      time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout       time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`
	MaxHeaderBytes    int           `env:"HTTP_MAX_HEADER_BYTES" envDefault:"1048576"`
	MaxBodyBytes      int64         `env:"HTTP_MAX_BODY_BYTES" envDefault:"1048576"`

	// Public base of confirmation links. Empty means derived from HTTPAddr.
	BaseURL string `env:"BASE_URL"`

	DatabaseURL      string        `env:"DATABASE_URL"`
	DBMaxConns       int32         `env:"DB_MAX_CONNS" envDefault:"10"`
	DBMinConns       int32         `env:"DB_MIN_CONNS" envDefault:"0"`
	DBAcquireTimeout time.Duration `env:"DB_ACQUIRE_TIMEOUT" envDefault:"2s"`
	DBSchema         string        `env:"DB_SCHEMA" envDefault:"newsletter"`
	MigrateOnStart   bool          `env:"MIGRATE_ON_START" envDefault:"false"`

	// If true:
	// - /readyz returns 503 unless DB is configured and reachable.
	ReadinessRequireDB bool `env:"READINESS_REQUIRE_DB" envDefault:"false"`

	// If true, HMAC_SECRET must be set (>= 32 bytes). Otherwise a missing
	// secret is replaced by a per-process random key.
	RequireHMACSecret bool `env:"REQUIRE_HMAC_SECRET" envDefault:"false"`

	// 0 means runtime.NumCPU.
	PasswordWorkers int `env:"PASSWORD_WORKERS" envDefault:"0"`

	Email EmailConfig
}

// EmailConfig selects and configures the outbound email backend.
type EmailConfig struct {
	Backend   string        `env:"EMAIL_BACKEND" envDefault:"log"`
	Sender    string        `env:"EMAIL_SENDER" envDefault:"newsletter@example.com"`
	BaseURL   string        `env:"EMAIL_BASE_URL"`
	APIKey    string        `env:"EMAIL_API_KEY"`
	SecretKey string        `env:"EMAIL_SECRET_KEY"`
	Timeout   time.Duration `env:"EMAIL_TIMEOUT" envDefault:"10s"`

	SESRegion    string `env:"EMAIL_SES_REGION" envDefault:"us-east-1"`
	SESAccessKey string `env:"EMAIL_SES_ACCESS_KEY"`
	SESSecretKey string `env:"EMAIL_SES_SECRET_KEY"`
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values that parse but cannot be used.
func (c Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.LogFormat)) {
	case "json", "pretty":
	default:
		return fmt.Errorf("config: %sLOG_FORMAT must be json or pretty, got %q", EnvPrefix, c.LogFormat)
	}

	if _, err := pgstore.CheckSchema(c.DBSchema); err != nil {
		return fmt.Errorf("config: %sDB_SCHEMA: %w", EnvPrefix, err)
	}
	if c.DBMinConns > c.DBMaxConns && c.DBMaxConns > 0 {
		return errors.New("config: DB_MIN_CONNS exceeds DB_MAX_CONNS")
	}

	switch c.Email.Backend {
	case EmailBackendLog:
	case EmailBackendHTTP:
		if c.Email.BaseURL == "" {
			return fmt.Errorf("config: %sEMAIL_BASE_URL is required for the http backend", EnvPrefix)
		}
	case EmailBackendSES:
		if c.Email.SESRegion == "" {
			return fmt.Errorf("config: %sEMAIL_SES_REGION is required for the ses backend", EnvPrefix)
		}
	default:
		return fmt.Errorf("config: unknown %sEMAIL_BACKEND %q", EnvPrefix, c.Email.Backend)
	}
	return nil
}
