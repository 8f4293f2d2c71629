package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Env      string `env:"ENV"       envDefault:"local" validate:"required,oneof=local staging production"`
	Port     string `env:"PORT"      envDefault:"8080"  validate:"required"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"  validate:"oneof=debug info warn error"`

	DatabaseURL string `env:"DATABASE_URL,required" validate:"required"`
	MetricsPort string `env:"METRICS_PORT" envDefault:"9090"`

	JWTSecret       string `env:"JWT_SECRET,required" validate:"required,min=32"`
	TokenHashSecret string `env:"TOKEN_HASH_SECRET"   validate:"omitempty,min=32"`

	AccessTokenTTLSec     int `env:"ACCESS_TOKEN_TTL_SEC"      envDefault:"900" validate:"min=60,max=86400"`
	RefreshTokenTTLDays   int `env:"REFRESH_TOKEN_TTL_DAYS"    envDefault:"30"  validate:"min=1,max=365"`
	MagicLinkTTLMin       int `env:"MAGIC_LINK_TTL_MIN"        envDefault:"15"  validate:"min=1,max=1440"`
	MagicLinkRateLimitSec int `env:"MAGIC_LINK_RATE_LIMIT_SEC" envDefault:"60"  validate:"min=1,max=3600"`

	FrontendBaseURL string `env:"FRONTEND_BASE_URL" envDefault:"http://localhost:3000" validate:"required,url"`
	ResendAPIKey    string `env:"RESEND_API_KEY"    validate:"required_if=Env production,required_if=Env staging"`
	ResendFrom      string `env:"RESEND_FROM"       validate:"required_if=Env production,required_if=Env staging"`
	ResendReplyTo   string `env:"RESEND_REPLY_TO"   validate:"omitempty,email"`

	AdminAPIKey        string `env:"ADMIN_API_KEY,required" validate:"required,min=16"`
	EnableDevEndpoints bool   `env:"ENABLE_DEV_ENDPOINTS"   envDefault:"true"`

	RefreshPurgeCron      string `env:"REFRESH_PURGE_CRON"       envDefault:"@daily"`
	RefreshPurgeGraceDays int    `env:"REFRESH_PURGE_GRACE_DAYS" envDefault:"7"         validate:"min=0,max=365"`
	RateLimitSweepCron    string `env:"RATE_LIMIT_SWEEP_CRON"    envDefault:"@every 5m"`
}

// Load reads an optional .env file, then the process environment.
// Variables already set in the environment win over .env entries.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if cfg.Env == "production" && cfg.EnableDevEndpoints {
		return nil, errors.New("invalid config: ENABLE_DEV_ENDPOINTS must be false in production")
	}

	return cfg, nil
}

func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// HashSecret is the key material for token hashing. It falls back to
// the JWT secret when no dedicated secret is configured.
func (c *Config) HashSecret() []byte {
	if c.TokenHashSecret != "" {
		return []byte(c.TokenHashSecret)
	}
	return []byte(c.JWTSecret)
}

func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenTTLSec) * time.Second
}

func (c *Config) RefreshTokenTTL() time.Duration {
	return time.Duration(c.RefreshTokenTTLDays) * 24 * time.Hour
}

func (c *Config) MagicLinkTTL() time.Duration {
	return time.Duration(c.MagicLinkTTLMin) * time.Minute
}

func (c *Config) MagicLinkRateLimit() time.Duration {
	return time.Duration(c.MagicLinkRateLimitSec) * time.Second
}

func (c *Config) RefreshPurgeGrace() time.Duration {
	return time.Duration(c.RefreshPurgeGraceDays) * 24 * time.Hour
}
