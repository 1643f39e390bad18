package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	AppEnv      string `env:"APP_ENV" default:"development"`
	Port        string `env:"PORT" default:"8080"`
	Store       string `env:"STORE" default:"postgres"`
	DatabaseURL string `env:"DATABASE_URL"`
	RedisURL    string `env:"REDIS_URL"`
	LogLevel    string `env:"LOG_LEVEL" default:"info"`
	LogFormat   string `env:"LOG_FORMAT" default:"text"`
	LogFile     string `env:"LOG_FILE"`

	ProducerSignatures string `env:"PRODUCER_SIGNATURES" default:"Desktop"`
	AllowedOrigins     string `env:"ALLOWED_ORIGINS"`

	BroadcastSendTimeout time.Duration `env:"BROADCAST_SEND_TIMEOUT" default:"5s"`
	BroadcastConcurrency int           `env:"BROADCAST_CONCURRENCY" default:"32"`

	SessionIdleTimeout   time.Duration `env:"SESSION_IDLE_TIMEOUT" default:"90s"`
	SessionSweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" default:"30s"`

	MaxWebSocketConnections int `env:"MAX_WEBSOCKET_CONNECTIONS" default:"10000"`

	APIRateLimit float64 `env:"API_RATE_LIMIT" default:"20"`
	APIRateBurst int     `env:"API_RATE_BURST" default:"40"`

	StorageBreakerFailures     uint          `env:"STORAGE_BREAKER_FAILURES" default:"5"`
	StorageBreakerOpenDuration time.Duration `env:"STORAGE_BREAKER_OPEN_DURATION" default:"30s"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// ProducerSignatureList splits PRODUCER_SIGNATURES on commas.
func (c *Config) ProducerSignatureList() []string {
	return splitList(c.ProducerSignatures)
}

// AllowedOriginList splits ALLOWED_ORIGINS on commas. Empty means any origin.
func (c *Config) AllowedOriginList() []string {
	return splitList(c.AllowedOrigins)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func validate(cfg *Config) error {
	switch cfg.Store {
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required")
		}
		if err := validateDatabaseURL(cfg); err != nil {
			return err
		}
	case StoreMemory:
	default:
		return fmt.Errorf("STORE must be %q or %q, got %q", StorePostgres, StoreMemory, cfg.Store)
	}

	positive := map[string]time.Duration{
		"BROADCAST_SEND_TIMEOUT":        cfg.BroadcastSendTimeout,
		"SESSION_IDLE_TIMEOUT":          cfg.SessionIdleTimeout,
		"SESSION_SWEEP_INTERVAL":        cfg.SessionSweepInterval,
		"STORAGE_BREAKER_OPEN_DURATION": cfg.StorageBreakerOpenDuration,
	}
	for name, value := range positive {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}

	if cfg.BroadcastConcurrency < 1 {
		return errors.New("BROADCAST_CONCURRENCY must be at least 1")
	}
	if cfg.MaxWebSocketConnections < 1 {
		return errors.New("MAX_WEBSOCKET_CONNECTIONS must be at least 1")
	}
	if cfg.StorageBreakerFailures < 1 {
		return errors.New("STORAGE_BREAKER_FAILURES must be at least 1")
	}
	if cfg.APIRateLimit <= 0 || cfg.APIRateBurst < 1 {
		return errors.New("API_RATE_LIMIT and API_RATE_BURST must be positive")
	}
	if cfg.SessionSweepInterval > cfg.SessionIdleTimeout {
		return errors.New("SESSION_SWEEP_INTERVAL must not exceed SESSION_IDLE_TIMEOUT")
	}

	return nil
}

func validateDatabaseURL(cfg *Config) error {
	u, err := url.Parse(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("DATABASE_URL is not a valid URL: %w", err)
	}
	if !cfg.IsProduction() {
		return nil
	}
	switch u.Query().Get("sslmode") {
	case "disable", "allow":
		return errors.New("DATABASE_URL must not disable TLS in production")
	}
	return nil
}
