// Package server provides configuration helpers that define runtime defaults,
// validation, and rate-limiting parameters for the relay.
package server

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// RateLimitConfig defines the parameters for per-connection message rate limiting.
type RateLimitConfig struct {
	Burst          int
	RefillInterval time.Duration
}

// Config holds the relay configuration, loaded from the environment.
type Config struct {
	Port           string   `envconfig:"SERVER_PORT" default:":8080"`
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:8080"`
	MaxMessageSize int64    `envconfig:"MAX_MESSAGE_SIZE" default:"512"`

	RateLimitBurst          int           `envconfig:"RATE_LIMIT_BURST" default:"5"`
	RateLimitRefillInterval time.Duration `envconfig:"RATE_LIMIT_REFILL_INTERVAL" default:"1s"`

	ExchangeMaxDays        int           `envconfig:"EXCHANGE_MAX_DAYS" default:"9"`
	ExchangeRequestTimeout time.Duration `envconfig:"EXCHANGE_REQUEST_TIMEOUT" default:"10s"`
	PrivatBankBaseURL      string        `envconfig:"PRIVATBANK_BASE_URL" default:"https://api.privatbank.ua"`
	AuditLogPath           string        `envconfig:"EXCHANGE_LOG_PATH" default:"exchange.log"`
}

// LoadConfig reads the configuration from environment variables and applies
// defaults for anything unset or out of range.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	cfg.sanitize()
	return &cfg, nil
}

// NewConfig creates a Config populated with default values for all settings.
func NewConfig() *Config {
	cfg := &Config{
		Port:           ":8080",
		AllowedOrigins: []string{"http://localhost:8080"},
	}
	cfg.sanitize()
	return cfg
}

// RateLimit returns the per-connection rate limit settings.
func (c *Config) RateLimit() RateLimitConfig {
	return RateLimitConfig{
		Burst:          c.RateLimitBurst,
		RefillInterval: c.RateLimitRefillInterval,
	}
}

func (c *Config) sanitize() {
	if c.Port == "" {
		c.Port = ":8080"
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = 512
	}
	if c.RateLimitBurst <= 0 {
		c.RateLimitBurst = 5
	}
	if c.RateLimitRefillInterval <= 0 {
		c.RateLimitRefillInterval = time.Second
	}
	if c.ExchangeMaxDays <= 0 {
		c.ExchangeMaxDays = 9
	}
	if c.ExchangeRequestTimeout <= 0 {
		c.ExchangeRequestTimeout = 10 * time.Second
	}
	if c.PrivatBankBaseURL == "" {
		c.PrivatBankBaseURL = "https://api.privatbank.ua"
	}
	if c.AuditLogPath == "" {
		c.AuditLogPath = "exchange.log"
	}
}
