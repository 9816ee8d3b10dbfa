// Package config loads gateway configuration from the environment.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sebas/dialdesk/internal/backend"
)

// Config holds the gateway configuration. Account credentials may be left
// empty here and supplied per request instead; endpoints that need them
// report an explicit configuration error when both are absent.
type Config struct {
	BindAddr string `env:"BIND" envDefault:"0.0.0.0"`
	Port     int    `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOGLEVEL" envDefault:"info"`

	// APIBaseURL is the vendor REST API base.
	APIBaseURL string `env:"TELEPHONY_API_URL" envDefault:"https://api.telephony.example.com/v1"`

	// Account credentials used when a request does not carry its own.
	AccountSID  string `env:"ACCOUNT_SID"`
	AuthToken   string `env:"AUTH_TOKEN"`
	PhoneNumber string `env:"PHONE_NUMBER"`

	// AppSID identifies the voice application for outgoing call grants.
	AppSID string `env:"APP_SID"`

	TokenTTL time.Duration `env:"TOKEN_TTL" envDefault:"1h"`

	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envDefault:"*"`
}

// Load reads configuration from the environment, first loading ENV_FILE
// (or .env) if present.
func Load() (*Config, error) {
	envfile := os.Getenv("ENV_FILE")
	if envfile != "" {
		if err := godotenv.Load(envfile); err != nil {
			return nil, fmt.Errorf("load env file %s: %w", envfile, err)
		}
	} else {
		// A missing .env is fine; the environment may be set directly.
		_ = godotenv.Load()
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.BindAddr, c.Port)
}

// Credentials returns the environment-derived account credentials.
func (c *Config) Credentials() backend.Credentials {
	return backend.Credentials{
		AccountSID:  c.AccountSID,
		AuthToken:   c.AuthToken,
		PhoneNumber: c.PhoneNumber,
	}
}
