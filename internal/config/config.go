// Package config reads process configuration from environment variables,
// with an optional .env file loaded first for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config covers process-level configuration for catchd.
type Config struct {
	Environment string
	HTTPBind    string
	HTTPPort    int
	MetricsBind string

	// Auth
	JWTSigningKey string
	TokenTTL      time.Duration

	// Storage. An empty PostgresDSN selects the in-memory stores; an empty
	// ValkeyAddr keeps presence in process memory.
	PostgresDSN string
	ValkeyAddr  string

	// CORS
	AllowedOrigin string

	// Catalog refresh (trending feed pulled from the catalog REST service).
	CatalogBaseURL  string
	CatalogInterval time.Duration
}

// Load reads the environment, applies defaults, and validates the result.
func Load() (*Config, error) {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{
		Environment:     getEnv("CATCH_ENV", "development"),
		HTTPBind:        getEnv("CATCH_HTTP_BIND", "0.0.0.0"),
		HTTPPort:        getEnvInt("CATCH_HTTP_PORT", 8080),
		MetricsBind:     getEnv("CATCH_METRICS_BIND", "127.0.0.1:9100"),
		JWTSigningKey:   getEnv("CATCH_JWT_SIGNING_KEY", ""),
		TokenTTL:        time.Duration(getEnvInt("CATCH_TOKEN_TTL_HOURS", 72)) * time.Hour,
		PostgresDSN:     getEnv("CATCH_POSTGRES_DSN", ""),
		ValkeyAddr:      getEnv("CATCH_VALKEY_ADDR", ""),
		AllowedOrigin:   getEnv("CATCH_ALLOWED_ORIGIN", "http://localhost:5173"),
		CatalogBaseURL:  getEnv("CATCH_CATALOG_URL", ""),
		CatalogInterval: time.Duration(getEnvInt("CATCH_CATALOG_INTERVAL_MINUTES", 15)) * time.Minute,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid CATCH_HTTP_PORT %d", c.HTTPPort)
	}
	if c.JWTSigningKey == "" {
		if c.Environment != "development" {
			return fmt.Errorf("CATCH_JWT_SIGNING_KEY is required outside development")
		}
		c.JWTSigningKey = "catch-dev-signing-key"
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("CATCH_TOKEN_TTL_HOURS must be positive")
	}
	return nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.HTTPBind, c.HTTPPort)
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
