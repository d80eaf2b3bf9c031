// Package config handles loading and managing application configuration.
package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	// Server configuration
	Server ServerConfig

	// DOKU gateway configuration
	Doku DokuConfig

	// Transaction record storage
	Store StoreConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port    string
	GinMode string // "debug", "release", or "test"
}

// DokuConfig holds the credentials and endpoints for the DOKU checkout API.
// ClientID and SecretKey are loaded once at startup and treated as immutable;
// both are required for request signing.
type DokuConfig struct {
	BaseURL          string
	ClientID         string
	SecretKey        string
	CallbackURL      string // public URL the gateway redirects the shopper back to
	DueWindowMinutes int    // how long an issued payment URL stays payable
	RequestTimeout   time.Duration
}

// StoreConfig holds transaction record storage configuration.
type StoreConfig struct {
	SQLitePath string
}

// Load reads configuration from environment variables.
// Returns a Config struct with all settings populated.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:    getEnv("PORT", "8080"),
			GinMode: getEnv("GIN_MODE", "debug"),
		},
		Doku: DokuConfig{
			BaseURL:          getEnv("DOKU_API_URL", "https://api-sandbox.doku.com"),
			ClientID:         getEnv("DOKU_CLIENT_ID", ""),
			SecretKey:        getEnv("DOKU_SECRET_KEY", ""),
			CallbackURL:      getEnv("PUBLIC_SITE_URL", "http://localhost:3000") + "/checkout/finish",
			DueWindowMinutes: getEnvInt("DOKU_PAYMENT_DUE_MINUTES", 60),
			RequestTimeout:   time.Duration(getEnvInt("DOKU_REQUEST_TIMEOUT_SECONDS", 15)) * time.Second,
		},
		Store: StoreConfig{
			SQLitePath: getEnv("SQLITE_PATH", "./payments.db"),
		},
	}
}

// Validate checks that credentials required for request signing are present.
// A missing client id or secret key is a fatal configuration error, distinct
// from any gateway-side rejection.
func (c *Config) Validate() error {
	if c.Doku.ClientID == "" {
		return errors.New("DOKU_CLIENT_ID is required")
	}
	if c.Doku.SecretKey == "" {
		return errors.New("DOKU_SECRET_KEY is required")
	}
	if c.Doku.BaseURL == "" {
		return errors.New("DOKU_API_URL is required")
	}
	return nil
}

// getEnv retrieves an environment variable with a fallback default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an environment variable as an integer with a fallback.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
