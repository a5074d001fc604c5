// Package config handles loading and validating runtime configuration for the padel club API.
// Configuration values (like the database URL and API port) are read from environment variables
// rather than being hardcoded, so the same binary can run locally against a JSON snapshot file
// and in production against PostgreSQL just by swapping the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	// godotenv reads a .env file and loads its key=value pairs into the process environment.
	// In development you keep secrets in .env; in production real env vars are used instead.
	"github.com/joho/godotenv"
)

// Store backends selectable with STORE.
const (
	StorePostgres = "postgres" // gorm + PostgreSQL, the production setup
	StoreMemory   = "memory"   // in-process, optionally mirrored to SNAPSHOT_PATH
)

// ErrMissingConfig is wrapped by Validate when required keys are empty.
var ErrMissingConfig = errors.New("missing required configuration")

// Config holds all runtime configuration values for the application.
type Config struct {
	Port           string  // The TCP port the HTTP server will listen on (e.g., "8080")
	Env            string  // "development", "staging" or "production"
	DatabaseURL    string  // PostgreSQL connection string; required when Store is "postgres"
	JWTSecret      string  // HMAC key that signs and verifies API tokens; always required
	Store          string  // "postgres" or "memory"
	SnapshotPath   string  // JSON file the memory store loads from and writes back to
	MigrationsPath string  // Source URL for golang-migrate (e.g., "file://migrations")
	LogLevel       string  // logrus level name: debug, info, warn, error
	RateLimit      float64 // Sustained requests per second allowed per client IP
	RateBurst      int     // Requests a client may burst above RateLimit
}

// Load reads configuration from environment variables and returns a populated Config.
// Malformed numbers fall back to their defaults; missing required values are caught
// by Validate so every problem is reported at once.
func Load() *Config {
	// The error is ignored on purpose: no .env file simply means real env vars are in use.
	_ = godotenv.Load()

	return &Config{
		Port:           getenv("PORT", "8080"),
		Env:            getenv("ENV", "development"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		Store:          strings.ToLower(getenv("STORE", StorePostgres)),
		SnapshotPath:   os.Getenv("SNAPSHOT_PATH"),
		MigrationsPath: getenv("MIGRATIONS_PATH", "file://migrations"),
		LogLevel:       getenv("LOG_LEVEL", "info"),
		RateLimit:      getenvFloat("RATE_LIMIT", 5),
		RateBurst:      getenvInt("RATE_BURST", 10),
	}
}

// Validate reports every missing or inconsistent setting in one error, so an operator
// fixing a deployment doesn't have to restart once per mistake.
func (c *Config) Validate() error {
	var missing []string
	if c.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}

	switch c.Store {
	case StorePostgres:
		if c.DatabaseURL == "" {
			missing = append(missing, "DATABASE_URL")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("STORE must be %q or %q, got %q", StorePostgres, StoreMemory, c.Store)
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingConfig, strings.Join(missing, ", "))
	}
	if c.RateLimit <= 0 || c.RateBurst <= 0 {
		return errors.New("RATE_LIMIT and RATE_BURST must be positive")
	}
	return nil
}

// IsProduction reports whether the server runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return n
}

func getenvFloat(key string, fallback float64) float64 {
	f, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return fallback
	}
	return f
}
