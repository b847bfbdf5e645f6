// Package config resolves CLI settings from the environment and an optional
// .env file. Command-line flags are applied on top by the cmd package.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"loyalty/internal/client/credstore"
	"loyalty/internal/client/vault"
)

const (
	OutputJSON = "json"
	OutputYAML = "yaml"
)

type Config struct {
	ServerURL    string
	TokenPath    string
	VaultKeyPath string
	HTTPTimeout  time.Duration
	LogLevel     string
	Output       string
}

// Load reads LOYALTY_* variables. Missing or malformed values fall back to
// defaults.
func Load() Config {
	_ = godotenv.Load()
	return Config{
		ServerURL:    getEnv("LOYALTY_SERVER_URL", "http://localhost:8080"),
		TokenPath:    getEnv("LOYALTY_TOKEN_PATH", credstore.DefaultPath()),
		VaultKeyPath: getEnv("LOYALTY_VAULT_KEY_PATH", vault.DefaultPath()),
		HTTPTimeout:  getDuration("LOYALTY_HTTP_TIMEOUT", 15*time.Second),
		LogLevel:     getEnv("LOYALTY_LOG_LEVEL", "warn"),
		Output:       strings.ToLower(getEnv("LOYALTY_OUTPUT", OutputJSON)),
	}
}

// Validate reports settings the CLI cannot work with.
func (c Config) Validate() error {
	if c.ServerURL == "" {
		return fmt.Errorf("server url is empty")
	}
	if c.Output != OutputJSON && c.Output != OutputYAML {
		return fmt.Errorf("unknown output format %q (want %s or %s)", c.Output, OutputJSON, OutputYAML)
	}
	return nil
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, ""))
	if err != nil || d <= 0 {
		return def
	}
	return d
}
