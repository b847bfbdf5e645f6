package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const devSecret = "dev-secret-change"

type Config struct {
	HTTPAddr        string
	DatabaseDSN     string
	JWTSecret       string
	TokenTTL        time.Duration
	MaxRequestBytes int64
	RateLimit       float64 // requests per second per client; 0 disables
	RateBurst       int
	LogLevel        string
}

// Load reads the environment, after merging a .env file from the working
// directory when one exists. Variables already set win over the file.
func Load() Config {
	_ = godotenv.Load()
	cfg := Config{
		HTTPAddr:        getEnv("LOYALTY_HTTP_ADDR", ":8080"),
		DatabaseDSN:     getEnv("LOYALTY_DB_DSN", "file:loyalty.db?cache=shared&mode=rwc"),
		JWTSecret:       getEnv("LOYALTY_JWT_SECRET", devSecret),
		TokenTTL:        getDuration("LOYALTY_TOKEN_TTL", time.Hour),
		MaxRequestBytes: int64(getInt("LOYALTY_MAX_REQUEST_BYTES", 1<<20)),
		RateLimit:       getFloat("LOYALTY_RATE_LIMIT", 20),
		RateBurst:       getInt("LOYALTY_RATE_BURST", 40),
		LogLevel:        getEnv("LOYALTY_LOG_LEVEL", "info"),
	}
	if cfg.JWTSecret == devSecret {
		logrus.Warn("using development JWT secret; set LOYALTY_JWT_SECRET")
	}
	return cfg
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	n, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return def
	}
	return n
}

func getFloat(key string, def float64) float64 {
	f, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil {
		return def
	}
	return f
}

func getDuration(key string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, ""))
	if err != nil || d <= 0 {
		return def
	}
	return d
}
