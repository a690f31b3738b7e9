/*
Package config loads the runtime settings for the SafePlan API from the
environment (and an optional .env file) and validates them once at startup.
*/
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every tunable the server reads at boot.
type Config struct {
	Port     int
	Env      string
	LogLevel string

	// Gemini
	GeminiAPIKey     string
	GeminiBaseURL    string
	GeminiTextModel  string
	GeminiImageModel string
	GeminiMaxRetries int
	GeminiTimeout    time.Duration

	// Exercise illustrations
	ImageMaxDelay    time.Duration
	ImageConcurrency int
	ImageRatePerSec  float64
	ImageCacheSize   int

	// Storage
	StorageBackend string
	DatabaseURL    string
	PlanCacheSize  int

	// HTTP
	AllowedOrigins  []string
	RateLimitPerMin int
	StaticDir       string
}

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"

	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com"
)

// Load reads .env (if present) and the process environment into a Config.
func Load() (*Config, error) {
	// A missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{
		Port:     getEnvInt("PORT", 8080),
		Env:      getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
		GeminiBaseURL:    strings.TrimRight(getEnv("GEMINI_BASE_URL", DefaultGeminiBaseURL), "/"),
		GeminiTextModel:  getEnv("GEMINI_TEXT_MODEL", "gemini-3-flash-preview"),
		GeminiImageModel: getEnv("GEMINI_IMAGE_MODEL", "gemini-2.5-flash-image"),
		GeminiMaxRetries: getEnvInt("GEMINI_MAX_RETRIES", 3),
		GeminiTimeout:    getEnvDuration("GEMINI_TIMEOUT", 60*time.Second),

		ImageMaxDelay:    getEnvDuration("IMAGE_MAX_DELAY", 1500*time.Millisecond),
		ImageConcurrency: getEnvInt("IMAGE_CONCURRENCY", 4),
		ImageRatePerSec:  getEnvFloat("IMAGE_RATE_PER_SEC", 2),
		ImageCacheSize:   getEnvInt("IMAGE_CACHE_SIZE", 256),

		StorageBackend: getEnv("STORAGE_BACKEND", BackendMemory),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		PlanCacheSize:  getEnvInt("PLAN_CACHE_SIZE", 500),

		AllowedOrigins:  splitList(getEnv("ALLOWED_ORIGINS", "*")),
		RateLimitPerMin: getEnvInt("RATE_LIMIT_PER_MIN", 10),
		StaticDir:       getEnv("STATIC_DIR", "web/public"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks the combinations that would otherwise fail late at request time.
func (c *Config) Validate() error {
	if c.GeminiAPIKey == "" {
		return errors.New("GEMINI_API_KEY is required")
	}
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return errors.New("APP_ENV must be one of: development, staging, production")
	}
	switch c.StorageBackend {
	case BackendMemory:
		if c.PlanCacheSize <= 0 {
			return errors.New("PLAN_CACHE_SIZE must be positive for the memory backend")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required when STORAGE_BACKEND=postgres")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}
	if c.ImageConcurrency <= 0 {
		return errors.New("IMAGE_CONCURRENCY must be positive")
	}
	if c.ImageMaxDelay < 0 {
		return errors.New("IMAGE_MAX_DELAY cannot be negative")
	}
	if c.GeminiMaxRetries <= 0 {
		return errors.New("GEMINI_MAX_RETRIES must be at least 1")
	}
	return nil
}

// IsDevelopment reports whether human-readable console logging should be used.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvFloat(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return fallback
	}
	return v
}

// getEnvDuration accepts Go duration strings ("1500ms", "1m").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
