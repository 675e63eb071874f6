// internal/config/config.go
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/givance/outreach-backend/internal/generation"
)

// Config is assembled from environment variables. Callers run
// godotenv.Load first so a local .env works the same way.
type Config struct {
	Port        string
	AMQPURL     string
	GeminiKey   string
	GeminiModel string
	Generation  generation.Config
}

// Load reads the environment with defaults. The generation bounds are
// deliberately configuration, not constants.
func Load() Config {
	return Config{
		Port:        envStr("PORT", "8080"),
		AMQPURL:     os.Getenv("AMQP_URL"),
		GeminiKey:   os.Getenv("GEMINI_API_KEY"),
		GeminiModel: envStr("GEMINI_MODEL", "gemini-2.5-flash"),
		Generation: generation.Config{
			Concurrency: envInt("GEN_CONCURRENCY", 5),
			MaxRetries:  envInt("GEN_MAX_RETRIES", 2),
			Backoff:     time.Duration(envInt("GEN_BACKOFF_MS", 500)) * time.Millisecond,
			CallTimeout: time.Duration(envInt("GEN_TIMEOUT_MS", 60000)) * time.Millisecond,
		},
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
