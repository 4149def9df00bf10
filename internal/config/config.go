package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment overrides
const (
	EnvAPIURL            = "LANGHELPER_API_URL"
	EnvPublicURL         = "LANGHELPER_PUBLIC_URL"
	EnvLogLevel          = "LANGHELPER_LOG_LEVEL"
	EnvGenerationTimeout = "LANGHELPER_GENERATION_TIMEOUT"
	EnvRequestTimeout    = "LANGHELPER_REQUEST_TIMEOUT"
	EnvUseFallback       = "LANGHELPER_USE_FALLBACK"
)

// loadDotEnv loads dir/.env without overriding variables already set
func loadDotEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return godotenv.Load(path)
}

func applyEnv(cfg *Config) {
	cfg.API.BaseURL = getEnv(EnvAPIURL, cfg.API.BaseURL)
	cfg.API.PublicBaseURL = getEnv(EnvPublicURL, cfg.API.PublicBaseURL)
	cfg.API.GenerationTimeoutSeconds = getEnvInt(EnvGenerationTimeout, cfg.API.GenerationTimeoutSeconds)
	cfg.API.RequestTimeoutSeconds = getEnvInt(EnvRequestTimeout, cfg.API.RequestTimeoutSeconds)
	cfg.Saver.UseFallback = getEnvBool(EnvUseFallback, cfg.Saver.UseFallback)
	cfg.LogLevel = getEnv(EnvLogLevel, cfg.LogLevel)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
