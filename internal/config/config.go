package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv          string
	Port            string
	RedisURL        string
	LogLevel        string
	LogFormat       string
	AgentToken      string
	TransferBaseURL string
	TransferTimeout int
}

const defaultTransferTimeoutSeconds = 15

func Load() (*Config, error) {
	// Best effort: a missing .env file is fine in production.
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:          getEnv("APP_ENV", "development"),
		Port:            getEnv("PORT", "8080"),
		RedisURL:        getEnv("REDIS_URL", ""),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       getEnv("LOG_FORMAT", "text"),
		AgentToken:      getEnv("AGENT_TOKEN", ""),
		TransferBaseURL: getEnv("TRANSFER_BASE_URL", ""),
	}

	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}

	if cfg.TransferBaseURL != "" {
		if _, err := url.ParseRequestURI(cfg.TransferBaseURL); err != nil {
			return nil, fmt.Errorf("TRANSFER_BASE_URL must be a valid URL: %w", err)
		}
	}

	timeout := getEnv("TRANSFER_TIMEOUT_SECONDS", "")
	if timeout == "" {
		cfg.TransferTimeout = defaultTransferTimeoutSeconds
	} else {
		n, err := strconv.Atoi(timeout)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("TRANSFER_TIMEOUT_SECONDS must be a positive integer")
		}
		cfg.TransferTimeout = n
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
