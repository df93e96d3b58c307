// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir          string // Base directory for the history and cache databases
	MarketDataURL    string // Base URL of the external daily-price feed
	PriceSyncSpec    string // Cron spec for the daily price sync job
	CachePurgeSpec   string // Cron spec for the cache purge job
	LogLevel         string
	Port             int
	DevMode          bool
	AnnualizationPct int // Trading periods per year used for annualization
}

// Load reads configuration from environment variables.
// A .env file in the working directory is honored when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dataDir := getEnv("QUANTFOLIO_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:          absDataDir,
		Port:             getEnvAsInt("QUANTFOLIO_PORT", 8010),
		DevMode:          getEnvAsBool("DEV_MODE", false),
		MarketDataURL:    getEnv("MARKET_DATA_URL", "http://localhost:9010"),
		PriceSyncSpec:    getEnv("PRICE_SYNC_SPEC", "0 30 18 * * MON-FRI"),
		CachePurgeSpec:   getEnv("CACHE_PURGE_SPEC", "0 0 3 * * *"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		AnnualizationPct: getEnvAsInt("PERIODS_PER_YEAR", 252),
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port: %d", cfg.Port)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}
