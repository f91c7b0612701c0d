// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir           string // Base directory for all databases (always absolute)
	MarketDataURL     string // Base URL of the external equity data provider
	Port              int
	LogLevel          string
	DevMode           bool
	RefreshSchedule   string   // Cron expression for the equity snapshot refresh
	SuppressedTickers []string // Operator-curated tickers hidden from every view
	Backup            *BackupConfig
}

// BackupConfig holds S3 database backup configuration.
// Backups are disabled unless a bucket is configured.
type BackupConfig struct {
	Enabled   bool
	Bucket    string
	Region    string
	Endpoint  string // Optional custom endpoint (S3-compatible stores)
	AccessKey string
	SecretKey string
	Schedule  string // Cron expression for the backup job
}

// defaultSuppressedTickers is the shipped suppression list. It can be replaced
// entirely via the SUPPRESSED_TICKERS environment variable; it is never merged.
var defaultSuppressedTickers = []string{
	"AESB3",
	"CIEL3",
	"ENAT3",
	"ODPV3",
	"TRPL3",
	"TRPL4",
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("SCREENER_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	// Always resolve to absolute path
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	// Ensure directory exists
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:           absDataDir,
		MarketDataURL:     getEnv("MARKET_DATA_URL", "http://localhost:9000"),
		Port:              getEnvAsInt("PORT", 8080),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		DevMode:           getEnvAsBool("DEV_MODE", false),
		RefreshSchedule:   getEnv("REFRESH_SCHEDULE", "0 */30 * * * *"), // Every 30 minutes
		SuppressedTickers: loadSuppressedTickers(),
		Backup:            loadBackupConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.MarketDataURL == "" {
		return fmt.Errorf("MARKET_DATA_URL is required")
	}
	if c.Backup != nil && c.Backup.Enabled && c.Backup.Bucket == "" {
		return fmt.Errorf("BACKUP_BUCKET is required when backups are enabled")
	}
	return nil
}

// SuppressedSet returns the suppression list as a membership set for the
// filter pipeline. The pipeline takes this as an injected value so tests can
// vary it without config edits.
func (c *Config) SuppressedSet() map[string]struct{} {
	set := make(map[string]struct{}, len(c.SuppressedTickers))
	for _, t := range c.SuppressedTickers {
		set[strings.ToUpper(strings.TrimSpace(t))] = struct{}{}
	}
	return set
}

func loadSuppressedTickers() []string {
	raw := getEnv("SUPPRESSED_TICKERS", "")
	if raw == "" {
		return defaultSuppressedTickers
	}
	var tickers []string
	for _, t := range strings.Split(raw, ",") {
		t = strings.TrimSpace(t)
		if t != "" {
			tickers = append(tickers, t)
		}
	}
	return tickers
}

func loadBackupConfig() *BackupConfig {
	return &BackupConfig{
		Enabled:   getEnvAsBool("BACKUP_ENABLED", false),
		Bucket:    getEnv("BACKUP_BUCKET", ""),
		Region:    getEnv("BACKUP_REGION", "auto"),
		Endpoint:  getEnv("BACKUP_ENDPOINT", ""),
		AccessKey: getEnv("BACKUP_ACCESS_KEY", ""),
		SecretKey: getEnv("BACKUP_SECRET_KEY", ""),
		Schedule:  getEnv("BACKUP_SCHEDULE", "0 0 3 * * *"), // Daily at 03:00
	}
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
