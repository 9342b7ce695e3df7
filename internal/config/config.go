// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/stockwell/replenish/internal/utils"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for all databases (always absolute)
	Port     int
	LogLevel string
	DevMode  bool

	// Engine tuning
	HistoryWindowDays   int     // Trailing window for historical sales aggregation
	ConfidenceThreshold float64 // Minimum forecast confidence for automated orders
	LowStockThreshold   int     // Unit count below which the stock monitor inspects a product

	// Background job schedules (robfig/cron specs)
	RetrainSchedule      string // Default: every 6 hours
	StockMonitorSchedule string // Default: every 5 minutes
	AutoOrderSchedule    string // Default: daily
	CacheCleanupSchedule string // Default: hourly
	BackupSchedule       string // Default: nightly

	// Offline mode: serve the engine from a deterministic synthetic sales
	// source instead of the catalog database.
	Offline bool

	// AllowedOrigins restricts CORS; empty means any origin.
	AllowedOrigins []string

	Backup *BackupConfig
}

// BackupConfig holds S3-compatible off-site backup configuration.
// Backups are disabled unless Endpoint and Bucket are both set.
type BackupConfig struct {
	Enabled   bool
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	Retention int // Number of snapshots to keep remotely
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("REPLENISH_DATA_DIR", "")
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
		DataDir:  absDataDir,
		Port:     getEnvAsInt("REPLENISH_PORT", 8040),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		DevMode:  getEnvAsBool("DEV_MODE", false),

		HistoryWindowDays:   getEnvAsInt("HISTORY_WINDOW_DAYS", 365),
		ConfidenceThreshold: getEnvAsFloat("CONFIDENCE_THRESHOLD", 0.8),
		LowStockThreshold:   getEnvAsInt("LOW_STOCK_THRESHOLD", 10),

		RetrainSchedule:      getEnv("RETRAIN_SCHEDULE", "@every 6h"),
		StockMonitorSchedule: getEnv("STOCK_MONITOR_SCHEDULE", "@every 5m"),
		AutoOrderSchedule:    getEnv("AUTO_ORDER_SCHEDULE", "@every 24h"),
		CacheCleanupSchedule: getEnv("CACHE_CLEANUP_SCHEDULE", "@hourly"),
		BackupSchedule:       getEnv("BACKUP_SCHEDULE", "@midnight"),

		Offline: getEnvAsBool("REPLENISH_OFFLINE", false),

		AllowedOrigins: utils.ParseCSV(getEnv("CORS_ALLOWED_ORIGINS", "")),

		Backup: loadBackupConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.HistoryWindowDays <= 0 {
		return fmt.Errorf("HISTORY_WINDOW_DAYS must be positive, got %d", c.HistoryWindowDays)
	}
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("CONFIDENCE_THRESHOLD must be in [0,1], got %f", c.ConfidenceThreshold)
	}
	return nil
}

// loadBackupConfig loads S3 backup configuration from environment variables.
// The backup job is only registered when both endpoint and bucket are set.
func loadBackupConfig() *BackupConfig {
	endpoint := getEnv("BACKUP_S3_ENDPOINT", "")
	bucket := getEnv("BACKUP_S3_BUCKET", "")

	return &BackupConfig{
		Enabled:   endpoint != "" && bucket != "",
		Endpoint:  endpoint,
		Region:    getEnv("BACKUP_S3_REGION", "auto"),
		Bucket:    bucket,
		AccessKey: getEnv("BACKUP_S3_ACCESS_KEY", ""),
		SecretKey: getEnv("BACKUP_S3_SECRET_KEY", ""),
		Retention: getEnvAsInt("BACKUP_RETENTION", 14),
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
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
