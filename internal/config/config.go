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
	DataDir         string // Base directory for the journal database (always absolute)
	LogLevel        string
	Port            int
	DevMode         bool
	EnsembleWorkers int // Parallelism for ensemble sweeps

	// RetentionDays bounds how long journal runs are kept; the retention
	// job prunes anything older. Zero disables pruning.
	RetentionDays int
	// PruneSchedule is the cron expression for the retention job.
	PruneSchedule string

	Backup *BackupConfig
}

// BackupConfig holds journal backup configuration for S3-compatible storage
// (Cloudflare R2, MinIO, AWS S3).
type BackupConfig struct {
	Enabled   bool
	Endpoint  string // Custom endpoint URL; empty means plain AWS S3
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	Prefix    string // Object key prefix within the bucket
	Keep      int    // Number of backups retained remotely
	Schedule  string // Cron expression for the backup job
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Determine data directory with fallback logic:
	// 1. Check PQN_DATA_DIR environment variable
	// 2. If not set, default to ./data
	// 3. Always resolve to absolute path and ensure it exists
	dataDir := getEnv("PQN_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "data"
	}

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:         absDataDir,
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		Port:            getEnvAsInt("PQN_PORT", 8090),
		DevMode:         getEnvAsBool("DEV_MODE", false),
		EnsembleWorkers: getEnvAsInt("PQN_ENSEMBLE_WORKERS", 4),
		RetentionDays:   getEnvAsInt("PQN_RETENTION_DAYS", 30),
		PruneSchedule:   getEnv("PQN_PRUNE_SCHEDULE", "@daily"),
		Backup:          loadBackupConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.RetentionDays < 0 {
		return fmt.Errorf("retention days must be non-negative, got %d", c.RetentionDays)
	}
	if c.Backup != nil && c.Backup.Enabled {
		if c.Backup.Bucket == "" {
			return fmt.Errorf("backup bucket is required when backups are enabled")
		}
		if c.Backup.AccessKey == "" || c.Backup.SecretKey == "" {
			return fmt.Errorf("backup credentials are required when backups are enabled")
		}
	}
	return nil
}

// JournalPath returns the journal database path under the data directory.
func (c *Config) JournalPath() string {
	return filepath.Join(c.DataDir, "journal.db")
}

// loadBackupConfig loads backup configuration from environment variables
func loadBackupConfig() *BackupConfig {
	return &BackupConfig{
		Enabled:   getEnvAsBool("PQN_BACKUP_ENABLED", false),
		Endpoint:  getEnv("PQN_BACKUP_ENDPOINT", ""),
		Region:    getEnv("PQN_BACKUP_REGION", "auto"),
		Bucket:    getEnv("PQN_BACKUP_BUCKET", ""),
		AccessKey: getEnv("PQN_BACKUP_ACCESS_KEY", ""),
		SecretKey: getEnv("PQN_BACKUP_SECRET_KEY", ""),
		Prefix:    getEnv("PQN_BACKUP_PREFIX", "pqn-backups"),
		Keep:      getEnvAsInt("PQN_BACKUP_KEEP", 14),
		Schedule:  getEnv("PQN_BACKUP_SCHEDULE", "@daily"),
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
