// Package config loads application configuration from environment
// variables, with an optional .env file and sensible defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application settings.
type Config struct {
	// Addr is the HTTP listen address (env ADDR, default ":8000").
	Addr string

	// UploadsDir holds uploaded workbooks (env UPLOADS_DIR).
	UploadsDir string

	// ResultsDir holds processed outputs (env RESULTS_DIR).
	ResultsDir string

	// MasterBOMPath is the default master reference workbook
	// (env MASTER_BOM_PATH).
	MasterBOMPath string

	// MaxFileSize caps uploads in bytes (env MAX_FILE_SIZE, default 50MB).
	MaxFileSize int64

	// CleanupAge is how old an upload must be before cleanup removes it
	// (env CLEANUP_AGE, default 168h).
	CleanupAge time.Duration

	// LogLevel is debug, info, warn, or error (env LOG_LEVEL).
	LogLevel string

	// LogFormat is text or json (env LOG_FORMAT).
	LogFormat string
}

// Load reads configuration from the environment. A .env file in the
// working directory is honored when present.
func Load() (*Config, error) {
	_ = godotenv.Load() // missing .env is fine

	cfg := &Config{
		Addr:          getenv("ADDR", ":8000"),
		UploadsDir:    getenv("UPLOADS_DIR", "storage/uploads"),
		ResultsDir:    getenv("RESULTS_DIR", "storage/processed"),
		MasterBOMPath: getenv("MASTER_BOM_PATH", "data/Master_BOM_Real.xlsx"),
		LogLevel:      getenv("LOG_LEVEL", "info"),
		LogFormat:     getenv("LOG_FORMAT", "text"),
	}

	size, err := parseInt64(getenv("MAX_FILE_SIZE", "52428800"))
	if err != nil {
		return nil, fmt.Errorf("parse MAX_FILE_SIZE: %w", err)
	}
	cfg.MaxFileSize = size

	age, err := time.ParseDuration(getenv("CLEANUP_AGE", "168h"))
	if err != nil {
		return nil, fmt.Errorf("parse CLEANUP_AGE: %w", err)
	}
	cfg.CleanupAge = age

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseInt64(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}
