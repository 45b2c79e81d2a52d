/**
 * Configuration for the extraction worker.
 *
 * Loads configuration from environment variables. Every heuristic threshold
 * used by the pipeline (garbled-text detection, scanned-document
 * classification, OCR limits, adaptive fallback) is tunable here; the
 * defaults were chosen against a mixed corpus and are a starting point,
 * not a guarantee.
 */

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds worker configuration
type Config struct {
	// Redis configuration (queue transport + outcome cache)
	RedisURL      string
	CacheTTLHours int

	// PostgreSQL configuration
	DatabaseURL string

	// Worker configuration
	WorkerConcurrency int
	MaxFileSize       int64
	ProcessingTimeout int // milliseconds, per job

	// Text-layer extraction
	MaxTextPages int // hard cap on pages read from the text layer

	// Garbled-text detection
	GarbledSuspiciousRatio float64 // suspicious-rune ratio above which text scores as garbled
	GarbledMinTextLen      int     // shorter text is never classified garbled
	GarbledScoreThreshold  float64 // combined heuristic score needed to flag text

	// Scanned-document classification
	ScanSamplePages  int     // pages sampled from the front of the document
	ScanImageRatio   float64 // fraction of sampled pages that must look scanned
	ScanMaxPageChars int     // text-layer chars per page below which a page counts as textless

	// OCR
	OCRLanguages   []string
	OCRMaxPages    int     // the expensive path is capped well below MaxTextPages
	OCRRenderScale float64 // render upscale relative to native page size
	OCRPageTimeout int     // milliseconds per page; 0 disables

	// Adaptive fallback
	SimpleModeThreshold int // consecutive backend failures before simple mode engages
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		RedisURL:          getEnvOrDefault("REDIS_URL", "redis://localhost:6379"),
		CacheTTLHours:     getEnvAsIntOrDefault("CACHE_TTL_HOURS", 24),
		DatabaseURL:       getEnvOrDefault("DATABASE_URL", ""),
		WorkerConcurrency: getEnvAsIntOrDefault("WORKER_CONCURRENCY", 4),
		MaxFileSize:       getEnvAsInt64OrDefault("MAX_FILE_SIZE", 104857600), // 100MB
		ProcessingTimeout: getEnvAsIntOrDefault("PROCESSING_TIMEOUT", 300000), // 5 minutes

		MaxTextPages: getEnvAsIntOrDefault("MAX_TEXT_PAGES", 100),

		GarbledSuspiciousRatio: getEnvAsFloatOrDefault("GARBLED_SUSPICIOUS_RATIO", 0.30),
		GarbledMinTextLen:      getEnvAsIntOrDefault("GARBLED_MIN_TEXT_LEN", 10),
		GarbledScoreThreshold:  getEnvAsFloatOrDefault("GARBLED_SCORE_THRESHOLD", 1.0),

		ScanSamplePages:  getEnvAsIntOrDefault("SCAN_SAMPLE_PAGES", 3),
		ScanImageRatio:   getEnvAsFloatOrDefault("SCAN_IMAGE_RATIO", 0.8),
		ScanMaxPageChars: getEnvAsIntOrDefault("SCAN_MAX_PAGE_CHARS", 25),

		OCRLanguages:   getEnvAsListOrDefault("OCR_LANGUAGES", []string{"eng", "chi_sim"}),
		OCRMaxPages:    getEnvAsIntOrDefault("OCR_MAX_PAGES", 5),
		OCRRenderScale: getEnvAsFloatOrDefault("OCR_RENDER_SCALE", 2.0),
		OCRPageTimeout: getEnvAsIntOrDefault("OCR_PAGE_TIMEOUT", 60000), // 1 minute

		SimpleModeThreshold: getEnvAsIntOrDefault("SIMPLE_MODE_THRESHOLD", 3),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.WorkerConcurrency < 1 || c.WorkerConcurrency > 100 {
		return fmt.Errorf("WORKER_CONCURRENCY must be between 1 and 100, got %d", c.WorkerConcurrency)
	}

	if c.MaxFileSize < 1024 || c.MaxFileSize > 1073741824 { // 1KB to 1GB
		return fmt.Errorf("MAX_FILE_SIZE must be between 1KB and 1GB, got %d", c.MaxFileSize)
	}

	if c.MaxTextPages < 1 {
		return fmt.Errorf("MAX_TEXT_PAGES must be positive, got %d", c.MaxTextPages)
	}

	if c.GarbledSuspiciousRatio <= 0 || c.GarbledSuspiciousRatio >= 1 {
		return fmt.Errorf("GARBLED_SUSPICIOUS_RATIO must be in (0,1), got %f", c.GarbledSuspiciousRatio)
	}

	if c.ScanImageRatio <= 0 || c.ScanImageRatio > 1 {
		return fmt.Errorf("SCAN_IMAGE_RATIO must be in (0,1], got %f", c.ScanImageRatio)
	}

	if c.OCRMaxPages < 1 || c.OCRMaxPages > c.MaxTextPages {
		return fmt.Errorf("OCR_MAX_PAGES must be between 1 and MAX_TEXT_PAGES, got %d", c.OCRMaxPages)
	}

	if c.OCRRenderScale < 1.0 {
		return fmt.Errorf("OCR_RENDER_SCALE must be at least 1.0, got %f", c.OCRRenderScale)
	}

	if c.SimpleModeThreshold < 1 {
		return fmt.Errorf("SIMPLE_MODE_THRESHOLD must be positive, got %d", c.SimpleModeThreshold)
	}

	return nil
}

// getEnvOrDefault gets environment variable or returns default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault gets environment variable as int or returns default
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

// getEnvAsInt64OrDefault gets environment variable as int64 or returns default
func getEnvAsInt64OrDefault(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

// getEnvAsFloatOrDefault gets environment variable as float64 or returns default
func getEnvAsFloatOrDefault(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

// getEnvAsListOrDefault gets a comma-separated environment variable or returns default
func getEnvAsListOrDefault(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
