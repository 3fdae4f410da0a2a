package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port string

	// Auth
	APIKey string

	// Tagger service
	TaggerURL     string
	TaggerAPIKey  string
	TaggerTimeout time.Duration

	// Worker pool
	WorkerCount       int
	MaxQueueSize      int
	MaxConcurrentDocs int
	MaxConcurrentTag  int

	// Upload limits
	MaxUploadBytes int64

	// Chunking
	ChunkSize int

	// Merging
	MergeMaxClimb int
	DefaultFormat string

	// Job state
	JobTTL time.Duration

	LogLevel  string
	LogFormat string

	// PDF
	PDFFallbackPdftotext bool
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		APIKey: os.Getenv("ANNOMERGE_API_KEY"),

		TaggerURL:     os.Getenv("TAGGER_URL"),
		TaggerAPIKey:  os.Getenv("TAGGER_API_KEY"),
		TaggerTimeout: envDuration("TAGGER_TIMEOUT", 120*time.Second),

		WorkerCount:       envInt("WORKER_COUNT", 4),
		MaxQueueSize:      envInt("MAX_QUEUE_SIZE", 100),
		MaxConcurrentDocs: envInt("MAX_CONCURRENT_DOCS", 4),
		MaxConcurrentTag:  envInt("MAX_CONCURRENT_TAG", 5),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		ChunkSize: envInt("TAGGER_CHUNK_SIZE", 1500),

		MergeMaxClimb: envInt("MERGE_MAX_CLIMB", 8),
		DefaultFormat: strings.ToLower(os.Getenv("DEFAULT_FORMAT")),

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),

		LogLevel:  envOr("LOG_LEVEL", "info"),
		LogFormat: envOr("LOG_FORMAT", "json"),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),
	}

	if cfg.TaggerTimeout <= 0 {
		cfg.TaggerTimeout = 120 * time.Second
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxConcurrentDocs <= 0 {
		cfg.MaxConcurrentDocs = 4
	}
	if cfg.MaxConcurrentTag <= 0 {
		cfg.MaxConcurrentTag = 5
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 1500
	}
	if cfg.MergeMaxClimb <= 0 {
		cfg.MergeMaxClimb = 8
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}

	return cfg
}

func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("ANNOMERGE_API_KEY is required")
	}
	switch c.DefaultFormat {
	case "", "tei", "folia":
	default:
		return fmt.Errorf("DEFAULT_FORMAT must be tei or folia, got %q", c.DefaultFormat)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be debug, info, warn or error, got %q", c.LogLevel)
	}
	return nil
}

func envOr(key, fallback string) string {
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

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
