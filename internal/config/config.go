package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port     string
	LogLevel slog.Level

	// Auth for /api routes. Empty disables the check.
	APIKey string

	// Catalog. Empty uses the embedded catalog.
	RegistryFile string

	// Payload sources
	ContentDir     string
	ContentBaseURL string
	ContentAPIKey  string
	WatchContent   bool
	FetchTimeout   time.Duration

	// Payload cache and prefetch
	CacheTTL      time.Duration
	WarmWorkers   int
	WarmQueueSize int

	// View state
	ViewTTL time.Duration

	// Scroll tracking
	ActivationTop    float64
	ActivationBottom float64
	ExtendThreshold  float64
	SettleDelay      time.Duration

	// PDF
	PDFFallbackPdftotext bool
}

func Load() Config {
	cfg := Config{
		Port:     envOr("PORT", "8090"),
		LogLevel: parseLevel(os.Getenv("LOG_LEVEL")),

		APIKey: os.Getenv("API_KEY"),

		RegistryFile: os.Getenv("REGISTRY_FILE"),

		ContentDir:     envOr("CONTENT_DIR", "./content"),
		ContentBaseURL: os.Getenv("CONTENT_BASE_URL"),
		ContentAPIKey:  os.Getenv("CONTENT_API_KEY"),
		WatchContent:   envBool("WATCH_CONTENT", true),
		FetchTimeout:   envDuration("FETCH_TIMEOUT", 15*time.Second),

		CacheTTL:      envDuration("CACHE_TTL", 10*time.Minute),
		WarmWorkers:   envInt("WARM_WORKERS", 4),
		WarmQueueSize: envInt("WARM_QUEUE_SIZE", 256),

		ViewTTL: envDuration("VIEW_TTL", 30*time.Minute),

		ActivationTop:    envFloat("ACTIVATION_TOP", 150),
		ActivationBottom: envFloat("ACTIVATION_BOTTOM", 100),
		ExtendThreshold:  envFloat("EXTEND_THRESHOLD", 300),
		SettleDelay:      envDuration("SETTLE_DELAY", 300*time.Millisecond),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),
	}

	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 15 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	if cfg.WarmWorkers <= 0 {
		cfg.WarmWorkers = 4
	}
	if cfg.WarmQueueSize <= 0 {
		cfg.WarmQueueSize = 256
	}
	if cfg.ViewTTL <= 0 {
		cfg.ViewTTL = 30 * time.Minute
	}
	if cfg.ExtendThreshold <= 0 {
		cfg.ExtendThreshold = 300
	}
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = 300 * time.Millisecond
	}

	return cfg
}

func (c Config) Validate() error {
	if c.ContentDir == "" && c.ContentBaseURL == "" {
		return fmt.Errorf("CONTENT_DIR or CONTENT_BASE_URL is required")
	}
	if c.ActivationTop < c.ActivationBottom {
		return fmt.Errorf("ACTIVATION_TOP (%g) must not be below ACTIVATION_BOTTOM (%g)", c.ActivationTop, c.ActivationBottom)
	}
	return nil
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
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

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
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
