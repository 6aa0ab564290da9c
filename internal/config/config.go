package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

type Config struct {
	// fal.ai queue API
	FalAPIKey        string
	FalQueueURL      string
	FalWebhookSecret string

	// Webhook
	WebhookCallbackURL string

	// Model catalog
	ModelCatalogPath string
	JobCacheSize     int

	// Supabase
	SupabaseURL            string
	SupabasePublishableKey string
	SupabaseStorageBucket  string

	// Database
	DatabaseURL string
	StoreDriver string

	// API
	MaxPageSize int

	// Logging
	LogLevel  string
	LogFormat string

	// Server
	Port        string
	Environment string
	BaseURL     string
}

// Load reads configuration from the environment. A .env file in the working
// directory, when present, is loaded first without overriding variables that
// are already set.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		FalAPIKey:        getEnv("FAL_API_KEY", ""),
		FalQueueURL:      getEnv("FAL_QUEUE_URL", "https://queue.fal.run"),
		FalWebhookSecret: getEnv("FAL_WEBHOOK_SECRET", ""),

		WebhookCallbackURL: getEnv("WEBHOOK_CALLBACK_URL", ""),

		ModelCatalogPath: getEnv("MODEL_CATALOG_PATH", ""),
		JobCacheSize:     getEnvInt("JOB_CACHE_SIZE", 1024),

		SupabaseURL:            getEnv("SUPABASE_URL", ""),
		SupabasePublishableKey: getEnv("SUPABASE_PUBLISHABLE_KEY", ""),
		SupabaseStorageBucket:  getEnv("SUPABASE_STORAGE_BUCKET", "generated-photos"),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		StoreDriver: getEnv("STORE_DRIVER", StoreDriverPostgres),

		MaxPageSize: getEnvInt("MAX_PAGE_SIZE", 100),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		BaseURL:     getEnv("BASE_URL", "http://localhost:8080"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.FalAPIKey == "" {
		return fmt.Errorf("FAL_API_KEY is required")
	}
	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER=postgres")
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", StoreDriverPostgres, StoreDriverMemory, c.StoreDriver)
	}
	if c.SupabaseURL != "" && c.SupabasePublishableKey == "" {
		return fmt.Errorf("SUPABASE_PUBLISHABLE_KEY is required when SUPABASE_URL is set")
	}
	if c.MaxPageSize < 1 {
		return fmt.Errorf("MAX_PAGE_SIZE must be positive")
	}
	if c.JobCacheSize < 1 {
		return fmt.Errorf("JOB_CACHE_SIZE must be positive")
	}
	return nil
}

// SupabaseEnabled reports whether the storage mirror and realtime publisher
// should be wired.
func (c *Config) SupabaseEnabled() bool {
	return c.SupabaseURL != ""
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}
