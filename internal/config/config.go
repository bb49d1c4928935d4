package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Models holds the default model per capability. An explicit model passed
// to the gateway always wins over these.
type Models struct {
	Text       string
	TextFast   string
	Vision     string
	VisionFast string
	Audio      string
}

type Config struct {
	// Gemini
	GeminiAPIKey string
	Models       Models

	// Telegram
	TelegramToken string

	// Notion prompt store
	NotionToken       string
	NotionPromptsDBID string
	PromptCacheTTL    time.Duration

	// BigQuery
	BQProjectID string
	BQDatasetID string

	// GCS bucket for archiving inbound media. Empty disables archiving.
	MediaBucket string

	LogLevel string
}

// Load reads configuration from environment variables. Only the values
// that are fatal to miss are validated here; component constructors do
// their own checks (e.g. the model gateway rejects an empty API key).
func Load() (*Config, error) {
	cfg := &Config{
		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		Models: Models{
			Text:       getEnv("MODEL_TEXT", "gemini-2.5-pro"),
			TextFast:   getEnv("MODEL_TEXT_FAST", "gemini-2.5-flash"),
			Vision:     getEnv("MODEL_VISION", "gemini-2.5-pro"),
			VisionFast: getEnv("MODEL_VISION_FAST", "gemini-2.5-flash"),
			Audio:      getEnv("MODEL_AUDIO", "gemini-2.5-flash"),
		},
		TelegramToken:     os.Getenv("TELEGRAM_BOT_TOKEN"),
		NotionToken:       os.Getenv("NOTION_TOKEN"),
		NotionPromptsDBID: os.Getenv("NOTION_PROMPTS_DB_ID"),
		PromptCacheTTL:    getEnvDuration("PROMPT_CACHE_TTL", 5*time.Minute),
		BQProjectID:       os.Getenv("BQ_PROJECT_ID"),
		BQDatasetID:       getEnv("BQ_DATASET_ID", "finance"),
		MediaBucket:       os.Getenv("MEDIA_BUCKET"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
	}

	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("config.Load: TELEGRAM_BOT_TOKEN is required")
	}
	if cfg.BQProjectID == "" {
		return nil, fmt.Errorf("config.Load: BQ_PROJECT_ID is required")
	}

	return cfg, nil
}

// PromptStoreEnabled reports whether the Notion prompt store is usable.
func (c *Config) PromptStoreEnabled() bool {
	return c.NotionToken != "" && c.NotionPromptsDBID != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	// Accept a bare number of seconds too.
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
