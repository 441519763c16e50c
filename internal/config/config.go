package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/robfig/cron/v3"
	"golang.org/x/text/language"
)

// Config holds all application configuration, loaded from environment
// variables with sensible defaults.
//
// Environment Variables:
// LLM Configuration:
// - LLM_API_KEY: API key for the LLM provider (required)
// - LLM_API_URL: API endpoint URL (default: https://openrouter.ai/api/v1)
// - LLM_MODEL: Model name to use (default: openai/gpt-4o-mini)
// - LLM_EMBEDDING_MODEL: Embedding model for glossary indexing (optional)
// - LLM_MAX_TOKENS: Maximum tokens for responses (default: 8000)
// - LLM_TIMEOUT: Request timeout in seconds (default: 60)
// - LLM_MAX_RETRIES: Gateway retry attempts (default: 3)
// - LLM_INITIAL_BACKOFF_MS: First retry delay in milliseconds (default: 200)
// - LLM_SITE_URL: Site URL for HTTP referer header (optional)
// - LLM_APP_NAME: Application name for X-Title header (optional)
//
// Translation Configuration:
// - TARGET_LANGUAGE: BCP 47 tag of the translation target (default: zh)
// - TRANSLATE_TONE: Default tone guidance (default: neutral)
// - TRANSLATE_BATCH_SIZE: Subtitle lines per batch (default: 20)
//
// Server Configuration:
// - SERVER_ADDR: HTTP listen address (default: :8080)
// - DATA_DIR: Directory for the job database (default: ./data)
// - APP_ENV: Deployment environment name (default: development)
// - LOG_LEVEL: debug/info/warn/error (default: info)
//
// Maintenance:
// - JOBS_PRUNE_CRON: Cron expression for the prune sweep (default: 0 3 * * *, empty disables)
// - JOBS_RETENTION_DAYS: Age before terminal jobs are pruned (default: 30)

type Config struct {
	LLM       LLMConfig       `json:"llm"`
	Translate TranslateConfig `json:"translate"`
	Server    ServerConfig    `json:"server"`
	Jobs      JobsConfig      `json:"jobs"`
}

// LLMConfig holds the configuration for the model gateway.
// Supports any OpenAI-compatible provider.
type LLMConfig struct {
	APIKey           string `json:"api_key"`
	APIURL           string `json:"api_url"`
	Model            string `json:"model"`
	EmbeddingModel   string `json:"embedding_model"`
	MaxTokens        int    `json:"max_tokens"`
	Timeout          int    `json:"timeout"`
	MaxRetries       int    `json:"max_retries"`
	InitialBackoffMS int    `json:"initial_backoff_ms"`
	SiteURL          string `json:"site_url"`
	AppName          string `json:"app_name"`
}

type TranslateConfig struct {
	TargetLanguage language.Tag `json:"target_language"`
	Tone           string       `json:"tone"`
	BatchSize      int          `json:"batch_size"`
}

type ServerConfig struct {
	Addr        string `json:"addr"`
	DataDir     string `json:"data_dir"`
	Environment string `json:"environment"`
	LogLevel    string `json:"log_level"`
}

type JobsConfig struct {
	PruneCron     string `json:"prune_cron"`
	RetentionDays int    `json:"retention_days"`
}

// Option is a function type for configuring Config
type Option func(*Config)

// NewFromEnv creates a new Config instance with values from environment
// variables and options.
func NewFromEnv(opts ...Option) (*Config, error) {
	targetTag, err := language.Parse(getEnvString("TARGET_LANGUAGE", "zh"))
	if err != nil {
		return nil, fmt.Errorf("invalid TARGET_LANGUAGE: %w", err)
	}

	config := &Config{
		LLM: LLMConfig{
			APIKey:           getEnvString("LLM_API_KEY", ""),
			APIURL:           getEnvString("LLM_API_URL", "https://openrouter.ai/api/v1"),
			Model:            getEnvString("LLM_MODEL", "openai/gpt-4o-mini"),
			EmbeddingModel:   getEnvString("LLM_EMBEDDING_MODEL", ""),
			MaxTokens:        getEnvInt("LLM_MAX_TOKENS", 8000),
			Timeout:          getEnvInt("LLM_TIMEOUT", 60),
			MaxRetries:       getEnvInt("LLM_MAX_RETRIES", 3),
			InitialBackoffMS: getEnvInt("LLM_INITIAL_BACKOFF_MS", 200),
			SiteURL:          getEnvString("LLM_SITE_URL", ""),
			AppName:          getEnvString("LLM_APP_NAME", ""),
		},
		Translate: TranslateConfig{
			TargetLanguage: targetTag,
			Tone:           getEnvString("TRANSLATE_TONE", "neutral"),
			BatchSize:      getEnvInt("TRANSLATE_BATCH_SIZE", 20),
		},
		Server: ServerConfig{
			Addr:        getEnvString("SERVER_ADDR", ":8080"),
			DataDir:     getEnvString("DATA_DIR", "./data"),
			Environment: getEnvString("APP_ENV", "development"),
			LogLevel:    getEnvString("LOG_LEVEL", "info"),
		},
		Jobs: JobsConfig{
			// set to an empty string to disable the sweep
			PruneCron:     lookupEnvString("JOBS_PRUNE_CRON", "0 3 * * *"),
			RetentionDays: getEnvInt("JOBS_RETENTION_DAYS", 30),
		},
	}

	// Apply custom options
	for _, opt := range opts {
		opt(config)
	}

	// Validate required configuration
	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// validate checks if all required configuration is properly set
func (c *Config) validate() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("LLM_API_KEY is required")
	}
	if c.Translate.BatchSize < 1 {
		return fmt.Errorf("TRANSLATE_BATCH_SIZE must be at least 1")
	}
	if c.Jobs.PruneCron != "" {
		if _, err := cron.ParseStandard(c.Jobs.PruneCron); err != nil {
			return fmt.Errorf("invalid JOBS_PRUNE_CRON: %w", err)
		}
	}
	if c.Jobs.RetentionDays < 1 {
		return fmt.Errorf("JOBS_RETENTION_DAYS must be at least 1")
	}
	return nil
}

// getEnvString gets a string value from environment variables with default
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// lookupEnvString is like getEnvString but keeps an explicitly set
// empty value instead of replacing it with the default.
func lookupEnvString(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer value from environment variables with default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
