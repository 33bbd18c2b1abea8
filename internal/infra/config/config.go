package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application.
type AppConfig struct {
	TelegramToken string
	DatabaseURL   string

	GeminiAPIKey   string
	GeminiModel    string
	GeminiTTSModel string
	GeminiTTSVoice string

	// ScheduleCron is the 5-field cron expression of the default daily job.
	// It is not validated here: an invalid value disables the default job
	// with a logged error rather than failing startup.
	ScheduleCron string
	Timezone     string

	LogLevel    string
	Environment string
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// Attempt to load .env file. Errors are ignored if the file doesn't exist.
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_TOKEN is not set")
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	// A missing Gemini key is allowed: the content provider degrades to its
	// canned fallback payloads instead of calling the API.
	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")

	cfg.GeminiModel = os.Getenv("GEMINI_MODEL")
	if cfg.GeminiModel == "" {
		cfg.GeminiModel = "gemini-2.5-flash"
	}
	cfg.GeminiTTSModel = os.Getenv("GEMINI_TTS_MODEL")
	if cfg.GeminiTTSModel == "" {
		cfg.GeminiTTSModel = "gemini-2.5-flash-preview-tts"
	}
	cfg.GeminiTTSVoice = os.Getenv("GEMINI_TTS_VOICE")

	cfg.ScheduleCron = os.Getenv("SCHEDULE_CRON")
	if cfg.ScheduleCron == "" {
		cfg.ScheduleCron = "0 10 * * *" // Default: 10:00 daily
	}

	cfg.Timezone = os.Getenv("TZ")
	if cfg.Timezone == "" {
		cfg.Timezone = "UTC"
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return nil, fmt.Errorf("invalid TZ %q: %w", cfg.Timezone, err)
	}

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	return cfg, nil
}

// Location resolves the configured timezone. Load already validated it.
func (c *AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
