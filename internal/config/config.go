package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/tmarkov/yt-verdict/pkg/log"
)

// Config holds all application configuration
// Supports environment variables with sensible defaults
//
// Environment Variables:
// Storage Configuration:
// - DATA_DIR: Root directory for all persisted data (default: ./data)
// - DB_PATH: SQLite database path (default: <DATA_DIR>/transcripts.db)
// - TRANSCRIPTS_DIR: Transcript text artifact directory (default: <DATA_DIR>/transcripts)
// - RESULTS_DIR: Analysis result artifact directory (default: <DATA_DIR>/results)
//
// Acquisition Configuration:
// - YOUTUBE_LANGS: Comma-separated caption language preference (default: en,en-GB,en-US)
// - YTDLP_PATH: yt-dlp executable name or path (default: yt-dlp)
// - FETCH_TIMEOUT: Caption HTTP timeout in seconds (default: 20)
//
// LLM Configuration:
// - LLM_API_KEY: API key for the LLM provider (required for analysis)
// - LLM_API_URL: API endpoint URL (default: https://openrouter.ai/api/v1)
// - LLM_MODEL: Model name to use (default: openai/gpt-4o)
// - LLM_MAX_TOKENS: Maximum tokens for responses (default: 4000)
// - LLM_TEMPERATURE: Temperature for responses (default: 0.2)
// - LLM_TIMEOUT: Request timeout in seconds (default: 120)
// - LLM_SITE_URL: Site URL for HTTP referer header (optional)
// - LLM_APP_NAME: Application name for X-Title header (optional)
//
// System Configuration:
// - LOG_LEVEL: debug, info, warn, error or fatal (default: info)
// - LOG_FILE: log destination file; empty logs to stdout (default: empty)

type Config struct {
	Storage StorageConfig `json:"storage"`
	Fetch   FetchConfig   `json:"fetch"`
	LLM     LLMConfig     `json:"llm"`
	System  SystemConfig  `json:"system"`
}

// StorageConfig holds database and artifact directory locations
type StorageConfig struct {
	DataDir        string `json:"data_dir"`
	DBPath         string `json:"db_path"`
	TranscriptsDir string `json:"transcripts_dir"`
	ResultsDir     string `json:"results_dir"`
}

// FetchConfig holds transcript acquisition settings
type FetchConfig struct {
	Languages    []string `json:"languages"`
	YtDlpPath    string   `json:"ytdlp_path"`
	FetchTimeout int      `json:"fetch_timeout"`
}

// LLMConfig holds the configuration for LLM client
// Supports any OpenAI-compatible provider (OpenRouter, OpenAI, etc.)
type LLMConfig struct {
	APIKey      string  `json:"api_key"`
	APIURL      string  `json:"api_url"`
	Model       string  `json:"model"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
	Timeout     int     `json:"timeout"`
	SiteURL     string  `json:"site_url"`
	AppName     string  `json:"app_name"`
}

// SystemConfig holds the system configuration
type SystemConfig struct {
	LogLevel log.LogLevel `json:"log_level"`
	LogFile  string       `json:"log_file"`
}

// Option is a function type for configuring Config
type Option func(*Config)

// WithDataDir overrides the data root and the derived paths that were not
// explicitly set in the environment.
func WithDataDir(dir string) Option {
	return func(c *Config) {
		c.Storage.DataDir = dir
		c.Storage.DBPath = filepath.Join(dir, "transcripts.db")
		c.Storage.TranscriptsDir = filepath.Join(dir, "transcripts")
		c.Storage.ResultsDir = filepath.Join(dir, "results")
	}
}

// NewFromEnv creates a new Config instance with values from environment
// variables and options. A .env file in the working directory is loaded
// first when present.
func NewFromEnv(opts ...Option) (*Config, error) {
	// Missing .env is fine, real environment wins either way.
	_ = godotenv.Load()

	dataDir := getEnvString("DATA_DIR", "./data")

	config := &Config{
		Storage: StorageConfig{
			DataDir:        dataDir,
			DBPath:         getEnvString("DB_PATH", filepath.Join(dataDir, "transcripts.db")),
			TranscriptsDir: getEnvString("TRANSCRIPTS_DIR", filepath.Join(dataDir, "transcripts")),
			ResultsDir:     getEnvString("RESULTS_DIR", filepath.Join(dataDir, "results")),
		},
		Fetch: FetchConfig{
			Languages:    getEnvList("YOUTUBE_LANGS", []string{"en", "en-GB", "en-US"}),
			YtDlpPath:    getEnvString("YTDLP_PATH", "yt-dlp"),
			FetchTimeout: getEnvInt("FETCH_TIMEOUT", 20),
		},
		LLM: LLMConfig{
			APIKey:      getEnvString("LLM_API_KEY", ""),
			APIURL:      getEnvString("LLM_API_URL", "https://openrouter.ai/api/v1"),
			Model:       getEnvString("LLM_MODEL", "openai/gpt-4o"),
			MaxTokens:   getEnvInt("LLM_MAX_TOKENS", 4000),
			Temperature: getEnvFloat("LLM_TEMPERATURE", 0.2),
			Timeout:     getEnvInt("LLM_TIMEOUT", 120),
			SiteURL:     getEnvString("LLM_SITE_URL", ""),
			AppName:     getEnvString("LLM_APP_NAME", ""),
		},
		System: SystemConfig{
			LogLevel: log.ParseLevel(getEnvString("LOG_LEVEL", "info")),
			LogFile:  getEnvString("LOG_FILE", ""),
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
	if c.Storage.DBPath == "" {
		return fmt.Errorf("DB_PATH is required")
	}
	if len(c.Fetch.Languages) == 0 {
		return fmt.Errorf("YOUTUBE_LANGS must name at least one language")
	}
	if c.Fetch.FetchTimeout <= 0 {
		return fmt.Errorf("FETCH_TIMEOUT must be positive")
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

// getEnvInt gets an integer value from environment variables with default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat gets a float value from environment variables with default
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvList gets a comma-separated list from environment variables with default
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	ret := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			ret = append(ret, trimmed)
		}
	}
	if len(ret) == 0 {
		return defaultValue
	}
	return ret
}
