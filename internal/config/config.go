package config

import (
	"os"
	"strconv"

	"brandtrack/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Database DatabaseConfig
	AI       AIConfig
	Server   ServerConfig
	Export   ExportConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL     string
	SSLMode string
}

// AIConfig holds LLM provider settings. At least one provider key is
// required; runs address providers by model label.
type AIConfig struct {
	OpenAIKey      string
	OpenAIModel    string
	AnthropicKey   string
	AnthropicModel string
	MaxTokens      int
	Temperature    float64
}

// ServerConfig holds web server settings. The JSON API and the report
// app listen on separate ports.
type ServerConfig struct {
	APIPort    string
	ReportPort string
	GinMode    string
}

// ExportConfig holds workbook export settings
type ExportConfig struct {
	Dir string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{
			URL:     os.Getenv("DATABASE_URL"),
			SSLMode: getEnvOrDefault("SSL_MODE", "disable"),
		},
		AI: AIConfig{
			OpenAIKey:      os.Getenv("OPENAI_API_KEY"),
			OpenAIModel:    getEnvOrDefault("OPENAI_MODEL", "gpt-4o"),
			AnthropicKey:   os.Getenv("ANTHROPIC_API_KEY"),
			AnthropicModel: getEnvOrDefault("ANTHROPIC_MODEL", "claude-sonnet-4-20250514"),
			MaxTokens:      getEnvIntOrDefault("AI_MAX_TOKENS", 2000),
			Temperature:    getEnvFloatOrDefault("AI_TEMPERATURE", 1.0),
		},
		Server: ServerConfig{
			APIPort:    getEnvOrDefault("PORT", "8080"),
			ReportPort: getEnvOrDefault("REPORT_PORT", "8090"),
			GinMode:    getEnvOrDefault("GIN_MODE", "release"),
		},
		Export: ExportConfig{
			Dir: getEnvOrDefault("EXPORT_DIR", "exports"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return errors.ConfigInvalid("DATABASE_URL is required")
	}
	if c.AI.OpenAIKey == "" && c.AI.AnthropicKey == "" {
		return errors.ConfigInvalid("at least one of OPENAI_API_KEY or ANTHROPIC_API_KEY is required")
	}
	if c.AI.MaxTokens <= 0 {
		return errors.ConfigInvalid("AI_MAX_TOKENS must be positive")
	}
	return nil
}

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvIntOrDefault(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvFloatOrDefault(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
