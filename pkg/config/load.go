package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Defaults applied by validation when a field is unset.
const (
	DefaultLockTimeoutMs     = 2500
	DefaultSearchLimit       = 10
	DefaultCompressionBudget = 2000
	DefaultCompressionLimit  = 25
	DefaultOpenAIModel       = "gpt-4o-mini"
)

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return LoadFromBytes(data)
}

// LoadFromBytes loads configuration from a byte slice.
func LoadFromBytes(data []byte) (*Config, error) {
	var config Config

	err := yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Apply environment variable overrides
	applyEnvironmentOverrides(&config)

	// Validate configuration
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// applyEnvironmentOverrides applies environment variable overrides to the config.
func applyEnvironmentOverrides(config *Config) {
	// Store path override
	if path := os.Getenv("ENGRAM_STORE_PATH"); path != "" {
		config.Store.Path = path
	}

	// Lock marker path override
	if path := os.Getenv("ENGRAM_LOCK_PATH"); path != "" {
		config.Store.LockPath = path
	}

	// Log level override
	if level := os.Getenv("ENGRAM_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	// OpenAI API key override
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		config.Shaping.OpenAI.APIKey = apiKey
	}
}

// applyDefaults fills unset fields with their defaults.
func applyDefaults(config *Config) {
	if config.Store.LockTimeoutMs <= 0 {
		config.Store.LockTimeoutMs = DefaultLockTimeoutMs
	}

	if config.Search.Limit <= 0 {
		config.Search.Limit = DefaultSearchLimit
	}

	if config.Compression.Budget <= 0 {
		config.Compression.Budget = DefaultCompressionBudget
	}
	if config.Compression.Limit <= 0 {
		config.Compression.Limit = DefaultCompressionLimit
	}

	if config.Shaping.Provider == "" {
		config.Shaping.Provider = "none"
	}

	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}
	if config.Logging.Format == "" {
		config.Logging.Format = "text"
	}
}

// validateConfig validates the configuration and applies defaults.
func validateConfig(config *Config) error {
	applyDefaults(config)

	// Validate shaping configuration
	switch strings.ToLower(config.Shaping.Provider) {
	case "none", "mock":
		// No further validation needed
	case "openai":
		// API key can arrive via environment variable or .env, so absence
		// here is not an error; the adapter rejects an empty key at
		// construction time.
		if config.Shaping.OpenAI.Model == "" {
			config.Shaping.OpenAI.Model = DefaultOpenAIModel
		}
		if config.Shaping.OpenAI.Temperature < 0 || config.Shaping.OpenAI.Temperature > 1.0 {
			config.Shaping.OpenAI.Temperature = 0.2
		}
		if config.Shaping.OpenAI.MaxTokens < 0 {
			config.Shaping.OpenAI.MaxTokens = 0
		}
	default:
		return fmt.Errorf("unsupported shaping provider: %s", config.Shaping.Provider)
	}

	// Validate scripting configuration
	for _, p := range config.Scripting.Paths {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("scripting paths must not contain empty entries")
		}
	}

	// Validate logging configuration
	switch strings.ToLower(config.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unsupported log level: %s", config.Logging.Level)
	}
	switch strings.ToLower(config.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("unsupported log format: %s", config.Logging.Format)
	}

	return nil
}
