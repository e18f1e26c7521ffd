package config

// Config represents the top-level configuration for the engram library.
type Config struct {
	// Store configures the record store file and its lock
	Store StoreConfig `yaml:"store"`

	// Search configures retrieval defaults
	Search SearchConfig `yaml:"search"`

	// Compression configures context-block assembly defaults
	Compression CompressionConfig `yaml:"compression"`

	// Shaping configures the optional remote shaping collaborator (LLM)
	Shaping ShapingConfig `yaml:"shaping"`

	// Scripting configures the Lua hook engine
	Scripting ScriptingConfig `yaml:"scripting"`

	// Logging configures the logging behavior
	Logging LoggingConfig `yaml:"logging"`
}

// StoreConfig configures the on-disk record store.
type StoreConfig struct {
	// Path is the store file location. Empty means the ENGRAM_STORE_PATH
	// environment variable, falling back to ~/.engram/memories.json.
	Path string `yaml:"path"`

	// LockPath is the lock-marker file location. Empty means the
	// ENGRAM_LOCK_PATH environment variable, falling back to Path + ".lock".
	LockPath string `yaml:"lock_path"`

	// LockTimeoutMs bounds how long a mutation waits for the lock
	LockTimeoutMs int `yaml:"lock_timeout_ms"`
}

// SearchConfig configures retrieval defaults.
type SearchConfig struct {
	// Limit is the default maximum number of search hits
	Limit int `yaml:"limit"`
}

// CompressionConfig configures context-block assembly defaults.
type CompressionConfig struct {
	// Budget is the default character budget for compressed output
	Budget int `yaml:"budget"`

	// Limit is the default maximum number of hits considered
	Limit int `yaml:"limit"`
}

// ShapingConfig configures the remote shaping collaborator.
type ShapingConfig struct {
	// Provider selects the collaborator ("none", "openai", "mock")
	Provider string `yaml:"provider"`

	// OpenAI configures OpenAI integration
	OpenAI OpenAIConfig `yaml:"openai"`
}

// OpenAIConfig configures OpenAI integration.
type OpenAIConfig struct {
	// APIKey is the OpenAI API key
	APIKey string `yaml:"api_key"`

	// Model is the chat model used for shaping
	Model string `yaml:"model"`

	// BaseURL overrides the API endpoint (for compatible providers)
	BaseURL string `yaml:"base_url"`

	// MaxTokens caps the shaped response; 0 lets the adapter derive it
	// from the character budget
	MaxTokens int `yaml:"max_tokens"`

	// Temperature controls randomness in generation (0.0-1.0)
	Temperature float64 `yaml:"temperature"`
}

// ScriptingConfig configures the Lua hook engine.
type ScriptingConfig struct {
	// Enabled determines whether hooks run at all
	Enabled bool `yaml:"enabled"`

	// Paths is a list of directories containing Lua scripts
	Paths []string `yaml:"paths"`
}

// LoggingConfig configures logging behavior.
type LoggingConfig struct {
	// Level is the logging level ("debug", "info", "warn", "error")
	Level string `yaml:"level"`

	// Format is the log output format ("text", "json")
	Format string `yaml:"format"`
}

// DefaultConfig returns a configuration with every default applied, the
// same result as loading an empty file.
func DefaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}
