package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ConfigFileName is the name of the ragdoll configuration file
const ConfigFileName = "config.yaml"

// ConfigDirName is the name of the ragdoll configuration directory
const ConfigDirName = ".ragdoll"

// Config holds all ragdoll configuration
type Config struct {
	LLM       LLMConfig       `yaml:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Indexer   IndexerConfig   `yaml:"indexer"`
	Search    SearchConfig    `yaml:"search"`
}

// LLMConfig holds configuration for the semantic-analysis provider
type LLMConfig struct {
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env"`
	MaxTokens int    `yaml:"max_tokens"`
}

// EmbeddingConfig holds configuration for the embedding backend
type EmbeddingConfig struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	Endpoint string `yaml:"endpoint"`
}

// IndexerConfig holds configuration for the indexing pipeline
type IndexerConfig struct {
	MaxAttempts int      `yaml:"max_attempts"`
	Locale      string   `yaml:"locale"`
	Exclude     []string `yaml:"exclude"`
}

// SearchConfig holds configuration for search defaults
type SearchConfig struct {
	DefaultLimit  int     `yaml:"default_limit"`
	MinSimilarity float64 `yaml:"min_similarity"`
}

// ErrConfigNotFound is returned when no config file can be found
var ErrConfigNotFound = errors.New("config file not found")

// ErrInvalidConfig is returned when config validation fails
var ErrInvalidConfig = errors.New("invalid configuration")

// Load reads config from .ragdoll/config.yaml, falling back to defaults.
// It searches for the config directory starting from workDir and walking up
// the directory tree. If no config is found, returns defaults.
func Load(workDir string) (*Config, error) {
	configDir, err := FindConfigDir(workDir)
	if err != nil {
		// No config dir found, return defaults
		return DefaultConfig(), nil
	}

	configPath := filepath.Join(configDir, ConfigFileName)
	return LoadFromPath(configPath)
}

// LoadFromPath reads config from a specific path.
// Merges loaded config with defaults and validates the result.
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	loaded := &Config{}
	if err := yaml.Unmarshal(data, loaded); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Merge with defaults
	merged := Merge(loaded, DefaultConfig())

	// Validate the merged config
	if err := Validate(merged); err != nil {
		return nil, err
	}

	return merged, nil
}

// FindConfigDir locates the .ragdoll directory by walking up from startDir.
// Returns the path to the .ragdoll directory if found.
func FindConfigDir(startDir string) (string, error) {
	// Get absolute path
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	currentDir := absDir
	for {
		configDir := filepath.Join(currentDir, ConfigDirName)
		info, err := os.Stat(configDir)
		if err == nil && info.IsDir() {
			return configDir, nil
		}

		// Move to parent directory
		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			// Reached root, config not found
			return "", ErrConfigNotFound
		}
		currentDir = parentDir
	}
}

// EnsureConfigDir creates the .ragdoll directory if it doesn't exist.
// Returns the path to the .ragdoll directory.
func EnsureConfigDir(workDir string) (string, error) {
	// Get absolute path
	absDir, err := filepath.Abs(workDir)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	configDir := filepath.Join(absDir, ConfigDirName)

	// Check if it already exists
	info, err := os.Stat(configDir)
	if err == nil {
		if info.IsDir() {
			return configDir, nil
		}
		return "", fmt.Errorf("%s exists but is not a directory", configDir)
	}

	// Create the directory
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}

	return configDir, nil
}

// APIKey resolves the provider API key from the configured environment
// variable. Empty when the variable is unset or the provider needs none.
func (c *Config) APIKey() string {
	if c.LLM.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.LLM.APIKeyEnv)
}

// Validate checks that config values are valid.
// Returns an error if validation fails.
func Validate(cfg *Config) error {
	// Validate LLM provider
	if !IsValidProvider(cfg.LLM.Provider) {
		return fmt.Errorf("%w: llm provider must be one of %v, got %q",
			ErrInvalidConfig, ValidProviders, cfg.LLM.Provider)
	}

	// Validate max_tokens (should be positive)
	if cfg.LLM.MaxTokens <= 0 {
		return fmt.Errorf("%w: llm max_tokens must be positive, got %d",
			ErrInvalidConfig, cfg.LLM.MaxTokens)
	}

	// Validate embedding provider
	if !IsValidEmbeddingProvider(cfg.Embedding.Provider) {
		return fmt.Errorf("%w: embedding provider must be one of %v, got %q",
			ErrInvalidConfig, ValidEmbeddingProviders, cfg.Embedding.Provider)
	}

	// Validate indexer retry attempts (should be positive)
	if cfg.Indexer.MaxAttempts <= 0 {
		return fmt.Errorf("%w: indexer max_attempts must be positive, got %d",
			ErrInvalidConfig, cfg.Indexer.MaxAttempts)
	}

	// Validate locale
	if !IsValidLocale(cfg.Indexer.Locale) {
		return fmt.Errorf("%w: indexer locale must be one of %v, got %q",
			ErrInvalidConfig, ValidLocales, cfg.Indexer.Locale)
	}

	// Validate search limit (should be positive)
	if cfg.Search.DefaultLimit <= 0 {
		return fmt.Errorf("%w: search default_limit must be positive, got %d",
			ErrInvalidConfig, cfg.Search.DefaultLimit)
	}

	// Validate similarity floor (should be between 0 and 1)
	if cfg.Search.MinSimilarity < 0 || cfg.Search.MinSimilarity > 1 {
		return fmt.Errorf("%w: search min_similarity must be between 0 and 1, got %f",
			ErrInvalidConfig, cfg.Search.MinSimilarity)
	}

	return nil
}

// SaveDefault writes the default configuration to .ragdoll/config.yaml in workDir.
// Creates the .ragdoll directory if it doesn't exist.
func SaveDefault(workDir string) (string, error) {
	configDir, err := EnsureConfigDir(workDir)
	if err != nil {
		return "", err
	}

	configPath := filepath.Join(configDir, ConfigFileName)

	// Check if file already exists
	if _, err := os.Stat(configPath); err == nil {
		return "", fmt.Errorf("config file already exists: %s", configPath)
	}

	cfg := DefaultConfig()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("marshaling config: %w", err)
	}

	// Add header comment
	header := "# ragdoll configuration\n# See https://github.com/zolll23/ragdoll for documentation\n\n"
	data = append([]byte(header), data...)

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return "", fmt.Errorf("writing config file: %w", err)
	}

	return configPath, nil
}
