package config

// DefaultConfig returns configuration with sensible defaults.
// These defaults are used when no config file exists or when
// config file is missing specific fields.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:  "anthropic",
			Model:     "claude-sonnet-4-5",
			APIKeyEnv: "ANTHROPIC_API_KEY",
			MaxTokens: 2048,
		},
		Embedding: EmbeddingConfig{
			Provider: "ollama",
			Model:    "all-minilm",
			Endpoint: "http://localhost:11434",
		},
		Indexer: IndexerConfig{
			MaxAttempts: 3,
			Locale:      "en",
			Exclude: []string{
				"vendor",
				"node_modules",
				"__pycache__",
				".venv",
				"venv",
				"dist",
				"build",
			},
		},
		Search: SearchConfig{
			DefaultLimit:  10,
			MinSimilarity: 0.7,
		},
	}
}

// Merge merges loaded config with defaults.
// Values from loaded config take precedence over defaults.
// Returns a new Config with merged values.
func Merge(loaded, defaults *Config) *Config {
	result := &Config{}

	// Merge LLM config
	result.LLM = mergeLLMConfig(loaded.LLM, defaults.LLM)

	// Merge Embedding config
	result.Embedding = mergeEmbeddingConfig(loaded.Embedding, defaults.Embedding)

	// Merge Indexer config
	result.Indexer = mergeIndexerConfig(loaded.Indexer, defaults.Indexer)

	// Merge Search config
	result.Search = mergeSearchConfig(loaded.Search, defaults.Search)

	return result
}

func mergeLLMConfig(loaded, defaults LLMConfig) LLMConfig {
	result := LLMConfig{}

	// Provider: use loaded if non-empty
	if loaded.Provider != "" {
		result.Provider = loaded.Provider
	} else {
		result.Provider = defaults.Provider
	}

	// Model: use loaded if non-empty. A provider set without a model
	// deliberately clears the default so the provider's own default
	// model applies instead of the Anthropic one.
	if loaded.Model != "" {
		result.Model = loaded.Model
	} else if loaded.Provider == "" || loaded.Provider == defaults.Provider {
		result.Model = defaults.Model
	}

	// BaseURL: use loaded if non-empty
	if loaded.BaseURL != "" {
		result.BaseURL = loaded.BaseURL
	}

	// APIKeyEnv: use loaded if non-empty, default only for the default provider
	if loaded.APIKeyEnv != "" {
		result.APIKeyEnv = loaded.APIKeyEnv
	} else if result.Provider == defaults.Provider {
		result.APIKeyEnv = defaults.APIKeyEnv
	}

	// MaxTokens: use loaded if non-zero
	if loaded.MaxTokens != 0 {
		result.MaxTokens = loaded.MaxTokens
	} else {
		result.MaxTokens = defaults.MaxTokens
	}

	return result
}

func mergeEmbeddingConfig(loaded, defaults EmbeddingConfig) EmbeddingConfig {
	result := EmbeddingConfig{}

	// Provider: use loaded if non-empty
	if loaded.Provider != "" {
		result.Provider = loaded.Provider
	} else {
		result.Provider = defaults.Provider
	}

	// Model: use loaded if non-empty
	if loaded.Model != "" {
		result.Model = loaded.Model
	} else if loaded.Provider == "" || loaded.Provider == defaults.Provider {
		result.Model = defaults.Model
	}

	// Endpoint: use loaded if non-empty, default only for the default provider
	if loaded.Endpoint != "" {
		result.Endpoint = loaded.Endpoint
	} else if result.Provider == defaults.Provider {
		result.Endpoint = defaults.Endpoint
	}

	return result
}

func mergeIndexerConfig(loaded, defaults IndexerConfig) IndexerConfig {
	result := IndexerConfig{}

	// MaxAttempts: use loaded if non-zero
	if loaded.MaxAttempts != 0 {
		result.MaxAttempts = loaded.MaxAttempts
	} else {
		result.MaxAttempts = defaults.MaxAttempts
	}

	// Locale: use loaded if non-empty
	if loaded.Locale != "" {
		result.Locale = loaded.Locale
	} else {
		result.Locale = defaults.Locale
	}

	// Use loaded exclude patterns if provided, otherwise defaults
	if len(loaded.Exclude) > 0 {
		result.Exclude = loaded.Exclude
	} else {
		result.Exclude = defaults.Exclude
	}

	return result
}

func mergeSearchConfig(loaded, defaults SearchConfig) SearchConfig {
	result := SearchConfig{}

	// DefaultLimit: use loaded if non-zero
	if loaded.DefaultLimit != 0 {
		result.DefaultLimit = loaded.DefaultLimit
	} else {
		result.DefaultLimit = defaults.DefaultLimit
	}

	// MinSimilarity: use loaded if non-zero
	if loaded.MinSimilarity != 0 {
		result.MinSimilarity = loaded.MinSimilarity
	} else {
		result.MinSimilarity = defaults.MinSimilarity
	}

	return result
}

// ValidProviders lists the valid values for the llm provider
var ValidProviders = []string{"anthropic", "openai", "ollama", "gigachat"}

// IsValidProvider checks if the given llm provider value is valid
func IsValidProvider(provider string) bool {
	for _, valid := range ValidProviders {
		if provider == valid {
			return true
		}
	}
	return false
}

// ValidEmbeddingProviders lists the valid values for the embedding provider
var ValidEmbeddingProviders = []string{"ollama", "openai"}

// IsValidEmbeddingProvider checks if the given embedding provider value is valid
func IsValidEmbeddingProvider(provider string) bool {
	for _, valid := range ValidEmbeddingProviders {
		if provider == valid {
			return true
		}
	}
	return false
}

// ValidLocales lists the valid values for the analysis locale
var ValidLocales = []string{"en", "ru"}

// IsValidLocale checks if the given locale value is valid
func IsValidLocale(locale string) bool {
	for _, valid := range ValidLocales {
		if locale == valid {
			return true
		}
	}
	return false
}
