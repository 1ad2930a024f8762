package cmd

import (
	"fmt"
	"os"

	"github.com/zolll23/ragdoll/internal/config"
	"github.com/zolll23/ragdoll/internal/embeddings"
	"github.com/zolll23/ragdoll/internal/llm"
)

const (
	defaultOllamaChatURL = "http://localhost:11434/v1"
	gigaChatAPIURL       = "https://gigachat.devices.sberbank.ru/api/v1"
)

// buildAnalyzer constructs the semantic analysis provider from config.
// A missing credential is not fatal: the indexer writes fallback
// records when the analyzer is nil.
func buildAnalyzer(cfg *config.Config) (llm.Analyzer, error) {
	switch cfg.LLM.Provider {
	case "anthropic":
		key := cfg.APIKey()
		if key == "" {
			return nil, fmt.Errorf("anthropic: set %s", keyEnvName(cfg, "ANTHROPIC_API_KEY"))
		}
		return llm.NewAnthropicAnalyzer(llm.AnthropicConfig{
			APIKey:    key,
			BaseURL:   cfg.LLM.BaseURL,
			Model:     cfg.LLM.Model,
			MaxTokens: cfg.LLM.MaxTokens,
		})

	case "openai":
		key := cfg.APIKey()
		if key == "" {
			key = os.Getenv("OPENAI_API_KEY")
		}
		if key == "" {
			return nil, fmt.Errorf("openai: set %s", keyEnvName(cfg, "OPENAI_API_KEY"))
		}
		return llm.NewOpenAIAnalyzer(llm.OpenAIConfig{
			APIKey:    key,
			BaseURL:   cfg.LLM.BaseURL,
			Model:     cfg.LLM.Model,
			MaxTokens: cfg.LLM.MaxTokens,
		})

	case "ollama":
		baseURL := cfg.LLM.BaseURL
		if baseURL == "" {
			baseURL = defaultOllamaChatURL
		}
		return llm.NewOpenAIAnalyzer(llm.OpenAIConfig{
			BaseURL:   baseURL,
			Model:     cfg.LLM.Model,
			MaxTokens: cfg.LLM.MaxTokens,
		})

	case "gigachat":
		authKey := cfg.APIKey()
		if authKey == "" {
			authKey = os.Getenv("GIGACHAT_AUTH_KEY")
		}
		if authKey == "" {
			return nil, fmt.Errorf("gigachat: set %s", keyEnvName(cfg, "GIGACHAT_AUTH_KEY"))
		}
		baseURL := cfg.LLM.BaseURL
		if baseURL == "" {
			baseURL = gigaChatAPIURL
		}
		tokens := llm.NewGigaChatTokens(authKey, llm.NewTokenCache())
		return llm.NewOpenAIAnalyzer(llm.OpenAIConfig{
			BaseURL:   baseURL,
			Model:     cfg.LLM.Model,
			MaxTokens: cfg.LLM.MaxTokens,
			Tokens:    tokens,
		})

	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.LLM.Provider)
	}
}

func keyEnvName(cfg *config.Config, fallback string) string {
	if cfg.LLM.APIKeyEnv != "" {
		return cfg.LLM.APIKeyEnv
	}
	return fallback
}

// buildEmbedder constructs the embedding backend from config.
func buildEmbedder(cfg *config.Config) (embeddings.Embedder, error) {
	switch cfg.Embedding.Provider {
	case "ollama":
		return embeddings.NewOllamaEmbedderWithConfig(cfg.Embedding.Endpoint, cfg.Embedding.Model), nil
	case "openai":
		key := os.Getenv("OPENAI_API_KEY")
		if key == "" {
			return nil, fmt.Errorf("openai embeddings: set OPENAI_API_KEY")
		}
		return embeddings.NewOpenAIEmbedder(key, cfg.Embedding.Endpoint, cfg.Embedding.Model)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Embedding.Provider)
	}
}

// buildRefiner returns the optional search-time query refiner. Both
// chat providers implement it; nil when no provider is reachable.
func buildRefiner(cfg *config.Config) llm.QueryRefiner {
	analyzer, err := buildAnalyzer(cfg)
	if err != nil {
		return nil
	}
	refiner, ok := analyzer.(llm.QueryRefiner)
	if !ok {
		return nil
	}
	return refiner
}
