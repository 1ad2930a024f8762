package llm

import (
	"context"
	"encoding/json"
	"fmt"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicModel = "claude-sonnet-4-5"

// AnthropicConfig configures the Anthropic-backed analyzer.
type AnthropicConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
}

// AnthropicAnalyzer runs semantic analysis through the Anthropic
// Messages API.
type AnthropicAnalyzer struct {
	client    *anthropic.Client
	model     string
	maxTokens int64
}

// NewAnthropicAnalyzer builds the analyzer. The API key is required;
// model and max tokens fall back to defaults.
func NewAnthropicAnalyzer(cfg AnthropicConfig) (*AnthropicAnalyzer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic analyzer: missing API key")
	}
	if cfg.Model == "" {
		cfg.Model = defaultAnthropicModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 2048
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := anthropic.NewClient(opts...)

	return &AnthropicAnalyzer{
		client:    &client,
		model:     cfg.Model,
		maxTokens: int64(cfg.MaxTokens),
	}, nil
}

// Analyze sends one entity for analysis and parses the structured
// result, repairing almost-JSON output when needed.
func (a *AnthropicAnalyzer) Analyze(ctx context.Context, req Request) (*Result, error) {
	text, tokens, err := a.complete(ctx, analysisSystemPrompt, buildAnalysisPrompt(req))
	if err != nil {
		return nil, err
	}
	analysis, outcome, err := ParseAnalysis(text)
	if err != nil {
		return nil, err
	}
	return &Result{Analysis: analysis, Outcome: outcome, TokensUsed: tokens}, nil
}

// RefineQuery asks the model to classify a search query.
func (a *AnthropicAnalyzer) RefineQuery(ctx context.Context, query string) (*Refinement, error) {
	text, _, err := a.complete(ctx, refineSystemPrompt, query)
	if err != nil {
		return nil, err
	}
	var r Refinement
	if err := json.Unmarshal([]byte(extractObject(stripFences(text))), &r); err != nil {
		return nil, &MalformedResponseError{Reason: "refinement not decodable", Raw: text}
	}
	return &r, nil
}

func (a *AnthropicAnalyzer) complete(ctx context.Context, system, prompt string) (string, int, error) {
	msg, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: a.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", 0, classifyProviderError(fmt.Errorf("anthropic messages: %w", err))
	}

	var text string
	for _, block := range msg.Content {
		if b, ok := block.AsAny().(anthropic.TextBlock); ok {
			text += b.Text
		}
	}
	tokens := int(msg.Usage.InputTokens + msg.Usage.OutputTokens)
	return text, tokens, nil
}
