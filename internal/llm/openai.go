package llm

import (
	"context"
	"encoding/json"
	"fmt"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIConfig configures an analyzer speaking the OpenAI chat
// completions protocol. Ollama, vLLM and GigaChat all expose this
// surface, so one client covers every self-hosted deployment.
type OpenAIConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int

	// Tokens, when set, supplies a short-lived bearer token per
	// request instead of the static API key.
	Tokens TokenSource
}

// OpenAIAnalyzer runs semantic analysis through a chat completions
// endpoint.
type OpenAIAnalyzer struct {
	client    *openai.Client
	model     string
	maxTokens int64
	tokens    TokenSource
}

func NewOpenAIAnalyzer(cfg OpenAIConfig) (*OpenAIAnalyzer, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("openai analyzer: missing model")
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 2048
	}

	opts := []option.RequestOption{}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := openai.NewClient(opts...)

	return &OpenAIAnalyzer{
		client:    &client,
		model:     cfg.Model,
		maxTokens: int64(cfg.MaxTokens),
		tokens:    cfg.Tokens,
	}, nil
}

func (a *OpenAIAnalyzer) Analyze(ctx context.Context, req Request) (*Result, error) {
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

func (a *OpenAIAnalyzer) RefineQuery(ctx context.Context, query string) (*Refinement, error) {
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

func (a *OpenAIAnalyzer) complete(ctx context.Context, system, prompt string) (string, int, error) {
	var reqOpts []option.RequestOption
	if a.tokens != nil {
		token, err := a.tokens.Token(ctx)
		if err != nil {
			return "", 0, fmt.Errorf("fetch provider token: %w", err)
		}
		reqOpts = append(reqOpts, option.WithHeader("Authorization", "Bearer "+token))
	}

	resp, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(a.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(prompt),
		},
		MaxTokens: openai.Int(a.maxTokens),
	}, reqOpts...)
	if err != nil {
		return "", 0, classifyProviderError(fmt.Errorf("chat completion: %w", err))
	}
	if len(resp.Choices) == 0 {
		return "", 0, &MalformedResponseError{Reason: "empty choices"}
	}
	return resp.Choices[0].Message.Content, int(resp.Usage.TotalTokens), nil
}
