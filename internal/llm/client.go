// Package llm provides the LLM transport used by the drafter and validator:
// a langchaingo-backed client, retry/timeout wrapping, and repair of the
// loosely-structured JSON that models return.
package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/siteops/pkg/models"
)

// Client is the minimal generation interface the pipeline stages depend on.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Name() string
}

// Config selects and configures the underlying model provider.
type Config struct {
	Provider    string  // "openai" or "googleai"
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
}

// LangchainClient implements Client on top of langchaingo model bindings.
type LangchainClient struct {
	llm         llms.Model
	provider    string
	temperature float64
	maxTokens   int
	usage       models.TokenUsage
}

// New constructs a client for the configured provider.
func New(ctx context.Context, cfg Config) (*LangchainClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required for provider %q", cfg.Provider)
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 8192
	}

	var model llms.Model
	var err error

	switch cfg.Provider {
	case "openai":
		opts := []openai.Option{openai.WithToken(cfg.APIKey)}
		if cfg.Model != "" {
			opts = append(opts, openai.WithModel(cfg.Model))
		}
		model, err = openai.New(opts...)
	case "googleai", "gemini":
		opts := []googleai.Option{googleai.WithAPIKey(cfg.APIKey)}
		if cfg.Model != "" {
			opts = append(opts, googleai.WithDefaultModel(cfg.Model))
		}
		model, err = googleai.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unsupported AI provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", cfg.Provider, err)
	}

	return &LangchainClient{
		llm:         model,
		provider:    cfg.Provider,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

// Generate sends a single prompt and returns the raw model output.
func (c *LangchainClient) Generate(ctx context.Context, prompt string) (string, error) {
	response, err := llms.GenerateFromSinglePrompt(ctx, c.llm, prompt,
		llms.WithTemperature(c.temperature),
		llms.WithMaxTokens(c.maxTokens),
	)
	if err != nil {
		return "", fmt.Errorf("llm generation failed: %w", err)
	}

	c.usage.Requests++
	c.usage.InputTokens += estimateTokens(prompt)
	c.usage.OutputTokens += estimateTokens(response)

	return response, nil
}

// Name returns the provider name.
func (c *LangchainClient) Name() string {
	return c.provider
}

// Usage returns the accumulated token usage. Counts are estimated from
// character length since langchaingo does not surface provider token
// counts on the single-prompt path.
func (c *LangchainClient) Usage() models.TokenUsage {
	return c.usage
}

// estimateTokens approximates token count at 4 characters per token.
func estimateTokens(text string) int {
	return len(text) / 4
}
