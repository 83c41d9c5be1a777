package llm

import (
	"context"
	"time"

	"github.com/siteops/internal/logging"
	"github.com/siteops/internal/retry"
)

// ResilientClient wraps a Client with retry logic and per-request timeouts.
type ResilientClient struct {
	client      Client
	retryConfig retry.Config
}

// NewResilientClient creates a resilient wrapper around client.
func NewResilientClient(client Client, config retry.Config) *ResilientClient {
	return &ResilientClient{
		client:      client,
		retryConfig: config,
	}
}

// NewResilientClientWithDefaults uses the LLM-tuned retry configuration.
func NewResilientClientWithDefaults(client Client) *ResilientClient {
	return NewResilientClient(client, retry.LLMConfig())
}

// Generate sends the prompt through the underlying client with retries.
// A zero timeout inherits the caller's context deadline unchanged.
func (rc *ResilientClient) Generate(ctx context.Context, prompt string) (string, error) {
	return rc.GenerateWithTimeout(ctx, prompt, 0)
}

// GenerateWithTimeout bounds the whole retry loop by timeout.
func (rc *ResilientClient) GenerateWithTimeout(ctx context.Context, prompt string, timeout time.Duration) (string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var response string
	result := retry.WithBackoff(ctx, rc.retryConfig, func() error {
		var err error
		response, err = rc.client.Generate(ctx, prompt)
		return err
	}, logging.GetCurrentLogger())

	if !result.Success {
		return "", result.LastError
	}
	return response, nil
}

// Name returns the underlying client's name.
func (rc *ResilientClient) Name() string {
	return rc.client.Name()
}
