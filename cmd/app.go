// Package cmd implements the siteops CLI commands. Each pipeline phase is
// its own command so CI can run them as separate steps; the run command
// chains them in one process.
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/siteops/internal/config"
	"github.com/siteops/internal/githubapi"
	"github.com/siteops/internal/llm"
	"github.com/siteops/internal/logging"
	"github.com/siteops/internal/store"
)

// runtime is the wiring every command shares.
type runtime struct {
	cfg  *config.Config
	st   *store.Store
	gh   *githubapi.Client
	site *githubapi.SiteClient
}

func loadRuntime(c *cli.Context) (*runtime, error) {
	logging.Setup(c.Bool("verbose"))

	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	st, err := store.New(c.String("data"))
	if err != nil {
		return nil, fmt.Errorf("failed to open data directory: %w", err)
	}

	gh := githubapi.New(githubToken())
	site := githubapi.NewSiteClient(gh, cfg.Target.Repo, cfg.Target.Branch, cfg.Target.OutputDir)

	return &runtime{cfg: cfg, st: st, gh: gh, site: site}, nil
}

func githubToken() string {
	for _, name := range []string{"SITEOPS_GITHUB_TOKEN", "GITHUB_TOKEN"} {
		if token := os.Getenv(name); token != "" {
			return token
		}
	}
	return ""
}

// newLLMClient builds the model client for the configured (or overridden)
// provider, wrapped with retries.
func newLLMClient(ctx context.Context, cfg *config.Config, override string) (*llm.LangchainClient, error) {
	provider := cfg.General.DefaultAI
	if override != "" {
		provider = override
	}

	settings := cfg.AI[provider]
	if settings == nil {
		return nil, fmt.Errorf("no configuration for AI provider %q", provider)
	}

	return llm.New(ctx, llm.Config{
		Provider:    provider,
		APIKey:      stringSetting(settings, "api_key"),
		Model:       stringSetting(settings, "model"),
		Temperature: floatSetting(settings, "temperature"),
		MaxTokens:   int(floatSetting(settings, "max_tokens")),
	})
}

func stringSetting(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func floatSetting(m map[string]interface{}, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

func stageTimeout(cfg *config.Config) time.Duration {
	return time.Duration(cfg.Workflow.StageTimeoutSecs) * time.Second
}
