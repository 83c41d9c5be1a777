package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/siteops/pkg/models"
)

// Config represents the application configuration
type Config struct {
	General struct {
		DefaultAI string `koanf:"default_ai"`
	} `koanf:"general"`

	Target struct {
		Repo      string `koanf:"repo"`
		Branch    string `koanf:"branch"`
		OutputDir string `koanf:"output_dir"`
	} `koanf:"target"`

	Discovery struct {
		Method       string   `koanf:"method"`
		Owner        string   `koanf:"owner"`
		TopicTag     string   `koanf:"topic_tag"`
		FallbackList []string `koanf:"fallback_list"`
	} `koanf:"discovery"`

	Collector struct {
		CommitsLookbackDays int `koanf:"commits_lookback_days"`
		ReadmeExcerptLength int `koanf:"readme_excerpt_length"`
	} `koanf:"collector"`

	Scoring struct {
		NewRelease      int `koanf:"new_release"`
		ReadmeChanged   int `koanf:"readme_changed"`
		FeatCommit      int `koanf:"feat_commit"`
		RefactorCommit  int `koanf:"refactor_commit"`
		FixCommit       int `koanf:"fix_commit"`
		NoCommits       int `koanf:"no_commits"`
		UpdateThreshold int `koanf:"update_threshold"`
	} `koanf:"scoring"`

	Policy struct {
		Tone             string   `koanf:"tone"`
		MaxSummaryLength int      `koanf:"max_summary_length"`
		ForbiddenWords   []string `koanf:"forbidden_words"`
		RequiredSections []string `koanf:"required_sections"`
	} `koanf:"policy"`

	Workflow struct {
		Mode              string `koanf:"mode"`
		ForcePROnHighRisk bool   `koanf:"force_pr_on_high_risk"`
		HighRiskThreshold int    `koanf:"high_risk_threshold"`
		StageTimeoutSecs  int    `koanf:"stage_timeout_secs"`
	} `koanf:"workflow"`

	AI map[string]map[string]interface{} `koanf:"ai"`
}

// LoadConfig loads the configuration from a file
func LoadConfig(configPath string) (*Config, error) {
	var k = koanf.New(".")

	// Set up default configuration
	k.Load(confmap.Provider(map[string]interface{}{
		"general.default_ai":             "openai",
		"target.branch":                  "main",
		"target.output_dir":              "projects/",
		"discovery.method":               "topic",
		"collector.commits_lookback_days": 30,
		"collector.readme_excerpt_length": 500,
		"scoring.new_release":            100,
		"scoring.readme_changed":         40,
		"scoring.feat_commit":            30,
		"scoring.refactor_commit":        30,
		"scoring.fix_commit":             15,
		"scoring.no_commits":             -999,
		"scoring.update_threshold":       30,
		"policy.tone":                    "factual",
		"policy.max_summary_length":      280,
		"workflow.mode":                  "manual",
		"workflow.force_pr_on_high_risk": true,
		"workflow.high_risk_threshold":   30,
		"workflow.stage_timeout_secs":    120,
	}, "."), nil)

	// Load from TOML file if it exists
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, fmt.Errorf("error loading config: %w", err)
		}
	} else {
		// Try default locations
		defaultPaths := []string{"./siteops.toml", "$HOME/.siteops.toml"}
		for _, path := range defaultPaths {
			path = os.ExpandEnv(path)
			if _, err := os.Stat(path); err == nil {
				if err := k.Load(file.Provider(path), toml.Parser()); err == nil {
					break
				}
			}
		}
	}

	// Load from environment variables with prefix SITEOPS_
	k.Load(env.Provider("SITEOPS_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "SITEOPS_")), "_", ".", -1)
	}), nil)

	// Unmarshal into Config struct
	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	return &config, nil
}

// PolicyConfig converts the policy section into the model passed to the
// drafter and validator.
func (c *Config) PolicyConfig() models.PolicyConfig {
	return models.PolicyConfig{
		Tone:             c.Policy.Tone,
		MaxSummaryLength: c.Policy.MaxSummaryLength,
		ForbiddenWords:   c.Policy.ForbiddenWords,
		RequiredSections: c.Policy.RequiredSections,
	}
}

// InitConfig initializes a new configuration file
func InitConfig(configPath string) error {
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists at %s", configPath)
	}

	sampleConfig := `# SiteOps Configuration

[general]
default_ai = "openai"

[target]
repo = "your-username/bio-site"
branch = "main"
output_dir = "projects/"

[discovery]
method = "topic"
owner = "your-username"
topic_tag = "portfolio"
fallback_list = ["your-username/example-project"]

[policy]
tone = "factual"
max_summary_length = 280
forbidden_words = ["revolutionary", "groundbreaking", "world-class"]
required_sections = ["summary", "changelog", "status-badge"]

[workflow]
mode = "manual"           # "auto" pushes approved drafts directly
force_pr_on_high_risk = true
high_risk_threshold = 30

[ai.openai]
api_key = "your-api-key"
model = "gpt-4o-mini"
temperature = 0.2
`

	return os.WriteFile(configPath, []byte(sampleConfig), 0644)
}

// Validate validates the configuration
func Validate(config *Config) error {
	if config.General.DefaultAI == "" {
		return fmt.Errorf("default AI provider is required")
	}

	if config.Target.Repo == "" || !strings.Contains(config.Target.Repo, "/") {
		return fmt.Errorf("target repo must be set as owner/name")
	}

	if config.Policy.MaxSummaryLength <= 0 {
		return fmt.Errorf("policy max_summary_length must be positive")
	}

	switch config.Workflow.Mode {
	case "auto", "manual":
	default:
		return fmt.Errorf("workflow mode must be auto or manual, got %q", config.Workflow.Mode)
	}

	aiConfig, ok := config.AI[config.General.DefaultAI]
	if !ok {
		return fmt.Errorf("configuration for AI provider %s not found", config.General.DefaultAI)
	}
	if _, ok := aiConfig["api_key"]; !ok {
		return fmt.Errorf("%s api_key is required", config.General.DefaultAI)
	}

	return nil
}
