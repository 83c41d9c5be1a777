package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "siteops.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

const validConfig = `
[general]
default_ai = "openai"

[target]
repo = "alice/bio-site"

[policy]
max_summary_length = 200
forbidden_words = ["revolutionary"]
required_sections = ["summary"]

[ai.openai]
api_key = "key"
model = "gpt-4o-mini"
`

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if cfg.Target.Branch != "main" {
		t.Errorf("expected default branch main, got %q", cfg.Target.Branch)
	}
	if cfg.Collector.CommitsLookbackDays != 30 {
		t.Errorf("expected 30-day lookback default, got %d", cfg.Collector.CommitsLookbackDays)
	}
	if cfg.Scoring.NewRelease != 100 {
		t.Errorf("expected new_release weight 100, got %d", cfg.Scoring.NewRelease)
	}
	if cfg.Policy.MaxSummaryLength != 200 {
		t.Errorf("file value should override default, got %d", cfg.Policy.MaxSummaryLength)
	}
	if cfg.Workflow.Mode != "manual" {
		t.Errorf("expected default manual mode, got %q", cfg.Workflow.Mode)
	}
}

func TestValidate(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, validConfig))
	if err != nil {
		t.Fatal(err)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("valid config should pass, got: %v", err)
	}

	broken := *cfg
	broken.Target.Repo = "not-a-repo"
	if err := Validate(&broken); err == nil {
		t.Error("repo without owner should fail validation")
	}

	broken = *cfg
	broken.Policy.MaxSummaryLength = 0
	if err := Validate(&broken); err == nil {
		t.Error("zero max summary length should fail validation")
	}

	broken = *cfg
	broken.Workflow.Mode = "yolo"
	if err := Validate(&broken); err == nil {
		t.Error("unknown workflow mode should fail validation")
	}

	broken = *cfg
	broken.General.DefaultAI = "missing"
	if err := Validate(&broken); err == nil {
		t.Error("unconfigured AI provider should fail validation")
	}
}

func TestPolicyConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, validConfig))
	if err != nil {
		t.Fatal(err)
	}
	policy := cfg.PolicyConfig()
	if policy.MaxSummaryLength != 200 {
		t.Errorf("expected max length 200, got %d", policy.MaxSummaryLength)
	}
	if len(policy.ForbiddenWords) != 1 || policy.ForbiddenWords[0] != "revolutionary" {
		t.Errorf("unexpected forbidden words: %v", policy.ForbiddenWords)
	}
}

func TestInitConfigRefusesOverwrite(t *testing.T) {
	path := writeConfig(t, validConfig)
	if err := InitConfig(path); err == nil {
		t.Error("InitConfig should refuse to overwrite an existing file")
	}

	fresh := filepath.Join(t.TempDir(), "new.toml")
	if err := InitConfig(fresh); err != nil {
		t.Fatalf("InitConfig failed: %v", err)
	}
	if _, err := LoadConfig(fresh); err != nil {
		t.Errorf("generated sample config should load: %v", err)
	}
}
