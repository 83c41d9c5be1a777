// Package validator reviews drafts before anything is published. Every
// draft passes two gates: deterministic policy checks that cannot be
// argued with, and a model review for the judgment calls (hallucination,
// tone). The merged verdict is fail closed: the model can make a verdict
// worse, never better.
package validator

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/siteops/internal/llm"
	"github.com/siteops/internal/prompts"
	"github.com/siteops/pkg/models"
)

// Validator produces verdicts for drafts.
type Validator struct {
	client     llm.Client
	thresholds Thresholds
}

// New creates a Validator backed by client.
func New(client llm.Client, thresholds Thresholds) *Validator {
	return &Validator{client: client, thresholds: thresholds}
}

// Review judges a candidate draft against the published page and policy.
// Policy violations are verdict data, not errors; the error return is for
// infrastructure failures only, and even a model outage degrades to a
// FLAGGED verdict rather than blocking the run.
func (v *Validator) Review(ctx context.Context, project models.ProjectContext, policy models.PolicyConfig, published, candidate string) (models.Verdict, error) {
	verdict := RunChecks(project, policy, published, candidate, v.thresholds)

	// A deterministic reject is final; no model call can soften it and
	// there is nothing for the model to add.
	if verdict.Status == models.StatusReject {
		log.Info().Str("slug", project.Slug).Strs("issues", verdict.Issues).
			Msg("draft rejected by deterministic checks")
		return verdict, nil
	}

	aiVerdict, ok := v.aiReview(ctx, project, policy, published, candidate)
	if !ok {
		verdict.Status = verdict.Status.Worse(models.StatusFlagged)
		verdict.Issues = append(verdict.Issues, "model review unavailable, draft needs human eyes")
		verdict.Reason = "model review unavailable"
		return verdict, nil
	}

	merged := verdict
	merged.Status = verdict.Status.Worse(aiVerdict.Status)
	merged.Issues = append(merged.Issues, aiVerdict.Issues...)
	if aiVerdict.Status.Severity() > verdict.Status.Severity() && aiVerdict.Reason != "" {
		merged.Reason = aiVerdict.Reason
	}
	// ChangePercentage and DiffSummary stay deterministic; the model's
	// estimate is commentary, not a measurement.

	log.Info().Str("slug", project.Slug).
		Str("status", string(merged.Status)).
		Int("change_pct", merged.ChangePercentage).
		Msg("draft reviewed")
	return merged, nil
}

// aiReview runs the model review. Failures are reported as not-ok so the
// caller can fail closed.
func (v *Validator) aiReview(ctx context.Context, project models.ProjectContext, policy models.PolicyConfig, published, candidate string) (models.Verdict, bool) {
	prompt, err := prompts.BuildEditorPrompt(project, policy, published, candidate)
	if err != nil {
		log.Error().Err(err).Str("slug", project.Slug).Msg("editor prompt build failed")
		return models.Verdict{}, false
	}

	raw, err := v.client.Generate(ctx, prompt)
	if err != nil {
		log.Error().Err(err).Str("slug", project.Slug).Msg("model review failed")
		return models.Verdict{}, false
	}

	aiVerdict, stats, err := llm.DecodeVerdict(raw)
	if err != nil {
		log.Error().Err(err).Str("slug", project.Slug).Msg("verdict response undecodable")
		return models.Verdict{}, false
	}
	if stats.WasRepaired {
		log.Debug().Str("slug", project.Slug).Strs("strategies", stats.Strategies).
			Msg("verdict JSON needed repair")
	}
	return aiVerdict, true
}
