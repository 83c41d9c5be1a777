// Package drafter generates updated page HTML for a project from its
// collected context. Protected regions from the published page are
// reinjected byte for byte regardless of what the model produced, so a
// draft can never ship with a rewritten manual section.
package drafter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/siteops/internal/llm"
	"github.com/siteops/internal/page"
	"github.com/siteops/internal/prompts"
	"github.com/siteops/pkg/models"
)

// Drafter turns a ProjectContext into draft HTML.
type Drafter struct {
	client llm.Client
	now    func() time.Time
}

// New creates a Drafter backed by client.
func New(client llm.Client) *Drafter {
	return &Drafter{client: client, now: time.Now}
}

// WithClock overrides the deploy-stamp date source. Tests only.
func (d *Drafter) WithClock(now func() time.Time) *Drafter {
	d.now = now
	return d
}

// Draft produces the updated HTML for one project. The published page (or
// the base template for a new page) is validated before any model call; a
// page with broken markers is a hard error, never a guess.
func (d *Drafter) Draft(ctx context.Context, project models.ProjectContext, policy models.PolicyConfig) (string, error) {
	current := project.CurrentHTML
	if !project.Exists || current == "" {
		current = BaseTemplate(project, policy)
	}

	regions, err := page.Regions(current)
	if err != nil {
		return "", fmt.Errorf("page %s: %w", project.Slug, err)
	}

	prompt, err := prompts.BuildWriterPrompt(project, policy, current)
	if err != nil {
		return "", err
	}

	raw, err := d.client.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("draft generation for %s failed: %w", project.Slug, err)
	}

	draft := llm.StripFences(raw)
	if strings.TrimSpace(draft) == "" {
		return "", fmt.Errorf("draft for %s is empty", project.Slug)
	}

	// The model is told to leave manual regions alone, but the guarantee
	// comes from here, not from the prompt.
	draft, dropped := page.InjectRegions(draft, regions)
	if len(dropped) > 0 {
		return "", fmt.Errorf("draft for %s dropped manual regions: %s",
			project.Slug, strings.Join(dropped, ", "))
	}
	if err := page.ValidateMarkers(draft); err != nil {
		return "", fmt.Errorf("draft for %s: %w", project.Slug, err)
	}

	draft = page.StampDeployMarker(draft, d.now().UTC().Format("2006-01-02"))

	// Nothing after injection may touch the regions, the deploy stamp
	// included. Verify before handing the draft over.
	altered, err := page.MissingOrAltered(current, draft)
	if err != nil {
		return "", fmt.Errorf("draft for %s: %w", project.Slug, err)
	}
	if len(altered) > 0 {
		return "", fmt.Errorf("draft for %s altered manual regions: %s",
			project.Slug, strings.Join(altered, ", "))
	}

	log.Debug().Str("slug", project.Slug).Int("bytes", len(draft)).Msg("draft generated")
	return draft, nil
}
