// Package deployer publishes reviewed drafts: approved low-risk drafts go
// straight to the publishing branch in auto mode, everything that needs a
// human lands in a single pull request, and rejected drafts go nowhere.
package deployer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/siteops/internal/store"
	"github.com/siteops/pkg/models"
)

// SitePublisher is the slice of the site client the deployer needs.
type SitePublisher interface {
	Branch() string
	CurrentSHA(ctx context.Context, slug string) (string, error)
	PutPage(ctx context.Context, slug, branch, message, html string) error
	CreateDeployBranch(ctx context.Context, branch string) error
	OpenPull(ctx context.Context, title, body, head string) (string, error)
}

// Options control deployment routing.
type Options struct {
	// Mode is "auto" (approved drafts push directly) or "manual"
	// (everything goes through a pull request).
	Mode string
	// ForcePROnHighRisk routes approved drafts above HighRiskThreshold
	// through a pull request even in auto mode.
	ForcePROnHighRisk bool
	HighRiskThreshold int
	// DryRun logs decisions without touching the site repo.
	DryRun bool
}

// Deployer applies verdicts to the site repository.
type Deployer struct {
	site SitePublisher
	st   *store.Store
	opts Options
	now  func() time.Time
}

// New creates a Deployer.
func New(site SitePublisher, st *store.Store, opts Options) *Deployer {
	return &Deployer{site: site, st: st, opts: opts, now: time.Now}
}

// WithClock overrides the branch-name date source. Tests only.
func (d *Deployer) WithClock(now func() time.Time) *Deployer {
	d.now = now
	return d
}

type route int

const (
	routeSkip route = iota
	routePush
	routePR
)

// decide routes one verdict. The reason explains any non-push outcome.
func (d *Deployer) decide(ctx context.Context, project *models.ProjectContext, verdict models.Verdict) (route, string) {
	switch verdict.Status {
	case models.StatusReject:
		return routeSkip, "rejected: " + verdict.Reason
	case models.StatusFlagged:
		return routePR, "flagged: " + verdict.Reason
	}

	if d.opts.Mode != "auto" {
		return routePR, "manual mode"
	}
	if d.opts.ForcePROnHighRisk && verdict.ChangePercentage >= d.opts.HighRiskThreshold {
		return routePR, fmt.Sprintf("high risk: %d%% of page changed", verdict.ChangePercentage)
	}

	// Freshness: if the published page moved since collection, the draft
	// was generated from stale input and a human should look.
	if project.PageSHA != "" && !d.opts.DryRun {
		currentSHA, err := d.site.CurrentSHA(ctx, project.Slug)
		if err != nil {
			return routePR, "could not verify page freshness: " + err.Error()
		}
		if currentSHA != project.PageSHA {
			return routePR, "published page changed since collection"
		}
	}
	return routePush, ""
}

type pending struct {
	slug   string
	html   string
	reason string
}

// Run deploys every reviewed draft and returns what happened. All drafts
// routed to review share a single pull request.
func (d *Deployer) Run(ctx context.Context, rc *models.RunContext, editor *models.EditorResults) (*models.DeployerResults, error) {
	results := &models.DeployerResults{}
	branch := fmt.Sprintf("siteops/update-%s", d.now().UTC().Format("2006-01-02"))

	var forPR []pending

	for _, record := range editor.Verdicts {
		project := rc.Project(record.Slug)
		if project == nil {
			results.Errors = append(results.Errors, models.PhaseError{
				Slug: record.Slug, Error: "no project in run context",
			})
			continue
		}

		route, reason := d.decide(ctx, project, record.Verdict)
		if route == routeSkip {
			log.Info().Str("slug", record.Slug).Str("reason", reason).Msg("draft skipped")
			results.Skipped = append(results.Skipped, models.DeployRecord{Slug: record.Slug, Reason: reason})
			continue
		}

		html, err := d.st.LoadDraft(record.Slug)
		if err != nil {
			results.Errors = append(results.Errors, models.PhaseError{Slug: record.Slug, Error: err.Error()})
			continue
		}

		if route == routePR {
			forPR = append(forPR, pending{slug: record.Slug, html: html, reason: reason})
			continue
		}

		if d.opts.DryRun {
			log.Info().Str("slug", record.Slug).Msg("dry run: would push")
			results.Pushed = append(results.Pushed, models.DeployRecord{Slug: record.Slug, Reason: "dry run"})
			continue
		}
		message := fmt.Sprintf("Update %s project page", record.Slug)
		if err := d.site.PutPage(ctx, record.Slug, d.site.Branch(), message, html); err != nil {
			log.Error().Err(err).Str("slug", record.Slug).Msg("push failed")
			results.Errors = append(results.Errors, models.PhaseError{Slug: record.Slug, Error: err.Error()})
			continue
		}
		log.Info().Str("slug", record.Slug).Msg("pushed")
		results.Pushed = append(results.Pushed, models.DeployRecord{Slug: record.Slug})
	}

	if len(forPR) > 0 {
		if d.opts.DryRun {
			for _, p := range forPR {
				log.Info().Str("slug", p.slug).Str("reason", p.reason).Msg("dry run: would include in PR")
				results.PRs = append(results.PRs, models.DeployRecord{Slug: p.slug, Reason: "dry run: " + p.reason})
			}
		} else if err := d.openReviewPR(ctx, branch, forPR, results); err != nil {
			return results, err
		}
	}

	if err := d.st.SaveDeployerResults(results); err != nil {
		return results, err
	}
	return results, nil
}

func (d *Deployer) openReviewPR(ctx context.Context, branch string, drafts []pending, results *models.DeployerResults) error {
	if err := d.site.CreateDeployBranch(ctx, branch); err != nil {
		return fmt.Errorf("failed to create deploy branch: %w", err)
	}

	var body strings.Builder
	body.WriteString("Automated page updates awaiting review.\n\n")
	for _, p := range drafts {
		message := fmt.Sprintf("Update %s project page", p.slug)
		if err := d.site.PutPage(ctx, p.slug, branch, message, p.html); err != nil {
			results.Errors = append(results.Errors, models.PhaseError{Slug: p.slug, Error: err.Error()})
			continue
		}
		fmt.Fprintf(&body, "- **%s**: %s\n", p.slug, p.reason)
	}

	title := fmt.Sprintf("Page updates %s", d.now().UTC().Format("2006-01-02"))
	url, err := d.site.OpenPull(ctx, title, body.String(), branch)
	if err != nil {
		return fmt.Errorf("failed to open pull request: %w", err)
	}
	log.Info().Str("url", url).Int("pages", len(drafts)).Msg("pull request opened")

	for _, p := range drafts {
		results.PRs = append(results.PRs, models.DeployRecord{Slug: p.slug, URL: url, Reason: p.reason})
	}
	return nil
}
