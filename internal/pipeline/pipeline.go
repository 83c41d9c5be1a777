// Package pipeline orchestrates the phases: drafting eligible projects,
// reviewing their drafts, and bounding each stage with a timeout so one
// stuck model call cannot stall the whole run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/siteops/internal/store"
	"github.com/siteops/pkg/models"
)

// TimeoutError reports a stage that exceeded its time budget for one
// project.
type TimeoutError struct {
	Stage   string
	Slug    string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s stage timed out for %s after %s", e.Stage, e.Slug, e.Timeout)
}

// Drafter produces a candidate page for a project.
type Drafter interface {
	Draft(ctx context.Context, project models.ProjectContext, policy models.PolicyConfig) (string, error)
}

// Reviewer judges a candidate page against the published one.
type Reviewer interface {
	Review(ctx context.Context, project models.ProjectContext, policy models.PolicyConfig, published, candidate string) (models.Verdict, error)
}

// Pipeline runs the drafting and review phases over a run context.
type Pipeline struct {
	drafter      Drafter
	reviewer     Reviewer
	store        *store.Store
	stageTimeout time.Duration
}

// New creates a Pipeline. A zero stageTimeout means stages inherit the
// caller's context deadline unchanged.
func New(drafter Drafter, reviewer Reviewer, st *store.Store, stageTimeout time.Duration) *Pipeline {
	return &Pipeline{drafter: drafter, reviewer: reviewer, store: st, stageTimeout: stageTimeout}
}

// withStageTimeout runs fn under the per-stage budget and converts a
// deadline overrun into a TimeoutError.
func (p *Pipeline) withStageTimeout(ctx context.Context, stage, slug string, fn func(context.Context) error) error {
	if p.stageTimeout <= 0 {
		return fn(ctx)
	}
	stageCtx, cancel := context.WithTimeout(ctx, p.stageTimeout)
	defer cancel()

	err := fn(stageCtx)
	if err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return &TimeoutError{Stage: stage, Slug: slug, Timeout: p.stageTimeout}
	}
	return err
}

// Eligible reports whether a project gets a draft this run.
func Eligible(project models.ProjectContext) bool {
	return project.Status == models.StatusNew || project.Status == models.StatusUpdate
}

// RunWriter drafts every eligible project and stores the drafts. One
// project failing does not stop the others.
func (p *Pipeline) RunWriter(ctx context.Context, rc *models.RunContext, policy models.PolicyConfig) (*models.WriterResults, error) {
	results := &models.WriterResults{}

	for _, project := range rc.Projects {
		if !Eligible(project) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return results, err
		}

		var draft string
		err := p.withStageTimeout(ctx, "draft", project.Slug, func(stageCtx context.Context) error {
			var draftErr error
			draft, draftErr = p.drafter.Draft(stageCtx, project, policy)
			return draftErr
		})
		if err != nil {
			log.Error().Err(err).Str("slug", project.Slug).Msg("drafting failed")
			results.Errors = append(results.Errors, models.PhaseError{Slug: project.Slug, Error: err.Error()})
			continue
		}

		path, err := p.store.SaveDraft(project.Slug, draft)
		if err != nil {
			return results, fmt.Errorf("failed to store draft for %s: %w", project.Slug, err)
		}
		results.Drafts = append(results.Drafts, models.DraftRecord{
			Slug:   project.Slug,
			Path:   path,
			Status: "drafted",
			IsNew:  project.Status == models.StatusNew,
		})
	}

	if err := p.store.SaveWriterResults(results); err != nil {
		return results, err
	}
	return results, nil
}

// RunEditor reviews every stored draft from the writer phase and stores
// the verdicts.
func (p *Pipeline) RunEditor(ctx context.Context, rc *models.RunContext, policy models.PolicyConfig, writer *models.WriterResults) (*models.EditorResults, error) {
	results := &models.EditorResults{}

	for _, record := range writer.Drafts {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		project := rc.Project(record.Slug)
		if project == nil {
			log.Warn().Str("slug", record.Slug).Msg("draft has no project in run context, skipping")
			continue
		}

		draft, err := p.store.LoadDraft(record.Slug)
		if err != nil {
			return results, fmt.Errorf("failed to load draft for %s: %w", record.Slug, err)
		}

		var verdict models.Verdict
		err = p.withStageTimeout(ctx, "review", record.Slug, func(stageCtx context.Context) error {
			var reviewErr error
			verdict, reviewErr = p.reviewer.Review(stageCtx, *project, policy, project.CurrentHTML, draft)
			return reviewErr
		})
		if err != nil {
			// Review infrastructure failure fails closed: the draft is
			// flagged, never silently approved.
			log.Error().Err(err).Str("slug", record.Slug).Msg("review failed")
			verdict = models.Verdict{
				Status: models.StatusFlagged,
				Reason: "review did not complete",
				Issues: []string{err.Error()},
			}
		}

		path, err := p.store.SaveVerdict(record.Slug, verdict)
		if err != nil {
			return results, fmt.Errorf("failed to store verdict for %s: %w", record.Slug, err)
		}
		results.Verdicts = append(results.Verdicts, models.VerdictRecord{
			Slug:    record.Slug,
			Path:    path,
			Verdict: verdict,
		})
		switch verdict.Status {
		case models.StatusApprove:
			results.Approved++
		case models.StatusFlagged:
			results.Flagged++
		case models.StatusReject:
			results.Rejected++
		}
	}

	if err := p.store.SaveEditorResults(results); err != nil {
		return results, err
	}
	return results, nil
}
