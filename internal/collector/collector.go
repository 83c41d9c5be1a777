// Package collector builds the per-run source of truth: it discovers the
// project repositories, fetches their activity, scores how significant the
// changes are, and decides which pages need an update.
package collector

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/siteops/internal/config"
	"github.com/siteops/internal/githubapi"
	"github.com/siteops/pkg/models"
)

// Collector assembles a RunContext from GitHub and the target site.
type Collector struct {
	gh    *githubapi.Client
	site  *githubapi.SiteClient
	cfg   *config.Config
	force bool
	now   func() time.Time
}

// New creates a Collector. Setting FORCE_UPDATE=true in the environment
// promotes projects that would be skipped for low activity to update;
// locked pages stay skipped.
func New(gh *githubapi.Client, site *githubapi.SiteClient, cfg *config.Config) *Collector {
	return &Collector{
		gh:    gh,
		site:  site,
		cfg:   cfg,
		force: strings.EqualFold(os.Getenv("FORCE_UPDATE"), "true"),
		now:   time.Now,
	}
}

// WithClock overrides the time source. Tests only.
func (c *Collector) WithClock(now func() time.Time) *Collector {
	c.now = now
	return c
}

// DiscoverRepos lists the source repositories to track, as "owner/name".
// The topic method falls back to the static list when the search comes
// back empty.
func (c *Collector) DiscoverRepos(ctx context.Context) ([]string, error) {
	d := c.cfg.Discovery
	if d.Method == "topic" && d.Owner != "" && d.TopicTag != "" {
		repos, err := c.gh.SearchReposByTopic(ctx, d.Owner, d.TopicTag)
		if err != nil {
			return nil, fmt.Errorf("topic discovery failed: %w", err)
		}
		if len(repos) > 0 {
			sort.Strings(repos)
			return repos, nil
		}
		log.Warn().Str("topic", d.TopicTag).Msg("topic search returned nothing, using fallback list")
	}
	if len(d.FallbackList) == 0 {
		return nil, fmt.Errorf("no repositories discovered and fallback list is empty")
	}
	return d.FallbackList, nil
}

// Slug derives the page slug from a repo full name.
func Slug(repoFullName string) string {
	_, name, found := strings.Cut(repoFullName, "/")
	if !found {
		name = repoFullName
	}
	return strings.ToLower(name)
}

// Score rates how significant a project's recent activity is and returns
// the score with a human-readable breakdown. prevReadmeSHA is the README
// blob hash recorded by the previous run, or "" when unknown.
func (c *Collector) Score(project *models.ProjectContext, prevReadmeSHA string) (int, string) {
	s := c.cfg.Scoring
	if len(project.Commits) == 0 && len(recentReleases(project.Releases, c.recentCutoff())) == 0 {
		return s.NoCommits, "no recent activity"
	}

	score := 0
	var reasons []string

	if recent := recentReleases(project.Releases, c.recentCutoff()); len(recent) > 0 {
		score += s.NewRelease
		reasons = append(reasons, fmt.Sprintf("new release %s (+%d)", recent[0].Tag, s.NewRelease))
	}

	if prevReadmeSHA != "" && project.ReadmeSHA != "" && prevReadmeSHA != project.ReadmeSHA {
		score += s.ReadmeChanged
		reasons = append(reasons, fmt.Sprintf("readme changed (+%d)", s.ReadmeChanged))
	}

	counts := map[string]int{}
	for _, commit := range project.Commits {
		counts[commit.Type]++
	}
	if n := counts["feat"]; n > 0 {
		score += n * s.FeatCommit
		reasons = append(reasons, fmt.Sprintf("%d feat commits (+%d)", n, n*s.FeatCommit))
	}
	if n := counts["refactor"]; n > 0 {
		score += n * s.RefactorCommit
		reasons = append(reasons, fmt.Sprintf("%d refactor commits (+%d)", n, n*s.RefactorCommit))
	}
	if n := counts["fix"]; n > 0 {
		score += n * s.FixCommit
		reasons = append(reasons, fmt.Sprintf("%d fix commits (+%d)", n, n*s.FixCommit))
	}

	if len(reasons) == 0 {
		reasons = append(reasons, fmt.Sprintf("%d minor commits", len(project.Commits)))
	}
	return score, strings.Join(reasons, ", ")
}

func (c *Collector) recentCutoff() string {
	return c.now().UTC().AddDate(0, 0, -c.cfg.Collector.CommitsLookbackDays).Format("2006-01-02")
}

func recentReleases(releases []models.Release, cutoff string) []models.Release {
	var recent []models.Release
	for _, r := range releases {
		if r.Date >= cutoff {
			recent = append(recent, r)
		}
	}
	return recent
}

// collectProject fetches everything about one repository. Fetch failures
// mark the project as errored rather than aborting the run.
func (c *Collector) collectProject(ctx context.Context, repoFullName string, pages map[string]*githubapi.PageState, prev *models.RunContext) models.ProjectContext {
	slug := Slug(repoFullName)
	project := models.ProjectContext{Slug: slug, Repo: repoFullName}

	owner, name, found := strings.Cut(repoFullName, "/")
	if !found {
		project.Status = models.StatusError
		project.ChangeReason = "repo name is not owner/name"
		return project
	}

	if state, ok := pages[slug]; ok {
		project.Exists = true
		project.PageSHA = state.SHA
		project.Locked = state.Locked
		project.LastDeploy = state.DeployDate
		project.CurrentHTML = state.HTML
	}
	if project.Locked {
		project.Status = models.StatusSkip
		project.ChangeReason = "page is locked"
		return project
	}

	meta, err := c.gh.GetRepo(ctx, owner, name)
	if err != nil {
		log.Error().Err(err).Str("repo", repoFullName).Msg("repo metadata fetch failed")
		project.Status = models.StatusError
		project.ChangeReason = err.Error()
		return project
	}
	project.Description = meta.Description
	project.Stars = meta.Stars
	project.Forks = meta.Forks

	branch := meta.Default
	if branch == "" {
		branch = "main"
	}

	if project.Commits, err = c.gh.GetCommits(ctx, owner, name, c.cfg.Collector.CommitsLookbackDays); err != nil {
		log.Error().Err(err).Str("repo", repoFullName).Msg("commit fetch failed")
		project.Status = models.StatusError
		project.ChangeReason = err.Error()
		return project
	}
	if project.Releases, err = c.gh.GetReleases(ctx, owner, name, 5); err != nil {
		log.Error().Err(err).Str("repo", repoFullName).Msg("release fetch failed")
		project.Status = models.StatusError
		project.ChangeReason = err.Error()
		return project
	}
	if project.Languages, err = c.gh.GetLanguages(ctx, owner, name); err != nil {
		log.Warn().Err(err).Str("repo", repoFullName).Msg("language fetch failed")
	}

	readme, err := c.gh.GetReadme(ctx, owner, name, branch)
	if err != nil {
		log.Warn().Err(err).Str("repo", repoFullName).Msg("readme fetch failed")
	} else {
		project.ReadmeSHA = readme.SHA
		project.ReadmeExcerpt = excerpt(readme.Content, c.cfg.Collector.ReadmeExcerptLength)
	}

	var prevSHA string
	if prev != nil {
		if prevProject := prev.Project(slug); prevProject != nil {
			prevSHA = prevProject.ReadmeSHA
		}
	}
	project.ChangeScore, project.ChangeReason = c.Score(&project, prevSHA)
	c.applyStatus(&project)
	return project
}

// applyStatus derives the project status from its change score. Locked and
// errored projects never reach this point.
func (c *Collector) applyStatus(project *models.ProjectContext) {
	switch {
	case !project.Exists:
		project.Status = models.StatusNew
	case project.ChangeScore >= c.cfg.Scoring.UpdateThreshold:
		project.Status = models.StatusUpdate
	default:
		project.Status = models.StatusSkip
		if project.ChangeScore > 0 {
			project.ChangeReason += " (below threshold)"
		}
	}
	if c.force && project.Status == models.StatusSkip {
		project.Status = models.StatusUpdate
		project.ChangeReason = "force_update"
	}
}

// Collect runs discovery and per-project collection and returns the
// RunContext. prev is the previous run's context for README comparison;
// nil is fine on the first run.
func (c *Collector) Collect(ctx context.Context, prev *models.RunContext) (*models.RunContext, error) {
	repos, err := c.DiscoverRepos(ctx)
	if err != nil {
		return nil, err
	}
	log.Info().Int("repos", len(repos)).Msg("discovered repositories")

	pages, err := c.site.PageIndex(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to index site pages: %w", err)
	}

	rc := &models.RunContext{
		GeneratedAt: c.now().UTC().Format(time.RFC3339),
		ConfigHash:  c.configHash(),
	}
	for _, repo := range repos {
		project := c.collectProject(ctx, repo, pages, prev)
		log.Info().
			Str("slug", project.Slug).
			Str("status", project.Status).
			Int("score", project.ChangeScore).
			Msg("collected project")
		rc.Projects = append(rc.Projects, project)

		rc.Summary.Total++
		switch project.Status {
		case models.StatusNew:
			rc.Summary.New++
		case models.StatusUpdate:
			rc.Summary.Updates++
		case models.StatusSkip:
			rc.Summary.Skips++
			if project.Locked {
				rc.Summary.Locked++
			}
		}
	}
	return rc, nil
}

// configHash fingerprints the policy and scoring settings so a run can be
// traced back to the rules in force when it was produced.
func (c *Collector) configHash() string {
	h := sha256.New()
	fmt.Fprintf(h, "%+v|%+v|%+v", c.cfg.Policy, c.cfg.Scoring, c.cfg.Workflow)
	return hex.EncodeToString(h.Sum(nil))[:12]
}

func excerpt(content string, maxLen int) string {
	content = strings.TrimSpace(content)
	if maxLen > 0 && len(content) > maxLen {
		content = content[:maxLen]
	}
	return content
}
