package githubapi

import (
	"context"
	"path"
	"strings"

	"github.com/siteops/internal/page"
)

// PageState describes one published project page on the target site.
type PageState struct {
	Slug       string
	Path       string
	HTML       string
	SHA        string
	Locked     bool
	DeployDate string
	Regions    []page.Region
}

// SiteClient reads and writes the static site repository that holds the
// project pages.
type SiteClient struct {
	gh     *Client
	owner  string
	repo   string
	branch string
	dir    string
}

// NewSiteClient targets the site repo given as "owner/name", its branch,
// and the directory that holds project pages.
func NewSiteClient(gh *Client, repoFullName, branch, dir string) *SiteClient {
	owner, name, _ := strings.Cut(repoFullName, "/")
	return &SiteClient{gh: gh, owner: owner, repo: name, branch: branch, dir: dir}
}

// Owner returns the site repo owner.
func (s *SiteClient) Owner() string { return s.owner }

// Repo returns the site repo name.
func (s *SiteClient) Repo() string { return s.repo }

// Branch returns the publishing branch.
func (s *SiteClient) Branch() string { return s.branch }

// PagePath returns the repo path of a project page.
func (s *SiteClient) PagePath(slug string) string {
	return path.Join(s.dir, slug+".html")
}

// GetPage fetches one project page and parses its protected regions.
// Pages that do not exist yet return (nil, nil).
func (s *SiteClient) GetPage(ctx context.Context, slug string) (*PageState, error) {
	pagePath := s.PagePath(slug)
	html, err := s.gh.GetRawFile(ctx, s.owner, s.repo, pagePath, s.branch)
	if err != nil {
		return nil, err
	}
	if html == "" {
		return nil, nil
	}

	sha, err := s.gh.fileSHA(ctx, s.owner, s.repo, pagePath, s.branch)
	if err != nil {
		return nil, err
	}

	state := &PageState{
		Slug:       slug,
		Path:       pagePath,
		HTML:       html,
		SHA:        sha,
		Locked:     page.IsLocked(html),
		DeployDate: page.DeployDate(html),
	}
	// A page with broken markers still loads; the drafter rejects it later.
	if regions, regErr := page.Regions(html); regErr == nil {
		state.Regions = regions
	}
	return state, nil
}

// PageIndex lists all project pages on the site, keyed by slug.
func (s *SiteClient) PageIndex(ctx context.Context) (map[string]*PageState, error) {
	entries, err := s.gh.ListDir(ctx, s.owner, s.repo, s.dir, s.branch)
	if err != nil {
		return nil, err
	}

	index := make(map[string]*PageState)
	for _, entry := range entries {
		if entry.Type != "file" || !strings.HasSuffix(entry.Name, ".html") {
			continue
		}
		slug := strings.TrimSuffix(entry.Name, ".html")
		if slug == "index" {
			continue
		}
		state, err := s.GetPage(ctx, slug)
		if err != nil {
			return nil, err
		}
		if state != nil {
			index[slug] = state
		}
	}
	return index, nil
}

// PutPage writes page content to a branch of the site repo.
func (s *SiteClient) PutPage(ctx context.Context, slug, branch, message, html string) error {
	return s.gh.PutFile(ctx, s.owner, s.repo, s.PagePath(slug), branch, message, html)
}

// CurrentSHA returns the blob SHA of the published page, or "" if absent.
func (s *SiteClient) CurrentSHA(ctx context.Context, slug string) (string, error) {
	return s.gh.fileSHA(ctx, s.owner, s.repo, s.PagePath(slug), s.branch)
}

// CreateDeployBranch creates a branch off the publishing branch head.
func (s *SiteClient) CreateDeployBranch(ctx context.Context, branch string) error {
	sha, err := s.gh.BranchSHA(ctx, s.owner, s.repo, s.branch)
	if err != nil {
		return err
	}
	return s.gh.CreateBranch(ctx, s.owner, s.repo, branch, sha)
}

// OpenPull opens a pull request from head into the publishing branch.
func (s *SiteClient) OpenPull(ctx context.Context, title, body, head string) (string, error) {
	return s.gh.CreatePull(ctx, s.owner, s.repo, title, body, head, s.branch)
}
