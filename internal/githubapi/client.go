// Package githubapi is a small GitHub REST client covering exactly the
// operations the pipeline needs: repository metadata, commits, releases,
// languages, README, topic search, and content writes for deployment.
package githubapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/siteops/pkg/models"
)

const (
	defaultBaseURL = "https://api.github.com"
	defaultRawURL  = "https://raw.githubusercontent.com"
	apiVersion     = "2022-11-28"
)

// Client wraps the GitHub REST API with auth headers and rate limiting.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	token      string
	baseURL    string
	rawURL     string
	now        func() time.Time
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURLs points the client at different API endpoints. Used by tests
// and GitHub Enterprise installs.
func WithBaseURLs(api, raw string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(api, "/")
		c.rawURL = strings.TrimRight(raw, "/")
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithClock overrides the time source for the commit lookback window.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// New creates a client. The token may be empty for public-data reads,
// at the cost of a much lower rate limit.
func New(token string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		// Secondary rate limits bite around 100 requests/minute; stay under.
		limiter: rate.NewLimiter(rate.Limit(1.5), 5),
		token:   token,
		baseURL: defaultBaseURL,
		rawURL:  defaultRawURL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError is a non-2xx response from the GitHub API.
type APIError struct {
	StatusCode int
	Message    string
	URL        string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("github api: %d %s (%s)", e.StatusCode, e.Message, e.URL)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.StatusCode == http.StatusNotFound
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, body io.Reader) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	endpoint := c.baseURL + path
	if params != nil {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(msg)), URL: endpoint}
	}
	return resp, nil
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out interface{}) error {
	resp, err := c.do(ctx, http.MethodGet, path, params, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) sendJSON(ctx context.Context, method, path string, payload, out interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	resp, err := c.do(ctx, method, path, nil, bytes.NewReader(data))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// RepoMeta is the subset of repository metadata the collector uses.
type RepoMeta struct {
	Description string `json:"description"`
	Stars       int    `json:"stargazers_count"`
	Forks       int    `json:"forks_count"`
	Default     string `json:"default_branch"`
}

// GetRepo fetches repository metadata.
func (c *Client) GetRepo(ctx context.Context, owner, repo string) (RepoMeta, error) {
	var meta RepoMeta
	err := c.getJSON(ctx, fmt.Sprintf("/repos/%s/%s", owner, repo), nil, &meta)
	return meta, err
}

var conventionalRe = regexp.MustCompile(`^(\w+)(?:\([^)]+\))?!?:`)

var commitTypeMap = map[string]string{
	"feat": "feat", "feature": "feat",
	"fix": "fix", "bugfix": "fix",
	"docs": "docs", "doc": "docs",
	"style":    "style",
	"refactor": "refactor",
	"perf":     "perf",
	"test":     "test", "tests": "test",
	"chore": "chore", "build": "chore", "ci": "chore",
}

// ParseCommitType extracts the conventional-commit category from a commit
// message, or "other" if the message does not follow the convention.
func ParseCommitType(message string) string {
	m := conventionalRe.FindStringSubmatch(strings.ToLower(message))
	if m == nil {
		return "other"
	}
	if t, ok := commitTypeMap[m[1]]; ok {
		return t
	}
	return "other"
}

// GetCommits fetches commits from the trailing sinceDays window, newest
// first, with conventional-commit types parsed.
func (c *Client) GetCommits(ctx context.Context, owner, repo string, sinceDays int) ([]models.Commit, error) {
	since := c.now().UTC().AddDate(0, 0, -sinceDays).Format(time.RFC3339)
	params := url.Values{"since": {since}, "per_page": {"100"}}

	var raw []struct {
		SHA    string `json:"sha"`
		Commit struct {
			Message string `json:"message"`
			Author  struct {
				Name string `json:"name"`
				Date string `json:"date"`
			} `json:"author"`
		} `json:"commit"`
	}
	if err := c.getJSON(ctx, fmt.Sprintf("/repos/%s/%s/commits", owner, repo), params, &raw); err != nil {
		return nil, err
	}

	commits := make([]models.Commit, 0, len(raw))
	for _, item := range raw {
		message := item.Commit.Message
		if idx := strings.IndexByte(message, '\n'); idx >= 0 {
			message = message[:idx]
		}
		date := item.Commit.Author.Date
		if len(date) >= 10 {
			date = date[:10]
		}
		sha := item.SHA
		if len(sha) > 7 {
			sha = sha[:7]
		}
		commits = append(commits, models.Commit{
			SHA:     sha,
			Date:    date,
			Message: message,
			Type:    ParseCommitType(message),
			Author:  item.Commit.Author.Name,
		})
	}
	return commits, nil
}

// GetReleases fetches up to limit recent releases, drafts excluded.
func (c *Client) GetReleases(ctx context.Context, owner, repo string, limit int) ([]models.Release, error) {
	params := url.Values{"per_page": {fmt.Sprint(limit)}}

	var raw []struct {
		TagName     string `json:"tag_name"`
		Name        string `json:"name"`
		PublishedAt string `json:"published_at"`
		Body        string `json:"body"`
		Prerelease  bool   `json:"prerelease"`
		Draft       bool   `json:"draft"`
	}
	if err := c.getJSON(ctx, fmt.Sprintf("/repos/%s/%s/releases", owner, repo), params, &raw); err != nil {
		return nil, err
	}

	var releases []models.Release
	for _, item := range raw {
		if item.Draft {
			continue
		}
		name := item.Name
		if name == "" {
			name = item.TagName
		}
		date := item.PublishedAt
		if len(date) >= 10 {
			date = date[:10]
		}
		notes := item.Body
		if len(notes) > 500 {
			notes = notes[:500]
		}
		releases = append(releases, models.Release{
			Tag:        item.TagName,
			Name:       name,
			Date:       date,
			Notes:      notes,
			Prerelease: item.Prerelease,
		})
	}
	return releases, nil
}

// GetLanguages fetches repository language names ordered by byte count.
func (c *Client) GetLanguages(ctx context.Context, owner, repo string) ([]string, error) {
	var byBytes map[string]int64
	if err := c.getJSON(ctx, fmt.Sprintf("/repos/%s/%s/languages", owner, repo), nil, &byBytes); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(byBytes))
	for name := range byBytes {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if byBytes[names[i]] != byBytes[names[j]] {
			return byBytes[names[i]] > byBytes[names[j]]
		}
		return names[i] < names[j]
	})
	return names, nil
}

// Readme is a repository README with its content hash.
type Readme struct {
	Content string
	SHA     string
	Size    int
}

// GetReadme fetches README content and metadata. A repository without a
// README yields an empty Readme, not an error.
func (c *Client) GetReadme(ctx context.Context, owner, repo, branch string) (Readme, error) {
	var meta struct {
		SHA  string `json:"sha"`
		Size int    `json:"size"`
		Path string `json:"path"`
	}
	if err := c.getJSON(ctx, fmt.Sprintf("/repos/%s/%s/readme", owner, repo), nil, &meta); err != nil {
		if IsNotFound(err) {
			return Readme{}, nil
		}
		return Readme{}, err
	}

	content, err := c.GetRawFile(ctx, owner, repo, meta.Path, branch)
	if err != nil {
		return Readme{}, err
	}
	return Readme{Content: content, SHA: meta.SHA, Size: meta.Size}, nil
}

// GetRawFile fetches a file's raw content from a branch. Missing files
// return "" with no error.
func (c *Client) GetRawFile(ctx context.Context, owner, repo, path, branch string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/%s/%s/%s/%s", c.rawURL, owner, repo, branch, strings.TrimPrefix(path, "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", &APIError{StatusCode: resp.StatusCode, Message: "raw fetch failed", URL: endpoint}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// SearchReposByTopic returns full names of an owner's repositories tagged
// with topic.
func (c *Client) SearchReposByTopic(ctx context.Context, owner, topic string) ([]string, error) {
	params := url.Values{
		"q":        {fmt.Sprintf("topic:%s user:%s", topic, owner)},
		"per_page": {"100"},
	}

	var result struct {
		Items []struct {
			FullName string `json:"full_name"`
		} `json:"items"`
	}
	if err := c.getJSON(ctx, "/search/repositories", params, &result); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(result.Items))
	for _, item := range result.Items {
		names = append(names, item.FullName)
	}
	return names, nil
}

// ContentEntry is one item of a repository directory listing.
type ContentEntry struct {
	Name string `json:"name"`
	Path string `json:"path"`
	SHA  string `json:"sha"`
	Type string `json:"type"`
}

// ListDir lists a directory in a repository at ref. A missing directory
// returns an empty listing.
func (c *Client) ListDir(ctx context.Context, owner, repo, dir, ref string) ([]ContentEntry, error) {
	params := url.Values{"ref": {ref}}
	var entries []ContentEntry
	err := c.getJSON(ctx, fmt.Sprintf("/repos/%s/%s/contents/%s", owner, repo, strings.Trim(dir, "/")), params, &entries)
	if IsNotFound(err) {
		return nil, nil
	}
	return entries, err
}

// fileSHA returns the blob SHA of path on branch, or "" if absent.
func (c *Client) fileSHA(ctx context.Context, owner, repo, path, branch string) (string, error) {
	params := url.Values{"ref": {branch}}
	var entry ContentEntry
	err := c.getJSON(ctx, fmt.Sprintf("/repos/%s/%s/contents/%s", owner, repo, strings.TrimPrefix(path, "/")), params, &entry)
	if IsNotFound(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return entry.SHA, nil
}

// PutFile creates or updates a file on branch with the given commit message.
func (c *Client) PutFile(ctx context.Context, owner, repo, path, branch, message, content string) error {
	sha, err := c.fileSHA(ctx, owner, repo, path, branch)
	if err != nil {
		return err
	}

	payload := map[string]string{
		"message": message,
		"content": base64.StdEncoding.EncodeToString([]byte(content)),
		"branch":  branch,
	}
	if sha != "" {
		payload["sha"] = sha
	}

	return c.sendJSON(ctx, http.MethodPut,
		fmt.Sprintf("/repos/%s/%s/contents/%s", owner, repo, strings.TrimPrefix(path, "/")), payload, nil)
}

// BranchSHA returns the commit SHA a branch head points at.
func (c *Client) BranchSHA(ctx context.Context, owner, repo, branch string) (string, error) {
	var ref struct {
		Object struct {
			SHA string `json:"sha"`
		} `json:"object"`
	}
	err := c.getJSON(ctx, fmt.Sprintf("/repos/%s/%s/git/ref/heads/%s", owner, repo, branch), nil, &ref)
	return ref.Object.SHA, err
}

// CreateBranch creates a branch at sha. An existing branch is deleted and
// recreated so reruns on the same day do not fail.
func (c *Client) CreateBranch(ctx context.Context, owner, repo, branch, sha string) error {
	payload := map[string]string{
		"ref": "refs/heads/" + branch,
		"sha": sha,
	}
	err := c.sendJSON(ctx, http.MethodPost, fmt.Sprintf("/repos/%s/%s/git/refs", owner, repo), payload, nil)
	if apiErr, ok := err.(*APIError); ok && apiErr.StatusCode == http.StatusUnprocessableEntity {
		if delErr := c.DeleteBranch(ctx, owner, repo, branch); delErr == nil {
			return c.sendJSON(ctx, http.MethodPost, fmt.Sprintf("/repos/%s/%s/git/refs", owner, repo), payload, nil)
		}
	}
	return err
}

// DeleteBranch deletes a branch ref.
func (c *Client) DeleteBranch(ctx context.Context, owner, repo, branch string) error {
	resp, err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/repos/%s/%s/git/refs/heads/%s", owner, repo, branch), nil, nil)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// CreatePull opens a pull request and returns its HTML URL.
func (c *Client) CreatePull(ctx context.Context, owner, repo, title, body, head, base string) (string, error) {
	payload := map[string]string{
		"title": title,
		"body":  body,
		"head":  head,
		"base":  base,
	}
	var pr struct {
		HTMLURL string `json:"html_url"`
	}
	if err := c.sendJSON(ctx, http.MethodPost, fmt.Sprintf("/repos/%s/%s/pulls", owner, repo), payload, &pr); err != nil {
		return "", err
	}
	return pr.HTMLURL, nil
}
