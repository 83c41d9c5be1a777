package models

// Commit represents a single commit collected from the source repository.
// Type is the conventional-commit category parsed from the message
// ("feat", "fix", "docs", "refactor", "chore", "other", ...).
type Commit struct {
	SHA     string `json:"sha"`
	Date    string `json:"date"`
	Message string `json:"message"`
	Type    string `json:"type"`
	Author  string `json:"author"`
}

// Release represents a published release of the source repository.
type Release struct {
	Tag        string `json:"tag"`
	Name       string `json:"name"`
	Date       string `json:"date"`
	Notes      string `json:"notes,omitempty"`
	Prerelease bool   `json:"prerelease"`
}

// Project status values assigned by the collector.
const (
	StatusNew    = "new"
	StatusUpdate = "update"
	StatusSkip   = "skip"
	StatusError  = "error"
)

// ProjectContext is the source of truth for one project page. It is built
// once per run by the collector and passed by value through the drafter and
// validator; no component mutates it.
type ProjectContext struct {
	Slug          string   `json:"slug"`
	Repo          string   `json:"repo"`
	Exists        bool     `json:"exists"`
	Locked        bool     `json:"locked"`
	PageSHA       string   `json:"page_sha,omitempty"`
	Status        string   `json:"status"`
	ChangeScore   int      `json:"change_score"`
	ChangeReason  string   `json:"change_reason"`
	LastDeploy    string   `json:"last_deploy,omitempty"`
	Commits       []Commit `json:"commits,omitempty"`
	Languages     []string `json:"languages,omitempty"`
	Releases      []Release `json:"releases,omitempty"`
	ReadmeExcerpt string   `json:"readme_excerpt,omitempty"`
	ReadmeSHA     string   `json:"readme_sha,omitempty"`
	Description   string   `json:"description,omitempty"`
	Stars         int      `json:"stars"`
	Forks         int      `json:"forks"`
	CurrentHTML   string   `json:"current_html,omitempty"`
}

// PolicyConfig bounds what generated content is allowed to say.
type PolicyConfig struct {
	Tone             string   `json:"tone"`
	MaxSummaryLength int      `json:"max_summary_length"`
	ForbiddenWords   []string `json:"forbidden_words"`
	RequiredSections []string `json:"required_sections"`
}

// VerdictStatus is the review decision for a draft.
type VerdictStatus string

const (
	StatusApprove VerdictStatus = "APPROVE"
	StatusFlagged VerdictStatus = "FLAGGED"
	StatusReject  VerdictStatus = "REJECT"
)

// Severity ranks statuses for fail-closed merging: REJECT beats FLAGGED
// beats APPROVE.
func (s VerdictStatus) Severity() int {
	switch s {
	case StatusReject:
		return 2
	case StatusFlagged:
		return 1
	default:
		return 0
	}
}

// Worse returns the more severe of two statuses.
func (s VerdictStatus) Worse(other VerdictStatus) VerdictStatus {
	if other.Severity() > s.Severity() {
		return other
	}
	return s
}

// Verdict is the structured output of the validator.
type Verdict struct {
	Status           VerdictStatus `json:"status"`
	Reason           string        `json:"reason"`
	Issues           []string      `json:"issues"`
	DiffSummary      string        `json:"diff_summary"`
	ChangePercentage int           `json:"change_percentage"`
}

// RunSummary holds the collector's per-run counters.
type RunSummary struct {
	Total   int `json:"total"`
	Updates int `json:"updates"`
	New     int `json:"new"`
	Skips   int `json:"skips"`
	Locked  int `json:"locked"`
}

// RunContext is the collector's output: everything downstream phases need.
type RunContext struct {
	GeneratedAt string           `json:"generated_at"`
	ConfigHash  string           `json:"config_hash"`
	Projects    []ProjectContext `json:"projects"`
	Summary     RunSummary       `json:"summary"`
}

// Project looks up a project by slug. Returns nil if absent.
func (rc *RunContext) Project(slug string) *ProjectContext {
	for i := range rc.Projects {
		if rc.Projects[i].Slug == slug {
			return &rc.Projects[i]
		}
	}
	return nil
}
