package models

// TokenUsage accumulates LLM token consumption for cost reporting.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	Requests     int `json:"requests"`
}

// Add merges another usage record into this one.
func (u *TokenUsage) Add(other TokenUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.Requests += other.Requests
}

// Since returns the usage accrued after an earlier snapshot of the same
// counter, so a shared client's total can be split across phases.
func (u TokenUsage) Since(snapshot TokenUsage) TokenUsage {
	return TokenUsage{
		InputTokens:  u.InputTokens - snapshot.InputTokens,
		OutputTokens: u.OutputTokens - snapshot.OutputTokens,
		Requests:     u.Requests - snapshot.Requests,
	}
}

// DraftRecord describes one generated draft artifact.
type DraftRecord struct {
	Slug   string `json:"slug"`
	Path   string `json:"path"`
	Status string `json:"status"`
	IsNew  bool   `json:"is_new"`
}

// PhaseError records a per-project failure inside a phase.
type PhaseError struct {
	Slug  string `json:"slug"`
	Error string `json:"error"`
}

// WriterResults is the drafting phase output (writer_results.json).
type WriterResults struct {
	Drafts []DraftRecord `json:"drafts"`
	Errors []PhaseError  `json:"errors"`
	Usage  TokenUsage    `json:"usage"`
}

// VerdictRecord pairs a verdict with the slug and artifact path it belongs to.
type VerdictRecord struct {
	Slug string `json:"slug"`
	Path string `json:"path"`
	Verdict
}

// EditorResults is the review phase output (editor_results.json).
type EditorResults struct {
	Verdicts []VerdictRecord `json:"verdicts"`
	Approved int             `json:"approved"`
	Flagged  int             `json:"flagged"`
	Rejected int             `json:"rejected"`
	Usage    TokenUsage      `json:"usage"`
}

// DeployRecord describes one deployed page or opened pull request.
type DeployRecord struct {
	Slug   string `json:"slug"`
	URL    string `json:"url,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// DeployerResults is the deployment phase output (deployer_results.json).
type DeployerResults struct {
	Pushed  []DeployRecord `json:"pushed"`
	PRs     []DeployRecord `json:"prs"`
	Skipped []DeployRecord `json:"skipped"`
	Errors  []PhaseError   `json:"errors"`
}

// RunRecord is one archived pipeline run, aggregated by the observer.
// Timestamps are RFC 3339 strings so lexical order is chronological order.
type RunRecord struct {
	RunID      string     `json:"run_id"`
	StartedAt  string     `json:"started_at"`
	FinishedAt string     `json:"finished_at"`
	Summary    RunSummary `json:"summary"`
	Drafted    int        `json:"drafted"`
	Approved   int        `json:"approved"`
	Flagged    int        `json:"flagged"`
	Rejected   int        `json:"rejected"`
	Pushed     int        `json:"pushed"`
	PRs        int        `json:"prs"`
	Errors     int        `json:"errors"`
	Usage      TokenUsage `json:"usage"`
	CostUSD    float64    `json:"cost_usd"`
}
