// Package observer aggregates a finished run into an archived record, a
// cost estimate, a human-readable report, and the dashboard snapshot the
// web UI serves.
package observer

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/siteops/internal/store"
	"github.com/siteops/pkg/models"
)

// Pricing is the USD cost per 1000 tokens for a provider.
type Pricing struct {
	InputPer1K  float64
	OutputPer1K float64
}

// DefaultPricing covers the providers the llm package supports. Unknown
// providers cost zero rather than guessing.
var DefaultPricing = map[string]Pricing{
	"openai":   {InputPer1K: 0.00015, OutputPer1K: 0.0006},
	"googleai": {InputPer1K: 0.000075, OutputPer1K: 0.0003},
	"gemini":   {InputPer1K: 0.000075, OutputPer1K: 0.0003},
}

// EstimateCost prices a token usage record for a provider.
func EstimateCost(provider string, usage models.TokenUsage) float64 {
	p, ok := DefaultPricing[provider]
	if !ok {
		return 0
	}
	return float64(usage.InputTokens)/1000*p.InputPer1K +
		float64(usage.OutputTokens)/1000*p.OutputPer1K
}

// Dashboard is the snapshot served to the web UI.
type Dashboard struct {
	GeneratedAt string             `json:"generated_at"`
	Runs        []models.RunRecord `json:"runs"`
	Totals      DashboardTotals    `json:"totals"`
}

// DashboardTotals aggregates across the retained run history.
type DashboardTotals struct {
	Runs     int     `json:"runs"`
	Pushed   int     `json:"pushed"`
	PRs      int     `json:"prs"`
	Rejected int     `json:"rejected"`
	CostUSD  float64 `json:"cost_usd"`
}

// historyLimit caps how many runs the dashboard retains.
const historyLimit = 20

// Observer assembles run records and reports.
type Observer struct {
	st       *store.Store
	provider string
	now      func() time.Time
}

// New creates an Observer. provider selects the pricing table.
func New(st *store.Store, provider string) *Observer {
	return &Observer{st: st, provider: provider, now: time.Now}
}

// WithClock overrides the time source. Tests only.
func (o *Observer) WithClock(now func() time.Time) *Observer {
	o.now = now
	return o
}

// BuildRecord condenses one run's phase outputs into a RunRecord.
func (o *Observer) BuildRecord(runID, startedAt string, rc *models.RunContext, writer *models.WriterResults, editor *models.EditorResults, deployer *models.DeployerResults) models.RunRecord {
	record := models.RunRecord{
		RunID:      runID,
		StartedAt:  startedAt,
		FinishedAt: o.now().UTC().Format(time.RFC3339),
	}
	if rc != nil {
		record.Summary = rc.Summary
	}
	if writer != nil {
		record.Drafted = len(writer.Drafts)
		record.Errors += len(writer.Errors)
		record.Usage.Add(writer.Usage)
	}
	if editor != nil {
		record.Approved = editor.Approved
		record.Flagged = editor.Flagged
		record.Rejected = editor.Rejected
		record.Usage.Add(editor.Usage)
	}
	if deployer != nil {
		record.Pushed = len(deployer.Pushed)
		record.PRs = len(deployer.PRs)
		record.Errors += len(deployer.Errors)
	}
	record.CostUSD = EstimateCost(o.provider, record.Usage)
	return record
}

// Publish archives the record, rebuilds the dashboard, and writes the run
// report. It returns the report path.
func (o *Observer) Publish(record models.RunRecord, rc *models.RunContext, editor *models.EditorResults, deployer *models.DeployerResults) (string, error) {
	if err := o.st.SaveRunRecord(&record); err != nil {
		return "", fmt.Errorf("failed to archive run record: %w", err)
	}

	if err := o.RebuildDashboard(); err != nil {
		return "", err
	}

	report := o.Report(record, rc, editor, deployer)
	path, err := o.st.SaveReport(fmt.Sprintf("run-%s.md", record.RunID), report)
	if err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	log.Info().Str("report", path).Float64("cost_usd", record.CostUSD).Msg("run archived")
	return path, nil
}

// RebuildDashboard recomputes the dashboard snapshot from the archived
// run history.
func (o *Observer) RebuildDashboard() error {
	records, err := o.st.LoadRunRecords()
	if err != nil {
		return fmt.Errorf("failed to load run history: %w", err)
	}
	if len(records) > historyLimit {
		records = records[:historyLimit]
	}

	dash := Dashboard{
		GeneratedAt: o.now().UTC().Format(time.RFC3339),
		Runs:        records,
	}
	for _, r := range records {
		dash.Totals.Runs++
		dash.Totals.Pushed += r.Pushed
		dash.Totals.PRs += r.PRs
		dash.Totals.Rejected += r.Rejected
		dash.Totals.CostUSD += r.CostUSD
	}
	return o.st.SaveDashboard(dash)
}

// Report renders a markdown summary of one run.
func (o *Observer) Report(record models.RunRecord, rc *models.RunContext, editor *models.EditorResults, deployer *models.DeployerResults) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# Run %s\n\n", record.RunID)
	fmt.Fprintf(&sb, "Started %s, finished %s.\n\n", record.StartedAt, record.FinishedAt)
	fmt.Fprintf(&sb, "| Projects | Drafted | Approved | Flagged | Rejected | Pushed | PRs | Errors |\n")
	fmt.Fprintf(&sb, "|---|---|---|---|---|---|---|---|\n")
	fmt.Fprintf(&sb, "| %d | %d | %d | %d | %d | %d | %d | %d |\n\n",
		record.Summary.Total, record.Drafted, record.Approved, record.Flagged,
		record.Rejected, record.Pushed, record.PRs, record.Errors)
	fmt.Fprintf(&sb, "Tokens: %d in / %d out over %d requests. Estimated cost: $%.4f.\n",
		record.Usage.InputTokens, record.Usage.OutputTokens, record.Usage.Requests, record.CostUSD)

	if rc != nil && len(rc.Projects) > 0 {
		sb.WriteString("\n## Projects\n\n")
		for _, p := range rc.Projects {
			fmt.Fprintf(&sb, "- `%s` %s (score %d: %s)\n", p.Slug, p.Status, p.ChangeScore, p.ChangeReason)
		}
	}

	if editor != nil && len(editor.Verdicts) > 0 {
		sb.WriteString("\n## Verdicts\n\n")
		for _, v := range editor.Verdicts {
			fmt.Fprintf(&sb, "- `%s` **%s**: %s", v.Slug, v.Status, v.Reason)
			if len(v.Issues) > 0 {
				fmt.Fprintf(&sb, " (%s)", strings.Join(v.Issues, "; "))
			}
			sb.WriteByte('\n')
		}
	}

	if deployer != nil {
		sb.WriteString("\n## Deployment\n\n")
		for _, r := range deployer.Pushed {
			fmt.Fprintf(&sb, "- `%s` pushed\n", r.Slug)
		}
		for _, r := range deployer.PRs {
			fmt.Fprintf(&sb, "- `%s` in review: %s (%s)\n", r.Slug, r.URL, r.Reason)
		}
		for _, r := range deployer.Skipped {
			fmt.Fprintf(&sb, "- `%s` skipped: %s\n", r.Slug, r.Reason)
		}
	}

	return sb.String()
}
