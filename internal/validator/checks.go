package validator

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/siteops/internal/diff"
	"github.com/siteops/internal/page"
	"github.com/siteops/pkg/models"
)

// Thresholds tune the deterministic checks. Zero values fall back to
// defaults.
type Thresholds struct {
	// Disproportion is the change percentage above which a draft needs
	// source activity to justify it.
	Disproportion int
	// SignalWeight is how many percentage points one unit of source
	// activity (a commit, three per release) justifies.
	SignalWeight int
}

func (t Thresholds) withDefaults() Thresholds {
	if t.Disproportion == 0 {
		t.Disproportion = 30
	}
	if t.SignalWeight == 0 {
		t.SignalWeight = 10
	}
	return t
}

const summarySection = "summary"

var (
	tagRe     = regexp.MustCompile(`<[^>]*>`)
	commentRe = regexp.MustCompile(`(?s)<!--.*?-->`)
	versionRe = regexp.MustCompile(`\bv\d+\.\d+(?:\.\d+)?(?:-[\w.]+)?\b`)
	dateRe    = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`)
)

func visibleText(doc string) string {
	text := commentRe.ReplaceAllString(doc, " ")
	text = tagRe.ReplaceAllString(text, " ")
	return strings.Join(strings.Fields(text), " ")
}

// RunChecks executes every deterministic policy check over a candidate and
// returns a merged fail-closed verdict. The published document may be empty
// for a page that does not exist yet.
func RunChecks(project models.ProjectContext, policy models.PolicyConfig, published, candidate string, t Thresholds) models.Verdict {
	t = t.withDefaults()

	verdict := models.Verdict{Status: models.StatusApprove}
	candidateText := visibleText(candidate)

	reject := func(format string, args ...interface{}) {
		verdict.Issues = append(verdict.Issues, fmt.Sprintf(format, args...))
		verdict.Status = verdict.Status.Worse(models.StatusReject)
	}
	flag := func(format string, args ...interface{}) {
		verdict.Issues = append(verdict.Issues, fmt.Sprintf(format, args...))
		verdict.Status = verdict.Status.Worse(models.StatusFlagged)
	}

	// Tone: forbidden words are a hard reject, whole word, any case.
	for _, word := range policy.ForbiddenWords {
		re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(word) + `\b`)
		if re.MatchString(candidateText) {
			reject("forbidden word %q present", word)
		}
	}

	// Structure: well-formed document with every required section.
	if !page.WellFormed(candidate) {
		reject("candidate HTML is not well-formed")
	}
	for _, id := range policy.RequiredSections {
		if !page.HasSectionID(candidate, id) {
			reject("required section %q missing", id)
		}
	}

	// Manual regions must survive byte for byte.
	if published != "" {
		bad, err := page.MissingOrAltered(published, candidate)
		if err != nil {
			reject("published page markers unreadable: %v", err)
		}
		for _, name := range bad {
			reject("manual region %q removed or altered", name)
		}
	}

	// Summary length, measured on visible text only.
	if summary := page.SectionText(candidate, summarySection); summary != "" {
		length := utf8.RuneCountInString(summary)
		switch {
		case length > policy.MaxSummaryLength:
			flag("summary is %d characters, limit is %d", length, policy.MaxSummaryLength)
		case length == policy.MaxSummaryLength:
			flag("summary sits exactly at the %d character limit", policy.MaxSummaryLength)
		}
	}

	// Traceability: versions and dates on the page must exist in the
	// source data or on the published page already.
	for _, issue := range untraceableClaims(project, published, candidateText) {
		flag("%s", issue)
	}

	// Proportionality: a large rewrite needs activity to justify it.
	d := diff.Compare(published, candidate)
	verdict.ChangePercentage = d.ChangePercentage()
	verdict.DiffSummary = d.Summary()
	if published != "" {
		signal := len(project.Commits) + 3*len(project.Releases)
		if verdict.ChangePercentage >= t.Disproportion && signal*t.SignalWeight < verdict.ChangePercentage {
			flag("%d%% of the page changed but source activity justifies about %d%%",
				verdict.ChangePercentage, signal*t.SignalWeight)
		}
	}

	switch verdict.Status {
	case models.StatusApprove:
		verdict.Reason = "all checks passed"
	case models.StatusFlagged:
		verdict.Reason = verdict.Issues[0]
	default:
		verdict.Reason = verdict.Issues[0]
	}
	return verdict
}

// untraceableClaims extracts version strings and dates from the candidate
// text and reports those that appear in neither the project data nor the
// published page.
func untraceableClaims(project models.ProjectContext, published, candidateText string) []string {
	known := strings.Builder{}
	known.WriteString(visibleText(published))
	known.WriteByte(' ')
	known.WriteString(project.Description)
	known.WriteByte(' ')
	known.WriteString(project.ReadmeExcerpt)
	for _, c := range project.Commits {
		fmt.Fprintf(&known, " %s %s", c.Date, c.Message)
	}
	for _, r := range project.Releases {
		fmt.Fprintf(&known, " %s %s %s %s", r.Tag, r.Name, r.Date, r.Notes)
	}
	if project.LastDeploy != "" {
		fmt.Fprintf(&known, " %s", project.LastDeploy)
	}
	knownText := known.String()

	var issues []string
	seen := map[string]bool{}
	for _, claim := range versionRe.FindAllString(candidateText, -1) {
		if !seen[claim] && !strings.Contains(knownText, claim) {
			issues = append(issues, fmt.Sprintf("version %q not traceable to source data", claim))
			seen[claim] = true
		}
	}
	for _, claim := range dateRe.FindAllString(candidateText, -1) {
		if !seen[claim] && !strings.Contains(knownText, claim) {
			issues = append(issues, fmt.Sprintf("date %q not traceable to source data", claim))
			seen[claim] = true
		}
	}
	return issues
}
