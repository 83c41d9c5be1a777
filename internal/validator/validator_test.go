package validator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siteops/pkg/models"
)

type fakeLLM struct {
	response string
	err      error
	calls    int
}

func (f *fakeLLM) Generate(context.Context, string) (string, error) {
	f.calls++
	return f.response, f.err
}

func (f *fakeLLM) Name() string { return "fake" }

const approveJSON = `{"status": "APPROVE", "reason": "looks accurate", "issues": [], "diff_summary": "minor edits", "change_percentage": 5}`

const publishedPage = `<html>
<body>
<section id="summary">A widget library for Go.</section>
<!-- MANUAL:story -->
<p>Hand-written.</p>
<!-- /MANUAL:story -->
<section id="changelog"><ul>
<li>2026-07-01 v1.0.0 released</li>
</ul></section>
</body>
</html>`

func testProject() models.ProjectContext {
	return models.ProjectContext{
		Slug:   "widget",
		Repo:   "alice/widget",
		Exists: true,
		Commits: []models.Commit{
			{Date: "2026-08-21", Message: "feat: add frobnicator", Type: "feat"},
			{Date: "2026-08-22", Message: "fix: handle nil", Type: "fix"},
		},
		Releases: []models.Release{{Tag: "v1.2.0", Name: "v1.2.0", Date: "2026-08-20"}},
	}
}

func testPolicy() models.PolicyConfig {
	return models.PolicyConfig{
		Tone:             "factual",
		MaxSummaryLength: 280,
		ForbiddenWords:   []string{"revolutionary", "world-class"},
		RequiredSections: []string{"summary", "changelog"},
	}
}

func approvingValidator() (*Validator, *fakeLLM) {
	llm := &fakeLLM{response: approveJSON}
	return New(llm, Thresholds{}), llm
}

func review(t *testing.T, v *Validator, candidate string) models.Verdict {
	t.Helper()
	verdict, err := v.Review(context.Background(), testProject(), testPolicy(), publishedPage, candidate)
	require.NoError(t, err)
	return verdict
}

func TestIdenticalCandidateApproves(t *testing.T) {
	v, _ := approvingValidator()
	verdict := review(t, v, publishedPage)

	assert.Equal(t, models.StatusApprove, verdict.Status)
	assert.Equal(t, 0, verdict.ChangePercentage)
	assert.Equal(t, "no changes", verdict.DiffSummary)
}

func TestForbiddenWordRejects(t *testing.T) {
	candidate := strings.Replace(publishedPage,
		"A widget library for Go.",
		"A Revolutionary widget library for Go.", 1)
	v, llm := approvingValidator()

	verdict := review(t, v, candidate)

	assert.Equal(t, models.StatusReject, verdict.Status)
	require.NotEmpty(t, verdict.Issues)
	assert.Contains(t, verdict.Issues[0], `"revolutionary"`)
	assert.Equal(t, 0, llm.calls, "deterministic reject skips the model")
}

func TestForbiddenWordNeedsWholeWord(t *testing.T) {
	// "world-classical" must not trip the "world-class" rule... but the
	// hyphen is a word boundary, so test with a genuinely distinct word.
	candidate := strings.Replace(publishedPage,
		"A widget library for Go.",
		"A revolutionarily simple widget library.", 1)
	v, _ := approvingValidator()

	verdict := review(t, v, candidate)
	assert.NotEqual(t, models.StatusReject, verdict.Status)
}

func TestAlteredManualRegionRejects(t *testing.T) {
	candidate := strings.Replace(publishedPage, "Hand-written.", "Machine-written.", 1)
	v, _ := approvingValidator()

	verdict := review(t, v, candidate)

	assert.Equal(t, models.StatusReject, verdict.Status)
	assert.Contains(t, strings.Join(verdict.Issues, "\n"), `manual region "story"`)
}

func TestRemovedManualRegionRejects(t *testing.T) {
	candidate := strings.ReplaceAll(publishedPage, "<!-- MANUAL:story -->", "")
	candidate = strings.ReplaceAll(candidate, "<!-- /MANUAL:story -->", "")
	v, _ := approvingValidator()

	verdict := review(t, v, candidate)
	assert.Equal(t, models.StatusReject, verdict.Status)
}

func TestMissingRequiredSectionRejects(t *testing.T) {
	candidate := strings.Replace(publishedPage, `id="changelog"`, `id="news"`, 1)
	v, _ := approvingValidator()

	verdict := review(t, v, candidate)

	assert.Equal(t, models.StatusReject, verdict.Status)
	assert.Contains(t, strings.Join(verdict.Issues, "\n"), `required section "changelog" missing`)
}

func TestMalformedHTMLRejects(t *testing.T) {
	v, _ := approvingValidator()
	verdict := review(t, v, "<div>no html or body element</div>")
	assert.Equal(t, models.StatusReject, verdict.Status)
}

func TestOverlongSummaryNeverApproves(t *testing.T) {
	long := strings.Repeat("words and more words ", 20) // well over 280 chars
	candidate := strings.Replace(publishedPage,
		"A widget library for Go.", long, 1)
	v, _ := approvingValidator()

	verdict := review(t, v, candidate)

	assert.NotEqual(t, models.StatusApprove, verdict.Status)
	assert.Contains(t, strings.Join(verdict.Issues, "\n"), "limit is 280")
}

func TestSummaryExactlyAtLimitFlags(t *testing.T) {
	exact := strings.Repeat("a", 280)
	candidate := strings.Replace(publishedPage,
		"A widget library for Go.", exact, 1)
	v, _ := approvingValidator()

	verdict := review(t, v, candidate)

	assert.Equal(t, models.StatusFlagged, verdict.Status)
	assert.Contains(t, strings.Join(verdict.Issues, "\n"), "exactly at the 280 character limit")
}

func TestUntraceableVersionFlags(t *testing.T) {
	candidate := strings.Replace(publishedPage,
		"<li>2026-07-01 v1.0.0 released</li>",
		"<li>2026-07-01 v1.0.0 released</li>\n<li>v3.0.0 shipped</li>", 1)
	v, _ := approvingValidator()

	verdict := review(t, v, candidate)

	assert.Equal(t, models.StatusFlagged, verdict.Status)
	assert.Contains(t, strings.Join(verdict.Issues, "\n"), `version "v3.0.0" not traceable`)
}

func TestTraceableVersionAndDatePass(t *testing.T) {
	candidate := strings.Replace(publishedPage,
		"<li>2026-07-01 v1.0.0 released</li>",
		"<li>2026-07-01 v1.0.0 released</li>\n<li>2026-08-20 v1.2.0 released</li>", 1)
	v, _ := approvingValidator()

	verdict := review(t, v, candidate)
	assert.Equal(t, models.StatusApprove, verdict.Status)
}

func TestDisproportionateChangeFlags(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("<html>\n<body>\n<section id=\"summary\">Totally new text.</section>\n")
	sb.WriteString("<!-- MANUAL:story -->\n<p>Hand-written.</p>\n<!-- /MANUAL:story -->\n")
	sb.WriteString("<section id=\"changelog\"><ul>\n")
	for i := 0; i < 40; i++ {
		sb.WriteString("<li>an entirely rewritten line of content</li>\n")
	}
	sb.WriteString("</ul></section>\n</body>\n</html>")

	project := testProject()
	project.Commits = nil
	project.Releases = nil

	v, _ := approvingValidator()
	verdict, err := v.Review(context.Background(), project, testPolicy(), publishedPage, sb.String())
	require.NoError(t, err)

	assert.Equal(t, models.StatusFlagged, verdict.Status)
	assert.Contains(t, strings.Join(verdict.Issues, "\n"), "source activity justifies")
}

func TestModelCanTightenButNotLoosen(t *testing.T) {
	// Deterministic checks pass but the model smells a hallucination.
	llm := &fakeLLM{response: `{"status": "FLAGGED", "reason": "claim about GPU support is unsupported", "issues": ["GPU support not in source data"], "diff_summary": "", "change_percentage": 10}`}
	v := New(llm, Thresholds{})

	verdict := review(t, v, publishedPage)

	assert.Equal(t, models.StatusFlagged, verdict.Status)
	assert.Equal(t, "claim about GPU support is unsupported", verdict.Reason)
	assert.Contains(t, verdict.Issues, "GPU support not in source data")
	assert.Equal(t, 0, verdict.ChangePercentage, "measurement stays deterministic")
}

func TestModelCannotOverrideDeterministicFlag(t *testing.T) {
	exact := strings.Repeat("a", 280)
	candidate := strings.Replace(publishedPage,
		"A widget library for Go.", exact, 1)

	llm := &fakeLLM{response: approveJSON}
	v := New(llm, Thresholds{})
	verdict, err := v.Review(context.Background(), testProject(), testPolicy(), publishedPage, candidate)
	require.NoError(t, err)

	assert.Equal(t, models.StatusFlagged, verdict.Status, "model approval cannot clear a deterministic flag")
}

func TestModelFailureFailsClosed(t *testing.T) {
	llm := &fakeLLM{err: errors.New("provider down")}
	v := New(llm, Thresholds{})

	verdict := review(t, v, publishedPage)

	assert.Equal(t, models.StatusFlagged, verdict.Status)
	assert.Contains(t, strings.Join(verdict.Issues, "\n"), "model review unavailable")
}

func TestUndecodableModelOutputFailsClosed(t *testing.T) {
	llm := &fakeLLM{response: "I think this draft is pretty good overall!"}
	v := New(llm, Thresholds{})

	verdict := review(t, v, publishedPage)
	assert.NotEqual(t, models.StatusApprove, verdict.Status)
}

func TestRunChecksIsDeterministic(t *testing.T) {
	// A candidate that trips several checks at once, so issue content and
	// ordering both matter.
	candidate := strings.Replace(publishedPage,
		"A widget library for Go.",
		"A revolutionary world-class widget library.", 1)
	candidate = strings.Replace(candidate, `id="changelog"`, `id="news"`, 1)

	first := RunChecks(testProject(), testPolicy(), publishedPage, candidate, Thresholds{})
	second := RunChecks(testProject(), testPolicy(), publishedPage, candidate, Thresholds{})

	require.NotEmpty(t, first.Issues)
	assert.Equal(t, first, second, "same inputs must yield the identical verdict, issue order included")
}

func TestReviewIsIdempotent(t *testing.T) {
	candidate := strings.Replace(publishedPage,
		"<li>2026-07-01 v1.0.0 released</li>",
		"<li>2026-07-01 v1.0.0 released</li>\n<li>v9.0.0 shipped</li>", 1)
	v, _ := approvingValidator()

	first := review(t, v, candidate)
	second := review(t, v, candidate)

	assert.Equal(t, models.StatusFlagged, first.Status)
	assert.Equal(t, first, second)
}

func TestNewPageSkipsRegionAndProportionChecks(t *testing.T) {
	candidate := `<html>
<body>
<section id="summary">A brand new page.</section>
<section id="changelog"><ul><li>2026-08-20 v1.2.0 released</li></ul></section>
</body>
</html>`
	v, _ := approvingValidator()
	verdict, err := v.Review(context.Background(), testProject(), testPolicy(), "", candidate)
	require.NoError(t, err)

	assert.Equal(t, models.StatusApprove, verdict.Status)
	assert.Equal(t, 100, verdict.ChangePercentage)
}
