package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/siteops/pkg/models"
)

var (
	openFenceRe  = regexp.MustCompile("(?m)^```[a-zA-Z]*\\s*\n")
	closeFenceRe = regexp.MustCompile("(?m)\n```\\s*$")
)

// StripFences removes a markdown code-block wrapper from a model response.
// Models frequently wrap HTML or JSON output in ```html / ```json fences
// despite instructions not to.
func StripFences(response string) string {
	response = strings.TrimSpace(response)
	response = openFenceRe.ReplaceAllString(response, "")
	response = closeFenceRe.ReplaceAllString(response, "")
	return strings.TrimSpace(response)
}

// DecodeVerdict parses a model's review response into a Verdict, repairing
// malformed JSON first. The returned stats describe what repair, if any,
// was needed.
func DecodeVerdict(raw string) (models.Verdict, RepairStats, error) {
	cleaned := StripFences(raw)

	repaired, stats, err := RepairJSON(cleaned)
	if err != nil {
		return models.Verdict{}, stats, fmt.Errorf("verdict response is not valid JSON: %w", err)
	}

	var verdict models.Verdict
	if err := json.Unmarshal([]byte(repaired), &verdict); err != nil {
		return models.Verdict{}, stats, fmt.Errorf("verdict response has unexpected shape: %w", err)
	}

	verdict.Status = normalizeStatus(string(verdict.Status))
	if verdict.ChangePercentage < 0 {
		verdict.ChangePercentage = 0
	}
	if verdict.ChangePercentage > 100 {
		verdict.ChangePercentage = 100
	}

	return verdict, stats, nil
}

// normalizeStatus maps loose status spellings onto the canonical values,
// failing closed to FLAGGED for anything unrecognized.
func normalizeStatus(s string) models.VerdictStatus {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "APPROVE", "APPROVED":
		return models.StatusApprove
	case "REJECT", "REJECTED":
		return models.StatusReject
	case "FLAGGED", "FLAG":
		return models.StatusFlagged
	default:
		return models.StatusFlagged
	}
}
