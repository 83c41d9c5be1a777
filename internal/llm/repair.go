package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/kaptinlin/jsonrepair"
)

// RepairStats tracks what a JSON repair pass had to do.
type RepairStats struct {
	OriginalBytes int           `json:"original_bytes"`
	RepairedBytes int           `json:"repaired_bytes"`
	Strategies    []string      `json:"strategies,omitempty"`
	RepairTime    time.Duration `json:"repair_time"`
	WasRepaired   bool          `json:"was_repaired"`
}

var (
	trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)
	unquotedKeyRe   = regexp.MustCompile(`([{,]\s*)([a-zA-Z_][a-zA-Z0-9_]*)(\s*:)`)
	singleQuoteRe   = regexp.MustCompile(`'([^']*)'`)
)

// RepairJSON attempts to make a model's JSON output parseable. Cheap
// targeted fixes run first; the jsonrepair library is the fallback for
// anything they cannot handle.
func RepairJSON(raw string) (string, RepairStats, error) {
	startTime := time.Now()
	stats := RepairStats{OriginalBytes: len(raw)}

	if isValid(raw) {
		stats.RepairedBytes = len(raw)
		stats.RepairTime = time.Since(startTime)
		return raw, stats, nil
	}

	stats.WasRepaired = true
	repaired := raw

	if trailingCommaRe.MatchString(repaired) {
		repaired = trailingCommaRe.ReplaceAllString(repaired, "$1")
		stats.Strategies = append(stats.Strategies, "trailing_commas")
	}

	if completed := completeJSON(repaired); completed != repaired {
		repaired = completed
		stats.Strategies = append(stats.Strategies, "completion")
	}

	if unquotedKeyRe.MatchString(repaired) {
		repaired = unquotedKeyRe.ReplaceAllString(repaired, `$1"$2"$3`)
		stats.Strategies = append(stats.Strategies, "key_quotes")
	}

	if !isValid(repaired) && singleQuoteRe.MatchString(repaired) {
		repaired = singleQuoteRe.ReplaceAllString(repaired, `"$1"`)
		stats.Strategies = append(stats.Strategies, "single_quotes")
	}

	// Library fallback for anything the targeted fixes missed.
	if !isValid(repaired) {
		libraryRepaired, err := jsonrepair.JSONRepair(repaired)
		if err == nil && libraryRepaired != repaired {
			repaired = libraryRepaired
			stats.Strategies = append(stats.Strategies, "jsonrepair_library")
		}
	}

	stats.RepairedBytes = len(repaired)
	stats.RepairTime = time.Since(startTime)

	if !isValid(repaired) {
		return repaired, stats, fmt.Errorf("JSON repair failed after %d strategies", len(stats.Strategies))
	}

	return repaired, stats, nil
}

func isValid(s string) bool {
	var v interface{}
	return json.Unmarshal([]byte(s), &v) == nil
}

// completeJSON closes unterminated objects and arrays in last-opened,
// first-closed order. String contents are skipped so braces inside values
// do not confuse the balance.
func completeJSON(s string) string {
	s = strings.TrimSpace(s)

	var stack []rune
	inString := false
	escaped := false

	for _, char := range s {
		if escaped {
			escaped = false
			continue
		}
		switch char {
		case '\\':
			escaped = inString
		case '"':
			inString = !inString
		case '{':
			if !inString {
				stack = append(stack, '}')
			}
		case '[':
			if !inString {
				stack = append(stack, ']')
			}
		case '}', ']':
			if !inString && len(stack) > 0 && stack[len(stack)-1] == char {
				stack = stack[:len(stack)-1]
			}
		}
	}

	if inString {
		s += `"`
	}
	for i := len(stack) - 1; i >= 0; i-- {
		s += string(stack[i])
	}
	return s
}
