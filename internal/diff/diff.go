// Package diff measures how much a candidate document changed relative to
// the published one. The validator uses the change percentage for its
// proportionality check and the summary for verdict reporting.
package diff

import (
	"fmt"
	"strings"
)

// Result describes a line-level comparison of two documents.
type Result struct {
	Added    int
	Removed  int
	Common   int
	OldLines int
	NewLines int
}

// Compare runs a longest-common-subsequence diff over the lines of old and
// new. Identical inputs yield Added == Removed == 0.
func Compare(old, new string) Result {
	a := splitLines(old)
	b := splitLines(new)

	common := lcsLength(a, b)
	return Result{
		Added:    len(b) - common,
		Removed:  len(a) - common,
		Common:   common,
		OldLines: len(a),
		NewLines: len(b),
	}
}

// ChangePercentage is the share of the larger document affected by the
// change, as an integer 0-100. An empty pair counts as unchanged; a page
// created from nothing counts as fully changed.
func (r Result) ChangePercentage() int {
	total := r.OldLines
	if r.NewLines > total {
		total = r.NewLines
	}
	if total == 0 {
		return 0
	}
	changed := r.Added
	if r.Removed > changed {
		changed = r.Removed
	}
	pct := changed * 100 / total
	if pct > 100 {
		pct = 100
	}
	return pct
}

// Summary renders a one-line human-readable description of the change.
func (r Result) Summary() string {
	if r.Added == 0 && r.Removed == 0 {
		return "no changes"
	}
	return fmt.Sprintf("%d lines added, %d removed (%d unchanged, %d%% of page affected)",
		r.Added, r.Removed, r.Common, r.ChangePercentage())
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(strings.TrimRight(s, "\n"), "\n")
}

// lcsLength computes the longest common subsequence length over two line
// slices with the classic two-row DP. Page documents are small enough that
// the quadratic cost does not matter.
func lcsLength(a, b []string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
