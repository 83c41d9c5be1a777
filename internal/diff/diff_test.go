package diff

import (
	"strings"
	"testing"
)

func TestCompareIdentical(t *testing.T) {
	doc := "line one\nline two\nline three"
	r := Compare(doc, doc)
	if r.Added != 0 || r.Removed != 0 {
		t.Errorf("identical documents should have no changes, got +%d -%d", r.Added, r.Removed)
	}
	if r.ChangePercentage() != 0 {
		t.Errorf("expected 0%%, got %d%%", r.ChangePercentage())
	}
	if r.Summary() != "no changes" {
		t.Errorf("unexpected summary: %q", r.Summary())
	}
}

func TestCompareDisjoint(t *testing.T) {
	r := Compare("a\nb\nc", "x\ny\nz")
	if r.Common != 0 {
		t.Errorf("expected no common lines, got %d", r.Common)
	}
	if r.ChangePercentage() != 100 {
		t.Errorf("expected 100%%, got %d%%", r.ChangePercentage())
	}
}

func TestComparePartial(t *testing.T) {
	old := "header\nsummary old\nfooter"
	new := "header\nsummary new\nfooter"
	r := Compare(old, new)
	if r.Common != 2 {
		t.Errorf("expected 2 common lines, got %d", r.Common)
	}
	if r.Added != 1 || r.Removed != 1 {
		t.Errorf("expected +1 -1, got +%d -%d", r.Added, r.Removed)
	}
	if got := r.ChangePercentage(); got != 33 {
		t.Errorf("expected 33%%, got %d%%", got)
	}
}

func TestCompareEmptyInputs(t *testing.T) {
	if pct := Compare("", "").ChangePercentage(); pct != 0 {
		t.Errorf("empty pair should be 0%%, got %d%%", pct)
	}
	if pct := Compare("", "a\nb").ChangePercentage(); pct != 100 {
		t.Errorf("created document should be 100%%, got %d%%", pct)
	}
}

func TestCompareLargeDocument(t *testing.T) {
	lines := make([]string, 200)
	for i := range lines {
		lines[i] = strings.Repeat("x", i%7)
	}
	old := strings.Join(lines, "\n")
	lines[42] = "changed"
	new := strings.Join(lines, "\n")

	r := Compare(old, new)
	if r.Added != 1 || r.Removed != 1 {
		t.Errorf("expected single-line change, got +%d -%d", r.Added, r.Removed)
	}
}
