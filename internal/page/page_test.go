package page

import (
	"errors"
	"strings"
	"testing"
)

const samplePage = `<!DOCTYPE html>
<html lang="en">
<!-- DEPLOYED: 2026-07-01 -->
<head><title>demo</title></head>
<body>
<main>
<section id="summary">A small tool.</section>
<section id="changelog"><ul><li>fix: things</li></ul></section>
<!-- MANUAL:custom -->
<p>Hand-written notes.</p>
<!-- /MANUAL:custom -->
<!-- MANUAL:credits -->
<p>Thanks.</p>
<!-- /MANUAL:credits -->
</main>
</body>
</html>`

func TestRegions(t *testing.T) {
	regions, err := Regions(samplePage)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if len(regions) != 2 {
		t.Fatalf("expected 2 regions, got %d", len(regions))
	}
	if regions[0].Name != "custom" || regions[1].Name != "credits" {
		t.Errorf("unexpected region order: %s, %s", regions[0].Name, regions[1].Name)
	}
	if !strings.Contains(regions[0].Content, "Hand-written notes.") {
		t.Error("region content should include the protected text")
	}
	if !strings.HasPrefix(regions[0].Content, "<!-- MANUAL:custom -->") {
		t.Error("region content should include its markers")
	}
}

func TestRegionsStructuralErrors(t *testing.T) {
	cases := []struct {
		name string
		html string
	}{
		{"unclosed", `<!-- MANUAL:a -->content`},
		{"close without open", `content<!-- /MANUAL:a -->`},
		{"mismatched close", `<!-- MANUAL:a -->x<!-- /MANUAL:b -->`},
		{"nested open", `<!-- MANUAL:a --><!-- MANUAL:b -->x<!-- /MANUAL:b --><!-- /MANUAL:a -->`},
		{"duplicate id", `<!-- MANUAL:a -->x<!-- /MANUAL:a --><!-- MANUAL:a -->y<!-- /MANUAL:a -->`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Regions(tc.html)
			if err == nil {
				t.Fatal("expected a structural error")
			}
			var structural *StructuralError
			if !errors.As(err, &structural) {
				t.Errorf("expected StructuralError, got %T", err)
			}
		})
	}
}

func TestInjectRegions(t *testing.T) {
	regions, err := Regions(samplePage)
	if err != nil {
		t.Fatal(err)
	}

	draft := strings.Replace(samplePage, "Hand-written notes.", "MODEL REWROTE THIS", 1)
	injected, missing := InjectRegions(draft, regions)
	if len(missing) != 0 {
		t.Fatalf("expected no missing regions, got %v", missing)
	}
	if strings.Contains(injected, "MODEL REWROTE THIS") {
		t.Error("injection should restore the published region bytes")
	}

	bad, err := MissingOrAltered(samplePage, injected)
	if err != nil {
		t.Fatal(err)
	}
	if len(bad) != 0 {
		t.Errorf("injected draft should preserve every region, got %v", bad)
	}
}

func TestInjectRegionsReportsDropped(t *testing.T) {
	regions, err := Regions(samplePage)
	if err != nil {
		t.Fatal(err)
	}

	draft := `<html><body>no markers at all</body></html>`
	_, missing := InjectRegions(draft, regions)
	if len(missing) != 2 {
		t.Fatalf("expected both regions reported as dropped, got %v", missing)
	}
}

func TestMissingOrAltered(t *testing.T) {
	// Remove the credits region entirely.
	start := strings.Index(samplePage, "<!-- MANUAL:credits -->")
	end := strings.Index(samplePage, "<!-- /MANUAL:credits -->") + len("<!-- /MANUAL:credits -->")
	dropped := samplePage[:start] + samplePage[end:]

	bad, err := MissingOrAltered(samplePage, dropped)
	if err != nil {
		t.Fatal(err)
	}
	if len(bad) != 1 || bad[0] != "credits" {
		t.Errorf("expected [credits], got %v", bad)
	}

	// Alter the custom region content.
	altered := strings.Replace(samplePage, "Hand-written notes.", "tampered", 1)
	bad, err = MissingOrAltered(samplePage, altered)
	if err != nil {
		t.Fatal(err)
	}
	if len(bad) != 1 || bad[0] != "custom" {
		t.Errorf("expected [custom], got %v", bad)
	}
}

func TestLockAndDeployMarkers(t *testing.T) {
	if IsLocked(samplePage) {
		t.Error("sample page should not be locked")
	}
	if !IsLocked("<!-- LOCK -->" + samplePage) {
		t.Error("LOCK marker should be detected")
	}

	if got := DeployDate(samplePage); got != "2026-07-01" {
		t.Errorf("expected deploy date 2026-07-01, got %q", got)
	}
	if got := DeployDate("<html></html>"); got != "" {
		t.Errorf("expected empty deploy date, got %q", got)
	}
}

func TestStampDeployMarker(t *testing.T) {
	stamped := StampDeployMarker(samplePage, "2026-08-30")
	if DeployDate(stamped) != "2026-08-30" {
		t.Errorf("expected updated deploy date, got %q", DeployDate(stamped))
	}
	if strings.Count(stamped, "<!-- DEPLOYED:") != 1 {
		t.Error("stamping should not duplicate the marker")
	}

	bare := StampDeployMarker("<p>fragment</p>", "2026-08-30")
	if !strings.HasPrefix(bare, "<!-- DEPLOYED: 2026-08-30 -->") {
		t.Error("fragment should get the marker prepended")
	}
}

func TestStampDeployMarkerLeavesManualRegionsAlone(t *testing.T) {
	doc := `<html>
<!-- DEPLOYED: 2026-07-01 -->
<body>
<!-- MANUAL:notes -->
<p>archived on <!-- DEPLOYED: 2020-05-05 --> that day</p>
<!-- /MANUAL:notes -->
</body>
</html>`

	stamped := StampDeployMarker(doc, "2026-08-30")

	if !strings.Contains(stamped, "<!-- DEPLOYED: 2020-05-05 -->") {
		t.Error("marker inside a manual region must not be rewritten")
	}
	if !strings.Contains(stamped, "<!-- DEPLOYED: 2026-08-30 -->") {
		t.Error("marker outside the regions should be updated")
	}
	if altered, err := MissingOrAltered(doc, stamped); err != nil || len(altered) != 0 {
		t.Errorf("stamping must preserve regions, got altered=%v err=%v", altered, err)
	}
}

func TestStampDeployMarkerWithOnlyInRegionMarker(t *testing.T) {
	doc := `<html>
<body>
<!-- MANUAL:notes -->
<!-- DEPLOYED: 2020-05-05 -->
<!-- /MANUAL:notes -->
</body>
</html>`

	stamped := StampDeployMarker(doc, "2026-08-30")

	if !strings.Contains(stamped, "<!-- DEPLOYED: 2020-05-05 -->") {
		t.Error("in-region marker must survive")
	}
	// A fresh marker lands outside the region, right after <html>.
	if !strings.Contains(stamped, "<html>\n<!-- DEPLOYED: 2026-08-30 -->") {
		t.Errorf("expected a new top-level marker, got:\n%s", stamped)
	}
	if altered, err := MissingOrAltered(doc, stamped); err != nil || len(altered) != 0 {
		t.Errorf("stamping must preserve regions, got altered=%v err=%v", altered, err)
	}
}
