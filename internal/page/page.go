// Package page handles the HTML page documents the pipeline reads and
// writes: manual region markers, lock and deploy markers, and structural
// validation. The pipeline treats region identifiers as opaque; it only
// needs pairing and equality.
package page

import (
	"fmt"
	"regexp"
	"strings"
)

// Marker conventions embedded in HTML comments.
//
//	<!-- MANUAL:name --> ... <!-- /MANUAL:name -->   protected span
//	<!-- LOCK -->                                    page is never regenerated
//	<!-- DEPLOYED: YYYY-MM-DD -->                    last automated deploy
var (
	markerRe = regexp.MustCompile(`<!-- (/?)MANUAL:(\w+) -->`)
	lockRe   = regexp.MustCompile(`<!-- LOCK -->`)
	deployRe = regexp.MustCompile(`<!-- DEPLOYED: (\d{4}-\d{2}-\d{2}) -->`)
	htmlTag  = regexp.MustCompile(`(<html[^>]*>)`)
)

// StructuralError reports a malformed document: unmatched, overlapping or
// duplicated manual markers. The pipeline never guesses a repair.
type StructuralError struct {
	Reason string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("structural error: %s", e.Reason)
}

// Region is one manual span, markers included, exactly as it appears in the
// source document.
type Region struct {
	Name    string
	Content string
}

// Regions extracts all manual regions from html in document order. It
// returns a StructuralError if any opening marker lacks a matching close,
// regions overlap, or an identifier appears more than once.
func Regions(html string) ([]Region, error) {
	matches := markerRe.FindAllStringSubmatchIndex(html, -1)

	var regions []Region
	seen := map[string]bool{}
	openName := ""
	openStart := -1

	for _, m := range matches {
		closing := html[m[2]:m[3]] == "/"
		name := html[m[4]:m[5]]

		switch {
		case !closing && openName != "":
			return nil, &StructuralError{Reason: fmt.Sprintf("manual region %q opened inside %q", name, openName)}
		case !closing:
			if seen[name] {
				return nil, &StructuralError{Reason: fmt.Sprintf("duplicate manual region %q", name)}
			}
			openName = name
			openStart = m[0]
		case closing && openName == "":
			return nil, &StructuralError{Reason: fmt.Sprintf("closing marker for %q without opening", name)}
		case closing && name != openName:
			return nil, &StructuralError{Reason: fmt.Sprintf("closing marker %q does not match open region %q", name, openName)}
		default:
			regions = append(regions, Region{Name: name, Content: html[openStart:m[1]]})
			seen[name] = true
			openName = ""
		}
	}

	if openName != "" {
		return nil, &StructuralError{Reason: fmt.Sprintf("manual region %q is never closed", openName)}
	}

	return regions, nil
}

// ValidateMarkers checks marker pairing without materializing regions.
func ValidateMarkers(html string) error {
	_, err := Regions(html)
	return err
}

// InjectRegions replaces each region's span in draft with the preserved
// content from the published page. Regions whose markers the draft dropped
// entirely are reported back so the caller can fail the draft.
func InjectRegions(draft string, regions []Region) (string, []string) {
	var missing []string
	for _, region := range regions {
		span := regexp.MustCompile(
			`(?s)<!-- MANUAL:` + regexp.QuoteMeta(region.Name) + ` -->.*?<!-- /MANUAL:` + regexp.QuoteMeta(region.Name) + ` -->`,
		)
		if !span.MatchString(draft) {
			missing = append(missing, region.Name)
			continue
		}
		draft = span.ReplaceAllLiteralString(draft, region.Content)
	}
	return draft, missing
}

// MissingOrAltered compares candidate against the published page and returns
// the names of manual regions that were removed or whose bytes changed.
// The published page must already have valid markers.
func MissingOrAltered(published, candidate string) ([]string, error) {
	want, err := Regions(published)
	if err != nil {
		return nil, err
	}
	got, err := Regions(candidate)
	if err != nil {
		// Candidate with broken markers loses every published region.
		var names []string
		for _, r := range want {
			names = append(names, r.Name)
		}
		return names, nil
	}

	byName := map[string]string{}
	for _, r := range got {
		byName[r.Name] = r.Content
	}

	var bad []string
	for _, r := range want {
		if content, ok := byName[r.Name]; !ok || content != r.Content {
			bad = append(bad, r.Name)
		}
	}
	return bad, nil
}

// IsLocked reports whether the page carries the LOCK marker.
func IsLocked(html string) bool {
	return lockRe.MatchString(html)
}

// DeployDate extracts the last deploy date, or "" if the page has none.
func DeployDate(html string) string {
	if m := deployRe.FindStringSubmatch(html); m != nil {
		return m[1]
	}
	return ""
}

// manualSpans returns the byte ranges covered by manual regions, markers
// included. Unpaired markers are ignored; callers validate pairing
// separately.
func manualSpans(html string) [][2]int {
	matches := markerRe.FindAllStringSubmatchIndex(html, -1)

	var spans [][2]int
	openStart := -1
	for _, m := range matches {
		closing := html[m[2]:m[3]] == "/"
		switch {
		case !closing && openStart < 0:
			openStart = m[0]
		case closing && openStart >= 0:
			spans = append(spans, [2]int{openStart, m[1]})
			openStart = -1
		}
	}
	return spans
}

func inSpans(spans [][2]int, pos int) bool {
	for _, span := range spans {
		if pos >= span[0] && pos < span[1] {
			return true
		}
	}
	return false
}

// StampDeployMarker sets the deploy marker to date, replacing any existing
// one outside manual regions. Markers inside a manual region are caller
// content and stay untouched. When no marker exists outside the regions,
// a new one goes right after the <html> tag, or is prepended if there is
// none.
func StampDeployMarker(html, date string) string {
	marker := fmt.Sprintf("<!-- DEPLOYED: %s -->", date)
	spans := manualSpans(html)

	var sb strings.Builder
	last := 0
	replaced := false
	for _, m := range deployRe.FindAllStringIndex(html, -1) {
		if inSpans(spans, m[0]) {
			continue
		}
		sb.WriteString(html[last:m[0]])
		sb.WriteString(marker)
		last = m[1]
		replaced = true
	}
	sb.WriteString(html[last:])
	html = sb.String()

	if replaced {
		return html
	}
	if loc := htmlTag.FindStringIndex(html); loc != nil && !inSpans(spans, loc[0]) {
		return html[:loc[1]] + "\n" + marker + html[loc[1]:]
	}
	return marker + "\n" + html
}
