package page

import (
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// Elements that never take a closing tag; they must not count toward tag
// balance.
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

// WellFormed runs a tolerant structural check over the document: it must
// tokenize cleanly, contain html and body elements, and keep open/close
// tags roughly balanced. Minor imbalance is allowed since real-world pages
// omit optional closing tags.
func WellFormed(doc string) bool {
	lower := strings.ToLower(doc)
	if !strings.Contains(lower, "<html") || !strings.Contains(lower, "</html>") {
		return false
	}
	if !strings.Contains(lower, "<body") || !strings.Contains(lower, "</body>") {
		return false
	}

	z := html.NewTokenizer(strings.NewReader(doc))
	depth := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			if z.Err() == io.EOF {
				return depth >= -3 && depth <= 3
			}
			return false
		case html.StartTagToken:
			name, _ := z.TagName()
			if !voidElements[string(name)] {
				depth++
			}
		case html.EndTagToken:
			depth--
		}
	}
}

// HasSectionID reports whether the document declares an element with the
// given id attribute.
func HasSectionID(doc, id string) bool {
	return strings.Contains(doc, `id="`+id+`"`) || strings.Contains(doc, `id='`+id+`'`)
}

var (
	tagRe     = regexp.MustCompile(`<[^>]*>`)
	commentRe = regexp.MustCompile(`(?s)<!--.*?-->`)
)

// SectionText extracts the visible text of the section with the given id.
// Returns "" when the section is absent. Used by the validator to measure
// summary length independently of markup.
func SectionText(doc, id string) string {
	re := regexp.MustCompile(`(?is)<section[^>]*\bid=["']` + regexp.QuoteMeta(id) + `["'][^>]*>(.*?)</section>`)
	m := re.FindStringSubmatch(doc)
	if m == nil {
		return ""
	}
	text := commentRe.ReplaceAllString(m[1], " ")
	text = tagRe.ReplaceAllString(text, " ")
	return strings.Join(strings.Fields(text), " ")
}
