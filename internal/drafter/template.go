package drafter

import (
	"fmt"
	"strings"

	"github.com/siteops/pkg/models"
)

// BaseTemplate builds the skeleton page for a project that has no
// published page yet. Every required section id gets an empty section so
// the model fills in content instead of inventing structure.
func BaseTemplate(project models.ProjectContext, policy models.PolicyConfig) string {
	var sb strings.Builder

	sb.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
	fmt.Fprintf(&sb, "  <meta charset=\"utf-8\">\n  <title>%s</title>\n", project.Slug)
	sb.WriteString("</head>\n<body>\n")
	fmt.Fprintf(&sb, "  <nav><a href=\"../index.html\">Projects</a></nav>\n")
	fmt.Fprintf(&sb, "  <h1>%s</h1>\n", project.Slug)

	sections := policy.RequiredSections
	if len(sections) == 0 {
		sections = []string{"summary", "changelog"}
	}
	for _, id := range sections {
		fmt.Fprintf(&sb, "  <section id=%q>\n  </section>\n", id)
	}

	fmt.Fprintf(&sb, "  <footer><a href=\"https://github.com/%s\">Source on GitHub</a></footer>\n", project.Repo)
	sb.WriteString("</body>\n</html>\n")
	return sb.String()
}
