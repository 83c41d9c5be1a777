// Package prompts renders the writer and editor prompts from project
// context and policy. Templates are compiled once at init.
package prompts

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/siteops/pkg/models"
)

var funcMap = template.FuncMap{
	"join": strings.Join,
}

var (
	writerTmpl = template.Must(template.New("writer").Funcs(funcMap).Parse(writerTemplate))
	editorTmpl = template.Must(template.New("editor").Funcs(funcMap).Parse(editorTemplate))
)

type writerVars struct {
	Project     models.ProjectContext
	Policy      models.PolicyConfig
	CurrentHTML string
}

type editorVars struct {
	Project       models.ProjectContext
	Policy        models.PolicyConfig
	PublishedHTML string
	DraftHTML     string
}

// BuildWriterPrompt renders the drafting prompt for one project.
func BuildWriterPrompt(project models.ProjectContext, policy models.PolicyConfig, currentHTML string) (string, error) {
	var sb strings.Builder
	err := writerTmpl.Execute(&sb, writerVars{
		Project:     project,
		Policy:      policy,
		CurrentHTML: currentHTML,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render writer prompt: %w", err)
	}
	return sb.String(), nil
}

// BuildEditorPrompt renders the review prompt for a draft.
func BuildEditorPrompt(project models.ProjectContext, policy models.PolicyConfig, published, draft string) (string, error) {
	if published == "" {
		published = "(No existing page)"
	}
	var sb strings.Builder
	err := editorTmpl.Execute(&sb, editorVars{
		Project:       project,
		Policy:        policy,
		PublishedHTML: published,
		DraftHTML:     draft,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render editor prompt: %w", err)
	}
	return sb.String(), nil
}
