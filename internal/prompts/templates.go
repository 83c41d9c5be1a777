package prompts

// Writer prompt: instructs the model to update a project page from the
// collected repository data while leaving protected regions and page
// structure alone. The model sees only the source of truth, never its own
// previous reasoning.
const writerTemplate = `You are updating a project page on a personal portfolio site.

## Source of truth
Repository: {{ .Project.Repo }}
Description: {{ .Project.Description }}
Stars: {{ .Project.Stars }} | Forks: {{ .Project.Forks }}
Languages: {{ join .Project.Languages ", " }}
{{ if .Project.Releases }}Latest releases:
{{ range .Project.Releases }}- {{ .Tag }} ({{ .Date }}): {{ .Name }}
{{ end }}{{ else }}Releases: none published.
{{ end }}
{{ if .Project.Commits }}Commits from the last 30 days:
{{ range .Project.Commits }}- {{ .Date }} [{{ .Type }}] {{ .Message }}
{{ end }}{{ else }}Commits from the last 30 days: none.
{{ end }}
README excerpt:
{{ .Project.ReadmeExcerpt }}

## Current page HTML
{{ .CurrentHTML }}

## Rules
1. Output the complete updated HTML document and nothing else. No markdown fences, no commentary.
2. Only update: the summary text, the language/technology indicators, the changelog list, and the status indicator. Derive every statement strictly from the source of truth above or from text already on the page.
3. Never invent features, version numbers, dates, or capabilities. If the data does not mention it, the page must not say it.
4. Leave every region between <!-- MANUAL:name --> and <!-- /MANUAL:name --> markers exactly as it is, markers included.
5. Keep the overall document structure: navigation, links, section order. Replace content in place; do not restructure.
6. The summary must be at most {{ .Policy.MaxSummaryLength }} characters of visible text.
7. Tone: {{ .Policy.Tone }}. No superlatives, no promotional language. Never use these words: {{ join .Policy.ForbiddenWords ", " }}.
{{ if not .Project.Releases }}8. There are no releases. Say so explicitly in the status area ("No releases yet" or similar); do not omit the field and do not invent one.
{{ end }}`

// Editor prompt: instructs the model to review a draft against the same
// source of truth and emit a machine-readable verdict.
const editorTemplate = `You are reviewing an automatically generated update to a project page before it is published.

## Source of truth
Repository: {{ .Project.Repo }}
Description: {{ .Project.Description }}
Languages: {{ join .Project.Languages ", " }}
{{ if .Project.Releases }}Releases:
{{ range .Project.Releases }}- {{ .Tag }} ({{ .Date }})
{{ end }}{{ else }}Releases: none published.
{{ end }}
{{ if .Project.Commits }}Commits from the last 30 days:
{{ range .Project.Commits }}- {{ .Date }} [{{ .Type }}] {{ .Message }}
{{ end }}{{ else }}Commits from the last 30 days: none.
{{ end }}

## Published page
{{ .PublishedHTML }}

## Draft under review
{{ .DraftHTML }}

## Review checklist
1. Hallucinations: every factual claim in the draft (features, dates, versions, languages) must be traceable to the source of truth or to the published page. List every untraceable claim.
2. Structure: the HTML must be well-formed and these section ids must be present: {{ join .Policy.RequiredSections ", " }}. Every <!-- MANUAL:name --> region from the published page must appear unchanged.
3. Tone: the draft must not read as promotional and must not contain any of: {{ join .Policy.ForbiddenWords ", " }}.
4. Policy: the summary's visible text must be at most {{ .Policy.MaxSummaryLength }} characters.
5. Proportionality: if the draft changes much of the page but the source shows little new activity, flag it.

## Output
Respond with only a JSON object, no markdown fences:
{
  "status": "APPROVE" | "FLAGGED" | "REJECT",
  "reason": "one sentence",
  "issues": ["finding", ...],
  "diff_summary": "what changed, briefly",
  "change_percentage": 0-100
}
REJECT for structural damage, manual-region tampering, or forbidden words. FLAGGED for anything you are unsure about. When torn between REJECT and FLAGGED, choose REJECT.`
