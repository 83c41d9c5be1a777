// Package store is the artifact exchange between pipeline phases. Each
// phase reads its input from disk and writes its output back, so phases
// can run as separate invocations (CI steps) or in one process.
//
// Layout under the data directory:
//
//	run_context.json       collector output
//	writer_results.json    drafting phase output
//	editor_results.json    review phase output
//	deployer_results.json  deployment phase output
//	drafts/<slug>.html     generated page drafts
//	reviews/<slug>.json    per-draft verdicts
//	runs/<id>.json         archived run records for the dashboard
//	reports/               human-readable run reports
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/siteops/pkg/models"
)

// Store reads and writes run artifacts under a base directory.
type Store struct {
	base string
}

// New creates a Store rooted at base, creating the directory tree.
func New(base string) (*Store, error) {
	s := &Store{base: base}
	for _, dir := range []string{base, s.draftsDir(), s.reviewsDir(), s.runsDir(), s.reportsDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return s, nil
}

func (s *Store) draftsDir() string  { return filepath.Join(s.base, "drafts") }
func (s *Store) reviewsDir() string { return filepath.Join(s.base, "reviews") }
func (s *Store) runsDir() string    { return filepath.Join(s.base, "runs") }
func (s *Store) reportsDir() string { return filepath.Join(s.base, "reports") }

func (s *Store) writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}

func (s *Store) readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// SaveRunContext persists the collector output.
func (s *Store) SaveRunContext(rc *models.RunContext) error {
	return s.writeJSON(filepath.Join(s.base, "run_context.json"), rc)
}

// LoadRunContext reads the current run context. Returns (nil, nil) when no
// run has happened yet.
func (s *Store) LoadRunContext() (*models.RunContext, error) {
	var rc models.RunContext
	err := s.readJSON(filepath.Join(s.base, "run_context.json"), &rc)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rc, nil
}

// SaveDraft writes a draft page and returns its path.
func (s *Store) SaveDraft(slug, html string) (string, error) {
	path := filepath.Join(s.draftsDir(), slug+".html")
	return path, os.WriteFile(path, []byte(html), 0644)
}

// LoadDraft reads a draft page by slug.
func (s *Store) LoadDraft(slug string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.draftsDir(), slug+".html"))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DraftSlugs lists slugs that have a stored draft, sorted.
func (s *Store) DraftSlugs() ([]string, error) {
	entries, err := os.ReadDir(s.draftsDir())
	if err != nil {
		return nil, err
	}
	var slugs []string
	for _, e := range entries {
		if name := e.Name(); strings.HasSuffix(name, ".html") {
			slugs = append(slugs, strings.TrimSuffix(name, ".html"))
		}
	}
	sort.Strings(slugs)
	return slugs, nil
}

// SaveWriterResults persists the drafting phase output.
func (s *Store) SaveWriterResults(results *models.WriterResults) error {
	return s.writeJSON(filepath.Join(s.base, "writer_results.json"), results)
}

// LoadWriterResults reads the drafting phase output.
func (s *Store) LoadWriterResults() (*models.WriterResults, error) {
	var results models.WriterResults
	if err := s.readJSON(filepath.Join(s.base, "writer_results.json"), &results); err != nil {
		return nil, err
	}
	return &results, nil
}

// SaveVerdict writes one draft's verdict and returns its path.
func (s *Store) SaveVerdict(slug string, verdict models.Verdict) (string, error) {
	path := filepath.Join(s.reviewsDir(), slug+".json")
	return path, s.writeJSON(path, verdict)
}

// SaveEditorResults persists the review phase output.
func (s *Store) SaveEditorResults(results *models.EditorResults) error {
	return s.writeJSON(filepath.Join(s.base, "editor_results.json"), results)
}

// LoadEditorResults reads the review phase output.
func (s *Store) LoadEditorResults() (*models.EditorResults, error) {
	var results models.EditorResults
	if err := s.readJSON(filepath.Join(s.base, "editor_results.json"), &results); err != nil {
		return nil, err
	}
	return &results, nil
}

// SaveDeployerResults persists the deployment phase output.
func (s *Store) SaveDeployerResults(results *models.DeployerResults) error {
	return s.writeJSON(filepath.Join(s.base, "deployer_results.json"), results)
}

// LoadDeployerResults reads the deployment phase output.
func (s *Store) LoadDeployerResults() (*models.DeployerResults, error) {
	var results models.DeployerResults
	if err := s.readJSON(filepath.Join(s.base, "deployer_results.json"), &results); err != nil {
		return nil, err
	}
	return &results, nil
}

// SaveRunRecord archives a completed run for the dashboard history.
func (s *Store) SaveRunRecord(record *models.RunRecord) error {
	return s.writeJSON(filepath.Join(s.runsDir(), record.RunID+".json"), record)
}

// LoadRunRecords reads all archived runs, newest first by started-at.
func (s *Store) LoadRunRecords() ([]models.RunRecord, error) {
	entries, err := os.ReadDir(s.runsDir())
	if err != nil {
		return nil, err
	}
	var records []models.RunRecord
	for _, e := range entries {
		if !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		var record models.RunRecord
		if err := s.readJSON(filepath.Join(s.runsDir(), e.Name()), &record); err != nil {
			continue
		}
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].StartedAt > records[j].StartedAt
	})
	return records, nil
}

// SaveDashboard writes the dashboard snapshot consumed by the web UI.
func (s *Store) SaveDashboard(dash interface{}) error {
	return s.writeJSON(filepath.Join(s.base, "dashboard.json"), dash)
}

// SaveReport writes a human-readable run report and returns its path.
func (s *Store) SaveReport(name, content string) (string, error) {
	path := filepath.Join(s.reportsDir(), name)
	return path, os.WriteFile(path, []byte(content), 0644)
}

// Base returns the data directory root.
func (s *Store) Base() string { return s.base }
