package githubapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New("test-token",
		WithBaseURLs(srv.URL, srv.URL+"/raw"),
		WithClock(func() time.Time {
			return time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
		}),
	)
}

func TestParseCommitType(t *testing.T) {
	cases := []struct {
		message string
		want    string
	}{
		{"feat: add frobnicator", "feat"},
		{"feat(api): add endpoint", "feat"},
		{"fix!: breaking fix", "fix"},
		{"Fix: case insensitive", "fix"},
		{"docs: update readme", "docs"},
		{"chore(deps): bump", "chore"},
		{"ci: pipeline tweak", "chore"},
		{"update stuff", "other"},
		{"wip: something", "other"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ParseCommitType(tc.message), "message: %s", tc.message)
	}
}

func TestGetCommits(t *testing.T) {
	var gotSince string
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/alice/widget/commits", func(w http.ResponseWriter, r *http.Request) {
		gotSince = r.URL.Query().Get("since")
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode([]map[string]interface{}{
			{
				"sha": "abc1234def5678",
				"commit": map[string]interface{}{
					"message": "feat: add frobnicator\n\nlong body here",
					"author": map[string]string{
						"name": "Alice",
						"date": "2026-08-21T10:00:00Z",
					},
				},
			},
		})
	})

	client := testClient(t, mux)
	commits, err := client.GetCommits(context.Background(), "alice", "widget", 30)
	require.NoError(t, err)
	require.Len(t, commits, 1)

	assert.Equal(t, "abc1234", commits[0].SHA)
	assert.Equal(t, "feat: add frobnicator", commits[0].Message)
	assert.Equal(t, "feat", commits[0].Type)
	assert.Equal(t, "2026-08-21", commits[0].Date)
	assert.Equal(t, "2026-07-31T12:00:00Z", gotSince)
}

func TestGetReleasesSkipsDrafts(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/alice/widget/releases", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]interface{}{
			{"tag_name": "v2.0.0-rc1", "name": "", "published_at": "2026-08-25T00:00:00Z", "prerelease": true},
			{"tag_name": "v1.9.0", "name": "Stable", "published_at": "2026-08-01T00:00:00Z", "draft": true},
			{"tag_name": "v1.8.0", "name": "Older", "published_at": "2026-07-01T00:00:00Z"},
		})
	})

	client := testClient(t, mux)
	releases, err := client.GetReleases(context.Background(), "alice", "widget", 5)
	require.NoError(t, err)
	require.Len(t, releases, 2)

	assert.Equal(t, "v2.0.0-rc1", releases[0].Tag)
	assert.Equal(t, "v2.0.0-rc1", releases[0].Name, "empty name falls back to tag")
	assert.True(t, releases[0].Prerelease)
	assert.Equal(t, "v1.8.0", releases[1].Tag)
	assert.Equal(t, "2026-07-01", releases[1].Date)
}

func TestGetLanguagesOrdering(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/alice/widget/languages", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]int64{"Go": 50000, "Shell": 1200, "Makefile": 300})
	})

	client := testClient(t, mux)
	langs, err := client.GetLanguages(context.Background(), "alice", "widget")
	require.NoError(t, err)
	assert.Equal(t, []string{"Go", "Shell", "Makefile"}, langs)
}

func TestGetReadmeMissing(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/alice/empty/readme", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
	})

	client := testClient(t, mux)
	readme, err := client.GetReadme(context.Background(), "alice", "empty", "main")
	require.NoError(t, err)
	assert.Empty(t, readme.Content)
	assert.Empty(t, readme.SHA)
}

func TestGetReadme(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/alice/widget/readme", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"sha": "readme-sha", "size": 42, "path": "README.md",
		})
	})
	mux.HandleFunc("/raw/alice/widget/main/README.md", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("# Widget\nA library."))
	})

	client := testClient(t, mux)
	readme, err := client.GetReadme(context.Background(), "alice", "widget", "main")
	require.NoError(t, err)
	assert.Equal(t, "readme-sha", readme.SHA)
	assert.Contains(t, readme.Content, "# Widget")
}

func TestSearchReposByTopic(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/search/repositories", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "topic:portfolio user:alice", r.URL.Query().Get("q"))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"items": []map[string]string{
				{"full_name": "alice/widget"},
				{"full_name": "alice/gadget"},
			},
		})
	})

	client := testClient(t, mux)
	names, err := client.SearchReposByTopic(context.Background(), "alice", "portfolio")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice/widget", "alice/gadget"}, names)
}

func TestPutFileIncludesSHAOnUpdate(t *testing.T) {
	var putBody map[string]string
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/alice/site/contents/projects/widget.html", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode(map[string]string{"sha": "existing-sha", "type": "file"})
		case http.MethodPut:
			json.NewDecoder(r.Body).Decode(&putBody)
			json.NewEncoder(w).Encode(map[string]string{})
		}
	})

	client := testClient(t, mux)
	err := client.PutFile(context.Background(), "alice", "site",
		"projects/widget.html", "main", "update widget", "<html></html>")
	require.NoError(t, err)

	assert.Equal(t, "existing-sha", putBody["sha"])
	assert.Equal(t, "update widget", putBody["message"])
	assert.Equal(t, "main", putBody["branch"])
	assert.NotEmpty(t, putBody["content"])
}

func TestCreateBranchRecreatesExisting(t *testing.T) {
	attempts := 0
	deleted := false
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/alice/site/git/refs", func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			http.Error(w, `{"message":"Reference already exists"}`, http.StatusUnprocessableEntity)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{})
	})
	mux.HandleFunc("/repos/alice/site/git/refs/heads/update-2026-08-30", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		deleted = true
		w.WriteHeader(http.StatusNoContent)
	})

	client := testClient(t, mux)
	err := client.CreateBranch(context.Background(), "alice", "site", "update-2026-08-30", "head-sha")
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Equal(t, 2, attempts)
}

func TestAPIErrorExposed(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/alice/private", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Must have admin rights"}`, http.StatusForbidden)
	})

	client := testClient(t, mux)
	_, err := client.GetRepo(context.Background(), "alice", "private")
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.False(t, IsNotFound(err))
}
