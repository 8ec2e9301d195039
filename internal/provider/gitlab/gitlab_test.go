package gitlab

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/drewdunne/scmpoll/internal/config"
	"github.com/drewdunne/scmpoll/internal/mocks"
	"github.com/drewdunne/scmpoll/internal/provider"
)

func testSCM(apiURL string) *config.SCM {
	return &config.SCM{
		URL:      "https://gitlab.example.com/owner/repo.git",
		Password: "test-token",
		APIURL:   apiURL,
	}
}

func TestClient_GetChangeRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.EscapedPath() != "/api/v4/projects/owner%2Frepo/merge_requests/42" {
			t.Errorf("unexpected path: %s", r.URL.EscapedPath())
		}
		if r.Header.Get("PRIVATE-TOKEN") != "test-token" {
			t.Errorf("missing or incorrect token header")
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":            999,
			"iid":           42,
			"title":         "Test MR",
			"description":   "Description",
			"state":         "opened",
			"source_branch": "feature",
			"target_branch": "main",
			"author":        map[string]string{"username": "author"},
			"web_url":       "https://gitlab.com/owner/repo/-/merge_requests/42",
		})
	}))
	defer server.Close()

	c, err := NewClient(testSCM(server.URL))
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	mr, err := c.GetChangeRequest(context.Background(), "42")
	if err != nil {
		t.Fatalf("GetChangeRequest() error = %v", err)
	}

	if mr.ID != 42 {
		t.Errorf("ID = %d, want %d", mr.ID, 42)
	}
	if mr.Title != "Test MR" {
		t.Errorf("Title = %q, want %q", mr.Title, "Test MR")
	}
	if mr.SourceBranch != "feature" || mr.TargetBranch != "main" {
		t.Errorf("branches = %q -> %q", mr.SourceBranch, mr.TargetBranch)
	}
	if mr.Author != "author" {
		t.Errorf("Author = %q", mr.Author)
	}
}

func TestClient_ListOpenChangeRequests(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("state") != "opened" || q.Get("order_by") != "updated_at" || q.Get("sort") != "asc" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		json.NewEncoder(w).Encode([]map[string]interface{}{
			{"iid": 1, "title": "first", "source_branch": "a"},
			{"iid": 2, "title": "second", "source_branch": "b"},
		})
	}))
	defer server.Close()

	c, err := NewClient(testSCM(server.URL))
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	mrs, err := c.ListOpenChangeRequests(context.Background(), provider.SortUpdated, provider.Ascending)
	if err != nil {
		t.Fatalf("ListOpenChangeRequests() error = %v", err)
	}
	if len(mrs) != 2 || mrs[1].SourceBranch != "b" {
		t.Errorf("ListOpenChangeRequests() = %+v", mrs)
	}
}

func TestClient_ProjectNameOverridesURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.EscapedPath() != "/api/v4/projects/group%2Fsub%2Fproject/merge_requests/3" {
			t.Errorf("unexpected path: %s", r.URL.EscapedPath())
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"iid": 3})
	}))
	defer server.Close()

	scm := testSCM(server.URL)
	scm.ProjectName = "group/sub/project"
	c, err := NewClient(scm)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if _, err := c.GetChangeRequest(context.Background(), "3"); err != nil {
		t.Fatalf("GetChangeRequest() error = %v", err)
	}
}

func TestProjectPath(t *testing.T) {
	tests := map[string]string{
		"https://gitlab.com/group/sub/repo.git": "group/sub/repo",
		"git@gitlab.com:group/repo.git":         "group/repo",
		"ssh://git@gitlab.com/group/repo":       "group/repo",
	}
	for remote, want := range tests {
		if got := projectPath(remote); got != want {
			t.Errorf("projectPath(%q) = %q, want %q", remote, got, want)
		}
	}
}

func TestGitLabProvider_CheckConnection(t *testing.T) {
	var listed bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.EscapedPath() != "/api/v4/projects/owner%2Frepo/merge_requests" {
			t.Errorf("unexpected path: %s", r.URL.EscapedPath())
		}
		if r.URL.Query().Get("state") != "opened" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		listed = true
		json.NewEncoder(w).Encode([]map[string]interface{}{})
	}))
	defer server.Close()

	p := New()
	w := mocks.NewMockWorker()

	if err := p.CheckConnection(context.Background(), testSCM(""), w); err != nil {
		t.Fatalf("CheckConnection() without API error = %v", err)
	}
	if listed {
		t.Error("API should not be called without an API URL")
	}

	if err := p.CheckConnection(context.Background(), testSCM(server.URL), w); err != nil {
		t.Fatalf("CheckConnection() error = %v", err)
	}
	if !listed {
		t.Error("merge requests were not listed")
	}
}

func TestGitLabProvider_CheckConnectionUnauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	err := New().CheckConnection(context.Background(), testSCM(server.URL), mocks.NewMockWorker())
	if err == nil || !strings.Contains(err.Error(), "checking gitlab api") {
		t.Errorf("CheckConnection() error = %v", err)
	}
}

func TestGitLabProvider_Fields(t *testing.T) {
	fields := New().Fields()
	for _, key := range []string{config.KeyURL, config.KeyAPIURL, config.KeyProjectName, config.KeyBranchBlacklist} {
		if _, ok := fields[key]; !ok {
			t.Errorf("missing field %s", key)
		}
	}
}
