package gitlab

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/xanzy/go-gitlab"

	"github.com/drewdunne/scmpoll/internal/config"
	"github.com/drewdunne/scmpoll/internal/provider"
	"github.com/drewdunne/scmpoll/internal/vcs"
)

const (
	RefSpec    = "+refs/merge-requests/*/head:refs/remotes/origin/merge-request/*"
	RefPattern = "refs/remotes/origin/merge-request/"

	defaultBaseURL = "https://gitlab.com"
)

// GitLabProvider implements provider.Provider for GitLab merge requests.
type GitLabProvider struct {
	provider.Base
}

// New creates a new GitLab provider.
func New() *GitLabProvider {
	return &GitLabProvider{
		Base: provider.Base{
			Key:             "gitlab",
			Display:         "GitLab",
			ID:              "gitlab.mr",
			Spec:            RefSpec,
			Pattern:         RefPattern,
			IDKey:           provider.KeyPullRequestID,
			PullRequests:    true,
			BranchFiltering: true,
			API:             true,
		},
	}
}

// ChangeRequests returns a merge request client for the material.
func (p *GitLabProvider) ChangeRequests(scm *config.SCM) provider.ChangeRequestService {
	c, err := NewClient(scm)
	if err != nil {
		return nil
	}
	return c
}

// Client queries merge requests of one project.
type Client struct {
	client  *gitlab.Client
	project string
}

// NewClient creates a client for the material's project. The material
// password is used as the private token; the project is projectName when
// set, otherwise the path of the material URL.
func NewClient(scm *config.SCM) (*Client, error) {
	base := scm.APIURL
	if base == "" {
		base = defaultBaseURL
	}

	httpClient := cleanhttp.DefaultPooledClient()
	httpClient.Timeout = provider.APITimeout

	client, err := gitlab.NewClient(scm.Password,
		gitlab.WithBaseURL(strings.TrimRight(base, "/")+"/api/v4"),
		gitlab.WithHTTPClient(httpClient),
	)
	if err != nil {
		return nil, fmt.Errorf("creating gitlab client: %w", err)
	}

	project := scm.ProjectName
	if project == "" {
		project = projectPath(scm.URL)
	}
	return &Client{client: client, project: project}, nil
}

// projectPath extracts group/subgroup/repo from an http(s), ssh or
// scp-style remote.
func projectPath(remote string) string {
	path := remote
	if u, err := url.Parse(remote); err == nil && u.Host != "" {
		path = u.Path
	} else if i := strings.Index(remote, ":"); i >= 0 {
		path = remote[i+1:]
	}
	return strings.TrimSuffix(strings.Trim(path, "/"), ".git")
}

// GetChangeRequest fetches a merge request by IID.
func (c *Client) GetChangeRequest(ctx context.Context, id string) (*provider.ChangeRequest, error) {
	iid, err := provider.ParseID(id)
	if err != nil {
		return nil, err
	}

	mr, _, err := c.client.MergeRequests.GetMergeRequest(c.project, iid, nil, gitlab.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("fetching merge request: %w", err)
	}

	result := &provider.ChangeRequest{
		ID:           mr.IID,
		Title:        mr.Title,
		Description:  mr.Description,
		SourceBranch: mr.SourceBranch,
		TargetBranch: mr.TargetBranch,
		State:        mr.State,
		URL:          mr.WebURL,
	}
	if mr.Author != nil {
		result.Author = mr.Author.Username
	}
	if mr.CreatedAt != nil {
		result.CreatedAt = *mr.CreatedAt
	}
	if mr.UpdatedAt != nil {
		result.UpdatedAt = *mr.UpdatedAt
	}
	return result, nil
}

// ListOpenChangeRequests lists opened merge requests.
func (c *Client) ListOpenChangeRequests(ctx context.Context, sort, direction string) ([]provider.ChangeRequest, error) {
	state := "opened"
	orderBy := sort + "_at"
	opts := &gitlab.ListProjectMergeRequestsOptions{
		State:       &state,
		OrderBy:     &orderBy,
		Sort:        &direction,
		ListOptions: gitlab.ListOptions{PerPage: 100},
	}

	mrs, _, err := c.client.MergeRequests.ListProjectMergeRequests(c.project, opts, gitlab.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("listing merge requests: %w", err)
	}

	result := make([]provider.ChangeRequest, len(mrs))
	for i, mr := range mrs {
		result[i] = provider.ChangeRequest{
			ID:           mr.IID,
			Title:        mr.Title,
			SourceBranch: mr.SourceBranch,
			TargetBranch: mr.TargetBranch,
			State:        mr.State,
			URL:          mr.WebURL,
		}
		if mr.Author != nil {
			result[i].Author = mr.Author.Username
		}
	}
	return result, nil
}

// CheckConnection checks the remote, then lists open merge requests when an
// API URL is configured.
func (p *GitLabProvider) CheckConnection(ctx context.Context, scm *config.SCM, w vcs.Worker) error {
	if err := w.CheckConnection(ctx); err != nil {
		return err
	}
	if scm.APIURL == "" {
		return nil
	}
	c, err := NewClient(scm)
	if err != nil {
		return err
	}
	if _, err := c.ListOpenChangeRequests(ctx, provider.SortCreated, provider.Descending); err != nil {
		return fmt.Errorf("checking gitlab api: %w", err)
	}
	return nil
}

var (
	_ provider.Provider             = (*GitLabProvider)(nil)
	_ provider.ChangeRequestService = (*Client)(nil)
)
