package github

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/go-github/v60/github"
	"github.com/hashicorp/go-cleanhttp"

	"github.com/drewdunne/scmpoll/internal/config"
	"github.com/drewdunne/scmpoll/internal/provider"
	"github.com/drewdunne/scmpoll/internal/vcs"
)

const (
	RefSpec    = "+refs/pull/*/head:refs/remotes/origin/pull-request/*"
	RefPattern = "refs/remotes/origin/pull-request/"
)

// GitHubProvider implements provider.Provider for GitHub pull requests.
type GitHubProvider struct {
	provider.Base
}

// New creates a new GitHub provider.
func New() *GitHubProvider {
	return &GitHubProvider{
		Base: provider.Base{
			Key:             "github",
			Display:         "Github",
			ID:              "github.pr",
			Spec:            RefSpec,
			Pattern:         RefPattern,
			IDKey:           provider.KeyPullRequestID,
			PullRequests:    true,
			BranchFiltering: true,
		},
	}
}

// ChangeRequests returns a pull request client for the material.
func (p *GitHubProvider) ChangeRequests(scm *config.SCM) provider.ChangeRequestService {
	return NewClient(scm)
}

// CheckConnection checks the remote, then lists open pull requests when an
// API URL is configured.
func (p *GitHubProvider) CheckConnection(ctx context.Context, scm *config.SCM, w vcs.Worker) error {
	if err := w.CheckConnection(ctx); err != nil {
		return err
	}
	if scm.APIURL == "" {
		return nil
	}
	if _, err := NewClient(scm).ListOpenChangeRequests(ctx, provider.SortCreated, provider.Descending); err != nil {
		return fmt.Errorf("checking github api: %w", err)
	}
	return nil
}

// Client queries pull requests of one repository.
type Client struct {
	client *github.Client
	owner  string
	repo   string
}

// Option configures the Client.
type Option func(*Client)

// WithBaseURL sets a custom API base URL (GitHub Enterprise, tests).
func WithBaseURL(url string) Option {
	return func(c *Client) {
		if url == "" {
			return
		}
		if base, err := c.client.BaseURL.Parse(url + "/"); err == nil {
			c.client.BaseURL = base
		}
	}
}

// NewClient creates a client for the repository named by the material URL.
// The material password is used as the API token.
func NewClient(scm *config.SCM, opts ...Option) *Client {
	httpClient := &http.Client{
		Transport: &tokenTransport{token: scm.Password, base: cleanhttp.DefaultPooledTransport()},
		Timeout:   provider.APITimeout,
	}
	owner, repo := scm.OwnerAndRepository()

	c := &Client{
		client: github.NewClient(httpClient),
		owner:  owner,
		repo:   repo,
	}

	opts = append([]Option{WithBaseURL(scm.APIURL)}, opts...)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// tokenTransport adds authorization header to requests.
type tokenTransport struct {
	token string
	base  http.RoundTripper
}

func (t *tokenTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.token != "" {
		req = req.Clone(req.Context())
		req.Header.Set("Authorization", "Bearer "+t.token)
	}
	return t.base.RoundTrip(req)
}

// GetChangeRequest fetches a pull request by number. The source branch is
// reported as the head label (owner:branch).
func (c *Client) GetChangeRequest(ctx context.Context, id string) (*provider.ChangeRequest, error) {
	number, err := provider.ParseID(id)
	if err != nil {
		return nil, err
	}

	pr, _, err := c.client.PullRequests.Get(ctx, c.owner, c.repo, number)
	if err != nil {
		return nil, fmt.Errorf("fetching pull request: %w", err)
	}
	return convert(pr), nil
}

// ListOpenChangeRequests lists open pull requests.
func (c *Client) ListOpenChangeRequests(ctx context.Context, sort, direction string) ([]provider.ChangeRequest, error) {
	prs, _, err := c.client.PullRequests.List(ctx, c.owner, c.repo, &github.PullRequestListOptions{
		State:       "open",
		Sort:        sort,
		Direction:   direction,
		ListOptions: github.ListOptions{PerPage: 100},
	})
	if err != nil {
		return nil, fmt.Errorf("listing pull requests: %w", err)
	}

	result := make([]provider.ChangeRequest, len(prs))
	for i, pr := range prs {
		result[i] = *convert(pr)
	}
	return result, nil
}

func convert(pr *github.PullRequest) *provider.ChangeRequest {
	return &provider.ChangeRequest{
		ID:           pr.GetNumber(),
		Title:        pr.GetTitle(),
		Description:  pr.GetBody(),
		SourceBranch: pr.GetHead().GetLabel(),
		TargetBranch: pr.GetBase().GetRef(),
		State:        pr.GetState(),
		Author:       pr.GetUser().GetLogin(),
		AuthorEmail:  pr.GetUser().GetEmail(),
		URL:          pr.GetHTMLURL(),
		CreatedAt:    pr.GetCreatedAt().Time,
		UpdatedAt:    pr.GetUpdatedAt().Time,
	}
}

var (
	_ provider.Provider             = (*GitHubProvider)(nil)
	_ provider.ChangeRequestService = (*Client)(nil)
)
