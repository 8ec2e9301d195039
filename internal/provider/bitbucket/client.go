package bitbucket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	bitbucketv1 "github.com/gfleury/go-bitbucket-v1"
	"github.com/hashicorp/go-cleanhttp"

	"github.com/drewdunne/scmpoll/internal/config"
	"github.com/drewdunne/scmpoll/internal/provider"
)

// Client talks to the Bitbucket Server REST API (1.0) for one repository.
type Client struct {
	cfg      *bitbucketv1.Configuration
	project  string
	repo     string
	username string
	password string
}

// NewClient creates a client for the material. The project is projectName
// when set, otherwise the owner segment of the clone URL (scm/PROJ/repo).
func NewClient(scm *config.SCM) *Client {
	httpClient := cleanhttp.DefaultPooledClient()
	httpClient.Timeout = provider.APITimeout

	cfg := bitbucketv1.NewConfiguration(strings.TrimRight(scm.APIURL, "/") + "/rest")
	cfg.HTTPClient = httpClient

	owner, repo := scm.OwnerAndRepository()
	project := scm.ProjectName
	if project == "" {
		project = owner
	}

	return &Client{
		cfg:      cfg,
		project:  project,
		repo:     repo,
		username: scm.Username,
		password: scm.Password,
	}
}

// api binds the SDK to ctx; the SDK reads credentials and cancellation from
// the client context.
func (c *Client) api(ctx context.Context) *bitbucketv1.DefaultApiService {
	if c.username != "" || c.password != "" {
		ctx = context.WithValue(ctx, bitbucketv1.ContextBasicAuth, bitbucketv1.BasicAuth{
			UserName: c.username,
			Password: c.password,
		})
	}
	return bitbucketv1.NewAPIClient(ctx, c.cfg).DefaultApi
}

type ref struct {
	ID        string `json:"id"`
	DisplayID string `json:"displayId"`
}

type pullRequest struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	State       string `json:"state"`
	CreatedDate int64  `json:"createdDate"`
	UpdatedDate int64  `json:"updatedDate"`
	FromRef     ref    `json:"fromRef"`
	ToRef       ref    `json:"toRef"`
	Author      struct {
		User struct {
			Name         string `json:"name"`
			EmailAddress string `json:"emailAddress"`
		} `json:"user"`
	} `json:"author"`
	Links struct {
		Self []struct {
			Href string `json:"href"`
		} `json:"self"`
	} `json:"links"`
}

type pullRequestPage struct {
	Size       int           `json:"size"`
	Limit      int           `json:"limit"`
	IsLastPage bool          `json:"isLastPage"`
	Values     []pullRequest `json:"values"`
}

// APIError is returned for non-2xx responses.
type APIError struct {
	StatusCode int
	Err        error
}

func (e *APIError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("bitbucket api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("bitbucket api: status %d: %v", e.StatusCode, e.Err)
}

func (e *APIError) Unwrap() error { return e.Err }

// GetChangeRequest fetches a pull request by id.
func (c *Client) GetChangeRequest(ctx context.Context, id string) (*provider.ChangeRequest, error) {
	number, err := provider.ParseID(id)
	if err != nil {
		return nil, err
	}

	resp, err := c.api(ctx).GetPullRequest(c.project, c.repo, number)
	if err != nil {
		return nil, fmt.Errorf("fetching pull request: %w", apiError(resp, err))
	}

	var pr pullRequest
	if err := decodeValues(resp, &pr); err != nil {
		return nil, fmt.Errorf("fetching pull request: %w", err)
	}
	return pr.convert(), nil
}

// ListOpenChangeRequests lists open pull requests. Bitbucket Server only
// orders by recency, so sort is ignored and direction picks NEWEST or OLDEST.
func (c *Client) ListOpenChangeRequests(ctx context.Context, _ string, direction string) ([]provider.ChangeRequest, error) {
	order := "NEWEST"
	if direction == provider.Ascending {
		order = "OLDEST"
	}
	opts := map[string]interface{}{
		"state": "OPEN",
		"order": order,
		"limit": 100,
	}

	resp, err := c.api(ctx).GetPullRequestsPage(c.project, c.repo, opts)
	if err != nil {
		return nil, fmt.Errorf("listing pull requests: %w", apiError(resp, err))
	}

	var page pullRequestPage
	if err := decodeValues(resp, &page); err != nil {
		return nil, fmt.Errorf("listing pull requests: %w", err)
	}

	result := make([]provider.ChangeRequest, len(page.Values))
	for i := range page.Values {
		result[i] = *page.Values[i].convert()
	}
	return result, nil
}

// apiError keeps the HTTP status when the SDK got a response.
func apiError(resp *bitbucketv1.APIResponse, err error) error {
	if resp == nil || resp.Response == nil || resp.StatusCode < http.StatusMultipleChoices {
		return err
	}
	return &APIError{StatusCode: resp.StatusCode, Err: err}
}

// decodeValues maps the SDK's generic response body onto out.
func decodeValues(resp *bitbucketv1.APIResponse, out interface{}) error {
	if resp == nil || resp.Values == nil {
		return errors.New("empty response")
	}
	raw, err := json.Marshal(resp.Values)
	if err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func (pr *pullRequest) convert() *provider.ChangeRequest {
	cr := &provider.ChangeRequest{
		ID:           pr.ID,
		Title:        pr.Title,
		Description:  pr.Description,
		SourceBranch: pr.FromRef.DisplayID,
		TargetBranch: pr.ToRef.DisplayID,
		State:        strings.ToLower(pr.State),
		Author:       pr.Author.User.Name,
		AuthorEmail:  pr.Author.User.EmailAddress,
	}
	if len(pr.Links.Self) > 0 {
		cr.URL = pr.Links.Self[0].Href
	}
	if pr.CreatedDate > 0 {
		cr.CreatedAt = time.UnixMilli(pr.CreatedDate).UTC()
	}
	if pr.UpdatedDate > 0 {
		cr.UpdatedAt = time.UnixMilli(pr.UpdatedDate).UTC()
	}
	return cr
}

var _ provider.ChangeRequestService = (*Client)(nil)
