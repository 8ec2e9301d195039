// Package bitbucket implements the Bitbucket Server pull request provider.
package bitbucket

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/drewdunne/scmpoll/internal/config"
	"github.com/drewdunne/scmpoll/internal/provider"
	"github.com/drewdunne/scmpoll/internal/vcs"
)

const (
	RefSpec    = "+refs/pull-requests/*/from:refs/remotes/origin/pr/*"
	RefPattern = "refs/remotes/origin/pr/"

	// credentialsFileName holds login= and password= lines in the home
	// directory of the user running the service.
	credentialsFileName = ".bitbucket"
)

// Provider tracks Bitbucket Server pull requests.
type Provider struct {
	provider.Base

	// CredentialsFile overrides ~/.bitbucket.
	CredentialsFile string
}

// New creates a Bitbucket provider.
func New() *Provider {
	return &Provider{
		Base: provider.Base{
			Key:          "bitbucket",
			Display:      "Bitbucket PRB",
			ID:           "bitbucketprb.pr",
			Spec:         RefSpec,
			Pattern:      RefPattern,
			IDKey:        provider.KeyPullRequestID,
			PullRequests: true,
			API:          true,
		},
	}
}

// Configure fills missing credentials from the credentials file. A missing
// or unreadable file is ignored.
func (p *Provider) Configure(scm *config.SCM) {
	if scm.Username != "" && scm.Password != "" {
		return
	}
	values, err := godotenv.Read(p.credentialsPath())
	if err != nil {
		return
	}
	if scm.Username == "" {
		scm.Username = values["login"]
	}
	if scm.Password == "" {
		scm.Password = values["password"]
	}
}

func (p *Provider) credentialsPath() string {
	if p.CredentialsFile != "" {
		return p.CredentialsFile
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return credentialsFileName
	}
	return filepath.Join(home, credentialsFileName)
}

// ChangeRequests returns an API client, or nil without an API URL.
func (p *Provider) ChangeRequests(scm *config.SCM) provider.ChangeRequestService {
	if scm.APIURL == "" {
		return nil
	}
	return NewClient(scm)
}

// CheckConnection checks the remote, then lists open pull requests when an
// API URL is configured.
func (p *Provider) CheckConnection(ctx context.Context, scm *config.SCM, w vcs.Worker) error {
	if err := w.CheckConnection(ctx); err != nil {
		return err
	}
	if scm.APIURL == "" {
		return nil
	}
	if _, err := NewClient(scm).ListOpenChangeRequests(ctx, provider.SortCreated, provider.Descending); err != nil {
		return fmt.Errorf("checking bitbucket api: %w", err)
	}
	return nil
}

var _ provider.Provider = (*Provider)(nil)
