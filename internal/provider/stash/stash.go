// Package stash implements the Stash pull request provider.
package stash

import "github.com/drewdunne/scmpoll/internal/provider"

const (
	RefSpec    = "+refs/pull-requests/*/from:refs/remotes/origin/pull-request/*"
	RefPattern = "refs/remotes/origin/pull-request/"
)

// Provider tracks the source refs of Stash pull requests.
type Provider struct {
	provider.Base
}

// New creates a Stash provider.
func New() *Provider {
	return &Provider{
		Base: provider.Base{
			Key:          "stash",
			Display:      "Stash",
			ID:           "stash.pr",
			Spec:         RefSpec,
			Pattern:      RefPattern,
			IDKey:        provider.KeyPullRequestID,
			PullRequests: true,
		},
	}
}

var _ provider.Provider = (*Provider)(nil)
