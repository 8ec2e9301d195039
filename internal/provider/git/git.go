// Package git implements the plain Git feature branch provider.
package git

import (
	"os"
	"strings"

	"github.com/drewdunne/scmpoll/internal/provider"
)

const (
	RefSpec    = "+refs/heads/*:refs/remotes/origin/*"
	RefPattern = "refs/remotes/origin/"
)

// Provider tracks every branch of a repository.
type Provider struct {
	provider.Base
}

// New creates a Git provider.
func New() *Provider {
	return &Provider{
		Base: provider.Base{
			Key:             "git",
			Display:         "Git Feature Branch",
			ID:              "git.fb",
			Spec:            RefSpec,
			Pattern:         RefPattern,
			IDKey:           provider.KeyCurrentBranch,
			BranchFiltering: true,
		},
	}
}

// ValidURL also accepts absolute paths of existing local repositories.
func (p *Provider) ValidURL(u string) bool {
	if strings.HasPrefix(u, "/") {
		_, err := os.Stat(u)
		return err == nil
	}
	return provider.IsValidURL(u)
}

var _ provider.Provider = (*Provider)(nil)
