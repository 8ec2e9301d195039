// Package gerrit implements the Gerrit change set provider.
package gerrit

import "github.com/drewdunne/scmpoll/internal/provider"

const (
	RefSpec    = "+refs/changes/*:refs/changes/*"
	RefPattern = "refs/changes/"
)

// Provider tracks Gerrit change set patch refs. Identifiers look like
// "45/12345/2".
type Provider struct {
	provider.Base
}

// New creates a Gerrit provider.
func New() *Provider {
	return &Provider{
		Base: provider.Base{
			Key:     "gerrit",
			Display: "Gerrit",
			ID:      "gerrit.cs",
			Spec:    RefSpec,
			Pattern: RefPattern,
			IDKey:   provider.KeyChangeSetID,
		},
	}
}

var _ provider.Provider = (*Provider)(nil)
