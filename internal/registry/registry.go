package registry

import (
	"fmt"
	"sort"

	"github.com/drewdunne/scmpoll/internal/config"
	"github.com/drewdunne/scmpoll/internal/provider"
	"github.com/drewdunne/scmpoll/internal/provider/bitbucket"
	"github.com/drewdunne/scmpoll/internal/provider/gerrit"
	"github.com/drewdunne/scmpoll/internal/provider/git"
	"github.com/drewdunne/scmpoll/internal/provider/github"
	"github.com/drewdunne/scmpoll/internal/provider/gitlab"
	"github.com/drewdunne/scmpoll/internal/provider/stash"
)

// Registry manages provider instances.
type Registry struct {
	providers map[string]provider.Provider
}

// Default returns a registry holding every built-in provider.
func Default() *Registry {
	r := &Registry{
		providers: make(map[string]provider.Provider),
	}

	for _, p := range []provider.Provider{
		git.New(),
		github.New(),
		gitlab.New(),
		bitbucket.New(),
		stash.New(),
		gerrit.New(),
	} {
		r.providers[p.Name()] = p
	}

	return r
}

// Get returns the provider for the given name, or nil if unknown.
func (r *Registry) Get(name string) provider.Provider {
	return r.providers[name]
}

// List returns all provider names, sorted.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New returns the provider selected by the service configuration.
func New(cfg *config.Config) (provider.Provider, error) {
	p := Default().Get(cfg.Provider.Name)
	if p == nil {
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider.Name)
	}
	return p, nil
}
