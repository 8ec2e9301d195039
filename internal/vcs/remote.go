package vcs

import (
	"context"
	"fmt"
	"strings"

	goGit "github.com/go-git/go-git/v5"
	goGitConfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/storage/memory"

	"github.com/drewdunne/scmpoll/internal/config"
)

// ListRemote lists the refs advertised by the material's remote without
// touching any working directory (the equivalent of git ls-remote).
func ListRemote(ctx context.Context, scm *config.SCM) ([]Ref, error) {
	remote := goGit.NewRemote(memory.NewStorage(), &goGitConfig.RemoteConfig{
		Name: "origin",
		URLs: []string{scm.URL},
	})

	advertised, err := remote.ListContext(ctx, &goGit.ListOptions{Auth: authMethod(scm)})
	if err != nil {
		return nil, fmt.Errorf("listing remote refs: %w", err)
	}

	refs := make([]Ref, 0, len(advertised))
	for _, r := range advertised {
		refs = append(refs, Ref{Name: r.Name().String(), Revision: r.Hash().String()})
	}
	return refs, nil
}

// authMethod returns basic auth for http(s) remotes with credentials. Other
// transports use their own defaults.
func authMethod(scm *config.SCM) transport.AuthMethod {
	if scm.Username == "" && scm.Password == "" {
		return nil
	}
	if !strings.HasPrefix(scm.URL, "https://") && !strings.HasPrefix(scm.URL, "http://") {
		return nil
	}
	return &http.BasicAuth{
		Username: scm.Username,
		Password: scm.Password,
	}
}
