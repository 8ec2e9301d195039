package provider

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/drewdunne/scmpoll/internal/branchfilter"
	"github.com/drewdunne/scmpoll/internal/config"
	"github.com/drewdunne/scmpoll/internal/logging"
	"github.com/drewdunne/scmpoll/internal/revision"
	"github.com/drewdunne/scmpoll/internal/vcs"
)

// Base carries the static description of a provider and implements the
// parts of Provider that only depend on it. Providers embed Base and
// override what differs.
type Base struct {
	Key     string
	Display string
	ID      string
	Spec    string
	Pattern string
	IDKey   string

	// PullRequests marks identifiers that are not branch names; filtering
	// then resolves them to branches by revision equality.
	PullRequests bool
	// BranchFiltering exposes the whitelist/blacklist fields.
	BranchFiltering bool
	// API exposes the API URL and project name fields.
	API bool
}

// Name implements Provider.
func (b *Base) Name() string { return b.Key }

// DisplayName implements Provider.
func (b *Base) DisplayName() string { return b.Display }

// PluginID implements Provider.
func (b *Base) PluginID() string { return b.ID }

// RefSpec implements Provider.
func (b *Base) RefSpec() string { return b.Spec }

// RefPattern implements Provider.
func (b *Base) RefPattern() string { return b.Pattern }

// IdentifierKey implements Provider.
func (b *Base) IdentifierKey() string { return b.IDKey }

// ValidURL implements Provider.
func (b *Base) ValidURL(u string) bool { return IsValidURL(u) }

// Fields implements Provider.
func (b *Base) Fields() FieldSet {
	groups := []FieldGroup{BaseFields}
	if b.API {
		groups = append(groups, APIFields)
	}
	if b.BranchFiltering {
		groups = append(groups, FilterFields)
	}
	return ComposeFields(groups...)
}

// Configure implements Provider. It does nothing by default.
func (b *Base) Configure(*config.SCM) {}

// Filter implements Provider. Providers without filter fields admit every
// change.
func (b *Base) Filter(scm *config.SCM, log *logging.Logger) branchfilter.Filter {
	blacklist, whitelist := "", ""
	if b.BranchFiltering {
		blacklist, whitelist = scm.BranchBlacklist, scm.BranchWhitelist
	}
	if b.PullRequests && b.BranchFiltering {
		return branchfilter.NewPR(blacklist, whitelist, log)
	}
	return branchfilter.New(blacklist, whitelist, log)
}

// Resolver implements Provider. Branch identifiers resolve to themselves.
// Filtered pull request identifiers resolve to the first remote branch
// sharing their revision; refs inside the provider's own namespace under
// origin are not branches and are skipped.
func (b *Base) Resolver(ctx context.Context, w vcs.Worker, changes *revision.Map) (branchfilter.BranchResolver, error) {
	if !b.PullRequests || !b.BranchFiltering {
		return revision.IdentityResolver{}, nil
	}

	refs, err := w.BranchLatestRevisions(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing branch heads: %w", err)
	}

	namespace := strings.TrimPrefix(b.Pattern, vcs.RemoteRefPrefix)
	branches := revision.NewMap()
	for _, r := range refs {
		if namespace != b.Pattern && strings.HasPrefix(r.Name, namespace) {
			continue
		}
		branches.Set(r.Name, r.Revision)
	}
	return revision.NewEquivalenceResolver(changes, branches), nil
}

// ChangeRequests implements Provider. Base providers have no API.
func (b *Base) ChangeRequests(*config.SCM) ChangeRequestService { return nil }

// CheckConnection implements Provider by listing the remote's refs.
func (b *Base) CheckConnection(ctx context.Context, _ *config.SCM, w vcs.Worker) error {
	return w.CheckConnection(ctx)
}

var scpLike = regexp.MustCompile(`^[A-Za-z0-9._-]+@[A-Za-z0-9.-]+:[^/].*$`)

// IsValidURL accepts http(s), git, ssh and file URLs with a host (file URLs
// need a path instead), and scp-style user@host:path remotes.
func IsValidURL(u string) bool {
	u = strings.TrimSpace(u)
	if u == "" {
		return false
	}
	if scpLike.MatchString(u) {
		return true
	}
	parsed, err := url.Parse(u)
	if err != nil {
		return false
	}
	switch parsed.Scheme {
	case "http", "https", "git", "ssh":
		return parsed.Host != ""
	case "file":
		return parsed.Path != ""
	default:
		return false
	}
}
