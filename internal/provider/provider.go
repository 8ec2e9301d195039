package provider

import (
	"context"

	"github.com/drewdunne/scmpoll/internal/branchfilter"
	"github.com/drewdunne/scmpoll/internal/config"
	"github.com/drewdunne/scmpoll/internal/logging"
	"github.com/drewdunne/scmpoll/internal/revision"
	"github.com/drewdunne/scmpoll/internal/vcs"
)

// Data bag keys attached to reported revisions.
const (
	KeyPullRequestID    = "PR_ID"
	KeyCurrentBranch    = "CURRENT_BRANCH"
	KeyChangeSetID      = "CHANGE_SET_ID"
	KeyPRBranch         = "PR_BRANCH"
	KeyTargetBranch     = "TARGET_BRANCH"
	KeyPRURL            = "PR_URL"
	KeyPRAuthor         = "PR_AUTHOR"
	KeyPRAuthorEmail    = "PR_AUTHOR_EMAIL"
	KeyPRTitle          = "PR_TITLE"
	KeyPRDescription    = "PR_DESCRIPTION"
	KeyPRCheckoutBranch = "PR_CHECKOUT_BRANCH"
)

// Provider describes how changes are discovered on one kind of hosting
// service: which refs are fetched, how identifiers are filtered and where
// change request metadata comes from.
type Provider interface {
	// Name returns the configuration name (git, github, gitlab, ...).
	Name() string

	// DisplayName returns the human readable provider name.
	DisplayName() string

	// PluginID returns the orchestrator plugin identifier.
	PluginID() string

	// RefSpec is the fetch refspec mapping change refs to local refs.
	RefSpec() string

	// RefPattern is the local ref prefix whose children are change
	// identifiers.
	RefPattern() string

	// IdentifierKey is the data bag key carrying the change identifier.
	IdentifierKey() string

	// ValidURL reports whether url can be polled by this provider.
	ValidURL(url string) bool

	// Fields returns the per-material configuration surface.
	Fields() FieldSet

	// Configure fills in material settings the provider can derive, such as
	// credentials stored on the host.
	Configure(scm *config.SCM)

	// Filter builds the admission filter for a material.
	Filter(scm *config.SCM, log *logging.Logger) branchfilter.Filter

	// Resolver returns the branch resolver used by Filter for the current
	// set of changes.
	Resolver(ctx context.Context, w vcs.Worker, changes *revision.Map) (branchfilter.BranchResolver, error)

	// ChangeRequests returns the API client for change request metadata, or
	// nil when the provider has no API.
	ChangeRequests(scm *config.SCM) ChangeRequestService

	// CheckConnection verifies the material is reachable.
	CheckConnection(ctx context.Context, scm *config.SCM, w vcs.Worker) error
}

// ChangeRequestService queries a hosting provider for pull/merge requests.
type ChangeRequestService interface {
	// GetChangeRequest fetches a change request by its identifier.
	GetChangeRequest(ctx context.Context, id string) (*ChangeRequest, error)

	// ListOpenChangeRequests lists open change requests, ordered by sort
	// ("created" or "updated") and direction ("asc" or "desc").
	ListOpenChangeRequests(ctx context.Context, sort, direction string) ([]ChangeRequest, error)
}
