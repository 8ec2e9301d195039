// Package enrich builds the data bag attached to reported revisions.
package enrich

import (
	"context"
	"strings"

	"github.com/drewdunne/scmpoll/internal/config"
	"github.com/drewdunne/scmpoll/internal/logging"
	"github.com/drewdunne/scmpoll/internal/metrics"
	"github.com/drewdunne/scmpoll/internal/provider"
)

// DefaultCheckoutBranch names the local branch when nothing better is known.
const DefaultCheckoutBranch = "gocd-pr"

// Enricher attaches the change identifier and, when enabled, change request
// metadata from the provider's API.
type Enricher struct {
	PopulateDetails bool
	Provider        provider.Provider
	Log             *logging.Logger
}

// New creates an Enricher.
func New(p provider.Provider, populateDetails bool, log *logging.Logger) *Enricher {
	if log == nil {
		log = logging.Nop()
	}
	return &Enricher{PopulateDetails: populateDetails, Provider: p, Log: log}
}

// Enrich returns the data bag for a selected change. API failures are logged
// and leave the bag with the identifier only.
func (e *Enricher) Enrich(ctx context.Context, scm *config.SCM, changeID, revision string) map[string]string {
	data := map[string]string{
		e.Provider.IdentifierKey(): changeID,
	}

	if e.PopulateDetails {
		e.addDetails(ctx, scm, changeID, revision, data)
	}

	data[provider.KeyPRCheckoutBranch] = CheckoutBranch(data)
	return data
}

func (e *Enricher) addDetails(ctx context.Context, scm *config.SCM, changeID, revision string, data map[string]string) {
	svc := e.Provider.ChangeRequests(scm)
	if svc == nil {
		return
	}

	cr, err := svc.GetChangeRequest(ctx, changeID)
	if err != nil {
		metrics.EnrichmentFailed()
		e.Log.With("change", changeID).With("revision", revision).
			Warn("fetching change request details", scm.SanitizeError(err))
		return
	}

	for k, v := range cr.Data() {
		data[k] = v
	}
}

// CheckoutBranch derives the local branch name for a data bag: the change
// request's source branch, else the tracked branch, else a name built from
// the pull request id.
func CheckoutBranch(data map[string]string) string {
	branch := data[provider.KeyPRBranch]
	if branch == "" {
		branch = data[provider.KeyCurrentBranch]
	}
	if branch == "" {
		branch = DefaultCheckoutBranch
		if id := data[provider.KeyPullRequestID]; id != "" {
			branch += "/" + id
		}
	}
	return strings.ReplaceAll(branch, ":", "/")
}
