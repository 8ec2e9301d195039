// Package scm implements the orchestrator-facing SCM operations: polling for
// the newest change, checking out a reported revision and describing the
// material configuration.
package scm

import (
	"context"
	"fmt"
	"strings"

	"github.com/drewdunne/scmpoll/internal/apperr"
	"github.com/drewdunne/scmpoll/internal/checkout"
	"github.com/drewdunne/scmpoll/internal/config"
	"github.com/drewdunne/scmpoll/internal/enrich"
	"github.com/drewdunne/scmpoll/internal/logging"
	"github.com/drewdunne/scmpoll/internal/metrics"
	"github.com/drewdunne/scmpoll/internal/provider"
	"github.com/drewdunne/scmpoll/internal/vcs"
)

// Plugin answers orchestrator requests for one provider.
type Plugin struct {
	provider provider.Provider
	factory  vcs.Factory
	enricher *enrich.Enricher
	defaults config.ProviderConfig
	log      *logging.Logger
	locks    *folderLocks
}

// New creates a Plugin. defaults supplies API settings and credentials for
// materials that do not set their own, and whether revisions are enriched.
func New(p provider.Provider, factory vcs.Factory, defaults config.ProviderConfig, log *logging.Logger) *Plugin {
	if log == nil {
		log = logging.Nop()
	}
	log = log.With("provider", p.Name())
	return &Plugin{
		provider: p,
		factory:  factory,
		enricher: enrich.New(p, defaults.PopulateDetails, log),
		defaults: defaults,
		log:      log,
		locks:    newFolderLocks(),
	}
}

// LockFolder waits for polls and checkouts on dir to finish and keeps new
// ones out until the returned function is called.
func (p *Plugin) LockFolder(dir string) func() {
	return p.locks.lock(dir)
}

// Provider returns the plugin's provider.
func (p *Plugin) Provider() provider.Provider {
	return p.provider
}

// material builds the effective configuration of a material.
func (p *Plugin) material(c Configuration) *config.SCM {
	scm := config.MergeSCM(p.defaults, config.SCMFromValues(c.Values()))
	p.provider.Configure(scm)
	return scm
}

// fail records and scrubs an error before it is returned to the
// orchestrator.
func (p *Plugin) fail(scm *config.SCM, code apperr.ErrorCode, msg string, err error) error {
	sanitized := scm.SanitizeError(err)
	p.log.With("url", scm.Sanitize(scm.URL)).Error(msg, sanitized)
	if code == apperr.ErrCodeVCSFailed {
		metrics.VCSFailed()
	}
	return apperr.Wrap(sanitized, code, msg)
}

// Checkout prepares destination-folder at the requested revision, on the
// branch named by the revision's PR_CHECKOUT_BRANCH.
func (p *Plugin) Checkout(ctx context.Context, req *CheckoutRequest) (*StatusResponse, error) {
	scm := p.material(req.Configuration)
	if req.DestinationFolder == "" {
		return nil, apperr.InvalidRequest("destination-folder is required")
	}
	if req.Revision.Revision == "" {
		return nil, apperr.InvalidRequest("revision is required")
	}

	unlock := p.locks.lock(req.DestinationFolder)
	defer unlock()

	p.log.Infof("checking out %s into %s", req.Revision.Revision, req.DestinationFolder)

	w := p.factory.New(scm, req.DestinationFolder)
	hint := req.Revision.Data[provider.KeyPRCheckoutBranch]
	if err := checkout.Checkout(ctx, w, p.provider.RefSpec(), req.Revision.Revision, hint); err != nil {
		return nil, p.fail(scm, apperr.ErrCodeVCSFailed, "checkout failed", err)
	}

	metrics.Checkout()
	return &StatusResponse{
		Status:   StatusSuccess,
		Messages: []string{fmt.Sprintf("Checked out to revision %s", req.Revision.Revision)},
	}, nil
}

// CheckConnection verifies the material's URL and reachability. Failures are
// reported in the response, not as errors.
func (p *Plugin) CheckConnection(ctx context.Context, c Configuration) *StatusResponse {
	metrics.ConnectionChecked()
	scm := p.material(c)

	failure := func(msg string) *StatusResponse {
		p.log.Warnf("connection check failed: %s", msg)
		return &StatusResponse{Status: StatusFailure, Messages: []string{msg}}
	}

	switch {
	case strings.TrimSpace(scm.URL) == "":
		return failure("URL is empty")
	case !p.provider.ValidURL(scm.URL):
		return failure("Invalid URL")
	}

	// The check lists the remote and never touches the working directory.
	w := p.factory.New(scm, "")
	if err := p.provider.CheckConnection(ctx, scm, w); err != nil {
		return failure(scm.Sanitize(err.Error()))
	}

	return &StatusResponse{
		Status:   StatusSuccess,
		Messages: []string{"Could connect to URL successfully"},
	}
}

// ValidateConfiguration returns the field errors of a material
// configuration; an empty list means it is valid.
func (p *Plugin) ValidateConfiguration(c Configuration) []FieldError {
	errs := []FieldError{}
	url := strings.TrimSpace(c.Values()[config.KeyURL])
	switch {
	case url == "":
		errs = append(errs, FieldError{Key: config.KeyURL, Message: "URL is a required field"})
	case !p.provider.ValidURL(url):
		errs = append(errs, FieldError{Key: config.KeyURL, Message: "Invalid URL"})
	}
	return errs
}

// Configuration returns the provider's configuration surface.
func (p *Plugin) Configuration() provider.FieldSet {
	return p.provider.Fields()
}
