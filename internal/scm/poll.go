package scm

import (
	"context"

	"github.com/drewdunne/scmpoll/internal/apperr"
	"github.com/drewdunne/scmpoll/internal/config"
	"github.com/drewdunne/scmpoll/internal/metrics"
	"github.com/drewdunne/scmpoll/internal/revision"
	"github.com/drewdunne/scmpoll/internal/vcs"
)

// mergeCommitPlaceholder stands in for the file list of a merge commit that
// changed nothing itself, so the orchestrator still schedules it.
var mergeCommitPlaceholder = vcs.ModifiedFile{FileName: "/dev/null", Action: vcs.ActionDeleted}

// poll fetches the material into folder and selects at most one change
// against previous. It returns the worker for follow-up queries.
func (p *Plugin) poll(ctx context.Context, scm *config.SCM, folder string, previous *revision.Map) (vcs.Worker, *revision.Selection, *revision.Map, error) {
	metrics.Poll()
	log := p.log.With("url", scm.Sanitize(scm.URL))

	w := p.factory.New(scm, folder)
	current, err := revision.Build(ctx, w, p.provider.RefSpec(), p.provider.RefPattern())
	if err != nil {
		return nil, nil, nil, p.fail(scm, apperr.ErrCodeVCSFailed, "fetching changes failed", err)
	}

	resolver, err := p.provider.Resolver(ctx, w, current)
	if err != nil {
		return nil, nil, nil, p.fail(scm, apperr.ErrCodeVCSFailed, "resolving branches failed", err)
	}

	sel, state := revision.SelectOne(previous, current, p.provider.Filter(scm, log), resolver, log)
	if sel == nil {
		metrics.NoChange()
		log.Debugf("no new revision among %d changes", current.Len())
	} else {
		metrics.ChangeDetected()
	}
	return w, sel, state, nil
}

// LatestRevision answers the first poll of a material: every change is new
// and the first admitted one is reported with its commit details.
func (p *Plugin) LatestRevision(ctx context.Context, req *LatestRevisionRequest) (*LatestRevisionResponse, error) {
	scm := p.material(req.Configuration)

	unlock := p.locks.lock(req.FlyweightFolder)
	defer unlock()

	w, sel, state, err := p.poll(ctx, scm, req.FlyweightFolder, revision.NewMap())
	if err != nil {
		return nil, err
	}

	resp := &LatestRevisionResponse{}
	if sel != nil {
		details, err := w.RevisionDetails(ctx, sel.Revision)
		if err != nil {
			return nil, p.fail(scm, apperr.ErrCodeVCSFailed, "reading revision details failed", err)
		}
		rev := newRevision(details, p.enricher.Enrich(ctx, scm, sel.ChangeID, sel.Revision))
		resp.Revision = &rev
		p.log.Infof("reporting %s at %s", sel.ChangeID, sel.Revision)
	}

	if resp.SCMData, err = revision.EncodeState(state); err != nil {
		return nil, p.fail(scm, apperr.ErrCodeInternalError, "encoding state failed", err)
	}
	return resp, nil
}

// LatestRevisionsSince answers subsequent polls. A change seen before
// reports every commit since its last reported revision; a new change
// reports its head commit.
func (p *Plugin) LatestRevisionsSince(ctx context.Context, req *LatestRevisionsSinceRequest) (*LatestRevisionsResponse, error) {
	scm := p.material(req.Configuration)

	previous, err := revision.DecodeState(req.SCMData)
	if err != nil {
		return nil, p.fail(scm, apperr.ErrCodeInvalidState, "persisted revision state is unreadable", err)
	}

	unlock := p.locks.lock(req.FlyweightFolder)
	defer unlock()

	w, sel, state, err := p.poll(ctx, scm, req.FlyweightFolder, previous)
	if err != nil {
		return nil, err
	}

	resp := &LatestRevisionsResponse{}
	if sel != nil {
		commits, err := p.commitsSince(ctx, w, sel)
		if err != nil {
			return nil, p.fail(scm, apperr.ErrCodeVCSFailed, "reading revisions failed", err)
		}

		// One data bag for the whole batch; the enrichment describes the
		// change, not the commit.
		data := p.enricher.Enrich(ctx, scm, sel.ChangeID, sel.Revision)
		resp.Revisions = make([]Revision, 0, len(commits))
		for i := range commits {
			resp.Revisions = append(resp.Revisions, newRevision(&commits[i], data))
		}
		p.log.Infof("reporting %d revisions of %s since %q", len(commits), sel.ChangeID, sel.Previous)
	}

	if resp.SCMData, err = revision.EncodeState(state); err != nil {
		return nil, p.fail(scm, apperr.ErrCodeInternalError, "encoding state failed", err)
	}
	return resp, nil
}

func (p *Plugin) commitsSince(ctx context.Context, w vcs.Worker, sel *revision.Selection) ([]vcs.Revision, error) {
	if !sel.Known() {
		details, err := w.RevisionDetails(ctx, sel.Revision)
		if err != nil {
			return nil, err
		}
		rev := *details
		if rev.IsMergeCommit() && len(rev.ModifiedFiles) == 0 {
			rev.ModifiedFiles = []vcs.ModifiedFile{mergeCommitPlaceholder}
		}
		return []vcs.Revision{rev}, nil
	}

	if err := w.ResetHard(ctx, sel.Revision); err != nil {
		return nil, err
	}

	commits, err := w.RevisionsSince(ctx, sel.Previous)
	if err == nil && len(commits) > 0 {
		return commits, nil
	}
	if err != nil {
		p.log.Warn("listing revisions since "+sel.Previous+", reporting head only", err)
	}

	latest, err := w.LatestRevision(ctx)
	if err != nil {
		return nil, err
	}
	return []vcs.Revision{*latest}, nil
}
