package revision

import (
	"github.com/drewdunne/scmpoll/internal/branchfilter"
	"github.com/drewdunne/scmpoll/internal/logging"
)

// Selection is the change reported by a poll.
type Selection struct {
	ChangeID string
	Revision string
	// Previous is the revision last reported for ChangeID, empty when the
	// change has not been seen before.
	Previous string
}

// Known reports whether the change was tracked before this poll.
func (s *Selection) Known() bool {
	return s.Previous != ""
}

// SelectOne picks at most one admitted change whose revision differs from the
// previous state, walking current in order so repeated polls converge. It
// also returns the state to persist: current without the admitted changes
// that were not selected, so they are reported by a later poll. Changes the
// filter rejects are kept at their new revision and are not reported later
// even if the filter starts admitting them.
//
// A nil filter admits everything.
func SelectOne(previous, current *Map, filter branchfilter.Filter, resolver branchfilter.BranchResolver, log *logging.Logger) (*Selection, *Map) {
	if log == nil {
		log = logging.Nop()
	}

	var (
		selected *Selection
		deferred []string
	)
	for id, rev := range current.All() {
		before, seen := previous.Get(id)
		if seen && before == rev {
			continue
		}
		if filter != nil && !filter.Admit(id, resolver) {
			log.Debugf("change %s at %s skipped by branch filter", id, rev)
			continue
		}
		if selected == nil {
			selected = &Selection{ChangeID: id, Revision: rev, Previous: before}
			continue
		}
		deferred = append(deferred, id)
	}

	state := current.Clone()
	if selected == nil {
		log.Debugf("no new revision among %d changes", current.Len())
		return nil, state
	}

	for _, id := range deferred {
		state.Delete(id)
	}
	log.Infof("selected change %s at %s (%d more deferred)", selected.ChangeID, selected.Revision, len(deferred))
	return selected, state
}
