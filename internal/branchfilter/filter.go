package branchfilter

import (
	"github.com/drewdunne/scmpoll/internal/logging"
)

// BranchResolver maps an opaque change identifier (a pull request number) to
// the name of the branch it was raised from.
type BranchResolver interface {
	ResolveBranch(changeID string) (branch string, ok bool)
}

// Filter decides whether a change identifier may be considered for change
// detection.
type Filter interface {
	Admit(candidate string, resolver BranchResolver) bool
}

// rules holds the blacklist/whitelist pair shared by both filter variants.
type rules struct {
	blacklist Matcher
	whitelist Matcher
}

func newRules(blacklist, whitelist string) rules {
	return rules{
		blacklist: NewMatcher(blacklist, FailEmpty),
		whitelist: NewMatcher(whitelist, PassEmpty),
	}
}

// allows reports whether a branch name passes the rules. The blacklist wins
// when both lists match.
func (r rules) allows(branch string) bool {
	if r.whitelist.Empty() && r.blacklist.Empty() {
		return true
	}
	return r.whitelist.Match(branch) && !r.blacklist.Match(branch)
}

// BranchFilter admits identifiers that are branch names themselves.
type BranchFilter struct {
	rules
	log *logging.Logger
}

// New creates a filter for flows where the identifier is the branch name.
func New(blacklist, whitelist string, log *logging.Logger) *BranchFilter {
	if log == nil {
		log = logging.Nop()
	}
	return &BranchFilter{rules: newRules(blacklist, whitelist), log: log}
}

// Admit implements Filter. The resolver is not consulted.
func (f *BranchFilter) Admit(candidate string, _ BranchResolver) bool {
	if candidate == "" {
		return false
	}
	ok := f.allows(candidate)
	f.log.Debugf("branch %s admitted=%t", candidate, ok)
	return ok
}

// PRFilter admits pull request identifiers whose source branch passes the
// rules. The source branch is found through revision equality, so a pull
// request whose head is not the head of any known branch is never admitted.
type PRFilter struct {
	rules
	log *logging.Logger
}

// NewPR creates a filter for pull request flows.
func NewPR(blacklist, whitelist string, log *logging.Logger) *PRFilter {
	if log == nil {
		log = logging.Nop()
	}
	return &PRFilter{rules: newRules(blacklist, whitelist), log: log}
}

// Admit implements Filter.
func (f *PRFilter) Admit(candidate string, resolver BranchResolver) bool {
	if candidate == "" || resolver == nil {
		return false
	}

	branch, found := resolver.ResolveBranch(candidate)
	if !found {
		f.log.Infof("change %s: no branch shares its revision, not admitted", candidate)
		return false
	}

	ok := f.allows(branch)
	f.log.Infof("change %s resolved to branch %s admitted=%t", candidate, branch, ok)
	return ok
}

// Compile-time checks.
var (
	_ Filter = (*BranchFilter)(nil)
	_ Filter = (*PRFilter)(nil)
)
