package revision

import "github.com/drewdunne/scmpoll/internal/branchfilter"

// EquivalenceResolver resolves a change identifier to a branch by revision
// equality: the first branch, in Branches order, whose head is the change's
// revision.
type EquivalenceResolver struct {
	Changes  *Map
	Branches *Map
}

// NewEquivalenceResolver creates a resolver over changes and branches.
func NewEquivalenceResolver(changes, branches *Map) *EquivalenceResolver {
	return &EquivalenceResolver{Changes: changes, Branches: branches}
}

// ResolveBranch implements branchfilter.BranchResolver.
func (r *EquivalenceResolver) ResolveBranch(changeID string) (string, bool) {
	rev, ok := r.Changes.Get(changeID)
	if !ok || rev == "" {
		return "", false
	}
	for branch, head := range r.Branches.All() {
		if head == rev {
			return branch, true
		}
	}
	return "", false
}

// IdentityResolver resolves every identifier to itself.
type IdentityResolver struct{}

// ResolveBranch implements branchfilter.BranchResolver.
func (IdentityResolver) ResolveBranch(changeID string) (string, bool) {
	return changeID, changeID != ""
}

var (
	_ branchfilter.BranchResolver = (*EquivalenceResolver)(nil)
	_ branchfilter.BranchResolver = IdentityResolver{}
)
