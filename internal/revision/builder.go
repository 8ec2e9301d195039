package revision

import (
	"context"
	"fmt"

	"github.com/drewdunne/scmpoll/internal/vcs"
)

// Build fetches refSpec into the worker's repository and returns the current
// head of every ref under refPattern, keyed by the ref name with the pattern
// stripped. Any worker failure aborts the build.
func Build(ctx context.Context, w vcs.Worker, refSpec, refPattern string) (*Map, error) {
	if err := w.CloneOrFetch(ctx, refSpec); err != nil {
		return nil, fmt.Errorf("fetching %s: %w", refSpec, err)
	}

	refs, err := w.BranchToRevisionMap(ctx, refPattern)
	if err != nil {
		return nil, fmt.Errorf("listing refs under %s: %w", refPattern, err)
	}

	if err := w.SubmoduleUpdate(ctx); err != nil {
		return nil, fmt.Errorf("updating submodules: %w", err)
	}

	kept := make([]vcs.Ref, 0, len(refs))
	for _, r := range refs {
		if r.Name == "" || r.Name == "HEAD" {
			continue
		}
		kept = append(kept, r)
	}
	return FromRefs(kept), nil
}
