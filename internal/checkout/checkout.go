// Package checkout prepares a working copy at a reported revision.
package checkout

import (
	"context"
	"fmt"
	"strings"

	"github.com/drewdunne/scmpoll/internal/enrich"
	"github.com/drewdunne/scmpoll/internal/vcs"
)

// Checkout fetches refSpec, creates the local branch named by hint and
// resets it to revision.
func Checkout(ctx context.Context, w vcs.Worker, refSpec, revision, hint string) error {
	if revision == "" {
		return fmt.Errorf("checkout: revision is required")
	}

	if err := w.CloneOrFetch(ctx, refSpec); err != nil {
		return fmt.Errorf("fetching %s: %w", refSpec, err)
	}

	branch := BranchName(hint)
	if err := w.CheckoutNewBranch(ctx, branch); err != nil {
		return fmt.Errorf("creating branch %s: %w", branch, err)
	}

	if err := w.ResetHard(ctx, revision); err != nil {
		return fmt.Errorf("resetting to %s: %w", revision, err)
	}

	if err := w.SubmoduleUpdate(ctx); err != nil {
		return fmt.Errorf("updating submodules: %w", err)
	}
	return nil
}

// BranchName returns the local branch for hint. Colons, as in GitHub's
// owner:branch labels, are not valid in branch names.
func BranchName(hint string) string {
	hint = strings.TrimSpace(hint)
	if hint == "" {
		hint = enrich.DefaultCheckoutBranch
	}
	return strings.ReplaceAll(hint, ":", "/")
}
