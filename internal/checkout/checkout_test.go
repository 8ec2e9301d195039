package checkout_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drewdunne/scmpoll/internal/checkout"
	"github.com/drewdunne/scmpoll/internal/mocks"
)

const refSpec = "+refs/pull/*/head:refs/remotes/origin/pull-request/*"

func TestCheckout(t *testing.T) {
	w := mocks.NewMockWorker()

	err := checkout.Checkout(context.Background(), w, refSpec, "abc123", "feature:login")
	require.NoError(t, err)

	assert.Equal(t, []mocks.Call{
		{Method: "CloneOrFetch", Arg: refSpec},
		{Method: "CheckoutNewBranch", Arg: "feature/login"},
		{Method: "ResetHard", Arg: "abc123"},
		{Method: "SubmoduleUpdate"},
	}, w.Calls)
	assert.Equal(t, "feature/login", w.Branch)
	assert.Equal(t, "abc123", w.Head)
}

func TestCheckout_DefaultBranch(t *testing.T) {
	w := mocks.NewMockWorker()

	require.NoError(t, checkout.Checkout(context.Background(), w, refSpec, "abc123", ""))
	assert.Equal(t, "gocd-pr", w.Branch)
}

func TestCheckout_StepFailures(t *testing.T) {
	tests := []struct {
		method  string
		wantMsg string
		calls   int
	}{
		{"CloneOrFetch", "fetching", 1},
		{"CheckoutNewBranch", "creating branch feature/login", 2},
		{"ResetHard", "resetting to abc123", 3},
		{"SubmoduleUpdate", "updating submodules", 4},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			cause := errors.New("git failed")
			w := mocks.NewMockWorker()
			w.Errors[tt.method] = cause

			err := checkout.Checkout(context.Background(), w, refSpec, "abc123", "feature:login")
			require.Error(t, err)
			assert.ErrorIs(t, err, cause)
			assert.Contains(t, err.Error(), tt.wantMsg)
			assert.Len(t, w.Calls, tt.calls, "later steps must not run")
		})
	}
}

func TestCheckout_RequiresRevision(t *testing.T) {
	w := mocks.NewMockWorker()

	assert.Error(t, checkout.Checkout(context.Background(), w, refSpec, "", "x"))
	assert.Empty(t, w.Calls)
}

func TestBranchName(t *testing.T) {
	assert.Equal(t, "feature/login", checkout.BranchName("feature:login"))
	assert.Equal(t, "owner/feature/x", checkout.BranchName("owner:feature/x"))
	assert.Equal(t, "gocd-pr", checkout.BranchName(""))
	assert.Equal(t, "gocd-pr", checkout.BranchName("  "))
	assert.Equal(t, "master", checkout.BranchName("master"))
}
