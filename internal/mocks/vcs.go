package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/drewdunne/scmpoll/internal/config"
	"github.com/drewdunne/scmpoll/internal/vcs"
)

// Call records a single worker invocation.
type Call struct {
	Method string
	Arg    string
}

// MockWorker implements vcs.Worker for testing.
type MockWorker struct {
	mu sync.Mutex

	// Calls lists every invocation in order.
	Calls []Call
	// Refs maps a ref pattern to the refs BranchToRevisionMap returns for it.
	Refs map[string][]vcs.Ref
	// Branches is returned by BranchLatestRevisions.
	Branches []vcs.Ref
	// Revisions maps a revision (or "HEAD") to its details.
	Revisions map[string]*vcs.Revision
	// Since maps a revision to the commits RevisionsSince returns for it.
	Since map[string][]vcs.Revision
	// Errors maps method names to injected errors.
	Errors map[string]error

	// Head tracks the last ResetHard target; LatestRevision resolves it.
	Head string
	// Branch tracks the last CheckoutNewBranch name.
	Branch string
}

// NewMockWorker creates an empty mock worker.
func NewMockWorker() *MockWorker {
	return &MockWorker{
		Refs:      make(map[string][]vcs.Ref),
		Revisions: make(map[string]*vcs.Revision),
		Since:     make(map[string][]vcs.Revision),
		Errors:    make(map[string]error),
	}
}

func (m *MockWorker) record(method, arg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, Call{Method: method, Arg: arg})
	return m.Errors[method]
}

// Methods returns the names of the recorded calls in order.
func (m *MockWorker) Methods() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.Calls))
	for i, c := range m.Calls {
		out[i] = c.Method
	}
	return out
}

// CloneOrFetch records the call.
func (m *MockWorker) CloneOrFetch(_ context.Context, refSpec string) error {
	return m.record("CloneOrFetch", refSpec)
}

// Fetch records the call.
func (m *MockWorker) Fetch(_ context.Context, refSpec string) error {
	return m.record("Fetch", refSpec)
}

// ResetHard records the call and moves Head.
func (m *MockWorker) ResetHard(_ context.Context, revision string) error {
	if err := m.record("ResetHard", revision); err != nil {
		return err
	}
	m.Head = revision
	return nil
}

// CheckoutNewBranch records the call and sets Branch.
func (m *MockWorker) CheckoutNewBranch(_ context.Context, name string) error {
	if err := m.record("CheckoutNewBranch", name); err != nil {
		return err
	}
	m.Branch = name
	return nil
}

// BranchToRevisionMap returns Refs[pattern].
func (m *MockWorker) BranchToRevisionMap(_ context.Context, pattern string) ([]vcs.Ref, error) {
	if err := m.record("BranchToRevisionMap", pattern); err != nil {
		return nil, err
	}
	return m.Refs[pattern], nil
}

// BranchLatestRevisions returns Branches.
func (m *MockWorker) BranchLatestRevisions(_ context.Context) ([]vcs.Ref, error) {
	if err := m.record("BranchLatestRevisions", ""); err != nil {
		return nil, err
	}
	return m.Branches, nil
}

// LatestRevision returns the details of Head, falling back to "HEAD".
func (m *MockWorker) LatestRevision(ctx context.Context) (*vcs.Revision, error) {
	if err := m.record("LatestRevision", m.Head); err != nil {
		return nil, err
	}
	if rev, ok := m.Revisions[m.Head]; ok {
		return rev, nil
	}
	if rev, ok := m.Revisions["HEAD"]; ok {
		return rev, nil
	}
	return nil, fmt.Errorf("no revision for HEAD")
}

// RevisionDetails returns Revisions[revision].
func (m *MockWorker) RevisionDetails(_ context.Context, revision string) (*vcs.Revision, error) {
	if err := m.record("RevisionDetails", revision); err != nil {
		return nil, err
	}
	rev, ok := m.Revisions[revision]
	if !ok {
		return nil, fmt.Errorf("unknown revision %s", revision)
	}
	return rev, nil
}

// RevisionsSince returns Since[revision].
func (m *MockWorker) RevisionsSince(_ context.Context, revision string) ([]vcs.Revision, error) {
	if err := m.record("RevisionsSince", revision); err != nil {
		return nil, err
	}
	return m.Since[revision], nil
}

// SubmoduleUpdate records the call.
func (m *MockWorker) SubmoduleUpdate(_ context.Context) error {
	return m.record("SubmoduleUpdate", "")
}

// CheckConnection records the call.
func (m *MockWorker) CheckConnection(_ context.Context) error {
	return m.record("CheckConnection", "")
}

// MockFactory hands out the same MockWorker for every material and records
// the directories requested.
type MockFactory struct {
	Worker *MockWorker
	Dirs   []string
	SCMs   []*config.SCM
}

// NewMockFactory creates a factory around w.
func NewMockFactory(w *MockWorker) *MockFactory {
	return &MockFactory{Worker: w}
}

// New implements vcs.Factory.
func (f *MockFactory) New(scm *config.SCM, dir string) vcs.Worker {
	f.Dirs = append(f.Dirs, dir)
	f.SCMs = append(f.SCMs, scm)
	return f.Worker
}

// Compile-time checks.
var (
	_ vcs.Worker  = (*MockWorker)(nil)
	_ vcs.Factory = (*MockFactory)(nil)
)
