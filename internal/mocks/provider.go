package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/drewdunne/scmpoll/internal/config"
	"github.com/drewdunne/scmpoll/internal/provider"
	"github.com/drewdunne/scmpoll/internal/vcs"
)

// MockChangeRequestService implements provider.ChangeRequestService for
// testing.
type MockChangeRequestService struct {
	mu sync.Mutex

	ChangeRequests map[string]*provider.ChangeRequest
	Open           []provider.ChangeRequest
	Err            error

	// Requested lists the ids passed to GetChangeRequest.
	Requested []string
}

// NewMockChangeRequestService creates a service with no change requests.
func NewMockChangeRequestService() *MockChangeRequestService {
	return &MockChangeRequestService{
		ChangeRequests: make(map[string]*provider.ChangeRequest),
	}
}

func (m *MockChangeRequestService) GetChangeRequest(ctx context.Context, id string) (*provider.ChangeRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requested = append(m.Requested, id)
	if m.Err != nil {
		return nil, m.Err
	}
	cr, ok := m.ChangeRequests[id]
	if !ok {
		return nil, fmt.Errorf("change request %s not found", id)
	}
	return cr, nil
}

func (m *MockChangeRequestService) ListOpenChangeRequests(ctx context.Context, sort, direction string) ([]provider.ChangeRequest, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Open, nil
}

// MockProvider is a provider whose API client and connection check are
// injected.
type MockProvider struct {
	provider.Base

	Service       provider.ChangeRequestService
	ConnectionErr error
	Configured    int
}

// NewMockProvider creates a pull request provider modelled on GitHub with no
// API client.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		Base: provider.Base{
			Key:             "mock",
			Display:         "Mock",
			ID:              "mock.pr",
			Spec:            "+refs/pull/*/head:refs/remotes/origin/pull-request/*",
			Pattern:         "refs/remotes/origin/pull-request/",
			IDKey:           provider.KeyPullRequestID,
			PullRequests:    true,
			BranchFiltering: true,
		},
	}
}

func (p *MockProvider) Configure(*config.SCM) {
	p.Configured++
}

func (p *MockProvider) ChangeRequests(*config.SCM) provider.ChangeRequestService {
	return p.Service
}

func (p *MockProvider) CheckConnection(ctx context.Context, scm *config.SCM, w vcs.Worker) error {
	if p.ConnectionErr != nil {
		return p.ConnectionErr
	}
	return w.CheckConnection(ctx)
}

// Compile-time interface checks
var (
	_ provider.ChangeRequestService = (*MockChangeRequestService)(nil)
	_ provider.Provider             = (*MockProvider)(nil)
)
