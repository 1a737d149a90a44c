package services

import (
	"context"

	"github.com/stretchr/testify/mock"

	"research-reports/backend/internal/logging"
	"research-reports/backend/internal/repository"
	"research-reports/backend/pkg/models"
)

// MockStore satisfies repository.ResearchStore
type MockStore struct {
	mock.Mock
}

func (m *MockStore) List(ctx context.Context) ([]*models.Research, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Research), args.Error(1)
}

func (m *MockStore) Get(ctx context.Context, id string) (*models.Research, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Research), args.Error(1)
}

func (m *MockStore) Create(ctx context.Context, research *models.Research) error {
	return m.Called(ctx, research).Error(0)
}

func (m *MockStore) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockStore) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// staticProvider hands out the same store and counts acquisitions
type staticProvider struct {
	store    repository.ResearchStore
	err      error
	acquired int
}

func (p *staticProvider) Acquire(ctx context.Context) (repository.ResearchStore, error) {
	p.acquired++
	if p.err != nil {
		return nil, p.err
	}
	return p.store, nil
}

// MockSubmitter satisfies WorkflowSubmitter
type MockSubmitter struct {
	mock.Mock
}

func (m *MockSubmitter) SubmitJob(ctx context.Context, id string, params models.ResearchParams) error {
	return m.Called(ctx, id, params).Error(0)
}

func newTestService(store repository.ResearchStore, submitter WorkflowSubmitter) (*ResearchService, *staticProvider) {
	provider := &staticProvider{store: store}
	return NewResearchService(provider, submitter, logging.NewNop()), provider
}
