package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"research-reports/backend/internal/logging"
	"research-reports/backend/internal/repository"
	"research-reports/backend/pkg/models"
)

// ErrNotFound is returned when the requested research does not exist.
var ErrNotFound = repository.ErrNotFound

// ResearchService is a service for managing research records.
type ResearchService struct {
	stores   repository.Provider
	workflow WorkflowSubmitter
	logger   *logging.Logger

	newID func() string
	now   func() time.Time
}

// NewResearchService creates a new ResearchService.
func NewResearchService(stores repository.Provider, workflow WorkflowSubmitter, logger *logging.Logger) *ResearchService {
	return &ResearchService{
		stores:   stores,
		workflow: workflow,
		logger:   logger,
		newID:    func() string { return uuid.New().String() },
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// List returns every research, newest first.
func (s *ResearchService) List(ctx context.Context) ([]*models.Research, error) {
	store, err := s.stores.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return store.List(ctx)
}

// Get returns the research with the given id or ErrNotFound.
func (s *ResearchService) Get(ctx context.Context, id string) (*models.Research, error) {
	store, err := s.stores.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return store.Get(ctx, id)
}

// Create starts a new research: it submits the workflow job and then stores
// the record with status running.
func (s *ResearchService) Create(ctx context.Context, in models.NewResearch) (*models.Research, error) {
	research := &models.Research{
		ID:        s.newID(),
		Query:     in.Query,
		Depth:     in.Depth,
		Breadth:   in.Breadth,
		Questions: in.Questions,
		Status:    models.ResearchStatusRunning,
		UserID:    in.UserID,
	}
	if research.Questions == nil {
		research.Questions = []models.QuestionAnswer{}
	}
	store, err := s.stores.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.start(ctx, store, "create", research); err != nil {
		return nil, err
	}
	return research, nil
}

// ReRun starts a fresh research with the query, depth, breadth and questions
// of an existing one. The original record is left untouched.
func (s *ResearchService) ReRun(ctx context.Context, id string) (*models.Research, error) {
	store, err := s.stores.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	original, err := store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	questions := make([]models.QuestionAnswer, len(original.Questions))
	copy(questions, original.Questions)

	research := &models.Research{
		ID:        s.newID(),
		Query:     original.Query,
		Depth:     original.Depth,
		Breadth:   original.Breadth,
		Questions: questions,
		Status:    models.ResearchStatusRunning,
		UserID:    original.UserID,
	}
	if err := s.start(ctx, store, "rerun", research); err != nil {
		return nil, err
	}
	s.logger.Info("research re-run", "source_id", id, "id", research.ID)
	return research, nil
}

// Delete removes a research after confirming it exists.
func (s *ResearchService) Delete(ctx context.Context, id string) error {
	store, err := s.stores.Acquire(ctx)
	if err != nil {
		return err
	}
	if _, err := store.Get(ctx, id); err != nil {
		return err
	}
	if err := store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete research %s: %w", id, err)
	}
	s.logger.Info("research deleted", "id", id)
	return nil
}

// Ping checks the backing store.
func (s *ResearchService) Ping(ctx context.Context) error {
	store, err := s.stores.Acquire(ctx)
	if err != nil {
		return err
	}
	return store.Ping(ctx)
}

// start submits the workflow job and then inserts the record. The two steps
// are not transactional: a failed insert leaves a running workflow behind.
func (s *ResearchService) start(ctx context.Context, store repository.ResearchStore, kind string, research *models.Research) error {
	research.CreatedAt = s.now()

	if err := s.workflow.SubmitJob(ctx, research.ID, research.Params()); err != nil {
		submissionCount(ctx, kind, "submit_failed")
		return err
	}
	if err := store.Create(ctx, research); err != nil {
		submissionCount(ctx, kind, "insert_failed")
		s.logger.Error("research submitted but not stored", "id", research.ID, "error", err)
		return fmt.Errorf("insert research %s: %w", research.ID, err)
	}
	submissionCount(ctx, kind, "ok")
	s.logger.Info("research submitted", "id", research.ID, "kind", kind)
	return nil
}
