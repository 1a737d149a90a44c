package repository

import (
	"context"
	"errors"

	"research-reports/backend/pkg/models"
)

// ErrNotFound is returned when no research matches the requested id.
var ErrNotFound = errors.New("research not found")

// ResearchStore is the accessor for the researches table.
type ResearchStore interface {
	// List returns every research, newest first.
	List(ctx context.Context) ([]*models.Research, error)
	// Get retrieves a research by its ID.
	Get(ctx context.Context, id string) (*models.Research, error)
	// Create inserts a new research.
	Create(ctx context.Context, research *models.Research) error
	// Delete removes a research. Deleting an unknown id is not an error.
	Delete(ctx context.Context, id string) error
	// Ping checks connectivity to the backing store.
	Ping(ctx context.Context) error
}

// Provider hands out a ResearchStore whose schema has been applied.
type Provider interface {
	Acquire(ctx context.Context) (ResearchStore, error)
}
