package repository

import (
	"context"

	"topolab/internal/domain"
)

// Repository defines the interface for build snapshot access. Lookups of a
// missing build return nil without an error.
type Repository interface {
	// Read operations
	GetBuild(ctx context.Context, id string) (*domain.Build, error)
	LatestBuild(ctx context.Context) (*domain.Build, error)
	ListBuilds(ctx context.Context, limit int) ([]domain.BuildSummary, error)

	// Write operations
	SaveBuild(ctx context.Context, b *domain.Build) error
	PruneBuilds(ctx context.Context, keep int) (int64, error)

	// Close releases resources
	Close() error
}
