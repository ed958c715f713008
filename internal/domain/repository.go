package domain

import (
	"context"

	"istanbul-explorer/internal/models"
)

// StagingFilter narrows staging list queries for the back-office.
type StagingFilter struct {
	Status        models.Status   // empty = all
	Category      models.Category // empty = all
	Search        string          // matched against title
	MinConfidence int
	Limit         int
	Offset        int
}

// StagingRepository defines data access for staging items.
type StagingRepository interface {
	GetStagingItemCtx(ctx context.Context, id int64) (*models.StagingItem, error)
	GetStagingItemsByIDsCtx(ctx context.Context, ids []int64) ([]models.StagingItem, error)
	ListStagingItemsCtx(ctx context.Context, f StagingFilter) ([]models.StagingItem, int, error)
	GetStagingStatsCtx(ctx context.Context) (*models.StagingStats, error)

	// UpdateStatusCtx flips status for the given ids, restricted to rows
	// currently in fromStatus, and returns the affected row count.
	UpdateStatusCtx(ctx context.Context, ids []int64, from, to models.Status) (int64, error)
	UpdateThumbnailCtx(ctx context.Context, id int64, url string, index *int, reason string) error
	UpdateImagesCtx(ctx context.Context, id int64, images []string, primary *string) error
	// UpdateContentCtx persists title, confidence score, and raw_content.
	UpdateContentCtx(ctx context.Context, item *models.StagingItem) error
}

// PublishedRepository defines access to the per-category published tables.
type PublishedRepository interface {
	InsertPublishedCtx(ctx context.Context, e *models.PublishedEntity) (int64, error)
	SlugExistsCtx(ctx context.Context, category models.Category, slug string) (bool, error)
}

// Repository aggregates the repos required by the staging service.
type Repository interface {
	StagingRepository
	PublishedRepository
}
