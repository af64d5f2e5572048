package catalog

import (
	"context"

	"github.com/homeswipe/homeswipe/internal/domain"
)

// Repository defines the listing storage contract for ingestion.
type Repository interface {
	UpsertBatch(ctx context.Context, listings []domain.Listing) (int, error)
	Count(ctx context.Context) (int, error)
}
