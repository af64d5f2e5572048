package recommender

import (
	"context"

	"github.com/homeswipe/homeswipe/internal/domain"
)

// ListingRepository defines the listing storage contract for recommendations.
type ListingRepository interface {
	FetchByIDs(ctx context.Context, ids []string) ([]domain.Listing, error)
	ByCity(ctx context.Context, city string, limit int) ([]domain.Listing, error)
	Sample(ctx context.Context, limit int) ([]domain.Listing, error)
}

// SwipeRepository defines the swipe ledger contract for recommendations.
type SwipeRepository interface {
	ByUser(ctx context.Context, userID string, limit int) ([]domain.SwipeEvent, error)
	CountByUser(ctx context.Context, userID string) (int, error)
	CountByUserAction(ctx context.Context, userID string, action domain.SwipeAction) (int, error)
}
