package swipes

import (
	"context"

	"github.com/homeswipe/homeswipe/internal/domain"
)

// Repository defines the swipe ledger storage contract.
type Repository interface {
	Record(ctx context.Context, ev domain.SwipeEvent) (domain.SwipeEvent, error)
	ByUser(ctx context.Context, userID string, limit int) ([]domain.SwipeEvent, error)
	ByUserAction(ctx context.Context, userID string, action domain.SwipeAction, limit int) ([]domain.SwipeEvent, error)
	CountByUser(ctx context.Context, userID string) (int, error)
}

// ListingSampler provides listings for debug seeding.
type ListingSampler interface {
	Sample(ctx context.Context, limit int) ([]domain.Listing, error)
}
