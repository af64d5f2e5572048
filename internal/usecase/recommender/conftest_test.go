package recommender

import (
	"context"
	"fmt"
	"testing"

	"github.com/homeswipe/homeswipe/internal/config"
	"github.com/homeswipe/homeswipe/internal/domain"
)

// mockListings implements ListingRepository for tests.
type mockListings struct {
	fetchByIDsFn func(ctx context.Context, ids []string) ([]domain.Listing, error)
	byCityFn     func(ctx context.Context, city string, limit int) ([]domain.Listing, error)
	sampleFn     func(ctx context.Context, limit int) ([]domain.Listing, error)
}

func (m *mockListings) FetchByIDs(ctx context.Context, ids []string) ([]domain.Listing, error) {
	if m.fetchByIDsFn != nil {
		return m.fetchByIDsFn(ctx, ids)
	}
	return nil, nil
}

func (m *mockListings) ByCity(ctx context.Context, city string, limit int) ([]domain.Listing, error) {
	if m.byCityFn != nil {
		return m.byCityFn(ctx, city, limit)
	}
	return nil, nil
}

func (m *mockListings) Sample(ctx context.Context, limit int) ([]domain.Listing, error) {
	if m.sampleFn != nil {
		return m.sampleFn(ctx, limit)
	}
	return nil, nil
}

// mockSwipes implements SwipeRepository for tests.
type mockSwipes struct {
	byUserFn        func(ctx context.Context, userID string, limit int) ([]domain.SwipeEvent, error)
	countByUserFn   func(ctx context.Context, userID string) (int, error)
	countByActionFn func(ctx context.Context, userID string, action domain.SwipeAction) (int, error)
}

func (m *mockSwipes) ByUser(ctx context.Context, userID string, limit int) ([]domain.SwipeEvent, error) {
	if m.byUserFn != nil {
		return m.byUserFn(ctx, userID, limit)
	}
	return nil, nil
}

func (m *mockSwipes) CountByUser(ctx context.Context, userID string) (int, error) {
	if m.countByUserFn != nil {
		return m.countByUserFn(ctx, userID)
	}
	return 0, nil
}

func (m *mockSwipes) CountByUserAction(ctx context.Context, userID string, action domain.SwipeAction) (int, error) {
	if m.countByActionFn != nil {
		return m.countByActionFn(ctx, userID, action)
	}
	return 0, nil
}

func testConfig() config.RecommenderConfig {
	return config.RecommenderConfig{
		MinSwipes:     5,
		SwipeLookback: 20,
		RecentSwipes:  5,
		CityPoolLimit: 200,
		DefaultLimit:  10,
	}
}

func newTestService(t *testing.T) (*Service, *mockListings, *mockSwipes) {
	t.Helper()
	ml := &mockListings{}
	msw := &mockSwipes{}
	trainer := NewTrainer(ml, msw, 5)
	trainer.seed = func() int64 { return 42 }
	return New(ml, msw, trainer, testConfig()), ml, msw
}

func f64(v float64) *float64 { return &v }

// cheapCondo and pricyHouse are clearly distinguishable for the classifier.
func cheapCondo(id string) domain.Listing {
	return domain.Listing{
		ID: id, HomeID: id, City: "Austin", HomeType: "CONDO",
		Price: f64(150000), Beds: f64(1), Baths: f64(1), Area: f64(700),
	}
}

func pricyHouse(id string) domain.Listing {
	return domain.Listing{
		ID: id, HomeID: id, City: "Austin", HomeType: "SINGLE_FAMILY",
		Price: f64(1200000), Beds: f64(5), Baths: f64(4), Area: f64(4200),
	}
}

// swipeHistory alternates likes on houses and dislikes on condos, newest first.
func swipeHistory(n int) ([]domain.SwipeEvent, []domain.Listing) {
	var swipes []domain.SwipeEvent
	var listings []domain.Listing
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("h%02d", i)
		ts := fmt.Sprintf("2026-02-01T10:%02d:00Z", 59-i)
		if i%2 == 0 {
			listings = append(listings, pricyHouse(id))
			swipes = append(swipes, domain.SwipeEvent{
				ID: "s" + id, UserID: "u1", HomeID: id,
				Action: domain.ActionLike, Timestamp: ts,
			})
		} else {
			listings = append(listings, cheapCondo(id))
			swipes = append(swipes, domain.SwipeEvent{
				ID: "s" + id, UserID: "u1", HomeID: id,
				Action: domain.ActionDislike, Timestamp: ts,
			})
		}
	}
	return swipes, listings
}
