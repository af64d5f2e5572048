package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/homeswipe/homeswipe/internal/config"
	"github.com/homeswipe/homeswipe/internal/domain"
	cataloguc "github.com/homeswipe/homeswipe/internal/usecase/catalog"
	healthuc "github.com/homeswipe/homeswipe/internal/usecase/health"
	recommenderuc "github.com/homeswipe/homeswipe/internal/usecase/recommender"
	swipesuc "github.com/homeswipe/homeswipe/internal/usecase/swipes"
)

// --- Mocks ---

type mockCatalogRepo struct {
	upsertBatchFn func(ctx context.Context, listings []domain.Listing) (int, error)
	countFn       func(ctx context.Context) (int, error)
}

func (m *mockCatalogRepo) UpsertBatch(ctx context.Context, listings []domain.Listing) (int, error) {
	if m.upsertBatchFn == nil {
		return len(listings), nil
	}
	return m.upsertBatchFn(ctx, listings)
}

func (m *mockCatalogRepo) Count(ctx context.Context) (int, error) {
	if m.countFn == nil {
		return 0, nil
	}
	return m.countFn(ctx)
}

type mockSwipeRepo struct {
	recordFn            func(ctx context.Context, ev domain.SwipeEvent) (domain.SwipeEvent, error)
	byUserFn            func(ctx context.Context, userID string, limit int) ([]domain.SwipeEvent, error)
	byUserActionFn      func(ctx context.Context, userID string, action domain.SwipeAction, limit int) ([]domain.SwipeEvent, error)
	countByUserFn       func(ctx context.Context, userID string) (int, error)
	countByUserActionFn func(ctx context.Context, userID string, action domain.SwipeAction) (int, error)
}

func (m *mockSwipeRepo) Record(ctx context.Context, ev domain.SwipeEvent) (domain.SwipeEvent, error) {
	if m.recordFn == nil {
		ev.ID = "generated-id"
		return ev, nil
	}
	return m.recordFn(ctx, ev)
}

func (m *mockSwipeRepo) ByUser(ctx context.Context, userID string, limit int) ([]domain.SwipeEvent, error) {
	if m.byUserFn == nil {
		return nil, nil
	}
	return m.byUserFn(ctx, userID, limit)
}

func (m *mockSwipeRepo) ByUserAction(ctx context.Context, userID string, action domain.SwipeAction, limit int) ([]domain.SwipeEvent, error) {
	if m.byUserActionFn == nil {
		return nil, nil
	}
	return m.byUserActionFn(ctx, userID, action, limit)
}

func (m *mockSwipeRepo) CountByUser(ctx context.Context, userID string) (int, error) {
	if m.countByUserFn == nil {
		return 0, nil
	}
	return m.countByUserFn(ctx, userID)
}

func (m *mockSwipeRepo) CountByUserAction(ctx context.Context, userID string, action domain.SwipeAction) (int, error) {
	if m.countByUserActionFn == nil {
		return 0, nil
	}
	return m.countByUserActionFn(ctx, userID, action)
}

type mockListingRepo struct {
	fetchByIDsFn func(ctx context.Context, ids []string) ([]domain.Listing, error)
	byCityFn     func(ctx context.Context, city string, limit int) ([]domain.Listing, error)
	sampleFn     func(ctx context.Context, limit int) ([]domain.Listing, error)
}

func (m *mockListingRepo) FetchByIDs(ctx context.Context, ids []string) ([]domain.Listing, error) {
	if m.fetchByIDsFn == nil {
		return nil, nil
	}
	return m.fetchByIDsFn(ctx, ids)
}

func (m *mockListingRepo) ByCity(ctx context.Context, city string, limit int) ([]domain.Listing, error) {
	if m.byCityFn == nil {
		return nil, nil
	}
	return m.byCityFn(ctx, city, limit)
}

func (m *mockListingRepo) Sample(ctx context.Context, limit int) ([]domain.Listing, error) {
	if m.sampleFn == nil {
		return nil, nil
	}
	return m.sampleFn(ctx, limit)
}

type mockPinger struct{ err error }

func (m *mockPinger) Ping(_ context.Context) error { return m.err }

type mockIndexes struct{ err error }

func (m *mockIndexes) IndexesReady(_ context.Context) error { return m.err }

// --- Test server ---

type testServer struct {
	router http.Handler

	catalogRepo *mockCatalogRepo
	swipeRepo   *mockSwipeRepo
	listingRepo *mockListingRepo
	db          *mockPinger
	indexes     *mockIndexes
}

func newTestServer() *testServer {
	ts := &testServer{
		catalogRepo: &mockCatalogRepo{},
		swipeRepo:   &mockSwipeRepo{},
		listingRepo: &mockListingRepo{},
		db:          &mockPinger{},
		indexes:     &mockIndexes{},
	}

	cfg := config.RecommenderConfig{
		MinSwipes:     5,
		SwipeLookback: 20,
		RecentSwipes:  5,
		CityPoolLimit: 200,
		DefaultLimit:  10,
	}

	catalogSvc := cataloguc.New(ts.catalogRepo)
	swipesSvc := swipesuc.New(ts.swipeRepo, ts.listingRepo)
	trainer := recommenderuc.NewTrainer(ts.listingRepo, ts.swipeRepo, cfg.MinSwipes)
	recSvc := recommenderuc.New(ts.listingRepo, ts.swipeRepo, trainer, cfg)
	healthSvc := healthuc.New(ts.db, ts.indexes)

	srv := NewServer(catalogSvc, swipesSvc, recSvc, healthSvc, zap.NewNop())
	r := chi.NewRouter()
	srv.Routes(r)
	ts.router = r
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	ts.router.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decode response body: %v", err)
	}
}

// --- Fixtures ---

func ptr(v float64) *float64 { return &v }

func houseListing(id string) domain.Listing {
	return domain.Listing{
		ID:       id,
		HomeID:   id,
		Price:    ptr(950000),
		Beds:     ptr(5),
		Baths:    ptr(4),
		Area:     ptr(4200),
		HomeType: "SINGLE_FAMILY",
		City:     "Austin",
		Payload:  json.RawMessage(fmt.Sprintf(`{"id":%q,"homeType":"SINGLE_FAMILY"}`, id)),
	}
}

func condoListing(id string) domain.Listing {
	return domain.Listing{
		ID:       id,
		HomeID:   id,
		Price:    ptr(120000),
		Beds:     ptr(1),
		Baths:    ptr(1),
		Area:     ptr(600),
		HomeType: "CONDO",
		City:     "Austin",
		Payload:  json.RawMessage(fmt.Sprintf(`{"id":%q,"homeType":"CONDO"}`, id)),
	}
}

// trainableHistory wires the swipe and listing mocks so a model can train:
// n swipes alternating like-house / dislike-condo, all resolvable.
func (ts *testServer) trainableHistory(n int) {
	swipes := make([]domain.SwipeEvent, n)
	for i := range swipes {
		action, id := domain.ActionLike, fmt.Sprintf("h-%d", i)
		if i%2 == 1 {
			action, id = domain.ActionDislike, fmt.Sprintf("c-%d", i)
		}
		swipes[i] = domain.SwipeEvent{
			ID:        fmt.Sprintf("sw-%d", i),
			UserID:    "u1",
			HomeID:    id,
			Action:    action,
			Timestamp: fmt.Sprintf("2026-08-28T12:%02d:00Z", 59-i),
		}
	}

	ts.swipeRepo.byUserFn = func(_ context.Context, _ string, limit int) ([]domain.SwipeEvent, error) {
		if limit < len(swipes) {
			return swipes[:limit], nil
		}
		return swipes, nil
	}
	ts.swipeRepo.countByUserFn = func(_ context.Context, _ string) (int, error) {
		return len(swipes), nil
	}
	ts.listingRepo.fetchByIDsFn = func(_ context.Context, ids []string) ([]domain.Listing, error) {
		out := make([]domain.Listing, 0, len(ids))
		for _, id := range ids {
			if id[0] == 'h' {
				out = append(out, houseListing(id))
			} else {
				out = append(out, condoListing(id))
			}
		}
		return out, nil
	}
}
