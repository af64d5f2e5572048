package recommender

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/homeswipe/homeswipe/internal/config"
	"github.com/homeswipe/homeswipe/internal/domain"
	"github.com/homeswipe/homeswipe/internal/logger"
	"github.com/homeswipe/homeswipe/internal/metrics"
)

// Service serves personalized recommendations backed by a lazy per-user
// model cache.
type Service struct {
	listings ListingRepository
	swipes   SwipeRepository
	trainer  *Trainer
	cache    *ModelCache
	cfg      config.RecommenderConfig

	// training collapses concurrent training requests per user.
	training singleflight.Group
}

// Stats describes a user's model state for the stats endpoint.
type Stats struct {
	SwipeCount   int
	LikeCount    int
	DislikeCount int
	Model        *domain.ModelEntry // nil when no model is cached
}

// New creates a recommendation service.
func New(listings ListingRepository, swipes SwipeRepository, trainer *Trainer, cfg config.RecommenderConfig) *Service {
	return &Service{
		listings: listings,
		swipes:   swipes,
		trainer:  trainer,
		cache:    NewModelCache(),
		cfg:      cfg,
	}
}

// Recommend returns the top listings for a user, training a model first when
// none is cached. The candidate pool is drawn from the cities of the user's
// most recent swipes; those recently swiped homes are excluded from the
// results.
func (s *Service) Recommend(ctx context.Context, userID string, limit int) ([]Recommendation, *domain.ModelEntry, error) {
	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}

	entry, err := s.model(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	recent, err := s.swipes.ByUser(ctx, userID, s.cfg.SwipeLookback)
	if err != nil {
		return nil, nil, fmt.Errorf("load recent swipes: %w", err)
	}
	if len(recent) > s.cfg.RecentSwipes {
		recent = recent[:s.cfg.RecentSwipes]
	}

	candidates, pool, err := s.candidatePool(ctx, recent)
	if err != nil {
		return nil, nil, err
	}

	exclude := make(map[string]struct{}, len(recent))
	for _, sw := range recent {
		exclude[sw.HomeID] = struct{}{}
	}

	recs := rank(entry.Model, candidates, exclude, limit)
	if len(recs) == 0 {
		return nil, nil, domain.ErrNoCandidates
	}

	metrics.RecommendationsTotal.WithLabelValues(pool).Inc()
	logger.FromContext(ctx).Debug("served recommendations",
		zap.String("user_id", userID),
		zap.String("pool", pool),
		zap.Int("candidates", len(candidates)),
		zap.Int("returned", len(recs)),
	)

	return recs, entry, nil
}

// MinSwipes reports the cold-start threshold.
func (s *Service) MinSwipes() int {
	return s.trainer.minSwipes
}

// Retrain drops any cached model and trains a fresh one.
func (s *Service) Retrain(ctx context.Context, userID string) (*domain.ModelEntry, error) {
	return s.trainLocked(ctx, userID)
}

// ModelStats reports swipe counts and the cached model, if one exists. It
// never trains.
func (s *Service) ModelStats(ctx context.Context, userID string) (Stats, error) {
	count, err := s.swipes.CountByUser(ctx, userID)
	if err != nil {
		return Stats{}, fmt.Errorf("count swipes: %w", err)
	}
	likes, err := s.swipes.CountByUserAction(ctx, userID, domain.ActionLike)
	if err != nil {
		return Stats{}, fmt.Errorf("count likes: %w", err)
	}

	st := Stats{
		SwipeCount:   count,
		LikeCount:    likes,
		DislikeCount: count - likes,
	}
	if entry, ok := s.cache.Get(userID); ok {
		st.Model = entry
	}
	return st, nil
}

// model returns the cached model if one exists, otherwise trains lazily. A
// cached model stays valid even as new swipes accrue: retraining happens only
// through Retrain, so serving latency stays predictable.
func (s *Service) model(ctx context.Context, userID string) (*domain.ModelEntry, error) {
	if entry, ok := s.cache.Get(userID); ok {
		return entry, nil
	}
	return s.trainLocked(ctx, userID)
}

// trainLocked trains through singleflight so concurrent requests for one
// user share a single run.
func (s *Service) trainLocked(ctx context.Context, userID string) (*domain.ModelEntry, error) {
	v, err, _ := s.training.Do(userID, func() (any, error) {
		entry, err := s.trainer.Train(ctx, userID)
		if err != nil {
			return nil, err
		}
		s.cache.Put(userID, entry)
		return entry, nil
	})
	if err != nil {
		return nil, fmt.Errorf("train model for %q: %w", userID, err)
	}
	return v.(*domain.ModelEntry), nil
}

// candidatePool collects listings from the cities of the recent swipes. Only
// a user with no determinable city gets the unfiltered sample; a failing city
// query is fatal for the request.
func (s *Service) candidatePool(ctx context.Context, recent []domain.SwipeEvent) ([]domain.Listing, string, error) {
	cities, err := s.recentCities(ctx, recent)
	if err != nil {
		return nil, "", err
	}

	if len(cities) == 0 {
		sample, err := s.listings.Sample(ctx, s.cfg.CityPoolLimit)
		if err != nil {
			return nil, "", fmt.Errorf("sample listings: %w", err)
		}
		return sample, "fallback", nil
	}

	var combined []domain.Listing
	for _, city := range cities {
		batch, err := s.listings.ByCity(ctx, city, s.cfg.CityPoolLimit)
		if err != nil {
			return nil, "", fmt.Errorf("city pool %q: %w", city, err)
		}
		combined = append(combined, batch...)
	}
	return dedupeListings(combined), "city", nil
}

// recentCities resolves the recently swiped listings and returns their
// distinct, non-empty cities.
func (s *Service) recentCities(ctx context.Context, recent []domain.SwipeEvent) ([]string, error) {
	if len(recent) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(recent))
	for _, sw := range recent {
		ids = append(ids, sw.HomeID)
	}

	listings, err := s.listings.FetchByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve recent listings: %w", err)
	}

	seen := make(map[string]struct{}, len(listings))
	var cities []string
	for _, l := range listings {
		if l.City == "" {
			continue
		}
		if _, ok := seen[l.City]; ok {
			continue
		}
		seen[l.City] = struct{}{}
		cities = append(cities, l.City)
	}
	return cities, nil
}
