// Package swipes manages the user swipe ledger.
package swipes

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/homeswipe/homeswipe/internal/domain"
	"github.com/homeswipe/homeswipe/internal/logger"
)

const (
	// defaultListLimit bounds history reads when the request does not say.
	defaultListLimit = 50

	// Debug seeding: bias toward likes, one minute between generated swipes.
	seedLikeBias = 0.7
	seedSpacing  = time.Minute
)

// Service handles swipe recording and history reads.
type Service struct {
	repo     Repository
	listings ListingSampler
	now      func() time.Time
	seed     func() int64
}

// New creates a swipes service.
func New(repo Repository, listings ListingSampler) *Service {
	return &Service{
		repo:     repo,
		listings: listings,
		now:      time.Now,
		seed:     func() int64 { return time.Now().UnixNano() },
	}
}

// Record validates and appends one swipe.
func (s *Service) Record(ctx context.Context, userID, homeID string, action domain.SwipeAction) (domain.SwipeEvent, error) {
	ev, err := domain.NewSwipeEvent(userID, homeID, action)
	if err != nil {
		return domain.SwipeEvent{}, err
	}

	stored, err := s.repo.Record(ctx, ev)
	if err != nil {
		return domain.SwipeEvent{}, fmt.Errorf("record swipe: %w", err)
	}
	return stored, nil
}

// List returns a user's swipes, most recent first, optionally filtered to one
// action.
func (s *Service) List(ctx context.Context, userID string, action domain.SwipeAction, limit int) ([]domain.SwipeEvent, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	if action != "" {
		if !action.Valid() {
			return nil, fmt.Errorf("%w: action=%q", domain.ErrInvalidSwipe, action)
		}
		out, err := s.repo.ByUserAction(ctx, userID, action, limit)
		if err != nil {
			return nil, fmt.Errorf("list %s swipes: %w", action, err)
		}
		return out, nil
	}

	out, err := s.repo.ByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list swipes: %w", err)
	}
	return out, nil
}

// Count returns a user's total swipe count.
func (s *Service) Count(ctx context.Context, userID string) (int, error) {
	n, err := s.repo.CountByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("count swipes: %w", err)
	}
	return n, nil
}

// DebugSeed generates like-biased swipes over sampled listings so a user can
// be pushed past the training threshold without a client. Timestamps walk
// back one minute per swipe so recency ordering stays meaningful.
func (s *Service) DebugSeed(ctx context.Context, userID string, count int) (int, error) {
	if userID == "" {
		return 0, fmt.Errorf("%w: userId is required", domain.ErrInvalidSwipe)
	}
	if count <= 0 {
		count = 20
	}

	listings, err := s.listings.Sample(ctx, count)
	if err != nil {
		return 0, fmt.Errorf("sample listings: %w", err)
	}
	if len(listings) == 0 {
		return 0, domain.ErrNoCandidates
	}

	rng := rand.New(rand.NewSource(s.seed()))
	base := s.now().UTC()

	var added int
	for i, l := range listings {
		action := domain.ActionDislike
		if rng.Float64() < seedLikeBias {
			action = domain.ActionLike
		}

		ev := domain.SwipeEvent{
			UserID:    userID,
			HomeID:    l.ID,
			Action:    action,
			Timestamp: base.Add(-time.Duration(i) * seedSpacing).Format(time.RFC3339),
		}
		if _, err := s.repo.Record(ctx, ev); err != nil {
			return added, fmt.Errorf("record seeded swipe %d: %w", i, err)
		}
		added++
	}

	logger.FromContext(ctx).Info("seeded debug swipes",
		zap.String("user_id", userID), zap.Int("added", added))
	return added, nil
}
