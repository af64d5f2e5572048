// Package homeswipe embeds the recommendation engine in-process: the same
// storage, training and ranking stack the HTTP server runs, minus the HTTP.
package homeswipe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/homeswipe/homeswipe/internal/config"
	dbRedis "github.com/homeswipe/homeswipe/internal/db/redis"
	"github.com/homeswipe/homeswipe/internal/domain"
	logpkg "github.com/homeswipe/homeswipe/internal/logger"
	listingrepo "github.com/homeswipe/homeswipe/internal/repository/listing"
	swiperepo "github.com/homeswipe/homeswipe/internal/repository/swipe"
	cataloguc "github.com/homeswipe/homeswipe/internal/usecase/catalog"
	recommenderuc "github.com/homeswipe/homeswipe/internal/usecase/recommender"
	swipesuc "github.com/homeswipe/homeswipe/internal/usecase/swipes"
)

const defaultReadinessTimeout = 10 * time.Second

// Client is the homeswipe SDK entry point.
type Client struct {
	store   *dbRedis.Store
	logger  *zap.Logger
	catalog *cataloguc.Service
	swipes  *swipesuc.Service
	rec     *recommenderuc.Service
}

// New creates a homeswipe Client, connects to the database and ensures the
// search indexes exist.
func New(opts ...Option) (*Client, error) {
	cfg := defaultClientConfig()
	for _, o := range opts {
		o(cfg)
	}

	if len(cfg.addrs) == 0 {
		return nil, errors.New("homeswipe: database address required (use WithRedis)")
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.addrs,
		Password: cfg.password,
	})
	if err != nil {
		return nil, fmt.Errorf("homeswipe: create store: %w", err)
	}

	ctx := context.Background()
	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("homeswipe: database not ready: %w", err)
	}

	return wireClient(ctx, store, cfg)
}

func wireClient(ctx context.Context, store *dbRedis.Store, cfg *clientConfig) (*Client, error) {
	listingRepo := listingrepo.New(store, cfg.keyPrefix)
	swipeRepo := swiperepo.New(store, cfg.keyPrefix)

	if err := listingRepo.EnsureIndex(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("homeswipe: create listing index: %w", err)
	}
	if err := swipeRepo.EnsureIndex(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("homeswipe: create swipe index: %w", err)
	}

	trainer := recommenderuc.NewTrainer(listingRepo, swipeRepo, cfg.recommender.MinSwipes)

	return &Client{
		store:   store,
		logger:  cfg.logger,
		catalog: cataloguc.New(listingRepo),
		swipes:  swipesuc.New(swipeRepo, listingRepo),
		rec:     recommenderuc.New(listingRepo, swipeRepo, trainer, cfg.recommender),
	}, nil
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// IngestListings parses and stores raw provider listings. Listings without a
// usable identity are skipped, not failed.
func (c *Client) IngestListings(ctx context.Context, payloads []json.RawMessage) (IngestSummary, error) {
	res, err := c.catalog.Ingest(c.ctx(ctx), payloads)
	if err != nil {
		return IngestSummary{}, err
	}
	return IngestSummary{
		Received: res.Received,
		Stored:   res.Stored,
		Created:  res.Created,
		Skipped:  res.Skipped,
	}, nil
}

// ListingCount returns the number of stored listings.
func (c *Client) ListingCount(ctx context.Context) (int, error) {
	return c.catalog.Count(c.ctx(ctx))
}

// RecordSwipe appends one like/dislike judgment to the user's ledger.
func (c *Client) RecordSwipe(ctx context.Context, userID, homeID, action string) (SwipeRecord, error) {
	ev, err := c.swipes.Record(c.ctx(ctx), userID, homeID, domain.SwipeAction(action))
	if err != nil {
		return SwipeRecord{}, err
	}
	return swipeRecord(ev), nil
}

// SwipeHistory returns a user's swipes, most recent first. action filters to
// "like" or "dislike" when non-empty.
func (c *Client) SwipeHistory(ctx context.Context, userID, action string, limit int) ([]SwipeRecord, error) {
	events, err := c.swipes.List(c.ctx(ctx), userID, domain.SwipeAction(action), limit)
	if err != nil {
		return nil, err
	}
	out := make([]SwipeRecord, len(events))
	for i, ev := range events {
		out[i] = swipeRecord(ev)
	}
	return out, nil
}

// Recommend scores unseen listings against the user's preference model and
// returns the top matches. Trains first when no model is cached; a cold-start
// user yields an insufficient-data error.
func (c *Client) Recommend(ctx context.Context, userID string, limit int) ([]Recommendation, *ModelInfo, error) {
	recs, entry, err := c.rec.Recommend(c.ctx(ctx), userID, limit)
	if err != nil {
		return nil, nil, err
	}
	out := make([]Recommendation, len(recs))
	for i, r := range recs {
		out[i] = recommendation(r)
	}
	return out, modelInfo(entry), nil
}

// Train forces a fresh model for the user, replacing any cached one.
func (c *Client) Train(ctx context.Context, userID string) (*ModelInfo, error) {
	entry, err := c.rec.Retrain(c.ctx(ctx), userID)
	if err != nil {
		return nil, err
	}
	return modelInfo(entry), nil
}

// ModelStats reports the user's swipe counts and cached model without
// triggering training.
func (c *Client) ModelStats(ctx context.Context, userID string) (UserStats, error) {
	st, err := c.rec.ModelStats(c.ctx(ctx), userID)
	if err != nil {
		return UserStats{}, err
	}
	return UserStats{
		SwipeCount:   st.SwipeCount,
		LikeCount:    st.LikeCount,
		DislikeCount: st.DislikeCount,
		Model:        modelInfo(st.Model),
	}, nil
}

// ctx attaches the configured logger so internal services log through it.
func (c *Client) ctx(ctx context.Context) context.Context {
	if c.logger == nil {
		return ctx
	}
	return logpkg.ContextWithLogger(ctx, c.logger)
}

// defaultClientConfig mirrors the server-side config defaults.
func defaultClientConfig() *clientConfig {
	var full config.Config
	full.ApplyDefaults()
	return &clientConfig{
		keyPrefix:   full.Storage.KeyPrefix,
		recommender: full.Recommender,
	}
}
