// Package catalog ingests provider listings into storage.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/homeswipe/homeswipe/internal/domain"
	"github.com/homeswipe/homeswipe/internal/logger"
)

// Service handles listing ingestion.
type Service struct {
	repo Repository
}

// IngestResult summarizes one ingestion batch.
type IngestResult struct {
	Received int
	Stored   int
	Created  int
	Skipped  int
}

// New creates a catalog service.
func New(repo Repository) *Service {
	return &Service{repo: repo}
}

// Ingest parses and stores a batch of raw provider listings. Listings
// without a usable identity are counted as skipped rather than failing the
// batch.
func (s *Service) Ingest(ctx context.Context, raw []json.RawMessage) (IngestResult, error) {
	res := IngestResult{Received: len(raw)}
	if len(raw) == 0 {
		return res, nil
	}

	parsed := make([]domain.Listing, 0, len(raw))
	for i, payload := range raw {
		l, err := domain.ParseListing(payload)
		if err != nil || l.ID == "" {
			logger.FromContext(ctx).Warn("skipping unusable listing",
				zap.Int("position", i), zap.Error(err))
			res.Skipped++
			continue
		}
		parsed = append(parsed, l)
	}

	created, err := s.repo.UpsertBatch(ctx, parsed)
	if err != nil {
		return res, fmt.Errorf("store listings: %w", err)
	}

	res.Stored = len(parsed)
	res.Created = created
	return res, nil
}

// Count returns the number of stored listings.
func (s *Service) Count(ctx context.Context) (int, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count listings: %w", err)
	}
	return n, nil
}
