package homeswipe

import (
	"encoding/json"
	"time"

	"github.com/homeswipe/homeswipe/internal/domain"
	recommenderuc "github.com/homeswipe/homeswipe/internal/usecase/recommender"
)

// SwipeRecord is one entry in a user's swipe ledger.
type SwipeRecord struct {
	ID        string
	UserID    string
	HomeID    string
	Action    string
	Timestamp string
}

// IngestSummary reports the outcome of one listing ingestion batch.
type IngestSummary struct {
	Received int
	Stored   int
	Created  int
	Skipped  int
}

// Recommendation pairs a listing payload with its model score. Listing is the
// provider JSON exactly as it was ingested.
type Recommendation struct {
	Listing    json.RawMessage
	Score      float64
	Confidence float64
}

// ModelInfo describes a trained per-user model.
type ModelInfo struct {
	TrainedAt         time.Time
	Accuracy          float64
	Loss              float64
	InputShape        int
	SwipeCount        int
	TrainingExamples  int
	FeatureImportance map[string]float64
}

// UserStats reports a user's ledger counts and cached model, if any.
type UserStats struct {
	SwipeCount   int
	LikeCount    int
	DislikeCount int
	Model        *ModelInfo // nil when nothing is cached
}

func swipeRecord(ev domain.SwipeEvent) SwipeRecord {
	return SwipeRecord{
		ID:        ev.ID,
		UserID:    ev.UserID,
		HomeID:    ev.HomeID,
		Action:    string(ev.Action),
		Timestamp: ev.Timestamp,
	}
}

func recommendation(r recommenderuc.Recommendation) Recommendation {
	return Recommendation{
		Listing:    r.Listing.Payload,
		Score:      r.Score,
		Confidence: r.Confidence,
	}
}

func modelInfo(entry *domain.ModelEntry) *ModelInfo {
	if entry == nil {
		return nil
	}
	return &ModelInfo{
		TrainedAt:         entry.TrainedAt,
		Accuracy:          entry.Accuracy,
		Loss:              entry.Loss,
		InputShape:        entry.InputShape,
		SwipeCount:        entry.LastSwipeCount,
		TrainingExamples:  entry.TrainingExamples,
		FeatureImportance: entry.FeatureImportance,
	}
}
