package chi

import (
	"encoding/json"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/homeswipe/homeswipe/internal/domain"
	recommenderuc "github.com/homeswipe/homeswipe/internal/usecase/recommender"
)

// Error codes returned to clients.
const (
	codeBadRequest         = "bad_request"
	codeValidationFailed   = "validation_failed"
	codeInsufficientSwipes = "insufficient_swipes"
	codeNoCandidates       = "no_candidates"
	codeNotFound           = "not_found"
	codeInternalError      = "internal_error"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type swipeRequest struct {
	UserID string `json:"userId"`
	HomeID string `json:"homeId"`
	Action string `json:"action"`
}

type swipeResponse struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	HomeID    string `json:"homeId"`
	Action    string `json:"action"`
	Timestamp string `json:"timestamp"`
}

type swipeListResponse struct {
	UserID string          `json:"userId"`
	Swipes []swipeResponse `json:"swipes"`
	Total  int             `json:"total"`
}

type ingestRequest struct {
	Listings []json.RawMessage `json:"listings"`
}

type ingestResponse struct {
	Received int `json:"received"`
	Stored   int `json:"stored"`
	Created  int `json:"created"`
	Skipped  int `json:"skipped"`
}

type recommendationsRequest struct {
	UserID string `json:"userId"`
	Limit  int    `json:"limit,omitempty"`
}

type recommendationsResponse struct {
	Recommendations []map[string]any `json:"recommendations"`
	Meta            metaBlock        `json:"meta"`
}

type metaBlock struct {
	ModelInfo modelInfoResponse `json:"modelInfo"`
}

type modelInfoResponse struct {
	Trained          string  `json:"trained"`
	TrainingExamples int     `json:"trainingExamples"`
	Features         int     `json:"features"`
	Accuracy         float64 `json:"accuracy"`
}

type modelStatsResponse struct {
	Trained           bool               `json:"trained"`
	SwipeCount        int                `json:"swipeCount"`
	LikeCount         int                `json:"likeCount"`
	DislikeCount      int                `json:"dislikeCount"`
	LastTrainedAt     string             `json:"lastTrainedAt,omitempty"`
	Accuracy          *float64           `json:"accuracy,omitempty"`
	FeatureImportance map[string]float64 `json:"featureImportance,omitempty"`
	Message           string             `json:"message"`
}

type trainRequest struct {
	UserID string `json:"userId"`
}

type trainResponse struct {
	Success           bool               `json:"success"`
	Message           string             `json:"message"`
	SwipeCount        int                `json:"swipeCount"`
	Accuracy          float64            `json:"accuracy"`
	TrainedAt         string             `json:"trainedAt"`
	FeatureImportance map[string]float64 `json:"featureImportance"`
}

type debugAddSwipesRequest struct {
	UserID string `json:"userId"`
	Count  int    `json:"count,omitempty"`
}

type debugAddSwipesResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Added   int    `json:"added"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func swipeToResponse(ev domain.SwipeEvent) swipeResponse {
	return swipeResponse{
		ID:        ev.ID,
		UserID:    ev.UserID,
		HomeID:    ev.HomeID,
		Action:    string(ev.Action),
		Timestamp: ev.Timestamp,
	}
}

// recommendationToResponse flattens the stored provider payload and attaches
// the model's score and confidence alongside the listing's own fields.
func recommendationToResponse(rec recommenderuc.Recommendation) map[string]any {
	item := make(map[string]any)
	if len(rec.Listing.Payload) > 0 {
		if err := json.Unmarshal(rec.Listing.Payload, &item); err != nil {
			item = make(map[string]any)
		}
	}
	if _, ok := item["id"]; !ok && rec.Listing.ID != "" {
		item["id"] = rec.Listing.ID
	}
	item["score"] = rec.Score
	item["confidence"] = rec.Confidence
	return item
}

func modelInfoToResponse(entry *domain.ModelEntry) modelInfoResponse {
	if entry == nil {
		return modelInfoResponse{}
	}
	return modelInfoResponse{
		Trained:          entry.TrainedAt.UTC().Format(time.RFC3339),
		TrainingExamples: entry.TrainingExamples,
		Features:         entry.InputShape,
		Accuracy:         round2(entry.Accuracy),
	}
}

// missingFields lists the names of empty fields, sorted for stable output.
func missingFields(fields map[string]string) string {
	var missing []string
	for name, value := range fields {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return strings.Join(missing, ", ")
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
