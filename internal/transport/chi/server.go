// Package chi exposes the HTTP JSON API.
package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/homeswipe/homeswipe/internal/domain"
	cataloguc "github.com/homeswipe/homeswipe/internal/usecase/catalog"
	healthuc "github.com/homeswipe/homeswipe/internal/usecase/health"
	recommenderuc "github.com/homeswipe/homeswipe/internal/usecase/recommender"
	swipesuc "github.com/homeswipe/homeswipe/internal/usecase/swipes"
)

// maxIngestBatch caps one listing ingestion request.
const maxIngestBatch = 500

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server wires the use case services to chi routes.
type Server struct {
	catalog       *cataloguc.Service
	swipes        *swipesuc.Service
	recommender   *recommenderuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	catalog *cataloguc.Service,
	swipes *swipesuc.Service,
	recommender *recommenderuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		catalog:     catalog,
		swipes:      swipes,
		recommender: recommender,
		health:      health,
		logger:      logger,
	}
	s.errorHandlers = []errorHandler{
		insufficientDataHandler,
		sentinelHandler(domain.ErrNoCandidates, http.StatusNotFound, codeNoCandidates),
		sentinelHandler(domain.ErrInvalidSwipe, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrInvalidListing, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, codeNotFound),
	}
	return s
}

// Routes mounts all API routes on the router.
func (s *Server) Routes(r chi.Router) {
	r.Get("/api/health", s.healthCheck)
	r.Get("/metrics", s.metricsHandler)

	r.Post("/api/swipe", s.recordSwipe)
	r.Get("/api/swipe/{userId}", s.listSwipes)

	r.Post("/api/listings", s.ingestListings)

	r.Route("/api/recommender", func(r chi.Router) {
		r.Post("/recommendations", s.recommendations)
		r.Get("/model-stats/{userId}", s.modelStats)
		r.Post("/train", s.train)
		r.Post("/debug-add-swipes", s.debugAddSwipes)
	})
}

// recordSwipe handles POST /api/swipe.
func (s *Server) recordSwipe(w http.ResponseWriter, r *http.Request) {
	var req swipeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if missing := missingFields(map[string]string{
		"userId": req.UserID, "homeId": req.HomeID, "action": req.Action,
	}); missing != "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "Missing required fields: "+missing)
		return
	}

	if _, err := s.swipes.Record(r.Context(), req.UserID, req.HomeID, domain.SwipeAction(req.Action)); err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{Status: "success", Message: "Swipe recorded"})
}

// listSwipes handles GET /api/swipe/{userId}.
func (s *Server) listSwipes(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	action := domain.SwipeAction(r.URL.Query().Get("action"))
	limit := queryInt(r, "limit")

	events, err := s.swipes.List(r.Context(), userID, action, limit)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	total, err := s.swipes.Count(r.Context(), userID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]swipeResponse, len(events))
	for i, ev := range events {
		items[i] = swipeToResponse(ev)
	}

	writeJSON(w, http.StatusOK, swipeListResponse{
		UserID: userID,
		Swipes: items,
		Total:  total,
	})
}

// ingestListings handles POST /api/listings.
func (s *Server) ingestListings(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if len(req.Listings) == 0 || len(req.Listings) > maxIngestBatch {
		writeError(w, http.StatusBadRequest, codeValidationFailed,
			"listings count must be between 1 and "+strconv.Itoa(maxIngestBatch))
		return
	}

	res, err := s.catalog.Ingest(r.Context(), req.Listings)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ingestResponse{
		Received: res.Received,
		Stored:   res.Stored,
		Created:  res.Created,
		Skipped:  res.Skipped,
	})
}

// recommendations handles POST /api/recommender/recommendations.
func (s *Server) recommendations(w http.ResponseWriter, r *http.Request) {
	var req recommendationsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "Missing required fields: userId")
		return
	}

	recs, entry, err := s.recommender.Recommend(r.Context(), req.UserID, req.Limit)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]map[string]any, len(recs))
	for i, rec := range recs {
		items[i] = recommendationToResponse(rec)
	}

	writeJSON(w, http.StatusOK, recommendationsResponse{
		Recommendations: items,
		Meta:            metaBlock{ModelInfo: modelInfoToResponse(entry)},
	})
}

// modelStats handles GET /api/recommender/model-stats/{userId}.
func (s *Server) modelStats(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")

	st, err := s.recommender.ModelStats(r.Context(), userID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	resp := modelStatsResponse{
		Trained:      st.Model != nil,
		SwipeCount:   st.SwipeCount,
		LikeCount:    st.LikeCount,
		DislikeCount: st.DislikeCount,
	}
	if st.Model != nil {
		acc := st.Model.Accuracy
		resp.LastTrainedAt = st.Model.TrainedAt.UTC().Format(time.RFC3339)
		resp.Accuracy = &acc
		resp.FeatureImportance = st.Model.FeatureImportance
		resp.Message = "Model is trained and ready"
	} else if st.SwipeCount < s.recommender.MinSwipes() {
		resp.Message = "Not enough swipes to train a model yet"
	} else {
		resp.Message = "Model has not been trained yet"
	}

	writeJSON(w, http.StatusOK, resp)
}

// train handles POST /api/recommender/train.
func (s *Server) train(w http.ResponseWriter, r *http.Request) {
	var req trainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "Missing required fields: userId")
		return
	}

	entry, err := s.recommender.Retrain(r.Context(), req.UserID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, trainResponse{
		Success:           true,
		Message:           "Model trained successfully",
		SwipeCount:        entry.LastSwipeCount,
		Accuracy:          entry.Accuracy,
		TrainedAt:         entry.TrainedAt.UTC().Format(time.RFC3339),
		FeatureImportance: entry.FeatureImportance,
	})
}

// debugAddSwipes handles POST /api/recommender/debug-add-swipes.
func (s *Server) debugAddSwipes(w http.ResponseWriter, r *http.Request) {
	var req debugAddSwipesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "Missing required fields: userId")
		return
	}

	added, err := s.swipes.DebugSeed(r.Context(), req.UserID, req.Count)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, debugAddSwipesResponse{
		Success: true,
		Message: fmt.Sprintf("Added %d test swipes for user %s", added, req.UserID),
		Added:   added,
	})
}

// healthCheck handles GET /api/health.
func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	writeJSON(w, httpStatus, healthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// metricsHandler handles GET /metrics.
func (s *Server) metricsHandler(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}

// safeDomainMessage returns a sentinel error message for the client without
// exposing internals.
func safeDomainMessage(err error) string {
	var insufficientErr *domain.InsufficientDataError
	if errors.As(err, &insufficientErr) {
		return insufficientErr.Error()
	}

	sentinels := []error{
		domain.ErrNotFound,
		domain.ErrInvalidSwipe,
		domain.ErrInvalidListing,
		domain.ErrInsufficientData,
		domain.ErrNoCandidates,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// insufficientDataHandler reports cold start with the swipe counts so clients
// can show progress toward the training threshold.
func insufficientDataHandler(w http.ResponseWriter, err error, msg string) bool {
	if !errors.Is(err, domain.ErrInsufficientData) {
		return false
	}

	var insufficientErr *domain.InsufficientDataError
	if errors.As(err, &insufficientErr) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"code":          codeInsufficientSwipes,
			"message":       msg,
			"swipeCount":    insufficientErr.SwipeCount,
			"validExamples": insufficientErr.ValidExamples,
		})
		return true
	}
	writeError(w, http.StatusBadRequest, codeInsufficientSwipes, msg)
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

func queryInt(r *http.Request, name string) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}
