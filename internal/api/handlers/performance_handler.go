package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/aromaiq/recommender-backend/internal/application/services"
	"github.com/aromaiq/recommender-backend/internal/domain/entities"
)

// PerformanceHandler serves read-side bandit analytics.
type PerformanceHandler struct {
	tracker *services.PerformanceTracker
}

// NewPerformanceHandler creates a new performance handler.
func NewPerformanceHandler(tracker *services.PerformanceTracker) *PerformanceHandler {
	return &PerformanceHandler{tracker: tracker}
}

// GetPerformanceTrend handles GET /api/v1/performance/trend
func (h *PerformanceHandler) GetPerformanceTrend(w http.ResponseWriter, r *http.Request) {
	algorithm := entities.Algorithm(r.URL.Query().Get("algorithm"))
	if !algorithm.IsValid() {
		respondWithError(w, http.StatusBadRequest, "algorithm is not a registered algorithm")
		return
	}

	contextHash := r.URL.Query().Get("context_hash")
	if contextHash == "" {
		respondWithError(w, http.StatusBadRequest, "context_hash is required")
		return
	}

	days := 30
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			respondWithError(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		days = parsed
	}

	trend, err := h.tracker.GetPerformanceTrend(r.Context(), algorithm, days, contextHash)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to compute performance trend")
		return
	}

	respondWithJSON(w, http.StatusOK, trend)
}

// GetAlgorithmAnalysis handles GET /api/v1/users/{id}/analysis
func (h *PerformanceHandler) GetAlgorithmAnalysis(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.PathValue("id"))
	if userID == "" {
		respondWithError(w, http.StatusBadRequest, "user id is required")
		return
	}

	analysis, err := h.tracker.GetAlgorithmAnalysis(r.Context(), userID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to compute algorithm analysis")
		return
	}

	respondWithJSON(w, http.StatusOK, analysis)
}
