package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/aromaiq/recommender-backend/internal/application/services"
	"github.com/aromaiq/recommender-backend/internal/domain/entities"
	"github.com/aromaiq/recommender-backend/internal/infrastructure/observability"
)

// SelectionHandler serves algorithm selection requests.
type SelectionHandler struct {
	selector *services.ContextualSelector
	metrics  *observability.Metrics
}

// NewSelectionHandler creates a new selection handler.
func NewSelectionHandler(selector *services.ContextualSelector, metrics *observability.Metrics) *SelectionHandler {
	return &SelectionHandler{
		selector: selector,
		metrics:  metrics,
	}
}

type selectionRequest struct {
	UserID  string                     `json:"user_id"`
	Context entities.ContextualFactors `json:"context"`
}

// SelectAlgorithm handles POST /api/v1/selections
func (h *SelectionHandler) SelectAlgorithm(w http.ResponseWriter, r *http.Request) {
	var payload selectionRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	payload.UserID = strings.TrimSpace(payload.UserID)
	if payload.UserID == "" {
		respondWithError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	selection, err := h.selector.SelectAlgorithmWithContext(r.Context(), payload.UserID, payload.Context)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to select algorithm")
		return
	}

	if h.metrics != nil {
		observability.RecordSelection(r.Context(), h.metrics,
			string(selection.Algorithm), selection.IsExploration, selection.IsFallback)
		if !selection.IsFallback {
			observability.RecordSamplingDuration(r.Context(), h.metrics,
				string(selection.Algorithm), selection.SamplingDuration)
		}
	}

	respondWithJSON(w, http.StatusOK, selection)
}

// Helper functions
func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{
		"error": message,
	})
}
