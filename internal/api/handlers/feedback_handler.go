package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aromaiq/recommender-backend/internal/domain/entities"
	"github.com/aromaiq/recommender-backend/internal/domain/providers"
	"github.com/aromaiq/recommender-backend/internal/infrastructure/observability"
	apperrors "github.com/aromaiq/recommender-backend/pkg/errors"
)

const feedbackDedupWindow = 24 * time.Hour

// FeedbackService defines the feedback operations used by the handler.
type FeedbackService interface {
	ProcessFeedback(ctx context.Context, event *entities.FeedbackEvent) (*entities.FeedbackResult, error)
	ProcessBatchFeedback(ctx context.Context, events []*entities.FeedbackEvent) *entities.BatchFeedbackResult
}

// FeedbackHandler handles feedback submissions.
type FeedbackHandler struct {
	service  FeedbackService
	activity providers.ActivityProvider
	cache    providers.CacheProvider
	metrics  *observability.Metrics
}

// NewFeedbackHandler creates a new feedback handler. The cache backs
// idempotency on event IDs; submissions are at-least-once from clients.
func NewFeedbackHandler(service FeedbackService, activity providers.ActivityProvider, cache providers.CacheProvider, metrics *observability.Metrics) *FeedbackHandler {
	return &FeedbackHandler{
		service:  service,
		activity: activity,
		cache:    cache,
		metrics:  metrics,
	}
}

// SubmitFeedback handles POST /api/v1/feedback
func (h *FeedbackHandler) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	var event entities.FeedbackEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	if message, ok := validateEvent(&event); !ok {
		respondWithError(w, http.StatusBadRequest, message)
		return
	}

	var dedupKey string
	if event.ID == "" {
		event.ID = uuid.New().String()
	} else {
		dedupKey = "feedback:dup:" + event.ID
		if h.alreadyProcessed(r.Context(), dedupKey) {
			respondWithJSON(w, http.StatusAccepted, map[string]string{
				"status": "duplicate_ignored",
				"id":     event.ID,
			})
			return
		}
	}

	result, err := h.service.ProcessFeedback(r.Context(), &event)
	if h.metrics != nil {
		observability.RecordFeedback(r.Context(), h.metrics, string(event.Action), err != nil)
	}
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeValidation) {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		respondWithError(w, http.StatusInternalServerError, "failed to process feedback")
		return
	}

	// Marked only after a successful update so a failed event stays
	// retryable under the client's at-least-once delivery.
	h.markProcessed(r.Context(), dedupKey)
	h.recordActivity(r.Context(), event.UserID)

	respondWithJSON(w, http.StatusOK, result)
}

type batchFeedbackRequest struct {
	Events []*entities.FeedbackEvent `json:"events"`
}

// SubmitBatchFeedback handles POST /api/v1/feedback/batch
func (h *FeedbackHandler) SubmitBatchFeedback(w http.ResponseWriter, r *http.Request) {
	var payload batchFeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if len(payload.Events) == 0 {
		respondWithError(w, http.StatusBadRequest, "events is required")
		return
	}

	for _, event := range payload.Events {
		if event.ID == "" {
			event.ID = uuid.New().String()
		}
	}

	result := h.service.ProcessBatchFeedback(r.Context(), payload.Events)
	respondWithJSON(w, http.StatusOK, result)
}

func validateEvent(event *entities.FeedbackEvent) (string, bool) {
	event.UserID = strings.TrimSpace(event.UserID)
	event.ContentID = strings.TrimSpace(event.ContentID)

	if event.UserID == "" {
		return "user_id is required", false
	}
	if event.ContentID == "" {
		return "content_id is required", false
	}
	if !event.Algorithm.IsValid() {
		return "algorithm_used is not a registered algorithm", false
	}
	if !event.Action.IsValid() {
		return "action is not a recognized feedback action", false
	}
	if event.Action == entities.ActionRating && event.ActionValue != nil {
		if *event.ActionValue < 1 || *event.ActionValue > 5 {
			return "action_value must be between 1 and 5", false
		}
	}
	return "", true
}

func (h *FeedbackHandler) alreadyProcessed(ctx context.Context, key string) bool {
	if h.cache == nil {
		return false
	}

	exists, err := h.cache.Exists(ctx, key)
	return err == nil && exists
}

func (h *FeedbackHandler) markProcessed(ctx context.Context, key string) {
	if h.cache == nil || key == "" {
		return
	}
	_ = h.cache.Set(ctx, key, []byte("1"), int(feedbackDedupWindow.Seconds()))
}

func (h *FeedbackHandler) recordActivity(ctx context.Context, userID string) {
	if h.activity == nil {
		return
	}
	if err := h.activity.RecordEvent(ctx, userID); err != nil {
		observability.LoggerFromContext(ctx).Debug().
			Err(err).
			Str("user_id", userID).
			Msg("failed to record activity event")
	}
}
