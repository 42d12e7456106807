package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aromaiq/recommender-backend/internal/domain/entities"
	apperrors "github.com/aromaiq/recommender-backend/pkg/errors"
)

type stubFeedbackService struct {
	result *entities.FeedbackResult
	err    error

	processed []*entities.FeedbackEvent
	batches   [][]*entities.FeedbackEvent
}

func (s *stubFeedbackService) ProcessFeedback(_ context.Context, event *entities.FeedbackEvent) (*entities.FeedbackResult, error) {
	s.processed = append(s.processed, event)
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func (s *stubFeedbackService) ProcessBatchFeedback(_ context.Context, events []*entities.FeedbackEvent) *entities.BatchFeedbackResult {
	s.batches = append(s.batches, events)
	return &entities.BatchFeedbackResult{Processed: len(events)}
}

type memoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: make(map[string][]byte)}
}

func (c *memoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data[key], nil
}

func (c *memoryCache) Set(_ context.Context, key string, value []byte, _ int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *memoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *memoryCache) Exists(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok, nil
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func validFeedbackPayload() map[string]any {
	return map[string]any{
		"user_id":        "user-1",
		"content_id":     "scent-42",
		"algorithm_used": "hybrid",
		"action":         "click",
	}
}

func TestSubmitFeedback_Success(t *testing.T) {
	service := &stubFeedbackService{result: &entities.FeedbackResult{Processed: true, NewSuccessRate: 0.6}}
	handler := NewFeedbackHandler(service, nil, nil, nil)

	rec := postJSON(t, handler.SubmitFeedback, "/api/v1/feedback", validFeedbackPayload())
	require.Equal(t, http.StatusOK, rec.Code)

	var result entities.FeedbackResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Processed)
	assert.InDelta(t, 0.6, result.NewSuccessRate, 1e-9)

	require.Len(t, service.processed, 1)
	assert.NotEmpty(t, service.processed[0].ID)
}

func TestSubmitFeedback_InvalidJSON(t *testing.T) {
	handler := NewFeedbackHandler(&stubFeedbackService{}, nil, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/feedback", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	handler.SubmitFeedback(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitFeedback_ValidationErrors(t *testing.T) {
	handler := NewFeedbackHandler(&stubFeedbackService{}, nil, nil, nil)

	cases := []struct {
		name   string
		mutate func(map[string]any)
	}{
		{"missing user", func(p map[string]any) { p["user_id"] = "  " }},
		{"missing content", func(p map[string]any) { delete(p, "content_id") }},
		{"bad algorithm", func(p map[string]any) { p["algorithm_used"] = "oracle" }},
		{"bad action", func(p map[string]any) { p["action"] = "hover" }},
		{"rating out of range", func(p map[string]any) {
			p["action"] = "rating"
			p["action_value"] = 9
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			payload := validFeedbackPayload()
			tc.mutate(payload)
			rec := postJSON(t, handler.SubmitFeedback, "/api/v1/feedback", payload)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestSubmitFeedback_DuplicateEventIgnored(t *testing.T) {
	service := &stubFeedbackService{result: &entities.FeedbackResult{Processed: true}}
	handler := NewFeedbackHandler(service, nil, newMemoryCache(), nil)

	payload := validFeedbackPayload()
	payload["id"] = "evt-1"

	rec := postJSON(t, handler.SubmitFeedback, "/api/v1/feedback", payload)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = postJSON(t, handler.SubmitFeedback, "/api/v1/feedback", payload)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), "duplicate_ignored")

	assert.Len(t, service.processed, 1)
}

func TestSubmitFeedback_FailedEventCanBeRetried(t *testing.T) {
	service := &stubFeedbackService{err: apperrors.NewPersistenceError("db down", nil)}
	handler := NewFeedbackHandler(service, nil, newMemoryCache(), nil)

	payload := validFeedbackPayload()
	payload["id"] = "evt-retry"

	rec := postJSON(t, handler.SubmitFeedback, "/api/v1/feedback", payload)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	// The failed event must not be remembered as processed.
	service.err = nil
	service.result = &entities.FeedbackResult{Processed: true}

	rec = postJSON(t, handler.SubmitFeedback, "/api/v1/feedback", payload)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, service.processed, 2)

	// Only now is the event deduplicated.
	rec = postJSON(t, handler.SubmitFeedback, "/api/v1/feedback", payload)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Len(t, service.processed, 2)
}

func TestSubmitFeedback_ServiceValidationErrorMapsTo400(t *testing.T) {
	service := &stubFeedbackService{err: apperrors.NewValidationError("bad event")}
	handler := NewFeedbackHandler(service, nil, nil, nil)

	rec := postJSON(t, handler.SubmitFeedback, "/api/v1/feedback", validFeedbackPayload())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitFeedback_ServicePersistenceErrorMapsTo500(t *testing.T) {
	service := &stubFeedbackService{err: apperrors.NewPersistenceError("db down", nil)}
	handler := NewFeedbackHandler(service, nil, nil, nil)

	rec := postJSON(t, handler.SubmitFeedback, "/api/v1/feedback", validFeedbackPayload())
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestSubmitBatchFeedback_AssignsIDsAndDelegates(t *testing.T) {
	service := &stubFeedbackService{}
	handler := NewFeedbackHandler(service, nil, nil, nil)

	payload := map[string]any{
		"events": []map[string]any{validFeedbackPayload(), validFeedbackPayload()},
	}
	rec := postJSON(t, handler.SubmitBatchFeedback, "/api/v1/feedback/batch", payload)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, service.batches, 1)
	require.Len(t, service.batches[0], 2)
	for _, event := range service.batches[0] {
		assert.NotEmpty(t, event.ID)
	}
}

func TestSubmitBatchFeedback_EmptyBatchRejected(t *testing.T) {
	handler := NewFeedbackHandler(&stubFeedbackService{}, nil, nil, nil)

	rec := postJSON(t, handler.SubmitBatchFeedback, "/api/v1/feedback/batch", map[string]any{"events": []any{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
