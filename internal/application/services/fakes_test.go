package services

import (
	"context"
	"sync"
	"time"

	"github.com/aromaiq/recommender-backend/internal/domain/entities"
	apperrors "github.com/aromaiq/recommender-backend/pkg/errors"
)

// fakeStateStore is an in-memory BanditStateRepository with per-operation
// error injection for failure-path tests.
type fakeStateStore struct {
	mu     sync.Mutex
	states map[string]*entities.AlgorithmState

	failGet       error
	failInit      error
	failIncrement error
	failApply     error
	failBonus     error

	incrementCalls int
	applyCalls     int
}

func newFakeStateStore() *fakeStateStore {
	return &fakeStateStore{states: make(map[string]*entities.AlgorithmState)}
}

func fakeKey(userID string, algorithm entities.Algorithm, contextHash string) string {
	return userID + "|" + string(algorithm) + "|" + contextHash
}

func (f *fakeStateStore) GetStates(_ context.Context, userID, contextHash string) ([]*entities.AlgorithmState, error) {
	if f.failGet != nil {
		return nil, f.failGet
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	var states []*entities.AlgorithmState
	for _, algorithm := range entities.AlgorithmRegistry() {
		if state, ok := f.states[fakeKey(userID, algorithm, contextHash)]; ok {
			copied := *state
			states = append(states, &copied)
		}
	}
	return states, nil
}

func (f *fakeStateStore) GetUserStates(_ context.Context, userID string) ([]*entities.AlgorithmState, error) {
	if f.failGet != nil {
		return nil, f.failGet
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	var states []*entities.AlgorithmState
	for _, state := range f.states {
		if state.UserID == userID {
			copied := *state
			states = append(states, &copied)
		}
	}
	return states, nil
}

func (f *fakeStateStore) InitializeStates(_ context.Context, userID, contextHash string, registry []entities.Algorithm) error {
	if f.failInit != nil {
		return f.failInit
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	for _, algorithm := range registry {
		key := fakeKey(userID, algorithm, contextHash)
		if _, ok := f.states[key]; ok {
			continue
		}
		f.states[key] = entities.NewDefaultState(userID, algorithm, contextHash)
	}
	return nil
}

func (f *fakeStateStore) IncrementSelection(_ context.Context, userID string, algorithm entities.Algorithm, contextHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.incrementCalls++
	if f.failIncrement != nil {
		return f.failIncrement
	}

	state, ok := f.states[fakeKey(userID, algorithm, contextHash)]
	if !ok {
		return apperrors.NewUninitializedError("no state for " + string(algorithm))
	}
	state.TotalSelections++
	return nil
}

func (f *fakeStateStore) ApplyReward(_ context.Context, userID string, algorithm entities.Algorithm, contextHash string, reward float64) (*entities.AlgorithmState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.applyCalls++
	if f.failApply != nil {
		return nil, f.failApply
	}

	state, ok := f.states[fakeKey(userID, algorithm, contextHash)]
	if !ok {
		return nil, apperrors.NewUninitializedError("no state for " + string(algorithm))
	}
	state.Alpha += reward
	state.Beta += 1 - reward
	state.TotalRewards += reward

	copied := *state
	return &copied, nil
}

func (f *fakeStateStore) ApplyRewardBonus(_ context.Context, userID string, algorithm entities.Algorithm, contextHash string, bonus float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failBonus != nil {
		return f.failBonus
	}

	state, ok := f.states[fakeKey(userID, algorithm, contextHash)]
	if !ok {
		return apperrors.NewUninitializedError("no state for " + string(algorithm))
	}
	state.Alpha += bonus
	state.Beta -= bonus
	state.TotalRewards += bonus
	return nil
}

func (f *fakeStateStore) get(userID string, algorithm entities.Algorithm, contextHash string) *entities.AlgorithmState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.states[fakeKey(userID, algorithm, contextHash)]
}

func (f *fakeStateStore) seed(state *entities.AlgorithmState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states[fakeKey(state.UserID, state.Algorithm, state.ContextHash)] = state
}

// fakeFeedbackLog is an in-memory FeedbackLogRepository.
type fakeFeedbackLog struct {
	mu     sync.Mutex
	events []*entities.FeedbackEvent

	failAppend error
}

func (f *fakeFeedbackLog) Append(_ context.Context, event *entities.FeedbackEvent) error {
	if f.failAppend != nil {
		return f.failAppend
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	for _, existing := range f.events {
		if existing.ID == event.ID {
			return nil
		}
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	copied := *event
	f.events = append(f.events, &copied)
	return nil
}

func (f *fakeFeedbackLog) ListRecentByContent(_ context.Context, userID, contentID string, since time.Time) ([]*entities.FeedbackEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var events []*entities.FeedbackEvent
	for _, event := range f.events {
		if event.UserID == userID && event.ContentID == contentID && !event.CreatedAt.Before(since) {
			copied := *event
			events = append(events, &copied)
		}
	}
	return events, nil
}

func (f *fakeFeedbackLog) ListPendingReevaluations(_ context.Context, before time.Time, limit int) ([]*entities.FeedbackEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var events []*entities.FeedbackEvent
	for _, event := range f.events {
		if event.ReevaluatedAt == nil && !event.CreatedAt.After(before) {
			copied := *event
			events = append(events, &copied)
			if limit > 0 && len(events) >= limit {
				break
			}
		}
	}
	return events, nil
}

func (f *fakeFeedbackLog) MarkReevaluated(_ context.Context, eventID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, event := range f.events {
		if event.ID == eventID {
			now := time.Now().UTC()
			event.ReevaluatedAt = &now
			return nil
		}
	}
	return apperrors.NewNotFoundError("event " + eventID)
}

// fakeMetricsStore is an in-memory MetricsRepository.
type fakeMetricsStore struct {
	snapshots []*entities.PerformanceSnapshot
	failGet   error
}

func (f *fakeMetricsStore) GetHistoricalMetrics(_ context.Context, algorithm entities.Algorithm, contextHash string, _ int) ([]*entities.PerformanceSnapshot, error) {
	if f.failGet != nil {
		return nil, f.failGet
	}

	var snapshots []*entities.PerformanceSnapshot
	for _, snapshot := range f.snapshots {
		if snapshot.Algorithm == algorithm && snapshot.ContextHash == contextHash {
			snapshots = append(snapshots, snapshot)
		}
	}
	return snapshots, nil
}

func (f *fakeMetricsStore) RecordSnapshot(_ context.Context, snapshot *entities.PerformanceSnapshot) error {
	f.snapshots = append(f.snapshots, snapshot)
	return nil
}

// fakeActivityProvider returns a fixed velocity.
type fakeActivityProvider struct {
	velocity float64
	err      error
	recorded []string
}

func (f *fakeActivityProvider) RecordEvent(_ context.Context, userID string) error {
	f.recorded = append(f.recorded, userID)
	return nil
}

func (f *fakeActivityProvider) InteractionVelocity(_ context.Context, _ string) (float64, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.velocity, nil
}
