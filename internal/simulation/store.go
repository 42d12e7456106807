package simulation

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aromaiq/recommender-backend/internal/domain/entities"
	apperrors "github.com/aromaiq/recommender-backend/pkg/errors"
)

// MemoryStore is an in-process bandit store for offline simulation runs.
// It implements the same additive-update contract as the Postgres adapter.
type MemoryStore struct {
	mu     sync.Mutex
	states map[string]*entities.AlgorithmState
	events []*entities.FeedbackEvent
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		states: make(map[string]*entities.AlgorithmState),
	}
}

func stateKey(userID string, algorithm entities.Algorithm, contextHash string) string {
	return userID + "|" + string(algorithm) + "|" + contextHash
}

// GetStates returns all algorithm states for a (user, context) pair.
func (m *MemoryStore) GetStates(_ context.Context, userID, contextHash string) ([]*entities.AlgorithmState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var states []*entities.AlgorithmState
	for _, algorithm := range entities.AlgorithmRegistry() {
		if state, ok := m.states[stateKey(userID, algorithm, contextHash)]; ok {
			copied := *state
			states = append(states, &copied)
		}
	}
	return states, nil
}

// GetUserStates returns every state row for a user.
func (m *MemoryStore) GetUserStates(_ context.Context, userID string) ([]*entities.AlgorithmState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var states []*entities.AlgorithmState
	for _, state := range m.states {
		if state.UserID == userID {
			copied := *state
			states = append(states, &copied)
		}
	}
	return states, nil
}

// InitializeStates creates default-prior rows, leaving existing ones alone.
func (m *MemoryStore) InitializeStates(_ context.Context, userID, contextHash string, registry []entities.Algorithm) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, algorithm := range registry {
		key := stateKey(userID, algorithm, contextHash)
		if _, ok := m.states[key]; ok {
			continue
		}
		state := entities.NewDefaultState(userID, algorithm, contextHash)
		state.ID = uuid.New().String()
		m.states[key] = state
	}
	return nil
}

// IncrementSelection bumps total_selections for one arm.
func (m *MemoryStore) IncrementSelection(_ context.Context, userID string, algorithm entities.Algorithm, contextHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.states[stateKey(userID, algorithm, contextHash)]
	if !ok {
		return apperrors.NewUninitializedError("no bandit state for arm " + string(algorithm))
	}
	state.TotalSelections++
	state.LastUpdated = time.Now().UTC()
	return nil
}

// ApplyReward applies alpha += reward, beta += 1-reward.
func (m *MemoryStore) ApplyReward(_ context.Context, userID string, algorithm entities.Algorithm, contextHash string, reward float64) (*entities.AlgorithmState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.states[stateKey(userID, algorithm, contextHash)]
	if !ok {
		return nil, apperrors.NewUninitializedError("no bandit state for arm " + string(algorithm))
	}
	state.Alpha += reward
	state.Beta += 1 - reward
	state.TotalRewards += reward
	state.LastUpdated = time.Now().UTC()

	copied := *state
	return &copied, nil
}

// ApplyRewardBonus shifts delayed-bonus mass from beta to alpha.
func (m *MemoryStore) ApplyRewardBonus(_ context.Context, userID string, algorithm entities.Algorithm, contextHash string, bonus float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.states[stateKey(userID, algorithm, contextHash)]
	if !ok {
		return apperrors.NewUninitializedError("no bandit state for arm " + string(algorithm))
	}
	state.Alpha += bonus
	state.Beta -= bonus
	state.TotalRewards += bonus
	state.LastUpdated = time.Now().UTC()
	return nil
}

// Append stores the event. Duplicate IDs are ignored.
func (m *MemoryStore) Append(_ context.Context, event *entities.FeedbackEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	for _, existing := range m.events {
		if existing.ID == event.ID {
			return nil
		}
	}

	copied := *event
	m.events = append(m.events, &copied)
	return nil
}

// ListRecentByContent returns a user's events for one content item since
// the given time.
func (m *MemoryStore) ListRecentByContent(_ context.Context, userID, contentID string, since time.Time) ([]*entities.FeedbackEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var events []*entities.FeedbackEvent
	for _, event := range m.events {
		if event.UserID == userID && event.ContentID == contentID && !event.CreatedAt.Before(since) {
			copied := *event
			events = append(events, &copied)
		}
	}
	return events, nil
}

// ListPendingReevaluations returns events created before the cutoff without
// a re-evaluation stamp.
func (m *MemoryStore) ListPendingReevaluations(_ context.Context, before time.Time, limit int) ([]*entities.FeedbackEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var events []*entities.FeedbackEvent
	for _, event := range m.events {
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

// MarkReevaluated stamps an event.
func (m *MemoryStore) MarkReevaluated(_ context.Context, eventID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, event := range m.events {
		if event.ID == eventID {
			now := time.Now().UTC()
			event.ReevaluatedAt = &now
			return nil
		}
	}
	return apperrors.NewNotFoundError("feedback event " + eventID)
}
