package services

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aromaiq/recommender-backend/internal/domain/entities"
	"github.com/aromaiq/recommender-backend/pkg/betadist"
	"github.com/aromaiq/recommender-backend/pkg/contexthash"
	apperrors "github.com/aromaiq/recommender-backend/pkg/errors"
)

func newTestSelector(store *fakeStateStore, seed int64, cfg ThompsonSelectorConfig) *ThompsonSelector {
	sampler := betadist.New(rand.New(rand.NewSource(seed)))
	return NewThompsonSelector(store, sampler, cfg)
}

func seedState(store *fakeStateStore, userID string, algorithm entities.Algorithm, hash string, alpha, beta float64, selections int) {
	state := entities.NewDefaultState(userID, algorithm, hash)
	state.Alpha = alpha
	state.Beta = beta
	state.TotalSelections = selections
	store.seed(state)
}

func TestSelectAlgorithm_ColdStartInitializesAllArms(t *testing.T) {
	store := newFakeStateStore()
	selector := newTestSelector(store, 1, DefaultThompsonSelectorConfig())

	selection, err := selector.SelectAlgorithm(context.Background(), "user-1", entities.ContextualFactors{})
	require.NoError(t, err)

	assert.True(t, selection.Algorithm.IsValid())
	assert.True(t, selection.IsExploration)
	assert.False(t, selection.IsFallback)
	assert.Greater(t, selection.SamplingDuration, time.Duration(0))

	hash := contexthash.Hash(entities.ContextualFactors{})
	assert.Equal(t, hash, selection.ContextHash)
	for _, algorithm := range entities.AlgorithmRegistry() {
		require.NotNil(t, store.get("user-1", algorithm, hash), "missing state for %s", algorithm)
	}
}

func TestSelectAlgorithm_IncrementsChosenArm(t *testing.T) {
	store := newFakeStateStore()
	selector := newTestSelector(store, 2, DefaultThompsonSelectorConfig())

	selection, err := selector.SelectAlgorithm(context.Background(), "user-1", entities.ContextualFactors{})
	require.NoError(t, err)

	hash := contexthash.Hash(entities.ContextualFactors{})
	chosen := store.get("user-1", selection.Algorithm, hash)
	require.NotNil(t, chosen)
	assert.Equal(t, 1, chosen.TotalSelections)
	assert.Equal(t, 1, store.incrementCalls)
}

func TestSelectAlgorithm_ExploitsDominantArm(t *testing.T) {
	store := newFakeStateStore()
	hash := contexthash.Hash(entities.ContextualFactors{})

	for _, algorithm := range entities.AlgorithmRegistry() {
		if algorithm == entities.AlgorithmHybrid {
			seedState(store, "user-1", algorithm, hash, 80, 2, 100)
			continue
		}
		seedState(store, "user-1", algorithm, hash, 2, 80, 100)
	}

	selector := newTestSelector(store, 3, DefaultThompsonSelectorConfig())

	wins := 0
	const rounds = 50
	for i := 0; i < rounds; i++ {
		selection, err := selector.SelectAlgorithm(context.Background(), "user-1", entities.ContextualFactors{})
		require.NoError(t, err)
		if selection.Algorithm == entities.AlgorithmHybrid {
			wins++
		}
	}

	assert.Greater(t, wins, rounds*9/10)
}

func TestSelectAlgorithm_ExploresEveryArmEarly(t *testing.T) {
	store := newFakeStateStore()
	selector := newTestSelector(store, 4, DefaultThompsonSelectorConfig())

	picked := make(map[entities.Algorithm]bool)
	for i := 0; i < 120; i++ {
		selection, err := selector.SelectAlgorithm(context.Background(), "user-1", entities.ContextualFactors{})
		require.NoError(t, err)
		picked[selection.Algorithm] = true
	}

	for _, algorithm := range entities.AlgorithmRegistry() {
		assert.True(t, picked[algorithm], "arm %s never explored", algorithm)
	}
}

func TestSelectAlgorithm_ExploitationFlagClearsAfterMinimum(t *testing.T) {
	store := newFakeStateStore()
	hash := contexthash.Hash(entities.ContextualFactors{})

	for _, algorithm := range entities.AlgorithmRegistry() {
		seedState(store, "user-1", algorithm, hash, 10, 10, 50)
	}

	selector := newTestSelector(store, 5, DefaultThompsonSelectorConfig())
	selection, err := selector.SelectAlgorithm(context.Background(), "user-1", entities.ContextualFactors{})
	require.NoError(t, err)
	assert.False(t, selection.IsExploration)
}

func TestSelectAlgorithm_FallbackOnStoreFailure(t *testing.T) {
	store := newFakeStateStore()
	store.failGet = apperrors.NewPersistenceError("db down", nil)

	selector := newTestSelector(store, 6, DefaultThompsonSelectorConfig())
	selection, err := selector.SelectAlgorithm(context.Background(), "user-1", entities.ContextualFactors{})
	require.NoError(t, err)

	assert.True(t, selection.IsFallback)
	assert.Equal(t, entities.AlgorithmHybrid, selection.Algorithm)
	assert.Equal(t, 0.5, selection.Confidence)
}

func TestSelectAlgorithm_FallbackOnIncrementFailure(t *testing.T) {
	store := newFakeStateStore()
	store.failIncrement = apperrors.NewPersistenceError("db down", nil)

	selector := newTestSelector(store, 7, DefaultThompsonSelectorConfig())
	selection, err := selector.SelectAlgorithm(context.Background(), "user-1", entities.ContextualFactors{})
	require.NoError(t, err)
	assert.True(t, selection.IsFallback)
}

func TestSelectAlgorithm_FallbackDisabledPropagatesError(t *testing.T) {
	store := newFakeStateStore()
	store.failGet = apperrors.NewPersistenceError("db down", nil)

	cfg := DefaultThompsonSelectorConfig()
	cfg.FallbackEnabled = false

	selector := newTestSelector(store, 8, cfg)
	_, err := selector.SelectAlgorithm(context.Background(), "user-1", entities.ContextualFactors{})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypePersistence))
}

func TestSelectAlgorithm_FallbackOnInitFailure(t *testing.T) {
	store := newFakeStateStore()
	store.failInit = apperrors.NewPersistenceError("db down", nil)

	selector := newTestSelector(store, 9, DefaultThompsonSelectorConfig())
	selection, err := selector.SelectAlgorithm(context.Background(), "user-1", entities.ContextualFactors{})
	require.NoError(t, err)
	assert.True(t, selection.IsFallback)
}

func TestSelectAlgorithm_SeparateContextsKeepSeparateState(t *testing.T) {
	store := newFakeStateStore()
	selector := newTestSelector(store, 10, DefaultThompsonSelectorConfig())

	morning := entities.ContextualFactors{TimeOfDay: "morning"}
	evening := entities.ContextualFactors{TimeOfDay: "evening"}

	first, err := selector.SelectAlgorithm(context.Background(), "user-1", morning)
	require.NoError(t, err)
	second, err := selector.SelectAlgorithm(context.Background(), "user-1", evening)
	require.NoError(t, err)

	assert.NotEqual(t, first.ContextHash, second.ContextHash)
	for _, algorithm := range entities.AlgorithmRegistry() {
		require.NotNil(t, store.get("user-1", algorithm, first.ContextHash))
		require.NotNil(t, store.get("user-1", algorithm, second.ContextHash))
	}
}

func TestMinimumSelections_ExposesThreshold(t *testing.T) {
	selector := newTestSelector(newFakeStateStore(), 11, DefaultThompsonSelectorConfig())
	assert.Equal(t, 5, selector.MinimumSelections())
}
