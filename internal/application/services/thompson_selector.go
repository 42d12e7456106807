package services

import (
	"context"
	"time"

	"github.com/aromaiq/recommender-backend/internal/domain/entities"
	"github.com/aromaiq/recommender-backend/internal/domain/repositories"
	"github.com/aromaiq/recommender-backend/internal/infrastructure/observability"
	"github.com/aromaiq/recommender-backend/pkg/betadist"
	"github.com/aromaiq/recommender-backend/pkg/contexthash"
	apperrors "github.com/aromaiq/recommender-backend/pkg/errors"
)

// ThompsonSelectorConfig tunes the selection policy.
type ThompsonSelectorConfig struct {
	// ExplorationBonus is added to the sampled score of arms with fewer
	// than MinimumSelections plays. A deliberate deviation from pure
	// Thompson Sampling that guarantees early coverage of every arm.
	ExplorationBonus float64

	// MinimumSelections is the play count below which an arm counts as
	// under-explored.
	MinimumSelections int

	// FallbackAlgorithm is returned when persistence fails and fallback
	// is enabled.
	FallbackAlgorithm entities.Algorithm

	// FallbackEnabled controls whether persistence failures degrade to
	// the static fallback arm instead of propagating.
	FallbackEnabled bool
}

// DefaultThompsonSelectorConfig returns the standard policy parameters.
func DefaultThompsonSelectorConfig() ThompsonSelectorConfig {
	return ThompsonSelectorConfig{
		ExplorationBonus:  0.1,
		MinimumSelections: 5,
		FallbackAlgorithm: entities.AlgorithmHybrid,
		FallbackEnabled:   true,
	}
}

// ThompsonSelector picks an algorithm per (user, context) by sampling each
// arm's Beta posterior and taking the argmax.
type ThompsonSelector struct {
	states   repositories.BanditStateRepository
	sampler  *betadist.Sampler
	registry []entities.Algorithm
	cfg      ThompsonSelectorConfig
}

// NewThompsonSelector creates a new selector over the fixed registry.
func NewThompsonSelector(states repositories.BanditStateRepository, sampler *betadist.Sampler, cfg ThompsonSelectorConfig) *ThompsonSelector {
	return &ThompsonSelector{
		states:   states,
		sampler:  sampler,
		registry: entities.AlgorithmRegistry(),
		cfg:      cfg,
	}
}

// SelectAlgorithm chooses an arm for the user in the given context. A
// never-seen (user, context) pair is initialized with uniform priors first,
// then selection proceeds as if it had always existed. Persistence failures
// degrade to the fallback arm when enabled; selection must never block the
// recommendation pipeline.
func (s *ThompsonSelector) SelectAlgorithm(ctx context.Context, userID string, factors entities.ContextualFactors) (*entities.AlgorithmSelection, error) {
	hash := contexthash.Hash(factors)

	states, err := s.fetchOrInitialize(ctx, userID, hash)
	if err != nil {
		return s.recover(ctx, userID, hash, factors, err)
	}

	byAlgorithm := make(map[entities.Algorithm]*entities.AlgorithmState, len(states))
	for _, state := range states {
		byAlgorithm[state.Algorithm] = state
	}

	// Iterate in registry order so ties break deterministically.
	samplingStart := time.Now()
	var chosen *entities.AlgorithmState
	var bestScore, chosenSample float64
	for _, algorithm := range s.registry {
		state, ok := byAlgorithm[algorithm]
		if !ok {
			continue
		}

		sample, err := s.sampler.Sample(state.Alpha, state.Beta)
		if err != nil {
			return s.recover(ctx, userID, hash, factors, err)
		}

		score := sample
		if state.TotalSelections < s.cfg.MinimumSelections {
			score += s.cfg.ExplorationBonus
		}

		if chosen == nil || score > bestScore {
			chosen = state
			bestScore = score
			chosenSample = sample
		}
	}

	samplingDuration := time.Since(samplingStart)

	if chosen == nil {
		return s.recover(ctx, userID, hash, factors,
			apperrors.NewUninitializedError("no arms available after initialization"))
	}

	if err := s.states.IncrementSelection(ctx, userID, chosen.Algorithm, hash); err != nil {
		return s.recover(ctx, userID, hash, factors, err)
	}

	return &entities.AlgorithmSelection{
		Algorithm:        chosen.Algorithm,
		Confidence:       chosen.SuccessRate(),
		SampledScore:     chosenSample,
		ContextHash:      hash,
		IsExploration:    chosen.TotalSelections < s.cfg.MinimumSelections,
		SelectedAt:       time.Now().UTC(),
		Factors:          factors,
		SamplingDuration: samplingDuration,
	}, nil
}

// MinimumSelections exposes the under-explored threshold for callers that
// need to reason about exploration coverage.
func (s *ThompsonSelector) MinimumSelections() int {
	return s.cfg.MinimumSelections
}

func (s *ThompsonSelector) fetchOrInitialize(ctx context.Context, userID, hash string) ([]*entities.AlgorithmState, error) {
	states, err := s.states.GetStates(ctx, userID, hash)
	if err != nil {
		return nil, err
	}
	if len(states) > 0 {
		return states, nil
	}

	if err := s.states.InitializeStates(ctx, userID, hash, s.registry); err != nil {
		return nil, err
	}

	states, err = s.states.GetStates(ctx, userID, hash)
	if err != nil {
		return nil, err
	}
	if len(states) == 0 {
		return nil, apperrors.NewUninitializedError("state initialization produced no rows")
	}
	return states, nil
}

// recover returns the static fallback arm so the consuming pipeline keeps
// working; the degradation is visible through IsFallback and low
// confidence, and in the logs.
func (s *ThompsonSelector) recover(ctx context.Context, userID, hash string, factors entities.ContextualFactors, cause error) (*entities.AlgorithmSelection, error) {
	if !s.cfg.FallbackEnabled {
		return nil, cause
	}

	observability.LoggerFromContext(ctx).Warn().
		Err(cause).
		Str("user_id", userID).
		Str("context_hash", hash).
		Str("fallback", string(s.cfg.FallbackAlgorithm)).
		Msg("algorithm selection degraded to fallback")

	return &entities.AlgorithmSelection{
		Algorithm:     s.cfg.FallbackAlgorithm,
		Confidence:    0.5,
		ContextHash:   hash,
		IsExploration: true,
		IsFallback:    true,
		SelectedAt:    time.Now().UTC(),
		Factors:       factors,
	}, nil
}
