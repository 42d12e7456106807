package services

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/aromaiq/recommender-backend/internal/domain/entities"
	"github.com/aromaiq/recommender-backend/internal/domain/repositories"
	"github.com/aromaiq/recommender-backend/internal/infrastructure/observability"
	"github.com/aromaiq/recommender-backend/pkg/contexthash"
	apperrors "github.com/aromaiq/recommender-backend/pkg/errors"
	"github.com/aromaiq/recommender-backend/pkg/retry"
)

// FeedbackProcessorConfig tunes feedback handling.
type FeedbackProcessorConfig struct {
	// ParallelBatch runs batch events concurrently instead of strictly
	// sequentially.
	ParallelBatch bool

	// DelayedWindow is how long after the immediate reward the delayed
	// re-evaluation pass runs.
	DelayedWindow time.Duration

	// DecayHalfLife controls the exponential recency weighting of
	// follow-up actions during re-evaluation.
	DecayHalfLife time.Duration

	// DelayedBonusCap bounds the extra reward a re-evaluation can add.
	DelayedBonusCap float64
}

// DefaultFeedbackProcessorConfig returns the standard parameters.
func DefaultFeedbackProcessorConfig() FeedbackProcessorConfig {
	return FeedbackProcessorConfig{
		ParallelBatch:   false,
		DelayedWindow:   24 * time.Hour,
		DecayHalfLife:   6 * time.Hour,
		DelayedBonusCap: 0.5,
	}
}

// FeedbackProcessor converts feedback events into rewards and posterior
// updates, closing the learning loop.
type FeedbackProcessor struct {
	rewards *RewardCalculator
	states  repositories.BanditStateRepository
	log     repositories.FeedbackLogRepository
	cfg     FeedbackProcessorConfig
	retry   retry.Config
}

// NewFeedbackProcessor creates a new feedback processor.
func NewFeedbackProcessor(
	rewards *RewardCalculator,
	states repositories.BanditStateRepository,
	log repositories.FeedbackLogRepository,
	cfg FeedbackProcessorConfig,
) *FeedbackProcessor {
	retryCfg := retry.DefaultConfig()
	retryCfg.MaxAttempts = 3
	retryCfg.MaxTotalTimeout = 10 * time.Second

	return &FeedbackProcessor{
		rewards: rewards,
		states:  states,
		log:     log,
		cfg:     cfg,
		retry:   retryCfg,
	}
}

// ProcessFeedback computes the immediate reward, appends the event to the
// log, and applies the posterior update. Persistence failures are retried
// and then surfaced, never swallowed: a silently lost event corrupts the
// learning loop.
//
// The log append happens before the posterior update. If the update fails
// after a successful append, the event is logged but unapplied; the dedup
// on event ID makes a retried submission safe.
func (p *FeedbackProcessor) ProcessFeedback(ctx context.Context, event *entities.FeedbackEvent) (*entities.FeedbackResult, error) {
	if event == nil {
		return nil, apperrors.NewValidationError("feedback event is nil")
	}
	if event.UserID == "" || event.ContentID == "" {
		return nil, apperrors.NewValidationError("feedback event requires user_id and content_id")
	}
	if !event.Algorithm.IsValid() {
		return nil, apperrors.NewValidationError("unknown algorithm: " + string(event.Algorithm))
	}

	reward, err := p.rewards.CalculateReward(event.Action, event.ActionValue, event.TimeToAction, event.Factors)
	if err != nil {
		return nil, err
	}
	event.Reward = reward

	if err := retry.Do(ctx, p.retry, func() error {
		return p.log.Append(ctx, event)
	}); err != nil {
		return nil, apperrors.NewPersistenceError("failed to persist feedback event", err)
	}

	hash := contexthash.Hash(event.Factors)
	var state *entities.AlgorithmState
	if err := retry.Do(ctx, p.retry, func() error {
		var applyErr error
		state, applyErr = p.states.ApplyReward(ctx, event.UserID, event.Algorithm, hash, reward)
		return applyErr
	}); err != nil {
		return nil, apperrors.NewPersistenceError("failed to apply posterior update", err)
	}

	return &entities.FeedbackResult{
		Processed:      true,
		NewSuccessRate: state.SuccessRate(),
		LearningImpact: math.Abs(reward - 0.5),
	}, nil
}

// ProcessBatchFeedback processes a batch, tolerating individual failures.
func (p *FeedbackProcessor) ProcessBatchFeedback(ctx context.Context, events []*entities.FeedbackEvent) *entities.BatchFeedbackResult {
	start := time.Now()
	result := &entities.BatchFeedbackResult{}

	if p.cfg.ParallelBatch {
		var wg sync.WaitGroup
		var mu sync.Mutex
		for _, event := range events {
			wg.Add(1)
			go func(event *entities.FeedbackEvent) {
				defer wg.Done()
				_, err := p.ProcessFeedback(ctx, event)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					result.Failed++
				} else {
					result.Processed++
				}
			}(event)
		}
		wg.Wait()
	} else {
		for _, event := range events {
			if _, err := p.ProcessFeedback(ctx, event); err != nil {
				observability.LoggerFromContext(ctx).Warn().
					Err(err).
					Str("event_id", event.ID).
					Msg("batch feedback event failed")
				result.Failed++
				continue
			}
			result.Processed++
		}
	}

	result.Elapsed = time.Since(start)
	return result
}

// ReevaluateDelayedRewards runs the delayed-reward pass for events whose
// window has elapsed: follow-up actions on the same content add a bounded,
// recency-decayed bonus to the originally recorded reward.
func (p *FeedbackProcessor) ReevaluateDelayedRewards(ctx context.Context, limit int) (int, error) {
	cutoff := time.Now().UTC().Add(-p.cfg.DelayedWindow)
	pending, err := p.log.ListPendingReevaluations(ctx, cutoff, limit)
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, event := range pending {
		if err := p.reevaluate(ctx, event); err != nil {
			observability.LoggerFromContext(ctx).Warn().
				Err(err).
				Str("event_id", event.ID).
				Msg("delayed reward re-evaluation failed")
			continue
		}
		processed++
	}

	return processed, nil
}

func (p *FeedbackProcessor) reevaluate(ctx context.Context, event *entities.FeedbackEvent) error {
	followUps, err := p.log.ListRecentByContent(ctx, event.UserID, event.ContentID, event.CreatedAt)
	if err != nil {
		return err
	}

	bonus := 0.0
	for _, followUp := range followUps {
		if followUp.ID == event.ID || !followUp.CreatedAt.After(event.CreatedAt) {
			continue
		}

		base, ok := baseRewards[followUp.Action]
		if !ok || base <= event.Reward {
			continue
		}

		// Half-life decay on how long after the original action the
		// confirmation arrived.
		age := followUp.CreatedAt.Sub(event.CreatedAt)
		weight := math.Exp2(-age.Hours() / p.cfg.DecayHalfLife.Hours())
		bonus += (base - event.Reward) * weight
	}

	if bonus > p.cfg.DelayedBonusCap {
		bonus = p.cfg.DelayedBonusCap
	}

	if bonus > 0 {
		hash := contexthash.Hash(event.Factors)
		if err := p.states.ApplyRewardBonus(ctx, event.UserID, event.Algorithm, hash, bonus); err != nil {
			return err
		}
	}

	return p.log.MarkReevaluated(ctx, event.ID)
}
