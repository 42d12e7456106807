package services

import (
	"context"
	"time"

	"github.com/aromaiq/recommender-backend/internal/infrastructure/observability"
)

// DelayedRewardService triggers the delayed-reward re-evaluation pass on a
// fixed poll interval. Poll-based rather than event-driven: the stack
// carries no message broker, and a ticker over the pending-events index is
// cheap at this scale.
type DelayedRewardService struct {
	processor *FeedbackProcessor
	interval  time.Duration
	batchSize int
}

// NewDelayedRewardService creates a new poller. A non-positive interval
// defaults to 10 minutes.
func NewDelayedRewardService(processor *FeedbackProcessor, interval time.Duration) *DelayedRewardService {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &DelayedRewardService{
		processor: processor,
		interval:  interval,
		batchSize: 100,
	}
}

// Start runs the poll loop until the context is cancelled.
func (s *DelayedRewardService) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runOnce(ctx)
			}
		}
	}()
}

func (s *DelayedRewardService) runOnce(ctx context.Context) {
	// Fresh timeout per pass; the parent context only carries cancellation.
	passCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	processed, err := s.processor.ReevaluateDelayedRewards(passCtx, s.batchSize)
	logger := observability.LoggerFromContext(passCtx)
	if err != nil {
		logger.Warn().Err(err).Msg("delayed reward pass failed")
		return
	}
	if processed > 0 {
		logger.Info().Int("processed", processed).Msg("delayed reward pass completed")
	}
}
