package simulation

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/aromaiq/recommender-backend/internal/application/services"
	"github.com/aromaiq/recommender-backend/internal/domain/entities"
	"github.com/aromaiq/recommender-backend/pkg/betadist"
)

// Config describes one simulation run.
type Config struct {
	// Rounds is the number of select-feedback cycles to run.
	Rounds int

	// Seed drives both the policy's sampler and the environment, so runs
	// are reproducible.
	Seed int64

	// Truth maps each algorithm to its true Bernoulli success
	// probability. Algorithms missing from the map default to the
	// registry with probability 0.
	Truth map[entities.Algorithm]float64

	// ConvergenceWindow is how many trailing rounds to inspect when
	// measuring convergence. Zero means the final 10% of rounds.
	ConvergenceWindow int
}

// DefaultTruth is a spread of arm qualities with one clear winner.
func DefaultTruth() map[entities.Algorithm]float64 {
	return map[entities.Algorithm]float64{
		entities.AlgorithmContentBased:  0.35,
		entities.AlgorithmCollaborative: 0.45,
		entities.AlgorithmHybrid:        0.65,
		entities.AlgorithmTrending:      0.30,
		entities.AlgorithmSeasonal:      0.25,
		entities.AlgorithmAdventurous:   0.20,
	}
}

// Summary reports the outcome of a run.
type Summary struct {
	Rounds            int                            `json:"rounds"`
	Seed              int64                          `json:"seed"`
	BestArm           entities.Algorithm             `json:"best_arm"`
	SelectionShare    map[entities.Algorithm]float64 `json:"selection_share"`
	ConvergenceShare  float64                        `json:"convergence_share"`
	CumulativeRegret  float64                        `json:"cumulative_regret"`
	FinalSuccessRates map[entities.Algorithm]float64 `json:"final_success_rates"`
	Elapsed           time.Duration                  `json:"elapsed_ns"`
}

// Runner replays a synthetic user against the full selection and feedback
// pipeline, backed by the in-memory store.
type Runner struct {
	cfg       Config
	store     *MemoryStore
	selector  *services.ThompsonSelector
	processor *services.FeedbackProcessor
	env       *rand.Rand
}

// NewRunner wires a runner from the config. The store, selector, and
// processor are the production implementations; only persistence is
// simulated.
func NewRunner(cfg Config) *Runner {
	if cfg.Rounds <= 0 {
		cfg.Rounds = 1000
	}
	if cfg.Truth == nil {
		cfg.Truth = DefaultTruth()
	}
	if cfg.ConvergenceWindow <= 0 {
		cfg.ConvergenceWindow = cfg.Rounds / 10
	}

	store := NewMemoryStore()
	sampler := betadist.New(rand.New(rand.NewSource(cfg.Seed)))
	selector := services.NewThompsonSelector(store, sampler, services.DefaultThompsonSelectorConfig())
	processor := services.NewFeedbackProcessor(
		services.NewRewardCalculator(),
		store,
		store,
		services.DefaultFeedbackProcessorConfig(),
	)

	return &Runner{
		cfg:       cfg,
		store:     store,
		selector:  selector,
		processor: processor,
		env:       rand.New(rand.NewSource(cfg.Seed + 1)),
	}
}

// Run executes the configured number of rounds and returns the summary.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	userID := "sim-user"
	factors := entities.ContextualFactors{UserType: "enthusiast", TimeOfDay: "evening"}

	picks := make([]entities.Algorithm, 0, r.cfg.Rounds)
	for round := 0; round < r.cfg.Rounds; round++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		selection, err := r.selector.SelectAlgorithm(ctx, userID, factors)
		if err != nil {
			return nil, fmt.Errorf("round %d: selection failed: %w", round, err)
		}
		picks = append(picks, selection.Algorithm)

		action := entities.ActionIgnore
		if r.env.Float64() < r.cfg.Truth[selection.Algorithm] {
			action = entities.ActionSamplePurchase
		}

		event := &entities.FeedbackEvent{
			ID:        uuid.New().String(),
			UserID:    userID,
			ContentID: fmt.Sprintf("content-%d", round),
			Algorithm: selection.Algorithm,
			Action:    action,
			Factors:   factors,
		}
		if _, err := r.processor.ProcessFeedback(ctx, event); err != nil {
			return nil, fmt.Errorf("round %d: feedback failed: %w", round, err)
		}
	}

	best := BestArm(r.cfg.Truth)
	summary := &Summary{
		Rounds:            r.cfg.Rounds,
		Seed:              r.cfg.Seed,
		BestArm:           best,
		SelectionShare:    SelectionShare(picks),
		ConvergenceShare:  ConvergenceShare(picks, best, r.cfg.ConvergenceWindow),
		CumulativeRegret:  CumulativeRegret(picks, r.cfg.Truth),
		FinalSuccessRates: make(map[entities.Algorithm]float64),
		Elapsed:           time.Since(start),
	}

	states, err := r.store.GetUserStates(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, state := range states {
		summary.FinalSuccessRates[state.Algorithm] = state.SuccessRate()
	}

	return summary, nil
}
