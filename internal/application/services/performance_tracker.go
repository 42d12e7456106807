package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/aromaiq/recommender-backend/internal/domain/entities"
	"github.com/aromaiq/recommender-backend/internal/domain/repositories"
	"github.com/aromaiq/recommender-backend/pkg/betadist"
)

const (
	trendSlopeThreshold = 0.01

	underExploredThreshold   = 10
	lowPerformerRate         = 0.3
	lowPerformerMinSelection = 20
)

// PerformanceTracker is the read-side analytics layer: trend regression
// over historical success rates and per-user arm analysis.
type PerformanceTracker struct {
	metrics repositories.MetricsRepository
	states  repositories.BanditStateRepository
	sampler *betadist.Sampler
}

// NewPerformanceTracker creates a new performance tracker.
func NewPerformanceTracker(metrics repositories.MetricsRepository, states repositories.BanditStateRepository, sampler *betadist.Sampler) *PerformanceTracker {
	return &PerformanceTracker{
		metrics: metrics,
		states:  states,
		sampler: sampler,
	}
}

// GetPerformanceTrend fits an ordinary-least-squares line through the
// algorithm's success-rate snapshots in the window. Fewer than two data
// points yields a neutral stable result instead of an error. Significance
// is the documented heuristic min(0.99, |slope|*n/10), not a p-value.
func (t *PerformanceTracker) GetPerformanceTrend(ctx context.Context, algorithm entities.Algorithm, days int, contextHash string) (*entities.PerformanceTrend, error) {
	snapshots, err := t.metrics.GetHistoricalMetrics(ctx, algorithm, contextHash, days)
	if err != nil {
		return nil, err
	}

	n := len(snapshots)
	if n < 2 {
		return &entities.PerformanceTrend{
			Algorithm:          algorithm,
			TrendDirection:     entities.TrendStable,
			ConfidenceInterval: entities.ConfidenceInterval{Lower: 0, Upper: 1},
		}, nil
	}

	rates := make([]float64, n)
	for i, s := range snapshots {
		rates[i] = s.SuccessRate
	}

	slope := olsSlope(rates)

	direction := entities.TrendStable
	switch {
	case slope > trendSlopeThreshold:
		direction = entities.TrendImproving
	case slope < -trendSlopeThreshold:
		direction = entities.TrendDeclining
	}

	mean, std := meanStd(rates)
	stderr := std / math.Sqrt(float64(n))

	return &entities.PerformanceTrend{
		Algorithm:       algorithm,
		TrendDirection:  direction,
		ImprovementRate: slope,
		ConfidenceInterval: entities.ConfidenceInterval{
			Lower: clampRate(mean - 1.96*stderr),
			Upper: clampRate(mean + 1.96*stderr),
		},
		Significance: math.Min(0.99, math.Abs(slope)*float64(n)/10),
		SampleSize:   n,
	}, nil
}

// GetAlgorithmAnalysis aggregates a user's arms across contexts, ranks them
// by success rate, and flags under-explored and low-performing arms with
// suggestion text.
func (t *PerformanceTracker) GetAlgorithmAnalysis(ctx context.Context, userID string) (*entities.AlgorithmAnalysis, error) {
	states, err := t.states.GetUserStates(ctx, userID)
	if err != nil {
		return nil, err
	}

	type aggregate struct {
		alpha, beta, rewards float64
		selections           int
	}
	byAlgorithm := make(map[entities.Algorithm]*aggregate)
	for _, state := range states {
		agg, ok := byAlgorithm[state.Algorithm]
		if !ok {
			agg = &aggregate{}
			byAlgorithm[state.Algorithm] = agg
		}
		agg.alpha += state.Alpha
		agg.beta += state.Beta
		agg.rewards += state.TotalRewards
		agg.selections += state.TotalSelections
	}

	arms := make([]entities.ArmSummary, 0, len(byAlgorithm))
	for _, algorithm := range entities.AlgorithmRegistry() {
		agg, ok := byAlgorithm[algorithm]
		if !ok {
			continue
		}

		rate := agg.alpha / (agg.alpha + agg.beta)
		interval, err := t.sampler.ConfidenceInterval(agg.alpha, agg.beta, 0.95)
		if err != nil {
			return nil, err
		}

		arms = append(arms, entities.ArmSummary{
			Algorithm:          algorithm,
			SuccessRate:        rate,
			ConfidenceInterval: entities.ConfidenceInterval{Lower: interval.Lower, Upper: interval.Upper},
			TotalSelections:    agg.selections,
			TotalRewards:       agg.rewards,
			UnderExplored:      agg.selections < underExploredThreshold,
			LowPerformer:       rate < lowPerformerRate && agg.selections > lowPerformerMinSelection,
		})
	}

	sort.SliceStable(arms, func(i, j int) bool {
		return arms[i].SuccessRate > arms[j].SuccessRate
	})

	return &entities.AlgorithmAnalysis{
		UserID:      userID,
		Arms:        arms,
		Suggestions: buildSuggestions(arms),
		GeneratedAt: time.Now().UTC(),
	}, nil
}

func buildSuggestions(arms []entities.ArmSummary) []string {
	var suggestions []string
	for _, arm := range arms {
		if arm.UnderExplored {
			suggestions = append(suggestions, fmt.Sprintf(
				"%s has only %d selections; keep the exploration bonus active until it reaches %d",
				arm.Algorithm, arm.TotalSelections, underExploredThreshold))
		}
		if arm.LowPerformer {
			suggestions = append(suggestions, fmt.Sprintf(
				"%s is converging on a low success rate (%.2f over %d selections); consider reviewing its scoring inputs",
				arm.Algorithm, arm.SuccessRate, arm.TotalSelections))
		}
	}
	return suggestions
}

// olsSlope regresses values against their index 0..n-1.
func olsSlope(values []float64) float64 {
	n := float64(len(values))

	var sumX, sumY, sumXY, sumXX float64
	for i, y := range values {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}

func meanStd(values []float64) (float64, float64) {
	n := float64(len(values))

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / n

	var sq float64
	for _, v := range values {
		sq += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(sq / n)
}

func clampRate(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
