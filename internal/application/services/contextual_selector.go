package services

import (
	"context"
	"time"

	"github.com/aromaiq/recommender-backend/internal/domain/entities"
	"github.com/aromaiq/recommender-backend/internal/domain/providers"
	"github.com/aromaiq/recommender-backend/internal/infrastructure/observability"
)

// defaultVelocity is assumed when the activity provider is unavailable.
const defaultVelocity = 0.5

// Completeness weights per factor. Selections made with richer context get
// a higher reported confidence.
var factorWeights = map[string]float64{
	"user_type":        0.3,
	"time_of_day":      0.2,
	"season":           0.2,
	"device_type":      0.1,
	"session_duration": 0.1,
	"mood_indicators":  0.1,
}

// ContextualSelector enriches partial contextual factors before delegating
// to the Thompson selector, then scales confidence by how complete the
// context was.
type ContextualSelector struct {
	selector *ThompsonSelector
	activity providers.ActivityProvider
	now      func() time.Time
}

// NewContextualSelector creates a new contextual selector. The activity
// provider may be nil; velocity then defaults to neutral.
func NewContextualSelector(selector *ThompsonSelector, activity providers.ActivityProvider) *ContextualSelector {
	return &ContextualSelector{
		selector: selector,
		activity: activity,
		now:      time.Now,
	}
}

// SelectAlgorithmWithContext infers time-of-day, season and interaction
// velocity for missing fields, delegates the arm choice, and applies the
// contextual completeness multiplier to the returned confidence.
func (s *ContextualSelector) SelectAlgorithmWithContext(ctx context.Context, userID string, factors entities.ContextualFactors) (*entities.AlgorithmSelection, error) {
	enriched := s.enrich(ctx, userID, factors)

	selection, err := s.selector.SelectAlgorithm(ctx, userID, enriched)
	if err != nil {
		return nil, err
	}

	selection.Confidence *= completenessScore(enriched)
	return selection, nil
}

func (s *ContextualSelector) enrich(ctx context.Context, userID string, factors entities.ContextualFactors) entities.ContextualFactors {
	now := s.now()

	if factors.TimeOfDay == "" {
		factors.TimeOfDay = timeOfDay(now.Hour())
	}
	if factors.Season == "" {
		factors.Season = season(now.Month())
	}
	if factors.InteractionVelocity == nil {
		velocity := defaultVelocity
		if s.activity != nil {
			if v, err := s.activity.InteractionVelocity(ctx, userID); err == nil {
				velocity = v
			} else {
				observability.LoggerFromContext(ctx).Debug().
					Err(err).
					Str("user_id", userID).
					Msg("interaction velocity unavailable, using neutral default")
			}
		}
		factors.InteractionVelocity = &velocity
	}

	return factors
}

// completenessScore is 0.5 + 0.5 * (weight of present factors / total
// weight); a fully specified context doubles the floor.
func completenessScore(factors entities.ContextualFactors) float64 {
	fields := factors.Fields()

	present, total := 0.0, 0.0
	for key, weight := range factorWeights {
		total += weight
		if _, ok := fields[key]; ok {
			present += weight
		}
	}

	return 0.5 + 0.5*(present/total)
}

func timeOfDay(hour int) string {
	switch {
	case hour >= 5 && hour <= 11:
		return "morning"
	case hour >= 12 && hour <= 16:
		return "afternoon"
	case hour >= 17 && hour <= 21:
		return "evening"
	default:
		return "night"
	}
}

// season uses the fixed Northern-hemisphere quarterly mapping.
func season(month time.Month) string {
	switch month {
	case time.December, time.January, time.February:
		return "winter"
	case time.March, time.April, time.May:
		return "spring"
	case time.June, time.July, time.August:
		return "summer"
	default:
		return "autumn"
	}
}
