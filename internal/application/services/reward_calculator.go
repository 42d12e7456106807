package services

import (
	"math"

	"github.com/aromaiq/recommender-backend/internal/domain/entities"
	apperrors "github.com/aromaiq/recommender-backend/pkg/errors"
)

// Base reward per action. A rating with an explicit value overrides its base
// with value/5.
var baseRewards = map[entities.FeedbackAction]float64{
	entities.ActionView:            0.1,
	entities.ActionClick:           0.3,
	entities.ActionAddToCollection: 0.7,
	entities.ActionRating:          0.6,
	entities.ActionPurchaseIntent:  0.8,
	entities.ActionSamplePurchase:  1.0,
	entities.ActionIgnore:          0.0,
}

// RewardCalculator maps a discrete user action plus contextual modifiers
// into a scalar reward in [0, 1]. Pure and deterministic.
type RewardCalculator struct{}

// NewRewardCalculator creates a new reward calculator.
func NewRewardCalculator() *RewardCalculator {
	return &RewardCalculator{}
}

// CalculateReward computes the reward for one feedback event. Unknown
// actions are rejected rather than defaulted to zero: a zero reward is a
// real learning signal and typos must not masquerade as one.
func (c *RewardCalculator) CalculateReward(action entities.FeedbackAction, actionValue, timeToActionSeconds *float64, factors entities.ContextualFactors) (float64, error) {
	base, ok := baseRewards[action]
	if !ok {
		return 0, apperrors.NewValidationError("unknown feedback action: " + string(action))
	}

	if action == entities.ActionRating && actionValue != nil {
		base = clampReward(*actionValue / 5)
	}

	reward := base

	// Faster engagement is a stronger signal, capped at a 20% boost.
	if timeToActionSeconds != nil && *timeToActionSeconds > 0 {
		bonus := math.Min(0.2, 30/math.Max(*timeToActionSeconds, 1))
		reward += base * bonus
	}

	if factors.TimeOfDay == "evening" {
		reward *= 1.1
	}
	if factors.DeviceType == "mobile" {
		reward *= 0.9
	}
	if factors.InteractionVelocity != nil && *factors.InteractionVelocity > 0.8 {
		reward *= 1.15
	}

	return clampReward(reward), nil
}

func clampReward(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
