package entities

import "time"

// MinShapeParameter is the floor for the Beta shape parameters. Sampling is
// undefined at zero, so updates must never let alpha or beta reach it.
const MinShapeParameter = 1e-9

// ConfidenceInterval bounds an estimate of an arm's success probability.
type ConfidenceInterval struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// AlgorithmState is the durable bandit state for one
// (user, algorithm, context) combination.
type AlgorithmState struct {
	ID              string    `json:"id" db:"id"`
	UserID          string    `json:"user_id" db:"user_id"`
	Algorithm       Algorithm `json:"algorithm_name" db:"algorithm_name"`
	ContextHash     string    `json:"context_hash" db:"context_hash"`
	Alpha           float64   `json:"alpha" db:"alpha"`
	Beta            float64   `json:"beta" db:"beta"`
	TotalSelections int       `json:"total_selections" db:"total_selections"`
	TotalRewards    float64   `json:"total_rewards" db:"total_rewards"`
	LastUpdated     time.Time `json:"last_updated" db:"last_updated"`
}

// SuccessRate returns the posterior mean alpha/(alpha+beta).
func (s *AlgorithmState) SuccessRate() float64 {
	total := s.Alpha + s.Beta
	if total <= 0 {
		return 0
	}
	return s.Alpha / total
}

// NewDefaultState creates a state with the uniform Beta(1,1) prior.
func NewDefaultState(userID string, algorithm Algorithm, contextHash string) *AlgorithmState {
	return &AlgorithmState{
		UserID:      userID,
		Algorithm:   algorithm,
		ContextHash: contextHash,
		Alpha:       1.0,
		Beta:        1.0,
		LastUpdated: time.Now().UTC(),
	}
}
