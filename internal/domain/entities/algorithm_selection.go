package entities

import "time"

// AlgorithmSelection is the transient result of one selection call. It is
// not persisted; the selection-count side effect lands on AlgorithmState.
type AlgorithmSelection struct {
	Algorithm     Algorithm         `json:"algorithm"`
	Confidence    float64           `json:"confidence"`
	SampledScore  float64           `json:"sampled_score"`
	ContextHash   string            `json:"context_hash"`
	IsExploration bool              `json:"is_exploration"`
	IsFallback    bool              `json:"is_fallback"`
	SelectedAt    time.Time         `json:"selected_at"`
	Factors       ContextualFactors `json:"contextual_factors"`

	// SamplingDuration is how long the posterior draws took. Telemetry
	// only, not part of the response body.
	SamplingDuration time.Duration `json:"-"`
}
