package entities

import "time"

// TrendDirection classifies the slope of an arm's success rate over time.
type TrendDirection string

const (
	TrendImproving TrendDirection = "improving"
	TrendDeclining TrendDirection = "declining"
	TrendStable    TrendDirection = "stable"
)

// PerformanceSnapshot is one periodic success-rate observation for an
// algorithm in a context, written by an external metrics rollup.
type PerformanceSnapshot struct {
	ID          string    `json:"id" db:"id"`
	Algorithm   Algorithm `json:"algorithm_name" db:"algorithm_name"`
	ContextHash string    `json:"context_hash" db:"context_hash"`
	Period      time.Time `json:"period" db:"period"`
	SuccessRate float64   `json:"success_rate" db:"success_rate"`
	SampleSize  int       `json:"sample_size" db:"sample_size"`
}

// PerformanceTrend summarizes a linear-regression pass over historical
// snapshots. Significance is a bounded heuristic, not a p-value.
type PerformanceTrend struct {
	Algorithm          Algorithm          `json:"algorithm"`
	TrendDirection     TrendDirection     `json:"trend_direction"`
	ImprovementRate    float64            `json:"improvement_rate"`
	ConfidenceInterval ConfidenceInterval `json:"confidence_interval"`
	Significance       float64            `json:"significance"`
	SampleSize         int                `json:"sample_size"`
}

// ArmSummary aggregates one algorithm's state across all of a user's
// contexts for the analysis report.
type ArmSummary struct {
	Algorithm          Algorithm          `json:"algorithm"`
	SuccessRate        float64            `json:"success_rate"`
	ConfidenceInterval ConfidenceInterval `json:"confidence_interval"`
	TotalSelections    int                `json:"total_selections"`
	TotalRewards       float64            `json:"total_rewards"`
	UnderExplored      bool               `json:"under_explored"`
	LowPerformer       bool               `json:"low_performer"`
}

// AlgorithmAnalysis ranks a user's arms and carries optimization
// suggestions derived from the flags.
type AlgorithmAnalysis struct {
	UserID      string       `json:"user_id"`
	Arms        []ArmSummary `json:"arms"`
	Suggestions []string     `json:"suggestions"`
	GeneratedAt time.Time    `json:"generated_at"`
}
