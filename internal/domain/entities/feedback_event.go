package entities

import "time"

// FeedbackAction is the discrete user action reported back for a prior
// algorithm selection.
type FeedbackAction string

const (
	ActionView            FeedbackAction = "view"
	ActionClick           FeedbackAction = "click"
	ActionAddToCollection FeedbackAction = "add_to_collection"
	ActionRating          FeedbackAction = "rating"
	ActionPurchaseIntent  FeedbackAction = "purchase_intent"
	ActionSamplePurchase  FeedbackAction = "sample_purchase"
	ActionIgnore          FeedbackAction = "ignore"
)

// IsValid checks if the action is one of the defined constants.
func (a FeedbackAction) IsValid() bool {
	switch a {
	case ActionView, ActionClick, ActionAddToCollection, ActionRating,
		ActionPurchaseIntent, ActionSamplePurchase, ActionIgnore:
		return true
	}
	return false
}

// FeedbackEvent is one observed user action tied to a prior selection.
// Immutable once submitted; consumed exactly once by the feedback processor
// and appended verbatim to the feedback log.
type FeedbackEvent struct {
	ID            string            `json:"id" db:"id"`
	UserID        string            `json:"user_id" db:"user_id"`
	ContentID     string            `json:"content_id" db:"content_id"`
	Algorithm     Algorithm         `json:"algorithm_used" db:"algorithm_used"`
	Action        FeedbackAction    `json:"action" db:"action"`
	ActionValue   *float64          `json:"action_value,omitempty" db:"action_value"`
	Factors       ContextualFactors `json:"contextual_factors" db:"contextual_factors"`
	SessionID     string            `json:"session_id,omitempty" db:"session_id"`
	TimeToAction  *float64          `json:"time_to_action,omitempty" db:"time_to_action"`
	Reward        float64           `json:"reward" db:"reward"`
	CreatedAt     time.Time         `json:"created_at" db:"created_at"`
	ReevaluatedAt *time.Time        `json:"reevaluated_at,omitempty" db:"reevaluated_at"`
}

// FeedbackResult reports the outcome of processing a single event.
type FeedbackResult struct {
	Processed      bool    `json:"processed"`
	NewSuccessRate float64 `json:"new_success_rate"`
	LearningImpact float64 `json:"learning_impact"`
}

// BatchFeedbackResult reports the outcome of a batch run. Individual
// failures are counted, never fatal to the batch.
type BatchFeedbackResult struct {
	Processed int           `json:"processed"`
	Failed    int           `json:"failed"`
	Elapsed   time.Duration `json:"elapsed"`
}
