package providers

import "context"

// ActivityProvider tracks recent user interaction frequency. The contextual
// selector reads it as a bounded 0-1 velocity over the last 24 hours.
type ActivityProvider interface {
	// RecordEvent counts one user interaction at the current time.
	RecordEvent(ctx context.Context, userID string) error

	// InteractionVelocity returns activity over the last 24 hours scaled
	// into [0, 1].
	InteractionVelocity(ctx context.Context, userID string) (float64, error)
}
