package repositories

import (
	"context"
	"time"

	"github.com/aromaiq/recommender-backend/internal/domain/entities"
)

// FeedbackLogRepository is the append-only feedback event log. At-least-once
// delivery is acceptable; consumers dedupe on event ID.
type FeedbackLogRepository interface {
	// Append persists the raw event verbatim.
	Append(ctx context.Context, event *entities.FeedbackEvent) error

	// ListRecentByContent returns a user's events for one content item
	// since the given time, oldest first. Used by delayed-reward
	// re-evaluation to find follow-up actions.
	ListRecentByContent(ctx context.Context, userID, contentID string, since time.Time) ([]*entities.FeedbackEvent, error)

	// ListPendingReevaluations returns events created before the cutoff
	// that have not been re-evaluated yet.
	ListPendingReevaluations(ctx context.Context, before time.Time, limit int) ([]*entities.FeedbackEvent, error)

	// MarkReevaluated stamps an event so it is never re-evaluated twice.
	MarkReevaluated(ctx context.Context, eventID string) error
}
