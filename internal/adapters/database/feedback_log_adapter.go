package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"

	"github.com/aromaiq/recommender-backend/internal/domain/entities"
	"github.com/aromaiq/recommender-backend/internal/domain/repositories"
	"github.com/aromaiq/recommender-backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/aromaiq/recommender-backend/pkg/errors"
)

const feedbackColumns = `id, user_id, content_id, algorithm_used, action, action_value, contextual_factors, session_id, time_to_action, reward, created_at, reevaluated_at`

// FeedbackLogAdapter implements the append-only feedback log in Postgres.
type FeedbackLogAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewFeedbackLogAdapter creates a new feedback log adapter.
func NewFeedbackLogAdapter(client *postgres.Client) repositories.FeedbackLogRepository {
	return &FeedbackLogAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Append inserts the raw event. Re-inserting the same event ID is a no-op
// so at-least-once delivery never double-counts.
func (a *FeedbackLogAdapter) Append(ctx context.Context, event *entities.FeedbackEvent) error {
	if event == nil {
		return apperrors.NewValidationError("feedback event is nil")
	}
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	factors, err := json.Marshal(event.Factors)
	if err != nil {
		return apperrors.NewInternalError("failed to encode contextual factors", err)
	}

	record := goqu.Record{
		"id":                 event.ID,
		"user_id":            event.UserID,
		"content_id":         event.ContentID,
		"algorithm_used":     string(event.Algorithm),
		"action":             string(event.Action),
		"action_value":       nullFloat(event.ActionValue),
		"contextual_factors": string(factors),
		"session_id":         sql.NullString{String: event.SessionID, Valid: event.SessionID != ""},
		"time_to_action":     nullFloat(event.TimeToAction),
		"reward":             event.Reward,
		"created_at":         event.CreatedAt,
	}

	query, args, err := a.db.Insert("feedback_events").
		Rows(record).
		OnConflict(goqu.DoNothing()).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build feedback insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewPersistenceError("failed to append feedback event", err)
	}

	return nil
}

// ListRecentByContent returns a user's events for one content item since
// the given time, oldest first.
func (a *FeedbackLogAdapter) ListRecentByContent(ctx context.Context, userID, contentID string, since time.Time) ([]*entities.FeedbackEvent, error) {
	query := `
		SELECT ` + feedbackColumns + `
		FROM feedback_events
		WHERE user_id = $1 AND content_id = $2 AND created_at >= $3
		ORDER BY created_at ASC
	`
	return a.queryEvents(ctx, query, userID, contentID, since)
}

// ListPendingReevaluations returns events older than the cutoff that have
// not had their delayed-reward pass yet.
func (a *FeedbackLogAdapter) ListPendingReevaluations(ctx context.Context, before time.Time, limit int) ([]*entities.FeedbackEvent, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT ` + feedbackColumns + `
		FROM feedback_events
		WHERE reevaluated_at IS NULL AND created_at <= $1
		ORDER BY created_at ASC
		LIMIT $2
	`
	return a.queryEvents(ctx, query, before, limit)
}

// MarkReevaluated stamps an event as re-evaluated.
func (a *FeedbackLogAdapter) MarkReevaluated(ctx context.Context, eventID string) error {
	query := `
		UPDATE feedback_events
		SET reevaluated_at = $2
		WHERE id = $1 AND reevaluated_at IS NULL
	`

	if _, err := a.client.DB().ExecContext(ctx, query, eventID, time.Now().UTC()); err != nil {
		return apperrors.NewPersistenceError("failed to mark event reevaluated", err)
	}

	return nil
}

func (a *FeedbackLogAdapter) queryEvents(ctx context.Context, query string, args ...interface{}) ([]*entities.FeedbackEvent, error) {
	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewPersistenceError("failed to query feedback events", err)
	}
	defer rows.Close()

	var events []*entities.FeedbackEvent
	for rows.Next() {
		e := &entities.FeedbackEvent{}
		var actionValue, timeToAction sql.NullFloat64
		var sessionID sql.NullString
		var factors []byte
		var reevaluatedAt sql.NullTime

		err := rows.Scan(
			&e.ID,
			&e.UserID,
			&e.ContentID,
			&e.Algorithm,
			&e.Action,
			&actionValue,
			&factors,
			&sessionID,
			&timeToAction,
			&e.Reward,
			&e.CreatedAt,
			&reevaluatedAt,
		)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan feedback event", err)
		}

		if actionValue.Valid {
			e.ActionValue = &actionValue.Float64
		}
		if timeToAction.Valid {
			e.TimeToAction = &timeToAction.Float64
		}
		if sessionID.Valid {
			e.SessionID = sessionID.String
		}
		if reevaluatedAt.Valid {
			e.ReevaluatedAt = &reevaluatedAt.Time
		}
		if len(factors) > 0 {
			if err := json.Unmarshal(factors, &e.Factors); err != nil {
				return nil, apperrors.NewInternalError("failed to decode contextual factors", err)
			}
		}

		events = append(events, e)
	}

	return events, rows.Err()
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
