package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aromaiq/recommender-backend/internal/domain/entities"
	"github.com/aromaiq/recommender-backend/internal/domain/repositories"
	"github.com/aromaiq/recommender-backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/aromaiq/recommender-backend/pkg/errors"
)

// MetricsAdapter stores periodic success-rate snapshots in Postgres.
type MetricsAdapter struct {
	client *postgres.Client
}

// NewMetricsAdapter creates a new metrics adapter.
func NewMetricsAdapter(client *postgres.Client) repositories.MetricsRepository {
	return &MetricsAdapter{client: client}
}

// GetHistoricalMetrics returns snapshots inside the window, oldest first.
func (a *MetricsAdapter) GetHistoricalMetrics(ctx context.Context, algorithm entities.Algorithm, contextHash string, windowDays int) ([]*entities.PerformanceSnapshot, error) {
	if windowDays <= 0 {
		windowDays = 30
	}

	query := `
		SELECT id, algorithm_name, context_hash, period, success_rate, sample_size
		FROM bandit_performance_metrics
		WHERE algorithm_name = $1 AND context_hash = $2 AND period >= $3
		ORDER BY period ASC
	`

	since := time.Now().UTC().AddDate(0, 0, -windowDays)
	rows, err := a.client.DB().QueryContext(ctx, query, string(algorithm), contextHash, since)
	if err != nil {
		return nil, apperrors.NewPersistenceError("failed to query performance metrics", err)
	}
	defer rows.Close()

	var snapshots []*entities.PerformanceSnapshot
	for rows.Next() {
		s := &entities.PerformanceSnapshot{}
		err := rows.Scan(&s.ID, &s.Algorithm, &s.ContextHash, &s.Period, &s.SuccessRate, &s.SampleSize)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan performance snapshot", err)
		}
		snapshots = append(snapshots, s)
	}

	return snapshots, rows.Err()
}

// RecordSnapshot inserts one periodic observation.
func (a *MetricsAdapter) RecordSnapshot(ctx context.Context, snapshot *entities.PerformanceSnapshot) error {
	if snapshot == nil {
		return apperrors.NewValidationError("snapshot is nil")
	}
	if snapshot.ID == "" {
		snapshot.ID = uuid.New().String()
	}
	if snapshot.Period.IsZero() {
		snapshot.Period = time.Now().UTC()
	}

	query := `
		INSERT INTO bandit_performance_metrics
		(id, algorithm_name, context_hash, period, success_rate, sample_size)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := a.client.DB().ExecContext(ctx, query,
		snapshot.ID,
		string(snapshot.Algorithm),
		snapshot.ContextHash,
		snapshot.Period,
		snapshot.SuccessRate,
		snapshot.SampleSize,
	)
	if err != nil {
		return apperrors.NewPersistenceError(fmt.Sprintf("failed to record snapshot for %s", snapshot.Algorithm), err)
	}

	return nil
}
