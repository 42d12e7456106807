package repositories

import (
	"context"

	"github.com/aromaiq/recommender-backend/internal/domain/entities"
)

// MetricsRepository stores periodic success-rate snapshots used by the
// performance tracker. Read-mostly; snapshots are written by a rollup job.
type MetricsRepository interface {
	GetHistoricalMetrics(ctx context.Context, algorithm entities.Algorithm, contextHash string, windowDays int) ([]*entities.PerformanceSnapshot, error)
	RecordSnapshot(ctx context.Context, snapshot *entities.PerformanceSnapshot) error
}
