package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/aromaiq/recommender-backend/internal/domain/providers"
	redisclient "github.com/aromaiq/recommender-backend/internal/infrastructure/clients/redis"
)

const (
	activityWindow = 24 * time.Hour
	activityBucket = time.Hour

	// velocityCeiling is the event count over the window that maps to a
	// velocity of 1.0.
	velocityCeiling = 50
)

// ActivityAdapter counts user interactions in hourly Redis buckets and
// reports recent activity as a bounded 0-1 velocity.
type ActivityAdapter struct {
	client *redisclient.Client
}

// NewActivityAdapter creates a new activity adapter.
func NewActivityAdapter(client *redisclient.Client) providers.ActivityProvider {
	return &ActivityAdapter{client: client}
}

// RecordEvent increments the current hour's bucket for the user. Buckets
// expire one hour past the window so stale users cost nothing.
func (a *ActivityAdapter) RecordEvent(ctx context.Context, userID string) error {
	key := bucketKey(userID, time.Now().UTC())

	pipe := a.client.Client().TxPipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, activityWindow+activityBucket)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record activity event: %w", err)
	}

	return nil
}

// InteractionVelocity sums the last 24 hourly buckets and scales the count
// into [0, 1].
func (a *ActivityAdapter) InteractionVelocity(ctx context.Context, userID string) (float64, error) {
	now := time.Now().UTC()
	keys := make([]string, 0, int(activityWindow/activityBucket))
	for i := 0; i < int(activityWindow/activityBucket); i++ {
		keys = append(keys, bucketKey(userID, now.Add(-time.Duration(i)*activityBucket)))
	}

	values, err := a.client.Client().MGet(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read activity buckets: %w", err)
	}

	total := 0
	for _, v := range values {
		if s, ok := v.(string); ok {
			var count int
			if _, err := fmt.Sscanf(s, "%d", &count); err == nil {
				total += count
			}
		}
	}

	velocity := float64(total) / velocityCeiling
	if velocity > 1 {
		velocity = 1
	}
	return velocity, nil
}

func bucketKey(userID string, t time.Time) string {
	return fmt.Sprintf("activity:%s:%s", userID, t.Format("2006010215"))
}
