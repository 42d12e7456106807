//go:build integration

package cache

import (
	"context"
	"os"
	"strconv"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisclient "github.com/aromaiq/recommender-backend/internal/infrastructure/clients/redis"
	"github.com/aromaiq/recommender-backend/pkg/config"
)

func newTestRedisClient(t *testing.T) *redisclient.Client {
	t.Helper()

	if os.Getenv("TEST_REDIS_HOST") == "" {
		t.Skip("Skipping integration test: TEST_REDIS_HOST not set")
	}

	port := 6379
	if raw := os.Getenv("TEST_REDIS_PORT"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			port = parsed
		}
	}

	cfg := &config.RedisConfig{
		Host:     os.Getenv("TEST_REDIS_HOST"),
		Port:     port,
		Password: os.Getenv("TEST_REDIS_PASSWORD"),
	}

	client, err := redisclient.NewClient(cfg)
	require.NoError(t, err, "Failed to create redis client")
	return client
}

func TestActivityAdapter_VelocityIntegration(t *testing.T) {
	client := newTestRedisClient(t)
	defer client.Close()

	adapter := NewActivityAdapter(client)
	ctx := context.Background()
	userID := "it-" + uuid.New().String()

	velocity, err := adapter.InteractionVelocity(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, velocity)

	for i := 0; i < 10; i++ {
		require.NoError(t, adapter.RecordEvent(ctx, userID))
	}

	velocity, err = adapter.InteractionVelocity(ctx, userID)
	require.NoError(t, err)
	assert.InDelta(t, 0.2, velocity, 1e-9)
}

func TestRedisAdapter_CacheRoundTripIntegration(t *testing.T) {
	client := newTestRedisClient(t)
	defer client.Close()

	adapter := NewRedisAdapter(client)
	ctx := context.Background()
	key := "it:cache:" + uuid.New().String()

	exists, err := adapter.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, adapter.Set(ctx, key, []byte("payload"), 60))

	exists, err = adapter.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, exists)

	value, err := adapter.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), value)

	require.NoError(t, adapter.Delete(ctx, key))
	exists, err = adapter.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, exists)
}
