package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"landledger/internal/platform/config"
	"landledger/internal/ratelimit/metrics"
	"landledger/internal/ratelimit/models"
	"landledger/internal/ratelimit/store"
)

type failingBuckets struct{}

func (failingBuckets) Allow(context.Context, string, int, time.Duration) (*models.RateLimitResult, error) {
	return nil, errors.New("redis: connection refused")
}

func TestNewRequiresStore(t *testing.T) {
	_, err := New(nil, nil)
	require.Error(t, err)
}

func TestCheckIPRateLimit(t *testing.T) {
	m := metrics.NewWithRegisterer(prometheus.NewRegistry())
	svc, err := New(store.NewInMemoryBucketStore(),
		DefaultLimits(config.RateLimitConfig{AuthPerMinute: 2, WritePerMinute: 5}),
		WithMetrics(m),
	)
	require.NoError(t, err)
	ctx := context.Background()

	for range 2 {
		result, err := svc.CheckIPRateLimit(ctx, "203.0.113.7", models.ClassAuth)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
	}
	result, err := svc.CheckIPRateLimit(ctx, "203.0.113.7", models.ClassAuth)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RejectedTotal.WithLabelValues("auth")))

	t.Run("classes have separate budgets", func(t *testing.T) {
		result, err := svc.CheckIPRateLimit(ctx, "203.0.113.7", models.ClassWrite)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
		assert.Equal(t, 4, result.Remaining)
	})

	t.Run("other clients are unaffected", func(t *testing.T) {
		result, err := svc.CheckIPRateLimit(ctx, "198.51.100.1", models.ClassAuth)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
	})

	t.Run("unknown class", func(t *testing.T) {
		_, err := svc.CheckIPRateLimit(ctx, "198.51.100.1", models.EndpointClass("read"))
		assert.ErrorContains(t, err, "no rate limit")
	})
}

func TestWithLimitOverridesDefaults(t *testing.T) {
	svc, err := New(store.NewInMemoryBucketStore(),
		DefaultLimits(config.RateLimitConfig{AuthPerMinute: 10, WritePerMinute: 10}),
		WithLimit(models.ClassWrite, models.Limit{Requests: 1, Window: time.Hour}),
	)
	require.NoError(t, err)

	_, err = svc.CheckIPRateLimit(context.Background(), "192.0.2.1", models.ClassWrite)
	require.NoError(t, err)
	result, err := svc.CheckIPRateLimit(context.Background(), "192.0.2.1", models.ClassWrite)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
}

func TestStoreErrorsAreCounted(t *testing.T) {
	m := metrics.NewWithRegisterer(prometheus.NewRegistry())
	svc, err := New(failingBuckets{}, DefaultLimits(config.RateLimitConfig{AuthPerMinute: 1, WritePerMinute: 1}), WithMetrics(m))
	require.NoError(t, err)

	_, err = svc.CheckIPRateLimit(context.Background(), "192.0.2.1", models.ClassAuth)
	require.Error(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StoreErrors))
}
