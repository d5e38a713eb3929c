package store

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"landledger/pkg/platform/circuit"
)

// unreachableClient fails fast: nothing listens on port 1.
func unreachableClient(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestCacheOpensBreakerAndBypassesRedis(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cache := NewRedisPropertyCache(unreachableClient(t),
		WithRetryInterval(time.Minute),
		WithCacheClock(func() time.Time { return now }),
	)
	ctx := context.Background()

	for range 5 {
		_, ok := cache.Get(ctx, 1)
		assert.False(t, ok)
	}
	assert.Equal(t, circuit.StateOpen, cache.BreakerState())

	// One attempt is let through per interval; the rest are skipped.
	assert.True(t, cache.available())
	assert.False(t, cache.available())

	now = now.Add(time.Minute)
	assert.True(t, cache.available())
}

func TestPropertyKey(t *testing.T) {
	assert.Equal(t, "landledger:property:42", propertyKey(42))
}
