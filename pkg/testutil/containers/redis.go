//go:build integration

package containers

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"landledger/internal/platform/config"
	platformredis "landledger/internal/platform/redis"
)

// RedisContainer backs the nonce, property cache and rate limit suites.
// Client is opened through platformredis.New, the same path the server uses.
type RedisContainer struct {
	Container *tcredis.RedisContainer
	URL       string
	Client    *redis.Client

	platform *platformredis.Client
}

func NewRedisContainer(t *testing.T) *RedisContainer {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Fatalf("start redis container: %v", err)
	}

	url, err := container.ConnectionString(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("redis connection string: %v", err)
	}

	client, err := platformredis.New(ctx, config.RedisConfig{URL: url, PoolSize: 4})
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("open redis: %v", err)
	}

	return &RedisContainer{Container: container, URL: url, Client: client.Client, platform: client}
}

// FlushAll drops the landledger namespace so suites sharing the container
// start from empty buckets, nonces and cache entries.
func (r *RedisContainer) FlushAll(ctx context.Context) error {
	_, err := r.platform.PurgeNamespace(ctx)
	return err
}
