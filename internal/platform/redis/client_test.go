package redis

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"landledger/internal/platform/config"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "landledger:nonce:0xabc", Key("nonce", "0xabc"))
	assert.Equal(t, "landledger:ratelimit:ip:auth:10.0.0.1", Key("ratelimit", "ip:auth:10.0.0.1"))
}

func TestNewWithoutURLDisablesRedis(t *testing.T) {
	client, err := New(context.Background(), config.RedisConfig{})
	require.NoError(t, err)
	assert.Nil(t, client)
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New(context.Background(), config.RedisConfig{URL: "http://not-redis"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse redis URL")
}

func TestApplyPoolKeepsDefaultsForZeroValues(t *testing.T) {
	opts := &goredis.Options{PoolSize: 40, DialTimeout: 5 * time.Second}
	applyPool(opts, config.RedisConfig{MinIdleConns: 2, ReadTimeout: time.Second})

	assert.Equal(t, 40, opts.PoolSize)
	assert.Equal(t, 2, opts.MinIdleConns)
	assert.Equal(t, 5*time.Second, opts.DialTimeout)
	assert.Equal(t, time.Second, opts.ReadTimeout)
}
