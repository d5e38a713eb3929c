// Package redis opens the optional Redis connection shared by the nonce store,
// the property cache and the rate limit buckets.
package redis

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"landledger/internal/platform/config"
)

// KeyPrefix namespaces every key landledger writes.
const KeyPrefix = "landledger:"

// Key joins parts under KeyPrefix, e.g. Key("nonce", addr) is "landledger:nonce:<addr>".
func Key(parts ...string) string {
	return KeyPrefix + strings.Join(parts, ":")
}

// Client embeds go-redis so stores can take the raw *redis.Client.
type Client struct {
	*redis.Client
}

// New returns nil, nil when REDIS_URL is unset; callers fall back to memory.
func New(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	applyPool(opts, cfg)

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &Client{Client: client}, nil
}

func applyPool(opts *redis.Options, cfg config.RedisConfig) {
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	opts.MinIdleConns = cfg.MinIdleConns
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if cfg.ReadTimeout > 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}
}

// Health backs the /health redis check.
func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx).Err()
}

// PurgeNamespace deletes every landledger key and reports how many went.
func (c *Client) PurgeNamespace(ctx context.Context) (int, error) {
	deleted := 0
	iter := c.Scan(ctx, 0, KeyPrefix+"*", 256).Iterator()
	for iter.Next(ctx) {
		if err := c.Del(ctx, iter.Val()).Err(); err != nil {
			return deleted, fmt.Errorf("delete %s: %w", iter.Val(), err)
		}
		deleted++
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("scan namespace: %w", err)
	}
	return deleted, nil
}
