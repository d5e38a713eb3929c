package nonce

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	platformredis "landledger/internal/platform/redis"
	"landledger/pkg/platform/sentinel"
)

var nonceKeyPrefix = platformredis.Key("nonce") + ":"

// RedisStore shares challenges across instances so a login may land on a
// different replica than the nonce request.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Put overwrites any outstanding nonce for the address.
func (s *RedisStore) Put(ctx context.Context, address, nonce string, ttl time.Duration) error {
	if err := validateTTL(ttl); err != nil {
		return err
	}
	return s.client.Set(ctx, nonceKeyPrefix+address, nonce, ttl).Err()
}

// Consume uses GETDEL so two concurrent logins cannot both redeem it.
func (s *RedisStore) Consume(ctx context.Context, address string) (string, error) {
	nonce, err := s.client.GetDel(ctx, nonceKeyPrefix+address).Result()
	if errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("nonce not found: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return "", err
	}
	return nonce, nil
}
