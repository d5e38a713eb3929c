//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"landledger/internal/ratelimit/store"
	"landledger/pkg/testutil/containers"
)

type RedisBucketStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *store.RedisBucketStore
}

func TestRedisBucketStoreSuite(t *testing.T) {
	suite.Run(t, new(RedisBucketStoreSuite))
}

func (s *RedisBucketStoreSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.store = store.NewRedisBucketStore(s.redis.Client)
}

func (s *RedisBucketStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisBucketStoreSuite) TestLimitIsShared() {
	ctx := context.Background()
	other := store.NewRedisBucketStore(s.redis.Client)

	for i := range 3 {
		result, err := s.store.Allow(ctx, "ip:auth:10.0.0.1", 4, time.Minute)
		s.Require().NoError(err)
		s.True(result.Allowed)
		s.Equal(4-(i+1), result.Remaining)
	}
	result, err := other.Allow(ctx, "ip:auth:10.0.0.1", 4, time.Minute)
	s.Require().NoError(err)
	s.True(result.Allowed)

	result, err = s.store.Allow(ctx, "ip:auth:10.0.0.1", 4, time.Minute)
	s.Require().NoError(err)
	s.False(result.Allowed)
	s.Equal(0, result.Remaining)
	s.GreaterOrEqual(result.RetryAfter, 1)
}

func (s *RedisBucketStoreSuite) TestWindowExpires() {
	ctx := context.Background()
	_, err := s.store.Allow(ctx, "ip:write:10.0.0.2", 1, time.Second)
	s.Require().NoError(err)

	result, err := s.store.Allow(ctx, "ip:write:10.0.0.2", 1, time.Second)
	s.Require().NoError(err)
	s.False(result.Allowed)

	time.Sleep(1100 * time.Millisecond)
	result, err = s.store.Allow(ctx, "ip:write:10.0.0.2", 1, time.Second)
	s.Require().NoError(err)
	s.True(result.Allowed)
}

func (s *RedisBucketStoreSuite) TestReset() {
	ctx := context.Background()
	_, err := s.store.Allow(ctx, "ip:auth:10.0.0.3", 1, time.Minute)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Reset(ctx, "ip:auth:10.0.0.3"))

	result, err := s.store.Allow(ctx, "ip:auth:10.0.0.3", 1, time.Minute)
	s.Require().NoError(err)
	s.True(result.Allowed)
}
