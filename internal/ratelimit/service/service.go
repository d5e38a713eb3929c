// Package service decides whether a client may make another request.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"landledger/internal/platform/config"
	"landledger/internal/ratelimit/metrics"
	"landledger/internal/ratelimit/models"
)

// BucketStore keeps one sliding window per key.
type BucketStore interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error)
}

type Service struct {
	buckets BucketStore
	limits  map[models.EndpointClass]models.Limit
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithLimit overrides the budget of one class.
func WithLimit(class models.EndpointClass, limit models.Limit) Option {
	return func(s *Service) {
		s.limits[class] = limit
	}
}

// DefaultLimits turns per-minute budgets from config into class limits.
func DefaultLimits(cfg config.RateLimitConfig) map[models.EndpointClass]models.Limit {
	return map[models.EndpointClass]models.Limit{
		models.ClassAuth:  {Requests: cfg.AuthPerMinute, Window: time.Minute},
		models.ClassWrite: {Requests: cfg.WritePerMinute, Window: time.Minute},
	}
}

func New(buckets BucketStore, limits map[models.EndpointClass]models.Limit, opts ...Option) (*Service, error) {
	if buckets == nil {
		return nil, errors.New("bucket store is required")
	}
	s := &Service{
		buckets: buckets,
		limits:  make(map[models.EndpointClass]models.Limit, len(limits)),
	}
	for class, limit := range limits {
		s.limits[class] = limit
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CheckIPRateLimit counts one request from ip against class.
func (s *Service) CheckIPRateLimit(ctx context.Context, ip string, class models.EndpointClass) (*models.RateLimitResult, error) {
	limit, ok := s.limits[class]
	if !ok || !class.IsValid() {
		return nil, fmt.Errorf("no rate limit for endpoint class %q", class)
	}
	result, err := s.buckets.Allow(ctx, fmt.Sprintf("ip:%s:%s", class, ip), limit.Requests, limit.Window)
	if err != nil {
		s.metrics.IncrementStoreErrors()
		return nil, err
	}
	if !result.Allowed {
		s.metrics.IncrementRejected(string(class))
	}
	return result, nil
}
