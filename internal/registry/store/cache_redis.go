package store

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	platformredis "landledger/internal/platform/redis"
	"landledger/internal/registry/models"
	"landledger/pkg/platform/circuit"
)

const (
	defaultCacheTTL      = 30 * time.Second
	defaultRetryInterval = 10 * time.Second
)

// setIfNewer stores a property hash unless the cached version is at least
// as new. KEYS[1] key, ARGV[1] version, ARGV[2] JSON, ARGV[3] ttl in ms.
var setIfNewer = redis.NewScript(`
local current = redis.call('HGET', KEYS[1], 'v')
if current and tonumber(current) >= tonumber(ARGV[1]) then
	return 0
end
redis.call('HSET', KEYS[1], 'v', ARGV[1], 'd', ARGV[2])
redis.call('PEXPIRE', KEYS[1], ARGV[3])
return 1
`)

// RedisPropertyCache caches property reads. It is best effort: Redis errors
// count against a circuit breaker and are reported as cache misses, never
// surfaced to callers. Entries carry the row version so a stale read that
// finishes late cannot overwrite a newer committed row.
type RedisPropertyCache struct {
	client        *redis.Client
	ttl           time.Duration
	logger        *slog.Logger
	breaker       *circuit.Breaker
	retryInterval time.Duration
	now           func() time.Time

	mu          sync.Mutex
	lastAttempt time.Time
}

type CacheOption func(*RedisPropertyCache)

func WithCacheTTL(ttl time.Duration) CacheOption {
	return func(c *RedisPropertyCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func WithCacheLogger(logger *slog.Logger) CacheOption {
	return func(c *RedisPropertyCache) {
		c.logger = logger
	}
}

// WithRetryInterval sets how often an open breaker lets one request through.
func WithRetryInterval(d time.Duration) CacheOption {
	return func(c *RedisPropertyCache) {
		if d > 0 {
			c.retryInterval = d
		}
	}
}

func WithCacheClock(now func() time.Time) CacheOption {
	return func(c *RedisPropertyCache) {
		c.now = now
	}
}

func NewRedisPropertyCache(client *redis.Client, opts ...CacheOption) *RedisPropertyCache {
	c := &RedisPropertyCache{
		client:        client,
		ttl:           defaultCacheTTL,
		breaker:       circuit.New("property-cache"),
		retryInterval: defaultRetryInterval,
		now:           time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

func propertyKey(id int64) string {
	return platformredis.Key("property", strconv.FormatInt(id, 10))
}

// available is false while the breaker is open, except for one attempt per interval.
func (c *RedisPropertyCache) available() bool {
	if !c.breaker.IsOpen() {
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if now.Sub(c.lastAttempt) < c.retryInterval {
		return false
	}
	c.lastAttempt = now
	return true
}

func (c *RedisPropertyCache) record(ctx context.Context, op string, err error) {
	if err == nil {
		if _, change := c.breaker.RecordSuccess(); change.Closed && c.logger != nil {
			c.logger.InfoContext(ctx, "property cache recovered", "breaker", c.breaker.Name())
		}
		return
	}
	_, change := c.breaker.RecordFailure()
	if c.logger == nil {
		return
	}
	if change.Opened {
		c.logger.WarnContext(ctx, "property cache unavailable, bypassing redis",
			"breaker", c.breaker.Name(), "error", err)
		return
	}
	c.logger.DebugContext(ctx, "property cache error", "op", op, "error", err)
}

func (c *RedisPropertyCache) Get(ctx context.Context, id int64) (*models.Property, bool) {
	if !c.available() {
		return nil, false
	}
	raw, err := c.client.HGet(ctx, propertyKey(id), "d").Bytes()
	if errors.Is(err, redis.Nil) {
		c.record(ctx, "get", nil)
		return nil, false
	}
	c.record(ctx, "get", err)
	if err != nil {
		return nil, false
	}

	var p models.Property
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, false
	}
	return &p, true
}

// Set keeps whichever of p and the cached entry has the higher Version.
func (c *RedisPropertyCache) Set(ctx context.Context, p *models.Property) {
	if p == nil || !c.available() {
		return
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return
	}
	err = setIfNewer.Run(ctx, c.client, []string{propertyKey(p.ID)}, p.Version, raw, c.ttl.Milliseconds()).Err()
	c.record(ctx, "set", err)
}

// BreakerState exposes the breaker for health reporting.
func (c *RedisPropertyCache) BreakerState() circuit.State {
	return c.breaker.State()
}
