package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

// DefaultResultTTL bounds how long results stay in the cache.
const DefaultResultTTL = 10 * time.Minute

const cacheKeyPrefix = "assessment:"

// ErrCacheMiss is returned by ResultCache.Fetch when the id has no entry.
var ErrCacheMiss = errors.New("assessment not cached")

// ResultCache keeps serialized assessments by id for a limited time.
type ResultCache interface {
	Put(ctx context.Context, assessmentID string, payload []byte) error
	Fetch(ctx context.Context, assessmentID string) ([]byte, error)
}

// RedisResultCache stores results under assessment:<id> with a fixed TTL.
type RedisResultCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisResultCache returns a cache expiring entries after ttl, or after
// DefaultResultTTL when ttl is not positive.
func NewRedisResultCache(client *redis.Client, ttl time.Duration) *RedisResultCache {
	if ttl <= 0 {
		ttl = DefaultResultTTL
	}
	return &RedisResultCache{client: client, ttl: ttl}
}

// TTL is the lifetime of every entry.
func (c *RedisResultCache) TTL() time.Duration {
	return c.ttl
}

// Put writes payload for assessmentID.
func (c *RedisResultCache) Put(ctx context.Context, assessmentID string, payload []byte) error {
	return c.client.Set(ctx, cacheKey(assessmentID), payload, c.ttl).Err()
}

// Fetch reads the payload for assessmentID.
func (c *RedisResultCache) Fetch(ctx context.Context, assessmentID string) ([]byte, error) {
	payload, err := c.client.Get(ctx, cacheKey(assessmentID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	return payload, err
}

func cacheKey(assessmentID string) string {
	return cacheKeyPrefix + assessmentID
}
