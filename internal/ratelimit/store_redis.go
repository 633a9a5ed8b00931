package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisBucketStore implements BucketStore on a Redis sorted set per key:
// members are admission timestamps scored by unix nanos, trimmed to the
// window on every check. Shared across server instances.
type RedisBucketStore struct {
	client *redis.Client
}

func NewRedisBucketStore(client *redis.Client) *RedisBucketStore {
	return &RedisBucketStore{client: client}
}

func (s *RedisBucketStore) bucketKey(key string) string {
	return "ratelimit:bucket:" + key
}

// allowScript trims, counts and records in one atomic step so concurrent
// requests from multiple server instances cannot all pass the count check.
// Returns {allowed, count, oldestScore}.
var allowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, 0, now - window)
local count = redis.call('ZCARD', key)
if count < limit then
	redis.call('ZADD', key, now, ARGV[4])
	redis.call('PEXPIRE', key, math.ceil(window / 1000000))
	return {1, count + 1, 0}
end

local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
local oldestScore = 0
if oldest[2] then
	oldestScore = tonumber(oldest[2])
end
return {0, count, oldestScore}
`)

func (s *RedisBucketStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (*Result, error) {
	now := time.Now()
	member := strconv.FormatInt(now.UnixNano(), 10) + "-" + uuid.NewString()

	raw, err := allowScript.Run(ctx, s.client,
		[]string{s.bucketKey(key)},
		now.UnixNano(), window.Nanoseconds(), limit, member,
	).Slice()
	if err != nil {
		return nil, fmt.Errorf("ratelimit check %s: %w", key, err)
	}
	if len(raw) != 3 {
		return nil, fmt.Errorf("ratelimit check %s: unexpected reply shape", key)
	}

	allowed, _ := raw[0].(int64)
	count, _ := raw[1].(int64)

	if allowed != 1 {
		resetAt := now.Add(window)
		if oldest, ok := raw[2].(int64); ok && oldest > 0 {
			resetAt = time.Unix(0, oldest).Add(window)
		}
		return &Result{
			Allowed:   false,
			Remaining: 0,
			Limit:     limit,
			ResetAt:   resetAt,
		}, nil
	}

	return &Result{
		Allowed:   true,
		Remaining: limit - int(count),
		Limit:     limit,
		ResetAt:   now.Add(window),
	}, nil
}

func (s *RedisBucketStore) CurrentCount(ctx context.Context, key string) (int, error) {
	count, err := s.client.ZCard(ctx, s.bucketKey(key)).Result()
	if err != nil {
		return 0, fmt.Errorf("ratelimit count %s: %w", key, err)
	}
	return int(count), nil
}

func (s *RedisBucketStore) Reset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.bucketKey(key)).Err(); err != nil {
		return fmt.Errorf("ratelimit reset %s: %w", key, err)
	}
	return nil
}
