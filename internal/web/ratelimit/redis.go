package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// slidingWindow trims entries older than the window, then admits the request
// when fewer than limit remain. Returns {allowed, count, oldest_score}.
var slidingWindow = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window_start = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])
local member = ARGV[5]

redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)
local current = redis.call('ZCARD', key)
local allowed = 0
if current < limit then
	redis.call('ZADD', key, now, member)
	current = current + 1
	allowed = 1
end
redis.call('PEXPIRE', key, ttl)

local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
local oldest_score = now
if oldest[2] then
	oldest_score = tonumber(oldest[2])
end
return {allowed, current, oldest_score}
`)

// RedisRateLimiter implements a Redis-backed sliding window rate limiter
type RedisRateLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	prefix string
	now    func() time.Time
}

// RedisRateLimiterConfig holds configuration for the Redis rate limiter
type RedisRateLimiterConfig struct {
	Client *redis.Client
	Limit  int
	Window time.Duration
	Prefix string
}

// NewRedisRateLimiter creates a new Redis rate limiter
func NewRedisRateLimiter(config RedisRateLimiterConfig) (*RedisRateLimiter, error) {
	if config.Client == nil {
		return nil, errors.New("redis client is required")
	}
	if config.Limit <= 0 {
		return nil, errors.New("limit must be greater than 0")
	}
	if config.Window <= 0 {
		return nil, errors.New("window must be greater than 0")
	}
	if config.Prefix == "" {
		config.Prefix = "ratelimit:"
	}

	return &RedisRateLimiter{
		client: config.Client,
		limit:  config.Limit,
		window: config.Window,
		prefix: config.Prefix,
		now:    time.Now,
	}, nil
}

// Allow checks if a request should be allowed for the given key
func (r *RedisRateLimiter) Allow(ctx context.Context, key string) (*RateLimitInfo, error) {
	now := r.now()
	windowStart := now.Add(-r.window)

	result, err := slidingWindow.Run(ctx, r.client, []string{r.prefix + key},
		now.UnixMilli(),
		windowStart.UnixMilli(),
		r.limit,
		r.window.Milliseconds(),
		uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("redis rate limit check failed: %w", err)
	}
	if len(result) != 3 {
		return nil, errors.New("unexpected redis script result")
	}

	remaining := r.limit - int(result[1])
	if remaining < 0 {
		remaining = 0
	}

	return &RateLimitInfo{
		Limit:     r.limit,
		Remaining: remaining,
		ResetAt:   time.UnixMilli(result[2]).Add(r.window),
		Allowed:   result[0] == 1,
	}, nil
}

// Reset removes all rate limit data for the given key
func (r *RedisRateLimiter) Reset(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.prefix+key).Err()
}
