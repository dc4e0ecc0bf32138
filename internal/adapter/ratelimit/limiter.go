// Package ratelimit throttles expensive per-profile operations with a token
// bucket kept in Redis, so several daemons sharing one Redis share the budget.
package ratelimit

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces bucket keys.
const KeyPrefix = "pgdev:rate:"

// Limiter reports whether an operation identified by key may run now.
type Limiter interface {
	Allow(ctx context.Context, key string) (allowed bool, retryAfter time.Duration, err error)
}

// BucketConfig sizes a bucket. RefillRate is tokens per second.
type BucketConfig struct {
	Capacity   int64
	RefillRate float64
}

// PerMinute returns a bucket that allows n operations a minute with bursts of n.
func PerMinute(n int) BucketConfig {
	if n <= 0 {
		return BucketConfig{}
	}
	return BucketConfig{Capacity: int64(n), RefillRate: float64(n) / 60.0}
}

// Enabled reports whether the bucket limits anything.
func (c BucketConfig) Enabled() bool { return c.Capacity > 0 && c.RefillRate > 0 }

// returns {allowed, tokens (string), retry_after_ms}
const tokenBucketScript = `
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local refill_rate = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

local tokens = capacity
local last_refill = now

local data = redis.call("HMGET", key, "tokens", "last_refill")
if data[1] then
  tokens = tonumber(data[1])
end
if data[2] then
  last_refill = tonumber(data[2])
end

local delta = now - last_refill
if delta < 0 then
  delta = 0
end
tokens = math.min(capacity, tokens + delta * refill_rate)

local allowed = 0
local retry_after = 0
if tokens >= 1 then
  tokens = tokens - 1
  allowed = 1
else
  retry_after = math.ceil((1 - tokens) / refill_rate * 1000)
end

redis.call("HSET", key, "tokens", tostring(tokens), "last_refill", tostring(now))
redis.call("EXPIRE", key, ttl)
return { allowed, tostring(tokens), retry_after }
`

// RedisLimiter is a token bucket evaluated atomically by a Lua script.
type RedisLimiter struct {
	rdb    redis.UniversalClient
	cfg    BucketConfig
	script *redis.Script
	now    func() time.Time
}

// NewRedisLimiter returns a limiter over rdb. A nil client or disabled
// config yields nil, which allows everything.
func NewRedisLimiter(rdb redis.UniversalClient, cfg BucketConfig) *RedisLimiter {
	if rdb == nil || !cfg.Enabled() {
		return nil
	}
	return &RedisLimiter{rdb: rdb, cfg: cfg, script: redis.NewScript(tokenBucketScript), now: time.Now}
}

// Allow takes one token from key's bucket. Redis failures fail open and
// return the error for logging.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	if l == nil {
		return true, 0, nil
	}
	nowSec := float64(l.now().UnixNano()) / 1e9
	// keep idle buckets just long enough to refill completely
	ttl := int64(float64(l.cfg.Capacity)/l.cfg.RefillRate) + 1
	res, err := l.script.Run(ctx, l.rdb, []string{KeyPrefix + key},
		l.cfg.Capacity, l.cfg.RefillRate, strconv.FormatFloat(nowSec, 'f', 6, 64), ttl).Slice()
	if err != nil {
		slog.Error("rate limiter script error", slog.String("key", key), slog.Any("error", err))
		return true, 0, err
	}
	if len(res) < 3 {
		slog.Error("rate limiter unexpected script result", slog.String("key", key), slog.Any("result", res))
		return true, 0, nil
	}
	allowed := toInt64(res[0]) == 1
	retryAfter := time.Duration(toInt64(res[2])) * time.Millisecond
	return allowed, retryAfter, nil
}

func toInt64(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case string:
		n, _ := strconv.ParseInt(t, 10, 64)
		return n
	default:
		return 0
	}
}
