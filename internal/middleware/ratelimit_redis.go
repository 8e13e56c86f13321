package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisKeyPrefix namespaces rate limit counters in a shared Redis.
const redisKeyPrefix = "ratelimit:"

// fixedWindowScript increments the counter and starts the window on the first
// hit. It returns the count and the remaining TTL in milliseconds.
var fixedWindowScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
local ttl = redis.call('PTTL', KEYS[1])
if count == 1 or ttl < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

// RedisRateLimitStore implements RateLimitStore with a fixed window counter in
// Redis so every API replica shares one budget per key.
//
// Redis errors fail open: the request is allowed with a full quota and the
// error is counted.
type RedisRateLimitStore struct {
	client  redis.Scripter
	metrics *Metrics
	logger  *slog.Logger
}

// RedisStoreOption configures a RedisRateLimitStore.
type RedisStoreOption func(*RedisRateLimitStore)

// WithRedisMetrics counts fail-open events on m.
func WithRedisMetrics(m *Metrics) RedisStoreOption {
	return func(s *RedisRateLimitStore) { s.metrics = m }
}

// WithRedisLogger logs fail-open events on logger.
func WithRedisLogger(logger *slog.Logger) RedisStoreOption {
	return func(s *RedisRateLimitStore) { s.logger = logger }
}

// NewRedisRateLimitStore creates a store backed by client.
func NewRedisRateLimitStore(client redis.Scripter, opts ...RedisStoreOption) *RedisRateLimitStore {
	s := &RedisRateLimitStore{
		client: client,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Allow implements RateLimitStore.
func (s *RedisRateLimitStore) Allow(ctx context.Context, key string, config RateLimitConfig) (bool, int, int) {
	res, err := fixedWindowScript.Run(ctx, s.client, []string{redisKeyPrefix + key}, config.WindowDuration.Milliseconds()).Int64Slice()
	if err != nil || len(res) != 2 {
		s.metrics.IncRateLimitRedisErrors()
		s.logger.WarnContext(ctx, "rate limit store unavailable, allowing request",
			slog.String("key_type", keyType(key)),
			slog.Any("error", err),
		)
		return true, config.RequestsPerWindow, 0
	}

	count, ttl := int(res[0]), time.Duration(res[1])*time.Millisecond
	if count <= config.RequestsPerWindow {
		return true, config.RequestsPerWindow - count, 0
	}
	return false, 0, retryAfterSeconds(ttl)
}
