// Package health provides readiness checks for the feed service's dependencies.
package health

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Checker is a named dependency probe.
type Checker interface {
	Name() string
	HealthCheck(ctx context.Context) error
}

// RedisChecker pings the Redis instance that holds shared rate limit counters.
type RedisChecker struct {
	client redis.UniversalClient
}

// NewRedisChecker creates a new Redis health checker.
func NewRedisChecker(client redis.UniversalClient) *RedisChecker {
	return &RedisChecker{client: client}
}

// Name implements Checker.
func (r *RedisChecker) Name() string { return "redis" }

// HealthCheck sends PING within ctx.
func (r *RedisChecker) HealthCheck(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
