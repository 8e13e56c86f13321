package middleware

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// newTestRedis connects to a Redis on localhost:6379 or skips the test.
func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		t.Skip("Redis not available, skipping integration test")
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func uniqueKey(prefix string) string {
	return prefix + strconv.FormatInt(time.Now().UnixNano(), 10)
}

func TestRedisRateLimitStore_Allow(t *testing.T) {
	client := newTestRedis(t)
	store := NewRedisRateLimitStore(client)
	config := RateLimitConfig{RequestsPerWindow: 5, WindowDuration: time.Minute}
	ctx := context.Background()

	key := uniqueKey("test-redis-key-")
	t.Cleanup(func() { client.Del(ctx, redisKeyPrefix+key) })

	for i := 0; i < 5; i++ {
		allowed, remaining, _ := store.Allow(ctx, key, config)
		if !allowed {
			t.Errorf("request %d should be allowed", i+1)
		}
		if remaining != 4-i {
			t.Errorf("request %d: expected remaining=%d, got %d", i+1, 4-i, remaining)
		}
	}

	allowed, remaining, retryAfter := store.Allow(ctx, key, config)
	if allowed {
		t.Error("6th request should be blocked")
	}
	if remaining != 0 {
		t.Errorf("expected remaining=0 when blocked, got %d", remaining)
	}
	if retryAfter <= 0 || retryAfter > 60 {
		t.Errorf("expected retryAfter between 1 and 60, got %d", retryAfter)
	}
}

func TestRedisRateLimitStore_DifferentKeys(t *testing.T) {
	client := newTestRedis(t)
	store := NewRedisRateLimitStore(client)
	config := RateLimitConfig{RequestsPerWindow: 1, WindowDuration: time.Minute}
	ctx := context.Background()

	key1, key2 := uniqueKey("test-redis-key1-"), uniqueKey("test-redis-key2-")
	t.Cleanup(func() { client.Del(ctx, redisKeyPrefix+key1, redisKeyPrefix+key2) })

	allowed1, _, _ := store.Allow(ctx, key1, config)
	allowed2, _, _ := store.Allow(ctx, key2, config)
	if !allowed1 || !allowed2 {
		t.Error("both keys should be allowed their first request")
	}

	blocked1, _, _ := store.Allow(ctx, key1, config)
	blocked2, _, _ := store.Allow(ctx, key2, config)
	if blocked1 || blocked2 {
		t.Error("both keys should be blocked after reaching limit")
	}
}

func TestRedisRateLimitStore_WindowExpiry(t *testing.T) {
	client := newTestRedis(t)
	store := NewRedisRateLimitStore(client)
	config := RateLimitConfig{RequestsPerWindow: 1, WindowDuration: 100 * time.Millisecond}
	ctx := context.Background()

	key := uniqueKey("test-redis-expiry-")
	t.Cleanup(func() { client.Del(ctx, redisKeyPrefix+key) })

	if allowed, _, _ := store.Allow(ctx, key, config); !allowed {
		t.Error("first request should be allowed")
	}
	if allowed, _, _ := store.Allow(ctx, key, config); allowed {
		t.Error("second request should be blocked")
	}

	time.Sleep(150 * time.Millisecond)

	if allowed, _, _ := store.Allow(ctx, key, config); !allowed {
		t.Error("request after window expiry should be allowed")
	}
}

func TestRedisRateLimitStore_FailOpen(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "localhost:9999",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	m := NewMetrics()
	store := NewRedisRateLimitStore(client, WithRedisMetrics(m))
	config := RateLimitConfig{RequestsPerWindow: 5, WindowDuration: time.Minute}

	allowed, remaining, _ := store.Allow(context.Background(), "test-key", config)
	if !allowed {
		t.Error("should fail open and allow request when Redis is unavailable")
	}
	if remaining != config.RequestsPerWindow {
		t.Errorf("should return full quota on error, got %d", remaining)
	}
	if v := counterValue(t, m.rateLimitRedisErrors); v != 1 {
		t.Errorf("redis errors = %v, want 1", v)
	}
}
