package ratelimit

import (
	"context"
	"testing"
	"time"

	pkgerrors "execjudge/pkg/errors"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestFixedWindowLimiterRejectsAfterMax(t *testing.T) {
	_, client := newTestRedis(t)
	limiter := NewFixedWindowLimiter(client, "judge:rate:", 2, time.Minute, time.Second)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := limiter.Allow(ctx, "192.0.2.1"); err != nil {
			t.Fatalf("attempt %d rejected: %v", i+1, err)
		}
	}
	err := limiter.Allow(ctx, "192.0.2.1")
	if pkgerrors.GetCode(err) != pkgerrors.TooManyRequests {
		t.Fatalf("expected TooManyRequests, got %v", err)
	}
	if err := limiter.Allow(ctx, "192.0.2.2"); err != nil {
		t.Fatalf("other key should be admitted: %v", err)
	}
}

func TestFixedWindowLimiterWindowExpires(t *testing.T) {
	mr, client := newTestRedis(t)
	limiter := NewFixedWindowLimiter(client, "judge:rate:", 1, time.Second, time.Second)
	ctx := context.Background()

	if err := limiter.Allow(ctx, "k"); err != nil {
		t.Fatalf("first request rejected: %v", err)
	}
	if err := limiter.Allow(ctx, "k"); err == nil {
		t.Fatal("second request should be rejected")
	}
	mr.FastForward(2 * time.Second)
	if err := limiter.Allow(ctx, "k"); err != nil {
		t.Fatalf("request after window rejected: %v", err)
	}
}

func TestFixedWindowLimiterRestoresMissingTTL(t *testing.T) {
	mr, client := newTestRedis(t)
	limiter := NewFixedWindowLimiter(client, "judge:rate:", 5, time.Minute, time.Second)

	if err := mr.Set("judge:rate:k", "1"); err != nil {
		t.Fatalf("seed key failed: %v", err)
	}
	if err := limiter.Allow(context.Background(), "k"); err != nil {
		t.Fatalf("request rejected: %v", err)
	}
	if ttl := mr.TTL("judge:rate:k"); ttl <= 0 {
		t.Fatalf("expected ttl to be restored, got %v", ttl)
	}
}

func TestFixedWindowLimiterStoreUnavailable(t *testing.T) {
	limiter := NewFixedWindowLimiter(nil, "judge:rate:", 1, time.Second, time.Second)
	err := limiter.Allow(context.Background(), "k")
	if pkgerrors.GetCode(err) != pkgerrors.ServiceUnavailable {
		t.Fatalf("unexpected error code: %v", err)
	}
}

func TestFixedWindowLimiterStoreError(t *testing.T) {
	mr, client := newTestRedis(t)
	limiter := NewFixedWindowLimiter(client, "judge:rate:", 1, time.Second, time.Second)
	mr.SetError("server down")

	err := limiter.Allow(context.Background(), "k")
	if pkgerrors.GetCode(err) != pkgerrors.CacheError {
		t.Fatalf("unexpected error code: %v", err)
	}
}

func TestNewRedisClientRequiresAddr(t *testing.T) {
	if _, err := NewRedisClient(context.Background(), DefaultRedisConfig()); err == nil {
		t.Fatal("expected error for empty addr")
	}
}
