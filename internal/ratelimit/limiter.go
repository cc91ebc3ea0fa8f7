// Package ratelimit applies a Redis-backed fixed-window limit to client API calls.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyNamespace    = "pos"
	rateLimitPrefix = "rate_limit"
)

type cmdable interface {
	Ping(context.Context) *redis.StatusCmd
	Incr(context.Context, string) *redis.IntCmd
	Expire(context.Context, string, time.Duration) *redis.BoolCmd
	TTL(context.Context, string) *redis.DurationCmd
	Del(context.Context, ...string) *redis.IntCmd
}

// noExpiry is what TTL reports for a key that exists without a timeout.
const noExpiry = time.Duration(-1)

// Limiter counts requests per scope in fixed windows.
type Limiter struct {
	store  cmdable
	raw    *redis.Client
	limit  int64
	window time.Duration
}

// New connects to redisURL and verifies connectivity.
func New(ctx context.Context, redisURL string, limit int64, window time.Duration) (*Limiter, error) {
	if redisURL == "" {
		return nil, errors.New("redis url is required")
	}
	if limit <= 0 || window <= 0 {
		return nil, fmt.Errorf("invalid rate limit %d per %s", limit, window)
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	raw := redis.NewClient(opts)
	if err := raw.Ping(ctx).Err(); err != nil {
		raw.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Limiter{store: raw, raw: raw, limit: limit, window: window}, nil
}

// Allow increments the scope's counter and reports whether it is within the limit.
func (l *Limiter) Allow(ctx context.Context, scope string) (bool, error) {
	allowed, _, err := l.fixedWindowAllow(ctx, scope)
	return allowed, err
}

func (l *Limiter) fixedWindowAllow(ctx context.Context, scope string) (bool, int64, error) {
	if l.store == nil {
		return false, 0, errors.New("redis client not initialized")
	}
	key := l.Key(scope)
	count, err := l.store.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, err
	}
	// the first hit in a window starts its TTL
	if count == 1 {
		if err := l.store.Expire(ctx, key, l.window).Err(); err != nil {
			// a counter without a TTL would never reset
			l.store.Del(ctx, key)
			return false, count, err
		}
	}
	allowed := count <= l.limit
	if !allowed {
		if err := l.repairExpiry(ctx, key); err != nil {
			return false, count, err
		}
	}
	return allowed, count, nil
}

// repairExpiry gives key a TTL when an earlier window start lost it.
func (l *Limiter) repairExpiry(ctx context.Context, key string) error {
	ttl, err := l.store.TTL(ctx, key).Result()
	if err != nil {
		return err
	}
	if ttl != noExpiry {
		return nil
	}
	return l.store.Expire(ctx, key, l.window).Err()
}

// Key returns the namespaced counter key for scope.
func (l *Limiter) Key(scope string) string {
	parts := []string{keyNamespace, rateLimitPrefix}
	if scope = strings.TrimSpace(scope); scope != "" {
		parts = append(parts, scope)
	}
	return strings.Join(parts, ":")
}

func (l *Limiter) Ping(ctx context.Context) error {
	if l.store == nil {
		return errors.New("redis client not initialized")
	}
	return l.store.Ping(ctx).Err()
}

func (l *Limiter) Close() error {
	if l.raw == nil {
		return nil
	}
	return l.raw.Close()
}
