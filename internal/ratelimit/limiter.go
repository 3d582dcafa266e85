// Package ratelimit throttles credential endpoints with fixed windows kept in Redis.
package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	apperrors "github.com/spec-kit/event-service/pkg/util/errorutil"
)

const keyPrefix = "ratelimit:"

// Limiter counts hits per key within a fixed window.
type Limiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	logger *zap.Logger
}

// New builds a limiter allowing limit hits per window.
func New(client *redis.Client, limit int, window time.Duration, logger *zap.Logger) *Limiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Limiter{client: client, limit: limit, window: window, logger: logger}
}

// Allow records a hit for key and reports whether it is within the limit,
// along with the time left in the current window.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	k := keyPrefix + key
	n, err := l.client.Incr(ctx, k).Result()
	if err != nil {
		return false, 0, fmt.Errorf("incr %s: %w", k, err)
	}
	if n == 1 {
		if err := l.client.Expire(ctx, k, l.window).Err(); err != nil {
			return false, 0, fmt.Errorf("expire %s: %w", k, err)
		}
	}
	ttl, err := l.client.TTL(ctx, k).Result()
	if err != nil {
		return false, 0, fmt.Errorf("ttl %s: %w", k, err)
	}
	if ttl < 0 {
		// a key left without expiry would block forever
		_ = l.client.Expire(ctx, k, l.window).Err()
		ttl = l.window
	}
	return n <= int64(l.limit), ttl, nil
}

// Middleware limits requests per client IP within scope. Redis failures let
// the request through.
func (l *Limiter) Middleware(scope string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if l == nil || l.client == nil || l.limit <= 0 {
			return c.Next()
		}
		allowed, retryAfter, err := l.Allow(c.UserContext(), scope+":"+c.IP())
		if err != nil {
			l.logger.Warn("rate limiter unavailable", zap.String("scope", scope), zap.Error(err))
			return c.Next()
		}
		if !allowed {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(retryAfter.Round(time.Second).Seconds())))
			return apperrors.NewRateLimited("too many requests, try again later")
		}
		return c.Next()
	}
}
