package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strconv"
	"time"

	"decider/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// FailPolicy decides what happens to a request when Redis cannot count it.
type FailPolicy int

const (
	FailOpen FailPolicy = iota
	// FailClosed answers 503 while Redis is down.
	FailClosed
)

// Limit is a fixed-window quota on one action, counted per viewer.
type Limit struct {
	Name   string
	Max    int
	Window time.Duration
	Policy FailPolicy
}

// Quota is the caller's state within the current window.
type Quota struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

var errNoRedis = errors.New("rate limit store unavailable")

// RateLimitKey is the Redis counter key for an action and caller.
func RateLimitKey(action, caller string) string {
	return fmt.Sprintf("rl:%s:%s", action, caller)
}

func limitingEnabled() bool {
	switch os.Getenv("APP_ENV") {
	case "", "test", "development":
		return false
	}
	return true
}

// Take counts one request by caller against l. Outside production-like
// environments every request is allowed without touching Redis.
func (l Limit) Take(ctx context.Context, rdb *redis.Client, caller string) (Quota, error) {
	if !limitingEnabled() {
		return Quota{Allowed: true, Remaining: l.Max}, nil
	}
	if rdb == nil {
		return Quota{}, errNoRedis
	}

	key := RateLimitKey(l.Name, caller)
	incr := rdb.Incr(ctx, key)
	ttl := rdb.TTL(ctx, key)
	if err := incr.Err(); err != nil {
		return Quota{}, err
	}
	n := incr.Val()

	retry := ttl.Val()
	if n == 1 || retry < 0 {
		if err := rdb.Expire(ctx, key, l.Window).Err(); err != nil {
			return Quota{}, err
		}
		retry = l.Window
	}

	remaining := l.Max - int(n)
	if remaining < 0 {
		remaining = 0
	}
	return Quota{Allowed: n <= int64(l.Max), Remaining: remaining, RetryAfter: retry}, nil
}

// RateLimit enforces l on the route. The caller is the viewer when
// AuthRequired ran first, otherwise the remote IP.
func RateLimit(rdb *redis.Client, l Limit) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller := "ip:" + c.IP()
		if uid, ok := ViewerID(c); ok {
			caller = fmt.Sprintf("user:%d", uid)
		}

		q, err := l.Take(c.UserContext(), rdb, caller)
		if err != nil {
			if l.Policy == FailOpen {
				return c.Next()
			}
			Logger.WarnContext(c.UserContext(), "rate limit store unavailable, rejecting",
				slog.String("limit", l.Name),
				slog.String("error", err.Error()),
			)
			return models.Respond(c, fiber.StatusServiceUnavailable, models.CodeServerError,
				"Rate limit unavailable", nil, nil)
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(l.Max))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(q.Remaining))
		if !q.Allowed {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(math.Ceil(q.RetryAfter.Seconds()))))
			return models.RespondWithError(c, models.NewAppError(models.KindRateLimited, ""), "")
		}
		return c.Next()
	}
}
