package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisThrottle counts failed logins per email in Redis.
type RedisThrottle struct {
	client      *redis.Client
	maxFailures int64
	window      time.Duration
}

// NewRedisThrottle locks an email after maxFailures failures inside window.
func NewRedisThrottle(client *redis.Client, maxFailures int, window time.Duration) *RedisThrottle {
	if maxFailures <= 0 {
		maxFailures = 5
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &RedisThrottle{client: client, maxFailures: int64(maxFailures), window: window}
}

// Locked reports whether the key reached the failure limit.
func (t *RedisThrottle) Locked(ctx context.Context, key string) (bool, error) {
	n, err := t.client.Get(ctx, t.redisKey(key)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	return n >= t.maxFailures, nil
}

// Fail records one failure; the window starts at the first failure.
func (t *RedisThrottle) Fail(ctx context.Context, key string) error {
	k := t.redisKey(key)
	n, err := t.client.Incr(ctx, k).Result()
	if err != nil {
		return err
	}
	if n == 1 {
		return t.client.Expire(ctx, k, t.window).Err()
	}
	return nil
}

// Reset clears the failure counter.
func (t *RedisThrottle) Reset(ctx context.Context, key string) error {
	return t.client.Del(ctx, t.redisKey(key)).Err()
}

func (t *RedisThrottle) redisKey(key string) string {
	return "login_failures:" + strings.ToLower(key)
}

var _ Throttle = (*RedisThrottle)(nil)
