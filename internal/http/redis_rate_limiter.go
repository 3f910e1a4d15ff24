package httpx

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisRateLimiter shares fixed windows across API replicas via Redis.
type redisRateLimiter struct {
	client *redis.Client
}

// NewRedisRateLimiter connects to Redis and verifies it before use.
func NewRedisRateLimiter(addr, password string, db int) (RateLimiter, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("rate limiter: redis ping: %w", err)
	}
	return &redisRateLimiter{client: client}, nil
}

func (l *redisRateLimiter) Allow(ctx context.Context, key string, limit int64, window time.Duration) (rateDecision, error) {
	now := time.Now()
	bucket := now.UnixNano() / int64(window)
	redisKey := fmt.Sprintf("ratelimit:%s:%d", key, bucket)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return rateDecision{}, fmt.Errorf("rate limiter: redis incr: %w", err)
	}

	count := incr.Val()
	windowEnd := time.Unix(0, (bucket+1)*int64(window))
	return rateDecision{allowed: count <= limit, count: count, windowEnd: windowEnd}, nil
}
