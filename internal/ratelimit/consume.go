package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"

	"github.com/elevenplus/tutor/internal/config"
)

const keyConsumeUser = "usage:consume:user:%s"

// ConsumeLimiter caps per-user request bursts on the consume endpoint.
// A nil limiter (rate limiting disabled or no redis configured) allows
// everything; the daily quota still applies either way.
type ConsumeLimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
}

func NewConsumeLimiter(cfg config.Config) (*ConsumeLimiter, error) {
	if !cfg.RateLimitEnabled {
		return nil, nil
	}

	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("rate limit redis addr is required")
	}
	if cfg.RateLimitRate <= 0 || cfg.RateLimitBurst <= 0 {
		return nil, errors.New("rate limit rate and burst must be positive")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.RedisPassword),
		DB:       cfg.RedisDB,
	})

	return &ConsumeLimiter{
		bucket: NewTokenBucket(client),
		rate:   cfg.RateLimitRate,
		burst:  cfg.RateLimitBurst,
	}, nil
}

func (l *ConsumeLimiter) Allow(ctx context.Context, identityKey string) (*Result, error) {
	if l == nil {
		return &Result{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyConsumeUser, identityKey), l.rate, l.burst)
}
