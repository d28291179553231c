package middleware

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"lifeline/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Redis     *redis.Client
	Requests  int           // Number of requests allowed
	Window    time.Duration // Time window
	KeyPrefix string        // Redis key prefix
	SkipPaths []string      // Paths to skip rate limiting
}

// RateLimitStrategy defines different rate limiting strategies
type RateLimitStrategy string

const (
	StrategyIP       RateLimitStrategy = "ip"
	StrategyUser     RateLimitStrategy = "user"
	StrategyUserOrIP RateLimitStrategy = "user_or_ip"
)

// RateLimiter uses a Redis sliding window when Redis is reachable and falls back
// to per-key token buckets held in memory when it is not.
type RateLimiter struct {
	config   RateLimitConfig
	strategy RateLimitStrategy

	mu    sync.Mutex
	local map[string]*rate.Limiter
}

func NewRateLimiter(config RateLimitConfig, strategy RateLimitStrategy) *RateLimiter {
	if config.KeyPrefix == "" {
		config.KeyPrefix = "rate_limit"
	}
	if config.Requests <= 0 {
		config.Requests = 100
	}
	if config.Window <= 0 {
		config.Window = time.Minute
	}

	return &RateLimiter{
		config:   config,
		strategy: strategy,
		local:    make(map[string]*rate.Limiter),
	}
}

// Middleware returns the rate limiting middleware
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return gin.HandlerFunc(func(c *gin.Context) {
		if rl.shouldSkipPath(c.Request.URL.Path) {
			c.Next()
			return
		}

		key := rl.getKey(c)
		allowed, remaining, resetTime := rl.allow(c.Request.Context(), key)

		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.config.Requests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(resetTime.Unix(), 10))

		if !allowed {
			retryAfter := int(time.Until(resetTime).Seconds())
			if retryAfter < 0 {
				retryAfter = 0
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))

			logrus.WithFields(logrus.Fields{
				"key":         key,
				"path":        c.Request.URL.Path,
				"retry_after": retryAfter,
			}).Warn("Rate limit exceeded")

			utils.RateLimitResponse(c)
			c.Abort()
			return
		}

		c.Next()
	})
}

func (rl *RateLimiter) allow(ctx context.Context, key string) (bool, int, time.Time) {
	if rl.config.Redis != nil {
		allowed, remaining, resetTime, err := rl.checkRedis(ctx, key)
		if err == nil {
			return allowed, remaining, resetTime
		}
		logrus.Debugf("Redis rate limit check failed, using local limiter: %v", err)
	}
	return rl.checkLocal(key)
}

// checkRedis keeps a sorted set of request timestamps per key
func (rl *RateLimiter) checkRedis(ctx context.Context, key string) (bool, int, time.Time, error) {
	now := time.Now()
	window := rl.config.Window
	member := fmt.Sprintf("%d", now.UnixNano())

	pipe := rl.config.Redis.Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", now.Add(-window).UnixNano()))
	card := pipe.ZCard(ctx, key)
	pipe.ZAdd(ctx, key, &redis.Z{Score: float64(now.UnixNano()), Member: member})
	pipe.Expire(ctx, key, window+time.Minute)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, time.Time{}, err
	}

	current := card.Val()
	remaining := rl.config.Requests - int(current) - 1
	if remaining < 0 {
		remaining = 0
	}

	allowed := current < int64(rl.config.Requests)
	if !allowed {
		rl.config.Redis.ZRem(ctx, key, member)
	}
	return allowed, remaining, now.Add(window), nil
}

func (rl *RateLimiter) checkLocal(key string) (bool, int, time.Time) {
	rl.mu.Lock()
	limiter, ok := rl.local[key]
	if !ok {
		every := rl.config.Window / time.Duration(rl.config.Requests)
		limiter = rate.NewLimiter(rate.Every(every), rl.config.Requests)
		rl.local[key] = limiter
	}
	rl.mu.Unlock()

	allowed := limiter.Allow()
	remaining := int(limiter.Tokens())
	if remaining < 0 {
		remaining = 0
	}
	return allowed, remaining, time.Now().Add(rl.config.Window)
}

func (rl *RateLimiter) getKey(c *gin.Context) string {
	prefix := rl.config.KeyPrefix

	switch rl.strategy {
	case StrategyUser:
		if userID := c.GetString("userID"); userID != "" {
			return fmt.Sprintf("%s:user:%s", prefix, userID)
		}
		return fmt.Sprintf("%s:ip:%s", prefix, c.ClientIP())

	case StrategyUserOrIP:
		if userID := c.GetString("userID"); userID != "" {
			return fmt.Sprintf("%s:user:%s", prefix, userID)
		}
		return fmt.Sprintf("%s:ip:%s", prefix, c.ClientIP())

	default:
		return fmt.Sprintf("%s:ip:%s", prefix, c.ClientIP())
	}
}

func (rl *RateLimiter) shouldSkipPath(path string) bool {
	for _, skipPath := range rl.config.SkipPaths {
		if strings.HasPrefix(path, skipPath) {
			return true
		}
	}
	return false
}

// RateLimitMiddleware applies the configured per-IP budget to the whole API
func RateLimitMiddleware(client *redis.Client, requests int, window time.Duration) gin.HandlerFunc {
	return NewRateLimiter(RateLimitConfig{
		Redis:     client,
		Requests:  requests,
		Window:    window,
		KeyPrefix: "api_rate_limit",
		SkipPaths: []string{"/health", "/metrics"},
	}, StrategyIP).Middleware()
}

// SessionRateLimit limits wizard mutations per user. Emergency input is bursty,
// so the budget is generous.
func SessionRateLimit(client *redis.Client) gin.HandlerFunc {
	return NewRateLimiter(RateLimitConfig{
		Redis:     client,
		Requests:  120,
		Window:    time.Minute,
		KeyPrefix: "session_rate_limit",
	}, StrategyUser).Middleware()
}
