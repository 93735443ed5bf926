package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"govalert/internal/transport/httpdto"
)

// RateLimiter applies a fixed-window per-client-IP limit. When a Redis
// client is supplied the window is shared across API instances; without one
// it degrades to an in-process token bucket.
type RateLimiter struct {
	client *goredis.Client
	limit  int
	window time.Duration

	mu      sync.Mutex
	buckets map[string]*rate.Limiter
}

func NewRateLimiter(client *goredis.Client, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		client:  client,
		limit:   limit,
		window:  window,
		buckets: make(map[string]*rate.Limiter),
	}
}

func (r *RateLimiter) allow(ctx context.Context, key string) (bool, error) {
	if r.client == nil {
		return r.allowLocal(key), nil
	}

	redisKey := "ratelimit:" + key + ":requests"
	count, err := r.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, err
	}
	if count == 1 {
		r.client.Expire(ctx, redisKey, r.window)
	}
	return count <= int64(r.limit), nil
}

func (r *RateLimiter) allowLocal(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	limiter, ok := r.buckets[key]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(r.window/time.Duration(r.limit)), r.limit)
		r.buckets[key] = limiter
	}
	return limiter.Allow()
}

// RateLimitMiddleware rejects requests over the per-IP budget with 429.
func RateLimitMiddleware(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, err := limiter.allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			c.JSON(http.StatusInternalServerError, httpdto.NewErrorResponse("rate limit error", "INTERNAL_ERROR"))
			c.Abort()
			return
		}
		if !allowed {
			c.JSON(http.StatusTooManyRequests, httpdto.NewErrorResponse("rate limit exceeded", "RATE_LIMITED"))
			c.Abort()
			return
		}
		c.Next()
	}
}
