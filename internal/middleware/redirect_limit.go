package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"linklet/internal/cache"

	"github.com/gin-gonic/gin"
)

// RedirectLimiter is a fixed-window counter over the shared cache, so the
// redirect budget holds across instances. Unavailable cache fails open.
type RedirectLimiter struct {
	cache  cache.Cache
	limit  int64
	window time.Duration
	logger *slog.Logger
}

// NewRedirectLimiter creates a cache-backed redirect rate limiter.
// A nil cache disables limiting.
func NewRedirectLimiter(c cache.Cache, limit int64, window time.Duration, logger *slog.Logger) *RedirectLimiter {
	return &RedirectLimiter{
		cache:  c,
		limit:  limit,
		window: window,
		logger: logger,
	}
}

// LimitMiddleware counts redirects per client IP within the window
func (rl *RedirectLimiter) LimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.cache == nil {
			c.Next()
			return
		}

		key := fmt.Sprintf("ratelimit:redirect:%s", c.ClientIP())
		count, err := rl.cache.Incr(c.Request.Context(), key)
		if err != nil {
			rl.logger.Warn("redirect limiter unavailable, allowing request", "error", err)
			c.Next()
			return
		}
		if count == 1 {
			if err := rl.cache.Expire(c.Request.Context(), key, rl.window); err != nil {
				rl.logger.Warn("redirect limiter window not set", "error", err)
			}
		}

		if count > rl.limit {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "Rate limit exceeded. Please try again later.",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
