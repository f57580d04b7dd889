package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"chat-relay/pkg/response"

	"github.com/gin-gonic/gin"
)

// RateChecker is a sliding window admission check shared by all routes.
// Redis backs it when configured, an in-process limiter otherwise.
type RateChecker interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type RateLimitMiddleware struct {
	checker RateChecker
}

func NewRateLimitMiddleware(checker RateChecker) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		checker: checker,
	}
}

// RateLimitIP limits public routes per client IP and path.
func (rm *RateLimitMiddleware) RateLimitIP(requests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("rate_limit_ip:%s:%s", c.ClientIP(), c.FullPath())
		rm.check(c, key, requests, window)
	}
}

// RateLimit limits authenticated routes per username, falling back to the
// client IP for anonymous callers.
func (rm *RateLimitMiddleware) RateLimit(requests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		subject := c.GetString(UsernameKey)
		if subject == "" {
			subject = "ip:" + c.ClientIP()
		}
		key := fmt.Sprintf("rate_limit:%s:%s", subject, c.FullPath())
		rm.check(c, key, requests, window)
	}
}

// WebSocketRateLimit limits connection attempts per client IP.
func (rm *RateLimitMiddleware) WebSocketRateLimit(requests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("rate_limit:websocket:%s", c.ClientIP())
		rm.check(c, key, requests, window)
	}
}

func (rm *RateLimitMiddleware) check(c *gin.Context, key string, requests int, window time.Duration) {
	allowed, err := rm.checker.CheckRateLimit(c.Request.Context(), key, requests, window)
	if err != nil {
		slog.Error("Rate limit check failed", "key", key, "error", err)
		response.Abort(c, http.StatusInternalServerError, "Rate limit check failed", "")
		return
	}

	if !allowed {
		response.Abort(c, http.StatusTooManyRequests, "",
			fmt.Sprintf("Too many requests. Limit: %d per %v", requests, window))
		return
	}

	c.Next()
}
