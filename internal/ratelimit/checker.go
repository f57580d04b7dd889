package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Checker adapts Limiter to the CheckRateLimit shape shared with the Redis
// backed limiter, lazily keeping one Limiter per (limit, window) pair.
type Checker struct {
	mu       sync.Mutex
	limiters map[string]*Limiter
	opts     []Option
}

func NewChecker(opts ...Option) *Checker {
	return &Checker{
		limiters: make(map[string]*Limiter),
		opts:     opts,
	}
}

func (c *Checker) CheckRateLimit(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	return c.limiterFor(limit, window).Allow(key), nil
}

func (c *Checker) limiterFor(limit int, window time.Duration) *Limiter {
	id := fmt.Sprintf("%d/%s", limit, window)

	c.mu.Lock()
	defer c.mu.Unlock()

	l, ok := c.limiters[id]
	if !ok {
		opts := append([]Option{}, c.opts...)
		opts = append(opts, WithLimit(limit), WithWindow(window))
		l = New(opts...)
		c.limiters[id] = l
	}
	return l
}
