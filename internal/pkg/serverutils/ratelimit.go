// FILE: internal/pkg/serverutils/ratelimit.go
package serverutils

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/patrickmn/go-cache"
)

// RateLimiter counts requests per (client IP, route) over fixed windows.
// Counters live in a go-cache store and expire with the window, so an
// idle client costs nothing.
type RateLimiter struct {
	store  *cache.Cache
	max    int
	window time.Duration
}

func NewRateLimiter(max int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		store:  cache.New(window, 2*window),
		max:    max,
		window: window,
	}
}

func (r *RateLimiter) Allow(key string) bool {
	count, err := r.store.IncrementInt64(key, 1)
	if err != nil {
		// First hit in this window.
		r.store.Set(key, int64(1), r.window)
		return true
	}
	return count <= int64(r.max)
}

func (r *RateLimiter) Middleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		key := fmt.Sprintf("%s:%s", ctx.IP(), ctx.Route().Path)
		if !r.Allow(key) {
			return ctx.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success": false,
				"code":    429,
				"message": "Too many requests, please try again later",
			})
		}
		return ctx.Next()
	}
}
