package middleware

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"

	"github.com/workconnect/backend/internal/apperr"
)

// RateLimit is a per-client-IP token bucket. Buckets are kept for the process
// lifetime; the key space is bounded by the number of distinct client IPs.
func RateLimit(rps float64, burst int) fiber.Handler {
	var (
		mu      sync.Mutex
		buckets = make(map[string]*rate.Limiter)
	)

	return func(c *fiber.Ctx) error {
		ip := c.IP()

		mu.Lock()
		lim, ok := buckets[ip]
		if !ok {
			lim = rate.NewLimiter(rate.Limit(rps), burst)
			buckets[ip] = lim
		}
		mu.Unlock()

		if !lim.Allow() {
			return &apperr.Error{
				Code:    "rate_limited",
				Status:  fiber.StatusTooManyRequests,
				Message: "too many requests",
			}
		}
		return c.Next()
	}
}
