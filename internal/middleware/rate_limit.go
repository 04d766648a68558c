package middleware

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// RateLimit builds a per-teacher limiter keyed on the authenticated
// email, falling back to the client IP for unauthenticated routes. It
// guards the feedback generation endpoints, where each request spends
// real money on a provider API.
func RateLimit(identifier string, max int, window time.Duration) fiber.Handler {
	if max <= 0 {
		max = 10
	}
	if window <= 0 {
		window = time.Second
	}

	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			caller, _ := c.Locals("user_email").(string)
			if caller == "" {
				caller = c.IP()
			}
			return fmt.Sprintf("%s:%s", identifier, caller)
		},
	})
}
