package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Allower decides whether the client identified by key may proceed.
type Allower interface {
	Allow(key string) bool
}

// RateLimit rejects requests with 429 once a client's bucket is empty.
// Clients are keyed by their real IP.
func RateLimit(l Allower) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if l != nil && !l.Allow(c.RealIP()) {
				c.Response().Header().Set("Retry-After", "1")
				return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
					"status":  http.StatusTooManyRequests,
					"message": http.StatusText(http.StatusTooManyRequests),
					"data":    "rate limit exceeded",
				})
			}
			return next(c)
		}
	}
}
