package middleware

import (
	"time"

	"FxDesk/pkg/logger"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// RequestID reuses an incoming X-Request-ID or assigns a new one.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Request().Header.Get(echo.HeaderXRequestID)
			if id == "" {
				id = uuid.NewString()
			}
			c.Response().Header().Set(echo.HeaderXRequestID, id)
			return next(c)
		}
	}
}

// RequestLogging writes one structured line per request.
func RequestLogging(log *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				// Let the error handler set the final status before logging it.
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()
			fields := []logger.Field{
				logger.String("method", req.Method),
				logger.String("route", routeOf(c)),
				logger.String("remote_ip", c.RealIP()),
				logger.Int("status", res.Status),
				logger.Int64("bytes", res.Size),
				logger.Duration("latency", time.Since(start)),
				logger.String("request_id", res.Header().Get(echo.HeaderXRequestID)),
			}
			if err != nil {
				fields = append(fields, logger.Error(err))
			}
			if res.Status >= 500 {
				log.Error("http request", fields...)
			} else {
				log.Info("http request", fields...)
			}
			return nil
		}
	}
}

// routeOf prefers the registered route template to keep labels bounded.
func routeOf(c echo.Context) string {
	if p := c.Path(); p != "" {
		return p
	}
	return "unmatched"
}
