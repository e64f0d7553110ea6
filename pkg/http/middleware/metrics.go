package middleware

import (
	"strconv"
	"sync"
	"time"

	"FxDesk/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fxdesk_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fxdesk_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"route", "method", "class"},
	)

	httpInFlight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fxdesk_http_in_flight_requests",
			Help: "Current number of in-flight HTTP requests",
		},
		[]string{"route"},
	)

	regOnce sync.Once
)

// Metrics records request count, latency and in-flight gauges labelled by
// route template, and warns about requests slower than slowThreshold.
// Streaming routes are expected to exceed it.
func Metrics(log *logger.Logger, slowThreshold time.Duration) echo.MiddlewareFunc {
	regOnce.Do(func() {
		prometheus.MustRegister(httpRequestsTotal, httpRequestDuration, httpInFlight)
	})

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			route := routeOf(c)
			method := c.Request().Method

			httpInFlight.WithLabelValues(route).Inc()
			defer httpInFlight.WithLabelValues(route).Dec()

			start := time.Now()
			err := next(c)
			dur := time.Since(start)

			status := c.Response().Status
			httpRequestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
			httpRequestDuration.WithLabelValues(route, method, statusClass(status)).Observe(dur.Seconds())

			if slowThreshold > 0 && dur >= slowThreshold {
				log.Warn("http request slow",
					logger.String("route", route),
					logger.String("method", method),
					logger.Int("status", status),
					logger.Duration("duration", dur))
			}
			return err
		}
	}
}

func statusClass(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
