package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/lyzr/cdn/common/metrics"
)

// Metrics records request count, latency and response size per route
func Metrics(m *metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				// let echo write the error response so the status is final
				c.Error(err)
			}

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method
			res := c.Response()

			m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(res.Status)).Inc()
			m.HTTPDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			if res.Size > 0 {
				m.HTTPResponse.WithLabelValues(method, route).Observe(float64(res.Size))
			}

			return nil
		}
	}
}
