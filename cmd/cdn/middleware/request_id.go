package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/lyzr/cdn/common/clients"
)

// RequestID assigns every request an X-Request-ID (keeping a caller
// supplied one) and stores it in the request context, where the logger
// and outbound HTTP clients pick it up.
func RequestID() echo.MiddlewareFunc {
	return echomw.RequestIDWithConfig(echomw.RequestIDConfig{
		Generator: uuid.NewString,
		RequestIDHandler: func(c echo.Context, id string) {
			req := c.Request()
			c.SetRequest(req.WithContext(clients.WithRequestID(req.Context(), id)))
		},
	})
}
