package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lyzr/cdn/common/bootstrap"
)

// RegisterHealthRoutes registers liveness and readiness checks
func RegisterHealthRoutes(e *echo.Echo, components *bootstrap.Components) {
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": components.Config.Service.Name,
		})
	})

	e.GET("/ready", func(c echo.Context) error {
		if err := components.Health(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"error":  err.Error(),
			})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ready"})
	})
}
