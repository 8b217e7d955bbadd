package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/lyzr/cdn/cmd/cdn/container"
	"github.com/lyzr/cdn/cmd/cdn/handlers"
)

// RegisterBlobRoutes registers the blob delivery route
func RegisterBlobRoutes(e *echo.Echo, c *container.Container) {
	h := handlers.NewBlobHandler(c.PipelineService, c.Components.Logger)

	e.GET("/:preset/:actor/:cid/:format", h.GetBlob) // GET /avatar/did:plc:abc/bafkrei.../jpeg
	e.HEAD("/:preset/:actor/:cid/:format", h.GetBlob)
}
