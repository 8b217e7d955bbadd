package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/lyzr/cdn/cmd/cdn/container"
	"github.com/lyzr/cdn/cmd/cdn/middleware"
	"github.com/lyzr/cdn/cmd/cdn/routes"
	"github.com/lyzr/cdn/common/bootstrap"
	"github.com/lyzr/cdn/common/server"
)

func main() {
	ctx := context.Background()

	// Bootstrap common components (config, logger, metrics, blob store, identity cache)
	components, err := bootstrap.Setup(ctx, "cdn")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap cdn: %v\n", err)
		os.Exit(1)
	}
	defer components.Shutdown(ctx)

	serviceContainer, err := container.NewContainer(components)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize service container: %v\n", err)
		os.Exit(1)
	}

	e := NewEcho(serviceContainer)

	if err := startServer(e, components); err != nil {
		components.Logger.Error("server error", "error", err)
		components.Shutdown(ctx)
		os.Exit(1)
	}
}

// NewEcho builds the HTTP surface: middleware, health checks and blob routes
func NewEcho(c *container.Container) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLogger(c.Components.Logger))
	e.Use(middleware.Metrics(c.Components.Metrics))
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{echo.GET, echo.HEAD, echo.OPTIONS},
	}))

	routes.RegisterHealthRoutes(e, c.Components)
	routes.RegisterBlobRoutes(e, c)

	return e
}

// startServer serves until SIGINT/SIGTERM
func startServer(e *echo.Echo, components *bootstrap.Components) error {
	cfg := components.Config

	// a miss can spend the identity, origin and two storage timeouts back to back
	writeTimeout := cfg.Identity.Timeout + cfg.Origin.Timeout + 2*cfg.Storage.Timeout + 10*time.Second

	srv := server.New("cdn", cfg.Service.Port, e, writeTimeout, components.Logger)
	return srv.Start()
}
