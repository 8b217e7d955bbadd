package bootstrap

import (
	"context"
	"fmt"

	"github.com/lyzr/cdn/common/blobstore"
	"github.com/lyzr/cdn/common/cache"
	"github.com/lyzr/cdn/common/config"
	"github.com/lyzr/cdn/common/db"
	"github.com/lyzr/cdn/common/logger"
	"github.com/lyzr/cdn/common/metrics"
	rediscommon "github.com/lyzr/cdn/common/redis"
	"github.com/lyzr/cdn/common/telemetry"
)

// Components holds all initialized service dependencies
type Components struct {
	Config        *config.Config
	Logger        *logger.Logger
	Metrics       *metrics.Metrics
	Telemetry     *telemetry.Telemetry
	Redis         *rediscommon.Client
	DB            *db.DB
	Store         blobstore.Store
	IdentityCache cache.Cache

	cleanupFuncs []func() error
}

// Shutdown performs graceful shutdown of all components
// Should be called with defer after Setup()
func (c *Components) Shutdown(ctx context.Context) error {
	c.Logger.Info("shutting down components")

	var errors []error

	// Run cleanup functions in reverse order (LIFO)
	for i := len(c.cleanupFuncs) - 1; i >= 0; i-- {
		if err := c.cleanupFuncs[i](); err != nil {
			errors = append(errors, err)
			c.Logger.Error("cleanup error", "error", err)
		}
	}
	c.cleanupFuncs = nil

	if len(errors) > 0 {
		return fmt.Errorf("shutdown errors: %v", errors)
	}

	c.Logger.Info("shutdown complete")
	return nil
}

// Health checks the network backends the service depends on
func (c *Components) Health(ctx context.Context) error {
	if c.DB != nil {
		if err := c.DB.Ping(ctx); err != nil {
			return fmt.Errorf("database unhealthy: %w", err)
		}
	}

	if c.Redis != nil {
		if err := c.Redis.Ping(ctx); err != nil {
			return fmt.Errorf("redis unhealthy: %w", err)
		}
	}

	return nil
}

// addCleanup registers a cleanup function
func (c *Components) addCleanup(fn func() error) {
	c.cleanupFuncs = append(c.cleanupFuncs, fn)
}
