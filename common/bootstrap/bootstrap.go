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

// Setup initializes all service components
func Setup(ctx context.Context, serviceName string, opts ...Option) (*Components, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	components := &Components{
		cleanupFuncs: make([]func() error, 0),
	}

	// 1. Load configuration
	var err error
	if options.customConfig != nil {
		components.Config = options.customConfig
	} else {
		components.Config, err = config.Load(serviceName)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}
	cfg := components.Config

	// 2. Initialize logger
	if options.customLogger != nil {
		components.Logger = options.customLogger
	} else {
		components.Logger = logger.New(cfg.Service.LogLevel, cfg.Service.LogFormat)
	}

	components.Logger.Info("initializing service",
		"service", serviceName,
		"environment", cfg.Service.Environment,
		"storage_backend", cfg.Storage.Backend,
	)

	// 3. Metrics
	components.Metrics = metrics.New("cdn")
	host := metrics.CaptureSystemInfo()
	components.Metrics.RecordHost(host)
	components.Logger.Info("host detected",
		"hostname", host.Hostname,
		"os", host.OSVersion,
		"cpus", host.CPULogical,
		"memory_mb", host.TotalMemoryMB,
		"container", host.ContainerRuntime,
	)

	// 4. Redis, shared by the redis blob store and the redis identity cache
	needRedis := cfg.Identity.CacheBackend == "redis" ||
		(options.customStore == nil && cfg.Storage.Backend == config.BackendRedis)
	if needRedis {
		components.Redis, err = rediscommon.Connect(ctx, cfg.RedisAddr(), cfg.Redis.Password, cfg.Redis.DB, components.Logger)
		if err != nil {
			components.Shutdown(ctx)
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		components.addCleanup(func() error {
			components.Logger.Info("closing redis")
			return components.Redis.Close()
		})
	}

	// 5. Blob store
	if options.customStore != nil {
		components.Store = options.customStore
	} else {
		components.Store, err = components.openStore(ctx)
		if err != nil {
			components.Shutdown(ctx)
			return nil, fmt.Errorf("failed to open %s blob store: %w", cfg.Storage.Backend, err)
		}
	}
	components.addCleanup(func() error {
		components.Logger.Info("closing blob store")
		return components.Store.Close()
	})

	// 6. Identity cache
	switch cfg.Identity.CacheBackend {
	case "redis":
		components.IdentityCache = cache.NewRedisCache(components.Redis, "cdn:")
	default:
		components.IdentityCache = cache.NewMemoryCache(components.Logger)
	}
	components.addCleanup(func() error {
		return components.IdentityCache.Close()
	})

	// 7. Telemetry
	if !options.skipTelemetry && (cfg.Telemetry.EnablePprof || cfg.Telemetry.EnableMetrics) {
		pprofPort, metricsPort := 0, 0
		if cfg.Telemetry.EnablePprof {
			pprofPort = cfg.Telemetry.PprofPort
		}
		if cfg.Telemetry.EnableMetrics {
			metricsPort = cfg.Telemetry.MetricsPort
		}

		components.Telemetry = telemetry.New(pprofPort, metricsPort, components.Metrics, components.Logger)
		if err := components.Telemetry.Start(ctx); err != nil {
			components.Logger.Warn("failed to start telemetry", "error", err)
		}
		components.addCleanup(func() error {
			return components.Telemetry.Shutdown(context.Background())
		})
	}

	components.Logger.Info("service initialization complete",
		"service", serviceName,
		"redis", components.Redis != nil,
		"db", components.DB != nil,
		"telemetry", components.Telemetry != nil,
	)

	return components, nil
}

// openStore builds the blob store selected by STORAGE_BACKEND
func (c *Components) openStore(ctx context.Context) (blobstore.Store, error) {
	cfg := c.Config

	switch cfg.Storage.Backend {
	case config.BackendS3:
		return blobstore.NewS3Store(ctx, cfg.Storage, c.Logger)

	case config.BackendPostgres:
		database, err := db.New(ctx, cfg, c.Logger)
		if err != nil {
			return nil, err
		}
		c.DB = database
		c.addCleanup(func() error {
			c.DB.Close()
			return nil
		})
		return blobstore.NewPostgresStore(ctx, database)

	case config.BackendRedis:
		return blobstore.NewRedisStore(c.Redis), nil

	case config.BackendBadger:
		return blobstore.OpenBadger(cfg.Storage.BadgerPath, c.Logger)

	case config.BackendMemory:
		c.Logger.Warn("using in-memory blob store; renditions are lost on restart")
		return blobstore.NewMemoryStore(), nil

	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Storage.Backend)
	}
}

// MustSetup is like Setup but panics on error
func MustSetup(ctx context.Context, serviceName string, opts ...Option) *Components {
	components, err := Setup(ctx, serviceName, opts...)
	if err != nil {
		panic(fmt.Sprintf("failed to setup service %s: %v", serviceName, err))
	}
	return components
}
