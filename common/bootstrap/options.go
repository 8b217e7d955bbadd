package bootstrap

import (
	"github.com/lyzr/cdn/common/blobstore"
	"github.com/lyzr/cdn/common/config"
	"github.com/lyzr/cdn/common/logger"
)

// Option configures the bootstrap process
type Option func(*options)

type options struct {
	skipTelemetry bool
	customLogger  *logger.Logger
	customConfig  *config.Config
	customStore   blobstore.Store
}

// WithoutTelemetry skips the pprof and metrics listeners
func WithoutTelemetry() Option {
	return func(o *options) {
		o.skipTelemetry = true
	}
}

// WithCustomLogger uses a custom logger instead of creating one
func WithCustomLogger(log *logger.Logger) Option {
	return func(o *options) {
		o.customLogger = log
	}
}

// WithCustomConfig uses a custom config instead of loading from env
func WithCustomConfig(cfg *config.Config) Option {
	return func(o *options) {
		o.customConfig = cfg
	}
}

// WithCustomStore uses store instead of the configured backend.
// Setup takes ownership and closes it on Shutdown.
func WithCustomStore(store blobstore.Store) Option {
	return func(o *options) {
		o.customStore = store
	}
}

func defaultOptions() *options {
	return &options{}
}
