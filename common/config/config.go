package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Storage backends understood by the blob store factory
const (
	BackendS3       = "s3"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendBadger   = "badger"
	BackendMemory   = "memory"
)

// Config holds all service configuration
type Config struct {
	Service   ServiceConfig
	Identity  IdentityConfig
	Origin    OriginConfig
	Storage   StorageConfig
	Redis     RedisConfig
	Database  DatabaseConfig
	Transform TransformConfig
	Telemetry TelemetryConfig
	Features  FeatureFlags
}

// ServiceConfig holds service-specific settings
type ServiceConfig struct {
	Name        string
	Port        int
	Environment string
	LogLevel    string
	LogFormat   string
}

// IdentityConfig holds DID resolution settings
type IdentityConfig struct {
	PLCDirectoryURL string
	Timeout         time.Duration
	CacheTTL        time.Duration
	CacheBackend    string // "memory" or "redis"
}

// OriginConfig holds settings for fetching blobs from a PDS
type OriginConfig struct {
	Timeout      time.Duration
	MaxBlobBytes int64
	AllowPrivate bool
	UserAgent    string
}

// StorageConfig selects and configures the durable blob store
type StorageConfig struct {
	Backend    string
	Timeout    time.Duration
	Bucket     string
	Region     string
	Endpoint   string
	PathStyle  bool
	BadgerPath string
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// DatabaseConfig holds Postgres connection settings
type DatabaseConfig struct {
	Host        string
	Port        int
	Database    string
	User        string
	Password    string
	MaxConns    int
	MinConns    int
	MaxIdleTime time.Duration
	MaxLifetime time.Duration
}

// TransformConfig bounds image decoding
type TransformConfig struct {
	MaxPixels int
}

// TelemetryConfig holds observability settings
type TelemetryConfig struct {
	EnablePprof   bool
	PprofPort     int
	EnableMetrics bool
	MetricsPort   int
}

// FeatureFlags toggles optional behaviour
type FeatureFlags struct {
	EnableSingleFlight bool
}

// Load loads configuration from environment variables
func Load(serviceName string) (*Config, error) {
	cfg := &Config{
		Service: ServiceConfig{
			Name:        serviceName,
			Port:        getEnvInt("PORT", 3000),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			LogFormat:   getEnv("LOG_FORMAT", "text"),
		},
		Identity: IdentityConfig{
			PLCDirectoryURL: getEnv("PLC_DIRECTORY_URL", "https://plc.directory"),
			Timeout:         getEnvDuration("IDENTITY_TIMEOUT", 10*time.Second),
			CacheTTL:        getEnvDuration("IDENTITY_CACHE_TTL", 1*time.Hour),
			CacheBackend:    getEnv("IDENTITY_CACHE_BACKEND", "memory"),
		},
		Origin: OriginConfig{
			Timeout:      getEnvDuration("ORIGIN_TIMEOUT", 30*time.Second),
			MaxBlobBytes: int64(getEnvInt("ORIGIN_MAX_BLOB_BYTES", 16<<20)),
			AllowPrivate: getEnvBool("ORIGIN_ALLOW_PRIVATE", false),
			UserAgent:    getEnv("ORIGIN_USER_AGENT", "lyzr-cdn/1.0"),
		},
		Storage: StorageConfig{
			Backend:    getEnv("STORAGE_BACKEND", BackendS3),
			Timeout:    getEnvDuration("STORAGE_TIMEOUT", 10*time.Second),
			Bucket:     getEnv("AWS_BLOB_BUCKET", ""),
			Region:     getEnv("AWS_REGION", "us-east-1"),
			Endpoint:   getEnv("S3_ENDPOINT", ""),
			PathStyle:  getEnvBool("S3_USE_PATH_STYLE", false),
			BadgerPath: getEnv("BADGER_PATH", "./data/blobs"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Database: DatabaseConfig{
			Host:        getEnv("POSTGRES_HOST", "localhost"),
			Port:        getEnvInt("POSTGRES_PORT", 5432),
			Database:    getEnv("POSTGRES_DB", "cdn"),
			User:        getEnv("POSTGRES_USER", "cdn"),
			Password:    getEnv("POSTGRES_PASSWORD", "cdn"),
			MaxConns:    getEnvInt("POSTGRES_MAX_CONNS", 20),
			MinConns:    getEnvInt("POSTGRES_MIN_CONNS", 2),
			MaxIdleTime: getEnvDuration("POSTGRES_MAX_IDLE_TIME", 30*time.Minute),
			MaxLifetime: getEnvDuration("POSTGRES_MAX_LIFETIME", 1*time.Hour),
		},
		Transform: TransformConfig{
			MaxPixels: getEnvInt("TRANSFORM_MAX_PIXELS", 64_000_000),
		},
		Telemetry: TelemetryConfig{
			EnablePprof:   getEnvBool("ENABLE_PPROF", false),
			PprofPort:     getEnvInt("PPROF_PORT", 6060),
			EnableMetrics: getEnvBool("ENABLE_METRICS", true),
			MetricsPort:   getEnvInt("METRICS_PORT", 9090),
		},
		Features: FeatureFlags{
			EnableSingleFlight: getEnvBool("ENABLE_SINGLE_FLIGHT", true),
		},
	}

	return cfg, cfg.Validate()
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.Service.Port < 1 || c.Service.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Service.Port)
	}

	if c.Identity.PLCDirectoryURL == "" {
		return fmt.Errorf("plc directory url is required")
	}

	switch c.Identity.CacheBackend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown identity cache backend: %s", c.Identity.CacheBackend)
	}

	if c.Identity.Timeout <= 0 || c.Origin.Timeout <= 0 || c.Storage.Timeout <= 0 {
		return fmt.Errorf("identity, origin and storage timeouts must be positive")
	}

	if c.Origin.MaxBlobBytes <= 0 {
		return fmt.Errorf("invalid max blob bytes: %d", c.Origin.MaxBlobBytes)
	}

	switch c.Storage.Backend {
	case BackendS3:
		if c.Storage.Bucket == "" {
			return fmt.Errorf("AWS_BLOB_BUCKET is required for the s3 backend")
		}
	case BackendPostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.MaxConns < c.Database.MinConns {
			return fmt.Errorf("max_conns must be >= min_conns")
		}
	case BackendBadger:
		if c.Storage.BadgerPath == "" {
			return fmt.Errorf("BADGER_PATH is required for the badger backend")
		}
	case BackendRedis, BackendMemory:
	default:
		return fmt.Errorf("unknown storage backend: %s", c.Storage.Backend)
	}

	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
	)
}

// RedisAddr returns host:port for the Redis client
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
