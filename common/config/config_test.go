package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("AWS_BLOB_BUCKET", "blobs")

	cfg, err := Load("cdn")
	require.NoError(t, err)

	assert.Equal(t, "cdn", cfg.Service.Name)
	assert.Equal(t, 3000, cfg.Service.Port)
	assert.Equal(t, BackendS3, cfg.Storage.Backend)
	assert.Equal(t, "blobs", cfg.Storage.Bucket)
	assert.Equal(t, "https://plc.directory", cfg.Identity.PLCDirectoryURL)
	assert.Equal(t, 10*time.Second, cfg.Identity.Timeout)
	assert.Equal(t, 30*time.Second, cfg.Origin.Timeout)
	assert.Equal(t, int64(16<<20), cfg.Origin.MaxBlobBytes)
	assert.False(t, cfg.Origin.AllowPrivate)
	assert.True(t, cfg.Features.EnableSingleFlight)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "8088")
	t.Setenv("STORAGE_BACKEND", "memory")
	t.Setenv("ORIGIN_TIMEOUT", "5s")
	t.Setenv("ENABLE_SINGLE_FLIGHT", "false")
	t.Setenv("REDIS_PORT", "not-a-number")

	cfg, err := Load("cdn")
	require.NoError(t, err)

	assert.Equal(t, 8088, cfg.Service.Port)
	assert.Equal(t, BackendMemory, cfg.Storage.Backend)
	assert.Equal(t, 5*time.Second, cfg.Origin.Timeout)
	assert.False(t, cfg.Features.EnableSingleFlight)
	assert.Equal(t, 6379, cfg.Redis.Port, "unparseable values fall back to the default")
	assert.Equal(t, "localhost:6379", cfg.RedisAddr())
}

func TestValidate(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "memory")

	base := func() *Config {
		cfg, err := Load("cdn")
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Service.Port = 0 }},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "tape" }},
		{"s3 without bucket", func(c *Config) { c.Storage.Backend = BackendS3; c.Storage.Bucket = "" }},
		{"badger without path", func(c *Config) { c.Storage.Backend = BackendBadger; c.Storage.BadgerPath = "" }},
		{"postgres pool sizes", func(c *Config) { c.Storage.Backend = BackendPostgres; c.Database.MinConns = 50 }},
		{"zero timeout", func(c *Config) { c.Origin.Timeout = 0 }},
		{"unknown identity cache", func(c *Config) { c.Identity.CacheBackend = "disk" }},
		{"empty plc url", func(c *Config) { c.Identity.PLCDirectoryURL = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDatabaseURL(t *testing.T) {
	cfg := &Config{Database: DatabaseConfig{User: "u", Password: "p", Host: "db", Port: 5433, Database: "cdn"}}
	assert.Equal(t, "postgres://u:p@db:5433/cdn?sslmode=disable", cfg.DatabaseURL())
}
