package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, 9090, cfg.GRPCPort)
	assert.Equal(t, StorageMemory, cfg.Storage.Backend)
	assert.Zero(t, cfg.Storage.RunRetention)
	assert.Equal(t, 5, cfg.Workers.PoolSize)
	assert.Equal(t, int64(64), cfg.Runs.MaxConcurrent)
	assert.False(t, cfg.LLM.Enabled())
	assert.Equal(t, ":8080", cfg.GetHTTPAddr())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("DAGOFLOW_HTTP_PORT", "8181")
	t.Setenv("STORAGE_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("RUN_RETENTION", "1h")
	t.Setenv("LLM_API_KEY", "key")
	t.Setenv("GRAPH_FILES", "graphs/**/*.yaml")
	t.Setenv("MAX_CONCURRENT_RUNS", "8")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8181, cfg.HTTPPort)
	assert.Equal(t, StorageRedis, cfg.Storage.Backend)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, time.Hour, cfg.Storage.RunRetention)
	assert.True(t, cfg.LLM.Enabled())
	assert.Equal(t, "graphs/**/*.yaml", cfg.Graphs.Files)
	assert.Equal(t, int64(8), cfg.Runs.MaxConcurrent)
}

func TestLoadRejectsUnparsableValue(t *testing.T) {
	t.Setenv("WORKER_POOL_SIZE", "many")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			HTTPPort: 8080,
			GRPCPort: 9090,
			LogLevel: "info",
			Storage:  StorageConfig{Backend: StorageMemory},
			Redis:    RedisConfig{Addr: "localhost:6379"},
			LLM:      LLMConfig{Provider: "anthropic"},
			Workers:  WorkerConfig{PoolSize: 1},
			Runs:     RunConfig{MaxConcurrent: 1},
		}
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
		ok     bool
	}{
		{name: "valid", mutate: func(c *Config) {}, ok: true},
		{name: "bad http port", mutate: func(c *Config) { c.HTTPPort = 0 }},
		{name: "bad grpc port", mutate: func(c *Config) { c.GRPCPort = 70000 }},
		{name: "same ports", mutate: func(c *Config) { c.GRPCPort = c.HTTPPort }},
		{name: "unknown backend", mutate: func(c *Config) { c.Storage.Backend = "postgres" }},
		{name: "redis without address", mutate: func(c *Config) {
			c.Storage.Backend = StorageRedis
			c.Redis.Addr = ""
		}},
		{name: "memory ignores redis address", mutate: func(c *Config) { c.Redis.Addr = "" }, ok: true},
		{name: "negative retention", mutate: func(c *Config) { c.Storage.RunRetention = -time.Second }},
		{name: "unsupported provider with key", mutate: func(c *Config) {
			c.LLM.APIKey = "key"
			c.LLM.Provider = "other"
		}},
		{name: "unsupported provider without key", mutate: func(c *Config) { c.LLM.Provider = "other" }, ok: true},
		{name: "empty pool", mutate: func(c *Config) { c.Workers.PoolSize = 0 }},
		{name: "no run admission", mutate: func(c *Config) { c.Runs.MaxConcurrent = 0 }},
		{name: "bad log level", mutate: func(c *Config) { c.LogLevel = "trace" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.Error(t, err)
		})
	}
}
