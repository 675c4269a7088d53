package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"port zero", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
		{"command queue", func(c *Config) { c.Broker.CommandQueue = " " }, "broker.commandQueue"},
		{"max per endpoint", func(c *Config) { c.Pool.MaxPerEndpoint = 0 }, "pool.maxPerEndpoint"},
		{"negative wait", func(c *Config) { c.Pool.MaxWait = -1 }, "pool.maxWait"},
		{"bad pool endpoint", func(c *Config) {
			c.Pools = []PoolDef{{PoolName: "a", Host: "h", Channel: "C", Port: 0}}
		}, "pools[0]"},
		{"duplicate pool name", func(c *Config) {
			c.Pools = []PoolDef{
				{PoolName: "a", Host: "h1", Channel: "C", Port: 1414},
				{PoolName: "a", Host: "h2", Channel: "C", Port: 1414},
			}
		}, "pools[1].poolName"},
		{"unknown cache", func(c *Config) { c.Cache.Caches = map[string]string{"channels": "maximumSize=1"} }, "cache.caches.channels"},
		{"bad default spec", func(c *Config) { c.Cache.DefaultSpec = "weakKeys" }, "cache.defaultSpec"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrValidation)

			var res *ValidationResult
			require.True(t, errors.As(err, &res))
			fields := make([]string, 0, len(res.Errors))
			for _, e := range res.Errors {
				fields = append(fields, e.Field)
			}
			assert.Contains(t, fields, tt.field)
		})
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Server.Port = 70000
	cfg.Logging.Format = "xml"
	cfg.Pool.MaxPerEndpoint = -1

	var res *ValidationResult
	require.ErrorAs(t, cfg.Validate(), &res)
	assert.Len(t, res.Errors, 3)
	assert.Contains(t, res.Error(), "server.port")
	assert.Contains(t, res.Error(), "logging.format")
}
