package config

import (
	"fmt"
	"time"

	"github.com/getmockd/mqfacade/pkg/cache"
	"github.com/getmockd/mqfacade/pkg/endpoint"
	"github.com/getmockd/mqfacade/pkg/pcf"
	"github.com/getmockd/mqfacade/pkg/pool"
)

// DefaultPort is the admin HTTP port.
const DefaultPort = 1892

// Duration is a time.Duration written as a Go duration string ("30s").
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(b), err)
	}
	*d = Duration(v)
	return nil
}

// Config is the whole configuration document.
type Config struct {
	Server  ServerConfig  `json:"server" yaml:"server"`
	Logging LoggingConfig `json:"logging" yaml:"logging"`
	Broker  BrokerConfig  `json:"broker" yaml:"broker"`
	Pool    PoolConfig    `json:"pool" yaml:"pool"`
	Pools   []PoolDef     `json:"pools,omitempty" yaml:"pools,omitempty"`
	Cache   CacheConfig   `json:"cache" yaml:"cache"`
}

// ServerConfig configures the admin HTTP server.
type ServerConfig struct {
	Port         int      `json:"port" yaml:"port"`
	ReadTimeout  Duration `json:"readTimeout" yaml:"readTimeout"`
	WriteTimeout Duration `json:"writeTimeout" yaml:"writeTimeout"`
}

// LoggingConfig selects the log level and output format.
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// BrokerConfig holds the queue names used by the PCF transport.
type BrokerConfig struct {
	CommandQueue     string `json:"commandQueue" yaml:"commandQueue"`
	ReplyModelQueue  string `json:"replyModelQueue" yaml:"replyModelQueue"`
	ReplyQueuePrefix string `json:"replyQueuePrefix" yaml:"replyQueuePrefix"`
}

// Transport converts the broker section for pcf.NewDialer.
func (b BrokerConfig) Transport() pcf.TransportConfig {
	return pcf.TransportConfig{
		CommandQueue:     b.CommandQueue,
		ReplyModelQueue:  b.ReplyModelQueue,
		ReplyQueuePrefix: b.ReplyQueuePrefix,
	}
}

// PoolConfig bounds every sub-pool.
type PoolConfig struct {
	MaxPerEndpoint   int      `json:"maxPerEndpoint" yaml:"maxPerEndpoint"`
	MaxWait          Duration `json:"maxWait" yaml:"maxWait"`
	IdleTimeout      Duration `json:"idleTimeout" yaml:"idleTimeout"`
	ReapInterval     Duration `json:"reapInterval" yaml:"reapInterval"`
	ValidateOnBorrow bool     `json:"validateOnBorrow" yaml:"validateOnBorrow"`
}

// Options converts the pool section for pool.WithOptions.
func (p PoolConfig) Options() pool.Options {
	return pool.Options{
		MaxPerEndpoint:   p.MaxPerEndpoint,
		MaxWait:          p.MaxWait.Std(),
		IdleTimeout:      p.IdleTimeout.Std(),
		ReapInterval:     p.ReapInterval.Std(),
		ValidateOnBorrow: p.ValidateOnBorrow,
	}
}

// PoolDef is one named endpoint installed at startup.
type PoolDef struct {
	PoolName  string `json:"poolName" yaml:"poolName"`
	Host      string `json:"host" yaml:"host"`
	Channel   string `json:"channel" yaml:"channel"`
	Port      int    `json:"port" yaml:"port"`
	PcfWait   int    `json:"pcfWait,omitempty" yaml:"pcfWait,omitempty"`
	PcfExpiry int    `json:"pcfExpiry,omitempty" yaml:"pcfExpiry,omitempty"`
}

// Descriptor builds the sub-pool descriptor for the definition.
func (d PoolDef) Descriptor() (endpoint.Descriptor, error) {
	key, err := endpoint.New(d.Host, d.Port, d.Channel)
	if err != nil {
		return endpoint.Descriptor{}, err
	}
	return endpoint.NewDescriptor(d.PoolName, key, d.PcfWait, d.PcfExpiry), nil
}

// CacheConfig configures the cache layer.
type CacheConfig struct {
	Stats       bool              `json:"stats" yaml:"stats"`
	DefaultSpec string            `json:"defaultSpec,omitempty" yaml:"defaultSpec,omitempty"`
	Caches      map[string]string `json:"caches,omitempty" yaml:"caches,omitempty"`
}

// Layer converts the cache section for cache.NewLayer.
func (c CacheConfig) Layer() cache.Config {
	return cache.Config{
		RecordStats: c.Stats,
		DefaultSpec: c.DefaultSpec,
		Specs:       c.Caches,
	}
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	po := pool.DefaultOptions()
	tc := pcf.DefaultTransportConfig()
	return &Config{
		Server: ServerConfig{
			Port:         DefaultPort,
			ReadTimeout:  Duration(30 * time.Second),
			WriteTimeout: Duration(30 * time.Second),
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Broker: BrokerConfig{
			CommandQueue:     tc.CommandQueue,
			ReplyModelQueue:  tc.ReplyModelQueue,
			ReplyQueuePrefix: tc.ReplyQueuePrefix,
		},
		Pool: PoolConfig{
			MaxPerEndpoint:   po.MaxPerEndpoint,
			MaxWait:          Duration(po.MaxWait),
			IdleTimeout:      Duration(po.IdleTimeout),
			ReapInterval:     Duration(po.ReapInterval),
			ValidateOnBorrow: po.ValidateOnBorrow,
		},
		Cache: CacheConfig{Stats: true},
	}
}
