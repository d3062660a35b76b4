// Package config loads gateway and worker settings from an optional YAML file
// and JOBGATEWAY_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/exp/slices"
)

const (
	DefaultBroadcastTimeout = 5 * time.Second
	DefaultHealthInterval   = 5 * time.Second
	EnvPrefix               = "JOBGATEWAY"
)

// Strategies lists the selection strategy names accepted in gateway.strategy.
var Strategies = []string{"first", "round-robin", "hash"}

type Config struct {
	Gateway struct {
		GRPCAddr         string        `mapstructure:"grpc_addr"`
		HTTPAddr         string        `mapstructure:"http_addr"`
		Strategy         string        `mapstructure:"strategy"`
		BroadcastTimeout time.Duration `mapstructure:"broadcast_timeout"`
	} `mapstructure:"gateway"`

	// Backends is the ordered list of worker addresses. Entries with an
	// http:// or https:// scheme are reached over HTTP/JSON, everything else
	// is dialed as a gRPC target.
	Backends []string `mapstructure:"backends"`

	Health struct {
		Interval time.Duration `mapstructure:"interval"`
		Timeout  time.Duration `mapstructure:"timeout"`
	} `mapstructure:"health"`

	Worker struct {
		ID       string `mapstructure:"id"`
		GRPCAddr string `mapstructure:"grpc_addr"`
		HTTPAddr string `mapstructure:"http_addr"`
	} `mapstructure:"worker"`

	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("gateway.grpc_addr", ":9090")
	v.SetDefault("gateway.http_addr", ":8080")
	v.SetDefault("gateway.strategy", "first")
	v.SetDefault("gateway.broadcast_timeout", DefaultBroadcastTimeout)
	v.SetDefault("backends", []string{"localhost:50051", "localhost:50052"})
	v.SetDefault("health.interval", DefaultHealthInterval)
	v.SetDefault("health.timeout", 2*time.Second)
	v.SetDefault("worker.id", "")
	v.SetDefault("worker.grpc_addr", ":50051")
	v.SetDefault("worker.http_addr", "")
	v.SetDefault("log.level", "info")
}

// LoadConfig reads path (if non-empty), applies environment overrides and
// validates the result. JOBGATEWAY_GATEWAY_BROADCAST_TIMEOUT=2s and
// JOBGATEWAY_BACKENDS=host-a:50051,host-b:50051 are typical overrides.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	c.Backends = cleanAddrs(c.Backends)

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks the invariants the gateway relies on at startup. An empty
// backend list is allowed: unicast calls then fail with "no backend servers
// available" and status aggregation returns an empty listing.
func (c *Config) Validate() error {
	var errs []error
	if c.Gateway.BroadcastTimeout <= 0 {
		errs = append(errs, fmt.Errorf("gateway.broadcast_timeout must be positive, got %v", c.Gateway.BroadcastTimeout))
	}
	if !slices.Contains(Strategies, c.Gateway.Strategy) {
		errs = append(errs, fmt.Errorf("gateway.strategy %q unknown, want one of %s", c.Gateway.Strategy, strings.Join(Strategies, ", ")))
	}
	if c.Health.Interval <= 0 {
		errs = append(errs, fmt.Errorf("health.interval must be positive, got %v", c.Health.Interval))
	}
	if c.Health.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("health.timeout must be positive, got %v", c.Health.Timeout))
	}
	seen := make(map[string]bool, len(c.Backends))
	for _, addr := range c.Backends {
		if seen[addr] {
			errs = append(errs, fmt.Errorf("backend %s listed twice", addr))
		}
		seen[addr] = true
	}
	return errors.Join(errs...)
}

// cleanAddrs trims entries and drops empty ones, keeping order.
func cleanAddrs(addrs []string) []string {
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}
