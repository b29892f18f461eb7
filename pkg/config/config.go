package config

import (
	"fmt"
	"time"

	"github.com/fluxorio/txworker/pkg/core"
)

// DefaultEnvPrefix is used by LoadConfig when no prefix is given
const DefaultEnvPrefix = "TXWORKER"

// Config is the process configuration for txworker
type Config struct {
	Group    GroupConfig    `yaml:"group" json:"group"`
	Shutdown ShutdownConfig `yaml:"shutdown" json:"shutdown"`
	Executor ExecutorConfig `yaml:"executor" json:"executor"`
	Log      core.LogConfig `yaml:"log" json:"log"`
	Metrics  MetricsConfig  `yaml:"metrics" json:"metrics"`
	Tracing  TracingConfig  `yaml:"tracing" json:"tracing"`
	Events   EventsConfig   `yaml:"events" json:"events"`
	Admin    AdminConfig    `yaml:"admin" json:"admin"`
}

// GroupConfig names the thread group every worker joins
type GroupConfig struct {
	Name string `yaml:"name" json:"name"`
}

// ShutdownConfig controls WaitAllShutdown
type ShutdownConfig struct {
	Timeout      Duration `yaml:"timeout" json:"timeout"`
	PollInterval Duration `yaml:"poll_interval" json:"poll_interval"`
}

// ExecutorConfig describes the worker pools started by the process
type ExecutorConfig struct {
	// Pools are started in order. Env overrides cannot address individual pools.
	Pools []PoolConfig `yaml:"pools" json:"pools"`
}

// PoolConfig is one executor backed by its own thread factory
type PoolConfig struct {
	Name      string `yaml:"name" json:"name"`
	Daemon    bool   `yaml:"daemon" json:"daemon"`
	Workers   int    `yaml:"workers" json:"workers"`
	QueueSize int    `yaml:"queue_size" json:"queue_size"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
}

// TracingConfig selects the OpenTelemetry exporter
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled" json:"enabled"`
	Exporter    string  `yaml:"exporter" json:"exporter"` // stdout | zipkin
	Endpoint    string  `yaml:"endpoint" json:"endpoint"`
	ServiceName string  `yaml:"service_name" json:"service_name"`
	SampleRatio float64 `yaml:"sample_ratio" json:"sample_ratio"`
}

// EventsConfig configures the NATS lifecycle publisher
type EventsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	URL     string `yaml:"url" json:"url"`
	Subject string `yaml:"subject" json:"subject"`
	Name    string `yaml:"name" json:"name"`
}

// AdminConfig configures the fasthttp admin endpoint
type AdminConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Addr    string `yaml:"addr" json:"addr"`

	// AuthSecret turns on HS256 bearer tokens for POST routes
	AuthSecret string `yaml:"auth_secret" json:"auth_secret"`
	AuthIssuer string `yaml:"auth_issuer" json:"auth_issuer"`

	// MaxWait caps the timeout a caller may ask /shutdown/wait for
	MaxWait Duration `yaml:"max_wait" json:"max_wait"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Group: GroupConfig{Name: "txTransaction"},
		Shutdown: ShutdownConfig{
			Timeout:      Duration(30 * time.Second),
			PollInterval: Duration(2 * time.Second),
		},
		Executor: ExecutorConfig{
			Pools: []PoolConfig{
				{Name: "worker", Workers: 4, QueueSize: 100},
			},
		},
		Log: core.LogConfig{Level: "info", Format: "json", Name: "txworker"},
		Metrics: MetricsConfig{Enabled: true},
		Tracing: TracingConfig{
			Exporter:    "stdout",
			ServiceName: "txworker",
			SampleRatio: 1.0,
		},
		Events: EventsConfig{
			URL:     "nats://127.0.0.1:4222",
			Subject: "txworker.lifecycle",
		},
		Admin: AdminConfig{Enabled: true, Addr: ":8089", MaxWait: Duration(time.Minute)},
	}
}

// LoadConfig reads path on top of Default, applies env overrides and
// validates the result. An empty path skips the file.
func LoadConfig(path, envPrefix string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := Load(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}
	if err := ApplyEnvOverrides(envPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to apply env overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration is usable
func (c *Config) Validate() error {
	validators := []Validator{
		Required("group.name"),
		Positive("shutdown.timeout", "shutdown.poll_interval"),
		InRange("tracing.sample_ratio", 0, 1),
		OneOf("tracing.exporter", "stdout", "zipkin"),
		validatePools,
	}
	if c.Tracing.Enabled && c.Tracing.Exporter == "zipkin" {
		validators = append(validators, Required("tracing.endpoint"))
	}
	if c.Events.Enabled {
		validators = append(validators, Required("events.url", "events.subject"))
	}
	if c.Admin.Enabled {
		validators = append(validators, Required("admin.addr"), Positive("admin.max_wait"))
	}

	for _, v := range validators {
		if err := v(c); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
	}
	return nil
}

func validatePools(c *Config) error {
	seen := make(map[string]struct{}, len(c.Executor.Pools))
	for i, p := range c.Executor.Pools {
		if p.Name == "" {
			return fmt.Errorf("executor pool %d has no name", i)
		}
		if _, dup := seen[p.Name]; dup {
			return fmt.Errorf("executor pool %q is declared twice", p.Name)
		}
		seen[p.Name] = struct{}{}
		if p.Workers < 0 || p.QueueSize < 0 {
			return fmt.Errorf("executor pool %q has negative size", p.Name)
		}
	}
	return nil
}
