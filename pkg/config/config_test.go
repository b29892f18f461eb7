package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "txTransaction", cfg.Group.Name)
	assert.Equal(t, 2*time.Second, cfg.Shutdown.PollInterval.Std())
	assert.Len(t, cfg.Executor.Pools, 1)
}

func TestLoadConfig_YAML(t *testing.T) {
	path := createTempFile(t, "txworker.yaml", `
group:
  name: payments
shutdown:
  timeout: 10s
  poll_interval: 500ms
executor:
  pools:
    - name: commit
      workers: 2
      queue_size: 16
    - name: sweeper
      daemon: true
      workers: 1
log:
  level: debug
  format: console
tracing:
  enabled: true
  exporter: zipkin
  endpoint: http://localhost:9411/api/v2/spans
  sample_ratio: 0.5
`)

	cfg, err := LoadConfig(path, "TXW_YAML_TEST")
	require.NoError(t, err)

	assert.Equal(t, "payments", cfg.Group.Name)
	assert.Equal(t, 10*time.Second, cfg.Shutdown.Timeout.Std())
	assert.Equal(t, 500*time.Millisecond, cfg.Shutdown.PollInterval.Std())
	require.Len(t, cfg.Executor.Pools, 2)
	assert.Equal(t, PoolConfig{Name: "commit", Workers: 2, QueueSize: 16}, cfg.Executor.Pools[0])
	assert.True(t, cfg.Executor.Pools[1].Daemon)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "zipkin", cfg.Tracing.Exporter)
	assert.InDelta(t, 0.5, cfg.Tracing.SampleRatio, 1e-9)

	// untouched sections keep their defaults
	assert.Equal(t, "txworker", cfg.Tracing.ServiceName)
	assert.Equal(t, ":8089", cfg.Admin.Addr)
}

func TestLoadConfig_JSON(t *testing.T) {
	path := createTempFile(t, "txworker.json", `{
  "group": {"name": "ledger"},
  "shutdown": {"timeout": "1m", "poll_interval": "1s"},
  "events": {"enabled": true, "url": "nats://nats:4222", "subject": "ledger.threads"}
}`)

	cfg, err := LoadConfig(path, "TXW_JSON_TEST")
	require.NoError(t, err)
	assert.Equal(t, "ledger", cfg.Group.Name)
	assert.Equal(t, time.Minute, cfg.Shutdown.Timeout.Std())
	assert.True(t, cfg.Events.Enabled)
	assert.Equal(t, "ledger.threads", cfg.Events.Subject)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("TXW_ENV_GROUP_NAME", "fromenv")
	t.Setenv("TXW_ENV_SHUTDOWN_TIMEOUT", "45s")
	t.Setenv("TXW_ENV_METRICS_ENABLED", "false")
	t.Setenv("TXW_ENV_TRACING_SAMPLE_RATIO", "0.25")
	t.Setenv("TXW_ENV_ADMIN_AUTH_SECRET", "s3cret")

	cfg, err := LoadConfig("", "TXW_ENV")
	require.NoError(t, err)
	assert.Equal(t, "fromenv", cfg.Group.Name)
	assert.Equal(t, 45*time.Second, cfg.Shutdown.Timeout.Std())
	assert.False(t, cfg.Metrics.Enabled)
	assert.InDelta(t, 0.25, cfg.Tracing.SampleRatio, 1e-9)
	assert.Equal(t, "s3cret", cfg.Admin.AuthSecret)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"), "")
	assert.Error(t, err)

	path := createTempFile(t, "bad.yaml", "shutdown:\n  timeout: soon\n")
	_, err = LoadConfig(path, "TXW_BAD_TEST")
	assert.ErrorContains(t, err, "invalid duration")

	t.Setenv("TXW_ENVBAD_SHUTDOWN_POLL_INTERVAL", "often")
	_, err = LoadConfig("", "TXW_ENVBAD")
	assert.ErrorContains(t, err, `TXW_ENVBAD_SHUTDOWN_POLL_INTERVAL: invalid duration value "often"`)

	t.Setenv("TXW_ENVBOOL_METRICS_ENABLED", "maybe")
	_, err = LoadConfig("", "TXW_ENVBOOL")
	assert.ErrorContains(t, err, "invalid boolean value")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"empty group", func(c *Config) { c.Group.Name = "" }, "missing required settings: group.name"},
		{"zero timeout", func(c *Config) { c.Shutdown.Timeout = 0 }, "shutdown.timeout must be positive, got 0s"},
		{"negative poll", func(c *Config) { c.Shutdown.PollInterval = Duration(-time.Second) }, "shutdown.poll_interval must be positive, got -1s"},
		{"sample ratio", func(c *Config) { c.Tracing.SampleRatio = 2 }, "tracing.sample_ratio is 2, out of range [0, 1]"},
		{"exporter", func(c *Config) { c.Tracing.Exporter = "jaeger" }, `tracing.exporter is "jaeger", want one of: stdout, zipkin`},
		{"zipkin endpoint", func(c *Config) {
			c.Tracing.Enabled = true
			c.Tracing.Exporter = "zipkin"
		}, "missing required settings: tracing.endpoint"},
		{"events subject", func(c *Config) {
			c.Events.Enabled = true
			c.Events.Subject = ""
		}, "missing required settings: events.subject"},
		{"admin max wait", func(c *Config) { c.Admin.MaxWait = 0 }, "admin.max_wait must be positive"},
		{"pool name", func(c *Config) { c.Executor.Pools = []PoolConfig{{Workers: 1}} }, "has no name"},
		{"pool duplicate", func(c *Config) {
			c.Executor.Pools = []PoolConfig{{Name: "a"}, {Name: "a"}}
		}, "declared twice"},
		{"pool size", func(c *Config) { c.Executor.Pools = []PoolConfig{{Name: "a", Workers: -1}} }, "negative size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.wantErr)
		})
	}
}

func TestDuration_Text(t *testing.T) {
	d := Duration(1500 * time.Millisecond)
	b, err := d.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"1.5s"`, string(b))

	var back Duration
	require.NoError(t, back.UnmarshalJSON(b))
	assert.Equal(t, d, back)

	assert.Error(t, back.UnmarshalJSON([]byte(`15`)))
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "TXWORKER_SHUTDOWN_POLL_INTERVAL", EnvKey(DefaultEnvPrefix, "shutdown.poll_interval"))
	assert.Equal(t, "APP_LOG_LEVEL", EnvKey("APP", "log.level"))
}

func TestWalkSettings_SkipsPools(t *testing.T) {
	var paths []string
	require.NoError(t, walkSettings(Default(), func(path string, _ reflect.Value) error {
		paths = append(paths, path)
		return nil
	}))
	assert.Contains(t, paths, "shutdown.poll_interval")
	assert.Contains(t, paths, "log.format")
	assert.Contains(t, paths, "admin.max_wait")
	for _, p := range paths {
		assert.NotContains(t, p, "executor")
	}
}

func TestValidator_UnknownSetting(t *testing.T) {
	assert.EqualError(t, Required("group.label")(Default()), "unknown setting group.label")
	assert.EqualError(t, Positive("group.name")(Default()), "group.name is not numeric")
	assert.EqualError(t, OneOf("shutdown.timeout", "x")(Default()), "shutdown.timeout is not a string setting")
}

func createTempFile(t *testing.T, name, content string) string {
	t.Helper()
	tmpFile := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(tmpFile, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	return tmpFile
}
