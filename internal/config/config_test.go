package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "https://kad.arbitr.ru", cfg.Kad.BaseURL)
	assert.Equal(t, 25*time.Second, cfg.Kad.RequestTimeout)
	assert.True(t, cfg.Kad.VerifySSL)
	assert.Equal(t, 1200*time.Millisecond, cfg.Kad.MinRequestInterval)
	assert.Equal(t, 3, cfg.Kad.Retry.MaxAttempts)
	assert.Equal(t, []time.Duration{300 * time.Millisecond, 800 * time.Millisecond, 1600 * time.Millisecond}, cfg.Kad.Retry.Delays)
	assert.Equal(t, 512, cfg.Cache.MaxItems)
	assert.Equal(t, 30*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 20, cfg.Enrichment.MaxCases)
	assert.Equal(t, 1, cfg.Enrichment.Workers)
	assert.Equal(t, 3, cfg.Enrichment.ErrorSamples)
	assert.Equal(t, 24, cfg.Signals.WindowMonths)
	assert.False(t, cfg.BrokerEnabled())
}

func TestLoadConfigFromFile(t *testing.T) {
	path := writeConfig(t, `
kad:
  base_url: "http://localhost:9000/"
  min_request_interval: 0s
enrichment:
  workers: 4
  max_cases: 5
signals:
  custom_rules:
    - code: kad_arbitr_many_cases_total
      title: Many cases
      severity: medium
      expression: "stats.cases_total > 50"
logging:
  level: debug
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9000", cfg.Kad.BaseURL)
	assert.Equal(t, time.Duration(0), cfg.Kad.MinRequestInterval)
	assert.Equal(t, 4, cfg.Enrichment.Workers)
	assert.Equal(t, 5, cfg.Enrichment.MaxCases)
	require.Len(t, cfg.Signals.CustomRules, 1)
	assert.Equal(t, "stats.cases_total > 50", cfg.Signals.CustomRules[0].Expression)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("KAD_BASE_URL", "http://kad.test")
	t.Setenv("BROKER_TYPE", "kafka")
	t.Setenv("BROKER_KAFKA_BROKERS", "k1:9092, k2:9092")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "http://kad.test", cfg.Kad.BaseURL)
	assert.True(t, cfg.BrokerEnabled())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Broker.Kafka.Brokers)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadExampleConfig(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join("..", "..", "configs", "kadrisk.yaml"))
	require.NoError(t, err)

	assert.True(t, cfg.CircuitBreaker.Enabled)
	assert.Equal(t, []time.Duration{300 * time.Millisecond, 800 * time.Millisecond, 1600 * time.Millisecond}, cfg.Kad.Retry.Delays)
	require.Len(t, cfg.Signals.CustomRules, 1)
	assert.Equal(t, "DduHeavy", cfg.Signals.CustomRules[0].Code)
	assert.False(t, cfg.BrokerEnabled())
}

func TestValidateStatic(t *testing.T) {
	base := func() *Config {
		cfg, err := LoadConfig("")
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{name: "relative base url", mutate: func(c *Config) { c.Kad.BaseURL = "/kad" }, field: "kad.base_url"},
		{name: "zero attempts", mutate: func(c *Config) { c.Kad.Retry.MaxAttempts = 0 }, field: "kad.retry.max_attempts"},
		{name: "zero cache size", mutate: func(c *Config) { c.Cache.MaxItems = 0 }, field: "cache.max_items"},
		{name: "redis without host", mutate: func(c *Config) { c.Cache.Redis.Enabled = true; c.Cache.Redis.Host = "" }, field: "cache.redis.host"},
		{name: "zero workers", mutate: func(c *Config) { c.Enrichment.Workers = 0 }, field: "enrichment.workers"},
		{name: "bad rule", mutate: func(c *Config) {
			c.Signals.CustomRules = []CustomRule{{Code: "x", Expression: "stats.cases_total +"}}
		}, field: "signals.custom_rules[0].expression"},
		{name: "bad severity", mutate: func(c *Config) {
			c.Signals.CustomRules = []CustomRule{{Code: "x", Severity: "urgent", Expression: "true"}}
		}, field: "signals.custom_rules[0].severity"},
		{name: "kafka without brokers", mutate: func(c *Config) { c.Broker.Type = "kafka"; c.Broker.Kafka.Brokers = nil }, field: "broker.kafka.brokers"},
		{name: "unknown broker", mutate: func(c *Config) { c.Broker.Type = "rabbitmq" }, field: "broker.type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := ValidateStatic(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}
