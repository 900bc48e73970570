package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// LoadConfig reads configFile (optional; defaults and environment apply
// when it is empty) and validates the result.
func LoadConfig(configFile string) (*Config, error) {
	viper.Reset()

	viper.SetConfigType("yaml")

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()
	bindEnvVariables()

	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvOverrides(&cfg)

	if err := ValidateStatic(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("kad.base_url", "https://kad.arbitr.ru")
	viper.SetDefault("kad.request_timeout", 25*time.Second)
	viper.SetDefault("kad.verify_ssl", true)
	viper.SetDefault("kad.user_agent", DefaultUserAgent)
	viper.SetDefault("kad.min_request_interval", 1200*time.Millisecond)
	viper.SetDefault("kad.retry.max_attempts", 3)
	viper.SetDefault("kad.retry.delays", []time.Duration{300 * time.Millisecond, 800 * time.Millisecond, 1600 * time.Millisecond})

	viper.SetDefault("cache.max_items", 512)
	viper.SetDefault("cache.ttl", 30*time.Minute)
	viper.SetDefault("cache.redis.enabled", false)
	viper.SetDefault("cache.redis.host", "localhost")
	viper.SetDefault("cache.redis.port", 6379)
	viper.SetDefault("cache.redis.db", 0)
	viper.SetDefault("cache.redis.ttl", 6*time.Hour)

	viper.SetDefault("pdf.min_text_chars", 200)
	viper.SetDefault("pdf.pdftotext_path", "pdftotext")
	viper.SetDefault("pdf.max_bytes", int64(30<<20))

	viper.SetDefault("enrichment.max_pages", 5)
	viper.SetDefault("enrichment.max_cases", 20)
	viper.SetDefault("enrichment.page_size", 25)
	viper.SetDefault("enrichment.workers", 1)
	viper.SetDefault("enrichment.run_timeout", 10*time.Minute)
	viper.SetDefault("enrichment.error_samples", 3)
	viper.SetDefault("enrichment.max_amounts", 3)

	viper.SetDefault("signals.window_months", 24)
	viper.SetDefault("signals.large_amount", 1_000_000.0)

	viper.SetDefault("circuit_breaker.enabled", false)
	viper.SetDefault("circuit_breaker.max_requests", 1)
	viper.SetDefault("circuit_breaker.interval", time.Minute)
	viper.SetDefault("circuit_breaker.timeout", 2*time.Minute)
	viper.SetDefault("circuit_breaker.consecutive_failures", 5)

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 15*time.Second)
	viper.SetDefault("server.write_timeout", 15*time.Minute)
	viper.SetDefault("server.rate_limit.enabled", true)
	viper.SetDefault("server.rate_limit.rps", 1.0)
	viper.SetDefault("server.rate_limit.burst", 3)
	viper.SetDefault("server.rate_limit.cleanup_interval", time.Minute)
	viper.SetDefault("server.rate_limit.max_age", 10*time.Minute)

	viper.SetDefault("broker.type", "none")
	viper.SetDefault("broker.kafka.group_id", "kadrisk")
	viper.SetDefault("broker.kafka.input_topic", "kad_check_requests")
	viper.SetDefault("broker.kafka.output_topic", "kad_check_reports")
	viper.SetDefault("broker.kafka.dlq_topic", "kad_check_requests_dlq")
	viper.SetDefault("broker.kafka.retry.max_attempts", 3)
	viper.SetDefault("broker.kafka.retry.initial_interval", time.Second)
	viper.SetDefault("broker.kafka.retry.max_interval", 30*time.Second)
	viper.SetDefault("broker.kafka.retry.multiplier", 2.0)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")

	viper.SetDefault("tracing.enabled", false)
	viper.SetDefault("tracing.service_name", "kadrisk")
	viper.SetDefault("tracing.sampler.type", "always_on")
	viper.SetDefault("tracing.sampler.param", 1.0)
}

func bindEnvVariables() {
	viper.BindEnv("kad.base_url", "KAD_BASE_URL")
	viper.BindEnv("kad.request_timeout", "KAD_REQUEST_TIMEOUT")
	viper.BindEnv("kad.verify_ssl", "KAD_VERIFY_SSL")
	viper.BindEnv("kad.user_agent", "KAD_USER_AGENT")
	viper.BindEnv("kad.min_request_interval", "KAD_MIN_REQUEST_INTERVAL")

	viper.BindEnv("cache.max_items", "CACHE_MAX_ITEMS")
	viper.BindEnv("cache.ttl", "CACHE_TTL")
	viper.BindEnv("cache.redis.enabled", "CACHE_REDIS_ENABLED")
	viper.BindEnv("cache.redis.host", "CACHE_REDIS_HOST")
	viper.BindEnv("cache.redis.port", "CACHE_REDIS_PORT")
	viper.BindEnv("cache.redis.password", "CACHE_REDIS_PASSWORD")
	viper.BindEnv("cache.redis.db", "CACHE_REDIS_DB")

	viper.BindEnv("pdf.pdftotext_path", "PDF_PDFTOTEXT_PATH")

	viper.BindEnv("enrichment.workers", "ENRICHMENT_WORKERS")
	viper.BindEnv("enrichment.run_timeout", "ENRICHMENT_RUN_TIMEOUT")

	viper.BindEnv("broker.type", "BROKER_TYPE")
	viper.BindEnv("broker.kafka.brokers", "BROKER_KAFKA_BROKERS")
	viper.BindEnv("broker.kafka.group_id", "BROKER_KAFKA_GROUP_ID")
	viper.BindEnv("broker.kafka.input_topic", "BROKER_KAFKA_INPUT_TOPIC")
	viper.BindEnv("broker.kafka.output_topic", "BROKER_KAFKA_OUTPUT_TOPIC")
	viper.BindEnv("broker.kafka.dlq_topic", "BROKER_KAFKA_DLQ_TOPIC")

	viper.BindEnv("server.port", "SERVER_PORT")

	viper.BindEnv("logging.level", "LOGGING_LEVEL")
	viper.BindEnv("logging.format", "LOGGING_FORMAT")

	viper.BindEnv("tracing.otlp.endpoint", "TRACING_OTLP_ENDPOINT")
	viper.BindEnv("tracing.otlp.insecure", "TRACING_OTLP_INSECURE")
	viper.BindEnv("tracing.enabled", "TRACING_ENABLED")
	viper.BindEnv("tracing.service_name", "TRACING_SERVICE_NAME")
}

func applyEnvOverrides(cfg *Config) {
	if brokersEnv := viper.GetString("BROKER_KAFKA_BROKERS"); brokersEnv != "" {
		brokers := strings.Split(brokersEnv, ",")
		for i := range brokers {
			brokers[i] = strings.TrimSpace(brokers[i])
		}
		if len(brokers) > 0 && brokers[0] != "" {
			cfg.Broker.Kafka.Brokers = brokers
		}
	}

	cfg.Kad.BaseURL = strings.TrimRight(cfg.Kad.BaseURL, "/")
}
