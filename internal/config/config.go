package config

import (
	"time"
)

type Config struct {
	Kad            KadConfig            `mapstructure:"kad"`
	Cache          CacheConfig          `mapstructure:"cache"`
	PDF            PDFConfig            `mapstructure:"pdf"`
	Enrichment     EnrichmentConfig     `mapstructure:"enrichment"`
	Signals        SignalsConfig        `mapstructure:"signals"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
	Server         ServerConfig         `mapstructure:"server"`
	Broker         BrokerConfig         `mapstructure:"broker"`
	Logging        LoggingConfig        `mapstructure:"logging"`
	Tracing        TracingConfig        `mapstructure:"tracing"`
}

type KadConfig struct {
	BaseURL            string        `mapstructure:"base_url"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout"`
	VerifySSL          bool          `mapstructure:"verify_ssl"`
	UserAgent          string        `mapstructure:"user_agent"`
	MinRequestInterval time.Duration `mapstructure:"min_request_interval"`
	Retry              RetryConfig   `mapstructure:"retry"`
}

type RetryConfig struct {
	MaxAttempts int             `mapstructure:"max_attempts"`
	Delays      []time.Duration `mapstructure:"delays"`
}

type CacheConfig struct {
	MaxItems int           `mapstructure:"max_items"`
	TTL      time.Duration `mapstructure:"ttl"`
	Redis    RedisConfig   `mapstructure:"redis"`
}

type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type PDFConfig struct {
	MinTextChars  int    `mapstructure:"min_text_chars"`
	PdftotextPath string `mapstructure:"pdftotext_path"`
	MaxBytes      int64  `mapstructure:"max_bytes"`
}

type EnrichmentConfig struct {
	MaxPages     int           `mapstructure:"max_pages"`
	MaxCases     int           `mapstructure:"max_cases"`
	PageSize     int           `mapstructure:"page_size"`
	Workers      int           `mapstructure:"workers"`
	RunTimeout   time.Duration `mapstructure:"run_timeout"`
	ErrorSamples int           `mapstructure:"error_samples"`
	MaxAmounts   int           `mapstructure:"max_amounts"`
}

type SignalsConfig struct {
	WindowMonths int          `mapstructure:"window_months"`
	LargeAmount  float64      `mapstructure:"large_amount"`
	CustomRules  []CustomRule `mapstructure:"custom_rules"`
}

// CustomRule is a CEL boolean expression over aggregated stats that emits
// a signal when true.
type CustomRule struct {
	Code        string `mapstructure:"code"`
	Title       string `mapstructure:"title"`
	Description string `mapstructure:"description"`
	Severity    string `mapstructure:"severity"`
	Expression  string `mapstructure:"expression"`
}

type CircuitBreakerConfig struct {
	Enabled             bool          `mapstructure:"enabled"`
	MaxRequests         uint32        `mapstructure:"max_requests"`
	Interval            time.Duration `mapstructure:"interval"`
	Timeout             time.Duration `mapstructure:"timeout"`
	ConsecutiveFailures uint32        `mapstructure:"consecutive_failures"`
}

type ServerConfig struct {
	Port         int             `mapstructure:"port"`
	ReadTimeout  time.Duration   `mapstructure:"read_timeout"`
	WriteTimeout time.Duration   `mapstructure:"write_timeout"`
	RateLimit    RateLimitConfig `mapstructure:"rate_limit"`
}

type RateLimitConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	RPS             float64       `mapstructure:"rps"`
	Burst           int           `mapstructure:"burst"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	MaxAge          time.Duration `mapstructure:"max_age"`
}

type BrokerConfig struct {
	Type  string      `mapstructure:"type"`
	Kafka KafkaConfig `mapstructure:"kafka"`
}

type KafkaConfig struct {
	Brokers     []string         `mapstructure:"brokers"`
	GroupID     string           `mapstructure:"group_id"`
	InputTopic  string           `mapstructure:"input_topic"`
	OutputTopic string           `mapstructure:"output_topic"`
	DLQTopic    string           `mapstructure:"dlq_topic"`
	Retry       KafkaRetryConfig `mapstructure:"retry"`
}

type KafkaRetryConfig struct {
	MaxAttempts     int           `mapstructure:"max_attempts"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	Multiplier      float64       `mapstructure:"multiplier"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type TracingConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	ServiceName string        `mapstructure:"service_name"`
	OTLP        OTLPConfig    `mapstructure:"otlp"`
	Sampler     SamplerConfig `mapstructure:"sampler"`
}

type OTLPConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Insecure bool   `mapstructure:"insecure"`
}

type SamplerConfig struct {
	Type  string  `mapstructure:"type"`
	Param float64 `mapstructure:"param"`
}

// BrokerEnabled reports whether serve mode should run the Kafka consumer.
func (c *Config) BrokerEnabled() bool {
	return c.Broker.Type != "" && c.Broker.Type != "none"
}

func Load(configFile string) (*Config, error) {
	return LoadConfig(configFile)
}
