package config

import (
	"fmt"
	"net/url"
	"strings"

	"kadrisk/pkg/cel"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

var validSeverities = map[string]bool{
	"info": true, "low": true, "medium": true, "high": true,
}

func ValidateStatic(cfg *Config) error {
	var errors []error

	validators := []func(*Config) error{
		func(c *Config) error { return validateKad(c.Kad) },
		func(c *Config) error { return validateCache(c.Cache) },
		func(c *Config) error { return validateEnrichment(c.Enrichment) },
		func(c *Config) error { return validateSignals(c.Signals) },
		func(c *Config) error { return validateServer(c.Server) },
		func(c *Config) error { return validateBroker(c.Broker) },
	}

	for _, validate := range validators {
		if err := validate(cfg); err != nil {
			errors = append(errors, err)
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errors)
	}

	return nil
}

func validateKad(cfg KadConfig) error {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return &ValidationError{
			Field:   "kad.base_url",
			Message: fmt.Sprintf("must be an absolute URL, got %q", cfg.BaseURL),
		}
	}

	if cfg.RequestTimeout <= 0 {
		return &ValidationError{
			Field:   "kad.request_timeout",
			Message: "request timeout must be positive",
		}
	}

	if cfg.MinRequestInterval < 0 {
		return &ValidationError{
			Field:   "kad.min_request_interval",
			Message: "min request interval must be non-negative",
		}
	}

	if cfg.Retry.MaxAttempts < 1 {
		return &ValidationError{
			Field:   "kad.retry.max_attempts",
			Message: "max_attempts must be at least 1",
		}
	}

	for i, d := range cfg.Retry.Delays {
		if d < 0 {
			return &ValidationError{
				Field:   fmt.Sprintf("kad.retry.delays[%d]", i),
				Message: "delay must be non-negative",
			}
		}
	}

	return nil
}

func validateCache(cfg CacheConfig) error {
	if cfg.MaxItems < 1 {
		return &ValidationError{
			Field:   "cache.max_items",
			Message: fmt.Sprintf("max_items must be positive, got %d", cfg.MaxItems),
		}
	}

	if cfg.TTL <= 0 {
		return &ValidationError{
			Field:   "cache.ttl",
			Message: "TTL must be positive",
		}
	}

	if !cfg.Redis.Enabled {
		return nil
	}

	if cfg.Redis.Host == "" {
		return &ValidationError{
			Field:   "cache.redis.host",
			Message: "Redis host is required",
		}
	}

	if cfg.Redis.Port < 1 || cfg.Redis.Port > 65535 {
		return &ValidationError{
			Field:   "cache.redis.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Redis.Port),
		}
	}

	if cfg.Redis.TTL < 0 {
		return &ValidationError{
			Field:   "cache.redis.ttl",
			Message: "TTL must be non-negative",
		}
	}

	return nil
}

func validateEnrichment(cfg EnrichmentConfig) error {
	if cfg.MaxPages < 1 {
		return &ValidationError{Field: "enrichment.max_pages", Message: "max_pages must be at least 1"}
	}
	if cfg.MaxCases < 0 {
		return &ValidationError{Field: "enrichment.max_cases", Message: "max_cases must be non-negative"}
	}
	if cfg.PageSize < 1 || cfg.PageSize > 100 {
		return &ValidationError{
			Field:   "enrichment.page_size",
			Message: fmt.Sprintf("page_size must be between 1 and 100, got %d", cfg.PageSize),
		}
	}
	if cfg.Workers < 1 {
		return &ValidationError{Field: "enrichment.workers", Message: "workers must be at least 1"}
	}
	if cfg.RunTimeout < 0 {
		return &ValidationError{Field: "enrichment.run_timeout", Message: "run_timeout must be non-negative"}
	}
	return nil
}

func validateSignals(cfg SignalsConfig) error {
	if cfg.WindowMonths < 1 {
		return &ValidationError{Field: "signals.window_months", Message: "window_months must be at least 1"}
	}

	if len(cfg.CustomRules) == 0 {
		return nil
	}

	evaluator, err := cel.NewEvaluator()
	if err != nil {
		return err
	}

	seen := make(map[string]bool, len(cfg.CustomRules))
	for i, rule := range cfg.CustomRules {
		field := fmt.Sprintf("signals.custom_rules[%d]", i)
		if rule.Code == "" {
			return &ValidationError{Field: field + ".code", Message: "code is required"}
		}
		if seen[rule.Code] {
			return &ValidationError{Field: field + ".code", Message: fmt.Sprintf("duplicate code %q", rule.Code)}
		}
		seen[rule.Code] = true

		if rule.Severity != "" && !validSeverities[strings.ToLower(rule.Severity)] {
			return &ValidationError{
				Field:   field + ".severity",
				Message: fmt.Sprintf("invalid severity: %s (valid: info, low, medium, high)", rule.Severity),
			}
		}
		if err := evaluator.ValidateRuleExpression(rule.Expression); err != nil {
			return &ValidationError{Field: field + ".expression", Message: err.Error()}
		}
	}

	return nil
}

func validateServer(cfg ServerConfig) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	if cfg.ReadTimeout <= 0 {
		return &ValidationError{
			Field:   "server.read_timeout",
			Message: "read timeout must be positive",
		}
	}

	if cfg.WriteTimeout <= 0 {
		return &ValidationError{
			Field:   "server.write_timeout",
			Message: "write timeout must be positive",
		}
	}

	if cfg.RateLimit.Enabled && cfg.RateLimit.RPS <= 0 {
		return &ValidationError{
			Field:   "server.rate_limit.rps",
			Message: "rps must be positive when rate limiting is enabled",
		}
	}

	return nil
}

func validateBroker(cfg BrokerConfig) error {
	switch cfg.Type {
	case "", "none":
		return nil
	case "kafka":
		return validateKafka(cfg.Kafka)
	default:
		return &ValidationError{
			Field:   "broker.type",
			Message: fmt.Sprintf("unknown broker type: %s (supported: kafka, none)", cfg.Type),
		}
	}
}

func validateKafka(cfg KafkaConfig) error {
	if len(cfg.Brokers) == 0 {
		return &ValidationError{
			Field:   "broker.kafka.brokers",
			Message: "at least one Kafka broker is required",
		}
	}

	for i, broker := range cfg.Brokers {
		if broker == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("broker.kafka.brokers[%d]", i),
				Message: "broker address cannot be empty",
			}
		}
	}

	if cfg.GroupID == "" {
		return &ValidationError{
			Field:   "broker.kafka.group_id",
			Message: "Kafka consumer group ID is required",
		}
	}

	if cfg.InputTopic == "" || cfg.OutputTopic == "" {
		return &ValidationError{
			Field:   "broker.kafka.input_topic",
			Message: "input and output topics are required",
		}
	}

	if cfg.Retry.MaxAttempts < 0 {
		return &ValidationError{
			Field:   "broker.kafka.retry.max_attempts",
			Message: "max_attempts must be non-negative",
		}
	}

	if cfg.Retry.MaxInterval > 0 && cfg.Retry.InitialInterval > 0 && cfg.Retry.MaxInterval < cfg.Retry.InitialInterval {
		return &ValidationError{
			Field:   "broker.kafka.retry.max_interval",
			Message: "max_interval must be greater than or equal to initial_interval",
		}
	}

	if cfg.Retry.Multiplier <= 0 {
		return &ValidationError{
			Field:   "broker.kafka.retry.multiplier",
			Message: "multiplier must be positive",
		}
	}

	return nil
}
