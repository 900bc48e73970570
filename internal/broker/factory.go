package broker

import (
	"fmt"

	"kadrisk/internal/config"
	"kadrisk/internal/logger"
)

const TypeKafka = "kafka"

// Enabled reports whether cfg selects a real broker.
func Enabled(cfg config.BrokerConfig) bool {
	return cfg.Type == TypeKafka
}

func NewProducer(cfg config.BrokerConfig, log logger.Logger) (Producer, error) {
	switch cfg.Type {
	case TypeKafka:
		return NewKafkaProducer(cfg.Kafka, log), nil
	default:
		return nil, fmt.Errorf("unknown broker type: %s", cfg.Type)
	}
}

func NewConsumer(cfg config.BrokerConfig, log logger.Logger) (Consumer, error) {
	switch cfg.Type {
	case TypeKafka:
		return NewKafkaConsumer(cfg.Kafka, log), nil
	default:
		return nil, fmt.Errorf("unknown broker type: %s", cfg.Type)
	}
}
