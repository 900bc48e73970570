package broker

import (
	"context"

	"kadrisk/pkg/models"
)

type Producer interface {
	Publish(ctx context.Context, topic string, msg models.Message) error
	Close() error
}

type Consumer interface {
	Consume(ctx context.Context, topic string, handler HandlerFunc) error
	Close() error
	SetServiceName(name string)
}

type HandlerFunc func(ctx context.Context, req models.CheckRequest) error
