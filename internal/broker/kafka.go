package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"kadrisk/internal/config"
	"kadrisk/internal/constants"
	"kadrisk/internal/logger"
	"kadrisk/pkg/errors"
	"kadrisk/pkg/logging"
	"kadrisk/pkg/metrics"
	"kadrisk/pkg/models"
	"kadrisk/pkg/retry"
	"kadrisk/pkg/tracing"
)

const (
	directionIn  = "in"
	directionOut = "out"
	directionDLQ = "dlq"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaProducer struct {
	writer messageWriter
	logger logger.Logger
}

func NewKafkaProducer(cfg config.KafkaConfig, log logger.Logger) *KafkaProducer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		BatchTimeout: constants.KafkaBatchTimeout,
		WriteTimeout: constants.KafkaWriteTimeout,
		Async:        false,
	}
	return &KafkaProducer{writer: w, logger: log}
}

func (p *KafkaProducer) Publish(ctx context.Context, topic string, msg models.Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	headers := tracing.InjectTraceContext(ctx, []kafka.Header{})

	err = p.writer.WriteMessages(ctx,
		kafka.Message{
			Topic:   topic,
			Key:     []byte(msg.MessageKey()),
			Value:   body,
			Headers: headers,
			Time:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to write kafka message: %w", err)
	}

	metrics.IncBrokerMessage(topic, directionOut)
	return nil
}

func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}

// KafkaConsumer reads check requests one at a time. A request that fails
// validation goes straight to the DLQ; a handler error is retried and then
// dead-lettered. Messages are committed either way so one bad request never
// blocks the partition.
type KafkaConsumer struct {
	cfg         config.KafkaConfig
	wg          sync.WaitGroup
	reader      messageReader
	logger      logger.Logger
	dlqProducer Producer
	serviceName string
	newReader   func(topic string) messageReader
}

func NewKafkaConsumer(cfg config.KafkaConfig, log logger.Logger) *KafkaConsumer {
	consumer := &KafkaConsumer{
		cfg:         cfg,
		logger:      log,
		serviceName: constants.ServiceName,
	}
	consumer.newReader = func(topic string) messageReader {
		return kafka.NewReader(kafka.ReaderConfig{
			Brokers:  cfg.Brokers,
			GroupID:  cfg.GroupID,
			Topic:    topic,
			MinBytes: 1,
			MaxBytes: 10e6,
		})
	}

	if cfg.DLQTopic != "" {
		consumer.dlqProducer = NewKafkaProducer(cfg, log)
	}

	return consumer
}

func (c *KafkaConsumer) SetServiceName(name string) {
	c.serviceName = name
}

func (c *KafkaConsumer) Consume(ctx context.Context, topic string, handler HandlerFunc) error {
	c.logger.Infow("Creating Kafka reader",
		"topic", topic,
		"brokers", c.cfg.Brokers,
		"group_id", c.cfg.GroupID,
		"service_name", c.serviceName,
	)

	c.reader = c.newReader(topic)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		consumeCtx := logging.WithServiceName(ctx, c.serviceName)
		c.logger.InfowCtx(consumeCtx, "Started consuming", "topic", topic)

		for {
			m, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					c.logger.InfowCtx(consumeCtx, "Stopped consuming",
						"topic", topic,
						"reason", "context canceled",
					)
					return
				}
				c.logger.ErrorwCtx(consumeCtx, "Error fetching kafka message",
					"error", err,
					"topic", topic,
				)
				select {
				case <-ctx.Done():
					return
				case <-time.After(time.Second):
				}
				continue
			}

			c.process(consumeCtx, topic, m, handler)

			if err := c.reader.CommitMessages(ctx, m); err != nil {
				c.logger.ErrorwCtx(consumeCtx, "Failed to commit message",
					"error", err,
					"topic", topic,
				)
			}
		}
	}()

	<-ctx.Done()
	return ctx.Err()
}

func (c *KafkaConsumer) process(ctx context.Context, topic string, m kafka.Message, handler HandlerFunc) {
	metrics.IncBrokerMessage(topic, directionIn)

	msgCtx, span := tracing.StartSpanFromKafkaMessage(ctx, "kafka.consume", m.Headers)
	var failure error
	defer func() { tracing.EndSpan(span, failure) }()

	var req models.CheckRequest
	if err := json.Unmarshal(m.Value, &req); err != nil {
		c.logger.ErrorwCtx(msgCtx, "Failed to unmarshal check request",
			"error", err,
			"topic", topic,
		)
		failure = err
		c.deadLetter(msgCtx, m, err, topic)
		return
	}

	req.Normalize(func() string { return string(m.Key) })
	if req.Metadata.TraceID != "" {
		msgCtx = logging.WithTraceID(msgCtx, req.Metadata.TraceID)
	}
	msgCtx = logging.WithCheckID(msgCtx, req.ID)

	if err := models.ValidateCheckRequest(&req); err != nil {
		c.logger.WarnwCtx(msgCtx, "Rejected check request", "error", err, "topic", topic)
		failure = err
		c.deadLetter(msgCtx, m, err, topic)
		return
	}

	if err := c.processWithRetry(msgCtx, req, handler, topic); err != nil {
		c.logger.ErrorwCtx(msgCtx, "Failed to process message after retries",
			"error", err,
			"topic", topic,
		)
		failure = err
		c.deadLetter(msgCtx, m, err, topic)
	}
}

func (c *KafkaConsumer) processWithRetry(ctx context.Context, req models.CheckRequest, handler HandlerFunc, topic string) error {
	policy := retry.Policy{
		MaxAttempts:     3,
		InitialInterval: 1 * time.Second,
		MaxInterval:     30 * time.Second,
		Multiplier:      2.0,
	}

	if c.cfg.Retry.MaxAttempts > 0 {
		policy.MaxAttempts = c.cfg.Retry.MaxAttempts
	}
	if c.cfg.Retry.InitialInterval > 0 {
		policy.InitialInterval = c.cfg.Retry.InitialInterval
	}
	if c.cfg.Retry.MaxInterval > 0 {
		policy.MaxInterval = c.cfg.Retry.MaxInterval
	}
	if c.cfg.Retry.Multiplier > 0 {
		policy.Multiplier = c.cfg.Retry.Multiplier
	}

	return retry.RetryWithCallback(ctx, policy, func() error {
		err := errors.Safe(func() error { return handler(ctx, req) })
		if errors.IsFatal(err) {
			c.logger.ErrorwCtx(ctx, "Handler failed permanently",
				"error", err,
				"topic", topic,
			)
		}
		return err
	}, func(attempt int, err error, nextDelay time.Duration) {
		c.logger.WarnwCtx(ctx, "Retrying message processing",
			"attempt", attempt,
			"max_attempts", policy.MaxAttempts,
			"next_delay", nextDelay,
			"error", err,
			"topic", topic,
		)
	})
}

func (c *KafkaConsumer) deadLetter(ctx context.Context, m kafka.Message, reason error, sourceTopic string) {
	if c.dlqProducer == nil || c.cfg.DLQTopic == "" {
		c.logger.WarnwCtx(ctx, "No DLQ configured, dropping message", "topic", sourceTopic)
		return
	}

	body := json.RawMessage(m.Value)
	if !json.Valid(m.Value) {
		quoted, _ := json.Marshal(string(m.Value))
		body = quoted
	}

	letter := models.DeadLetter{
		Key:         string(m.Key),
		Body:        body,
		Reason:      reason.Error(),
		SourceTopic: sourceTopic,
		FailedAt:    time.Now().UTC(),
	}
	if err := c.dlqProducer.Publish(ctx, c.cfg.DLQTopic, letter); err != nil {
		c.logger.ErrorwCtx(ctx, "Failed to send message to DLQ",
			"error", err,
			"topic", sourceTopic,
		)
		return
	}

	metrics.IncBrokerMessage(sourceTopic, directionDLQ)
	c.logger.InfowCtx(ctx, "Message sent to DLQ",
		"source_topic", sourceTopic,
		"dlq_topic", c.cfg.DLQTopic,
		"reason", reason.Error(),
	)
}

func (c *KafkaConsumer) Close() error {
	c.wg.Wait()

	var err error
	if c.reader != nil {
		err = c.reader.Close()
	}
	if c.dlqProducer != nil {
		if closeErr := c.dlqProducer.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}
	return err
}
