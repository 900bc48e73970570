package broker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kadrisk/internal/config"
	"kadrisk/internal/logger"
	"kadrisk/pkg/models"
)

type fakeReader struct {
	msgs      chan kafka.Message
	mu        sync.Mutex
	committed []kafka.Message
	closed    bool
}

func newFakeReader(msgs ...kafka.Message) *fakeReader {
	r := &fakeReader{msgs: make(chan kafka.Message, len(msgs))}
	for _, m := range msgs {
		r.msgs <- m
	}
	return r
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case m := <-r.msgs:
		return m, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error {
	r.closed = true
	return nil
}

func (r *fakeReader) commits() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.committed)
}

type fakeProducer struct {
	mu        sync.Mutex
	published map[string][]models.Message
}

func (p *fakeProducer) Publish(_ context.Context, topic string, msg models.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.published == nil {
		p.published = make(map[string][]models.Message)
	}
	p.published[topic] = append(p.published[topic], msg)
	return nil
}

func (p *fakeProducer) Close() error { return nil }

func (p *fakeProducer) on(topic string) []models.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.published[topic]
}

type fakeWriter struct {
	msgs []kafka.Message
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func newTestConsumer(reader *fakeReader) (*KafkaConsumer, *fakeProducer) {
	cfg := config.KafkaConfig{
		DLQTopic: "dlq",
		Retry:    config.KafkaRetryConfig{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond, Multiplier: 1},
	}
	c := NewKafkaConsumer(cfg, logger.NopLogger())
	dlq := &fakeProducer{}
	c.dlqProducer = dlq
	c.newReader = func(string) messageReader { return reader }
	return c, dlq
}

func message(t *testing.T, req models.CheckRequest) kafka.Message {
	t.Helper()
	body, err := json.Marshal(req)
	require.NoError(t, err)
	return kafka.Message{Key: []byte("key-" + req.Participant), Value: body}
}

func runConsumer(t *testing.T, c *KafkaConsumer, reader *fakeReader, want int, handler HandlerFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Consume(ctx, "requests", handler) }()

	require.Eventually(t, func() bool { return reader.commits() == want }, 2*time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	require.NoError(t, c.Close())
	assert.True(t, reader.closed)
}

func TestConsumeHandlesRequests(t *testing.T) {
	reader := newFakeReader(
		message(t, models.CheckRequest{ID: "a", Participant: "7701234567"}),
		message(t, models.CheckRequest{Participant: " ООО Ромашка "}),
	)
	c, dlq := newTestConsumer(reader)

	var mu sync.Mutex
	var got []models.CheckRequest
	runConsumer(t, c, reader, 2, func(_ context.Context, req models.CheckRequest) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, req)
		return nil
	})

	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "ООО Ромашка", got[1].Participant)
	assert.Equal(t, "key- ООО Ромашка ", got[1].ID, "missing id falls back to the message key")
	assert.Empty(t, dlq.on("dlq"))
}

func TestConsumeDeadLettersInvalidMessages(t *testing.T) {
	reader := newFakeReader(
		kafka.Message{Key: []byte("k1"), Value: []byte("not json")},
		message(t, models.CheckRequest{ID: "b", Participant: ""}),
	)
	c, dlq := newTestConsumer(reader)

	calls := 0
	runConsumer(t, c, reader, 2, func(context.Context, models.CheckRequest) error {
		calls++
		return nil
	})

	assert.Zero(t, calls)
	letters := dlq.on("dlq")
	require.Len(t, letters, 2)
	first := letters[0].(models.DeadLetter)
	assert.Equal(t, "k1", first.Key)
	assert.Equal(t, "requests", first.SourceTopic)
	assert.JSONEq(t, `"not json"`, string(first.Body))
	assert.Contains(t, letters[1].(models.DeadLetter).Reason, "participant")
}

func TestConsumeRetriesThenDeadLetters(t *testing.T) {
	reader := newFakeReader(message(t, models.CheckRequest{ID: "c", Participant: "x"}))
	c, dlq := newTestConsumer(reader)

	var mu sync.Mutex
	attempts := 0
	runConsumer(t, c, reader, 1, func(context.Context, models.CheckRequest) error {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		return errors.New("publish failed")
	})

	assert.Equal(t, 3, attempts)
	letters := dlq.on("dlq")
	require.Len(t, letters, 1)
	assert.Equal(t, "publish failed", letters[0].(models.DeadLetter).Reason)
}

func TestConsumeRecoversHandlerPanic(t *testing.T) {
	reader := newFakeReader(message(t, models.CheckRequest{ID: "d", Participant: "x"}))
	c, dlq := newTestConsumer(reader)

	runConsumer(t, c, reader, 1, func(context.Context, models.CheckRequest) error {
		panic("boom")
	})

	require.Len(t, dlq.on("dlq"), 1)
}

func TestProducerPublish(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaProducer{writer: w, logger: logger.NopLogger()}

	report, err := models.NewCheckReportBuilder().ForRequest(models.CheckRequest{ID: "r", Participant: "7701234567"}).Build()
	require.NoError(t, err)
	require.NoError(t, p.Publish(context.Background(), "reports", report))

	require.Len(t, w.msgs, 1)
	assert.Equal(t, "reports", w.msgs[0].Topic)
	assert.Equal(t, "7701234567", string(w.msgs[0].Key))
	assert.Contains(t, string(w.msgs[0].Value), `"request_id":"r"`)
}

func TestFactory(t *testing.T) {
	assert.True(t, Enabled(config.BrokerConfig{Type: TypeKafka}))
	assert.False(t, Enabled(config.BrokerConfig{Type: "none"}))

	_, err := NewProducer(config.BrokerConfig{Type: "rabbit"}, logger.NopLogger())
	assert.Error(t, err)
	_, err = NewConsumer(config.BrokerConfig{Type: "none"}, logger.NopLogger())
	assert.Error(t, err)
}
