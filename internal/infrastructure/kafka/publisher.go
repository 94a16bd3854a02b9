package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/config"
)

const defaultWriteTimeout = 10 * time.Second

// messageWriter is the part of kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher appends JSON records to the decision ledger topic.
//
// Thread Safety:
//   - Publish is safe for concurrent use; kafka.Writer batches internally.
type Publisher struct {
	writer       messageWriter
	topic        string
	writeTimeout time.Duration

	closed bool
	mu     sync.RWMutex
}

// NewPublisher creates a publisher for cfg.Topic on cfg.Brokers.
//
// Messages are keyed, hashed to a partition by key, and acknowledged by all
// in-sync replicas so the ledger never loses an acknowledged decision.
//
// Returns:
//   - *Publisher: Ready publisher (kafka-go connects lazily on first write)
//   - error: ErrDisabled when kafka.enabled is false
func NewPublisher(cfg config.KafkaConfig) (*Publisher, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}
	if len(cfg.Brokers) == 0 || cfg.Topic == "" {
		return nil, fmt.Errorf("%w: brokers and topic are required", ErrInvalidConfig)
	}

	timeout := time.Duration(cfg.WriteTimeout) * time.Second
	if timeout <= 0 {
		timeout = defaultWriteTimeout
	}

	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		WriteTimeout:           timeout,
		AllowAutoTopicCreation: false,
	}

	return newPublisher(w, cfg.Topic, timeout), nil
}

func newPublisher(w messageWriter, topic string, timeout time.Duration) *Publisher {
	return &Publisher{writer: w, topic: topic, writeTimeout: timeout}
}

// Publish marshals payload to JSON and writes it under key.
//
// Parameters:
//   - ctx: Bounds the write together with the configured write timeout
//   - key: Partition key (the site ID keeps one site's ledger ordered)
//   - payload: Any JSON-marshalable value
//
// Returns:
//   - error: ErrClosed after Close, or ErrPublishFailed wrapping the cause
func (p *Publisher) Publish(ctx context.Context, key string, payload any) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}

	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: encoding payload: %w", ErrPublishFailed, err)
	}

	writeCtx, cancel := context.WithTimeout(ctx, p.writeTimeout)
	defer cancel()

	msg := kafkago.Message{
		Key:   []byte(key),
		Value: value,
		Time:  time.Now().UTC(),
	}
	if err := p.writer.WriteMessages(writeCtx, msg); err != nil {
		return fmt.Errorf("%w: topic %s: %w", ErrPublishFailed, p.topic, err)
	}
	return nil
}

// Close flushes pending messages and closes the writer. Safe to call twice.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("closing kafka writer: %w", err)
	}
	return nil
}
