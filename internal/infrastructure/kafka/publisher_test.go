package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/config"
)

type mockWriter struct {
	mu       sync.Mutex
	messages []kafkago.Message
	err      error
	closed   int
}

func (m *mockWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, msgs...)
	return nil
}

func (m *mockWriter) Close() error {
	m.mu.Lock()
	m.closed++
	m.mu.Unlock()
	return nil
}

func TestNewPublisher_Config(t *testing.T) {
	if _, err := NewPublisher(config.KafkaConfig{}); !errors.Is(err, ErrDisabled) {
		t.Errorf("disabled: %v", err)
	}
	if _, err := NewPublisher(config.KafkaConfig{Enabled: true, Topic: "t"}); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("no brokers: %v", err)
	}

	p, err := NewPublisher(config.KafkaConfig{Enabled: true, Brokers: []string{"localhost:9092"}, Topic: "climate.decisions"})
	if err != nil {
		t.Fatalf("NewPublisher() error = %v", err)
	}
	if p.writeTimeout != defaultWriteTimeout {
		t.Errorf("writeTimeout = %v, want default", p.writeTimeout)
	}
}

func TestPublish(t *testing.T) {
	w := &mockWriter{}
	p := newPublisher(w, "climate.decisions", time.Second)

	payload := map[string]string{"decision": "heating"}
	if err := p.Publish(context.Background(), "site-1", payload); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	if len(w.messages) != 1 {
		t.Fatalf("messages = %d, want 1", len(w.messages))
	}
	msg := w.messages[0]
	if string(msg.Key) != "site-1" {
		t.Errorf("key = %q", msg.Key)
	}
	var got map[string]string
	if err := json.Unmarshal(msg.Value, &got); err != nil || got["decision"] != "heating" {
		t.Errorf("value = %s (%v)", msg.Value, err)
	}
}

func TestPublish_Errors(t *testing.T) {
	w := &mockWriter{err: errors.New("leader not available")}
	p := newPublisher(w, "climate.decisions", time.Second)

	if err := p.Publish(context.Background(), "k", "v"); !errors.Is(err, ErrPublishFailed) {
		t.Errorf("writer failure: %v", err)
	}
	if err := p.Publish(context.Background(), "k", make(chan int)); !errors.Is(err, ErrPublishFailed) {
		t.Errorf("unmarshalable payload: %v", err)
	}

	if err := p.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if w.closed != 1 {
		t.Errorf("writer closed %d times, want 1", w.closed)
	}
	if err := p.Publish(context.Background(), "k", "v"); !errors.Is(err, ErrClosed) {
		t.Errorf("after close: %v", err)
	}
}
