package engine

import (
	"context"
	"time"

	"github.com/nerrad567/gray-logic-climate/internal/climate"
	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/influxdb"
)

// EntityState is the last state a climate entity reported.
type EntityState struct {
	EntityID   string         `json:"entity_id"`
	Mode       string         `json:"mode,omitempty"`
	TargetTemp *float64       `json:"target_temp,omitempty"`
	Fields     map[string]any `json:"fields,omitempty"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// Actuator drives the climate entities.
type Actuator interface {
	// ApplyMode commands every entity in ids to mode with the given setpoint.
	ApplyMode(ctx context.Context, ids []string, mode climate.Mode, target *float64, preset climate.Preset) error

	// StartDefrost runs one defrost cycle of duration on each entity in ids.
	StartDefrost(ctx context.Context, ids []string, duration time.Duration) error

	// GetCurrentState returns the last reported state of one entity.
	GetCurrentState(ctx context.Context, id string) (EntityState, error)
}

// DecisionRepository persists evaluation records.
type DecisionRepository interface {
	RecordDecision(ctx context.Context, rec climate.EvaluationRecord) error
}

// WSHub pushes engine events to WebSocket clients.
type WSHub interface {
	// BroadcastStatus sends a committed snapshot on ChannelStatus.
	BroadcastStatus(st Status)
	// BroadcastDecision sends a mode transition on ChannelDecision.
	BroadcastDecision(rec climate.EvaluationRecord)
}

// MetricsWriter receives decision and latency points for the time-series store.
type MetricsWriter interface {
	WriteDecision(d influxdb.DecisionPoint)
	WriteLatency(strategy, operation string, elapsed time.Duration, at time.Time)
}

// StatePublisher publishes engine status and decisions on the message bus.
type StatePublisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	PublishRetained(topic string, payload []byte) error
}

// LedgerPublisher appends decisions to an external ledger stream.
type LedgerPublisher interface {
	Publish(ctx context.Context, key string, payload any) error
}

// Logger defines the logging interface used by the engine.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
