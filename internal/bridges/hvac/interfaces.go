package hvac

import (
	"context"

	"github.com/nerrad567/gray-logic-climate/internal/engine"
	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/mqtt"
)

// MQTTClient is the subset of the MQTT client the bridge uses.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// ReadingSink receives sensor readings. *engine.Adapter satisfies it.
type ReadingSink interface {
	HandleTemperatureChange(ctx context.Context, sensorID string, value float64) (engine.Status, error)
}

// Logger defines the logging interface used by the bridge.
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
