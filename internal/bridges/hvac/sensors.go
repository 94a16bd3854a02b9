package hvac

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-climate/internal/climate"
	"github.com/nerrad567/gray-logic-climate/internal/engine"
	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/mqtt"
)

// readingTimeout bounds how long one reading may wait for the engine.
const readingTimeout = 5 * time.Second

// SensorListener feeds temperature readings from bridge state topics into
// the engine.
//
// Thread Safety: All methods are safe for concurrent use.
type SensorListener struct {
	mqtt    MQTTClient
	topics  mqtt.Topics
	sensors []climate.Sensor
	sink    ReadingSink
	logger  Logger

	mu      sync.Mutex
	started bool

	// ctx is read by message handlers; guarded separately so a handler
	// never waits on Start or Stop.
	ctxMu  sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
}

// NewSensorListener creates a listener for the configured sensors.
func NewSensorListener(client MQTTClient, sensors []climate.Sensor, sink ReadingSink, logger Logger) *SensorListener {
	if logger == nil {
		logger = noopLogger{}
	}
	return &SensorListener{
		mqtt:    client,
		sensors: sensors,
		sink:    sink,
		logger:  logger,
	}
}

// Start subscribes to every sensor's state topic. Readings are delivered
// under ctx until Stop.
func (l *SensorListener) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.started {
		return ErrAlreadyStarted
	}
	l.ctxMu.Lock()
	l.ctx, l.cancel = context.WithCancel(ctx)
	l.ctxMu.Unlock()

	for _, sn := range l.sensors {
		topic := l.topics.BridgeState(sn.Protocol, sn.ID)
		if err := l.mqtt.Subscribe(topic, commandQoS, l.handlerFor(sn)); err != nil {
			l.cancelReadings()
			return fmt.Errorf("subscribing to %s: %w", topic, err)
		}
	}
	l.started = true

	l.logger.Info("sensor listener started", "sensors", len(l.sensors))
	return nil
}

// Stop unsubscribes and cancels readings still waiting on the engine.
func (l *SensorListener) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.started {
		return nil
	}
	l.started = false
	l.cancelReadings()

	var errs []error
	for _, sn := range l.sensors {
		if err := l.mqtt.Unsubscribe(l.topics.BridgeState(sn.Protocol, sn.ID)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (l *SensorListener) cancelReadings() {
	l.ctxMu.Lock()
	defer l.ctxMu.Unlock()
	if l.cancel != nil {
		l.cancel()
	}
}

func (l *SensorListener) handlerFor(sn climate.Sensor) mqtt.MessageHandler {
	return func(_ string, payload []byte) error {
		msg, err := ParseStateMessage(payload)
		if err != nil {
			return fmt.Errorf("sensor %s: %w", sn.ID, err)
		}
		value, err := msg.Number(sn.Field)
		if err != nil {
			// Multi-function devices publish other fields on the same topic.
			if errors.Is(err, ErrMissingField) {
				return nil
			}
			return fmt.Errorf("sensor %s: %w", sn.ID, err)
		}

		l.ctxMu.RLock()
		base := l.ctx
		l.ctxMu.RUnlock()
		if base == nil || base.Err() != nil {
			return nil
		}

		ctx, cancel := context.WithTimeout(base, readingTimeout)
		defer cancel()

		if _, err := l.sink.HandleTemperatureChange(ctx, sn.ID, value); err != nil {
			if errors.Is(err, engine.ErrNotRunning) || errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("sensor %s: %w", sn.ID, err)
		}
		l.logger.Debug("sensor reading", "sensor_id", sn.ID, "role", sn.Role, "value", value)
		return nil
	}
}
