package hvac

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-climate/internal/climate"
	"github.com/nerrad567/gray-logic-climate/internal/engine"
	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/mqtt"
)

// commandQoS is at-least-once; bridges de-duplicate on command ID.
const commandQoS byte = 1

// DefaultSource tags commands published by this service.
const DefaultSource = "climate"

// Actuator publishes climate commands to protocol bridges and answers state
// queries from a StateCache fed by the bridges' state topics.
//
// Thread Safety: All methods are safe for concurrent use.
type Actuator struct {
	mqtt      MQTTClient
	topics    mqtt.Topics
	protocols map[string]string
	cache     *StateCache
	source    string
	logger    Logger
	now       func() time.Time
}

// NewActuator creates an actuator for the settings' enabled entities.
//
// Parameters:
//   - client: MQTT client used to publish commands and receive entity state
//   - settings: Climate settings; each entity's protocol selects its bridge
//   - logger: Optional logger (nil uses a no-op logger)
func NewActuator(client MQTTClient, settings climate.Settings, logger Logger) *Actuator {
	if logger == nil {
		logger = noopLogger{}
	}
	protocols := make(map[string]string, len(settings.Entities))
	var ids []string
	for _, ent := range settings.Entities {
		if !ent.Enabled {
			continue
		}
		protocols[ent.ID] = ent.Protocol
		ids = append(ids, ent.ID)
	}
	return &Actuator{
		mqtt:      client,
		protocols: protocols,
		cache:     NewStateCache(ids),
		source:    DefaultSource,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Subscribe starts feeding the state cache from every entity's state topic.
func (a *Actuator) Subscribe() error {
	for id, protocol := range a.protocols {
		entityID := id
		topic := a.topics.BridgeState(protocol, entityID)
		err := a.mqtt.Subscribe(topic, commandQoS, func(_ string, payload []byte) error {
			msg, err := ParseStateMessage(payload)
			if err != nil {
				return fmt.Errorf("entity %s: %w", entityID, err)
			}
			return a.cache.Update(entityID, msg)
		})
		if err != nil {
			return fmt.Errorf("subscribing to %s: %w", topic, err)
		}
	}
	return nil
}

// Unsubscribe stops the entity state subscriptions.
func (a *Actuator) Unsubscribe() error {
	var errs []error
	for id, protocol := range a.protocols {
		if err := a.mqtt.Unsubscribe(a.topics.BridgeState(protocol, id)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ApplyMode sends set_hvac_mode to each entity. A failure on one entity does
// not stop the others; all failures are returned joined.
func (a *Actuator) ApplyMode(ctx context.Context, ids []string, mode climate.Mode, target *float64, preset climate.Preset) error {
	params := map[string]any{"mode": string(mode)}
	if target != nil {
		params["target_temp"] = *target
	}
	if preset != "" {
		params["preset"] = string(preset)
	}
	return a.broadcast(ctx, ids, CommandSetMode, params)
}

// StartDefrost sends start_defrost with the cycle length in seconds.
func (a *Actuator) StartDefrost(ctx context.Context, ids []string, duration time.Duration) error {
	params := map[string]any{"duration_s": int(duration.Seconds())}
	return a.broadcast(ctx, ids, CommandStartDefrost, params)
}

// GetCurrentState returns the entity's last reported state.
func (a *Actuator) GetCurrentState(_ context.Context, id string) (engine.EntityState, error) {
	return a.cache.Get(id)
}

func (a *Actuator) broadcast(ctx context.Context, ids []string, command string, params map[string]any) error {
	var errs []error
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := a.send(id, command, params); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (a *Actuator) send(id, command string, params map[string]any) error {
	protocol, ok := a.protocols[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownEntity, id)
	}

	msg := CommandMessage{
		ID:         uuid.NewString(),
		Timestamp:  a.now(),
		DeviceID:   id,
		Command:    command,
		Parameters: params,
		Source:     a.source,
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshalling command: %w", err)
	}

	topic := a.topics.BridgeCommand(protocol, id)
	if err := a.mqtt.Publish(topic, payload, commandQoS, false); err != nil {
		return fmt.Errorf("publishing %s to %s: %w", command, id, err)
	}

	a.logger.Debug("climate command published",
		"entity_id", id,
		"command", command,
		"command_id", msg.ID,
		"topic", topic,
	)
	return nil
}
