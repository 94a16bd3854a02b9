package hvac

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Bridge command names understood by climate-capable bridges.
const (
	CommandSetMode      = "set_hvac_mode"
	CommandStartDefrost = "start_defrost"
)

// CommandMessage is sent to a bridge to drive one device.
// Topic: graylogic/command/{protocol}/{entity}
type CommandMessage struct {
	ID         string         `json:"id"`
	Timestamp  time.Time      `json:"timestamp"`
	DeviceID   string         `json:"device_id"`
	Command    string         `json:"command"`
	Parameters map[string]any `json:"parameters,omitempty"`
	// Source is always the configured service name, e.g. "climate".
	Source string `json:"source"`
}

// StateMessage is published by a bridge when a device state changes.
// Topic: graylogic/state/{protocol}/{address}
type StateMessage struct {
	DeviceID  string         `json:"device_id"`
	Timestamp time.Time      `json:"timestamp"`
	State     map[string]any `json:"state"`
	Protocol  string         `json:"protocol,omitempty"`
	Address   string         `json:"address,omitempty"`
}

// ParseStateMessage decodes a bridge state envelope.
func ParseStateMessage(payload []byte) (StateMessage, error) {
	var msg StateMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return msg, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	if msg.State == nil {
		return msg, fmt.Errorf("%w: no state object", ErrInvalidPayload)
	}
	return msg, nil
}

// Number extracts a numeric field. Bridges send numbers, but some
// Modbus gateways quote them.
func (m StateMessage) Number(field string) (float64, error) {
	raw, ok := m.State[field]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrMissingField, field)
	}
	switch v := raw.(type) {
	case float64:
		return v, nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: field %q: %w", ErrInvalidPayload, field, err)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("%w: field %q has type %T", ErrInvalidPayload, field, raw)
	}
}
