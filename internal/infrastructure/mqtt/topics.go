package mqtt

import (
	"fmt"
	"strings"
)

// Topic prefixes shared with the rest of the Gray Logic stack.
//
// Bridges use the flat scheme graylogic/{category}/{protocol}/{address}; core
// services publish under graylogic/core.
const (
	TopicPrefixBridge = "graylogic"
	TopicPrefixCore   = "graylogic/core"
	TopicPrefixSystem = "graylogic/system"
)

// Topics provides builders for the MQTT topics the climate service touches.
//
//	topics := mqtt.Topics{}
//	topics.BridgeCommand("knx", "hvac-living")
//	// Returns: "graylogic/command/knx/hvac-living"
type Topics struct{}

// BridgeState returns the topic a bridge publishes device state on.
// Sensor readings and climate entity state both arrive here.
//
// Example: graylogic/state/knx/temp-living
func (Topics) BridgeState(protocol, address string) string {
	return fmt.Sprintf("%s/state/%s/%s", TopicPrefixBridge, protocol, address)
}

// BridgeCommand returns the topic for commands to a bridge-owned device.
//
// Example: graylogic/command/knx/hvac-living
func (Topics) BridgeCommand(protocol, address string) string {
	return fmt.Sprintf("%s/command/%s/%s", TopicPrefixBridge, protocol, address)
}

// ProtocolStates returns a pattern matching every device state of one protocol.
//
// Pattern: graylogic/state/knx/+
func (Topics) ProtocolStates(protocol string) string {
	return fmt.Sprintf("%s/state/%s/+", TopicPrefixBridge, protocol)
}

// CoreClimateState returns the retained topic carrying the engine status.
//
// Example: graylogic/core/climate/state
func (Topics) CoreClimateState() string {
	return fmt.Sprintf("%s/climate/state", TopicPrefixCore)
}

// CoreClimateDecision returns the topic for committed mode changes.
//
// Example: graylogic/core/climate/decision
func (Topics) CoreClimateDecision() string {
	return fmt.Sprintf("%s/climate/decision", TopicPrefixCore)
}

// ServiceStatus returns the retained online/offline topic for a client ID.
//
// Example: graylogic/system/status/graylogic-climate
func (Topics) ServiceStatus(clientID string) string {
	return fmt.Sprintf("%s/status/%s", TopicPrefixSystem, clientID)
}

// ParseBridgeTopic splits a flat bridge topic into its parts.
//
// "graylogic/state/knx/temp-living" → ("state", "knx", "temp-living", true)
func ParseBridgeTopic(topic string) (category, protocol, address string, ok bool) {
	rest, found := strings.CutPrefix(topic, TopicPrefixBridge+"/")
	if !found {
		return "", "", "", false
	}
	parts := strings.SplitN(rest, "/", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", "", "", false
	}
	return parts[0], parts[1], parts[2], true
}
