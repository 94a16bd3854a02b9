// Package hvac connects the climate engine to protocol bridges over MQTT.
//
// Four pieces live here:
//
//   - Actuator implements engine.Actuator. Mode and defrost commands are
//     published to graylogic/command/{protocol}/{entity} in the bridge
//     command envelope.
//   - StateCache remembers the last state each climate entity reported on
//     graylogic/state/{protocol}/{entity}; the actuator answers
//     GetCurrentState from it.
//   - SensorListener subscribes to each configured sensor's state topic,
//     extracts the configured field and feeds it to the engine.
//   - Router lets the actuator and the listener share a state topic when a
//     thermostat is both an entity and a sensor.
//
// Bridges own the protocol translation (KNX, Modbus). Nothing in this
// package knows about addresses or datapoint types.
package hvac
