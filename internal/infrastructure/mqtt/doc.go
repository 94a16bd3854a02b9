// Package mqtt connects the climate service to the Gray Logic message bus.
//
// Protocol bridges publish sensor and device state on
// graylogic/state/{protocol}/{id} and accept commands on
// graylogic/command/{protocol}/{id}. The climate service subscribes to the
// former, publishes climate commands to the latter, and keeps its own status
// retained under graylogic/core/climate.
//
//	Climate service ↔ MQTT Broker ↔ Protocol Bridges
//
// The client reconnects with backoff, replays subscriptions after a reconnect,
// recovers panics in message handlers, and uses a Last Will so the broker
// reports the service offline after a crash.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	topic := mqtt.Topics{}.BridgeCommand("knx", "hvac-living")
//	err = client.Publish(topic, payload, 1, false)
package mqtt
