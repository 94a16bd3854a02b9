// Package kafka publishes the climate decision ledger to a Kafka topic.
//
// Every committed mode change is appended as one JSON message keyed by site,
// so downstream consumers (billing, analytics, audit) can replay decisions
// in order. The ledger is optional and enabled with kafka.enabled.
package kafka
