// Package influxdb writes climate decision metrics to InfluxDB v2.
//
// Two measurements are produced: climate_decision, one point per committed
// mode change, and climate_evaluation_latency, one point per measured
// evaluation step. Sensor telemetry is deliberately not written; bridges own
// that data.
//
// Writes go through the non-blocking batched WriteAPI. Errors surface through
// SetOnError and never block the decision engine.
package influxdb
