package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	measurementDecision = "climate_decision"
	measurementLatency  = "climate_evaluation_latency"
)

// DecisionPoint describes one committed mode change.
type DecisionPoint struct {
	Strategy     string
	Trigger      string
	Mode         string
	PreviousMode string
	State        string
	Preset       string
	TargetTemp   *float64
	Transitions  int
	Timestamp    time.Time
}

// WriteDecision records a committed mode change. Non-blocking.
func (c *Client) WriteDecision(d DecisionPoint) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(decisionPoint(c.site, d))
}

// WriteLatency records how long one evaluation step took. Non-blocking.
//
// Parameters:
//   - strategy: Execution strategy name ("graph" or "statechart")
//   - operation: Step name, e.g. "evaluation" or "heating"
//   - elapsed: Measured duration
//   - at: Point timestamp
func (c *Client) WriteLatency(strategy, operation string, elapsed time.Duration, at time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(latencyPoint(c.site, strategy, operation, elapsed, at))
}

func decisionPoint(site string, d DecisionPoint) *write.Point {
	fields := map[string]interface{}{
		"transitions":   d.Transitions,
		"previous_mode": d.PreviousMode,
	}
	if d.TargetTemp != nil {
		fields["target_c"] = *d.TargetTemp
	}
	if d.Preset != "" {
		fields["preset"] = d.Preset
	}

	return write.NewPoint(
		measurementDecision,
		map[string]string{
			"site":     site,
			"strategy": d.Strategy,
			"mode":     d.Mode,
			"state":    d.State,
			"trigger":  d.Trigger,
		},
		fields,
		d.Timestamp,
	)
}

func latencyPoint(site, strategy, operation string, elapsed time.Duration, at time.Time) *write.Point {
	return write.NewPoint(
		measurementLatency,
		map[string]string{
			"site":      site,
			"strategy":  strategy,
			"operation": operation,
		},
		map[string]interface{}{
			"duration_ms": float64(elapsed) / float64(time.Millisecond),
		},
		at,
	)
}
