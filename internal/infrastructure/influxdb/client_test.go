package influxdb

import (
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/config"
)

func TestConnect_Disabled(t *testing.T) {
	_, err := Connect(config.InfluxDBConfig{Enabled: false}, "site-1")
	if !errors.Is(err, ErrDisabled) {
		t.Fatalf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	_, err := Connect(config.InfluxDBConfig{
		Enabled: true,
		URL:     "http://127.0.0.1:1",
		Token:   "t",
		Org:     "o",
		Bucket:  "b",
	}, "site-1")
	if !errors.Is(err, ErrConnectionFailed) {
		t.Fatalf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestWrites_DisconnectedAreNoOps(t *testing.T) {
	c := &Client{}
	// Must not panic with a nil writeAPI.
	c.WriteDecision(DecisionPoint{Mode: "heating"})
	c.WriteLatency("graph", "evaluation", time.Millisecond, time.Now())
	c.Flush()
	if c.IsConnected() {
		t.Error("zero client reports connected")
	}
}

func TestDecisionPoint(t *testing.T) {
	target := 21.0
	at := time.Date(2026, 1, 12, 7, 30, 0, 0, time.UTC)

	p := decisionPoint("site-1", DecisionPoint{
		Strategy:     "graph",
		Trigger:      "sensor_update",
		Mode:         "heating",
		PreviousMode: "idle",
		State:        "heating",
		Preset:       "comfort",
		TargetTemp:   &target,
		Transitions:  3,
		Timestamp:    at,
	})

	if p.Name() != measurementDecision {
		t.Errorf("Name() = %q", p.Name())
	}
	if !p.Time().Equal(at) {
		t.Errorf("Time() = %v, want %v", p.Time(), at)
	}

	tags := map[string]string{}
	for _, tag := range p.TagList() {
		tags[tag.Key] = tag.Value
	}
	for k, want := range map[string]string{"site": "site-1", "strategy": "graph", "mode": "heating", "trigger": "sensor_update"} {
		if tags[k] != want {
			t.Errorf("tag %s = %q, want %q", k, tags[k], want)
		}
	}

	fields := map[string]interface{}{}
	for _, f := range p.FieldList() {
		fields[f.Key] = f.Value
	}
	if fields["target_c"] != 21.0 {
		t.Errorf("target_c = %v", fields["target_c"])
	}
	if fields["preset"] != "comfort" {
		t.Errorf("preset = %v", fields["preset"])
	}
}

func TestDecisionPoint_OmitsUnknownTarget(t *testing.T) {
	p := decisionPoint("site-1", DecisionPoint{Mode: "idle", Timestamp: time.Now()})
	for _, f := range p.FieldList() {
		if f.Key == "target_c" || f.Key == "preset" {
			t.Errorf("unexpected field %s for idle decision", f.Key)
		}
	}
}

func TestLatencyPoint(t *testing.T) {
	p := latencyPoint("site-1", "statechart", "cooling", 1500*time.Microsecond, time.Now())

	var got interface{}
	for _, f := range p.FieldList() {
		if f.Key == "duration_ms" {
			got = f.Value
		}
	}
	if got != 1.5 {
		t.Errorf("duration_ms = %v, want 1.5", got)
	}
}
