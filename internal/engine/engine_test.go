package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-climate/internal/climate"
)

// ─── Test doubles ───────────────────────────────────────────────────

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type applyCall struct {
	ids    []string
	mode   climate.Mode
	target *float64
	preset climate.Preset
}

type mockActuator struct {
	mu       sync.Mutex
	applies  []applyCall
	defrosts [][]string
	applyErr error
}

func (m *mockActuator) ApplyMode(_ context.Context, ids []string, mode climate.Mode, target *float64, preset climate.Preset) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.applies = append(m.applies, applyCall{ids: ids, mode: mode, target: target, preset: preset})
	return m.applyErr
}

func (m *mockActuator) StartDefrost(_ context.Context, ids []string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defrosts = append(m.defrosts, ids)
	return nil
}

func (m *mockActuator) GetCurrentState(_ context.Context, id string) (EntityState, error) {
	return EntityState{EntityID: id}, nil
}

func (m *mockActuator) applyCalls() []applyCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]applyCall(nil), m.applies...)
}

func (m *mockActuator) defrostCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.defrosts)
}

type mockRepo struct {
	mu      sync.Mutex
	records []climate.EvaluationRecord
}

func (m *mockRepo) RecordDecision(_ context.Context, rec climate.EvaluationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

type mockHub struct {
	mu     sync.Mutex
	events map[string]int
}

func (m *mockHub) BroadcastStatus(Status) { m.count(ChannelStatus) }

func (m *mockHub) BroadcastDecision(climate.EvaluationRecord) { m.count(ChannelDecision) }

func (m *mockHub) count(channel string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.events == nil {
		m.events = make(map[string]int)
	}
	m.events[channel]++
}

// ─── Fixture ────────────────────────────────────────────────────────

var t0 = time.Date(2026, 1, 14, 9, 0, 0, 0, time.UTC) // Wednesday

var strategies = []string{StrategyGraph, StrategyStatechart}

func ptr(v float64) *float64 { return &v }

func testSettings() climate.Settings {
	s := climate.DefaultSettings()
	s.Entities = []climate.Entity{
		{ID: "hp-living", Protocol: "knx", Enabled: true, Defrost: true},
		{ID: "fan-coil-office", Protocol: "modbus", Enabled: true},
	}
	s.Sensors = []climate.Sensor{
		{ID: "temp-living", Protocol: "knx", Role: climate.SensorIndoor, Field: "temperature"},
		{ID: "temp-outside", Protocol: "knx", Role: climate.SensorOutdoor, Field: "temperature"},
	}
	// Ticks are driven by hand.
	s.TickInterval = time.Hour
	return s
}

type fixture struct {
	adapter  *Adapter
	clock    *fakeClock
	actuator *mockActuator
	repo     *mockRepo
	hub      *mockHub
}

func newFixture(t *testing.T, strategy string, s climate.Settings, opts ...climate.PolicyOption) *fixture {
	t.Helper()
	f := &fixture{
		clock:    &fakeClock{now: t0},
		actuator: &mockActuator{},
		repo:     &mockRepo{},
		hub:      &mockHub{},
	}
	a, err := NewAdapter(strategy, s, Config{SiteID: "site-1", Clock: f.clock}, Deps{
		Actuator:   f.actuator,
		Repository: f.repo,
		Hub:        f.hub,
	}, opts...)
	if err != nil {
		t.Fatalf("NewAdapter(%s) error = %v", strategy, err)
	}
	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { _ = a.Stop(context.Background()) })
	f.adapter = a
	return f
}

// settle stops and restarts the engine so every dispatched effect has run.
func (f *fixture) settle(t *testing.T) {
	t.Helper()
	if err := f.adapter.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := f.adapter.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
}

func (f *fixture) reading(t *testing.T, sensor string, v float64) Status {
	t.Helper()
	st, err := f.adapter.HandleTemperatureChange(context.Background(), sensor, v)
	if err != nil {
		t.Fatalf("HandleTemperatureChange(%s, %v) error = %v", sensor, v, err)
	}
	return st
}

func (f *fixture) tick(t *testing.T) Status {
	t.Helper()
	st, err := f.adapter.engine.Submit(context.Background(), climate.Trigger{Kind: climate.TriggerTick})
	if err != nil {
		t.Fatalf("tick error = %v", err)
	}
	return st
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met within 2s")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// ─── Scenarios ──────────────────────────────────────────────────────

func TestScenarioA_ColdMorningHeats(t *testing.T) {
	for _, strategy := range strategies {
		t.Run(strategy, func(t *testing.T) {
			f := newFixture(t, strategy, testSettings())
			f.reading(t, "temp-outside", 10)
			st := f.reading(t, "temp-living", 18)

			if st.Context.Mode != climate.ModeHeating {
				t.Fatalf("Mode = %s, want heating", st.Context.Mode)
			}
			if len(st.History) != 1 || !strings.Contains(st.History[0].Reasoning, "below comfort threshold") {
				t.Errorf("History = %+v", st.History)
			}
			if st.TotalTransitions != 1 {
				t.Errorf("TotalTransitions = %d, want 1", st.TotalTransitions)
			}

			f.settle(t)
			calls := f.actuator.applyCalls()
			if len(calls) != 1 || calls[0].mode != climate.ModeHeating || len(calls[0].ids) != 2 {
				t.Fatalf("actuator calls = %+v, want one heating call to both entities", calls)
			}
			if *calls[0].target != 21 || calls[0].preset != climate.PresetComfort {
				t.Errorf("target/preset = %v/%s", *calls[0].target, calls[0].preset)
			}
			if len(f.repo.records) != 1 {
				t.Errorf("repository records = %d, want 1", len(f.repo.records))
			}
			if f.hub.events[ChannelDecision] != 1 || f.hub.events[ChannelStatus] != 2 {
				t.Errorf("hub events = %v", f.hub.events)
			}
		})
	}
}

func TestScenarioB_CoolOnlyCools(t *testing.T) {
	for _, strategy := range strategies {
		t.Run(strategy, func(t *testing.T) {
			f := newFixture(t, strategy, testSettings())
			if _, err := f.adapter.UpdateSystemMode(context.Background(), climate.SystemCoolOnly); err != nil {
				t.Fatalf("UpdateSystemMode() error = %v", err)
			}
			f.reading(t, "temp-outside", 30)
			st := f.reading(t, "temp-living", 27)

			if st.Context.Mode != climate.ModeCooling || st.CurrentState != climate.StateCooling {
				t.Errorf("Mode/State = %s/%s, want cooling", st.Context.Mode, st.CurrentState)
			}
		})
	}
}

func TestScenarioC_ExpiredOverrideFallsThrough(t *testing.T) {
	for _, strategy := range strategies {
		t.Run(strategy, func(t *testing.T) {
			f := newFixture(t, strategy, testSettings())
			f.reading(t, "temp-outside", 15)
			f.reading(t, "temp-living", 22)

			st, err := f.adapter.ManualOverride(context.Background(), OverrideRequest{
				Mode:     climate.ModeHeating,
				Duration: time.Minute,
			})
			if err != nil {
				t.Fatalf("ManualOverride() error = %v", err)
			}
			if st.CurrentState != climate.StateManualOverride || st.Context.Mode != climate.ModeHeating {
				t.Fatalf("after override Mode/State = %s/%s", st.Context.Mode, st.CurrentState)
			}

			f.clock.Advance(time.Minute + time.Second)
			st = f.tick(t)

			if st.Context.Override == nil || st.Context.Override.Active {
				t.Error("override still active after expiry")
			}
			if st.Context.Mode != climate.ModeIdle || st.CurrentState != climate.StateIdle {
				t.Errorf("Mode/State = %s/%s, want policy idle", st.Context.Mode, st.CurrentState)
			}
		})
	}
}

func TestOverrideExpiryTimerRearms(t *testing.T) {
	f := newFixture(t, StrategyGraph, testSettings())
	f.reading(t, "temp-outside", 15)
	f.reading(t, "temp-living", 22)

	st, err := f.adapter.ManualOverride(context.Background(), OverrideRequest{
		Mode:     climate.ModeHeating,
		Duration: 40 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("ManualOverride() error = %v", err)
	}
	evaluations := func(st Status) int {
		return st.Metrics.Operations[climate.OperationEvaluation].Count
	}
	base := evaluations(st)

	// The timer fires while the engine clock still reads before the expiry.
	eventually(t, func() bool { return evaluations(f.adapter.GetStatus()) > base })
	if st := f.adapter.GetStatus(); !st.Context.Override.Active {
		t.Fatal("override cleared before the engine clock passed its expiry")
	}

	f.clock.Advance(time.Second)
	eventually(t, func() bool {
		st := f.adapter.GetStatus()
		return !st.Context.Override.Active && st.Context.Mode == climate.ModeIdle
	})
}

func TestScenarioD_NoReadingsIdles(t *testing.T) {
	for _, strategy := range strategies {
		t.Run(strategy, func(t *testing.T) {
			f := newFixture(t, strategy, testSettings())
			st := f.tick(t)

			if st.Context.Mode != climate.ModeIdle {
				t.Errorf("Mode = %s, want idle", st.Context.Mode)
			}
			if len(st.History) != 0 {
				t.Errorf("History = %d records, want none for idle to idle", len(st.History))
			}
			if got := st.Metrics.Operations[climate.OperationEvaluation].Count; got != 1 {
				t.Errorf("evaluation samples = %d, want 1", got)
			}
			if got := st.Metrics.Operations[string(climate.ModeIdle)].Count; got != 1 {
				t.Errorf("idle samples = %d, want 1", got)
			}
		})
	}
}

func TestScenarioE_DefrostOnce(t *testing.T) {
	for _, strategy := range strategies {
		t.Run(strategy, func(t *testing.T) {
			f := newFixture(t, strategy, testSettings())
			f.reading(t, "temp-outside", -5)
			st := f.reading(t, "temp-living", 17)
			if st.Context.Mode != climate.ModeHeating {
				t.Fatalf("Mode = %s, want heating", st.Context.Mode)
			}
			if st.Context.LastDefrostAt == nil {
				t.Fatal("first heating pass did not seed the defrost clock")
			}

			f.clock.Advance(2 * time.Hour)
			st = f.tick(t)
			if !st.Context.LastDefrostAt.Equal(t0.Add(2 * time.Hour)) {
				t.Errorf("LastDefrostAt = %v, want %v", st.Context.LastDefrostAt, t0.Add(2*time.Hour))
			}
			f.tick(t)

			f.settle(t)
			if got := f.actuator.defrostCalls(); got != 1 {
				t.Errorf("defrost calls = %d, want 1", got)
			}
			if f.actuator.defrosts[0][0] != "hp-living" || len(f.actuator.defrosts[0]) != 1 {
				t.Errorf("defrost entities = %v", f.actuator.defrosts[0])
			}
		})
	}
}

// ─── Properties ─────────────────────────────────────────────────────

func TestIdempotentReevaluation(t *testing.T) {
	for _, strategy := range strategies {
		t.Run(strategy, func(t *testing.T) {
			f := newFixture(t, strategy, testSettings())
			f.reading(t, "temp-outside", 5)
			f.reading(t, "temp-living", 18)
			for range 5 {
				f.tick(t)
			}
			st := f.reading(t, "temp-living", 18)

			if len(st.History) != 1 || st.TotalTransitions != 1 {
				t.Errorf("History = %d, transitions = %d, want 1/1", len(st.History), st.TotalTransitions)
			}
			f.settle(t)
			if got := len(f.actuator.applyCalls()); got != 1 {
				t.Errorf("actuator calls = %d, want 1", got)
			}
		})
	}
}

func TestPresetChangeReactuatesWithoutTransition(t *testing.T) {
	for _, strategy := range strategies {
		t.Run(strategy, func(t *testing.T) {
			f := newFixture(t, strategy, testSettings())
			f.clock.Advance(12*time.Hour + 30*time.Minute) // 21:30
			f.reading(t, "temp-outside", 5)
			st := f.reading(t, "temp-living", 18)
			if st.Context.Mode != climate.ModeHeating || st.Context.Preset != climate.PresetComfort {
				t.Fatalf("Mode/Preset = %s/%s, want heating/comfort", st.Context.Mode, st.Context.Preset)
			}

			f.clock.Advance(time.Hour) // 22:30, outside active hours
			st = f.tick(t)

			if st.Context.Mode != climate.ModeHeating || st.Context.Preset != climate.PresetSleep {
				t.Fatalf("Mode/Preset = %s/%s, want heating/sleep", st.Context.Mode, st.Context.Preset)
			}
			if st.TotalTransitions != 1 || len(st.History) != 1 {
				t.Errorf("transitions = %d, History = %d, want 1/1", st.TotalTransitions, len(st.History))
			}
			f.settle(t)
			calls := f.actuator.applyCalls()
			if len(calls) != 2 {
				t.Fatalf("actuator calls = %d, want 2", len(calls))
			}
			if calls[1].mode != climate.ModeHeating || calls[1].preset != climate.PresetSleep {
				t.Errorf("second call = %s/%s, want heating/sleep", calls[1].mode, calls[1].preset)
			}
		})
	}
}

func TestDefrostClockRestartsWithHeating(t *testing.T) {
	for _, strategy := range strategies {
		t.Run(strategy, func(t *testing.T) {
			f := newFixture(t, strategy, testSettings())
			f.reading(t, "temp-outside", -5)
			f.reading(t, "temp-living", 17)
			if st := f.reading(t, "temp-living", 22); st.Context.Mode != climate.ModeIdle {
				t.Fatalf("Mode = %s, want idle", st.Context.Mode)
			}

			// A long cold idle spell must not make the next session defrost at once.
			f.clock.Advance(3 * time.Hour)
			st := f.reading(t, "temp-living", 17)
			if st.Context.Mode != climate.ModeHeating {
				t.Fatalf("Mode = %s, want heating", st.Context.Mode)
			}
			if st.Context.LastDefrostAt == nil || !st.Context.LastDefrostAt.Equal(t0.Add(3*time.Hour)) {
				t.Errorf("LastDefrostAt = %v, want %v", st.Context.LastDefrostAt, t0.Add(3*time.Hour))
			}
			f.clock.Advance(time.Minute)
			f.tick(t)

			f.settle(t)
			if got := f.actuator.defrostCalls(); got != 0 {
				t.Errorf("defrost calls = %d, want 0", got)
			}
		})
	}
}

func TestOverridePriorityAndClamp(t *testing.T) {
	for _, strategy := range strategies {
		t.Run(strategy, func(t *testing.T) {
			f := newFixture(t, strategy, testSettings())
			f.reading(t, "temp-outside", 5)
			f.reading(t, "temp-living", 16)

			st, err := f.adapter.ManualOverride(context.Background(), OverrideRequest{
				Mode:       climate.ModeCooling,
				TargetTemp: ptr(12),
				SetBy:      "user-7",
			})
			if err != nil {
				t.Fatalf("ManualOverride() error = %v", err)
			}
			if st.Context.Mode != climate.ModeCooling {
				t.Errorf("Mode = %s, want override cooling", st.Context.Mode)
			}
			if *st.Context.TargetTemp != 20 {
				t.Errorf("TargetTemp = %v, want clamped 20", *st.Context.TargetTemp)
			}
			if st.Context.Override.SetBy != "user-7" {
				t.Errorf("SetBy = %q", st.Context.Override.SetBy)
			}
			if st.Context.Override.ExpiresAt == nil || !st.Context.Override.ExpiresAt.Equal(t0.Add(2*time.Hour)) {
				t.Errorf("ExpiresAt = %v, want default duration", st.Context.Override.ExpiresAt)
			}

			// Readings keep arriving; the override holds.
			st = f.reading(t, "temp-living", 14)
			if st.Context.Mode != climate.ModeCooling {
				t.Errorf("Mode after reading = %s, want cooling", st.Context.Mode)
			}

			st, err = f.adapter.ClearManualOverride(context.Background())
			if err != nil {
				t.Fatalf("ClearManualOverride() error = %v", err)
			}
			if st.Context.Mode != climate.ModeHeating || st.CurrentState != climate.StateHeating {
				t.Errorf("after clear Mode/State = %s/%s, want heating", st.Context.Mode, st.CurrentState)
			}
		})
	}
}

func TestSystemOffBeatsOverride(t *testing.T) {
	for _, strategy := range strategies {
		t.Run(strategy, func(t *testing.T) {
			f := newFixture(t, strategy, testSettings())
			f.reading(t, "temp-outside", 5)
			f.reading(t, "temp-living", 16)
			if _, err := f.adapter.ManualOverride(context.Background(), OverrideRequest{Mode: climate.ModeHeating}); err != nil {
				t.Fatalf("ManualOverride() error = %v", err)
			}

			st, err := f.adapter.UpdateSystemMode(context.Background(), climate.SystemOff)
			if err != nil {
				t.Fatalf("UpdateSystemMode() error = %v", err)
			}
			if st.Context.Mode != climate.ModeOff || st.CurrentState != climate.StateOff {
				t.Errorf("Mode/State = %s/%s, want off", st.Context.Mode, st.CurrentState)
			}
			if st.Context.TargetTemp != nil {
				t.Errorf("TargetTemp = %v, want nil while off", *st.Context.TargetTemp)
			}

			f.settle(t)
			calls := f.actuator.applyCalls()
			if last := calls[len(calls)-1]; last.mode != climate.ModeOff {
				t.Errorf("last actuator call = %s, want off", last.mode)
			}
		})
	}
}

func TestHistoryBounded(t *testing.T) {
	for _, strategy := range strategies {
		t.Run(strategy, func(t *testing.T) {
			s := testSettings()
			s.HistoryCapacity = 3
			f := newFixture(t, strategy, s)
			f.reading(t, "temp-outside", 5)

			var st Status
			for i := range 6 {
				indoor := 18.0
				if i%2 == 1 {
					indoor = 22
				}
				st = f.reading(t, "temp-living", indoor)
			}

			if len(st.History) != 3 {
				t.Fatalf("History = %d, want 3", len(st.History))
			}
			if st.TotalTransitions != 6 {
				t.Errorf("TotalTransitions = %d, want 6", st.TotalTransitions)
			}
			want := []climate.Mode{climate.ModeIdle, climate.ModeHeating, climate.ModeIdle}
			for i, rec := range st.History {
				if rec.Decision != want[i] {
					t.Errorf("History[%d] = %s, want %s", i, rec.Decision, want[i])
				}
			}
		})
	}
}

type panickingRule struct{}

func (panickingRule) Name() string { return "heating" }
func (panickingRule) Applies(climate.Conditions) (bool, string) {
	panic("rule table corrupted")
}

func TestEvaluationFaultForcesIdle(t *testing.T) {
	for _, strategy := range strategies {
		t.Run(strategy, func(t *testing.T) {
			f := newFixture(t, strategy, testSettings(), climate.WithHeatingRule(panickingRule{}))
			f.reading(t, "temp-outside", 5)
			st := f.reading(t, "temp-living", 18)

			if st.Context.Mode != climate.ModeIdle {
				t.Errorf("Mode = %s, want idle", st.Context.Mode)
			}
			le := st.Context.LastError
			if le == nil {
				t.Fatal("LastError not set")
			}
			if le.RecoveryAction != RecoveryForcedIdle || le.SourceNode == "" {
				t.Errorf("LastError = %+v", le)
			}
			if *st.Context.IndoorTemp != 18 {
				t.Error("reading lost on fault")
			}

			// The engine keeps accepting triggers.
			if _, err := f.adapter.UpdateSystemMode(context.Background(), climate.SystemCoolOnly); err != nil {
				t.Fatalf("UpdateSystemMode() after fault error = %v", err)
			}
		})
	}
}

func TestActuationFaultKeepsDecision(t *testing.T) {
	f := newFixture(t, StrategyGraph, testSettings())
	f.actuator.applyErr = errors.New("bus timeout")
	f.reading(t, "temp-outside", 5)
	st := f.reading(t, "temp-living", 18)
	if st.Context.Mode != climate.ModeHeating {
		t.Errorf("Mode = %s, want heating despite actuator failure", st.Context.Mode)
	}
}

// ─── Strategy equivalence ───────────────────────────────────────────

func TestStrategiesAgree(t *testing.T) {
	type step func(f *fixture) (Status, error)
	reading := func(id string, v float64) step {
		return func(f *fixture) (Status, error) {
			return f.adapter.HandleTemperatureChange(context.Background(), id, v)
		}
	}
	advance := func(d time.Duration) step {
		return func(f *fixture) (Status, error) {
			f.clock.Advance(d)
			return f.adapter.engine.Submit(context.Background(), climate.Trigger{Kind: climate.TriggerTick})
		}
	}
	override := func(m climate.Mode, target *float64) step {
		return func(f *fixture) (Status, error) {
			return f.adapter.ManualOverride(context.Background(), OverrideRequest{Mode: m, TargetTemp: target, Duration: 30 * time.Minute})
		}
	}
	system := func(m climate.SystemMode) step {
		return func(f *fixture) (Status, error) {
			return f.adapter.UpdateSystemMode(context.Background(), m)
		}
	}

	steps := []step{
		advance(0),
		reading("temp-outside", -3),
		reading("temp-living", 17.5),
		advance(90 * time.Minute),
		override(climate.ModeCooling, ptr(30)),
		reading("temp-living", 27),
		advance(31 * time.Minute),
		reading("temp-outside", 31),
		system(climate.SystemHeatOnly),
		system(climate.SystemOff),
		override(climate.ModeHeating, nil),
		system(climate.SystemAuto),
		advance(14 * time.Hour),
		reading("temp-outside", 37),
	}

	type snap struct {
		mode   climate.Mode
		state  climate.State
		target string
		preset climate.Preset
		reason string
		trans  int
	}
	run := func(strategy string) []snap {
		f := newFixture(t, strategy, testSettings())
		var out []snap
		for i, s := range steps {
			st, err := s(f)
			if err != nil {
				t.Fatalf("%s step %d error = %v", strategy, i, err)
			}
			target := "nil"
			if st.Context.TargetTemp != nil {
				target = fmt.Sprintf("%.2f", *st.Context.TargetTemp)
			}
			reason := ""
			if n := len(st.History); n > 0 {
				reason = st.History[n-1].Reasoning
			}
			out = append(out, snap{st.Context.Mode, st.CurrentState, target, st.Context.Preset, reason, st.TotalTransitions})
		}
		return out
	}

	g, sc := run(StrategyGraph), run(StrategyStatechart)
	for i := range g {
		if g[i] != sc[i] {
			t.Errorf("step %d: graph %+v != statechart %+v", i, g[i], sc[i])
		}
	}
}

// ─── Lifecycle and validation ───────────────────────────────────────

func TestLifecycle(t *testing.T) {
	f := newFixture(t, StrategyStatechart, testSettings())
	ctx := context.Background()

	if err := f.adapter.Start(ctx); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Start() error = %v, want ErrAlreadyRunning", err)
	}
	if !f.adapter.GetStatus().Running {
		t.Error("GetStatus().Running = false while running")
	}

	if err := f.adapter.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := f.adapter.Stop(ctx); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
	if _, err := f.adapter.ClearManualOverride(ctx); !errors.Is(err, ErrNotRunning) {
		t.Errorf("command after Stop error = %v, want ErrNotRunning", err)
	}
	st := f.adapter.GetStatus()
	if st.Running || st.Strategy != StrategyStatechart || st.CurrentState != climate.StateIdle {
		t.Errorf("stopped status = %+v", st)
	}
}

type blockingEvaluator struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingEvaluator) Name() string { return "blocking" }

func (b *blockingEvaluator) Evaluate(*climate.DecisionContext, climate.Trigger, time.Time) (climate.Outcome, error) {
	b.once.Do(func() { close(b.entered) })
	<-b.release
	return climate.Outcome{Mode: climate.ModeIdle, State: climate.StateIdle}, nil
}

func TestStop_TimeoutStillDrainsDispatcher(t *testing.T) {
	ev := &blockingEvaluator{entered: make(chan struct{}), release: make(chan struct{})}
	e, err := New(ev, testSettings(), Config{Clock: &fakeClock{now: t0}}, Deps{Actuator: &mockActuator{}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	dispDone := e.dispDone

	go func() { _, _ = e.Submit(context.Background(), climate.Trigger{Kind: climate.TriggerTick}) }()
	select {
	case <-ev.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("pass never started")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := e.Stop(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Stop() error = %v, want DeadlineExceeded", err)
	}

	close(ev.release)
	select {
	case <-dispDone:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher still running after the pass returned")
	}
	if e.IsRunning() {
		t.Error("IsRunning() = true after Stop")
	}
}

func TestAdapter_RejectsBadInput(t *testing.T) {
	f := newFixture(t, StrategyGraph, testSettings())
	ctx := context.Background()

	if _, err := f.adapter.HandleTemperatureChange(ctx, "temp-attic", 20); !errors.Is(err, ErrUnknownSensor) {
		t.Errorf("unknown sensor error = %v", err)
	}
	if _, err := f.adapter.HandleTemperatureChange(ctx, "temp-living", 150); !errors.Is(err, ErrInvalidReading) {
		t.Errorf("implausible reading error = %v", err)
	}
	if _, err := f.adapter.ManualOverride(ctx, OverrideRequest{Mode: "turbo"}); !errors.Is(err, climate.ErrInvalidOverride) {
		t.Errorf("bad override error = %v", err)
	}
	if _, err := f.adapter.UpdateSystemMode(ctx, "eco"); !errors.Is(err, climate.ErrInvalidSystemMode) {
		t.Errorf("bad system mode error = %v", err)
	}
}

func TestNewAdapter_Errors(t *testing.T) {
	deps := Deps{Actuator: &mockActuator{}}

	if _, err := NewAdapter("fsm", testSettings(), Config{}, deps); !errors.Is(err, ErrUnknownStrategy) {
		t.Errorf("unknown strategy error = %v", err)
	}

	bad := testSettings()
	bad.Heating.Indoor = climate.Band{Min: 22, Max: 20}
	if _, err := NewAdapter(StrategyGraph, bad, Config{}, deps); !errors.Is(err, climate.ErrInvalidSettings) {
		t.Errorf("invalid settings error = %v", err)
	}
}
