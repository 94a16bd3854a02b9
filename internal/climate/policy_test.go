package climate

import (
	"strings"
	"testing"
)

func testSettings() Settings {
	s := DefaultSettings()
	s.Entities = []Entity{
		{ID: "hp-living", Protocol: "knx", Enabled: true, Defrost: true},
		{ID: "fan-coil-office", Protocol: "modbus", Enabled: true},
		{ID: "spare", Protocol: "knx", Enabled: false, Defrost: true},
	}
	s.Sensors = []Sensor{
		{ID: "temp-living", Protocol: "knx", Role: SensorIndoor, Field: "temperature"},
		{ID: "temp-outside", Protocol: "knx", Role: SensorOutdoor, Field: "temperature"},
	}
	return s
}

func ptr(v float64) *float64 { return &v }

func conditions(indoor, outdoor *float64, mode SystemMode) Conditions {
	return Conditions{IndoorTemp: indoor, OutdoorTemp: outdoor, SystemMode: mode, CurrentHour: 12, IsWeekday: true}
}

func TestPolicy_Evaluate(t *testing.T) {
	p := NewPolicy(testSettings())

	tests := []struct {
		name       string
		cond       Conditions
		wantMode   Mode
		wantReason string
		missing    bool
	}{
		{
			name:       "cold morning heats",
			cond:       conditions(ptr(18), ptr(5), SystemAuto),
			wantMode:   ModeHeating,
			wantReason: "below comfort threshold",
		},
		{
			name:       "hot afternoon cools",
			cond:       conditions(ptr(27), ptr(30), SystemAuto),
			wantMode:   ModeCooling,
			wantReason: "above comfort threshold",
		},
		{
			name:       "comfortable stays idle",
			cond:       conditions(ptr(22), ptr(15), SystemAuto),
			wantMode:   ModeIdle,
			wantReason: "at or above heating threshold",
		},
		{
			name:       "missing indoor reading",
			cond:       conditions(nil, ptr(5), SystemAuto),
			wantMode:   ModeIdle,
			wantReason: ReasonAwaitingReadings,
			missing:    true,
		},
		{
			name:       "missing outdoor reading",
			cond:       conditions(ptr(15), nil, SystemAuto),
			wantMode:   ModeIdle,
			wantReason: ReasonAwaitingReadings,
			missing:    true,
		},
		{
			name:       "system off beats everything",
			cond:       conditions(ptr(10), ptr(-5), SystemOff),
			wantMode:   ModeOff,
			wantReason: ReasonSystemOff,
		},
		{
			name:       "system off with no readings",
			cond:       conditions(nil, nil, SystemOff),
			wantMode:   ModeOff,
			wantReason: ReasonSystemOff,
		},
		{
			name:       "heat_only ignores cooling demand",
			cond:       conditions(ptr(27), ptr(30), SystemHeatOnly),
			wantMode:   ModeIdle,
			wantReason: "heating threshold",
		},
		{
			name:       "cool_only ignores heating demand",
			cond:       conditions(ptr(18), ptr(5), SystemCoolOnly),
			wantMode:   ModeIdle,
			wantReason: "cooling threshold",
		},
		{
			name:       "outdoor too warm for heating",
			cond:       conditions(ptr(18), ptr(20), SystemAuto),
			wantMode:   ModeIdle,
			wantReason: "outside heating range",
		},
		{
			name:       "outdoor too cold for cooling",
			cond:       conditions(ptr(27), ptr(5), SystemAuto),
			wantMode:   ModeIdle,
			wantReason: "outside cooling range",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := p.Evaluate(tt.cond)
			if d.Mode != tt.wantMode {
				t.Errorf("Mode = %s, want %s (reasoning %q)", d.Mode, tt.wantMode, d.Reasoning)
			}
			if !strings.Contains(d.Reasoning, tt.wantReason) {
				t.Errorf("Reasoning = %q, want it to contain %q", d.Reasoning, tt.wantReason)
			}
			if d.MissingData != tt.missing {
				t.Errorf("MissingData = %v, want %v", d.MissingData, tt.missing)
			}
		})
	}
}

func TestPolicy_HeatingWinsTie(t *testing.T) {
	s := testSettings()
	// Overlapping bands so one reading satisfies both rules.
	s.Heating.Indoor = Band{Min: 25, Max: 26}
	s.Cooling.Indoor = Band{Min: 18, Max: 20}
	s.Cooling.Outdoor = Band{Min: -30, Max: 45}
	p := NewPolicy(s)

	d := p.Evaluate(conditions(ptr(22), ptr(5), SystemAuto))
	if d.Mode != ModeHeating {
		t.Errorf("Mode = %s, want heating on a tie", d.Mode)
	}
}

type alwaysRule struct{ name string }

func (r alwaysRule) Name() string                      { return r.name }
func (r alwaysRule) Applies(Conditions) (bool, string) { return true, r.name + " forced" }

func TestPolicy_SwappableRules(t *testing.T) {
	p := NewPolicy(testSettings(), WithCoolingRule(alwaysRule{name: "cooling"}))

	d := p.Evaluate(conditions(ptr(22), ptr(15), SystemAuto))
	if d.Mode != ModeCooling || d.Reasoning != "cooling forced" {
		t.Errorf("Decision = %+v, want forced cooling", d)
	}
}

func TestPolicy_Target(t *testing.T) {
	p := NewPolicy(testSettings())

	weekdayNoon := Conditions{OutdoorTemp: ptr(5), CurrentHour: 12, IsWeekday: true}
	weekdayNight := Conditions{OutdoorTemp: ptr(5), CurrentHour: 23, IsWeekday: true}
	weekendNight := Conditions{OutdoorTemp: ptr(5), CurrentHour: 2, IsWeekday: false}
	heatwave := Conditions{OutdoorTemp: ptr(38), CurrentHour: 15, IsWeekday: true}

	tests := []struct {
		name       string
		mode       Mode
		cond       Conditions
		requested  *float64
		wantTarget *float64
		wantPreset Preset
	}{
		{"heating comfort", ModeHeating, weekdayNoon, nil, ptr(21), PresetComfort},
		{"cooling comfort", ModeCooling, Conditions{OutdoorTemp: ptr(30), CurrentHour: 12, IsWeekday: true}, nil, ptr(24), PresetComfort},
		{"weekday night sleeps", ModeHeating, weekdayNight, nil, ptr(21), PresetSleep},
		// 21 - 2 = 19 is below the safety floor.
		{"weekend night heating clamps to floor", ModeHeating, weekendNight, nil, ptr(20), PresetEco},
		{"weekend night cooling relaxes", ModeCooling, weekendNight, nil, ptr(26), PresetEco},
		{"extreme heat boosts", ModeCooling, heatwave, nil, ptr(24), PresetBoost},
		{"requested target clamped high", ModeHeating, weekdayNoon, ptr(35), ptr(28), PresetComfort},
		{"requested target clamped low", ModeCooling, weekdayNoon, ptr(12), ptr(20), PresetComfort},
		{"requested target kept", ModeHeating, weekdayNoon, ptr(22.5), ptr(22.5), PresetComfort},
		{"idle has no target", ModeIdle, weekdayNoon, nil, nil, ""},
		{"off has no target", ModeOff, weekdayNoon, ptr(22), nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target, preset := p.Target(tt.mode, tt.cond, tt.requested)
			if preset != tt.wantPreset {
				t.Errorf("preset = %q, want %q", preset, tt.wantPreset)
			}
			switch {
			case tt.wantTarget == nil && target != nil:
				t.Errorf("target = %v, want nil", *target)
			case tt.wantTarget != nil && target == nil:
				t.Errorf("target = nil, want %v", *tt.wantTarget)
			case tt.wantTarget != nil && *target != *tt.wantTarget:
				t.Errorf("target = %v, want %v", *target, *tt.wantTarget)
			}
		})
	}
}

// Every committed target stays inside the safety band whatever the inputs.
func TestPolicy_TargetAlwaysInSafetyBand(t *testing.T) {
	s := testSettings()
	s.Adjustments.WeekendNightOffset = 15
	p := NewPolicy(s)

	for _, mode := range []Mode{ModeHeating, ModeCooling} {
		for hour := 0; hour < 24; hour++ {
			for _, weekday := range []bool{true, false} {
				for _, req := range []*float64{nil, ptr(-50), ptr(100), ptr(24)} {
					c := Conditions{OutdoorTemp: ptr(float64(hour*3 - 20)), CurrentHour: hour, IsWeekday: weekday}
					target, _ := p.Target(mode, c, req)
					if target == nil {
						t.Fatalf("%s: nil target", mode)
					}
					if !s.Safety.Contains(*target) {
						t.Fatalf("%s hour=%d weekday=%v req=%v: target %v outside %v",
							mode, hour, weekday, req, *target, s.Safety)
					}
				}
			}
		}
	}
}

func TestActiveHours_Contains(t *testing.T) {
	tests := []struct {
		hours ActiveHours
		hour  int
		want  bool
	}{
		{ActiveHours{Start: 7, End: 22}, 7, true},
		{ActiveHours{Start: 7, End: 22}, 21, true},
		{ActiveHours{Start: 7, End: 22}, 22, false},
		{ActiveHours{Start: 7, End: 22}, 3, false},
		{ActiveHours{Start: 20, End: 6}, 23, true},
		{ActiveHours{Start: 20, End: 6}, 5, true},
		{ActiveHours{Start: 20, End: 6}, 12, false},
		{ActiveHours{Start: 0, End: 0}, 3, true},
	}
	for _, tt := range tests {
		if got := tt.hours.Contains(tt.hour); got != tt.want {
			t.Errorf("%+v.Contains(%d) = %v, want %v", tt.hours, tt.hour, got, tt.want)
		}
	}
}

func TestParseModes(t *testing.T) {
	if m, err := ParseMode("heating"); err != nil || m != ModeHeating {
		t.Errorf("ParseMode(heating) = %v, %v", m, err)
	}
	if _, err := ParseMode("turbo"); err == nil {
		t.Error("ParseMode(turbo) should fail")
	}
	if m, err := ParseSystemMode("cool_only"); err != nil || m != SystemCoolOnly {
		t.Errorf("ParseSystemMode(cool_only) = %v, %v", m, err)
	}
	if _, err := ParseSystemMode("eco"); err == nil {
		t.Error("ParseSystemMode(eco) should fail")
	}
	if ModeIdle.Actionable() {
		t.Error("idle must not be actionable")
	}
	for _, m := range []Mode{ModeHeating, ModeCooling, ModeOff} {
		if !m.Actionable() {
			t.Errorf("%s should be actionable", m)
		}
	}
}
