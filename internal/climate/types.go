package climate

import "fmt"

// Mode is the operating mode the engine commands.
type Mode string

// Operating modes.
const (
	ModeIdle    Mode = "idle"
	ModeHeating Mode = "heating"
	ModeCooling Mode = "cooling"
	ModeOff     Mode = "off"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeIdle, ModeHeating, ModeCooling, ModeOff:
		return true
	}
	return false
}

// Actionable reports whether entering m requires an actuator call.
// Idle leaves the plant in whatever state it coasts to.
func (m Mode) Actionable() bool {
	return m == ModeHeating || m == ModeCooling || m == ModeOff
}

// ParseMode converts user input to a Mode.
func ParseMode(s string) (Mode, error) {
	m := Mode(s)
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
	return m, nil
}

// SystemMode is the user-selected envelope the policy works within.
type SystemMode string

// System modes.
const (
	SystemAuto     SystemMode = "auto"
	SystemHeatOnly SystemMode = "heat_only"
	SystemCoolOnly SystemMode = "cool_only"
	SystemOff      SystemMode = "off"
)

// Valid reports whether s is a known system mode.
func (s SystemMode) Valid() bool {
	switch s {
	case SystemAuto, SystemHeatOnly, SystemCoolOnly, SystemOff:
		return true
	}
	return false
}

// ParseSystemMode converts user input to a SystemMode.
func ParseSystemMode(s string) (SystemMode, error) {
	m := SystemMode(s)
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidSystemMode, s)
	}
	return m, nil
}

// Preset is the comfort profile sent to actuators alongside the target.
type Preset string

// Presets.
const (
	PresetComfort Preset = "comfort"
	PresetEco     Preset = "eco"
	PresetSleep   Preset = "sleep"
	PresetBoost   Preset = "boost"
)

// State is the engine state label. It equals the mode except while a manual
// override is in force.
type State string

// Engine states.
const (
	StateIdle           State = "idle"
	StateHeating        State = "heating"
	StateCooling        State = "cooling"
	StateOff            State = "off"
	StateManualOverride State = "manual_override"
)

// StateForMode returns the automatic state label for a mode.
func StateForMode(m Mode) State {
	return State(m)
}

// TriggerKind names what caused an evaluation pass.
type TriggerKind string

// Trigger kinds.
const (
	TriggerSensorUpdate   TriggerKind = "sensor_update"
	TriggerManualOverride TriggerKind = "manual_override"
	TriggerOverrideClear  TriggerKind = "override_clear"
	TriggerSystemMode     TriggerKind = "system_mode"
	TriggerTick           TriggerKind = "tick"
	TriggerOverrideExpiry TriggerKind = "override_expiry"
)

// Trigger is one event delivered to the engine.
type Trigger struct {
	Kind TriggerKind

	// Sensor updates.
	SensorID string
	Role     SensorRole
	Value    float64

	// Manual override.
	Override *OverrideDirective

	// System mode change.
	SystemMode SystemMode
}

// Conditions is the slice of context the policy reads, also stored with each
// evaluation record.
type Conditions struct {
	IndoorTemp  *float64   `json:"indoor_temp"`
	OutdoorTemp *float64   `json:"outdoor_temp"`
	SystemMode  SystemMode `json:"system_mode"`
	CurrentHour int        `json:"current_hour"`
	IsWeekday   bool       `json:"is_weekday"`
}

// Decision is the policy's answer for one set of conditions.
type Decision struct {
	Mode      Mode
	Reasoning string
	// MissingData is set when a reading was unknown.
	MissingData bool
}

// Outcome is what an execution strategy returns for one pass.
type Outcome struct {
	Mode       Mode
	State      State
	Reasoning  string
	TargetTemp *float64
	Preset     Preset

	// Defrost is set when a defrost cycle became due during this pass.
	Defrost bool
	// OverrideCleared is set when an expired override was dropped.
	OverrideCleared bool
	// MissingData mirrors Decision.MissingData.
	MissingData bool

	// Path lists the nodes or states visited, in order.
	Path []string
}

func float64Ptr(v float64) *float64 {
	return &v
}

func copyFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
