package climate

import "strings"

// Reasoning strings shared by both execution strategies.
const (
	ReasonSystemOff        = "system mode off"
	ReasonAwaitingReadings = "awaiting readings"
	reasonOverridePrefix   = "manual override active: "
)

// Policy maps conditions to a mode and a mode to a target and preset.
// It is pure: no clock, no I/O.
type Policy struct {
	settings Settings
	heating  Rule
	cooling  Rule
}

// PolicyOption customises a Policy.
type PolicyOption func(*Policy)

// WithHeatingRule replaces the threshold heating rule.
func WithHeatingRule(r Rule) PolicyOption {
	return func(p *Policy) { p.heating = r }
}

// WithCoolingRule replaces the threshold cooling rule.
func WithCoolingRule(r Rule) PolicyOption {
	return func(p *Policy) { p.cooling = r }
}

// NewPolicy builds a policy using threshold rules from s.
func NewPolicy(s Settings, opts ...PolicyOption) *Policy {
	p := &Policy{
		settings: s,
		heating:  HeatingRule{Thresholds: s.Heating},
		cooling:  CoolingRule{Thresholds: s.Cooling},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Evaluate picks a mode for c.
//
// System off wins unconditionally. A missing reading yields idle. In auto
// mode heating is tried before cooling, so heating wins when both apply.
func (p *Policy) Evaluate(c Conditions) Decision {
	if c.SystemMode == SystemOff {
		return Decision{Mode: ModeOff, Reasoning: ReasonSystemOff}
	}
	if c.IndoorTemp == nil || c.OutdoorTemp == nil {
		return Decision{Mode: ModeIdle, Reasoning: ReasonAwaitingReadings, MissingData: true}
	}

	var reasons []string
	if c.SystemMode != SystemCoolOnly {
		ok, why := p.heating.Applies(c)
		if ok {
			return Decision{Mode: ModeHeating, Reasoning: why}
		}
		reasons = append(reasons, why)
	}
	if c.SystemMode != SystemHeatOnly {
		ok, why := p.cooling.Applies(c)
		if ok {
			return Decision{Mode: ModeCooling, Reasoning: why}
		}
		reasons = append(reasons, why)
	}
	return Decision{Mode: ModeIdle, Reasoning: strings.Join(reasons, "; ")}
}

// Target returns the setpoint and preset for mode, or (nil, "") for idle and
// off. A non-nil requested value replaces the computed base. The result is
// always inside the safety band.
func (p *Policy) Target(mode Mode, c Conditions, requested *float64) (*float64, Preset) {
	var base float64
	var relax float64
	switch mode {
	case ModeHeating:
		base = p.settings.Heating.Indoor.Max
		relax = -p.settings.Adjustments.WeekendNightOffset
	case ModeCooling:
		base = p.settings.Cooling.Indoor.Min
		relax = p.settings.Adjustments.WeekendNightOffset
	default:
		return nil, ""
	}

	night := !p.settings.ActiveHours.Contains(c.CurrentHour)
	preset := PresetComfort
	switch {
	case mode == ModeCooling && c.OutdoorTemp != nil && *c.OutdoorTemp >= p.settings.Adjustments.ExtremeHeatOutdoor:
		preset = PresetBoost
	case night && !c.IsWeekday:
		preset = PresetEco
		base += relax
	case night:
		preset = PresetSleep
	}

	if requested != nil {
		base = *requested
	}
	return float64Ptr(p.settings.Safety.Clamp(base)), preset
}

// OverrideReasoning formats the reasoning for an overridden mode.
func OverrideReasoning(m Mode) string {
	return reasonOverridePrefix + string(m)
}
