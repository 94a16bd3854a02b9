package climate

import "fmt"

// Rule decides whether one mode is warranted. Implementations receive
// Conditions with both readings present.
type Rule interface {
	Name() string
	Applies(c Conditions) (bool, string)
}

// HeatingRule heats when indoor is below the band minimum and outdoor is
// inside the heating envelope.
type HeatingRule struct {
	Thresholds ModeThresholds
}

// Name returns "heating".
func (HeatingRule) Name() string { return string(ModeHeating) }

// Applies implements Rule.
func (r HeatingRule) Applies(c Conditions) (bool, string) {
	indoor, outdoor := *c.IndoorTemp, *c.OutdoorTemp
	if indoor >= r.Thresholds.Indoor.Min {
		return false, fmt.Sprintf("indoor %.1f°C at or above heating threshold %.1f°C", indoor, r.Thresholds.Indoor.Min)
	}
	if !r.Thresholds.Outdoor.Contains(outdoor) {
		return false, fmt.Sprintf("outdoor %.1f°C outside heating range %.1f..%.1f°C",
			outdoor, r.Thresholds.Outdoor.Min, r.Thresholds.Outdoor.Max)
	}
	return true, fmt.Sprintf("indoor %.1f°C below comfort threshold %.1f°C, outdoor %.1f°C within heating range",
		indoor, r.Thresholds.Indoor.Min, outdoor)
}

// CoolingRule cools when indoor is above the band maximum and outdoor is
// inside the cooling envelope.
type CoolingRule struct {
	Thresholds ModeThresholds
}

// Name returns "cooling".
func (CoolingRule) Name() string { return string(ModeCooling) }

// Applies implements Rule.
func (r CoolingRule) Applies(c Conditions) (bool, string) {
	indoor, outdoor := *c.IndoorTemp, *c.OutdoorTemp
	if indoor <= r.Thresholds.Indoor.Max {
		return false, fmt.Sprintf("indoor %.1f°C at or below cooling threshold %.1f°C", indoor, r.Thresholds.Indoor.Max)
	}
	if !r.Thresholds.Outdoor.Contains(outdoor) {
		return false, fmt.Sprintf("outdoor %.1f°C outside cooling range %.1f..%.1f°C",
			outdoor, r.Thresholds.Outdoor.Min, r.Thresholds.Outdoor.Max)
	}
	return true, fmt.Sprintf("indoor %.1f°C above comfort threshold %.1f°C, outdoor %.1f°C within cooling range",
		indoor, r.Thresholds.Indoor.Max, outdoor)
}
