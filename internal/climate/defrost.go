package climate

import "time"

// DefrostScheduler decides when heat pumps need a defrost cycle.
type DefrostScheduler struct {
	settings DefrostSettings
	entities []string
}

// NewDefrostScheduler schedules for the enabled defrost-capable entities in s.
func NewDefrostScheduler(s Settings) DefrostScheduler {
	return DefrostScheduler{settings: s.Defrost, entities: s.DefrostEntityIDs()}
}

// Capable reports whether any entity needs defrosting at all.
func (d DefrostScheduler) Capable() bool {
	return len(d.entities) > 0
}

// Entities returns the defrost-capable entity IDs.
func (d DefrostScheduler) Entities() []string {
	return append([]string(nil), d.entities...)
}

// Duration returns the length of one cycle.
func (d DefrostScheduler) Duration() time.Duration {
	return d.settings.Duration
}

// ShouldDefrostNow reports whether a cycle is due: outdoor at or below the
// threshold and more than one period since the last cycle. An unknown last
// cycle is never due.
func (d DefrostScheduler) ShouldDefrostNow(dc *DecisionContext, now time.Time) bool {
	if dc.OutdoorTemp == nil || dc.LastDefrostAt == nil {
		return false
	}
	if *dc.OutdoorTemp > d.settings.OutdoorThreshold {
		return false
	}
	return now.Sub(*dc.LastDefrostAt) > d.settings.Period
}

// Check runs the defrost side channel for a heating pass. The first pass of
// every heating session restarts the clock; later passes start a cycle when
// one is due and record it. dc.Mode is still the previously committed mode
// when Check runs. It reports whether a cycle should start now.
func (d DefrostScheduler) Check(dc *DecisionContext, now time.Time) bool {
	if !d.Capable() {
		return false
	}
	if dc.LastDefrostAt == nil || dc.Mode != ModeHeating {
		t := now
		dc.LastDefrostAt = &t
		return false
	}
	if !d.ShouldDefrostNow(dc, now) {
		return false
	}
	t := now
	dc.LastDefrostAt = &t
	return true
}
