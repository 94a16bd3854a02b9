package climate

import "time"

// OverrideDirective is a user command that pins the mode.
type OverrideDirective struct {
	Active     bool       `json:"active"`
	Mode       Mode       `json:"mode"`
	TargetTemp *float64   `json:"target_temp,omitempty"`
	SetBy      string     `json:"set_by"`
	IssuedAt   time.Time  `json:"issued_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

// Expired reports whether the directive has an expiry that now is past.
func (o *OverrideDirective) Expired(now time.Time) bool {
	return o.ExpiresAt != nil && now.After(*o.ExpiresAt)
}

// Clone returns a deep copy.
func (o *OverrideDirective) Clone() *OverrideDirective {
	if o == nil {
		return nil
	}
	c := *o
	c.TargetTemp = copyFloat(o.TargetTemp)
	if o.ExpiresAt != nil {
		t := *o.ExpiresAt
		c.ExpiresAt = &t
	}
	return &c
}

// ErrorInfo describes the last evaluation fault.
type ErrorInfo struct {
	Timestamp      time.Time `json:"timestamp"`
	Message        string    `json:"message"`
	SourceNode     string    `json:"source_node"`
	RecoveryAction string    `json:"recovery_action"`
}

// DecisionContext is the engine's whole mutable state. Only the engine loop
// touches it; a pass works on a Clone and the clone replaces the original
// when the pass succeeds.
type DecisionContext struct {
	Mode         Mode
	PreviousMode Mode
	State        State

	IndoorTemp  *float64
	OutdoorTemp *float64
	SystemMode  SystemMode

	CurrentHour int
	IsWeekday   bool

	TargetTemp *float64
	Preset     Preset

	LastDefrostAt *time.Time
	Override      *OverrideDirective

	History History
	Metrics PerformanceMetrics

	LastError *ErrorInfo
}

// NewDecisionContext returns the start-up context: idle, auto, no readings.
func NewDecisionContext(historyCapacity, latencyCapacity int) *DecisionContext {
	return &DecisionContext{
		Mode:         ModeIdle,
		PreviousMode: ModeIdle,
		State:        StateIdle,
		SystemMode:   SystemAuto,
		History:      NewHistory(historyCapacity),
		Metrics:      NewPerformanceMetrics(latencyCapacity),
	}
}

// Clone returns a deep copy sharing no mutable memory with dc.
func (dc *DecisionContext) Clone() *DecisionContext {
	c := *dc
	c.IndoorTemp = copyFloat(dc.IndoorTemp)
	c.OutdoorTemp = copyFloat(dc.OutdoorTemp)
	c.TargetTemp = copyFloat(dc.TargetTemp)
	if dc.LastDefrostAt != nil {
		t := *dc.LastDefrostAt
		c.LastDefrostAt = &t
	}
	c.Override = dc.Override.Clone()
	c.History = dc.History.clone()
	c.Metrics = dc.Metrics.clone()
	if dc.LastError != nil {
		e := *dc.LastError
		c.LastError = &e
	}
	return &c
}

// RefreshTime sets hour and weekday from now in the given zone.
func (dc *DecisionContext) RefreshTime(now time.Time, loc *time.Location) {
	if loc != nil {
		now = now.In(loc)
	}
	dc.CurrentHour = now.Hour()
	wd := now.Weekday()
	dc.IsWeekday = wd != time.Saturday && wd != time.Sunday
}

// OverrideActive reports whether a live override directive is held.
func (dc *DecisionContext) OverrideActive() bool {
	return dc.Override != nil && dc.Override.Active
}

// Conditions returns a copy of the inputs the policy reads.
func (dc *DecisionContext) Conditions() Conditions {
	return Conditions{
		IndoorTemp:  copyFloat(dc.IndoorTemp),
		OutdoorTemp: copyFloat(dc.OutdoorTemp),
		SystemMode:  dc.SystemMode,
		CurrentHour: dc.CurrentHour,
		IsWeekday:   dc.IsWeekday,
	}
}

// ContextView is the read-only projection handed to collaborators.
type ContextView struct {
	Mode          Mode               `json:"mode"`
	PreviousMode  Mode               `json:"previous_mode"`
	State         State              `json:"state"`
	IndoorTemp    *float64           `json:"indoor_temp"`
	OutdoorTemp   *float64           `json:"outdoor_temp"`
	SystemMode    SystemMode         `json:"system_mode"`
	CurrentHour   int                `json:"current_hour"`
	IsWeekday     bool               `json:"is_weekday"`
	TargetTemp    *float64           `json:"target_temp"`
	Preset        Preset             `json:"preset,omitempty"`
	LastDefrostAt *time.Time         `json:"last_defrost_at,omitempty"`
	Override      *OverrideDirective `json:"override,omitempty"`
	LastError     *ErrorInfo         `json:"last_error,omitempty"`
}

// View returns a ContextView sharing no memory with dc.
func (dc *DecisionContext) View() ContextView {
	v := ContextView{
		Mode:         dc.Mode,
		PreviousMode: dc.PreviousMode,
		State:        dc.State,
		IndoorTemp:   copyFloat(dc.IndoorTemp),
		OutdoorTemp:  copyFloat(dc.OutdoorTemp),
		SystemMode:   dc.SystemMode,
		CurrentHour:  dc.CurrentHour,
		IsWeekday:    dc.IsWeekday,
		TargetTemp:   copyFloat(dc.TargetTemp),
		Preset:       dc.Preset,
		Override:     dc.Override.Clone(),
	}
	if dc.LastDefrostAt != nil {
		t := *dc.LastDefrostAt
		v.LastDefrostAt = &t
	}
	if dc.LastError != nil {
		e := *dc.LastError
		v.LastError = &e
	}
	return v
}
