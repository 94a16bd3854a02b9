package engine

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/nerrad567/gray-logic-climate/internal/climate"
	"github.com/nerrad567/gray-logic-climate/internal/climate/graph"
	"github.com/nerrad567/gray-logic-climate/internal/climate/statechart"
)

// Plausible reading range in °C. Anything outside is a sensor fault.
const (
	minReading = -60.0
	maxReading = 90.0
)

// Strategy names accepted by NewAdapter.
const (
	StrategyGraph      = graph.StrategyName
	StrategyStatechart = statechart.StrategyName
)

// OverrideRequest is a manual override command.
type OverrideRequest struct {
	Mode       climate.Mode
	TargetTemp *float64
	// SetBy identifies the caller, e.g. the JWT subject.
	SetBy string
	// Duration of zero selects the configured default.
	Duration time.Duration
}

// Adapter is the uniform façade over the engine, whichever strategy it was
// built with. The strategy is chosen once here and never changes.
type Adapter struct {
	engine    *Engine
	overrides climate.OverrideManager
	clock     climate.Clock
}

// NewStrategy builds the named execution strategy over c.
func NewStrategy(name string, c climate.Components) (climate.Evaluator, error) {
	switch name {
	case StrategyGraph:
		return graph.New(c)
	case StrategyStatechart:
		return statechart.New(c)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
}

// NewAdapter validates settings, builds the strategy and the engine.
//
// Parameters:
//   - strategy: "graph" or "statechart"
//   - settings: Climate settings from configuration
//   - cfg: Engine options
//   - deps: Collaborators
//
// Returns climate.ErrInvalidSettings or ErrUnknownStrategy wrapped on a bad
// configuration.
func NewAdapter(strategy string, settings climate.Settings, cfg Config, deps Deps, opts ...climate.PolicyOption) (*Adapter, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	c := climate.NewComponents(settings, opts...)
	ev, err := NewStrategy(strategy, c)
	if err != nil {
		return nil, err
	}
	e, err := New(ev, settings, cfg, deps)
	if err != nil {
		return nil, err
	}
	return &Adapter{engine: e, overrides: c.Overrides, clock: e.clock}, nil
}

// Start starts the engine.
func (a *Adapter) Start(ctx context.Context) error {
	return a.engine.Start(ctx)
}

// Stop stops the engine, waiting for in-flight work.
func (a *Adapter) Stop(ctx context.Context) error {
	return a.engine.Stop(ctx)
}

// Strategy returns the strategy name.
func (a *Adapter) Strategy() string {
	return a.engine.Strategy()
}

// HandleTemperatureChange feeds one sensor reading.
func (a *Adapter) HandleTemperatureChange(ctx context.Context, sensorID string, value float64) (Status, error) {
	sensor, ok := a.engine.settings.SensorByID(sensorID)
	if !ok {
		return Status{}, fmt.Errorf("%w: %q", ErrUnknownSensor, sensorID)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) || value < minReading || value > maxReading {
		return Status{}, fmt.Errorf("%w: %v from %q", ErrInvalidReading, value, sensorID)
	}
	return a.engine.Submit(ctx, climate.Trigger{
		Kind:     climate.TriggerSensorUpdate,
		SensorID: sensorID,
		Role:     sensor.Role,
		Value:    value,
	})
}

// ManualOverride pins the mode until cleared or expired.
func (a *Adapter) ManualOverride(ctx context.Context, req OverrideRequest) (Status, error) {
	setBy := req.SetBy
	if setBy == "" {
		setBy = "api"
	}
	d, err := a.overrides.Issue(req.Mode, req.TargetTemp, setBy, req.Duration, a.clock.Now())
	if err != nil {
		return Status{}, err
	}
	return a.engine.Submit(ctx, climate.Trigger{Kind: climate.TriggerManualOverride, Override: d})
}

// ClearManualOverride drops any override and returns to automatic control.
func (a *Adapter) ClearManualOverride(ctx context.Context) (Status, error) {
	return a.engine.Submit(ctx, climate.Trigger{Kind: climate.TriggerOverrideClear})
}

// UpdateSystemMode changes the operator envelope.
func (a *Adapter) UpdateSystemMode(ctx context.Context, mode climate.SystemMode) (Status, error) {
	if !mode.Valid() {
		return Status{}, fmt.Errorf("%w: %q", climate.ErrInvalidSystemMode, mode)
	}
	return a.engine.Submit(ctx, climate.Trigger{Kind: climate.TriggerSystemMode, SystemMode: mode})
}

// GetStatus returns the last committed snapshot without waiting.
func (a *Adapter) GetStatus() Status {
	return a.engine.Status()
}

// EntityState asks the actuator for one entity's last reported state.
func (a *Adapter) EntityState(ctx context.Context, id string) (EntityState, error) {
	return a.engine.deps.Actuator.GetCurrentState(ctx, id)
}
