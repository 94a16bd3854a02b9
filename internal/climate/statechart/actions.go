package statechart

import (
	"fmt"

	"github.com/nerrad567/gray-logic-climate/internal/climate"
)

// ─── Guards ─────────────────────────────────────────────────────────

func chooseRoot(r *run) (StateID, error) {
	if r.dc.SystemMode == climate.SystemOff {
		return StateOff, nil
	}
	return StateOn, nil
}

func chooseOn(r *run) (StateID, error) {
	if r.dc.OverrideActive() {
		return StateManual, nil
	}
	return StateAutomatic, nil
}

func (ch *Chart) chooseAutomatic(r *run) (StateID, error) {
	r.decision = ch.c.Policy.Evaluate(r.dc.Conditions())
	switch r.decision.Mode {
	case climate.ModeIdle:
		return StateIdle, nil
	case climate.ModeHeating:
		return StateHeating, nil
	case climate.ModeCooling:
		return StateCooling, nil
	}
	return "", fmt.Errorf("%w: policy chose %q outside automatic", climate.ErrInvalidMode, r.decision.Mode)
}

// ─── Activities ─────────────────────────────────────────────────────

func (ch *Chart) systemOff(r *run) error {
	ch.settle(r, climate.ModeOff, climate.StateOff, climate.ReasonSystemOff, nil)
	return nil
}

func (ch *Chart) manualOverride(r *run) error {
	mode, reasoning, ok := ch.c.Overrides.Resolve(r.dc, r.now)
	if !ok {
		return climate.ErrInvalidOverride
	}
	ch.settle(r, mode, climate.StateManualOverride, reasoning, r.dc.Override.TargetTemp)
	if mode == climate.ModeHeating {
		r.out.Defrost = ch.c.Defrost.Check(r.dc, r.now)
	}
	return nil
}

func (ch *Chart) automatic(mode climate.Mode) action {
	return func(r *run) error {
		ch.settle(r, mode, climate.StateForMode(mode), r.decision.Reasoning, nil)
		r.out.MissingData = r.decision.MissingData
		if mode == climate.ModeHeating {
			r.out.Defrost = ch.c.Defrost.Check(r.dc, r.now)
		}
		return nil
	}
}

func (ch *Chart) settle(r *run, mode climate.Mode, state climate.State, reasoning string, requested *float64) {
	target, preset := ch.c.Policy.Target(mode, r.dc.Conditions(), requested)
	r.out.Mode = mode
	r.out.State = state
	r.out.Reasoning = reasoning
	r.out.TargetTemp = target
	r.out.Preset = preset
}
