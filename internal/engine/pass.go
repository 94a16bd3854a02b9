package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-climate/internal/climate"
)

// RecoveryForcedIdle is the recovery action recorded for evaluation faults.
const RecoveryForcedIdle = "forced idle"

// handle runs one evaluation pass and commits it. Loop goroutine only.
//
// The pass works on a clone. On success the clone, with the outcome
// applied, replaces the context. On a fault the trigger's input is kept, the
// decision falls back to idle and LastError is set.
func (e *Engine) handle(tr climate.Trigger) *Status {
	started := time.Now()
	now := e.clock.Now()
	prev := e.dc

	work := prev.Clone()
	applyTrigger(work, tr)
	work.RefreshTime(now, e.settings.Zone())
	base := work.Clone()

	out, err := e.evaluate(work, tr, now)
	elapsed := time.Since(started)

	next := work
	if err != nil {
		next, out = e.fallback(base, err, now)
	}

	next.PreviousMode = prev.Mode
	next.Mode = out.Mode
	next.State = out.State
	next.TargetTemp = out.TargetTemp
	next.Preset = out.Preset

	changed := out.Mode != prev.Mode
	var rec *climate.EvaluationRecord
	if changed {
		next.Metrics.CountTransition()
		r := climate.EvaluationRecord{
			ID:              uuid.NewString(),
			Timestamp:       now,
			Strategy:        e.strategy.Name(),
			Trigger:         tr.Kind,
			Decision:        out.Mode,
			PreviousMode:    prev.Mode,
			State:           out.State,
			Reasoning:       out.Reasoning,
			TargetTemp:      out.TargetTemp,
			Preset:          out.Preset,
			Conditions:      next.Conditions(),
			ExecutionTimeMS: float64(elapsed) / float64(time.Millisecond),
		}
		next.History.Append(r)
		rec = &r
	}

	next.Metrics.Record(climate.OperationEvaluation, elapsed, now)
	next.Metrics.Record(string(out.Mode), elapsed, now)

	// Commit.
	e.dc = next
	st := e.snapshot(next)
	e.status.Store(st)
	if tr.Kind == climate.TriggerOverrideExpiry {
		// The timer behind this trigger has fired; a directive that is
		// still live by the clock needs a fresh one.
		e.disarmExpiry()
	}
	e.armExpiry(next, now)

	e.logPass(tr, prev, out, err)
	e.emit(effect{
		at:         now,
		strategy:   e.strategy.Name(),
		status:     st,
		record:     rec,
		apply:      needsActuation(prev, out, changed),
		mode:       out.Mode,
		target:     out.TargetTemp,
		preset:     out.Preset,
		defrost:    out.Defrost,
		elapsed:    elapsed,
		operation:  string(out.Mode),
		transition: next.Metrics.TotalTransitions(),
	})
	return st
}

func (e *Engine) evaluate(dc *climate.DecisionContext, tr climate.Trigger, now time.Time) (out climate.Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", climate.ErrEvaluationPanic, r)
		}
	}()
	return e.strategy.Evaluate(dc, tr, now)
}

// fallback builds the committed context for a failed pass.
func (e *Engine) fallback(base *climate.DecisionContext, err error, now time.Time) (*climate.DecisionContext, climate.Outcome) {
	node := climate.SourceNode(err, e.strategy.Name())
	base.LastError = &climate.ErrorInfo{
		Timestamp:      now,
		Message:        err.Error(),
		SourceNode:     node,
		RecoveryAction: RecoveryForcedIdle,
	}
	return base, climate.Outcome{
		Mode:      climate.ModeIdle,
		State:     climate.StateIdle,
		Reasoning: fmt.Sprintf("evaluation fault in %s: %s", node, RecoveryForcedIdle),
	}
}

// applyTrigger writes the trigger's input into the working context.
func applyTrigger(dc *climate.DecisionContext, tr climate.Trigger) {
	switch tr.Kind {
	case climate.TriggerSensorUpdate:
		v := tr.Value
		switch tr.Role {
		case climate.SensorIndoor:
			dc.IndoorTemp = &v
		case climate.SensorOutdoor:
			dc.OutdoorTemp = &v
		}
	case climate.TriggerManualOverride:
		dc.Override = tr.Override.Clone()
	case climate.TriggerOverrideClear:
		if dc.Override != nil {
			dc.Override.Active = false
		}
	case climate.TriggerSystemMode:
		dc.SystemMode = tr.SystemMode
	}
}

// needsActuation reports whether the committed outcome must be sent to the
// entities: on a change into an actionable mode, or when an actionable
// mode's setpoint or preset moved. A pass that changes nothing never acts.
func needsActuation(prev *climate.DecisionContext, out climate.Outcome, changed bool) bool {
	if !out.Mode.Actionable() {
		return false
	}
	if changed {
		return true
	}
	return !sameTarget(prev.TargetTemp, out.TargetTemp) || prev.Preset != out.Preset
}

func sameTarget(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (e *Engine) logPass(tr climate.Trigger, prev *climate.DecisionContext, out climate.Outcome, err error) {
	switch {
	case err != nil:
		e.logger.Error("evaluation failed, forcing idle",
			"trigger", tr.Kind,
			"source_node", climate.SourceNode(err, e.strategy.Name()),
			"error", err,
		)
	case out.MissingData:
		e.logger.Debug("awaiting readings, holding idle", "trigger", tr.Kind)
	}
	if out.OverrideCleared {
		e.logger.Info("manual override expired")
	}
	if out.Mode != prev.Mode {
		e.logger.Info("climate mode changed",
			"from", prev.Mode,
			"to", out.Mode,
			"state", out.State,
			"trigger", tr.Kind,
			"reasoning", out.Reasoning,
		)
	}
}
