package climate

import "time"

// Evaluator is an execution strategy. Evaluate decides one pass on a working
// copy of the context. It may clear an expired override and update the
// defrost clock on dc; everything else is reported in the Outcome and
// committed by the engine.
type Evaluator interface {
	Name() string
	Evaluate(dc *DecisionContext, trigger Trigger, now time.Time) (Outcome, error)
}

// Components bundles the decision parts both strategies are built from.
type Components struct {
	Policy    *Policy
	Overrides OverrideManager
	Defrost   DefrostScheduler
}

// NewComponents wires the parts from validated settings.
func NewComponents(s Settings, opts ...PolicyOption) Components {
	return Components{
		Policy:    NewPolicy(s, opts...),
		Overrides: NewOverrideManager(s.OverrideDuration),
		Defrost:   NewDefrostScheduler(s),
	}
}
