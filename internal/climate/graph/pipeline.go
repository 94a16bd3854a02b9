package graph

import (
	"time"

	"github.com/nerrad567/gray-logic-climate/internal/climate"
)

// StrategyName identifies this strategy in records and logs.
const StrategyName = "graph"

// Node names. They appear in Outcome.Path and in LastError.SourceNode.
const (
	NodeExpireOverride = "expire_override"
	NodeSystemGate     = "system_gate"
	NodeOverrideGate   = "override_gate"
	NodeManualOverride = "manual_override"
	NodeEvaluation     = "evaluation"
	NodeHeating        = "heating"
	NodeCooling        = "cooling"
	NodeIdle           = "idle"
	NodeOff            = "off"
	NodeDefrostCheck   = "defrost_check"
)

// run is the per-pass state threaded through the nodes.
type run struct {
	dc  *climate.DecisionContext
	now time.Time

	decision   climate.Decision
	overridden bool
	requested  *float64
	out        climate.Outcome
}

// Pipeline evaluates a pass as a walk over a fixed node graph:
//
//	expire_override ─► system_gate ─┬─► off ───────────────────────────► end
//	                                └─► override_gate ─┬─► manual_override ─┐
//	                                                   └─► evaluation ──────┤
//	                                      ┌──────────────────────────────────┘
//	                                      ├─► heating ─► defrost_check ─► end
//	                                      ├─► cooling ─► end
//	                                      ├─► idle ────► end
//	                                      └─► off ─────► end
type Pipeline struct {
	c     climate.Components
	graph *Graph[*run]
}

// New compiles the pipeline over c.
func New(c climate.Components) (*Pipeline, error) {
	p := &Pipeline{c: c}

	modes := []string{NodeHeating, NodeCooling, NodeIdle, NodeOff}
	g, err := NewBuilder[*run]().
		AddNode(NodeExpireOverride, p.expireOverride).
		AddNode(NodeSystemGate, noop).
		AddNode(NodeOverrideGate, noop).
		AddNode(NodeManualOverride, p.manualOverride).
		AddNode(NodeEvaluation, p.evaluate).
		AddNode(NodeHeating, p.applyMode(climate.ModeHeating)).
		AddNode(NodeCooling, p.applyMode(climate.ModeCooling)).
		AddNode(NodeIdle, p.applyMode(climate.ModeIdle)).
		AddNode(NodeOff, p.systemOff).
		AddNode(NodeDefrostCheck, p.defrostCheck).
		SetEntry(NodeExpireOverride).
		AddEdge(NodeExpireOverride, NodeSystemGate).
		AddConditionalEdge(NodeSystemGate, routeSystem, NodeOff, NodeOverrideGate).
		AddConditionalEdge(NodeOverrideGate, routeOverride, NodeManualOverride, NodeEvaluation).
		AddConditionalEdge(NodeManualOverride, routeMode, modes...).
		AddConditionalEdge(NodeEvaluation, routeMode, modes...).
		AddEdge(NodeHeating, NodeDefrostCheck).
		AddEdge(NodeCooling, End).
		AddEdge(NodeIdle, End).
		AddEdge(NodeOff, End).
		AddEdge(NodeDefrostCheck, End).
		Compile()
	if err != nil {
		return nil, err
	}
	p.graph = g
	return p, nil
}

// Name returns "graph".
func (p *Pipeline) Name() string {
	return StrategyName
}

// Evaluate implements climate.Evaluator.
func (p *Pipeline) Evaluate(dc *climate.DecisionContext, _ climate.Trigger, now time.Time) (climate.Outcome, error) {
	r := &run{dc: dc, now: now}
	path, err := p.graph.Run(r)
	r.out.Path = path
	return r.out, err
}

// ─── Nodes ──────────────────────────────────────────────────────────

func noop(*run) error { return nil }

func (p *Pipeline) expireOverride(r *run) error {
	r.out.OverrideCleared = p.c.Overrides.ClearExpired(r.dc, r.now)
	return nil
}

func (p *Pipeline) manualOverride(r *run) error {
	mode, reasoning, ok := p.c.Overrides.Resolve(r.dc, r.now)
	if !ok {
		// override_gate only routes here for a live directive
		return climate.ErrInvalidOverride
	}
	r.decision = climate.Decision{Mode: mode, Reasoning: reasoning}
	r.overridden = true
	r.requested = r.dc.Override.TargetTemp
	return nil
}

func (p *Pipeline) evaluate(r *run) error {
	r.decision = p.c.Policy.Evaluate(r.dc.Conditions())
	return nil
}

func (p *Pipeline) systemOff(r *run) error {
	if !r.overridden && r.decision.Mode == "" {
		r.decision = climate.Decision{Mode: climate.ModeOff, Reasoning: climate.ReasonSystemOff}
	}
	return p.applyMode(climate.ModeOff)(r)
}

func (p *Pipeline) applyMode(mode climate.Mode) NodeFunc[*run] {
	return func(r *run) error {
		target, preset := p.c.Policy.Target(mode, r.dc.Conditions(), r.requested)
		r.out.Mode = mode
		r.out.Reasoning = r.decision.Reasoning
		r.out.MissingData = r.decision.MissingData
		r.out.TargetTemp = target
		r.out.Preset = preset
		r.out.State = climate.StateForMode(mode)
		if r.overridden {
			r.out.State = climate.StateManualOverride
		}
		return nil
	}
}

func (p *Pipeline) defrostCheck(r *run) error {
	r.out.Defrost = p.c.Defrost.Check(r.dc, r.now)
	return nil
}

// ─── Routers ────────────────────────────────────────────────────────

func routeSystem(r *run) string {
	if r.dc.SystemMode == climate.SystemOff {
		return NodeOff
	}
	return NodeOverrideGate
}

func routeOverride(r *run) string {
	if r.dc.OverrideActive() {
		return NodeManualOverride
	}
	return NodeEvaluation
}

func routeMode(r *run) string {
	return string(r.decision.Mode)
}
