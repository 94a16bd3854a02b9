package statechart

import (
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-climate/internal/climate"
)

// StrategyName identifies this strategy in records and logs.
const StrategyName = "statechart"

// StateID names a state in the chart.
type StateID string

// Chart states.
//
//	root
//	├── off
//	└── on
//	    ├── manual_override
//	    └── automatic
//	        ├── idle
//	        ├── heating
//	        └── cooling
const (
	StateRoot      StateID = "root"
	StateOff       StateID = "off"
	StateOn        StateID = "on"
	StateManual    StateID = "manual_override"
	StateAutomatic StateID = "automatic"
	StateIdle      StateID = "idle"
	StateHeating   StateID = "heating"
	StateCooling   StateID = "cooling"
)

// ErrInvalidChart is returned by New when the state tree is malformed.
var ErrInvalidChart = errors.New("statechart: invalid chart")

type action func(r *run) error

type state struct {
	id     StateID
	parent StateID

	// choose selects the active child of a composite state.
	choose func(r *run) (StateID, error)
	// activity runs on every pass while a leaf is active.
	activity action
}

func (s *state) leaf() bool {
	return s.choose == nil
}

type run struct {
	dc  *climate.DecisionContext
	now time.Time

	decision climate.Decision
	out      climate.Outcome
}

// Chart evaluates a pass by resolving the active leaf top-down through
// guarded composite states, then recording the transition from the leaf the
// context was last in (exits up to the common ancestor, entries down to the
// new leaf) and running the new leaf's activity.
type Chart struct {
	c      climate.Components
	states map[StateID]*state
}

// New builds the chart over c.
func New(c climate.Components) (*Chart, error) {
	ch := &Chart{c: c, states: make(map[StateID]*state)}

	ch.add(&state{id: StateRoot, choose: chooseRoot})
	ch.add(&state{id: StateOff, parent: StateRoot, activity: ch.systemOff})
	ch.add(&state{id: StateOn, parent: StateRoot, choose: chooseOn})
	ch.add(&state{id: StateManual, parent: StateOn, activity: ch.manualOverride})
	ch.add(&state{id: StateAutomatic, parent: StateOn, choose: ch.chooseAutomatic})
	ch.add(&state{id: StateIdle, parent: StateAutomatic, activity: ch.automatic(climate.ModeIdle)})
	ch.add(&state{id: StateHeating, parent: StateAutomatic, activity: ch.automatic(climate.ModeHeating)})
	ch.add(&state{id: StateCooling, parent: StateAutomatic, activity: ch.automatic(climate.ModeCooling)})

	if err := ch.validate(); err != nil {
		return nil, err
	}
	return ch, nil
}

func (ch *Chart) add(s *state) {
	ch.states[s.id] = s
}

func (ch *Chart) validate() error {
	var errs []error
	for id, s := range ch.states {
		if id == StateRoot {
			continue
		}
		if ch.states[s.parent] == nil {
			errs = append(errs, fmt.Errorf("state %q has unknown parent %q", id, s.parent))
		} else if ch.states[s.parent].leaf() {
			errs = append(errs, fmt.Errorf("state %q has leaf parent %q", id, s.parent))
		}
		if s.leaf() && s.activity == nil {
			errs = append(errs, fmt.Errorf("leaf %q has no activity", id))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidChart, errors.Join(errs...))
	}
	return nil
}

// Name returns "statechart".
func (ch *Chart) Name() string {
	return StrategyName
}

// Evaluate implements climate.Evaluator. Outcome.Path holds the states
// resolved from the root, followed by "exit:<state>" and "enter:<state>"
// markers when the leaf changed.
func (ch *Chart) Evaluate(dc *climate.DecisionContext, _ climate.Trigger, now time.Time) (climate.Outcome, error) {
	r := &run{dc: dc, now: now}

	// Root-level reaction, before any guard reads the override.
	r.out.OverrideCleared = ch.c.Overrides.ClearExpired(dc, now)

	target, err := ch.resolve(r)
	if err != nil {
		return r.out, err
	}
	ch.transition(r, leafFor(dc.State), target)
	if err := ch.invoke(target, ch.states[target].activity, r); err != nil {
		return r.out, err
	}
	return r.out, nil
}

// resolve walks from the root choosing a child at each composite state.
func (ch *Chart) resolve(r *run) (StateID, error) {
	id := StateRoot
	for {
		r.out.Path = append(r.out.Path, string(id))
		s := ch.states[id]
		if s.leaf() {
			return id, nil
		}

		var next StateID
		err := ch.invoke(id, func(r *run) error {
			var err error
			next, err = s.choose(r)
			return err
		}, r)
		if err != nil {
			return "", err
		}
		if child := ch.states[next]; child == nil || child.parent != id {
			return "", &climate.NodeError{Node: string(id), Err: fmt.Errorf("%w: %q is not a child", ErrInvalidChart, next)}
		}
		id = next
	}
}

func (ch *Chart) transition(r *run, from, to StateID) {
	if from == to {
		return
	}
	up := ch.ancestors(from)
	down := ch.ancestors(to)

	common := StateRoot
	for i := 1; i <= len(up) && i <= len(down); i++ {
		if up[len(up)-i] != down[len(down)-i] {
			break
		}
		common = up[len(up)-i]
	}

	for _, id := range up {
		if id == common {
			break
		}
		r.out.Path = append(r.out.Path, "exit:"+string(id))
	}

	var entering []StateID
	for _, id := range down {
		if id == common {
			break
		}
		entering = append(entering, id)
	}
	for i := len(entering) - 1; i >= 0; i-- {
		r.out.Path = append(r.out.Path, "enter:"+string(entering[i]))
	}
}

// ancestors returns id and its ancestors, innermost first, ending at root.
func (ch *Chart) ancestors(id StateID) []StateID {
	var out []StateID
	for s := ch.states[id]; s != nil; s = ch.states[s.parent] {
		out = append(out, s.id)
		if s.id == StateRoot {
			break
		}
	}
	return out
}

// invoke runs a state action, attributing errors and panics to the state.
func (ch *Chart) invoke(id StateID, fn action, r *run) (err error) {
	if fn == nil {
		return nil
	}
	defer func() {
		if rec := recover(); rec != nil {
			err = &climate.NodeError{Node: string(id), Err: fmt.Errorf("%w: %v", climate.ErrEvaluationPanic, rec)}
		}
	}()
	if err := fn(r); err != nil {
		return &climate.NodeError{Node: string(id), Err: err}
	}
	return nil
}

// leafFor maps the committed state label onto a chart leaf.
func leafFor(s climate.State) StateID {
	switch s {
	case climate.StateOff:
		return StateOff
	case climate.StateManualOverride:
		return StateManual
	case climate.StateHeating:
		return StateHeating
	case climate.StateCooling:
		return StateCooling
	default:
		return StateIdle
	}
}
