package engine

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nerrad567/gray-logic-climate/internal/climate"
	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/mqtt"
)

// dispatchTimeout bounds each collaborator call made by the dispatcher.
const dispatchTimeout = 5 * time.Second

// WebSocket channels.
const (
	ChannelDecision = "climate.decision"
	ChannelStatus   = "climate.status"
)

// effect is the post-commit work for one pass.
type effect struct {
	at       time.Time
	strategy string
	status   *Status

	// record is set when the mode changed.
	record *climate.EvaluationRecord

	apply  bool
	mode   climate.Mode
	target *float64
	preset climate.Preset

	defrost bool

	elapsed    time.Duration
	operation  string
	transition int
}

// emit hands an effect to the dispatcher. Loop goroutine only.
func (e *Engine) emit(ef effect) {
	e.effects <- ef
}

// dispatch performs effects in commit order until effects is closed.
// Failures are logged; nothing here can change a committed decision.
func (e *Engine) dispatch(effects <-chan effect, done chan<- struct{}) {
	defer close(done)
	for ef := range effects {
		e.perform(ef)
	}
}

func (e *Engine) perform(ef effect) {
	if ef.apply {
		ids := e.settings.EnabledEntityIDs()
		e.call(func(ctx context.Context) error {
			return e.deps.Actuator.ApplyMode(ctx, ids, ef.mode, ef.target, ef.preset)
		}, "actuation failed", "mode", ef.mode, "entities", ids)
	}

	if ef.defrost {
		ids := e.settings.DefrostEntityIDs()
		ok := e.call(func(ctx context.Context) error {
			return e.deps.Actuator.StartDefrost(ctx, ids, e.settings.Defrost.Duration)
		}, "defrost start failed", "entities", ids)
		if ok {
			e.logger.Info("defrost cycle started", "entities", ids, "duration", e.settings.Defrost.Duration)
		}
	}

	if ef.record != nil {
		e.publishRecord(ef)
	}

	if m := e.deps.Metrics; m != nil {
		m.WriteLatency(ef.strategy, climate.OperationEvaluation, ef.elapsed, ef.at)
		m.WriteLatency(ef.strategy, ef.operation, ef.elapsed, ef.at)
	}

	if hub := e.deps.Hub; hub != nil {
		st := *ef.status
		st.Running = true
		hub.BroadcastStatus(st)
	}

	if pub := e.deps.State; pub != nil {
		if payload, err := json.Marshal(ef.status); err != nil {
			e.logger.Warn("encoding status failed", "error", err)
		} else if err := pub.PublishRetained(mqtt.Topics{}.CoreClimateState(), payload); err != nil {
			e.logger.Warn("publishing status failed", "error", err)
		}
	}
}

func (e *Engine) publishRecord(ef effect) {
	rec := *ef.record

	if repo := e.deps.Repository; repo != nil {
		e.call(func(ctx context.Context) error {
			return repo.RecordDecision(ctx, rec)
		}, "recording decision failed", "id", rec.ID)
	}

	if m := e.deps.Metrics; m != nil {
		m.WriteDecision(influxdb.DecisionPoint{
			Strategy:     rec.Strategy,
			Trigger:      string(rec.Trigger),
			Mode:         string(rec.Decision),
			PreviousMode: string(rec.PreviousMode),
			State:        string(rec.State),
			Preset:       string(rec.Preset),
			TargetTemp:   rec.TargetTemp,
			Transitions:  ef.transition,
			Timestamp:    rec.Timestamp,
		})
	}

	if hub := e.deps.Hub; hub != nil {
		hub.BroadcastDecision(rec)
	}

	if pub := e.deps.State; pub != nil {
		if payload, err := json.Marshal(rec); err == nil {
			if err := pub.Publish(mqtt.Topics{}.CoreClimateDecision(), payload, 1, false); err != nil {
				e.logger.Warn("publishing decision failed", "error", err)
			}
		}
	}

	if ledger := e.deps.Ledger; ledger != nil {
		e.call(func(ctx context.Context) error {
			return ledger.Publish(ctx, e.siteID, rec)
		}, "ledger publish failed", "id", rec.ID)
	}
}

// call runs fn with a bounded context and logs a failure at warn.
func (e *Engine) call(fn func(ctx context.Context) error, msg string, args ...any) bool {
	ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		e.logger.Warn(msg, append(args, "error", err)...)
		return false
	}
	return true
}
