package engine

import (
	"time"

	"github.com/nerrad567/gray-logic-climate/internal/climate"
)

// Status is an immutable snapshot of the committed context.
type Status struct {
	Strategy         string                     `json:"strategy"`
	Running          bool                       `json:"running"`
	CurrentState     climate.State              `json:"current_state"`
	Context          climate.ContextView        `json:"context"`
	History          []climate.EvaluationRecord `json:"evaluation_history"`
	Metrics          climate.MetricsSnapshot    `json:"performance_metrics"`
	TotalTransitions int                        `json:"total_transitions"`
	UpdatedAt        time.Time                  `json:"updated_at"`
}

func (e *Engine) snapshot(dc *climate.DecisionContext) *Status {
	return &Status{
		Strategy:         e.strategy.Name(),
		CurrentState:     dc.State,
		Context:          dc.View(),
		History:          dc.History.Records(),
		Metrics:          dc.Metrics.Snapshot(),
		TotalTransitions: dc.Metrics.TotalTransitions(),
		UpdatedAt:        e.clock.Now(),
	}
}
