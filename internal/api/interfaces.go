package api

import (
	"context"
	"database/sql"
	"time"

	"github.com/nerrad567/gray-logic-climate/internal/climate"
	"github.com/nerrad567/gray-logic-climate/internal/engine"
)

// ClimateController is the engine surface the API drives.
// *engine.Adapter satisfies it.
type ClimateController interface {
	Strategy() string
	GetStatus() engine.Status
	HandleTemperatureChange(ctx context.Context, sensorID string, value float64) (engine.Status, error)
	ManualOverride(ctx context.Context, req engine.OverrideRequest) (engine.Status, error)
	ClearManualOverride(ctx context.Context) (engine.Status, error)
	UpdateSystemMode(ctx context.Context, mode climate.SystemMode) (engine.Status, error)
	EntityState(ctx context.Context, id string) (engine.EntityState, error)
}

// DecisionStore reads and prunes the decision log.
// *engine.SQLiteDecisionRepository satisfies it.
type DecisionStore interface {
	ListDecisions(ctx context.Context, limit int) ([]climate.EvaluationRecord, error)
	PruneDecisions(ctx context.Context, before time.Time) (int64, error)
}

// BrokerStatus reports MQTT connectivity for /metrics.
type BrokerStatus interface {
	IsConnected() bool
}

// DBStatser reports connection pool statistics for /metrics.
type DBStatser interface {
	Stats() sql.DBStats
}
