package engine

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-climate/internal/climate"
)

// Decision listing limits.
const (
	defaultDecisionLimit = 20
	maxDecisionLimit     = 500
)

// timeLayout is fixed-width so recorded_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000Z"

// SQLiteDecisionRepository stores evaluation records in the decision_log table.
type SQLiteDecisionRepository struct {
	db *sql.DB
}

// NewSQLiteDecisionRepository creates a repository over a migrated database.
func NewSQLiteDecisionRepository(db *sql.DB) *SQLiteDecisionRepository {
	return &SQLiteDecisionRepository{db: db}
}

// RecordDecision inserts one record.
func (r *SQLiteDecisionRepository) RecordDecision(ctx context.Context, rec climate.EvaluationRecord) error {
	conditions, err := json.Marshal(rec.Conditions)
	if err != nil {
		return fmt.Errorf("marshalling conditions: %w", err)
	}

	query := `
		INSERT INTO decision_log (
			id, recorded_at, strategy, trigger_kind, decision, previous_mode,
			state, reasoning, target_temp, preset, conditions, execution_time_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		rec.ID,
		rec.Timestamp.UTC().Format(timeLayout),
		rec.Strategy,
		string(rec.Trigger),
		string(rec.Decision),
		string(rec.PreviousMode),
		string(rec.State),
		rec.Reasoning,
		nullableFloat(rec.TargetTemp),
		string(rec.Preset),
		string(conditions),
		rec.ExecutionTimeMS,
	)
	if err != nil {
		return fmt.Errorf("inserting decision: %w", err)
	}
	return nil
}

// ListDecisions returns the most recent records, newest first.
// limit is clamped to [1, 500]; zero or negative selects 20.
func (r *SQLiteDecisionRepository) ListDecisions(ctx context.Context, limit int) ([]climate.EvaluationRecord, error) {
	if limit <= 0 {
		limit = defaultDecisionLimit
	}
	if limit > maxDecisionLimit {
		limit = maxDecisionLimit
	}

	query := `
		SELECT id, recorded_at, strategy, trigger_kind, decision, previous_mode,
			state, reasoning, target_temp, preset, conditions, execution_time_ms
		FROM decision_log
		ORDER BY recorded_at DESC, id
		LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying decisions: %w", err)
	}
	defer rows.Close()

	var records []climate.EvaluationRecord
	for rows.Next() {
		rec, scanErr := scanDecision(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scanning decision: %w", scanErr)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating decisions: %w", err)
	}
	return records, nil
}

// PruneDecisions deletes records older than before and reports how many went.
func (r *SQLiteDecisionRepository) PruneDecisions(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM decision_log WHERE recorded_at < ?`,
		before.UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("pruning decisions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting pruned decisions: %w", err)
	}
	return n, nil
}

func scanDecision(rows *sql.Rows) (climate.EvaluationRecord, error) {
	var (
		rec                                        climate.EvaluationRecord
		recordedAt, trigger, decision, prev, state string
		preset, conditions                         string
		target                                     sql.NullFloat64
	)
	err := rows.Scan(
		&rec.ID, &recordedAt, &rec.Strategy, &trigger, &decision, &prev,
		&state, &rec.Reasoning, &target, &preset, &conditions, &rec.ExecutionTimeMS,
	)
	if err != nil {
		return rec, err
	}

	rec.Timestamp, err = time.Parse(timeLayout, recordedAt)
	if err != nil {
		return rec, fmt.Errorf("parsing recorded_at: %w", err)
	}
	if err := json.Unmarshal([]byte(conditions), &rec.Conditions); err != nil {
		return rec, fmt.Errorf("parsing conditions: %w", err)
	}
	rec.Trigger = climate.TriggerKind(trigger)
	rec.Decision = climate.Mode(decision)
	rec.PreviousMode = climate.Mode(prev)
	rec.State = climate.State(state)
	rec.Preset = climate.Preset(preset)
	if target.Valid {
		v := target.Float64
		rec.TargetTemp = &v
	}
	return rec, nil
}

func nullableFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
