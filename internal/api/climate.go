package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-climate/internal/climate"
	"github.com/nerrad567/gray-logic-climate/internal/engine"
)

// overrideRequest is the body of POST /climate/override.
type overrideRequest struct {
	Mode       string   `json:"mode"`
	TargetTemp *float64 `json:"target_temp,omitempty"`
	// DurationMinutes of 0 or absent selects the configured default.
	DurationMinutes int `json:"duration_minutes,omitempty"`
}

type systemModeRequest struct {
	Mode string `json:"mode"`
}

type readingRequest struct {
	SensorID string   `json:"sensor_id"`
	Value    *float64 `json:"value"`
}

// handleGetStatus returns the engine's last committed snapshot.
func (s *Server) handleGetStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.climate.GetStatus())
}

// handleListDecisions returns recent mode changes, newest first.
//
// With no decision store the in-memory history is served instead.
func (s *Server) handleListDecisions(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}

	if s.decisions == nil {
		history := s.climate.GetStatus().History
		records := make([]climate.EvaluationRecord, 0, len(history))
		for i := len(history) - 1; i >= 0; i-- {
			records = append(records, history[i])
		}
		if limit > 0 && len(records) > limit {
			records = records[:limit]
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"decisions": records,
			"count":     len(records),
			"source":    "memory",
		})
		return
	}

	records, err := s.decisions.ListDecisions(r.Context(), limit)
	if err != nil {
		s.logger.Error("listing decisions failed", "error", err)
		writeInternalError(w, "failed to list decisions")
		return
	}
	if records == nil {
		records = []climate.EvaluationRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"decisions": records,
		"count":     len(records),
		"source":    "database",
	})
}

// handlePruneDecisions deletes decision log rows recorded before ?before=.
func (s *Server) handlePruneDecisions(w http.ResponseWriter, r *http.Request) {
	if s.decisions == nil {
		writeNotFound(w, "decision log is not configured")
		return
	}
	raw := r.URL.Query().Get("before")
	if raw == "" {
		writeBadRequest(w, "before is required (RFC 3339)")
		return
	}
	before, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		writeBadRequest(w, "before must be an RFC 3339 timestamp")
		return
	}

	n, err := s.decisions.PruneDecisions(r.Context(), before)
	if err != nil {
		s.logger.Error("pruning decisions failed", "error", err)
		writeInternalError(w, "failed to prune decisions")
		return
	}
	s.logger.Info("decision log pruned", "before", before, "deleted", n)
	writeJSON(w, http.StatusOK, map[string]any{"deleted": n})
}

// handleGetEntityState returns one climate entity's last reported state.
func (s *Server) handleGetEntityState(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	st, err := s.climate.EntityState(r.Context(), id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// handleSetOverride pins the mode until cleared or expired.
func (s *Server) handleSetOverride(w http.ResponseWriter, r *http.Request) {
	var req overrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.DurationMinutes < 0 {
		writeBadRequest(w, "duration_minutes must not be negative")
		return
	}

	setBy := ""
	if claims := claimsFromContext(r.Context()); claims != nil {
		setBy = claims.Subject
	}

	st, err := s.climate.ManualOverride(r.Context(), engine.OverrideRequest{
		Mode:       climate.Mode(req.Mode),
		TargetTemp: req.TargetTemp,
		SetBy:      setBy,
		Duration:   time.Duration(req.DurationMinutes) * time.Minute,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// handleClearOverride returns the engine to automatic control.
func (s *Server) handleClearOverride(w http.ResponseWriter, r *http.Request) {
	st, err := s.climate.ClearManualOverride(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// handleSetSystemMode changes the operator envelope.
func (s *Server) handleSetSystemMode(w http.ResponseWriter, r *http.Request) {
	var req systemModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	st, err := s.climate.UpdateSystemMode(r.Context(), climate.SystemMode(req.Mode))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// handleReading feeds one reading, for sensors without a bridge.
func (s *Server) handleReading(w http.ResponseWriter, r *http.Request) {
	var req readingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.SensorID == "" || req.Value == nil {
		writeBadRequest(w, "sensor_id and value are required")
		return
	}
	st, err := s.climate.HandleTemperatureChange(r.Context(), req.SensorID, *req.Value)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
