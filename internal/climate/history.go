package climate

import "time"

// EvaluationRecord is the provenance entry written for each mode change.
type EvaluationRecord struct {
	ID              string      `json:"id"`
	Timestamp       time.Time   `json:"timestamp"`
	Strategy        string      `json:"strategy"`
	Trigger         TriggerKind `json:"trigger"`
	Decision        Mode        `json:"decision"`
	PreviousMode    Mode        `json:"previous_mode"`
	State           State       `json:"state"`
	Reasoning       string      `json:"reasoning"`
	TargetTemp      *float64    `json:"target_temp,omitempty"`
	Preset          Preset      `json:"preset,omitempty"`
	Conditions      Conditions  `json:"conditions"`
	ExecutionTimeMS float64     `json:"execution_time_ms"`
}

// History is a bounded, oldest-first window of evaluation records.
type History struct {
	capacity int
	records  []EvaluationRecord
}

// NewHistory creates an empty window holding at most capacity records.
func NewHistory(capacity int) History {
	if capacity < 1 {
		capacity = 1
	}
	return History{capacity: capacity, records: make([]EvaluationRecord, 0, capacity)}
}

// Append adds r as the newest record, evicting the oldest when full.
func (h *History) Append(r EvaluationRecord) {
	if h.capacity < 1 {
		h.capacity = 1
	}
	if len(h.records) > 0 && len(h.records) >= h.capacity {
		copy(h.records, h.records[1:])
		h.records = h.records[:len(h.records)-1]
	}
	h.records = append(h.records, r)
}

// Records returns a copy of the window, oldest first.
func (h History) Records() []EvaluationRecord {
	out := make([]EvaluationRecord, len(h.records))
	copy(out, h.records)
	return out
}

// Len returns the number of records held.
func (h History) Len() int {
	return len(h.records)
}

// Capacity returns the maximum number of records.
func (h History) Capacity() int {
	return h.capacity
}

// Last returns the newest record.
func (h History) Last() (EvaluationRecord, bool) {
	if len(h.records) == 0 {
		return EvaluationRecord{}, false
	}
	return h.records[len(h.records)-1], true
}

func (h History) clone() History {
	c := History{capacity: h.capacity, records: make([]EvaluationRecord, len(h.records), h.capacity)}
	copy(c.records, h.records)
	return c
}
