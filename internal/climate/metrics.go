package climate

import (
	"sort"
	"time"
)

// OperationEvaluation is the latency bucket every pass is recorded under.
const OperationEvaluation = "evaluation"

// PerformanceSample is one latency measurement.
type PerformanceSample struct {
	Operation  string    `json:"operation"`
	DurationMS float64   `json:"duration_ms"`
	Timestamp  time.Time `json:"timestamp"`
}

// PerformanceMetrics keeps a bounded latency window per operation and a
// monotonically increasing transition counter.
type PerformanceMetrics struct {
	capacity    int
	samples     map[string][]PerformanceSample
	transitions int
}

// NewPerformanceMetrics keeps at most capacity samples per operation.
func NewPerformanceMetrics(capacity int) PerformanceMetrics {
	if capacity < 1 {
		capacity = 1
	}
	return PerformanceMetrics{capacity: capacity, samples: make(map[string][]PerformanceSample)}
}

// Record adds a sample for operation, evicting that operation's oldest
// sample when its window is full.
func (m *PerformanceMetrics) Record(operation string, elapsed time.Duration, at time.Time) {
	if m.capacity < 1 {
		m.capacity = 1
	}
	if m.samples == nil {
		m.samples = make(map[string][]PerformanceSample)
	}
	window := m.samples[operation]
	if len(window) >= m.capacity {
		window = append(window[:0:0], window[1:]...)
	}
	m.samples[operation] = append(window, PerformanceSample{
		Operation:  operation,
		DurationMS: float64(elapsed) / float64(time.Millisecond),
		Timestamp:  at,
	})
}

// CountTransition increments the transition counter.
func (m *PerformanceMetrics) CountTransition() {
	m.transitions++
}

// TotalTransitions returns the number of mode changes since start.
func (m PerformanceMetrics) TotalTransitions() int {
	return m.transitions
}

// Samples returns a copy of the window for one operation, oldest first.
func (m PerformanceMetrics) Samples(operation string) []PerformanceSample {
	out := make([]PerformanceSample, len(m.samples[operation]))
	copy(out, m.samples[operation])
	return out
}

// Average returns the mean latency in ms for one operation.
func (m PerformanceMetrics) Average(operation string) (float64, bool) {
	window := m.samples[operation]
	if len(window) == 0 {
		return 0, false
	}
	var sum float64
	for _, s := range window {
		sum += s.DurationMS
	}
	return sum / float64(len(window)), true
}

// RollingAverage returns the mean latency in ms across every retained sample.
func (m PerformanceMetrics) RollingAverage() float64 {
	var sum float64
	var n int
	for _, window := range m.samples {
		for _, s := range window {
			sum += s.DurationMS
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// OperationStats summarises one operation's window.
type OperationStats struct {
	Count     int     `json:"count"`
	AverageMS float64 `json:"average_ms"`
	LastMS    float64 `json:"last_ms"`
	MaxMS     float64 `json:"max_ms"`
}

// MetricsSnapshot is the read-only metrics view exposed in status.
type MetricsSnapshot struct {
	Operations       map[string]OperationStats `json:"operations"`
	RollingAverageMS float64                   `json:"rolling_average_ms"`
	TotalTransitions int                       `json:"total_transitions"`
}

// Snapshot summarises the current windows.
func (m PerformanceMetrics) Snapshot() MetricsSnapshot {
	ops := make([]string, 0, len(m.samples))
	for op := range m.samples {
		ops = append(ops, op)
	}
	sort.Strings(ops)

	snap := MetricsSnapshot{
		Operations:       make(map[string]OperationStats, len(ops)),
		RollingAverageMS: m.RollingAverage(),
		TotalTransitions: m.transitions,
	}
	for _, op := range ops {
		window := m.samples[op]
		if len(window) == 0 {
			continue
		}
		avg, _ := m.Average(op)
		stats := OperationStats{Count: len(window), AverageMS: avg, LastMS: window[len(window)-1].DurationMS}
		for _, s := range window {
			if s.DurationMS > stats.MaxMS {
				stats.MaxMS = s.DurationMS
			}
		}
		snap.Operations[op] = stats
	}
	return snap
}

func (m PerformanceMetrics) clone() PerformanceMetrics {
	c := PerformanceMetrics{
		capacity:    m.capacity,
		samples:     make(map[string][]PerformanceSample, len(m.samples)),
		transitions: m.transitions,
	}
	for op, window := range m.samples {
		c.samples[op] = append([]PerformanceSample(nil), window...)
	}
	return c
}
