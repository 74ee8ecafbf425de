package observability

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics counts requests per operation. Cheap enough to sit in the hot
// path of every handler.
type Metrics struct {
	requestTotal  atomic.Int64
	requestFailed atomic.Int64

	mu         sync.Mutex
	operations map[string]*OperationMetrics
}

// OperationMetrics accumulates counters for one operation.
type OperationMetrics struct {
	count         atomic.Int64
	errorCount    atomic.Int64
	totalDuration atomic.Int64 // milliseconds
}

func NewMetrics() *Metrics {
	return &Metrics{operations: make(map[string]*OperationMetrics)}
}

// Record counts one completed request for the operation.
func (m *Metrics) Record(operation string, duration time.Duration, failed bool) {
	m.requestTotal.Add(1)
	om := m.operation(operation)
	om.count.Add(1)
	om.totalDuration.Add(duration.Milliseconds())
	if failed {
		m.requestFailed.Add(1)
		om.errorCount.Add(1)
	}
}

func (m *Metrics) operation(name string) *OperationMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	om, ok := m.operations[name]
	if !ok {
		om = &OperationMetrics{}
		m.operations[name] = om
	}
	return om
}

// Snapshot returns a point-in-time copy of all counters.
func (m *Metrics) Snapshot() *Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	ops := make(map[string]OperationSnapshot, len(m.operations))
	for name, om := range m.operations {
		count := om.count.Load()
		snap := OperationSnapshot{
			Count:      count,
			ErrorCount: om.errorCount.Load(),
		}
		if count > 0 {
			snap.AverageDurationMs = om.totalDuration.Load() / count
		}
		ops[name] = snap
	}
	return &Snapshot{
		RequestTotal:  m.requestTotal.Load(),
		RequestFailed: m.requestFailed.Load(),
		Operations:    ops,
	}
}

// Snapshot is a point-in-time view of the collected metrics.
type Snapshot struct {
	RequestTotal  int64                        `json:"request_total"`
	RequestFailed int64                        `json:"request_failed"`
	Operations    map[string]OperationSnapshot `json:"operations"`
}

// OperationSnapshot is the per-operation view within a Snapshot.
type OperationSnapshot struct {
	Count             int64 `json:"count"`
	ErrorCount        int64 `json:"error_count"`
	AverageDurationMs int64 `json:"average_duration_ms"`
}

// SuccessRate returns the success rate as a percentage.
func (s *Snapshot) SuccessRate() float64 {
	if s.RequestTotal == 0 {
		return 100.0
	}
	return float64(s.RequestTotal-s.RequestFailed) / float64(s.RequestTotal) * 100.0
}
