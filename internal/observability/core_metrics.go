package observability

import "sync"

// CoreMetrics tracks running-average execution statistics for a single
// execution core, the same incremental-average technique as
// instruments.Skill.RecordRun.
type CoreMetrics struct {
	mu sync.RWMutex

	TotalExecutions int64
	Successful      int64
	Failed          int64
	AvgTurns        float64
	AvgCostUSD      float64
	AvgTimeMs       float64
	TotalCostUSD    float64
}

// RecordExecution folds one execution's outcome into the running averages.
func (m *CoreMetrics) RecordExecution(success bool, turns int, costUSD float64, elapsedMs float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := float64(m.TotalExecutions)
	m.TotalExecutions++
	newN := float64(m.TotalExecutions)

	if success {
		m.Successful++
	} else {
		m.Failed++
	}

	m.AvgTurns = (m.AvgTurns*n + float64(turns)) / newN
	m.AvgCostUSD = (m.AvgCostUSD*n + costUSD) / newN
	m.AvgTimeMs = (m.AvgTimeMs*n + elapsedMs) / newN
	m.TotalCostUSD += costUSD
}

// CoreMetricsSnapshot is an immutable copy safe to hand out across goroutines.
type CoreMetricsSnapshot struct {
	TotalExecutions int64
	Successful      int64
	Failed          int64
	AvgTurns        float64
	AvgCostUSD      float64
	AvgTimeMs       float64
	TotalCostUSD    float64
	SuccessRate     float64
}

// Snapshot returns a read-only copy of the current metrics.
func (m *CoreMetrics) Snapshot() CoreMetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var successRate float64
	if m.TotalExecutions > 0 {
		successRate = float64(m.Successful) / float64(m.TotalExecutions)
	}

	return CoreMetricsSnapshot{
		TotalExecutions: m.TotalExecutions,
		Successful:      m.Successful,
		Failed:          m.Failed,
		AvgTurns:        m.AvgTurns,
		AvgCostUSD:      m.AvgCostUSD,
		AvgTimeMs:       m.AvgTimeMs,
		TotalCostUSD:    m.TotalCostUSD,
		SuccessRate:     successRate,
	}
}

// Reset zeroes every counter and average, used by test setup.
func (m *CoreMetrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	*m = CoreMetrics{}
}
