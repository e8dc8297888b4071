package observability

import "testing"

func TestCoreMetrics_RecordExecution(t *testing.T) {
	var m CoreMetrics
	m.RecordExecution(true, 4, 0.02, 1200)
	m.RecordExecution(false, 2, 0.01, 400)

	snap := m.Snapshot()
	if snap.TotalExecutions != 2 {
		t.Errorf("TotalExecutions = %d, want 2", snap.TotalExecutions)
	}
	if snap.Successful != 1 || snap.Failed != 1 {
		t.Errorf("Successful=%d Failed=%d, want 1/1", snap.Successful, snap.Failed)
	}
	if snap.SuccessRate != 0.5 {
		t.Errorf("SuccessRate = %f, want 0.5", snap.SuccessRate)
	}
	wantAvgTurns := 3.0
	if snap.AvgTurns != wantAvgTurns {
		t.Errorf("AvgTurns = %f, want %f", snap.AvgTurns, wantAvgTurns)
	}
	wantTotalCost := 0.03
	if snap.TotalCostUSD != wantTotalCost {
		t.Errorf("TotalCostUSD = %f, want %f", snap.TotalCostUSD, wantTotalCost)
	}
}

func TestCoreMetrics_Reset(t *testing.T) {
	var m CoreMetrics
	m.RecordExecution(true, 1, 0.0, 10)
	m.Reset()
	snap := m.Snapshot()
	if snap.TotalExecutions != 0 {
		t.Errorf("TotalExecutions = %d, want 0 after reset", snap.TotalExecutions)
	}
}
