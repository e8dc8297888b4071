package daemon

import "testing"

// mockCiFetcher returns predefined runs, mirroring
// original_source/autonomous/ci_watcher.rs's test MockCiFetcher.
type mockCiFetcher struct {
	runs []CiRun
}

func (m *mockCiFetcher) FetchRunStatus(repo, runID string) (CiRun, error) {
	for _, r := range m.runs {
		if r.RunID == runID {
			return r, nil
		}
	}
	return CiRun{}, errNotFound(runID)
}

func (m *mockCiFetcher) FetchBranchRuns(repo, branch string) ([]CiRun, error) {
	var out []CiRun
	for _, r := range m.runs {
		if r.Branch == branch {
			out = append(out, r)
		}
	}
	return out, nil
}

func errNotFound(runID string) error {
	return &runNotFoundError{runID: runID}
}

type runNotFoundError struct{ runID string }

func (e *runNotFoundError) Error() string { return "run not found: " + e.runID }

func makeWatcher(runs []CiRun) *CiWatcher {
	config := CiWatcherConfig{PollInterval: 5e9, Timeout: 60e9, Repo: "test/repo"}
	return NewCiWatcherWithFetcher(config, &mockCiFetcher{runs: runs}, nil)
}

func TestCiStatus_IsTerminal(t *testing.T) {
	if !CiSuccess.IsTerminal() || !CiFailed.IsTerminal() || !CiCancelled.IsTerminal() {
		t.Error("expected terminal statuses to report terminal")
	}
	if CiPending.IsTerminal() || CiRunning.IsTerminal() || CiUnknown.IsTerminal() {
		t.Error("expected non-terminal statuses to report non-terminal")
	}
}

func TestCheckRun(t *testing.T) {
	runs := []CiRun{NewCiRun("run-1", "CI", "main", "abc123").WithStatus(CiSuccess)}
	w := makeWatcher(runs)

	run, err := w.CheckRun("run-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run.Status != CiSuccess {
		t.Errorf("status = %v", run.Status)
	}
	if w.PollCount() != 1 {
		t.Errorf("poll count = %d", w.PollCount())
	}
	if len(w.WatchedRuns()) != 1 {
		t.Errorf("watched runs = %d", len(w.WatchedRuns()))
	}
}

func TestCheckRun_NotFound(t *testing.T) {
	w := makeWatcher(nil)
	if _, err := w.CheckRun("nonexistent"); err == nil {
		t.Error("expected error")
	}
}

func TestCheckBranch(t *testing.T) {
	runs := []CiRun{
		NewCiRun("run-1", "CI", "main", "abc123").WithStatus(CiSuccess),
		NewCiRun("run-2", "Lint", "main", "abc123").WithStatus(CiSuccess),
		NewCiRun("run-3", "CI", "feat/test", "def456").WithStatus(CiFailed),
	}
	w := makeWatcher(runs)

	mainRuns, err := w.CheckBranch("main")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mainRuns) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(mainRuns))
	}
}

func TestIsBranchGreen(t *testing.T) {
	runs := []CiRun{
		NewCiRun("run-1", "CI", "main", "abc").WithStatus(CiSuccess),
		NewCiRun("run-2", "Lint", "main", "abc").WithStatus(CiSuccess),
	}
	w := makeWatcher(runs)

	green, err := w.IsBranchGreen("main")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !green {
		t.Error("expected branch green")
	}
}

func TestIsBranchGreen_FailureMakesItRed(t *testing.T) {
	runs := []CiRun{
		NewCiRun("run-1", "CI", "main", "abc").WithStatus(CiSuccess),
		NewCiRun("run-2", "Lint", "main", "abc").WithStatus(CiFailed),
	}
	w := makeWatcher(runs)

	green, err := w.IsBranchGreen("main")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if green {
		t.Error("expected branch not green")
	}
}

func TestIsBranchGreen_Empty(t *testing.T) {
	w := makeWatcher(nil)
	green, err := w.IsBranchGreen("empty-branch")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if green {
		t.Error("expected empty branch not green")
	}
}

func TestCiWatcher_Summary(t *testing.T) {
	runs := []CiRun{
		NewCiRun("r1", "CI", "main", "a").WithStatus(CiSuccess),
		NewCiRun("r2", "Lint", "main", "a").WithStatus(CiFailed),
		NewCiRun("r3", "Test", "main", "a").WithStatus(CiRunning),
	}
	w := makeWatcher(runs)
	if _, err := w.CheckBranch("main"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	summary := w.Summary()
	if summary.Total != 3 || summary.Success != 1 || summary.Failed != 1 || summary.Running != 1 {
		t.Errorf("summary = %+v", summary)
	}
	if summary.AllGreen {
		t.Error("expected not all green")
	}
}

func TestPollUntilComplete(t *testing.T) {
	terminal := makeWatcher([]CiRun{NewCiRun("run-1", "CI", "main", "abc").WithStatus(CiSuccess)})
	run, err := terminal.PollUntilComplete("run-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run.Status != CiSuccess {
		t.Errorf("status = %v", run.Status)
	}

	notTerminal := makeWatcher([]CiRun{NewCiRun("run-1", "CI", "main", "abc").WithStatus(CiRunning)})
	run, err = notTerminal.PollUntilComplete("run-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run.Status != CiRunning {
		t.Errorf("status = %v, want still running", run.Status)
	}
}

func TestCiRun_Builder(t *testing.T) {
	run := NewCiRun("r1", "CI", "main", "abc123").
		WithStatus(CiSuccess).
		WithURL("https://github.com/test/runs/1")

	if run.RunID != "r1" || run.Status != CiSuccess || run.URL != "https://github.com/test/runs/1" {
		t.Errorf("got %+v", run)
	}
}
