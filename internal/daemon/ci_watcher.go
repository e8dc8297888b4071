package daemon

import (
	"time"

	"github.com/overhuman/agentrt/internal/observability"
	"github.com/overhuman/agentrt/internal/rterr"
)

// CiStatus is the status of one CI workflow run. Grounded on
// original_source/autonomous/ci_watcher.rs's CiStatus.
type CiStatus string

const (
	CiPending   CiStatus = "pending"
	CiRunning   CiStatus = "running"
	CiSuccess   CiStatus = "success"
	CiFailed    CiStatus = "failed"
	CiCancelled CiStatus = "cancelled"
	CiUnknown   CiStatus = "unknown"
)

func (s CiStatus) String() string { return string(s) }

// IsTerminal reports whether the run has finished, one way or another.
func (s CiStatus) IsTerminal() bool {
	return s == CiSuccess || s == CiFailed || s == CiCancelled
}

// IsSuccess reports a clean completion.
func (s CiStatus) IsSuccess() bool { return s == CiSuccess }

// CiRun is one observed CI workflow run.
type CiRun struct {
	RunID        string
	WorkflowName string
	Branch       string
	CommitSHA    string
	Status       CiStatus
	URL          string
	StartedAt    *time.Time
	CompletedAt  *time.Time
	DurationSecs *uint64
}

// NewCiRun creates a pending run.
func NewCiRun(runID, workflowName, branch, commitSHA string) CiRun {
	return CiRun{RunID: runID, WorkflowName: workflowName, Branch: branch, CommitSHA: commitSHA, Status: CiPending}
}

func (r CiRun) WithStatus(status CiStatus) CiRun { r.Status = status; return r }
func (r CiRun) WithURL(url string) CiRun         { r.URL = url; return r }

// CiWatcherConfig bounds polling behavior for one watched repository.
type CiWatcherConfig struct {
	PollInterval time.Duration
	Timeout      time.Duration
	Repo         string
}

// DefaultCiWatcherConfig mirrors the Rust Default impl (30s poll, 30m
// timeout).
func DefaultCiWatcherConfig(repo string) CiWatcherConfig {
	return CiWatcherConfig{PollInterval: 30 * time.Second, Timeout: 30 * time.Minute, Repo: repo}
}

// CiStatusFetcher fetches CI status from a provider, abstracted so
// CiWatcher is testable without a real GitHub call.
type CiStatusFetcher interface {
	FetchRunStatus(repo, runID string) (CiRun, error)
	FetchBranchRuns(repo, branch string) ([]CiRun, error)
}

// githubCiFetcher is the production fetcher. Wiring a real `gh api`
// call is left to the caller's environment; this returns an error so
// callers must supply a fetcher in tests and in environments without
// network access, matching the Rust GithubCiFetcher stub.
type githubCiFetcher struct{}

func (githubCiFetcher) FetchRunStatus(repo, runID string) (CiRun, error) {
	return CiRun{}, rterr.Unavailablef("CiWatcher.FetchRunStatus", "real GitHub API not wired — use a CiStatusFetcher for testing")
}

func (githubCiFetcher) FetchBranchRuns(repo, branch string) ([]CiRun, error) {
	return nil, rterr.Unavailablef("CiWatcher.FetchBranchRuns", "real GitHub API not wired — use a CiStatusFetcher for testing")
}

// GithubCiFetcher returns the production (stub) fetcher.
func GithubCiFetcher() CiStatusFetcher { return githubCiFetcher{} }

// CiSummary aggregates watched runs by status.
type CiSummary struct {
	Total    int
	Success  int
	Failed   int
	Running  int
	Pending  int
	AllGreen bool
}

// CiWatcher polls CI status for branches and individual runs, keeping a
// history of everything it has observed. Grounded on
// original_source/autonomous/ci_watcher.rs's CiWatcher.
type CiWatcher struct {
	config      CiWatcherConfig
	fetcher     CiStatusFetcher
	watchedRuns []CiRun
	pollCount   uint64
	logger      *observability.Logger
}

// NewCiWatcher creates a watcher with the production fetcher.
func NewCiWatcher(config CiWatcherConfig, logger *observability.Logger) *CiWatcher {
	return NewCiWatcherWithFetcher(config, GithubCiFetcher(), logger)
}

// NewCiWatcherWithFetcher creates a watcher with an injected fetcher
// (for testing).
func NewCiWatcherWithFetcher(config CiWatcherConfig, fetcher CiStatusFetcher, logger *observability.Logger) *CiWatcher {
	return &CiWatcher{config: config, fetcher: fetcher, logger: logger}
}

func (w *CiWatcher) recordRun(run CiRun) {
	for i, existing := range w.watchedRuns {
		if existing.RunID == run.RunID {
			w.watchedRuns[i] = run
			return
		}
	}
	w.watchedRuns = append(w.watchedRuns, run)
}

// CheckRun fetches and records the status of a specific run.
func (w *CiWatcher) CheckRun(runID string) (CiRun, error) {
	w.pollCount++
	run, err := w.fetcher.FetchRunStatus(w.config.Repo, runID)
	if err != nil {
		return CiRun{}, err
	}
	if w.logger != nil {
		w.logger.Info("checked CI run status", "run_id", run.RunID, "status", run.Status.String())
	}
	w.recordRun(run)
	return run, nil
}

// CheckBranch fetches and records every run for a branch.
func (w *CiWatcher) CheckBranch(branch string) ([]CiRun, error) {
	w.pollCount++
	runs, err := w.fetcher.FetchBranchRuns(w.config.Repo, branch)
	if err != nil {
		return nil, err
	}
	if w.logger != nil {
		w.logger.Info("checked CI runs for branch", "branch", branch, "count", len(runs))
	}
	for _, run := range runs {
		w.recordRun(run)
	}
	return runs, nil
}

// PollUntilComplete checks a run once and returns immediately — callers
// drive their own poll loop with PollInterval between calls.
func (w *CiWatcher) PollUntilComplete(runID string) (CiRun, error) {
	run, err := w.CheckRun(runID)
	if err != nil {
		return CiRun{}, err
	}
	if run.Status.IsTerminal() {
		return run, nil
	}
	if w.logger != nil {
		w.logger.Warn("run not yet complete, would poll again",
			"run_id", runID, "status", run.Status.String(), "poll_interval", w.config.PollInterval.String())
	}
	return run, nil
}

// IsBranchGreen reports whether every run for branch succeeded. An
// empty result set is never green.
func (w *CiWatcher) IsBranchGreen(branch string) (bool, error) {
	runs, err := w.CheckBranch(branch)
	if err != nil {
		return false, err
	}
	if len(runs) == 0 {
		return false, nil
	}
	for _, r := range runs {
		if r.Status != CiSuccess {
			return false, nil
		}
	}
	return true, nil
}

// PollInterval returns the configured poll interval.
func (w *CiWatcher) PollInterval() time.Duration { return w.config.PollInterval }

// Timeout returns the configured timeout.
func (w *CiWatcher) Timeout() time.Duration { return w.config.Timeout }

// WatchedRuns returns every run observed so far.
func (w *CiWatcher) WatchedRuns() []CiRun { return w.watchedRuns }

// PollCount returns how many fetch operations have been performed.
func (w *CiWatcher) PollCount() uint64 { return w.pollCount }

// Config returns the watcher's configuration.
func (w *CiWatcher) Config() CiWatcherConfig { return w.config }

// Summary aggregates every watched run by status.
func (w *CiWatcher) Summary() CiSummary {
	s := CiSummary{Total: len(w.watchedRuns)}
	for _, r := range w.watchedRuns {
		switch r.Status {
		case CiSuccess:
			s.Success++
		case CiFailed:
			s.Failed++
		case CiRunning:
			s.Running++
		case CiPending:
			s.Pending++
		}
	}
	s.AllGreen = s.Total > 0 && s.Success == s.Total
	return s
}
