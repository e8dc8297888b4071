package daemon

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/overhuman/agentrt/internal/observability"
)

// AutonomousDaemon coordinates every autonomous-operations component
// behind a single interface: schedule tasks, run them under
// circuit-breaker protection, and record every attempt to the audit
// log. Grounded on original_source/autonomous/mod.rs's AutonomousDaemon.
type AutonomousDaemon struct {
	mu             sync.Mutex
	scheduler      *TaskScheduler
	branchManager  *BranchManager
	releaseManager *ReleaseManager
	docsGenerator  *DocsGenerator
	ciWatcher      *CiWatcher
	failsafe       *Failsafe
	auditLog       *AuditLog

	running   atomic.Bool
	startedAt time.Time
	logger    *observability.Logger
}

// NewAutonomousDaemon wires every component together against a
// persistent SQLite audit log at auditDBPath.
func NewAutonomousDaemon(repoPath, docsOutputDir, auditDBPath, projectName, currentVersion string, logger *observability.Logger) (*AutonomousDaemon, error) {
	auditLog, err := OpenAuditLog(auditDBPath)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	version, err := ParseSemVer(currentVersion)
	if err != nil {
		auditLog.Close()
		return nil, fmt.Errorf("parse current version: %w", err)
	}
	return newAutonomousDaemon(repoPath, docsOutputDir, auditLog, projectName, version, logger), nil
}

// NewInMemoryAutonomousDaemon wires every component against an
// in-memory audit log, for tests.
func NewInMemoryAutonomousDaemon(repoPath string, logger *observability.Logger) (*AutonomousDaemon, error) {
	auditLog, err := OpenAuditLog(":memory:")
	if err != nil {
		return nil, fmt.Errorf("open in-memory audit log: %w", err)
	}
	return newAutonomousDaemon(repoPath, repoPath, auditLog, "Test", NewSemVer(0, 1, 0), logger), nil
}

func newAutonomousDaemon(repoPath, docsOutputDir string, auditLog *AuditLog, projectName string, version SemVer, logger *observability.Logger) *AutonomousDaemon {
	fs := NewFailsafeWithDefaults(logger)
	fs.RegisterDefault("branch_manager")
	fs.RegisterDefault("release_manager")
	fs.RegisterDefault("ci_watcher")
	fs.RegisterDefault("docs_generator")

	return &AutonomousDaemon{
		scheduler:      NewTaskScheduler(),
		branchManager:  NewBranchManager(repoPath, logger),
		releaseManager: NewReleaseManager(version, logger),
		docsGenerator:  NewDocsGenerator(projectName, docsOutputDir, logger),
		ciWatcher:      NewCiWatcher(DefaultCiWatcherConfig(""), logger),
		failsafe:       fs,
		auditLog:       auditLog,
		logger:         logger,
	}
}

// Start marks the daemon running and records the start time for uptime
// tracking.
func (d *AutonomousDaemon) Start() {
	d.running.Store(true)
	d.mu.Lock()
	d.startedAt = time.Now()
	d.mu.Unlock()
	if d.logger != nil {
		d.logger.Info("autonomous daemon started")
	}
}

// Stop marks the daemon stopped.
func (d *AutonomousDaemon) Stop() {
	d.running.Store(false)
	d.mu.Lock()
	d.startedAt = time.Time{}
	d.mu.Unlock()
	if d.logger != nil {
		d.logger.Info("autonomous daemon stopped")
	}
}

// IsRunning reports whether the daemon is currently started.
func (d *AutonomousDaemon) IsRunning() bool { return d.running.Load() }

// UptimeSeconds returns seconds since Start, or 0 if not running.
func (d *AutonomousDaemon) UptimeSeconds() uint64 {
	if !d.IsRunning() {
		return 0
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.startedAt.IsZero() {
		return 0
	}
	return uint64(time.Since(d.startedAt).Seconds())
}

// CurrentTaskDescription returns the description of the next due task,
// without claiming it.
func (d *AutonomousDaemon) CurrentTaskDescription() (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	task := d.scheduler.PeekNext()
	if task == nil {
		return "", false
	}
	return task.Description, true
}

// ScheduleTask registers task and returns its ID.
func (d *AutonomousDaemon) ScheduleTask(task ScheduledTask) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.scheduler.AddTask(task)
}

// ScheduleOnce registers a one-time task and returns its ID.
func (d *AutonomousDaemon) ScheduleOnce(description string, priority uint8, at time.Time, action ActionType) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.scheduler.ScheduleOnce(description, priority, at, action)
}

// PendingTaskCount returns how many tasks are currently pending.
func (d *AutonomousDaemon) PendingTaskCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.scheduler.PendingCount()
}

// componentFor maps an action kind to the failsafe breaker guarding it.
func componentFor(kind ActionKind) string {
	switch kind {
	case ActionCreateBranch, ActionCreatePR:
		return "branch_manager"
	case ActionCreateRelease:
		return "release_manager"
	case ActionRunCiCheck:
		return "ci_watcher"
	case ActionGenerateDocs:
		return "docs_generator"
	default:
		return "branch_manager"
	}
}

// ProcessNextTask claims the next due task, gated by its component's
// circuit breaker. When the breaker allows it, the task is recorded as
// executed in the audit log, counted as a success on the breaker, and
// marked complete; its Action is not dispatched to the branch, release,
// CI or docs component. Returns the task's description if one was
// processed, "" if none were due or the breaker blocked it.
func (d *AutonomousDaemon) ProcessNextTask() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	task := d.scheduler.NextDue()
	if task == nil {
		return "", nil
	}

	component := componentFor(task.Action.Kind)
	allowed, err := d.failsafe.AllowRequest(component)
	if err != nil {
		if d.logger != nil {
			d.logger.Error("failsafe error", "error", err)
		}
		d.scheduler.FailTask(task, err.Error())
		return "", err
	}

	if !allowed {
		if d.logger != nil {
			d.logger.Warn("task blocked by circuit breaker", "task", task.Description, "component", component)
		}
		if _, recErr := d.auditLog.RecordFailure("task_blocked", task.Description, "daemon", "circuit breaker open"); recErr != nil {
			return "", recErr
		}
		d.scheduler.FailTask(task, "circuit breaker open")
		return "", nil
	}

	if d.logger != nil {
		d.logger.Info("processing autonomous task", "task", task.Description, "action", task.Action.String())
	}
	if _, err := d.auditLog.RecordSuccess("task_executed", task.Description, "daemon"); err != nil {
		return "", err
	}
	if err := d.failsafe.RecordSuccess(component); err != nil {
		return "", err
	}
	d.scheduler.CompleteTask(task)
	return task.Description, nil
}

// AuditLog returns the daemon's audit log.
func (d *AutonomousDaemon) AuditLog() *AuditLog { return d.auditLog }

// BranchManager returns the daemon's git branch manager.
func (d *AutonomousDaemon) BranchManager() *BranchManager { return d.branchManager }

// ReleaseManager returns the daemon's release manager.
func (d *AutonomousDaemon) ReleaseManager() *ReleaseManager { return d.releaseManager }

// DocsGenerator returns the daemon's documentation generator.
func (d *AutonomousDaemon) DocsGenerator() *DocsGenerator { return d.docsGenerator }

// CiWatcher returns the daemon's CI watcher.
func (d *AutonomousDaemon) CiWatcher() *CiWatcher { return d.ciWatcher }

// IsShutdown reports whether the failsafe's global shutdown is active.
func (d *AutonomousDaemon) IsShutdown() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.failsafe.IsShutdown()
}

// FailsafeStatus returns every registered breaker's status.
func (d *AutonomousDaemon) FailsafeStatus() []BreakerStatus {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.failsafe.Status()
}

// Close releases the daemon's audit log handle.
func (d *AutonomousDaemon) Close() error { return d.auditLog.Close() }
