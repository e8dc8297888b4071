package daemon

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// TaskStatus tracks a scheduled task's lifecycle. No scheduler.rs
// survived the retrieval pack; this package is reconstructed from its
// call sites in original_source/autonomous/mod.rs
// (with_defaults/add_task/schedule_once/pending_count/next_due/
// complete_task/fail_task/peek_next) plus internal/goals/engine.go's
// priority-enum scheduling idiom for the Go rendition.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
)

// scheduleKind is the closed set of ways a task can recur.
type scheduleKind string

const (
	scheduleOnce     scheduleKind = "once"
	scheduleCron     scheduleKind = "cron"
	scheduleInterval scheduleKind = "interval"
)

// Schedule is a task's recurrence rule: a one-time run, a cron
// expression, or a fixed interval.
type Schedule struct {
	kind     scheduleKind
	at       time.Time
	cronExpr string
	interval time.Duration
}

// ScheduleOnce runs exactly once at t.
func ScheduleOnce(t time.Time) Schedule { return Schedule{kind: scheduleOnce, at: t} }

// ScheduleCron runs on a standard 5-field cron expression, evaluated
// via github.com/robfig/cron/v3.
func ScheduleCron(expr string) Schedule { return Schedule{kind: scheduleCron, cronExpr: expr} }

// ScheduleEvery runs repeatedly on a fixed interval.
func ScheduleEvery(d time.Duration) Schedule { return Schedule{kind: scheduleInterval, interval: d} }

// next computes the schedule's next run time strictly after `after`.
func (s Schedule) next(after time.Time) (time.Time, error) {
	switch s.kind {
	case scheduleOnce:
		return s.at, nil
	case scheduleInterval:
		return after.Add(s.interval), nil
	default: // scheduleCron
		parsed, err := cron.ParseStandard(s.cronExpr)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse cron expression %q: %w", s.cronExpr, err)
		}
		return parsed.Next(after), nil
	}
}

func (s Schedule) isRecurring() bool { return s.kind != scheduleOnce }

// ActionKind is the closed set of autonomous operations a scheduled
// task can drive.
type ActionKind string

const (
	ActionCreateBranch  ActionKind = "create_branch"
	ActionCreatePR      ActionKind = "create_pr"
	ActionCreateRelease ActionKind = "create_release"
	ActionRunCiCheck    ActionKind = "run_ci_check"
	ActionGenerateDocs  ActionKind = "generate_docs"
	ActionRunCommand    ActionKind = "run_command"
)

// ActionType is the tagged payload of one scheduled action. Only the
// fields relevant to Kind are populated, mirroring the Rust enum's
// per-variant payloads.
type ActionType struct {
	Kind ActionKind

	BranchName string // CreateBranch
	PRTitle    string // CreatePR
	PRBody     string // CreatePR
	Version    string // CreateRelease
	CiRef      string // RunCiCheck
	DocsTarget string // GenerateDocs
	Command    string // RunCommand
}

func (a ActionType) String() string {
	switch a.Kind {
	case ActionCreateBranch:
		return fmt.Sprintf("create_branch(%s)", a.BranchName)
	case ActionCreatePR:
		return fmt.Sprintf("create_pr(%s)", a.PRTitle)
	case ActionCreateRelease:
		return fmt.Sprintf("create_release(%s)", a.Version)
	case ActionRunCiCheck:
		return fmt.Sprintf("run_ci_check(%s)", a.CiRef)
	case ActionGenerateDocs:
		return fmt.Sprintf("generate_docs(%s)", a.DocsTarget)
	default:
		return fmt.Sprintf("run_command(%s)", a.Command)
	}
}

// ScheduledTask is one unit of autonomous work under the scheduler's
// priority queue.
type ScheduledTask struct {
	ID          string
	Description string
	Priority    uint8 // higher runs first
	Schedule    Schedule
	Action      ActionType
	Status      TaskStatus
	NextRunAt   time.Time
	Attempts    int
	MaxAttempts int
	LastError   string
}

const defaultMaxAttempts = 3

// TaskScheduler is a priority queue of scheduled tasks gated by
// NextRunAt, with exponential backoff and a bounded retry budget on
// failure.
type TaskScheduler struct {
	mu    sync.Mutex
	tasks map[string]*ScheduledTask
}

// NewTaskScheduler creates an empty scheduler.
func NewTaskScheduler() *TaskScheduler {
	return &TaskScheduler{tasks: make(map[string]*ScheduledTask)}
}

// WithDefaults is an alias for NewTaskScheduler, matching
// original_source's TaskScheduler::with_defaults call site.
func WithDefaults() *TaskScheduler { return NewTaskScheduler() }

// AddTask registers a task, assigning it an ID if it has none, and
// returns the ID.
func (s *TaskScheduler) AddTask(task ScheduledTask) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if task.Status == "" {
		task.Status = TaskStatusPending
	}
	if task.MaxAttempts == 0 {
		task.MaxAttempts = defaultMaxAttempts
	}
	t := task
	s.tasks[t.ID] = &t
	return t.ID
}

// ScheduleOnce registers a one-time task due at `at`, returning its ID.
func (s *TaskScheduler) ScheduleOnce(description string, priority uint8, at time.Time, action ActionType) string {
	return s.AddTask(ScheduledTask{
		Description: description,
		Priority:    priority,
		Schedule:    ScheduleOnce(at),
		Action:      action,
		NextRunAt:   at,
	})
}

// PendingCount returns how many tasks are currently pending.
func (s *TaskScheduler) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.tasks {
		if t.Status == TaskStatusPending {
			n++
		}
	}
	return n
}

// duePending returns pending tasks whose NextRunAt has arrived, sorted
// highest-priority first (ties broken by earliest NextRunAt).
func (s *TaskScheduler) duePending(now time.Time) []*ScheduledTask {
	var due []*ScheduledTask
	for _, t := range s.tasks {
		if t.Status == TaskStatusPending && !t.NextRunAt.After(now) {
			due = append(due, t)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].Priority != due[j].Priority {
			return due[i].Priority > due[j].Priority
		}
		return due[i].NextRunAt.Before(due[j].NextRunAt)
	})
	return due
}

// PeekNext returns the next due task without removing or marking it,
// for status reporting.
func (s *TaskScheduler) PeekNext() *ScheduledTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	due := s.duePending(time.Now())
	if len(due) == 0 {
		return nil
	}
	t := *due[0]
	return &t
}

// NextDue claims the highest-priority due task, marking it Running, and
// returns a copy for the caller to execute.
func (s *TaskScheduler) NextDue() *ScheduledTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	due := s.duePending(time.Now())
	if len(due) == 0 {
		return nil
	}
	due[0].Status = TaskStatusRunning
	t := *due[0]
	return &t
}

// CompleteTask marks a claimed task completed, rescheduling it if its
// Schedule recurs.
func (s *TaskScheduler) CompleteTask(task *ScheduledTask) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[task.ID]
	if !ok {
		return
	}
	t.Attempts = 0
	t.LastError = ""

	if t.Schedule.isRecurring() {
		if next, err := t.Schedule.next(time.Now()); err == nil {
			t.NextRunAt = next
			t.Status = TaskStatusPending
			return
		}
	}
	t.Status = TaskStatusCompleted
}

// FailTask records a failed attempt. If attempts remain under
// MaxAttempts, the task is rescheduled with exponential backoff;
// otherwise it is marked permanently Failed.
func (s *TaskScheduler) FailTask(task *ScheduledTask, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[task.ID]
	if !ok {
		return
	}
	t.Attempts++
	t.LastError = errMsg

	if t.Attempts >= t.MaxAttempts {
		t.Status = TaskStatusFailed
		return
	}
	backoff := time.Duration(1<<uint(t.Attempts)) * time.Second
	t.NextRunAt = time.Now().Add(backoff)
	t.Status = TaskStatusPending
}

// Get returns a copy of a task by ID.
func (s *TaskScheduler) Get(id string) (ScheduledTask, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return ScheduledTask{}, false
	}
	return *t, true
}
