package bus

import (
	"time"

	"github.com/google/uuid"
)

// Priority orders mailbox delivery. Higher values are delivered first;
// within a priority tier, delivery is FIFO (see mailbox.go).
type Priority int

const (
	PriorityLow      Priority = 0
	PriorityNormal   Priority = 1
	PriorityHigh     Priority = 2
	PriorityCritical Priority = 3
)

// MessageChannel classifies how a message reached its recipient(s).
type MessageChannel string

const (
	ChannelDirect    MessageChannel = "direct"
	ChannelTeam      MessageChannel = "team"
	ChannelBroadcast MessageChannel = "broadcast"
	ChannelSystem    MessageChannel = "system"
)

// TargetKind identifies which MessageTarget variant is populated.
type TargetKind string

const (
	TargetAgent     TargetKind = "agent"
	TargetRole      TargetKind = "role"
	TargetTeam      TargetKind = "team"
	TargetBroadcast TargetKind = "broadcast"
	TargetTopic     TargetKind = "topic"
)

// MessageTarget names the recipient(s) of an Envelope.
type MessageTarget struct {
	Kind  TargetKind `json:"kind"`
	Agent AgentId    `json:"agent,omitempty"`
	Role  AgentRole  `json:"role,omitempty"`
	Team  TeamId     `json:"team,omitempty"`
	Topic string     `json:"topic,omitempty"`
}

func ToAgent(id AgentId) MessageTarget   { return MessageTarget{Kind: TargetAgent, Agent: id} }
func ToRole(r AgentRole) MessageTarget   { return MessageTarget{Kind: TargetRole, Role: r} }
func ToTeam(id TeamId) MessageTarget     { return MessageTarget{Kind: TargetTeam, Team: id} }
func ToTopic(topic string) MessageTarget { return MessageTarget{Kind: TargetTopic, Topic: topic} }
func Broadcast() MessageTarget           { return MessageTarget{Kind: TargetBroadcast} }

// PayloadKind is the tag of the MessagePayload union, transcribed from
// original_source/agent_bus/messages.rs's MessagePayload enum.
type PayloadKind string

const (
	PayloadTaskAssignment PayloadKind = "task_assignment"
	PayloadTaskUpdate     PayloadKind = "task_update"
	PayloadTaskComplete   PayloadKind = "task_complete"
	PayloadCodeChange     PayloadKind = "code_change"
	PayloadTestResult     PayloadKind = "test_result"
	PayloadInsight        PayloadKind = "insight"
	PayloadMemoryShare    PayloadKind = "memory_share"
	PayloadPlanProposal   PayloadKind = "plan_proposal"
	PayloadStatusRequest  PayloadKind = "status_request"
	PayloadStatusResponse PayloadKind = "status_response"
	PayloadWakeUp         PayloadKind = "wake_up"
	PayloadGoingOffline   PayloadKind = "going_offline"
	PayloadComingOnline   PayloadKind = "coming_online"
	PayloadHeartbeat      PayloadKind = "heartbeat"
	PayloadBuildStarting  PayloadKind = "build_starting"
	PayloadBuildComplete  PayloadKind = "build_complete"
	PayloadCustom         PayloadKind = "custom"
)

// TaskStatus tracks a TaskSpec's lifecycle as it moves across the bus.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskBlocked    TaskStatus = "blocked"
	TaskComplete   TaskStatus = "complete"
	TaskFailed     TaskStatus = "failed"
	TaskCancelled  TaskStatus = "cancelled"
)

// TaskSpec is a bus-level task description, distinct from the pipeline's
// own SubtaskSpec — this one travels inside a TaskAssignment payload.
type TaskSpec struct {
	ID           uuid.UUID  `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	RequiredRole *AgentRole `json:"required_role,omitempty"`
	Priority     Priority   `json:"priority"`
	Tags         []string   `json:"tags,omitempty"`
}

// TaskResult is the outcome payload of a TaskComplete message.
type TaskResult struct {
	Success bool   `json:"success"`
	Summary string `json:"summary"`
	Output  any    `json:"output,omitempty"`
}

// ArtifactType classifies an Artifact's content.
type ArtifactType string

const (
	ArtifactFile   ArtifactType = "file"
	ArtifactDiff   ArtifactType = "diff"
	ArtifactLog    ArtifactType = "log"
	ArtifactReport ArtifactType = "report"
	ArtifactBinary ArtifactType = "binary"
)

// Artifact is a named output of a completed task.
type Artifact struct {
	Name string       `json:"name"`
	Type ArtifactType `json:"type"`
	Path string       `json:"path,omitempty"`
	Body string       `json:"content,omitempty"`
}

// FileDiff describes one changed file in a CodeChange payload.
type FileDiff struct {
	Path         string `json:"path"`
	Diff         string `json:"diff"`
	AddedLines   int    `json:"added_lines"`
	RemovedLines int    `json:"removed_lines"`
}

// TestDetail is a single test outcome inside a TestResult payload.
type TestDetail struct {
	Name       string `json:"name"`
	Passed     bool   `json:"passed"`
	DurationMs int64  `json:"duration_ms"`
	Message    string `json:"message,omitempty"`
}

// InsightCategory classifies an Insight payload.
type InsightCategory string

const (
	InsightPerformance    InsightCategory = "performance"
	InsightSecurity       InsightCategory = "security"
	InsightQuality        InsightCategory = "quality"
	InsightArchitecture   InsightCategory = "architecture"
	InsightTesting        InsightCategory = "testing"
	InsightDocumentation  InsightCategory = "documentation"
)

// Plan is the payload of a PlanProposal message.
type Plan struct {
	Summary string   `json:"summary"`
	Steps   []string `json:"steps"`
}

// MessagePayload is a tagged union of everything that can ride on an
// Envelope. Exactly one of the per-kind fields is populated, matching
// Kind. This generalizes original_source's Rust `enum MessagePayload`
// into Go's flat-struct-plus-tag idiom (pipeline.TaskSpec's Status field
// plays the same role).
type MessagePayload struct {
	Kind PayloadKind `json:"kind"`

	TaskAssignment *TaskAssignmentPayload `json:"task_assignment,omitempty"`
	TaskUpdate     *TaskUpdatePayload     `json:"task_update,omitempty"`
	TaskComplete   *TaskCompletePayload   `json:"task_complete,omitempty"`
	CodeChange     *CodeChangePayload     `json:"code_change,omitempty"`
	TestResult     *TestResultPayload     `json:"test_result,omitempty"`
	Insight        *InsightPayload        `json:"insight,omitempty"`
	MemoryShare    *MemorySharePayload    `json:"memory_share,omitempty"`
	PlanProposal   *PlanProposalPayload   `json:"plan_proposal,omitempty"`
	StatusResponse *StatusResponsePayload `json:"status_response,omitempty"`
	WakeUp         *WakeUpPayload         `json:"wake_up,omitempty"`
	GoingOffline   *GoingOfflinePayload   `json:"going_offline,omitempty"`
	ComingOnline   *ComingOnlinePayload   `json:"coming_online,omitempty"`
	Heartbeat      *HeartbeatPayload      `json:"heartbeat,omitempty"`
	BuildStarting  *BuildStartingPayload  `json:"build_starting,omitempty"`
	BuildComplete  *BuildCompletePayload  `json:"build_complete,omitempty"`
	Custom         *CustomPayload         `json:"custom,omitempty"`
}

type TaskAssignmentPayload struct {
	Task     TaskSpec   `json:"task"`
	Deadline *time.Time `json:"deadline,omitempty"`
}

type TaskUpdatePayload struct {
	TaskID  uuid.UUID  `json:"task_id"`
	Status  TaskStatus `json:"status"`
	Details string     `json:"details"`
}

type TaskCompletePayload struct {
	TaskID    uuid.UUID  `json:"task_id"`
	Result    TaskResult `json:"result"`
	Artifacts []Artifact `json:"artifacts,omitempty"`
}

type CodeChangePayload struct {
	Files  []FileDiff `json:"files"`
	Reason string     `json:"reason"`
}

type TestResultPayload struct {
	Suite   string       `json:"suite"`
	Passed  int          `json:"passed"`
	Failed  int          `json:"failed"`
	Details []TestDetail `json:"details,omitempty"`
}

type InsightPayload struct {
	Category   InsightCategory `json:"category"`
	Content    string          `json:"content"`
	Confidence float32         `json:"confidence"`
}

type MemorySharePayload struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

type PlanProposalPayload struct {
	Plan           Plan `json:"plan"`
	NeedsApproval  bool `json:"needs_approval"`
}

type StatusResponsePayload struct {
	Status      AgentStatus `json:"status"`
	CurrentTask string      `json:"current_task,omitempty"`
}

type WakeUpPayload struct {
	Reason string `json:"reason"`
}

type GoingOfflinePayload struct {
	Reason string `json:"reason"`
}

type ComingOnlinePayload struct {
	Capabilities []string `json:"capabilities"`
}

type HeartbeatPayload struct {
	Load float32 `json:"load"`
}

type BuildStartingPayload struct {
	Version string `json:"version"`
}

type BuildCompletePayload struct {
	Version string `json:"version"`
	Success bool   `json:"success"`
}

type CustomPayload struct {
	EventType string `json:"event_type"`
	Data      any    `json:"data"`
}

// StatusRequest has no payload fields — presence of Kind alone carries it.
func StatusRequestPayload() MessagePayload {
	return MessagePayload{Kind: PayloadStatusRequest}
}

// Envelope is the message passed between agents over the bus.
type Envelope struct {
	ID           uuid.UUID      `json:"id"`
	From         AgentId        `json:"from"`
	To           MessageTarget  `json:"to"`
	Channel      MessageChannel `json:"channel"`
	Priority     Priority       `json:"priority"`
	Payload      MessagePayload `json:"payload"`
	ReplyTo      *uuid.UUID     `json:"reply_to,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	ExpiresAt    *time.Time     `json:"expires_at,omitempty"`
	Delivered    bool           `json:"delivered"`
	Acknowledged bool           `json:"acknowledged"`
}

// NewEnvelope constructs an Envelope with Normal priority and no expiry,
// matching AgentMessage::new's defaults in original_source.
func NewEnvelope(from AgentId, to MessageTarget, channel MessageChannel, payload MessagePayload) Envelope {
	return Envelope{
		ID:       uuid.New(),
		From:     from,
		To:       to,
		Channel:  channel,
		Priority: PriorityNormal,
		Payload:  payload,

		CreatedAt: time.Now().UTC(),
	}
}

func (e Envelope) WithPriority(p Priority) Envelope {
	e.Priority = p
	return e
}

func (e Envelope) WithReplyTo(id uuid.UUID) Envelope {
	e.ReplyTo = &id
	return e
}

func (e Envelope) WithExpiry(t time.Time) Envelope {
	e.ExpiresAt = &t
	return e
}

// IsExpired reports whether the envelope has passed its expiry time.
func (e Envelope) IsExpired() bool {
	return e.ExpiresAt != nil && time.Now().UTC().After(*e.ExpiresAt)
}
