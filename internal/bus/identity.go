// Package bus implements the agent bus: message envelopes, a SQLite-backed
// agent registry, a priority-respecting router, and SQLite-backed shared
// memory. Field names and routing semantics are transcribed from
// original_source/agent_bus/{messages,registry,router,shared_memory}.rs;
// the struct shapes follow the teacher's flat-struct-plus-string-enum
// idiom (internal/pipeline/taskspec.go).
package bus

import "github.com/google/uuid"

// AgentId identifies a single agent instance.
type AgentId string

// NewAgentId generates a fresh random agent identifier.
func NewAgentId() AgentId {
	return AgentId(uuid.NewString())
}

func (a AgentId) String() string { return string(a) }

// TeamId identifies a team of agents.
type TeamId string

func (t TeamId) String() string { return string(t) }

// AgentRole is a well-known role used for role-based routing.
type AgentRole string

const (
	RoleCoder      AgentRole = "coder"
	RoleReviewer   AgentRole = "reviewer"
	RoleTester     AgentRole = "tester"
	RolePlanner    AgentRole = "planner"
	RoleResearcher AgentRole = "researcher"
	RoleBuilder    AgentRole = "builder"
	RoleMonitor    AgentRole = "monitor"
	RoleCoach      AgentRole = "coach"
)

// AgentStatus is the liveness/availability state of a registered agent.
type AgentStatus string

const (
	AgentOnline      AgentStatus = "online"
	AgentOffline     AgentStatus = "offline"
	AgentBusy        AgentStatus = "busy"
	AgentError       AgentStatus = "error"
	AgentMaintenance AgentStatus = "maintenance"
)

// CoreType is the closed set of execution cores a task can be routed to.
type CoreType string

const (
	CoreFreeform     CoreType = "freeform"
	CoreStructured   CoreType = "structured"
	CoreOrchestrator CoreType = "orchestrator"
	CoreSwarm        CoreType = "swarm"
	CoreWorkflow     CoreType = "workflow"
	CoreAdversarial  CoreType = "adversarial"
)

// AllCoreTypes lists every execution core in registration order.
func AllCoreTypes() []CoreType {
	return []CoreType{CoreFreeform, CoreStructured, CoreOrchestrator, CoreSwarm, CoreWorkflow, CoreAdversarial}
}
