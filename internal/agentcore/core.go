// Package agentcore implements the six execution cores and the selector
// that chooses among them. An AgentCore is a pluggable execution strategy:
// given a task description and a shared AgentContext, it drives the task
// to completion its own way — a single LLM turn, a Code→Test→Fix state
// machine, a specialist DAG, a parallel swarm, a template workflow, or a
// Coach/Player adversarial loop — and reports a uniform CoreOutput.
//
// Grounded on original_source/agents/core/*.rs's common AgentCore trait
// shape (name/core_type/capabilities/description/suitability_score/
// execute/metrics/reset_metrics), reconstructed here since no trait/mod
// file survived in the retrieval pack.
package agentcore

import (
	"context"

	"github.com/overhuman/agentrt/internal/bus"
	"github.com/overhuman/agentrt/internal/observability"
)

// CoreCapabilities declares what an AgentCore can do, used by the registry
// for static suitability fallback and by introspection callers.
type CoreCapabilities struct {
	CodeGeneration    bool
	Testing           bool
	MultiAgent        bool
	ParallelExecution bool
	WorkflowTemplates bool
	AdversarialReview bool
	FreeformChat      bool
	StateMachine      bool
	PersistentLearning bool
	MaxConcurrentTasks int
}

// CoreOutput is the uniform result every AgentCore produces.
type CoreOutput struct {
	Completed bool
	Summary   string
	TurnsUsed int
	Artifacts []string
	Metrics   observability.CoreMetricsSnapshot
}

// CoreDescriptor is a static introspection summary of a core, exposed so
// an out-of-scope HTTP layer can list available cores without executing
// them (SPEC_FULL.md §4.2-4.3).
type CoreDescriptor struct {
	Name         string
	CoreType     bus.CoreType
	Capabilities CoreCapabilities
	Description  string
}

// AgentCore is the pluggable execution strategy every core implements.
type AgentCore interface {
	Name() string
	CoreType() bus.CoreType
	Capabilities() CoreCapabilities
	Description() string
	SuitabilityScore(hint TaskHint) float32
	Execute(ctx context.Context, agentCtx *AgentContext, task string) (CoreOutput, error)
	Metrics() observability.CoreMetricsSnapshot
	ResetMetrics()
}

// Describe builds a CoreDescriptor from any AgentCore implementation.
func Describe(c AgentCore) CoreDescriptor {
	return CoreDescriptor{
		Name:         c.Name(),
		CoreType:     c.CoreType(),
		Capabilities: c.Capabilities(),
		Description:  c.Description(),
	}
}

// truncate mirrors original_source's truncate helper, repeated verbatim
// in structured.rs, orchestrator_core.rs, and workflow_core.rs.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
