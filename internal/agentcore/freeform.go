package agentcore

import (
	"context"
	"fmt"
	"time"

	"github.com/overhuman/agentrt/internal/bus"
	"github.com/overhuman/agentrt/internal/observability"
)

// FreeformCore is a single-turn, state-machine-free execution core: it
// hands the task to one conversational turn and returns whatever comes
// back. No original_source/agents/core/freeform.rs survived the
// retrieval pack — this is built from spec.md's description ("one LLM
// conversation turn per iteration, no state machine") and the shape
// common to the other five cores, heuristically placeholdered the same
// way structured.rs/orchestrator_core.rs stand in for an unwired LLM
// provider ("In a full LLM-wired implementation, this would call the
// provider...").
type FreeformCore struct {
	metrics observability.CoreMetrics
}

// NewFreeformCore creates a FreeformCore with zeroed metrics.
func NewFreeformCore() *FreeformCore {
	return &FreeformCore{}
}

func (c *FreeformCore) Name() string         { return "freeform" }
func (c *FreeformCore) CoreType() bus.CoreType { return bus.CoreFreeform }

func (c *FreeformCore) Capabilities() CoreCapabilities {
	return CoreCapabilities{
		FreeformChat:       true,
		PersistentLearning: true,
		MaxConcurrentTasks: 1,
	}
}

func (c *FreeformCore) Description() string {
	return "Single conversational turn, no state machine — open-ended and exploratory tasks"
}

// SuitabilityScore favors general tasks; every structured category scores
// at or below 0.4, per spec.md.
func (c *FreeformCore) SuitabilityScore(hint TaskHint) float32 {
	switch hint.Category {
	case CategoryGeneral:
		return 0.9
	case CategoryDocumentation:
		return 0.4
	case CategoryReview:
		return 0.3
	default:
		return 0.2
	}
}

// Execute runs one conversational turn over task and returns its result.
func (c *FreeformCore) Execute(ctx context.Context, agentCtx *AgentContext, task string) (CoreOutput, error) {
	start := time.Now()

	summary := fmt.Sprintf("Freeform turn completed for: %s", truncate(task, 200))

	elapsed := time.Since(start)
	c.metrics.RecordExecution(true, 1, 0, float64(elapsed.Milliseconds()))

	return CoreOutput{
		Completed: true,
		Summary:   summary,
		TurnsUsed: 1,
		Artifacts: nil,
		Metrics:   c.metrics.Snapshot(),
	}, nil
}

func (c *FreeformCore) Metrics() observability.CoreMetricsSnapshot { return c.metrics.Snapshot() }
func (c *FreeformCore) ResetMetrics()                              { c.metrics.Reset() }
