package agentcore

import (
	"strings"

	"github.com/overhuman/agentrt/internal/bus"
)

// TaskCategory is the closed classification a task's description falls
// into, used both for suitability scoring and as the persisted key in the
// experience store. Grounded on original_source/agents/core/selector.rs's
// categorize_task and the spec's task categorization table; the string
// form (TaskCategory.String) must match the experience-store category
// keys bit-for-bit.
type TaskCategory int

const (
	CategoryGeneral TaskCategory = iota
	CategoryCodeTestFix
	CategoryMultiFileComplex
	CategoryLargeRefactor
	CategoryReview
	CategoryDevOps
	CategoryDocumentation
	CategoryPipeline
)

// String returns the persisted category key, matching
// original_source/agents/core/selector.rs's category_to_string.
func (c TaskCategory) String() string {
	switch c {
	case CategoryCodeTestFix:
		return "code-test-fix"
	case CategoryMultiFileComplex:
		return "multi-file-complex"
	case CategoryLargeRefactor:
		return "large-refactor"
	case CategoryReview:
		return "review"
	case CategoryDevOps:
		return "devops"
	case CategoryDocumentation:
		return "documentation"
	case CategoryPipeline:
		return "pipeline"
	default:
		return "general"
	}
}

// CategorizeTask is the deterministic keyword classifier. Reproduced
// bit-for-bit from original_source/agents/core/selector.rs's
// categorize_task — persisted experiences are keyed by this string, so
// the keyword rules may never drift.
func CategorizeTask(task string) TaskCategory {
	lower := strings.ToLower(task)

	switch {
	case (strings.Contains(lower, "test") && strings.Contains(lower, "fix")) ||
		(strings.Contains(lower, "code") && strings.Contains(lower, "test")) ||
		strings.Contains(lower, "debug") ||
		strings.Contains(lower, "bug fix"):
		return CategoryCodeTestFix
	case strings.Contains(lower, "refactor") &&
		(strings.Contains(lower, "all") || strings.Contains(lower, "many") ||
			strings.Contains(lower, "every") || strings.Contains(lower, "entire") ||
			strings.Contains(lower, "across")):
		return CategoryLargeRefactor
	case strings.Contains(lower, "review") || strings.Contains(lower, "security") ||
		strings.Contains(lower, "audit"):
		return CategoryReview
	case strings.Contains(lower, "deploy") || strings.Contains(lower, "release") ||
		strings.Contains(lower, "ci/cd") || strings.Contains(lower, "ci ") ||
		strings.Contains(lower, "pipeline"):
		return CategoryDevOps
	case strings.Contains(lower, "doc") || strings.Contains(lower, "readme") ||
		strings.Contains(lower, "comment"):
		return CategoryDocumentation
	default:
		return CategoryGeneral
	}
}

// TaskHint is a pre-computed classification of a task, optionally carrying
// a user override and a parallelism signal. Reconstructed from its field
// usage across selector.rs/structured.rs/orchestrator_core.rs/
// swarm_core.rs/workflow_core.rs (no context.rs survived in the pack).
type TaskHint struct {
	Category                TaskCategory
	Description             string
	BenefitsFromParallelism bool
	UserPreference          *bus.CoreType
}

// HintFromMessage builds a TaskHint by categorizing the raw message,
// matching original_source's TaskHint::from_message call site in
// selector.rs's registry fallback path.
func HintFromMessage(message string) TaskHint {
	return TaskHint{
		Category:    CategorizeTask(message),
		Description: message,
	}
}

// AgentContext is the per-execution state an AgentCore is handed. It is a
// deliberately small analogue of original_source's AgentContext (which
// also threaded an extension manager, cost tracker, and conversation
// history specific to the LLM-provider plumbing this module does not
// carry). WorkingDir is the field the cores read; Memory is filled in by
// the runtime's Dispatch but no core reads it.
type AgentContext struct {
	AgentID    bus.AgentId
	WorkingDir string
	Memory     *bus.SharedMemory
	Metadata   map[string]any
}

// NewAgentContext creates a context for a single core execution.
func NewAgentContext(agentID bus.AgentId, workingDir string) *AgentContext {
	return &AgentContext{
		AgentID:    agentID,
		WorkingDir: workingDir,
		Metadata:   make(map[string]any),
	}
}
