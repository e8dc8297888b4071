package agentcore

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/overhuman/agentrt/internal/bus"
	"github.com/overhuman/agentrt/internal/observability"
	"github.com/overhuman/agentrt/internal/pipeline"
)

// specialistRole is the fixed role set an orchestrated sub-task is
// assigned to, per spec.md's {Code, Test, Docs, Security, Deploy}.
type specialistRole string

const (
	roleCode     specialistRole = "code"
	roleTest     specialistRole = "test"
	roleDocs     specialistRole = "docs"
	roleSecurity specialistRole = "security"
	roleDeploy   specialistRole = "deploy"
)

// decomposedTask is one heuristically-derived sub-task with its role and
// dependency indices. Grounded on
// original_source/agents/core/orchestrator_core.rs's DecomposedTask.
type decomposedTask struct {
	name        string
	description string
	role        specialistRole
	dependsOn   []int
}

// decomposeOrchestratorTask is the heuristic task decomposer, preserved
// bit-for-bit from original_source/agents/core/orchestrator_core.rs's
// decompose_task per spec.md §9's explicit instruction not to alter
// observable decomposer behavior.
func decomposeOrchestratorTask(task string) []decomposedTask {
	lower := strings.ToLower(task)
	var tasks []decomposedTask

	hasCode := strings.Contains(lower, "implement") || strings.Contains(lower, "create") ||
		strings.Contains(lower, "add") || strings.Contains(lower, "build") ||
		strings.Contains(lower, "write") || strings.Contains(lower, "fix") ||
		strings.Contains(lower, "refactor") || strings.Contains(lower, "update") ||
		strings.Contains(lower, "modify") || strings.Contains(lower, "change") ||
		strings.Contains(lower, "code")

	hasTest := strings.Contains(lower, "test") || strings.Contains(lower, "spec") ||
		strings.Contains(lower, "coverage") || strings.Contains(lower, "verify")

	hasDocs := strings.Contains(lower, "doc") || strings.Contains(lower, "readme") ||
		strings.Contains(lower, "comment") || strings.Contains(lower, "explain")

	hasSecurity := strings.Contains(lower, "security") || strings.Contains(lower, "audit") ||
		strings.Contains(lower, "vulnerab") || strings.Contains(lower, "safe")

	hasDeploy := strings.Contains(lower, "deploy") || strings.Contains(lower, "release") ||
		strings.Contains(lower, "ship") || strings.Contains(lower, "publish") ||
		strings.Contains(lower, "ci") || strings.Contains(lower, "cd")

	if hasCode || (!hasTest && !hasDocs && !hasSecurity && !hasDeploy) {
		tasks = append(tasks, decomposedTask{
			name:        "Code Implementation",
			description: fmt.Sprintf("Implement the requested changes: %s", truncate(task, 200)),
			role:        roleCode,
		})
	}

	if hasTest || hasCode {
		dep := indexOfRole(tasks, roleCode)
		tasks = append(tasks, decomposedTask{
			name:        "Test Generation",
			description: fmt.Sprintf("Generate and run tests for: %s", truncate(task, 200)),
			role:        roleTest,
			dependsOn:   dep,
		})
	}

	if hasSecurity {
		dep := indexOfRole(tasks, roleCode)
		tasks = append(tasks, decomposedTask{
			name:        "Security Review",
			description: fmt.Sprintf("Security analysis for: %s", truncate(task, 200)),
			role:        roleSecurity,
			dependsOn:   dep,
		})
	}

	if hasDocs {
		var dep []int
		for i, t := range tasks {
			if t.role == roleCode || t.role == roleTest {
				dep = append(dep, i)
			}
		}
		tasks = append(tasks, decomposedTask{
			name:        "Documentation",
			description: fmt.Sprintf("Generate documentation for: %s", truncate(task, 200)),
			role:        roleDocs,
			dependsOn:   dep,
		})
	}

	if hasDeploy {
		all := make([]int, len(tasks))
		for i := range tasks {
			all[i] = i
		}
		tasks = append(tasks, decomposedTask{
			name:        "Deployment",
			description: fmt.Sprintf("Deploy: %s", truncate(task, 200)),
			role:        roleDeploy,
			dependsOn:   all,
		})
	}

	if len(tasks) == 0 {
		tasks = append(tasks, decomposedTask{
			name:        "General Task",
			description: task,
			role:        roleCode,
		})
	}

	return tasks
}

func indexOfRole(tasks []decomposedTask, role specialistRole) []int {
	for i, t := range tasks {
		if t.role == role {
			return []int{i}
		}
	}
	return nil
}

// OrchestratorCore decomposes a task into a specialist DAG and executes
// it via internal/pipeline's DAGExecutor, which fans each round's
// dependency-satisfied sub-tasks out concurrently. Grounded on
// original_source/agents/core/orchestrator_core.rs for decomposition,
// and on internal/pipeline/dag.go's DAGExecutor for the scheduling
// itself.
type OrchestratorCore struct {
	metrics observability.CoreMetrics
}

// NewOrchestratorCore creates an OrchestratorCore.
func NewOrchestratorCore() *OrchestratorCore {
	return &OrchestratorCore{}
}

func (c *OrchestratorCore) Name() string           { return "orchestrator" }
func (c *OrchestratorCore) CoreType() bus.CoreType { return bus.CoreOrchestrator }

func (c *OrchestratorCore) Capabilities() CoreCapabilities {
	return CoreCapabilities{
		CodeGeneration:     true,
		Testing:            true,
		MultiAgent:         true,
		PersistentLearning: true,
		MaxConcurrentTasks: 4,
	}
}

func (c *OrchestratorCore) Description() string {
	return "Multi-agent orchestrator with specialist DAG — complex multi-file development tasks"
}

func (c *OrchestratorCore) SuitabilityScore(hint TaskHint) float32 {
	switch hint.Category {
	case CategoryMultiFileComplex:
		return 0.95
	case CategoryDevOps:
		return 0.8
	case CategoryLargeRefactor:
		return 0.7
	case CategoryPipeline:
		return 0.7
	case CategoryCodeTestFix:
		return 0.6
	case CategoryReview:
		return 0.5
	case CategoryDocumentation:
		return 0.4
	default:
		return 0.3
	}
}

// Execute decomposes task into a role-tagged DAG and runs it to
// completion via DAGExecutor, which fans each round's
// dependency-satisfied sub-tasks out concurrently.
func (c *OrchestratorCore) Execute(ctx context.Context, agentCtx *AgentContext, task string) (CoreOutput, error) {
	start := time.Now()

	select {
	case <-ctx.Done():
		return CoreOutput{}, ctx.Err()
	default:
	}

	decomposed := decomposeOrchestratorTask(task)

	subtasks := make([]pipeline.SubtaskSpec, len(decomposed))
	for i, dt := range decomposed {
		deps := make([]string, len(dt.dependsOn))
		for j, idx := range dt.dependsOn {
			deps[j] = strconv.Itoa(idx)
		}
		subtasks[i] = pipeline.SubtaskSpec{
			ID:         strconv.Itoa(i),
			Goal:       dt.description,
			DependsOn:  deps,
			AssignedTo: string(dt.role),
			Status:     pipeline.TaskStatusDraft,
		}
	}

	executor := pipeline.NewDAGExecutor(func(ctx context.Context, sub *pipeline.SubtaskSpec) (string, error) {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
			return "OK", nil
		}
	})

	results, execErr := executor.Execute(ctx, subtasks)

	turnsUsed := 0
	for _, st := range results {
		if st.Status == pipeline.TaskStatusCompleted || st.Status == pipeline.TaskStatusFailed {
			turnsUsed++
		}
	}
	workflowCompleted := execErr == nil && turnsUsed == len(subtasks)

	var artifacts []string
	var summaryParts []string
	for i, st := range results {
		dt := decomposed[i]
		status := "OK"
		if st.Status != pipeline.TaskStatusCompleted {
			status = "FAILED"
		}
		summaryParts = append(summaryParts, fmt.Sprintf("  [%s] %s — %s", dt.role, dt.name, status))
		artifacts = append(artifacts, fmt.Sprintf("%s: %s", dt.role, dt.name))
	}

	summaryState := "INCOMPLETE"
	if workflowCompleted {
		summaryState = "COMPLETED"
	}
	summary := fmt.Sprintf(
		"Orchestrator workflow %s (%d tasks, %d turns):\n%s",
		summaryState, len(decomposed), turnsUsed, strings.Join(summaryParts, "\n"),
	)

	elapsed := time.Since(start)
	c.metrics.RecordExecution(workflowCompleted, turnsUsed, 0, float64(elapsed.Milliseconds()))

	return CoreOutput{
		Completed: workflowCompleted,
		Summary:   summary,
		TurnsUsed: turnsUsed,
		Artifacts: artifacts,
		Metrics:   c.metrics.Snapshot(),
	}, nil
}

func (c *OrchestratorCore) Metrics() observability.CoreMetricsSnapshot { return c.metrics.Snapshot() }
func (c *OrchestratorCore) ResetMetrics()                              { c.metrics.Reset() }
