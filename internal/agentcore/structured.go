package agentcore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/overhuman/agentrt/internal/bus"
	"github.com/overhuman/agentrt/internal/observability"
)

// projectType is the detected target stack for a structured development
// task, used to pick build/test tooling. Grounded on
// original_source/agents/core/structured.rs's ProjectType.
type projectType string

const (
	projectRust   projectType = "rust"
	projectPython projectType = "python"
	projectNode   projectType = "node"
)

// testStatus is the outcome of one test, mirroring
// original_source/agents/core/structured.rs's TestStatus (via the
// state_graph module, which did not survive the retrieval pack).
type testStatus string

const (
	testPassed testStatus = "passed"
	testFailed testStatus = "failed"
)

// testResult is a single test's outcome.
type testResult struct {
	File     string
	TestName string
	Status   testStatus
	Message  string
}

// ctfState is the Code→Test→Fix state machine's working state, holding
// what's been generated and fixed across iterations.
type ctfState struct {
	task           string
	generatedFiles []string
	fixedFiles     []string
	lastError      string
	iteration      int
	fixAttempts    int
}

// ctfPhase is the three-state FSM's current phase.
type ctfPhase string

const (
	phaseCode ctfPhase = "code"
	phaseTest ctfPhase = "test"
	phaseFix  ctfPhase = "fix"
	phaseDone ctfPhase = "done"
)

// StructuredCore drives a deterministic Code→Test→Fix loop: generate
// code, run tests, fix failures, repeat until green or a bound is hit.
// Grounded on original_source/agents/core/structured.rs; the underlying
// state_graph::StateGraph it wraps did not survive the retrieval pack,
// so the three-state machine is implemented directly here from spec.md's
// description of its transitions.
type StructuredCore struct {
	metrics        observability.CoreMetrics
	maxIterations  int
	maxFixAttempts int
}

// NewStructuredCore creates a StructuredCore with the spec's default
// bounds (10 iterations, 3 fix attempts per test failure round).
func NewStructuredCore() *StructuredCore {
	return &StructuredCore{maxIterations: 10, maxFixAttempts: 3}
}

func (c *StructuredCore) Name() string         { return "structured" }
func (c *StructuredCore) CoreType() bus.CoreType { return bus.CoreStructured }

func (c *StructuredCore) Capabilities() CoreCapabilities {
	return CoreCapabilities{
		CodeGeneration:     true,
		Testing:            true,
		StateMachine:       true,
		PersistentLearning: true,
		MaxConcurrentTasks: 1,
	}
}

func (c *StructuredCore) Description() string {
	return "Code→Test→Fix state machine with DoneGate validation — deterministic development"
}

func (c *StructuredCore) SuitabilityScore(hint TaskHint) float32 {
	switch hint.Category {
	case CategoryCodeTestFix:
		return 0.95
	case CategoryMultiFileComplex:
		return 0.5
	case CategoryLargeRefactor:
		return 0.4
	case CategoryPipeline:
		return 0.4
	case CategoryGeneral, CategoryReview:
		return 0.3
	default:
		return 0.2
	}
}

// detectProjectType inspects task keywords first, then project files in
// workingDir, matching original_source's detect_project_type.
func detectProjectType(task, workingDir string) (projectType, bool) {
	lower := strings.ToLower(task)

	switch {
	case strings.Contains(lower, "rust") || strings.Contains(lower, "cargo"):
		return projectRust, true
	case strings.Contains(lower, "python") || strings.Contains(lower, "pytest") || strings.Contains(lower, "pip"):
		return projectPython, true
	case strings.Contains(lower, "node") || strings.Contains(lower, "npm") ||
		strings.Contains(lower, "typescript") || strings.Contains(lower, "jest") ||
		strings.Contains(lower, "vitest"):
		return projectNode, true
	}

	if workingDir == "" {
		return "", false
	}
	if fileExists(filepath.Join(workingDir, "Cargo.toml")) {
		return projectRust, true
	}
	if fileExists(filepath.Join(workingDir, "package.json")) {
		return projectNode, true
	}
	if fileExists(filepath.Join(workingDir, "pyproject.toml")) || fileExists(filepath.Join(workingDir, "setup.py")) {
		return projectPython, true
	}
	return "", false
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// generateCode is the heuristic code-generation step, standing in for an
// LLM call per original_source's comment ("In a full LLM-wired
// implementation, this would call the provider to generate code").
func generateCode(task string, state *ctfState) []string {
	lower := strings.ToLower(task)
	var files []string

	if strings.Contains(lower, "function") || strings.Contains(lower, "implement") ||
		strings.Contains(lower, "add") || strings.Contains(lower, "create") ||
		strings.Contains(lower, "write") {
		files = append(files, "src/implementation.go")
	}
	if strings.Contains(lower, "test") {
		files = append(files, "implementation_test.go")
	}
	if strings.Contains(lower, "fix") || strings.Contains(lower, "bug") {
		if len(state.generatedFiles) > 0 {
			files = append(files, state.generatedFiles...)
		} else {
			files = append(files, "src/fix.go")
		}
	}
	if len(files) == 0 {
		files = append(files, "src/main.go")
	}
	return files
}

// runTests is the heuristic test-execution step; every test passes in
// this unwired simulation, matching original_source's placeholder.
func runTests(state *ctfState) []testResult {
	var results []testResult
	for _, f := range state.generatedFiles {
		name := "test_" + strings.NewReplacer("/", "_", ".", "_").Replace(f)
		results = append(results, testResult{File: f, TestName: name, Status: testPassed})
	}
	if len(results) == 0 {
		results = append(results, testResult{File: "default", TestName: "test_default", Status: testPassed})
	}
	return results
}

// fixFailures collects the files behind failed tests for another
// generation pass.
func fixFailures(failed []testResult, state *ctfState) []string {
	var fixed []string
	for _, t := range failed {
		if t.Status == testFailed {
			fixed = append(fixed, t.File)
		}
	}
	if len(fixed) == 0 && len(state.generatedFiles) > 0 {
		fixed = append(fixed, state.generatedFiles[0])
	}
	return fixed
}

// Execute runs the Code→Test→Fix loop to completion or to its bounds.
func (c *StructuredCore) Execute(ctx context.Context, agentCtx *AgentContext, task string) (CoreOutput, error) {
	start := time.Now()

	workingDir := ""
	if agentCtx != nil {
		workingDir = agentCtx.WorkingDir
	}
	_, _ = detectProjectType(task, workingDir) // detected for tooling selection; unused by the simulated callbacks

	state := &ctfState{task: task}
	phase := phaseCode
	success := false

	for state.iteration < c.maxIterations {
		select {
		case <-ctx.Done():
			return CoreOutput{}, ctx.Err()
		default:
		}

		switch phase {
		case phaseCode:
			state.generatedFiles = generateCode(task, state)
			phase = phaseTest
		case phaseTest:
			results := runTests(state)
			var failed []testResult
			for _, r := range results {
				if r.Status == testFailed {
					failed = append(failed, r)
				}
			}
			if len(failed) == 0 {
				success = true
				phase = phaseDone
			} else {
				phase = phaseFix
			}
		case phaseFix:
			if state.fixAttempts >= c.maxFixAttempts {
				state.lastError = "exceeded max fix attempts"
				phase = phaseDone
				break
			}
			state.fixAttempts++
			state.fixedFiles = append(state.fixedFiles, fixFailures(nil, state)...)
			phase = phaseTest
		}

		state.iteration++
		if phase == phaseDone {
			break
		}
	}

	var artifacts []string
	artifacts = append(artifacts, state.generatedFiles...)
	artifacts = append(artifacts, state.fixedFiles...)

	var summary string
	if success {
		summary = fmt.Sprintf(
			"Structured Code→Test→Fix completed successfully in %d iteration(s).\nFiles generated: %s\nFinal phase: %s",
			state.iteration, strings.Join(state.generatedFiles, ", "), phase,
		)
	} else {
		lastErr := state.lastError
		if lastErr == "" {
			lastErr = "none"
		}
		summary = fmt.Sprintf(
			"Structured Code→Test→Fix reached limit after %d iteration(s).\nLast error: %s\nFinal phase: %s",
			state.iteration, lastErr, phase,
		)
	}

	elapsed := time.Since(start)
	c.metrics.RecordExecution(success, state.iteration, 0, float64(elapsed.Milliseconds()))

	return CoreOutput{
		Completed: success,
		Summary:   summary,
		TurnsUsed: state.iteration,
		Artifacts: artifacts,
		Metrics:   c.metrics.Snapshot(),
	}, nil
}

func (c *StructuredCore) Metrics() observability.CoreMetricsSnapshot { return c.metrics.Snapshot() }
func (c *StructuredCore) ResetMetrics()                              { c.metrics.Reset() }
