package agentcore

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/overhuman/agentrt/internal/bus"
	"github.com/overhuman/agentrt/internal/observability"
)

// swarmRole is a specialization a swarm agent can carry, per spec.md's
// role-tagged sub-task set. Grounded on
// original_source/agents/core/swarm_core.rs's SwarmRole.
type swarmRole string

const (
	swarmArchitect       swarmRole = "architect"
	swarmCoder           swarmRole = "coder"
	swarmTester          swarmRole = "tester"
	swarmDocumenter      swarmRole = "documenter"
	swarmSecurityAnalyst swarmRole = "security_analyst"
	swarmDeployer        swarmRole = "deployer"
	swarmReviewer        swarmRole = "reviewer"
	swarmGeneralist      swarmRole = "generalist"
)

// swarmAgentState is a swarm agent's current activity.
type swarmAgentState string

const (
	agentIdle       swarmAgentState = "idle"
	agentWorking    swarmAgentState = "working"
	agentPaused     swarmAgentState = "paused"
	agentFailed     swarmAgentState = "failed"
	agentTerminated swarmAgentState = "terminated"
)

// swarmAgent is one worker in a swarm, per spec.md's
// {id,name,role,state,capabilities,max_concurrent,current_tasks,
// performance_score,tasks_completed,tasks_failed}.
type swarmAgent struct {
	ID               string
	Name             string
	Role             swarmRole
	State            swarmAgentState
	Capabilities     []string
	MaxConcurrent    int
	CurrentTasks     int
	PerformanceScore float64
	TasksCompleted   int
	TasksFailed      int
}

func newSwarmAgent(id, name string, role swarmRole, capabilities []string) swarmAgent {
	return swarmAgent{
		ID:               id,
		Name:             name,
		Role:             role,
		State:            agentIdle,
		Capabilities:     capabilities,
		MaxConcurrent:    2,
		PerformanceScore: 1.0,
	}
}

// routingStrategy is one of the swarm's task→agent assignment policies,
// per spec.md.
type routingStrategy string

const (
	RoutingRoundRobin       routingStrategy = "round_robin"
	RoutingLeastBusy        routingStrategy = "least_busy"
	RoutingSkillBased       routingStrategy = "skill_based"
	RoutingPerformanceBased routingStrategy = "performance_based"
	RoutingHybrid           routingStrategy = "hybrid"
	RoutingRandom           routingStrategy = "random"
)

// swarmTaskDef is a task to route to a swarm agent.
type swarmTaskDef struct {
	ID                   string
	Description          string
	RequiredCapabilities []string
}

// swarm owns a pool of agents and routes tasks to them under a
// configured routing strategy. Agents are routed and marked busy from
// concurrent goroutines as their sub-tasks execute in parallel, so
// mu guards every read and write of agents/rrCursor. Grounded on
// original_source/agents/core/swarm_core.rs's Swarm + SwarmAgent +
// RoutingStrategy.
type swarm struct {
	name    string
	routing routingStrategy

	mu       sync.Mutex
	agents   []swarmAgent
	rrCursor int
}

func newSwarm(name string, routing routingStrategy) *swarm {
	return &swarm{name: name, routing: routing}
}

func (s *swarm) addAgent(a swarmAgent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agents = append(s.agents, a)
}

// routeTask assigns task to an agent under the configured strategy and
// returns its ID. Returns false if no eligible agent exists. Safe for
// concurrent use: callers execute routed sub-tasks in parallel.
func (s *swarm) routeTask(task swarmTaskDef) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	eligible := s.eligibleAgents(task)
	if len(eligible) == 0 {
		return "", false
	}

	var chosen *swarmAgent
	switch s.routing {
	case RoutingLeastBusy:
		chosen = eligible[0]
		for _, a := range eligible[1:] {
			if a.CurrentTasks < chosen.CurrentTasks {
				chosen = a
			}
		}
	case RoutingPerformanceBased:
		chosen = eligible[0]
		for _, a := range eligible[1:] {
			if a.PerformanceScore > chosen.PerformanceScore {
				chosen = a
			}
		}
	case RoutingHybrid:
		bestScore := -1.0
		for _, a := range eligible {
			skill := 1.0
			util := 1.0
			if a.MaxConcurrent > 0 {
				util = 1.0 - float64(a.CurrentTasks)/float64(a.MaxConcurrent)
			}
			score := 0.4*skill + 0.3*a.PerformanceScore + 0.3*util
			if score > bestScore {
				bestScore = score
				chosen = a
			}
		}
	case RoutingRandom:
		chosen = eligible[rand.Intn(len(eligible))]
	case RoutingRoundRobin:
		chosen = eligible[s.rrCursor%len(eligible)]
		s.rrCursor++
	default: // RoutingSkillBased
		chosen = eligible[0]
	}

	chosen.CurrentTasks++
	chosen.State = agentWorking
	for i := range s.agents {
		if s.agents[i].ID == chosen.ID {
			s.agents[i] = *chosen
			break
		}
	}
	return chosen.ID, true
}

// finishTask marks id's sub-task complete, freeing it up for further
// routing and folding the outcome into its performance score. Safe for
// concurrent use.
func (s *swarm) finishTask(id string, success bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.agents {
		if s.agents[i].ID != id {
			continue
		}
		a := &s.agents[i]
		if a.CurrentTasks > 0 {
			a.CurrentTasks--
		}
		if success {
			a.TasksCompleted++
			a.PerformanceScore = a.PerformanceScore*0.9 + 0.1
		} else {
			a.TasksFailed++
			a.PerformanceScore = a.PerformanceScore * 0.9
			a.State = agentFailed
		}
		if a.State != agentFailed {
			if a.CurrentTasks == 0 {
				a.State = agentIdle
			} else {
				a.State = agentWorking
			}
		}
		return
	}
}

func (s *swarm) eligibleAgents(task swarmTaskDef) []*swarmAgent {
	var out []*swarmAgent
	for i := range s.agents {
		a := &s.agents[i]
		if a.State == agentTerminated || a.State == agentFailed {
			continue
		}
		if a.Role == swarmGeneralist || hasAllCapabilities(a.Capabilities, task.RequiredCapabilities) {
			out = append(out, a)
		}
	}
	return out
}

func hasAllCapabilities(have, want []string) bool {
	set := make(map[string]bool, len(have))
	for _, c := range have {
		set[c] = true
	}
	for _, w := range want {
		if !set[w] {
			return false
		}
	}
	return true
}

type swarmSummary struct {
	TotalAgents    int
	Idle           int
	Working        int
	AvgPerformance float64
}

func (s *swarm) summary() swarmSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := swarmSummary{TotalAgents: len(s.agents)}
	var totalPerf float64
	for _, a := range s.agents {
		switch a.State {
		case agentIdle:
			out.Idle++
		case agentWorking:
			out.Working++
		}
		totalPerf += a.PerformanceScore
	}
	if len(s.agents) > 0 {
		out.AvgPerformance = totalPerf / float64(len(s.agents))
	}
	return out
}

// decomposeForSwarm breaks a task into parallelizable, role-tagged
// sub-tasks. Preserved bit-for-bit from
// original_source/agents/core/swarm_core.rs's decompose_for_swarm per
// spec.md §9's explicit instruction.
func decomposeForSwarm(task string) []struct {
	desc string
	role swarmRole
	caps []string
} {
	lower := strings.ToLower(task)
	var subTasks []struct {
		desc string
		role swarmRole
		caps []string
	}

	if strings.Contains(lower, "refactor") || strings.Contains(lower, "architect") ||
		strings.Contains(lower, "redesign") || strings.Contains(lower, "restructure") ||
		strings.Contains(lower, "migrate") {
		subTasks = append(subTasks, struct {
			desc string
			role swarmRole
			caps []string
		}{fmt.Sprintf("Analyze and plan: %s", truncate(task, 60)), swarmArchitect, []string{"architecture", "planning"}})
	}

	if strings.Contains(lower, "implement") || strings.Contains(lower, "code") ||
		strings.Contains(lower, "write") || strings.Contains(lower, "add") ||
		strings.Contains(lower, "create") || strings.Contains(lower, "build") ||
		strings.Contains(lower, "refactor") {
		subTasks = append(subTasks, struct {
			desc string
			role swarmRole
			caps []string
		}{fmt.Sprintf("Implement changes: %s", truncate(task, 60)), swarmCoder, []string{"coding"}})
	}

	if strings.Contains(lower, "test") || strings.Contains(lower, "verify") ||
		strings.Contains(lower, "validate") || strings.Contains(lower, "refactor") ||
		strings.Contains(lower, "implement") {
		subTasks = append(subTasks, struct {
			desc string
			role swarmRole
			caps []string
		}{fmt.Sprintf("Write and run tests: %s", truncate(task, 60)), swarmTester, []string{"testing"}})
	}

	if strings.Contains(lower, "document") || strings.Contains(lower, "docs") ||
		strings.Contains(lower, "readme") || strings.Contains(lower, "refactor") {
		subTasks = append(subTasks, struct {
			desc string
			role swarmRole
			caps []string
		}{fmt.Sprintf("Update documentation: %s", truncate(task, 60)), swarmDocumenter, []string{"documentation"}})
	}

	if strings.Contains(lower, "security") || strings.Contains(lower, "audit") ||
		strings.Contains(lower, "vulnerability") {
		subTasks = append(subTasks, struct {
			desc string
			role swarmRole
			caps []string
		}{fmt.Sprintf("Security review: %s", truncate(task, 60)), swarmSecurityAnalyst, []string{"security"}})
	}

	if strings.Contains(lower, "review") || strings.Contains(lower, "quality") {
		subTasks = append(subTasks, struct {
			desc string
			role swarmRole
			caps []string
		}{fmt.Sprintf("Code review: %s", truncate(task, 60)), swarmReviewer, []string{"review"}})
	}

	if strings.Contains(lower, "deploy") || strings.Contains(lower, "release") ||
		strings.Contains(lower, "ci") || strings.Contains(lower, "cd") {
		subTasks = append(subTasks, struct {
			desc string
			role swarmRole
			caps []string
		}{fmt.Sprintf("Prepare deployment: %s", truncate(task, 60)), swarmDeployer, []string{"deployment"}})
	}

	if len(subTasks) == 0 {
		subTasks = append(subTasks,
			struct {
				desc string
				role swarmRole
				caps []string
			}{fmt.Sprintf("Execute: %s", truncate(task, 60)), swarmCoder, []string{"coding"}},
			struct {
				desc string
				role swarmRole
				caps []string
			}{fmt.Sprintf("Verify: %s", truncate(task, 60)), swarmTester, []string{"testing"}},
		)
	}

	return subTasks
}

// SwarmCore distributes a task across a pool of role-specialized agents
// running in parallel. Grounded on
// original_source/agents/core/swarm_core.rs.
type SwarmCore struct {
	metrics observability.CoreMetrics
}

// NewSwarmCore creates a SwarmCore.
func NewSwarmCore() *SwarmCore { return &SwarmCore{} }

func (c *SwarmCore) Name() string           { return "swarm" }
func (c *SwarmCore) CoreType() bus.CoreType { return bus.CoreSwarm }

func (c *SwarmCore) Capabilities() CoreCapabilities {
	return CoreCapabilities{
		CodeGeneration:     true,
		Testing:            true,
		MultiAgent:         true,
		ParallelExecution:  true,
		PersistentLearning: true,
		MaxConcurrentTasks: 8,
	}
}

func (c *SwarmCore) Description() string {
	return "Parallel agent swarm with role specialization — large-scale refactoring and batch tasks"
}

func (c *SwarmCore) SuitabilityScore(hint TaskHint) float32 {
	var base float32
	switch hint.Category {
	case CategoryLargeRefactor:
		base = 0.95
	case CategoryMultiFileComplex:
		base = 0.7
	case CategoryReview, CategoryDocumentation:
		base = 0.5
	case CategoryCodeTestFix, CategoryPipeline:
		base = 0.4
	case CategoryDevOps:
		base = 0.3
	default:
		base = 0.2
	}
	if hint.BenefitsFromParallelism {
		base += 0.15
		if base > 1.0 {
			base = 1.0
		}
	}
	return base
}

// Execute decomposes task into role-tagged sub-tasks, creates a swarm
// agent per required role, then routes and runs every sub-task
// concurrently via an errgroup — the sub-tasks are independent (each
// goes to its own role-specialized agent), so nothing gates them on
// each other the way OrchestratorCore's DAG does.
func (c *SwarmCore) Execute(ctx context.Context, agentCtx *AgentContext, task string) (CoreOutput, error) {
	start := time.Now()

	decomposed := decomposeForSwarm(task)

	sw := newSwarm("core-swarm", RoutingSkillBased)
	seen := make(map[swarmRole]bool)
	for _, dt := range decomposed {
		if seen[dt.role] {
			continue
		}
		seen[dt.role] = true
		id := fmt.Sprintf("agent-%s", dt.role)
		sw.addAgent(newSwarmAgent(id, fmt.Sprintf("%s Agent", dt.role), dt.role, dt.caps))
	}

	statuses := make([]string, len(decomposed))
	g, gctx := errgroup.WithContext(ctx)
	var routedCount int32
	var mu sync.Mutex
	for i, dt := range decomposed {
		i, dt := i, dt
		g.Go(func() error {
			agentID, ok := sw.routeTask(swarmTaskDef{
				ID:                   fmt.Sprintf("task-%d", i),
				Description:          dt.desc,
				RequiredCapabilities: dt.caps,
			})
			if !ok {
				statuses[i] = "SKIPPED"
				return nil
			}
			mu.Lock()
			routedCount++
			mu.Unlock()

			select {
			case <-gctx.Done():
				sw.finishTask(agentID, false)
				statuses[i] = "CANCELLED"
				return gctx.Err()
			default:
			}
			sw.finishTask(agentID, true)
			statuses[i] = "OK"
			return nil
		})
	}
	if err := g.Wait(); err != nil && ctx.Err() != nil {
		return CoreOutput{}, ctx.Err()
	}
	routed := int(routedCount)

	var artifacts []string
	var summaryParts []string
	for i, dt := range decomposed {
		summaryParts = append(summaryParts, fmt.Sprintf("  [%s] %s — %s", dt.role, dt.desc, statuses[i]))
		artifacts = append(artifacts, fmt.Sprintf("%s: %s", dt.role, dt.desc))
	}

	summ := sw.summary()
	progress := 1.0
	if len(decomposed) > 0 {
		progress = float64(routed) / float64(len(decomposed))
	}

	summary := fmt.Sprintf(
		"Swarm execution completed (%d/%d tasks routed, %.0f%% progress).\n"+
			"Agents: %d total, %d idle, %d working\nPerformance: %.1f%% avg\nTasks:\n%s",
		routed, len(decomposed), progress*100,
		summ.TotalAgents, summ.Idle, summ.Working, summ.AvgPerformance*100,
		strings.Join(summaryParts, "\n"),
	)

	elapsed := time.Since(start)
	c.metrics.RecordExecution(true, len(decomposed), 0, float64(elapsed.Milliseconds()))

	return CoreOutput{
		Completed: true,
		Summary:   summary,
		TurnsUsed: len(decomposed),
		Artifacts: artifacts,
		Metrics:   c.metrics.Snapshot(),
	}, nil
}

func (c *SwarmCore) Metrics() observability.CoreMetricsSnapshot { return c.metrics.Snapshot() }
func (c *SwarmCore) ResetMetrics()                              { c.metrics.Reset() }
