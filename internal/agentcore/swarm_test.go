package agentcore

import (
	"context"
	"testing"
)

func TestDecomposeForSwarm_Refactor(t *testing.T) {
	tasks := decomposeForSwarm("refactor the auth module and write tests")
	roles := make(map[swarmRole]bool)
	for _, dt := range tasks {
		roles[dt.role] = true
	}
	for _, want := range []swarmRole{swarmArchitect, swarmCoder, swarmTester} {
		if !roles[want] {
			t.Errorf("missing role %s in refactor decomposition", want)
		}
	}
}

func TestDecomposeForSwarm_EmptyDefaultsToCoderTester(t *testing.T) {
	tasks := decomposeForSwarm("do the thing")
	if len(tasks) != 2 {
		t.Fatalf("expected 2 default sub-tasks, got %d", len(tasks))
	}
	if tasks[0].role != swarmCoder || tasks[1].role != swarmTester {
		t.Errorf("unexpected default roles: %+v", tasks)
	}
}

func TestSwarm_RouteTask_SkillBased(t *testing.T) {
	sw := newSwarm("test-swarm", RoutingSkillBased)
	sw.addAgent(newSwarmAgent("a1", "Coder A", swarmCoder, []string{"coding"}))
	sw.addAgent(newSwarmAgent("a2", "Tester A", swarmTester, []string{"testing"}))

	id, ok := sw.routeTask(swarmTaskDef{ID: "t1", RequiredCapabilities: []string{"testing"}})
	if !ok || id != "a2" {
		t.Errorf("routeTask = %s, %v, want a2, true", id, ok)
	}
}

func TestSwarm_RouteTask_LeastBusy(t *testing.T) {
	sw := newSwarm("test-swarm", RoutingLeastBusy)
	sw.addAgent(newSwarmAgent("a1", "Generalist A", swarmGeneralist, nil))
	sw.addAgent(newSwarmAgent("a2", "Generalist B", swarmGeneralist, nil))

	sw.routeTask(swarmTaskDef{ID: "t1"})
	id, ok := sw.routeTask(swarmTaskDef{ID: "t2"})
	if !ok || id != "a2" {
		t.Errorf("routeTask = %s, %v, want a2, true", id, ok)
	}
}

func TestSwarm_RouteTask_NoEligibleAgent(t *testing.T) {
	sw := newSwarm("test-swarm", RoutingSkillBased)
	sw.addAgent(newSwarmAgent("a1", "Coder A", swarmCoder, []string{"coding"}))

	if _, ok := sw.routeTask(swarmTaskDef{ID: "t1", RequiredCapabilities: []string{"security"}}); ok {
		t.Error("expected no eligible agent")
	}
}

func TestSwarmCore_Suitability(t *testing.T) {
	core := NewSwarmCore()
	withParallel := core.SuitabilityScore(TaskHint{Category: CategoryLargeRefactor, BenefitsFromParallelism: true})
	without := core.SuitabilityScore(TaskHint{Category: CategoryLargeRefactor})
	if withParallel <= without {
		t.Errorf("parallelism bonus not applied: with=%f without=%f", withParallel, without)
	}
	if without <= 0.9 {
		t.Errorf("large-refactor suitability = %f, want > 0.9", without)
	}
}

func TestSwarmCore_ExecuteSimple(t *testing.T) {
	core := NewSwarmCore()
	ctx := NewAgentContext("agent-1", ".")

	output, err := core.Execute(context.Background(), ctx, "refactor the payments module")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !output.Completed {
		t.Error("expected completed=true")
	}
	if len(output.Artifacts) == 0 {
		t.Error("expected artifacts")
	}
}

func TestSwarmCore_ExecuteFullPipeline(t *testing.T) {
	core := NewSwarmCore()
	ctx := NewAgentContext("agent-1", ".")

	output, err := core.Execute(context.Background(), ctx,
		"refactor and restructure the billing system, add tests, update docs, run a security audit, and deploy")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !output.Completed {
		t.Error("expected completed=true")
	}
	if output.TurnsUsed < 5 {
		t.Errorf("turns used = %d, want >= 5", output.TurnsUsed)
	}
}

func TestSwarmCore_MetricsRecorded(t *testing.T) {
	core := NewSwarmCore()
	ctx := NewAgentContext("agent-1", ".")

	_, _ = core.Execute(context.Background(), ctx, "build something")
	snap := core.Metrics()
	if snap.TotalExecutions != 1 {
		t.Errorf("total executions = %d, want 1", snap.TotalExecutions)
	}
}
