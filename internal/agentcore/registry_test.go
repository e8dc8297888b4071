package agentcore

import (
	"testing"

	"github.com/overhuman/agentrt/internal/bus"
)

func TestNewDefaultRegistry_AllCoresRegistered(t *testing.T) {
	reg := NewDefaultRegistry()
	for _, ct := range bus.AllCoreTypes() {
		if _, ok := reg.Get(ct); !ok {
			t.Errorf("core type %s not registered", ct)
		}
	}
	if len(reg.List()) != len(bus.AllCoreTypes()) {
		t.Errorf("List() len = %d, want %d", len(reg.List()), len(bus.AllCoreTypes()))
	}
}

func TestAgentCoreRegistry_RecommendCore(t *testing.T) {
	reg := NewDefaultRegistry()

	ct, score, ok := reg.RecommendCore(TaskHint{Category: CategoryLargeRefactor, BenefitsFromParallelism: true})
	if !ok {
		t.Fatal("expected a recommendation")
	}
	if ct != bus.CoreSwarm {
		t.Errorf("recommended core = %s, want swarm", ct)
	}
	if score <= 0 {
		t.Errorf("score = %f, want > 0", score)
	}
}

func TestAgentCoreRegistry_RecommendCore_Pipeline(t *testing.T) {
	reg := NewDefaultRegistry()

	ct, _, ok := reg.RecommendCore(TaskHint{Category: CategoryPipeline})
	if !ok {
		t.Fatal("expected a recommendation")
	}
	if ct != bus.CoreWorkflow {
		t.Errorf("recommended core = %s, want workflow", ct)
	}
}
