package agentcore

import (
	"sort"
	"sync"

	"github.com/overhuman/agentrt/internal/bus"
)

// AgentCoreRegistry holds every registered AgentCore and recommends one by
// static suitability scoring. Reconstructed from its call site in
// original_source/agents/core/selector.rs (reg.recommend_core(&hint) ->
// (CoreType, f32)); no registry.rs survived in the retrieval pack.
type AgentCoreRegistry struct {
	mu    sync.RWMutex
	cores map[bus.CoreType]AgentCore
}

// NewAgentCoreRegistry creates an empty registry.
func NewAgentCoreRegistry() *AgentCoreRegistry {
	return &AgentCoreRegistry{cores: make(map[bus.CoreType]AgentCore)}
}

// Register adds or replaces a core under its own CoreType.
func (r *AgentCoreRegistry) Register(core AgentCore) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cores[core.CoreType()] = core
}

// Get returns the core registered for the given type, if any.
func (r *AgentCoreRegistry) Get(t bus.CoreType) (AgentCore, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.cores[t]
	return c, ok
}

// List returns every registered core's descriptor, sorted by name for
// stable output.
func (r *AgentCoreRegistry) List() []CoreDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]CoreDescriptor, 0, len(r.cores))
	for _, c := range r.cores {
		out = append(out, Describe(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// RecommendCore scores every registered core against hint via its static
// SuitabilityScore and returns the highest-scoring core type. Returns
// false if the registry is empty.
func (r *AgentCoreRegistry) RecommendCore(hint TaskHint) (bus.CoreType, float32, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var best AgentCore
	var bestScore float32 = -1

	// Iterate in a stable order so ties resolve deterministically.
	types := make([]bus.CoreType, 0, len(r.cores))
	for t := range r.cores {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	for _, t := range types {
		c := r.cores[t]
		score := c.SuitabilityScore(hint)
		if score > bestScore {
			bestScore = score
			best = c
		}
	}

	if best == nil {
		return "", 0, false
	}
	return best.CoreType(), bestScore, true
}
