package agentcore

// NewDefaultRegistry builds an AgentCoreRegistry with all six execution
// cores registered under their default configuration, matching
// bus.AllCoreTypes()'s registration order.
func NewDefaultRegistry() *AgentCoreRegistry {
	reg := NewAgentCoreRegistry()
	reg.Register(NewFreeformCore())
	reg.Register(NewStructuredCore())
	reg.Register(NewOrchestratorCore())
	reg.Register(NewSwarmCore())
	reg.Register(NewWorkflowCore())
	reg.Register(NewAdversarialCore())
	return reg
}
