package agentcore

// PlayerConfig configures the Player agent — the half of the Coach/
// Player pair that executes tasks with full capabilities. Grounded on
// original_source/agents/adversarial/player.rs (not present in the
// retrieval pack; reconstructed from its call sites in coach.rs and
// mod.rs).
type PlayerConfig struct {
	Provider    string
	Model       string
	Temperature float32
	MaxTokens   int
}

// DefaultPlayerConfig shares CoachConfig's default provider, model and
// token limit, with a higher temperature (0.7 vs 0.3) and no read-only
// restriction.
func DefaultPlayerConfig() PlayerConfig {
	return PlayerConfig{
		Provider:    "anthropic",
		Model:       "claude-3-5-sonnet-20241022",
		Temperature: 0.7,
		MaxTokens:   4096,
	}
}

// PlayerResult is the outcome of one Player execution attempt.
type PlayerResult struct {
	Success      bool
	Output       string
	FilesChanged []string
	Metadata     map[string]string
}

// PlayerSuccess builds a successful PlayerResult.
func PlayerSuccess(output string) PlayerResult {
	return PlayerResult{Success: true, Output: output, Metadata: map[string]string{}}
}

// PlayerFailure builds a failed PlayerResult.
func PlayerFailure(output string) PlayerResult {
	return PlayerResult{Success: false, Output: output, Metadata: map[string]string{}}
}

// WithMetadata attaches a metadata key/value and returns the result for
// chaining, mirroring the Rust builder pattern.
func (p PlayerResult) WithMetadata(key, value string) PlayerResult {
	if p.Metadata == nil {
		p.Metadata = map[string]string{}
	}
	p.Metadata[key] = value
	return p
}

// WithFilesChanged records the files touched by this attempt.
func (p PlayerResult) WithFilesChanged(files ...string) PlayerResult {
	p.FilesChanged = append(p.FilesChanged, files...)
	return p
}

// PlayerAgent executes tasks under the adversarial pattern, applying
// Coach feedback verbatim into subsequent attempts.
type PlayerAgent struct {
	config PlayerConfig
}

// NewPlayerAgent creates a PlayerAgent with default configuration.
func NewPlayerAgent() *PlayerAgent { return &PlayerAgent{config: DefaultPlayerConfig()} }

// NewPlayerAgentWithConfig creates a PlayerAgent with custom config.
func NewPlayerAgentWithConfig(cfg PlayerConfig) *PlayerAgent {
	return &PlayerAgent{config: cfg}
}

func (p *PlayerAgent) Config() PlayerConfig { return p.config }

// Execute runs task, optionally incorporating feedback from a prior
// Coach rejection. This is a placeholder standing in for an LLM call,
// matching the teacher's own "would integrate with the actual LLM
// provider" placeholders elsewhere in the adversarial package.
func (p *PlayerAgent) Execute(task string, feedback string) PlayerResult {
	output := "Completed: " + task
	if feedback != "" {
		output = "Revised per feedback (" + feedback + "): " + task
	}
	return PlayerSuccess(output).
		WithMetadata("provider", p.config.Provider).
		WithFilesChanged("src/implementation.go")
}
