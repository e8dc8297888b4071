package agentcore

import (
	"context"
	"fmt"
	"time"

	"github.com/overhuman/agentrt/internal/bus"
	"github.com/overhuman/agentrt/internal/observability"
)

// adversarialRole distinguishes the two agents in the Coach/Player
// pair. Grounded on original_source/agents/adversarial/mod.rs's
// AdversarialRole.
type adversarialRole string

const (
	roleAdversarialPlayer adversarialRole = "player"
	roleAdversarialCoach  adversarialRole = "coach"
)

// AdversarialConfig configures the G3 adversarial cooperation pattern:
// Player executes, Coach reviews, nothing reaches the user without
// Coach approval. Grounded on
// original_source/agents/adversarial/mod.rs's AdversarialConfig.
type AdversarialConfig struct {
	PlayerConfig          PlayerConfig
	CoachConfig           CoachConfig
	MaxReviewCycles       int
	RequireApproval       bool
	EnableSelfImprovement bool
}

// DefaultAdversarialConfig mirrors the Rust Default impl.
func DefaultAdversarialConfig() AdversarialConfig {
	return AdversarialConfig{
		PlayerConfig:          DefaultPlayerConfig(),
		CoachConfig:           DefaultCoachConfig(),
		MaxReviewCycles:       3,
		RequireApproval:       true,
		EnableSelfImprovement: true,
	}
}

// AdversarialCore runs a task through the Coach/Player loop: Player
// attempts the task, Coach reviews it against quality standards, and
// rejections feed back into the next Player attempt until approval or
// MaxReviewCycles is exhausted. Grounded on
// original_source/agents/adversarial/{mod,coach}.rs, with player.rs and
// review.rs reconstructed from their call sites since neither survived
// the retrieval pack.
type AdversarialCore struct {
	config  AdversarialConfig
	player  *PlayerAgent
	coach   *CoachAgent
	metrics observability.CoreMetrics
}

// NewAdversarialCore creates an AdversarialCore with default
// configuration.
func NewAdversarialCore() *AdversarialCore {
	return NewAdversarialCoreWithConfig(DefaultAdversarialConfig())
}

// NewAdversarialCoreWithConfig creates an AdversarialCore with custom
// configuration.
func NewAdversarialCoreWithConfig(cfg AdversarialConfig) *AdversarialCore {
	return &AdversarialCore{
		config: cfg,
		player: NewPlayerAgentWithConfig(cfg.PlayerConfig),
		coach:  NewCoachAgentWithConfig(cfg.CoachConfig),
	}
}

func (c *AdversarialCore) Name() string           { return "adversarial" }
func (c *AdversarialCore) CoreType() bus.CoreType { return bus.CoreAdversarial }

func (c *AdversarialCore) Capabilities() CoreCapabilities {
	return CoreCapabilities{
		CodeGeneration:     true,
		Testing:            true,
		AdversarialReview:  true,
		PersistentLearning: true,
		MaxConcurrentTasks: 1,
	}
}

func (c *AdversarialCore) Description() string {
	return "Coach/Player adversarial review — high-stakes changes needing a second, higher-standard pass"
}

func (c *AdversarialCore) SuitabilityScore(hint TaskHint) float32 {
	switch hint.Category {
	case CategoryReview:
		return 0.95
	case CategoryDevOps:
		return 0.6
	case CategoryCodeTestFix:
		return 0.5
	case CategoryLargeRefactor:
		return 0.5
	case CategoryMultiFileComplex:
		return 0.4
	case CategoryDocumentation:
		return 0.3
	default:
		return 0.2
	}
}

// Execute runs the Coach/Player loop to approval or exhaustion.
func (c *AdversarialCore) Execute(ctx context.Context, agentCtx *AgentContext, task string) (CoreOutput, error) {
	start := time.Now()

	select {
	case <-ctx.Done():
		return CoreOutput{}, ctx.Err()
	default:
	}

	result, history, stats := runReviewCycle(c.player, c.coach, task, c.config.MaxReviewCycles)

	var artifacts []string
	artifacts = append(artifacts, result.FilesChanged...)

	approved := stats.Outcome == outcomeApproved
	completed := approved || !c.config.RequireApproval

	summary := fmt.Sprintf(
		"Adversarial review %s after %d cycle(s), quality=%.2f.\nPlayer output: %s",
		stats.Outcome, stats.CyclesRun, stats.FinalQuality, result.Output,
	)

	elapsed := time.Since(start)
	c.metrics.RecordExecution(completed, stats.CyclesRun, 0, float64(elapsed.Milliseconds()))

	return CoreOutput{
		Completed: completed,
		Summary:   summary,
		TurnsUsed: len(history),
		Artifacts: artifacts,
		Metrics:   c.metrics.Snapshot(),
	}, nil
}

func (c *AdversarialCore) Metrics() observability.CoreMetricsSnapshot { return c.metrics.Snapshot() }
func (c *AdversarialCore) ResetMetrics()                              { c.metrics.Reset() }
