// Package runtime is the composition root: it exclusively owns the
// agent registry, router, shared memory, experience/skill/reflection
// stores, the autonomous daemon, and the OTA update manager, wiring
// them the way cmd/overhuman/main.go's bootstrap() wired memory, brain,
// and reflection before handing them to pipeline.New. Nothing outside
// this package constructs those components directly in cmd/agentrt.
package runtime

import (
	"context"
	"fmt"

	"github.com/overhuman/agentrt/internal/agentcore"
	"github.com/overhuman/agentrt/internal/bus"
	"github.com/overhuman/agentrt/internal/config"
	"github.com/overhuman/agentrt/internal/daemon"
	"github.com/overhuman/agentrt/internal/observability"
	"github.com/overhuman/agentrt/internal/ota"
	"github.com/overhuman/agentrt/internal/persistence"
)

// AgentRuntime assembles every SPEC_FULL.md subsystem: core selection
// (Cores/Selector), the agent bus (Registry/Router/SharedMemory), the
// autonomous daemon (Daemon), and the OTA pipeline (OTA). Grounded on
// original_source/main.rs's top-level wiring and on
// cmd/overhuman/main.go's bootstrap(), generalized from the Overhuman
// pipeline's Soul/Brain/Senses subsystems onto these four.
type AgentRuntime struct {
	config config.Config
	logger *observability.Logger
	selfID bus.AgentId

	Registry     *bus.AgentRegistry
	Router       *bus.Router
	SharedMemory *bus.SharedMemory
	Experiences  *persistence.ExperienceStore
	Skills       *persistence.SkillStore
	Reflections  *persistence.ReflectionStore
	Cores        *agentcore.AgentCoreRegistry
	Selector     *agentcore.CoreSelector
	Daemon       *daemon.AutonomousDaemon
	OTA          *ota.OtaManager
}

// New builds an AgentRuntime from cfg, opening every backing store and
// wiring the daemon and OTA manager. binaryName/version identify this
// build to the daemon's release manager and the OTA self-builder.
func New(cfg config.Config, binaryName, version string, logger *observability.Logger) (*AgentRuntime, error) {
	if err := cfg.EnsureDirs(); err != nil {
		return nil, fmt.Errorf("ensure data dirs: %w", err)
	}

	rt := &AgentRuntime{config: cfg, logger: logger}

	var err error
	if rt.Registry, err = bus.OpenAgentRegistry(cfg.AgentsDBPath); err != nil {
		return nil, fmt.Errorf("open agent registry: %w", err)
	}
	rt.Router = bus.NewRouter(rt.Registry)

	if rt.SharedMemory, err = bus.OpenSharedMemory(cfg.MemoryDBPath); err != nil {
		rt.Close()
		return nil, fmt.Errorf("open shared memory: %w", err)
	}

	if rt.Experiences, err = persistence.OpenExperienceStore(cfg.ExperiencesDBPath, cfg.MinExperienceSamples); err != nil {
		rt.Close()
		return nil, fmt.Errorf("open experience store: %w", err)
	}

	if rt.Skills, err = persistence.OpenSkillStore(cfg.SkillsDBPath); err != nil {
		rt.Close()
		return nil, fmt.Errorf("open skill store: %w", err)
	}

	if rt.Reflections, err = persistence.OpenReflectionStore(cfg.ReflectionsDBPath); err != nil {
		rt.Close()
		return nil, fmt.Errorf("open reflection store: %w", err)
	}

	rt.Cores = agentcore.NewDefaultRegistry()
	rt.Selector = agentcore.NewCoreSelectorWithDefaults(rt.Experiences, logger)

	if rt.Daemon, err = daemon.NewAutonomousDaemon(cfg.DataDir, cfg.DataDir, cfg.AuditDBPath, binaryName, version, logger); err != nil {
		rt.Close()
		return nil, fmt.Errorf("new autonomous daemon: %w", err)
	}

	rt.OTA = ota.DefaultOtaManager(cfg.DataDir, binaryName, logger)

	rt.selfID = bus.NewAgentId()
	if err := rt.Registry.RegisterAgent(bus.AgentRecord{
		ID:           rt.selfID,
		DisplayName:  binaryName,
		Role:         bus.RolePlanner,
		Status:       bus.AgentOnline,
		Capabilities: []string{"core-selection", "autonomous-daemon", "ota"},
	}); err != nil {
		rt.Close()
		return nil, fmt.Errorf("register self: %w", err)
	}

	return rt, nil
}

// SelfID is the AgentId this runtime registered itself under.
func (rt *AgentRuntime) SelfID() bus.AgentId { return rt.selfID }

// Config returns the resolved configuration this runtime was built from.
func (rt *AgentRuntime) Config() config.Config { return rt.config }

// Dispatch selects the best-suited core for task and executes it,
// tying the core-selection subsystem to the agent bus's shared memory
// in one call — the composition root's analogue of pipeline.go's
// execute() stage, minus the LLM-call machinery this module doesn't
// carry.
func (rt *AgentRuntime) Dispatch(ctx context.Context, task string) (agentcore.CoreOutput, error) {
	selection := rt.Selector.SelectCore(task, rt.Cores)
	core, ok := rt.Cores.Get(selection.CoreType)
	if !ok {
		return agentcore.CoreOutput{}, fmt.Errorf("selected core %q is not registered", selection.CoreType)
	}

	agentCtx := agentcore.NewAgentContext(rt.selfID, rt.config.DataDir)
	agentCtx.Memory = rt.SharedMemory

	out, err := core.Execute(ctx, agentCtx, task)
	if err != nil {
		return out, err
	}

	exp := persistence.NewExperience(task, selection.CoreType, out.Completed, out.TurnsUsed, 0, 0).
		WithCategory(selection.Category)
	if recErr := rt.Experiences.Store(exp); recErr != nil && rt.logger != nil {
		rt.logger.Warn("dispatch: failed to record experience", "error", recErr)
	}
	return out, nil
}

// StartDaemon marks the autonomous daemon running.
func (rt *AgentRuntime) StartDaemon() { rt.Daemon.Start() }

// StopDaemon marks the autonomous daemon stopped.
func (rt *AgentRuntime) StopDaemon() { rt.Daemon.Stop() }

// Close releases every backing store this runtime opened. Safe to call
// on a partially-constructed runtime (New calls this on its own error
// paths), since every field is nil-checked.
func (rt *AgentRuntime) Close() error {
	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if rt.Daemon != nil {
		record(rt.Daemon.Close())
	}
	if rt.Reflections != nil {
		record(rt.Reflections.Close())
	}
	if rt.Skills != nil {
		record(rt.Skills.Close())
	}
	if rt.Experiences != nil {
		record(rt.Experiences.Close())
	}
	if rt.SharedMemory != nil {
		record(rt.SharedMemory.Close())
	}
	if rt.Registry != nil {
		record(rt.Registry.Close())
	}
	return firstErr
}
