package ota

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/overhuman/agentrt/internal/observability"
)

// UpdateStatus is the self-update state machine's current phase.
// Transitions: Idle → SavingState → Building → Swapping →
// HealthChecking → (Completed | RollingBack → (RolledBack | Failed)).
// Grounded on original_source/ota/mod.rs's UpdateStatus.
type UpdateStatus string

const (
	StatusIdle           UpdateStatus = "idle"
	StatusChecking       UpdateStatus = "checking"
	StatusSavingState    UpdateStatus = "saving_state"
	StatusBuilding       UpdateStatus = "building"
	StatusSwapping       UpdateStatus = "swapping"
	StatusHealthChecking UpdateStatus = "health_checking"
	StatusCompleted      UpdateStatus = "completed"
	StatusRollingBack    UpdateStatus = "rolling_back"
	StatusRolledBack     UpdateStatus = "rolled_back"
	StatusFailed         UpdateStatus = "failed"
)

func (s UpdateStatus) String() string { return string(s) }

// UpdateResult is the outcome of one PerformUpdate run.
type UpdateResult struct {
	Status         UpdateStatus
	BuildResult    *BuildResult
	HealthReport   *HealthReport
	RollbackRecord *RollbackRecord
	Summary        string
}

// OtaConfig configures an OtaManager's components and retention
// limits.
type OtaConfig struct {
	DataDir           string
	BuildConfig       BuildConfig
	HealthCheckConfig HealthCheckConfig
	SchedulerConfig   SchedulerConfig
	MaxSnapshots      int
	MaxBackups        int
}

// DefaultOtaConfig builds an OtaConfig for the named binary, rooted
// under workspaceRoot/.ota. Generalizes original_source/ota/mod.rs's
// OtaConfig::default_goose, which hard-coded the "goose-cli" package and
// "goose" binary name.
func DefaultOtaConfig(workspaceRoot, binaryName string) OtaConfig {
	return OtaConfig{
		DataDir:           filepath.Join(workspaceRoot, ".ota"),
		BuildConfig:       DefaultBuildConfig(workspaceRoot, binaryName),
		HealthCheckConfig: HealthCheckConfigMinimal(DefaultBuildConfig(workspaceRoot, binaryName).ExpectedBinaryPath()),
		SchedulerConfig:   DefaultSchedulerConfig(),
		MaxSnapshots:      5,
		MaxBackups:        10,
	}
}

// OtaManager coordinates the full self-update pipeline: state capture,
// build, atomic swap, health check, and automatic rollback on failure.
// Grounded on original_source/ota/mod.rs's OtaManager.
type OtaManager struct {
	StateSaver      *StateSaver
	SelfBuilder     *SelfBuilder
	BinarySwapper   *BinarySwapper
	HealthChecker   *HealthChecker
	Rollback        *RollbackManager
	UpdateScheduler *UpdateScheduler

	mu         sync.Mutex
	status     UpdateStatus
	activePath string
	logger     *observability.Logger
}

// NewOtaManager wires every OTA component from config, managing the
// binary at activeBinaryPath.
func NewOtaManager(config OtaConfig, activeBinaryPath string, logger *observability.Logger) *OtaManager {
	snapshotDir := filepath.Join(config.DataDir, "snapshots")
	backupDir := filepath.Join(config.DataDir, "backups")
	historyDir := filepath.Join(config.DataDir, "history")

	return &OtaManager{
		StateSaver:      NewStateSaver(snapshotDir, config.MaxSnapshots),
		SelfBuilder:     NewSelfBuilder(config.BuildConfig),
		BinarySwapper:   NewBinarySwapper(backupDir, config.MaxBackups),
		HealthChecker:   NewHealthChecker(config.HealthCheckConfig),
		Rollback:        NewRollbackManager(historyDir, 20),
		UpdateScheduler: NewUpdateScheduler(config.SchedulerConfig, logger),
		status:          StatusIdle,
		activePath:      activeBinaryPath,
		logger:          logger,
	}
}

// DefaultOtaManager wires an OtaManager under workspaceRoot's default
// configuration for the named binary.
func DefaultOtaManager(workspaceRoot, binaryName string, logger *observability.Logger) *OtaManager {
	config := DefaultOtaConfig(workspaceRoot, binaryName)
	activePath := filepath.Join(workspaceRoot, "bin", binaryName)
	return NewOtaManager(config, activePath, logger)
}

// Status returns the current phase of the update state machine.
func (m *OtaManager) Status() UpdateStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

func (m *OtaManager) setStatus(s UpdateStatus) {
	m.mu.Lock()
	m.status = s
	m.mu.Unlock()
	if m.logger != nil {
		m.logger.OTAEvent(s.String(), "status_transition")
	}
}

// PerformUpdate drives the full self-update state machine: capture
// state, build, swap, health-check, and roll back automatically on
// failure. sessionIDs and extra are passed through to the state
// snapshot.
func (m *OtaManager) PerformUpdate(ctx context.Context, version, configJSON string, sessionIDs []string) (UpdateResult, error) {
	m.setStatus(StatusSavingState)
	snapshot := m.StateSaver.CaptureState(version, configJSON, sessionIDs, nil)
	if err := m.StateSaver.SaveSnapshot(snapshot); err != nil {
		if m.logger != nil {
			m.logger.Warn("state snapshot save failed, continuing", "error", err)
		}
	}
	m.Rollback.RecordSnapshot(snapshot.SnapshotID)

	m.setStatus(StatusBuilding)
	buildResult, err := m.SelfBuilder.Build(ctx)
	if err != nil || !buildResult.Success {
		m.setStatus(StatusFailed)
		summary := "Build failed"
		if err != nil {
			summary = fmt.Sprintf("Build failed: %v", err)
		}
		return UpdateResult{Status: StatusFailed, BuildResult: &buildResult, Summary: summary}, nil
	}

	m.setStatus(StatusSwapping)
	if buildResult.BinaryPath == nil {
		m.setStatus(StatusFailed)
		return UpdateResult{Status: StatusFailed, BuildResult: &buildResult, Summary: "Build succeeded but produced no binary path"}, nil
	}
	swapRecord, err := m.BinarySwapper.Swap(m.activePath, *buildResult.BinaryPath)
	if err != nil || !swapRecord.Success {
		m.setStatus(StatusFailed)
		summary := "Binary swap failed"
		if err != nil {
			summary = fmt.Sprintf("Binary swap failed: %v", err)
		}
		return UpdateResult{Status: StatusFailed, BuildResult: &buildResult, Summary: summary}, nil
	}
	m.Rollback.RecordSwap(swapRecord)

	m.setStatus(StatusHealthChecking)
	health := m.HealthChecker.RunAllChecks(ctx)
	if health.Healthy {
		m.setStatus(StatusCompleted)
		m.UpdateScheduler.RecordSuccess()
		return UpdateResult{
			Status:       StatusCompleted,
			BuildResult:  &buildResult,
			HealthReport: &health,
			Summary:      "Update completed successfully",
		}, nil
	}

	m.setStatus(StatusRollingBack)
	m.UpdateScheduler.RecordFailure()
	rollbackRecord, rollbackErr := m.Rollback.Rollback(ReasonHealthCheckFailed)
	if rollbackErr != nil {
		m.setStatus(StatusFailed)
		return UpdateResult{
			Status: StatusFailed, BuildResult: &buildResult, HealthReport: &health,
			Summary: fmt.Sprintf("Health check failed and rollback errored: %v", rollbackErr),
		}, nil
	}
	if rollbackRecord.Success {
		m.setStatus(StatusRolledBack)
		return UpdateResult{
			Status: StatusRolledBack, BuildResult: &buildResult, HealthReport: &health,
			RollbackRecord: &rollbackRecord, Summary: "Health check failed; rolled back successfully",
		}, nil
	}

	m.setStatus(StatusFailed)
	return UpdateResult{
		Status: StatusFailed, BuildResult: &buildResult, HealthReport: &health,
		RollbackRecord: &rollbackRecord, Summary: "Health check failed and rollback also failed",
	}, nil
}

// DryRun validates the build arguments without executing anything,
// always reporting Completed.
func (m *OtaManager) DryRun() UpdateResult {
	result := m.SelfBuilder.BuildDryRun()
	m.setStatus(StatusCompleted)
	return UpdateResult{
		Status:      StatusCompleted,
		BuildResult: &result,
		Summary:     "Dry run completed",
	}
}
