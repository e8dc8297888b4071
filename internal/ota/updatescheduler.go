package ota

import (
	"fmt"
	"sync"
	"time"

	"github.com/overhuman/agentrt/internal/observability"
)

// UpdatePolicy controls when the scheduler should check for updates.
// Grounded on original_source/ota/update_scheduler.rs's UpdatePolicy.
type UpdatePolicy string

const (
	PolicyDisabled  UpdatePolicy = "disabled"
	PolicyOnStartup UpdatePolicy = "on_startup"
	PolicyPeriodic  UpdatePolicy = "periodic"
	PolicyManual    UpdatePolicy = "manual"
)

func (p UpdatePolicy) String() string { return string(p) }

// SchedulerConfig bounds the update scheduler's behavior.
type SchedulerConfig struct {
	Policy                 UpdatePolicy
	CheckInterval          time.Duration
	MinCooldown            time.Duration
	AutoApply              bool
	RequireConfirmation    bool
	MaxConsecutiveFailures uint32
}

// DefaultSchedulerConfig mirrors the Rust Default impl: manual policy,
// hourly interval, 5 minute cooldown, confirmation required.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Policy:                 PolicyManual,
		CheckInterval:          time.Hour,
		MinCooldown:            5 * time.Minute,
		AutoApply:              false,
		RequireConfirmation:    true,
		MaxConsecutiveFailures: 3,
	}
}

// UpdateCheckStatus reports the outcome of one update availability
// check.
type UpdateCheckStatus struct {
	UpdateAvailable bool
	Description     string
	CheckedAt       time.Time
	Source          string
	NewVersion      *string
}

// SchedulerState tracks the scheduler's mutable counters.
type SchedulerState struct {
	LastCheck           *time.Time
	LastUpdate          *time.Time
	ConsecutiveFailures uint32
	TotalChecks         uint64
	TotalUpdates        uint64
	Paused              bool
}

// UpdateScheduler schedules periodic self-update checks, respecting
// cooldowns and pausing after repeated failures. Grounded on
// original_source/ota/update_scheduler.rs's UpdateScheduler.
type UpdateScheduler struct {
	mu     sync.Mutex
	config SchedulerConfig
	state  SchedulerState
	logger *observability.Logger
}

// NewUpdateScheduler creates an UpdateScheduler under config.
func NewUpdateScheduler(config SchedulerConfig, logger *observability.Logger) *UpdateScheduler {
	return &UpdateScheduler{config: config, logger: logger}
}

// NewUpdateSchedulerWithDefaults creates an UpdateScheduler under
// DefaultSchedulerConfig.
func NewUpdateSchedulerWithDefaults(logger *observability.Logger) *UpdateScheduler {
	return NewUpdateScheduler(DefaultSchedulerConfig(), logger)
}

// Config returns the scheduler's configuration.
func (s *UpdateScheduler) Config() SchedulerConfig { return s.config }

// State returns a copy of the current scheduler state.
func (s *UpdateScheduler) State() SchedulerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ShouldCheckNow reports whether an update check should run now, per
// the configured policy.
func (s *UpdateScheduler) ShouldCheckNow() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Paused {
		return false
	}

	switch s.config.Policy {
	case PolicyDisabled, PolicyManual:
		return false
	case PolicyOnStartup:
		return s.state.LastCheck == nil
	case PolicyPeriodic:
		if s.state.LastCheck == nil {
			return true
		}
		return time.Since(*s.state.LastCheck) >= s.config.CheckInterval
	default:
		return false
	}
}

// IsInCooldown reports whether a check happened too recently to allow
// another.
func (s *UpdateScheduler) IsInCooldown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.LastCheck == nil {
		return false
	}
	return time.Since(*s.state.LastCheck) < s.config.MinCooldown
}

// RecordCheck marks that an update check was performed.
func (s *UpdateScheduler) RecordCheck() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	s.state.LastCheck = &now
	s.state.TotalChecks++
	if s.logger != nil {
		s.logger.OTAEvent("scheduler", "check_recorded", "total_checks", s.state.TotalChecks)
	}
}

// RecordSuccess marks a successful update, resetting the failure
// streak.
func (s *UpdateScheduler) RecordSuccess() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	s.state.LastUpdate = &now
	s.state.ConsecutiveFailures = 0
	s.state.TotalUpdates++
	if s.logger != nil {
		s.logger.OTAEvent("scheduler", "success_recorded", "total_updates", s.state.TotalUpdates)
	}
}

// RecordFailure marks a failed update, pausing the scheduler once
// MaxConsecutiveFailures is reached.
func (s *UpdateScheduler) RecordFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.ConsecutiveFailures++
	if s.state.ConsecutiveFailures >= s.config.MaxConsecutiveFailures {
		if s.logger != nil {
			s.logger.OTAEvent("scheduler", "paused_after_max_failures",
				"failures", s.state.ConsecutiveFailures, "max", s.config.MaxConsecutiveFailures)
		}
		s.state.Paused = true
	}
}

// Pause manually pauses the scheduler.
func (s *UpdateScheduler) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Paused = true
}

// Resume clears the paused flag and resets the failure streak.
func (s *UpdateScheduler) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Paused = false
	s.state.ConsecutiveFailures = 0
}

// CanAutoApply reports whether an update may be applied without user
// confirmation: auto-apply is enabled, the scheduler is not paused, and
// the failure streak is below the max.
func (s *UpdateScheduler) CanAutoApply() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.config.AutoApply {
		return false
	}
	return !s.state.Paused && s.state.ConsecutiveFailures < s.config.MaxConsecutiveFailures
}

// StatusSummary renders a one-line human-readable summary.
func (s *UpdateScheduler) StatusSummary() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fmt.Sprintf("Policy: %s, Paused: %t, Checks: %d, Updates: %d, Failures: %d/%d",
		s.config.Policy, s.state.Paused, s.state.TotalChecks, s.state.TotalUpdates,
		s.state.ConsecutiveFailures, s.config.MaxConsecutiveFailures)
}

// Reset clears all scheduler state back to zero values.
func (s *UpdateScheduler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = SchedulerState{}
}
