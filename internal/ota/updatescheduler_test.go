package ota

import (
	"strings"
	"testing"
	"time"
)

func TestUpdatePolicy_String(t *testing.T) {
	cases := map[UpdatePolicy]string{
		PolicyDisabled:  "disabled",
		PolicyOnStartup: "on_startup",
		PolicyPeriodic:  "periodic",
		PolicyManual:    "manual",
	}
	for policy, want := range cases {
		if policy.String() != want {
			t.Errorf("%v.String() = %q, want %q", policy, policy.String(), want)
		}
	}
}

func TestDefaultSchedulerConfig(t *testing.T) {
	config := DefaultSchedulerConfig()
	if config.Policy != PolicyManual {
		t.Errorf("policy = %v", config.Policy)
	}
	if config.AutoApply {
		t.Error("expected auto-apply false by default")
	}
	if !config.RequireConfirmation {
		t.Error("expected confirmation required by default")
	}
	if config.MaxConsecutiveFailures != 3 {
		t.Errorf("max failures = %d", config.MaxConsecutiveFailures)
	}
}

func TestShouldCheck_Disabled(t *testing.T) {
	config := DefaultSchedulerConfig()
	config.Policy = PolicyDisabled
	s := NewUpdateScheduler(config, nil)
	if s.ShouldCheckNow() {
		t.Error("expected false for disabled policy")
	}
}

func TestShouldCheck_Manual(t *testing.T) {
	s := NewUpdateScheduler(DefaultSchedulerConfig(), nil)
	if s.ShouldCheckNow() {
		t.Error("expected false for manual policy")
	}
}

func TestShouldCheck_OnStartup_FirstTime(t *testing.T) {
	config := DefaultSchedulerConfig()
	config.Policy = PolicyOnStartup
	s := NewUpdateScheduler(config, nil)
	if !s.ShouldCheckNow() {
		t.Error("expected true on first check")
	}
}

func TestShouldCheck_OnStartup_AlreadyChecked(t *testing.T) {
	config := DefaultSchedulerConfig()
	config.Policy = PolicyOnStartup
	s := NewUpdateScheduler(config, nil)
	s.RecordCheck()
	if s.ShouldCheckNow() {
		t.Error("expected false after check")
	}
}

func TestShouldCheck_Periodic_NeverChecked(t *testing.T) {
	config := DefaultSchedulerConfig()
	config.Policy = PolicyPeriodic
	s := NewUpdateScheduler(config, nil)
	if !s.ShouldCheckNow() {
		t.Error("expected true when never checked")
	}
}

func TestShouldCheck_Periodic_RecentlyChecked(t *testing.T) {
	config := DefaultSchedulerConfig()
	config.Policy = PolicyPeriodic
	s := NewUpdateScheduler(config, nil)
	s.RecordCheck()
	if s.ShouldCheckNow() {
		t.Error("expected false just after check")
	}
}

func TestRecordCheck_IncrementsCounter(t *testing.T) {
	s := NewUpdateSchedulerWithDefaults(nil)
	if s.State().TotalChecks != 0 {
		t.Fatal("expected zero initial checks")
	}
	s.RecordCheck()
	if s.State().TotalChecks != 1 {
		t.Errorf("total checks = %d", s.State().TotalChecks)
	}
	s.RecordCheck()
	if s.State().TotalChecks != 2 {
		t.Errorf("total checks = %d", s.State().TotalChecks)
	}
}

func TestRecordSuccess(t *testing.T) {
	s := NewUpdateSchedulerWithDefaults(nil)
	s.RecordSuccess()

	state := s.State()
	if state.TotalUpdates != 1 {
		t.Errorf("total updates = %d", state.TotalUpdates)
	}
	if state.LastUpdate == nil {
		t.Error("expected last update set")
	}
	if state.ConsecutiveFailures != 0 {
		t.Errorf("consecutive failures = %d", state.ConsecutiveFailures)
	}
}

func TestRecordFailure_PausesAfterMax(t *testing.T) {
	config := DefaultSchedulerConfig()
	config.MaxConsecutiveFailures = 2
	s := NewUpdateScheduler(config, nil)

	s.RecordFailure()
	if s.State().Paused {
		t.Error("expected not paused after first failure")
	}

	s.RecordFailure()
	if !s.State().Paused {
		t.Error("expected paused after max failures")
	}
}

func TestPauseAndResume(t *testing.T) {
	s := NewUpdateSchedulerWithDefaults(nil)

	s.Pause()
	if !s.State().Paused {
		t.Error("expected paused")
	}

	s.Resume()
	if s.State().Paused {
		t.Error("expected not paused after resume")
	}
	if s.State().ConsecutiveFailures != 0 {
		t.Error("expected failures reset after resume")
	}
}

func TestPausedPreventsCheck(t *testing.T) {
	config := DefaultSchedulerConfig()
	config.Policy = PolicyPeriodic
	s := NewUpdateScheduler(config, nil)

	if !s.ShouldCheckNow() {
		t.Fatal("expected true before pause")
	}

	s.Pause()
	if s.ShouldCheckNow() {
		t.Error("expected false while paused")
	}
}

func TestCanAutoApply(t *testing.T) {
	config := DefaultSchedulerConfig()
	config.AutoApply = true
	s := NewUpdateScheduler(config, nil)
	if !s.CanAutoApply() {
		t.Error("expected true with auto-apply enabled")
	}

	s.Pause()
	if s.CanAutoApply() {
		t.Error("expected false while paused")
	}
}

func TestCanAutoApply_Disabled(t *testing.T) {
	s := NewUpdateSchedulerWithDefaults(nil)
	if s.CanAutoApply() {
		t.Error("expected false with auto-apply disabled by default")
	}
}

func TestStatusSummary(t *testing.T) {
	s := NewUpdateSchedulerWithDefaults(nil)
	summary := s.StatusSummary()
	if !strings.Contains(summary, "manual") {
		t.Errorf("summary = %q", summary)
	}
	if !strings.Contains(summary, "Paused: false") {
		t.Errorf("summary = %q", summary)
	}
}

func TestReset(t *testing.T) {
	s := NewUpdateSchedulerWithDefaults(nil)
	s.RecordCheck()
	s.RecordSuccess()
	s.RecordFailure()

	s.Reset()
	state := s.State()
	if state.TotalChecks != 0 || state.TotalUpdates != 0 || state.ConsecutiveFailures != 0 {
		t.Errorf("state not reset: %+v", state)
	}
}

func TestCooldown(t *testing.T) {
	config := DefaultSchedulerConfig()
	config.MinCooldown = time.Hour
	s := NewUpdateScheduler(config, nil)

	if s.IsInCooldown() {
		t.Error("expected not in cooldown before any check")
	}

	s.RecordCheck()
	if !s.IsInCooldown() {
		t.Error("expected in cooldown right after check")
	}
}
