package daemon

import (
	"testing"
	"time"

	"github.com/overhuman/agentrt/internal/rterr"
)

func TestCircuitBreaker_ClosedAllowsRequests(t *testing.T) {
	b := NewCircuitBreakerWithDefaults("test")
	if !b.AllowRequest(nil) {
		t.Error("expected closed breaker to allow requests")
	}
}

func TestCircuitBreaker_OpensAfterMaxFailures(t *testing.T) {
	config := FailsafeConfig{MaxFailures: 3, ResetTimeout: time.Hour}
	b := NewCircuitBreaker("test", config)

	for i := 0; i < 2; i++ {
		b.RecordFailure(nil)
	}
	if b.Status().State != CircuitClosed {
		t.Error("expected still closed before max failures")
	}

	b.RecordFailure(nil)
	if b.Status().State != CircuitOpen {
		t.Error("expected open after max failures")
	}
	if b.AllowRequest(nil) {
		t.Error("expected open breaker to reject requests")
	}
}

func TestCircuitBreaker_HalfOpenAfterResetTimeout(t *testing.T) {
	config := FailsafeConfig{MaxFailures: 1, ResetTimeout: 10 * time.Millisecond}
	b := NewCircuitBreaker("test", config)

	b.RecordFailure(nil)
	if b.Status().State != CircuitOpen {
		t.Fatal("expected open")
	}

	time.Sleep(20 * time.Millisecond)
	if !b.AllowRequest(nil) {
		t.Error("expected half-open probe to be allowed after timeout")
	}
	if b.Status().State != CircuitHalfOpen {
		t.Error("expected half-open state")
	}
}

func TestCircuitBreaker_SuccessClosesHalfOpen(t *testing.T) {
	config := FailsafeConfig{MaxFailures: 1, ResetTimeout: 10 * time.Millisecond}
	b := NewCircuitBreaker("test", config)
	b.RecordFailure(nil)
	time.Sleep(20 * time.Millisecond)
	b.AllowRequest(nil)

	b.RecordSuccess(nil)
	if b.Status().State != CircuitClosed {
		t.Error("expected closed after successful half-open trial")
	}
	if b.Status().ConsecutiveFailures != 0 {
		t.Error("expected failure streak reset")
	}
}

func TestCircuitBreaker_FailureReopensHalfOpen(t *testing.T) {
	config := FailsafeConfig{MaxFailures: 1, ResetTimeout: 10 * time.Millisecond}
	b := NewCircuitBreaker("test", config)
	b.RecordFailure(nil)
	time.Sleep(20 * time.Millisecond)
	b.AllowRequest(nil)

	b.RecordFailure(nil)
	if b.Status().State != CircuitOpen {
		t.Error("expected re-opened after failed half-open trial")
	}
}

func TestCircuitBreaker_Reset(t *testing.T) {
	config := FailsafeConfig{MaxFailures: 1, ResetTimeout: time.Hour}
	b := NewCircuitBreaker("test", config)
	b.RecordFailure(nil)
	if b.Status().State != CircuitOpen {
		t.Fatal("expected open")
	}

	b.Reset(nil)
	status := b.Status()
	if status.State != CircuitClosed || status.ConsecutiveFailures != 0 {
		t.Errorf("expected reset to closed state: %+v", status)
	}
}

func TestFailsafe_RegisterAndAllow(t *testing.T) {
	f := NewFailsafeWithDefaults(nil)
	f.RegisterDefault("component-a")

	allowed, err := f.AllowRequest("component-a")
	if err != nil {
		t.Fatalf("AllowRequest: %v", err)
	}
	if !allowed {
		t.Error("expected request allowed")
	}
}

func TestFailsafe_UnregisteredNameErrors(t *testing.T) {
	f := NewFailsafeWithDefaults(nil)
	if _, err := f.AllowRequest("missing"); !rterr.Is(err, rterr.NotFound) {
		t.Errorf("expected NotFound error, got %v", err)
	}
	if err := f.RecordSuccess("missing"); !rterr.Is(err, rterr.NotFound) {
		t.Errorf("expected NotFound error, got %v", err)
	}
	if err := f.RecordFailure("missing"); !rterr.Is(err, rterr.NotFound) {
		t.Errorf("expected NotFound error, got %v", err)
	}
	if err := f.ResetBreaker("missing"); !rterr.Is(err, rterr.NotFound) {
		t.Errorf("expected NotFound error, got %v", err)
	}
}

func TestFailsafe_CascadeShutdown(t *testing.T) {
	f := NewFailsafe(2, nil)
	f.Register("a", FailsafeConfig{MaxFailures: 1, ResetTimeout: time.Hour})
	f.Register("b", FailsafeConfig{MaxFailures: 1, ResetTimeout: time.Hour})

	f.RecordFailure("a")
	if f.IsShutdown() {
		t.Error("expected not shut down with one open breaker")
	}

	f.RecordFailure("b")
	if !f.IsShutdown() {
		t.Error("expected global shutdown once cascade threshold reached")
	}

	_, err := f.AllowRequest("a")
	if !rterr.Is(err, rterr.Unavailable) {
		t.Errorf("expected Unavailable error during shutdown, got %v", err)
	}
}

func TestFailsafe_ResetShutdown(t *testing.T) {
	f := NewFailsafe(1, nil)
	f.Register("a", FailsafeConfig{MaxFailures: 1, ResetTimeout: time.Hour})
	f.RecordFailure("a")
	if !f.IsShutdown() {
		t.Fatal("expected shutdown")
	}

	f.ResetShutdown()
	if f.IsShutdown() {
		t.Error("expected shutdown cleared")
	}
}

func TestFailsafe_OpenBreakerCount(t *testing.T) {
	f := NewFailsafe(10, nil)
	f.Register("a", FailsafeConfig{MaxFailures: 1, ResetTimeout: time.Hour})
	f.Register("b", FailsafeConfig{MaxFailures: 1, ResetTimeout: time.Hour})

	f.RecordFailure("a")
	if f.OpenBreakerCount() != 1 {
		t.Errorf("open count = %d, want 1", f.OpenBreakerCount())
	}
	f.RecordFailure("b")
	if f.OpenBreakerCount() != 2 {
		t.Errorf("open count = %d, want 2", f.OpenBreakerCount())
	}
}

func TestFailsafe_StatusOrder(t *testing.T) {
	f := NewFailsafeWithDefaults(nil)
	f.RegisterDefault("first")
	f.RegisterDefault("second")

	status := f.Status()
	if len(status) != 2 {
		t.Fatalf("status entries = %d, want 2", len(status))
	}
	if status[0].Name != "first" || status[1].Name != "second" {
		t.Errorf("unexpected order: %+v", status)
	}
}
