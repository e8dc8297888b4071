// Package daemon implements the autonomous operation loop: a scheduler
// that runs tasks under a cascade-protected circuit breaker, with git
// branch/release/CI/docs components and a persistent audit trail.
//
// Grounded on original_source/autonomous/*.rs.
package daemon

import (
	"sync"
	"time"

	"github.com/overhuman/agentrt/internal/observability"
	"github.com/overhuman/agentrt/internal/rterr"
)

// CircuitState is a circuit breaker's current mode. Grounded on
// original_source/autonomous/failsafe.rs's CircuitState.
type CircuitState string

const (
	CircuitClosed   CircuitState = "closed"
	CircuitOpen     CircuitState = "open"
	CircuitHalfOpen CircuitState = "half-open"
)

func (s CircuitState) String() string { return string(s) }

// FailsafeConfig bounds one circuit breaker's trip/reset behavior.
type FailsafeConfig struct {
	MaxFailures      uint32
	ResetTimeout     time.Duration
	CascadeThreshold uint32
}

// DefaultFailsafeConfig mirrors the Rust Default impl.
func DefaultFailsafeConfig() FailsafeConfig {
	return FailsafeConfig{MaxFailures: 5, ResetTimeout: 60 * time.Second, CascadeThreshold: 10}
}

// BreakerStatus is a point-in-time snapshot of one breaker, safe to
// expose externally.
type BreakerStatus struct {
	Name                string
	State               CircuitState
	ConsecutiveFailures uint32
	TotalSuccesses      uint64
	TotalFailures       uint64
	LastFailureAt       *time.Time
}

// CircuitBreaker tracks consecutive failures for one named component
// and opens once MaxFailures is reached, trialing recovery after
// ResetTimeout via a HalfOpen probe. Grounded on
// original_source/autonomous/failsafe.rs's CircuitBreaker.
type CircuitBreaker struct {
	name                string
	state               CircuitState
	consecutiveFailures uint32
	totalSuccesses      uint64
	totalFailures       uint64
	lastFailureAt       *time.Time
	lastTransitionAt    time.Time
	config              FailsafeConfig
}

// NewCircuitBreaker creates a breaker under config.
func NewCircuitBreaker(name string, config FailsafeConfig) *CircuitBreaker {
	return &CircuitBreaker{name: name, state: CircuitClosed, config: config, lastTransitionAt: time.Now()}
}

// NewCircuitBreakerWithDefaults creates a breaker under
// DefaultFailsafeConfig.
func NewCircuitBreakerWithDefaults(name string) *CircuitBreaker {
	return NewCircuitBreaker(name, DefaultFailsafeConfig())
}

// AllowRequest reports whether a request may proceed, transitioning
// Open→HalfOpen once the reset timeout has elapsed.
func (b *CircuitBreaker) AllowRequest(logger *observability.Logger) bool {
	switch b.state {
	case CircuitClosed:
		return true
	case CircuitOpen:
		if b.lastFailureAt != nil && time.Since(*b.lastFailureAt) >= b.config.ResetTimeout {
			if logger != nil {
				logger.Info("circuit breaker transitioning to half-open after timeout", "breaker", b.name)
			}
			b.state = CircuitHalfOpen
			b.lastTransitionAt = time.Now()
			return true
		}
		return false
	default: // CircuitHalfOpen
		return true
	}
}

// RecordSuccess resets the failure streak and closes a half-open trial.
func (b *CircuitBreaker) RecordSuccess(logger *observability.Logger) {
	b.totalSuccesses++
	b.consecutiveFailures = 0

	if b.state == CircuitHalfOpen {
		if logger != nil {
			logger.Info("circuit breaker closing after successful half-open trial", "breaker", b.name)
		}
		b.state = CircuitClosed
		b.lastTransitionAt = time.Now()
	}
}

// RecordFailure bumps the failure streak, tripping the breaker open if
// MaxFailures is reached (or immediately re-opening from HalfOpen).
func (b *CircuitBreaker) RecordFailure(logger *observability.Logger) {
	now := time.Now()
	b.totalFailures++
	b.consecutiveFailures++
	b.lastFailureAt = &now

	switch b.state {
	case CircuitClosed:
		if b.consecutiveFailures >= b.config.MaxFailures {
			if logger != nil {
				logger.Warn("circuit breaker opening", "breaker", b.name, "failures", b.consecutiveFailures)
			}
			b.state = CircuitOpen
			b.lastTransitionAt = now
		}
	case CircuitHalfOpen:
		if logger != nil {
			logger.Warn("circuit breaker re-opening after failed half-open trial", "breaker", b.name)
		}
		b.state = CircuitOpen
		b.lastTransitionAt = now
	case CircuitOpen:
		// already open; just counted above
	}
}

// Reset manually returns the breaker to Closed.
func (b *CircuitBreaker) Reset(logger *observability.Logger) {
	if logger != nil {
		logger.Info("circuit breaker manually reset", "breaker", b.name)
	}
	b.state = CircuitClosed
	b.consecutiveFailures = 0
	b.lastFailureAt = nil
	b.lastTransitionAt = time.Now()
}

// Status returns a snapshot of the breaker.
func (b *CircuitBreaker) Status() BreakerStatus {
	return BreakerStatus{
		Name: b.name, State: b.state, ConsecutiveFailures: b.consecutiveFailures,
		TotalSuccesses: b.totalSuccesses, TotalFailures: b.totalFailures, LastFailureAt: b.lastFailureAt,
	}
}

// Failsafe monitors a set of named circuit breakers and trips a global
// shutdown once too many are open simultaneously (cascade protection).
// Grounded on original_source/autonomous/failsafe.rs's Failsafe.
type Failsafe struct {
	mu               sync.Mutex
	breakers         map[string]*CircuitBreaker
	order            []string
	cascadeThreshold uint32
	globalShutdown   bool
	logger           *observability.Logger
}

// NewFailsafe creates a Failsafe with the given cascade threshold.
func NewFailsafe(cascadeThreshold uint32, logger *observability.Logger) *Failsafe {
	return &Failsafe{breakers: make(map[string]*CircuitBreaker), cascadeThreshold: cascadeThreshold, logger: logger}
}

// NewFailsafeWithDefaults creates a Failsafe under
// DefaultFailsafeConfig's cascade threshold.
func NewFailsafeWithDefaults(logger *observability.Logger) *Failsafe {
	return NewFailsafe(DefaultFailsafeConfig().CascadeThreshold, logger)
}

// Register adds a named breaker under config.
func (f *Failsafe) Register(name string, config FailsafeConfig) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.breakers[name] = NewCircuitBreaker(name, config)
	f.order = append(f.order, name)
}

// RegisterDefault adds a named breaker under DefaultFailsafeConfig.
func (f *Failsafe) RegisterDefault(name string) {
	f.Register(name, DefaultFailsafeConfig())
}

// AllowRequest reports whether name's breaker currently allows
// requests. Returns an error if global shutdown is active or name is
// unregistered.
func (f *Failsafe) AllowRequest(name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.globalShutdown {
		return false, rterr.Unavailablef("Failsafe.AllowRequest", "global shutdown active — all operations blocked")
	}
	b, ok := f.breakers[name]
	if !ok {
		return false, rterr.NotFoundf("Failsafe.AllowRequest", "no breaker registered with name %q", name)
	}
	return b.AllowRequest(f.logger), nil
}

// RecordSuccess records a success for name's breaker.
func (f *Failsafe) RecordSuccess(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, ok := f.breakers[name]
	if !ok {
		return rterr.NotFoundf("Failsafe.RecordSuccess", "no breaker registered with name %q", name)
	}
	b.RecordSuccess(f.logger)
	return nil
}

// RecordFailure records a failure for name's breaker and checks
// whether the cascade threshold has been crossed.
func (f *Failsafe) RecordFailure(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, ok := f.breakers[name]
	if !ok {
		return rterr.NotFoundf("Failsafe.RecordFailure", "no breaker registered with name %q", name)
	}
	b.RecordFailure(f.logger)
	f.checkCascade()
	return nil
}

// OpenBreakerCount counts currently-open breakers.
func (f *Failsafe) OpenBreakerCount() uint32 {
	var n uint32
	for _, name := range f.order {
		if f.breakers[name].state == CircuitOpen {
			n++
		}
	}
	return n
}

func (f *Failsafe) checkCascade() {
	open := f.OpenBreakerCount()
	if open >= f.cascadeThreshold {
		if f.logger != nil {
			f.logger.Warn("cascade failsafe triggered — global shutdown activated", "open", open, "threshold", f.cascadeThreshold)
		}
		f.globalShutdown = true
	}
}

// IsShutdown reports whether global shutdown is active.
func (f *Failsafe) IsShutdown() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.globalShutdown
}

// ResetShutdown clears global shutdown (manual recovery).
func (f *Failsafe) ResetShutdown() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.logger != nil {
		f.logger.Info("global shutdown reset")
	}
	f.globalShutdown = false
}

// ResetBreaker manually resets a named breaker.
func (f *Failsafe) ResetBreaker(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.breakers[name]
	if !ok {
		return rterr.NotFoundf("Failsafe.ResetBreaker", "no breaker registered with name %q", name)
	}
	b.Reset(f.logger)
	return nil
}

// Status returns every breaker's snapshot, in registration order.
func (f *Failsafe) Status() []BreakerStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]BreakerStatus, 0, len(f.order))
	for _, name := range f.order {
		out = append(out, f.breakers[name].Status())
	}
	return out
}
