package ota

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"runtime"
	"time"
)

// HealthCheck is one probe's outcome within a HealthReport.
type HealthCheck struct {
	Name       string
	Passed     bool
	Message    string
	DurationMs int64
}

// HealthReport is the aggregate result of running every configured
// health check. Healthy iff every check passed. Grounded on the spec's
// HealthReport{healthy, checks[]} (original_source/ota/health_checker.rs
// is absent from the retrieval pack; this is reconstructed from
// spec.md section 4.6 plus mod.rs's HealthChecker::new/config/
// run_all_checks call sites).
type HealthReport struct {
	Healthy   bool
	Checks    []HealthCheck
	CheckedAt time.Time
}

// HealthCheckConfig configures the health-check battery run after a
// binary swap.
type HealthCheckConfig struct {
	// BinaryPath is checked for existence and executability.
	BinaryPath string
	// SmokeTestCommand, if set, is run as an additional probe (e.g.
	// the new binary with a --version or --healthcheck flag).
	SmokeTestCommand []string
	SmokeTestTimeout time.Duration
	// EndpointURL, if set, is GETted and must return 2xx.
	EndpointURL     string
	EndpointTimeout time.Duration
}

// HealthCheckConfigMinimal returns a config that only checks the
// binary exists and is executable, matching the Rust test helper
// HealthCheckConfig::minimal(binary_path).
func HealthCheckConfigMinimal(binaryPath string) HealthCheckConfig {
	return HealthCheckConfig{
		BinaryPath:       binaryPath,
		SmokeTestTimeout: 10 * time.Second,
		EndpointTimeout:  5 * time.Second,
	}
}

// HealthChecker runs a configurable battery of post-swap health
// checks.
type HealthChecker struct {
	config HealthCheckConfig
}

// NewHealthChecker creates a HealthChecker under config.
func NewHealthChecker(config HealthCheckConfig) *HealthChecker {
	return &HealthChecker{config: config}
}

// Config returns the health checker's configuration.
func (h *HealthChecker) Config() HealthCheckConfig { return h.config }

// RunAllChecks runs every configured probe and aggregates the result.
func (h *HealthChecker) RunAllChecks(ctx context.Context) HealthReport {
	var checks []HealthCheck

	checks = append(checks, h.checkBinaryExecutable(ctx))

	if len(h.config.SmokeTestCommand) > 0 {
		checks = append(checks, h.checkSmokeTest(ctx))
	}

	if h.config.EndpointURL != "" {
		checks = append(checks, h.checkEndpoint(ctx))
	}

	healthy := true
	for _, c := range checks {
		if !c.Passed {
			healthy = false
			break
		}
	}

	return HealthReport{Healthy: healthy, Checks: checks, CheckedAt: time.Now().UTC()}
}

func (h *HealthChecker) checkBinaryExecutable(ctx context.Context) HealthCheck {
	start := time.Now()
	ok, err := VerifyBinary(h.config.BinaryPath)
	elapsed := time.Since(start).Milliseconds()
	if err != nil || !ok {
		msg := "binary is not executable"
		if err != nil {
			msg = err.Error()
		}
		return HealthCheck{Name: "binary_executable", Passed: false, Message: msg, DurationMs: elapsed}
	}
	if info, statErr := os.Stat(h.config.BinaryPath); statErr == nil && runtime.GOOS != "windows" && info.Mode().Perm()&0o111 == 0 {
		return HealthCheck{Name: "binary_executable", Passed: false, Message: "binary is not executable", DurationMs: elapsed}
	}
	return HealthCheck{Name: "binary_executable", Passed: true, Message: "binary present and non-empty", DurationMs: elapsed}
}

func (h *HealthChecker) checkSmokeTest(ctx context.Context) HealthCheck {
	start := time.Now()
	timeoutCtx, cancel := context.WithTimeout(ctx, h.config.SmokeTestTimeout)
	defer cancel()

	cmd := exec.CommandContext(timeoutCtx, h.config.SmokeTestCommand[0], h.config.SmokeTestCommand[1:]...)
	out, err := cmd.CombinedOutput()
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		return HealthCheck{
			Name: "smoke_test", Passed: false,
			Message:    fmt.Sprintf("smoke test failed: %v: %s", err, string(out)),
			DurationMs: elapsed,
		}
	}
	return HealthCheck{Name: "smoke_test", Passed: true, Message: "smoke test passed", DurationMs: elapsed}
}

func (h *HealthChecker) checkEndpoint(ctx context.Context) HealthCheck {
	start := time.Now()
	timeoutCtx, cancel := context.WithTimeout(ctx, h.config.EndpointTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, h.config.EndpointURL, nil)
	if err != nil {
		return HealthCheck{Name: "endpoint", Passed: false, Message: err.Error(), DurationMs: time.Since(start).Milliseconds()}
	}

	resp, err := http.DefaultClient.Do(req)
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		return HealthCheck{Name: "endpoint", Passed: false, Message: err.Error(), DurationMs: elapsed}
	}
	defer resp.Body.Close()

	passed := resp.StatusCode >= 200 && resp.StatusCode < 300
	return HealthCheck{
		Name: "endpoint", Passed: passed,
		Message:    fmt.Sprintf("endpoint returned status %d", resp.StatusCode),
		DurationMs: elapsed,
	}
}
