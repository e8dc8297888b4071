package ota

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestHealthCheckConfigMinimal(t *testing.T) {
	config := HealthCheckConfigMinimal("/usr/local/bin/agentrt")
	if config.BinaryPath != "/usr/local/bin/agentrt" {
		t.Errorf("binary path = %q", config.BinaryPath)
	}
	if len(config.SmokeTestCommand) != 0 {
		t.Error("expected no smoke test command")
	}
	if config.EndpointURL != "" {
		t.Error("expected no endpoint URL")
	}
}

func TestRunAllChecks_MinimalPasses(t *testing.T) {
	dir := t.TempDir()
	binary := filepath.Join(dir, "agentrt")
	if err := os.WriteFile(binary, []byte("fake binary"), 0o755); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	checker := NewHealthChecker(HealthCheckConfigMinimal(binary))
	report := checker.RunAllChecks(context.Background())

	if !report.Healthy {
		t.Errorf("expected healthy report: %+v", report)
	}
	if len(report.Checks) != 1 {
		t.Errorf("checks = %d, want 1", len(report.Checks))
	}
	if report.Checks[0].Name != "binary_executable" {
		t.Errorf("check name = %q", report.Checks[0].Name)
	}
}

func TestRunAllChecks_MinimalFails(t *testing.T) {
	checker := NewHealthChecker(HealthCheckConfigMinimal(filepath.Join(t.TempDir(), "missing")))
	report := checker.RunAllChecks(context.Background())

	if report.Healthy {
		t.Error("expected unhealthy report for missing binary")
	}
	if report.Checks[0].Passed {
		t.Error("expected failed binary check")
	}
}

func TestRunAllChecks_SmokeTest(t *testing.T) {
	dir := t.TempDir()
	binary := filepath.Join(dir, "agentrt")
	os.WriteFile(binary, []byte("fake binary"), 0o755)

	config := HealthCheckConfigMinimal(binary)
	config.SmokeTestCommand = []string{"true"}
	checker := NewHealthChecker(config)
	report := checker.RunAllChecks(context.Background())

	found := false
	for _, c := range report.Checks {
		if c.Name == "smoke_test" {
			found = true
			if !c.Passed {
				t.Error("expected smoke test to pass")
			}
		}
	}
	if !found {
		t.Error("expected smoke_test check present")
	}
}

func TestRunAllChecks_SmokeTestFails(t *testing.T) {
	dir := t.TempDir()
	binary := filepath.Join(dir, "agentrt")
	os.WriteFile(binary, []byte("fake binary"), 0o755)

	config := HealthCheckConfigMinimal(binary)
	config.SmokeTestCommand = []string{"false"}
	checker := NewHealthChecker(config)
	report := checker.RunAllChecks(context.Background())

	if report.Healthy {
		t.Error("expected unhealthy report when smoke test fails")
	}
}

func TestRunAllChecks_Endpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	dir := t.TempDir()
	binary := filepath.Join(dir, "agentrt")
	os.WriteFile(binary, []byte("fake binary"), 0o755)

	config := HealthCheckConfigMinimal(binary)
	config.EndpointURL = server.URL
	checker := NewHealthChecker(config)
	report := checker.RunAllChecks(context.Background())

	if !report.Healthy {
		t.Errorf("expected healthy report: %+v", report)
	}
}

func TestRunAllChecks_EndpointFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	dir := t.TempDir()
	binary := filepath.Join(dir, "agentrt")
	os.WriteFile(binary, []byte("fake binary"), 0o755)

	config := HealthCheckConfigMinimal(binary)
	config.EndpointURL = server.URL
	checker := NewHealthChecker(config)
	report := checker.RunAllChecks(context.Background())

	if report.Healthy {
		t.Error("expected unhealthy report for 500 response")
	}
}

func TestConfig_Accessor(t *testing.T) {
	config := HealthCheckConfigMinimal("/bin/agentrt")
	checker := NewHealthChecker(config)
	if checker.Config().BinaryPath != "/bin/agentrt" {
		t.Error("expected accessor to return config")
	}
}
