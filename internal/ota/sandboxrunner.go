package ota

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"
)

// SandboxConfig configures the isolated build-and-test environment used
// to validate a self-modification before it touches the live
// workspace.
type SandboxConfig struct {
	WorkspaceRoot string
	SandboxDir    string
	TimeoutSecs   uint64
	Isolated      bool
}

// DefaultSandboxConfig returns sandbox defaults rooted under
// workspaceRoot/.ota/sandbox.
func DefaultSandboxConfig(workspaceRoot string) SandboxConfig {
	return SandboxConfig{
		WorkspaceRoot: workspaceRoot,
		SandboxDir:    filepath.Join(workspaceRoot, ".ota", "sandbox"),
		TimeoutSecs:   300,
		Isolated:      true,
	}
}

// CodeChangeRef is a lightweight reference to a proposed file change:
// a relative path within the workspace and its full new content.
type CodeChangeRef struct {
	FilePath string
	Content  string
}

// SandboxResult is the outcome of one sandbox build-and-test run.
type SandboxResult struct {
	Success      bool
	BuildOutput  string
	TestOutput   string
	DurationSecs float64
	StartedAt    time.Time
	Summary      string
}

// NewSandboxSuccess builds a passing SandboxResult.
func NewSandboxSuccess(buildOutput, testOutput string, durationSecs float64) SandboxResult {
	return SandboxResult{
		Success:      true,
		BuildOutput:  buildOutput,
		TestOutput:   testOutput,
		DurationSecs: durationSecs,
		StartedAt:    time.Now().UTC(),
		Summary:      fmt.Sprintf("Sandbox passed in %.1fs", durationSecs),
	}
}

// NewSandboxFailure builds a failing SandboxResult carrying reason.
func NewSandboxFailure(buildOutput, testOutput string, durationSecs float64, reason string) SandboxResult {
	return SandboxResult{
		Success:      false,
		BuildOutput:  buildOutput,
		TestOutput:   testOutput,
		DurationSecs: durationSecs,
		StartedAt:    time.Now().UTC(),
		Summary:      fmt.Sprintf("Sandbox FAILED in %.1fs: %s", durationSecs, reason),
	}
}

// SandboxRunner runs proposed changes in an isolated directory before
// they're allowed to touch the live workspace. Grounded on
// original_source/ota/sandbox_runner.rs's SandboxRunner; `cargo check
// --lib -p goose` / `cargo test --lib -p goose -- --test-threads=1`
// generalize to `go build ./...` / `go test ./...` since this workspace
// builds with the go toolchain.
type SandboxRunner struct {
	mu     sync.Mutex
	config SandboxConfig
	runs   []SandboxResult
}

// NewSandboxRunner creates a SandboxRunner under config.
func NewSandboxRunner(config SandboxConfig) *SandboxRunner {
	return &SandboxRunner{config: config}
}

// DefaultSandboxRunner creates a SandboxRunner with defaults for
// workspaceRoot.
func DefaultSandboxRunner(workspaceRoot string) *SandboxRunner {
	return NewSandboxRunner(DefaultSandboxConfig(workspaceRoot))
}

// Config returns the sandbox configuration.
func (r *SandboxRunner) Config() SandboxConfig { return r.config }

// PrepareSandbox creates the sandbox directory if it doesn't exist.
func (r *SandboxRunner) PrepareSandbox() (string, error) {
	if err := os.MkdirAll(r.config.SandboxDir, 0o755); err != nil {
		return "", fmt.Errorf("create sandbox directory: %w", err)
	}
	return r.config.SandboxDir, nil
}

// RunInSandbox prepares the sandbox, writes every change under it, then
// runs `go build` followed by `go test` against the workspace,
// returning the combined result. An empty change set is an error.
func (r *SandboxRunner) RunInSandbox(ctx context.Context, changes []CodeChangeRef) (SandboxResult, error) {
	start := time.Now()

	if len(changes) == 0 {
		return SandboxResult{}, fmt.Errorf("no changes provided to sandbox")
	}

	sandboxPath, err := r.PrepareSandbox()
	if err != nil {
		return SandboxResult{}, err
	}

	for _, change := range changes {
		target := filepath.Join(sandboxPath, change.FilePath)
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return SandboxResult{}, fmt.Errorf("create parent dir for %s: %w", change.FilePath, err)
		}
		if err := os.WriteFile(target, []byte(change.Content), 0o644); err != nil {
			return SandboxResult{}, fmt.Errorf("write sandbox file %s: %w", change.FilePath, err)
		}
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, time.Duration(r.config.TimeoutSecs)*time.Second)
	defer cancel()

	buildOutput, buildOK, err := runGo(timeoutCtx, r.config.WorkspaceRoot, "build", "./...")
	if err != nil {
		result := NewSandboxFailure("", "", time.Since(start).Seconds(), fmt.Sprintf("build command failed: %v", err))
		r.recordRun(result)
		return result, nil
	}
	if !buildOK {
		result := NewSandboxFailure(buildOutput, "", time.Since(start).Seconds(), "Build failed")
		r.recordRun(result)
		return result, nil
	}

	testOutput, testOK, err := runGo(timeoutCtx, r.config.WorkspaceRoot, "test", "./...")
	if err != nil {
		result := NewSandboxFailure(buildOutput, "", time.Since(start).Seconds(), fmt.Sprintf("test command failed: %v", err))
		r.recordRun(result)
		return result, nil
	}

	duration := time.Since(start).Seconds()
	var result SandboxResult
	if testOK {
		result = NewSandboxSuccess(buildOutput, testOutput, duration)
	} else {
		result = NewSandboxFailure(buildOutput, testOutput, duration, "Tests failed")
	}
	r.recordRun(result)
	return result, nil
}

func runGo(ctx context.Context, dir string, args ...string) (string, bool, error) {
	cmd := exec.CommandContext(ctx, "go", args...)
	cmd.Dir = dir
	var combined bytes.Buffer
	cmd.Stdout = &combined
	cmd.Stderr = &combined
	err := cmd.Run()
	if err != nil {
		if _, ok := err.(*exec.ExitError); ok {
			return combined.String(), false, nil
		}
		return "", false, err
	}
	return combined.String(), true, nil
}

func (r *SandboxRunner) recordRun(result SandboxResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, result)
}

// Cleanup removes the sandbox directory.
func (r *SandboxRunner) Cleanup() error {
	if _, err := os.Stat(r.config.SandboxDir); err != nil {
		return nil
	}
	if err := os.RemoveAll(r.config.SandboxDir); err != nil {
		return fmt.Errorf("clean up sandbox directory: %w", err)
	}
	return nil
}

// History returns every sandbox run this session, oldest first.
func (r *SandboxRunner) History() []SandboxResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]SandboxResult, len(r.runs))
	copy(out, r.runs)
	return out
}

// LastResult returns the most recent sandbox run, if any.
func (r *SandboxRunner) LastResult() (SandboxResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.runs) == 0 {
		return SandboxResult{}, false
	}
	return r.runs[len(r.runs)-1], true
}
