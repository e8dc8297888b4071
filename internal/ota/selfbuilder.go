package ota

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// BuildProfile selects optimization level for a self-build. Grounded on
// original_source/ota/self_builder.rs's BuildProfile; the cargo
// --release flag generalizes to Go's "-ldflags -s -w" strip flags since
// this workspace builds with `go build`, not `cargo build`.
type BuildProfile string

const (
	ProfileDebug   BuildProfile = "debug"
	ProfileRelease BuildProfile = "release"
)

func (p BuildProfile) String() string { return string(p) }

// BuildConfig configures a self-build. Package is a Go import path or
// relative directory (e.g. "./cmd/agentrt"), mirroring the Rust
// BuildConfig.package field that named a cargo crate.
type BuildConfig struct {
	WorkspaceRoot string
	Package       string
	BinaryName    string
	Profile       BuildProfile
	Timeout       time.Duration
	ExtraArgs     []string
}

// DefaultBuildConfig returns build defaults for the named binary, built
// from ./cmd/<binaryName>.
func DefaultBuildConfig(workspaceRoot, binaryName string) BuildConfig {
	return BuildConfig{
		WorkspaceRoot: workspaceRoot,
		Package:       "./cmd/" + binaryName,
		BinaryName:    binaryName,
		Profile:       ProfileRelease,
		Timeout:       10 * time.Minute,
		ExtraArgs:     nil,
	}
}

// ExpectedBinaryPath returns where the built binary should land.
func (c BuildConfig) ExpectedBinaryPath() string {
	name := c.BinaryName
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	return filepath.Join(c.WorkspaceRoot, "bin", string(c.Profile), name)
}

// BuildResult is the outcome of one self-build attempt.
type BuildResult struct {
	Success      bool
	BinaryPath   *string
	Output       string
	DurationSecs float64
	BuiltAt      time.Time
	GitHash      *string
	Profile      BuildProfile
}

// SelfBuilder manages building new agent binaries from source via the
// go toolchain. Grounded on original_source/ota/self_builder.rs's
// SelfBuilder, re-grounded from `cargo build -p <pkg> [--release]` to
// `go build -o <path> [-ldflags "-s -w"] <pkg>`.
type SelfBuilder struct {
	config BuildConfig
}

// NewSelfBuilder creates a SelfBuilder under config.
func NewSelfBuilder(config BuildConfig) *SelfBuilder { return &SelfBuilder{config: config} }

// Config returns the current build configuration.
func (b *SelfBuilder) Config() BuildConfig { return b.config }

// ValidatePrerequisites checks that the workspace root and its go.mod
// exist, generalizing the Rust check for Cargo.toml.
func (b *SelfBuilder) ValidatePrerequisites() error {
	if _, err := os.Stat(b.config.WorkspaceRoot); err != nil {
		return fmt.Errorf("workspace root does not exist: %s", b.config.WorkspaceRoot)
	}
	goMod := filepath.Join(b.config.WorkspaceRoot, "go.mod")
	if _, err := os.Stat(goMod); err != nil {
		return fmt.Errorf("go.mod not found at: %s", goMod)
	}
	return nil
}

// BuildArgs builds the `go` command arguments for this configuration.
func (b *SelfBuilder) BuildArgs() []string {
	args := []string{"build", "-o", b.config.ExpectedBinaryPath()}
	if b.config.Profile == ProfileRelease {
		args = append(args, "-ldflags", "-s -w")
	}
	args = append(args, b.config.ExtraArgs...)
	args = append(args, b.config.Package)
	return args
}

// Build executes the build, returning success/failure and captured
// output. Prerequisites are validated first; the subprocess is bounded
// by config.Timeout.
func (b *SelfBuilder) Build(ctx context.Context) (BuildResult, error) {
	if err := b.ValidatePrerequisites(); err != nil {
		return BuildResult{}, err
	}

	args := b.BuildArgs()

	ctx, cancel := context.WithTimeout(ctx, b.config.Timeout)
	defer cancel()

	start := time.Now()
	cmd := exec.CommandContext(ctx, "go", args...)
	cmd.Dir = b.config.WorkspaceRoot
	var combined bytes.Buffer
	cmd.Stdout = &combined
	cmd.Stderr = &combined

	runErr := cmd.Run()
	duration := time.Since(start)

	success := runErr == nil
	var binaryPath *string
	if success {
		path := b.config.ExpectedBinaryPath()
		if ok, _ := VerifyBinary(path); ok {
			binaryPath = &path
		}
	}

	gitHash, _ := b.gitHash(ctx)
	var gitHashPtr *string
	if gitHash != "" {
		gitHashPtr = &gitHash
	}

	return BuildResult{
		Success:      success,
		BinaryPath:   binaryPath,
		Output:       combined.String(),
		DurationSecs: duration.Seconds(),
		BuiltAt:      time.Now().UTC(),
		GitHash:      gitHashPtr,
		Profile:      b.config.Profile,
	}, nil
}

// BuildDryRun returns a synthetic result without executing anything.
func (b *SelfBuilder) BuildDryRun() BuildResult {
	args := b.BuildArgs()
	path := b.config.ExpectedBinaryPath()
	return BuildResult{
		Success:      true,
		BinaryPath:   &path,
		Output:       "DRY RUN: go " + strings.Join(args, " "),
		DurationSecs: 0,
		BuiltAt:      time.Now().UTC(),
		GitHash:      nil,
		Profile:      b.config.Profile,
	}
}

func (b *SelfBuilder) gitHash(ctx context.Context) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "HEAD")
	cmd.Dir = b.config.WorkspaceRoot
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("get git hash: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// HasSourceChanges reports whether the workspace has uncommitted
// changes, via `git status --porcelain`.
func (b *SelfBuilder) HasSourceChanges(ctx context.Context) (bool, error) {
	cmd := exec.CommandContext(ctx, "git", "status", "--porcelain")
	cmd.Dir = b.config.WorkspaceRoot
	out, err := cmd.Output()
	if err != nil {
		return false, fmt.Errorf("check git status: %w", err)
	}
	return len(strings.TrimSpace(string(out))) > 0, nil
}

// VerifyBinary confirms path exists and is non-empty.
func VerifyBinary(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, fmt.Errorf("binary does not exist: %s", path)
	}
	if info.Size() == 0 {
		return false, fmt.Errorf("binary is empty: %s", path)
	}
	return true, nil
}
