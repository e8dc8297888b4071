package daemon

import (
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/overhuman/agentrt/internal/observability"
)

// GitOpResult is the outcome of one git or gh operation, kept for audit
// history. Grounded on
// original_source/autonomous/branch_manager.rs's GitOpResult.
type GitOpResult struct {
	Success     bool
	Description string
	Command     string
	Timestamp   time.Time
}

func okResult(description, command string) GitOpResult {
	return GitOpResult{Success: true, Description: description, Command: command, Timestamp: time.Now()}
}

func failResult(description, command string) GitOpResult {
	return GitOpResult{Success: false, Description: description, Command: command, Timestamp: time.Now()}
}

// PullRequestSpec describes a pull request to open via the `gh` CLI.
type PullRequestSpec struct {
	Title      string
	Body       string
	HeadBranch string
	BaseBranch string
	Labels     []string
	Draft      bool
}

// NewPullRequestSpec builds a minimal spec.
func NewPullRequestSpec(title, headBranch, baseBranch string) PullRequestSpec {
	return PullRequestSpec{Title: title, HeadBranch: headBranch, BaseBranch: baseBranch}
}

func (p PullRequestSpec) WithBody(body string) PullRequestSpec     { p.Body = body; return p }
func (p PullRequestSpec) WithLabels(labels []string) PullRequestSpec { p.Labels = labels; return p }
func (p PullRequestSpec) AsDraft() PullRequestSpec                 { p.Draft = true; return p }

// GitExecutor runs a command against a working directory — abstracted
// so BranchManager is testable without a real git binary. Grounded on
// original_source/autonomous/branch_manager.rs's GitExecutor trait.
type GitExecutor interface {
	Execute(args []string, cwd string) (string, error)
}

// subprocessExecutor runs real git/gh commands via os/exec.
type subprocessExecutor struct{ binary string }

func (e subprocessExecutor) Execute(args []string, cwd string) (string, error) {
	cmd := exec.Command(e.binary, args...)
	cmd.Dir = cwd
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", fmt.Errorf("%s %s failed: %s", e.binary, strings.Join(args, " "), strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("%s %s: %w", e.binary, strings.Join(args, " "), err)
	}
	return strings.TrimSpace(string(out)), nil
}

// RealGitExecutor runs real `git` commands via subprocess.
func RealGitExecutor() GitExecutor { return subprocessExecutor{binary: "git"} }

// RealGhExecutor runs real `gh` commands via subprocess.
func RealGhExecutor() GitExecutor { return subprocessExecutor{binary: "gh"} }

// BranchManager drives git branch operations for autonomous workflows,
// recording every attempt to its history. Grounded on
// original_source/autonomous/branch_manager.rs's BranchManager.
type BranchManager struct {
	repoPath string
	git      GitExecutor
	gh       GitExecutor
	history  []GitOpResult
	logger   *observability.Logger
}

// NewBranchManager creates a BranchManager using real git/gh binaries.
func NewBranchManager(repoPath string, logger *observability.Logger) *BranchManager {
	return NewBranchManagerWithExecutors(repoPath, RealGitExecutor(), RealGhExecutor(), logger)
}

// NewBranchManagerWithExecutors creates a BranchManager with injected
// executors (for testing).
func NewBranchManagerWithExecutors(repoPath string, git, gh GitExecutor, logger *observability.Logger) *BranchManager {
	return &BranchManager{repoPath: repoPath, git: git, gh: gh, logger: logger}
}

// CreateBranch creates name from base (or HEAD if base is empty).
func (b *BranchManager) CreateBranch(name, base string) (string, error) {
	var args []string
	var cmd string
	if base != "" {
		args = []string{"checkout", "-b", name, base}
		cmd = fmt.Sprintf("git checkout -b %s %s", name, base)
	} else {
		args = []string{"checkout", "-b", name}
		cmd = fmt.Sprintf("git checkout -b %s", name)
	}

	if _, err := b.git.Execute(args, b.repoPath); err != nil {
		desc := fmt.Sprintf("Failed to create branch %q: %v", name, err)
		b.warn("failed to create branch", "branch", name, "error", err)
		b.history = append(b.history, failResult(desc, cmd))
		return "", fmt.Errorf(desc)
	}

	desc := fmt.Sprintf("Created branch %q", name)
	if base != "" {
		desc += fmt.Sprintf(" from %q", base)
	}
	b.info("created branch", "branch", name)
	b.history = append(b.history, okResult(desc, cmd))
	return desc, nil
}

// SwitchBranch checks out an existing branch.
func (b *BranchManager) SwitchBranch(name string) (string, error) {
	cmd := fmt.Sprintf("git checkout %s", name)
	if _, err := b.git.Execute([]string{"checkout", name}, b.repoPath); err != nil {
		desc := fmt.Sprintf("Failed to switch to branch %q: %v", name, err)
		b.warn("failed to switch branch", "branch", name, "error", err)
		b.history = append(b.history, failResult(desc, cmd))
		return "", fmt.Errorf(desc)
	}
	desc := fmt.Sprintf("Switched to branch %q", name)
	b.info("switched branch", "branch", name)
	b.history = append(b.history, okResult(desc, cmd))
	return desc, nil
}

// CreatePR opens a pull request via `gh pr create`.
func (b *BranchManager) CreatePR(spec PullRequestSpec) (string, error) {
	args := []string{"pr", "create", "--title", spec.Title, "--head", spec.HeadBranch, "--base", spec.BaseBranch}
	if spec.Body != "" {
		args = append(args, "--body", spec.Body)
	}
	if spec.Draft {
		args = append(args, "--draft")
	}
	cmd := "gh " + strings.Join(args, " ")

	url, err := b.gh.Execute(args, b.repoPath)
	if err != nil {
		desc := fmt.Sprintf("Failed to create PR %q: %v", spec.Title, err)
		b.warn("failed to create pull request", "pr", spec.Title, "error", err)
		b.history = append(b.history, failResult(desc, cmd))
		return "", fmt.Errorf(desc)
	}
	desc := fmt.Sprintf("Created PR %q: %s", spec.Title, url)
	b.info("created pull request", "pr", spec.Title)
	b.history = append(b.history, okResult(desc, cmd))
	return desc, nil
}

// MergeBranch merges branch into the current branch.
func (b *BranchManager) MergeBranch(branch string, noFF bool) (string, error) {
	args := []string{"merge"}
	if noFF {
		args = append(args, "--no-ff")
	}
	args = append(args, branch)
	cmd := "git " + strings.Join(args, " ")

	if _, err := b.git.Execute(args, b.repoPath); err != nil {
		desc := fmt.Sprintf("Failed to merge branch %q: %v", branch, err)
		b.warn("failed to merge branch", "branch", branch, "error", err)
		b.history = append(b.history, failResult(desc, cmd))
		return "", fmt.Errorf(desc)
	}
	desc := fmt.Sprintf("Merged branch %q", branch)
	b.info("merged branch", "branch", branch)
	b.history = append(b.history, okResult(desc, cmd))
	return desc, nil
}

// CurrentBranch returns the current HEAD's branch name.
func (b *BranchManager) CurrentBranch() (string, error) {
	return b.git.Execute([]string{"rev-parse", "--abbrev-ref", "HEAD"}, b.repoPath)
}

// ListBranches returns every local branch name.
func (b *BranchManager) ListBranches() ([]string, error) {
	out, err := b.git.Execute([]string{"branch", "--list", "--format=%(refname:short)"}, b.repoPath)
	if err != nil {
		return nil, err
	}
	var branches []string
	for _, line := range strings.Split(out, "\n") {
		if l := strings.TrimSpace(line); l != "" {
			branches = append(branches, l)
		}
	}
	return branches, nil
}

// DeleteBranch removes name, force-deleting if force is set.
func (b *BranchManager) DeleteBranch(name string, force bool) (string, error) {
	flag := "-d"
	if force {
		flag = "-D"
	}
	cmd := fmt.Sprintf("git branch %s %s", flag, name)

	if _, err := b.git.Execute([]string{"branch", flag, name}, b.repoPath); err != nil {
		desc := fmt.Sprintf("Failed to delete branch %q: %v", name, err)
		b.history = append(b.history, failResult(desc, cmd))
		return "", fmt.Errorf(desc)
	}
	desc := fmt.Sprintf("Deleted branch %q", name)
	b.history = append(b.history, okResult(desc, cmd))
	return desc, nil
}

// History returns every recorded git operation, oldest first.
func (b *BranchManager) History() []GitOpResult { return b.history }

func (b *BranchManager) info(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Info(msg, args...)
	}
}

func (b *BranchManager) warn(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Warn(msg, args...)
	}
}
