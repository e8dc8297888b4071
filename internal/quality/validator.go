// Package quality implements the structural checks behind the
// Coach/Player adversarial gate: given a Player attempt's output and a
// set of quality standards, decide whether the work may reach the
// user. Adapted from internal/security/validator.go's SkillValidator,
// repurposed from pre-execution skill manifests to post-execution work
// review.
package quality

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// Severity mirrors the Coach's issue severity vocabulary.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityMajor    Severity = "major"
	SeverityMinor    Severity = "minor"
	SeverityInfo     Severity = "info"
)

// Issue is one defect found while validating a Player attempt.
type Issue struct {
	Severity    Severity
	Category    string
	Description string
}

// Standards are the checks a validator enforces, mirroring
// agentcore.QualityStandards so CoachAgent can pass its configured
// standards through without duplicating the enum vocabulary.
type Standards struct {
	ZeroErrors    bool
	ZeroWarnings  bool
	TestsMustPass bool
	MinCoverage   *float32
	NoTodos       bool
	RequireDocs   bool
	CustomChecks  []string
}

// WorkAttempt is the subset of a Player attempt a validator inspects.
// Decoupled from agentcore.PlayerResult so this package carries no
// dependency on agentcore.
type WorkAttempt struct {
	Success      bool
	Output       string
	FilesChanged []string
	Metadata     map[string]string
}

// ValidationResult is the validator's verdict: whether the attempt may
// be approved, its quality score in [0,1], the issues found, and
// suggestions for the next attempt when not approved.
type ValidationResult struct {
	Approved     bool
	QualityScore float32
	Issues       []Issue
	Suggestions  []string
}

// WorkValidator runs structural checks against a Player attempt before
// the Coach approves it. Grounded on internal/security/validator.go's
// SkillValidator (trust list, blocklist, resource-limit checks,
// suspicious-dependency scan) repurposed for work review instead of
// skill manifests.
type WorkValidator struct {
	mu             sync.RWMutex
	trustedAuthors map[string]bool
	blockedAuthors map[string]bool
}

// NewWorkValidator creates a validator trusting the given authors by
// default.
func NewWorkValidator(trustedAuthors []string) *WorkValidator {
	trusted := make(map[string]bool, len(trustedAuthors))
	for _, a := range trustedAuthors {
		trusted[a] = true
	}
	return &WorkValidator{trustedAuthors: trusted, blockedAuthors: make(map[string]bool)}
}

// BlockAuthor adds an author to the blocklist; future attempts from
// them are rejected outright.
func (v *WorkValidator) BlockAuthor(author string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.blockedAuthors[author] = true
}

// UnblockAuthor removes an author from the blocklist.
func (v *WorkValidator) UnblockAuthor(author string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.blockedAuthors, author)
}

// IsBlocked reports whether author is blocked.
func (v *WorkValidator) IsBlocked(author string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.blockedAuthors[author]
}

// AddTrustedAuthor adds an author to the trusted list.
func (v *WorkValidator) AddTrustedAuthor(author string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.trustedAuthors[author] = true
}

// Validate checks attempt against standards, returning a verdict the
// Coach can fold directly into a CoachReview.
func (v *WorkValidator) Validate(attempt WorkAttempt, standards Standards) ValidationResult {
	author := attempt.Metadata["player_provider"]

	v.mu.RLock()
	blocked := v.blockedAuthors[author]
	trusted := v.trustedAuthors[author]
	v.mu.RUnlock()

	var issues []Issue
	var suggestions []string

	if blocked {
		return ValidationResult{
			Approved: false, QualityScore: 0,
			Issues: []Issue{{Severity: SeverityCritical, Category: "blocked", Description: fmt.Sprintf("author %q is blocked", author)}},
		}
	}

	if !attempt.Success {
		issues = append(issues, Issue{Severity: SeverityCritical, Category: "execution", Description: "task execution failed"})
	}

	if strings.TrimSpace(attempt.Output) == "" {
		issues = append(issues, Issue{Severity: SeverityCritical, Category: "incomplete", Description: "attempt produced empty output"})
	}

	lower := strings.ToLower(attempt.Output)
	if standards.ZeroErrors && strings.Contains(lower, "error") {
		issues = append(issues, Issue{Severity: SeverityMajor, Category: "compilation_error", Description: "output mentions an error"})
	}
	if standards.ZeroWarnings && strings.Contains(lower, "warning") {
		issues = append(issues, Issue{Severity: SeverityMinor, Category: "code_quality", Description: "output mentions a warning"})
	}
	if standards.NoTodos && (strings.Contains(attempt.Output, "TODO") || strings.Contains(attempt.Output, "FIXME")) {
		issues = append(issues, Issue{Severity: SeverityMinor, Category: "incomplete", Description: "output contains an unresolved TODO/FIXME"})
		suggestions = append(suggestions, "resolve outstanding TODO/FIXME markers before resubmitting")
	}

	if standards.TestsMustPass && attempt.Metadata["tests_failed"] == "true" {
		issues = append(issues, Issue{Severity: SeverityCritical, Category: "test_failure", Description: "tests failed for this attempt"})
		suggestions = append(suggestions, "fix failing tests before resubmitting")
	}

	if standards.MinCoverage != nil {
		if raw, ok := attempt.Metadata["coverage"]; ok {
			if coverage, err := strconv.ParseFloat(raw, 32); err == nil && float32(coverage) < *standards.MinCoverage {
				issues = append(issues, Issue{
					Severity: SeverityMajor, Category: "test_failure",
					Description: fmt.Sprintf("coverage %.2f below required %.2f", coverage, *standards.MinCoverage),
				})
			}
		}
	}

	if standards.RequireDocs && attempt.Metadata["docs_updated"] != "true" {
		suggestions = append(suggestions, "update documentation for the changed files")
	}

	for _, check := range standards.CustomChecks {
		if attempt.Metadata[check+"_failed"] == "true" {
			issues = append(issues, Issue{Severity: SeverityMajor, Category: "best_practice", Description: fmt.Sprintf("custom check failed: %s", check)})
		}
	}

	if len(attempt.FilesChanged) == 0 {
		suggestions = append(suggestions, "no files were changed — confirm this attempt actually addressed the task")
	}

	if author != "" && !trusted {
		suggestions = append(suggestions, fmt.Sprintf("provider %q is not in the trusted list", author))
	}

	approved := true
	for _, issue := range issues {
		if issue.Severity == SeverityCritical || issue.Severity == SeverityMajor {
			approved = false
			break
		}
	}

	if !approved && len(suggestions) == 0 {
		suggestions = append(suggestions, "address the issues above and resubmit")
	}

	return ValidationResult{
		Approved:     approved,
		QualityScore: scoreFor(issues),
		Issues:       issues,
		Suggestions:  suggestions,
	}
}

// scoreFor derives a quality score in [0,1] from the issues found:
// any critical issue zeroes the score; otherwise each major issue
// costs 0.3 and each minor issue costs 0.1, floored at 0.
func scoreFor(issues []Issue) float32 {
	score := float32(1.0)
	for _, issue := range issues {
		switch issue.Severity {
		case SeverityCritical:
			return 0
		case SeverityMajor:
			score -= 0.3
		case SeverityMinor:
			score -= 0.1
		}
	}
	if score < 0 {
		score = 0
	}
	return score
}
