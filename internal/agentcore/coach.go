package agentcore

import (
	"strconv"

	"github.com/overhuman/agentrt/internal/quality"
)

// QualityStandards are the checks the Coach enforces against Player's
// work before it may reach the user. Grounded on
// original_source/agents/adversarial/mod.rs's QualityStandards.
type QualityStandards struct {
	ZeroErrors    bool
	ZeroWarnings  bool
	TestsMustPass bool
	MinCoverage   *float32
	NoTodos       bool
	RequireDocs   bool
	CustomChecks  []string
}

// DefaultQualityStandards mirrors the Rust Default impl (80% coverage).
func DefaultQualityStandards() QualityStandards {
	cov := float32(0.8)
	return QualityStandards{
		ZeroErrors: true, ZeroWarnings: true, TestsMustPass: true,
		MinCoverage: &cov, NoTodos: true, RequireDocs: true,
	}
}

// RelaxedQualityStandards is the prototyping profile.
func RelaxedQualityStandards() QualityStandards {
	return QualityStandards{ZeroErrors: true}
}

// StrictQualityStandards is the production profile (90% coverage plus
// go vet / golangci-lint custom checks).
func StrictQualityStandards() QualityStandards {
	cov := float32(0.9)
	return QualityStandards{
		ZeroErrors: true, ZeroWarnings: true, TestsMustPass: true,
		MinCoverage: &cov, NoTodos: true, RequireDocs: true,
		CustomChecks: []string{"go vet ./...", "golangci-lint run"},
	}
}

// CoachConfig configures the Coach agent.
type CoachConfig struct {
	Provider         string
	Model            string
	Temperature      float32
	MaxTokens        int
	QualityStandards QualityStandards
	SystemPrompt     string
	ReadOnly         bool
}

// DefaultCoachConfig mirrors the Rust defaults: lower temperature, a
// same-or-better model than Player, read-only access.
func DefaultCoachConfig() CoachConfig {
	return CoachConfig{
		Provider:         "anthropic",
		Model:            "claude-3-5-sonnet-20241022",
		Temperature:      0.3,
		MaxTokens:        4096,
		QualityStandards: DefaultQualityStandards(),
		SystemPrompt: "You are a Coach agent in an adversarial system. Your role is to " +
			"review Player agent's work with high standards. Provide constructive " +
			"criticism and ensure quality before work reaches the user.",
		ReadOnly: true,
	}
}

// ReviewIssue is one defect the Coach found in Player's work. Severity
// and Category reuse the vocabulary internal/quality's WorkValidator
// reports, since that's what populates Issues in ReviewWork.
type ReviewIssue struct {
	Severity    quality.Severity
	Category    string
	Description string
	Location    string
}

// CoachReview is the Coach's verdict on one Player attempt.
type CoachReview struct {
	Approved     bool
	QualityScore float32
	Feedback     string
	Issues       []ReviewIssue
	Suggestions  []string
	DurationMs   int64
	Metadata     map[string]string
}

// ApprovedReview builds an approved review.
func ApprovedReview(qualityScore float32) CoachReview {
	return CoachReview{Approved: true, QualityScore: qualityScore, Feedback: "Work approved", Metadata: map[string]string{}}
}

// RejectedReview builds a rejected review.
func RejectedReview(feedback string) CoachReview {
	return CoachReview{Approved: false, QualityScore: 0, Feedback: feedback, Metadata: map[string]string{}}
}

func (r CoachReview) withIssue(issue ReviewIssue) CoachReview {
	r.Issues = append(r.Issues, issue)
	return r
}

func (r CoachReview) withMetadata(key, value string) CoachReview {
	if r.Metadata == nil {
		r.Metadata = map[string]string{}
	}
	r.Metadata[key] = value
	return r
}

func (r CoachReview) criticalIssues() int {
	n := 0
	for _, i := range r.Issues {
		if i.Severity == quality.SeverityCritical {
			n++
		}
	}
	return n
}

// CoachAgent reviews Player's work against QualityStandards,
// read-only, and gates whether it reaches the user. Grounded on
// original_source/agents/adversarial/coach.rs. The structural checks
// themselves live in internal/quality's WorkValidator; CoachAgent owns
// the review statistics and the LLM-call placeholder wrapping it.
type CoachAgent struct {
	config          CoachConfig
	validator       *quality.WorkValidator
	reviewCount     int
	totalApprovals  int
	totalRejections int
}

// NewCoachAgent creates a CoachAgent with default configuration.
func NewCoachAgent() *CoachAgent { return NewCoachAgentWithConfig(DefaultCoachConfig()) }

// NewCoachAgentWithConfig creates a CoachAgent with custom config.
func NewCoachAgentWithConfig(cfg CoachConfig) *CoachAgent {
	return &CoachAgent{config: cfg, validator: quality.NewWorkValidator(nil)}
}

func (c *CoachAgent) Config() CoachConfig { return c.config }

func (c *CoachAgent) ReviewCount() int { return c.reviewCount }

func (c *CoachAgent) ApprovalRate() float32 {
	if c.reviewCount == 0 {
		return 0
	}
	return float32(c.totalApprovals) / float32(c.reviewCount)
}

// ReviewWork reviews player's result against the configured quality
// standards via internal/quality's structural validator. The LLM call
// coach.rs's review_work_internal describes ("this would integrate
// with the actual LLM provider") is left as future work; the
// structural gate here is what actually runs today.
func (c *CoachAgent) ReviewWork(result PlayerResult) CoachReview {
	provider := result.Metadata["provider"]
	if provider == "" {
		provider = "unknown"
	}
	metadata := result.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	metadata["player_provider"] = provider

	verdict := c.validator.Validate(quality.WorkAttempt{
		Success:      result.Success,
		Output:       result.Output,
		FilesChanged: result.FilesChanged,
		Metadata:     metadata,
	}, quality.Standards{
		ZeroErrors:    c.config.QualityStandards.ZeroErrors,
		ZeroWarnings:  c.config.QualityStandards.ZeroWarnings,
		TestsMustPass: c.config.QualityStandards.TestsMustPass,
		MinCoverage:   c.config.QualityStandards.MinCoverage,
		NoTodos:       c.config.QualityStandards.NoTodos,
		RequireDocs:   c.config.QualityStandards.RequireDocs,
		CustomChecks:  c.config.QualityStandards.CustomChecks,
	})

	feedback := "Work approved"
	if !verdict.Approved {
		feedback = "Work rejected: quality standards not met"
	}

	review := CoachReview{
		Approved:     verdict.Approved,
		QualityScore: verdict.QualityScore,
		Feedback:     feedback,
		Suggestions:  verdict.Suggestions,
		Metadata:     map[string]string{},
	}
	for _, issue := range verdict.Issues {
		review = review.withIssue(ReviewIssue{Severity: issue.Severity, Category: issue.Category, Description: issue.Description})
	}
	review = review.
		withMetadata("player_provider", provider).
		withMetadata("files_changed", strconv.Itoa(len(result.FilesChanged)))

	c.reviewCount++
	if review.Approved {
		c.totalApprovals++
	} else {
		c.totalRejections++
	}
	return review
}

// ResetStats clears the Coach's running review statistics.
func (c *CoachAgent) ResetStats() {
	c.reviewCount = 0
	c.totalApprovals = 0
	c.totalRejections = 0
}
