package agentcore

// reviewOutcome is how a review cycle concluded. Grounded on
// original_source/agents/adversarial/review.rs (not present in the
// retrieval pack; reconstructed from its re-export in mod.rs and
// spec.md's description of the Coach/Player loop).
type reviewOutcome string

const (
	outcomeApproved        reviewOutcome = "approved"
	outcomeRejected        reviewOutcome = "rejected"
	outcomeMaxCyclesReached reviewOutcome = "max_cycles_reached"
)

// reviewFeedback is one cycle's Coach verdict, carried forward into the
// next Player attempt.
type reviewFeedback struct {
	cycle   int
	review  CoachReview
}

// reviewStats summarizes a completed review cycle run.
type reviewStats struct {
	CyclesRun    int
	Outcome      reviewOutcome
	FinalQuality float32
}

// runReviewCycle alternates Player execution and Coach review up to
// maxCycles times, feeding each rejection's feedback verbatim into the
// next Player attempt, per spec.md's AdversarialCore description.
func runReviewCycle(player *PlayerAgent, coach *CoachAgent, task string, maxCycles int) (PlayerResult, []reviewFeedback, reviewStats) {
	var lastResult PlayerResult
	var history []reviewFeedback
	feedback := ""

	for cycle := 1; cycle <= maxCycles; cycle++ {
		lastResult = player.Execute(task, feedback)
		review := coach.ReviewWork(lastResult)
		history = append(history, reviewFeedback{cycle: cycle, review: review})

		if review.Approved {
			return lastResult, history, reviewStats{CyclesRun: cycle, Outcome: outcomeApproved, FinalQuality: review.QualityScore}
		}
		feedback = review.Feedback
	}

	last := history[len(history)-1].review
	return lastResult, history, reviewStats{CyclesRun: maxCycles, Outcome: outcomeMaxCyclesReached, FinalQuality: last.QualityScore}
}
