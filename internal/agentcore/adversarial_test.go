package agentcore

import (
	"context"
	"testing"
)

func TestCoachReview_ApprovedAndRejected(t *testing.T) {
	approved := ApprovedReview(0.95)
	if !approved.Approved || approved.QualityScore != 0.95 {
		t.Errorf("approved review = %+v", approved)
	}

	rejected := RejectedReview("too many errors")
	if rejected.Approved || rejected.Feedback != "too many errors" {
		t.Errorf("rejected review = %+v", rejected)
	}
}

func TestCoachAgent_ReviewWork_SuccessAndFailure(t *testing.T) {
	coach := NewCoachAgent()

	ok := coach.ReviewWork(PlayerSuccess("done").WithMetadata("provider", "anthropic"))
	if !ok.Approved {
		t.Error("expected approval for successful player result")
	}

	fail := coach.ReviewWork(PlayerFailure("broke"))
	if fail.Approved {
		t.Error("expected rejection for failed player result")
	}

	if coach.ReviewCount() != 2 {
		t.Errorf("review count = %d, want 2", coach.ReviewCount())
	}
	if coach.ApprovalRate() != 0.5 {
		t.Errorf("approval rate = %f, want 0.5", coach.ApprovalRate())
	}
}

func TestRunReviewCycle_ApprovesImmediatelyOnSuccess(t *testing.T) {
	player := NewPlayerAgent()
	coach := NewCoachAgent()

	_, history, stats := runReviewCycle(player, coach, "implement feature x", 3)
	if stats.Outcome != outcomeApproved {
		t.Errorf("outcome = %s, want approved", stats.Outcome)
	}
	if len(history) != 1 {
		t.Errorf("history len = %d, want 1", len(history))
	}
}

func TestAdversarialCore_ExecuteApproves(t *testing.T) {
	core := NewAdversarialCore()
	ctx := NewAgentContext("agent-1", ".")

	output, err := core.Execute(context.Background(), ctx, "review the payment logic")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !output.Completed {
		t.Error("expected completed=true")
	}
	if output.TurnsUsed == 0 {
		t.Error("expected at least one review cycle")
	}
}

func TestAdversarialCore_Suitability(t *testing.T) {
	core := NewAdversarialCore()
	if s := core.SuitabilityScore(TaskHint{Category: CategoryReview}); s <= 0.9 {
		t.Errorf("suitability for review = %f, want > 0.9", s)
	}
}

func TestAdversarialCore_MetricsRecorded(t *testing.T) {
	core := NewAdversarialCore()
	ctx := NewAgentContext("agent-1", ".")

	_, _ = core.Execute(context.Background(), ctx, "build something")
	snap := core.Metrics()
	if snap.TotalExecutions != 1 {
		t.Errorf("total executions = %d, want 1", snap.TotalExecutions)
	}
}
