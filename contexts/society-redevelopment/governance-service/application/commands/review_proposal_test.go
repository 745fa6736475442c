package commands

import (
	"context"
	"errors"
	"testing"

	"societyhub/contexts/society-redevelopment/governance-service/domain/entities"
	domainerrors "societyhub/contexts/society-redevelopment/governance-service/domain/errors"
)

func TestEvaluateProposalComputesOverallScore(t *testing.T) {
	h := newHarness(nil, nil)
	project := h.createProject(t)
	proposal := h.submit(t, project.ProjectID, "dev-1")

	evaluated, err := h.reviews.Evaluate(context.Background(), EvaluateProposalCommand{
		Actor: owner, ProposalID: proposal.ProposalID,
		TechnicalScore: 80, FinancialScore: 70, TimelineScore: 90, Notes: "solid",
	})
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if evaluated.Evaluation == nil || evaluated.Evaluation.OverallScore != 78 {
		t.Fatalf("expected overall score 78, got %+v", evaluated.Evaluation)
	}
	if evaluated.Status != entities.ProposalStatusSubmitted {
		t.Fatalf("evaluation must not change status, got %s", evaluated.Status)
	}

	_, err = h.reviews.Evaluate(context.Background(), EvaluateProposalCommand{
		Actor: owner, ProposalID: proposal.ProposalID, TechnicalScore: 101,
	})
	if !errors.Is(err, domainerrors.ErrValidation) {
		t.Fatalf("expected validation error for out-of-range score, got %v", err)
	}
	_, err = h.reviews.Evaluate(context.Background(), EvaluateProposalCommand{
		Actor: stranger, ProposalID: proposal.ProposalID,
	})
	if !errors.Is(err, domainerrors.ErrForbidden) {
		t.Fatalf("expected forbidden for another owner, got %v", err)
	}
}

func TestReviewTransitions(t *testing.T) {
	h := newHarness(nil, nil)
	project := h.createProject(t)
	proposal := h.submit(t, project.ProjectID, "dev-1")

	reviewed, err := h.reviews.MarkUnderReview(context.Background(), owner, proposal.ProposalID)
	if err != nil || reviewed.Status != entities.ProposalStatusUnderReview {
		t.Fatalf("mark under review failed: %v %+v", err, reviewed)
	}
	shortlisted, err := h.reviews.Shortlist(context.Background(), owner, proposal.ProposalID)
	if err != nil || shortlisted.Status != entities.ProposalStatusShortlisted {
		t.Fatalf("shortlist failed: %v %+v", err, shortlisted)
	}
	if _, err := h.reviews.Shortlist(context.Background(), owner, proposal.ProposalID); !errors.Is(err, domainerrors.ErrStateConflict) {
		t.Fatalf("expected repeated shortlist to conflict, got %v", err)
	}
	if _, err := h.reviews.Reject(context.Background(), RejectProposalCommand{
		Actor: owner, ProposalID: proposal.ProposalID,
	}); !errors.Is(err, domainerrors.ErrValidation) {
		t.Fatalf("expected reject without reason to fail, got %v", err)
	}
	rejected, err := h.reviews.Reject(context.Background(), RejectProposalCommand{
		Actor: owner, ProposalID: proposal.ProposalID, Reason: "timeline too long",
	})
	if err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	if rejected.RejectedBy != owner.UserID || rejected.RejectionReason != "timeline too long" {
		t.Fatalf("unexpected rejection: %+v", rejected)
	}
	if _, err := h.reviews.Approve(context.Background(), owner, proposal.ProposalID); !errors.Is(err, domainerrors.ErrStateConflict) {
		t.Fatalf("expected approve after reject to conflict, got %v", err)
	}

	stored, _ := h.store.GetProject(context.Background(), project.ProjectID)
	if stored.Status != entities.ProjectStatusProposalsReceived {
		t.Fatalf("review must not move the project, got %s", stored.Status)
	}
}
