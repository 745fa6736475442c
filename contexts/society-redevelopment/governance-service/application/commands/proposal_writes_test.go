package commands

import (
	"context"
	"sync"
	"testing"

	"societyhub/contexts/society-redevelopment/governance-service/adapters/memory"
	"societyhub/contexts/society-redevelopment/governance-service/domain/entities"
)

// interleavingStore runs hook once, right after the first proposal read, to
// model another writer committing between a use case's read and its write.
type interleavingStore struct {
	*memory.Store
	once sync.Once
	hook func()
}

func (s *interleavingStore) GetProposal(ctx context.Context, proposalID string) (entities.DeveloperProposal, error) {
	proposal, err := s.Store.GetProposal(ctx, proposalID)
	if err == nil && s.hook != nil {
		s.once.Do(s.hook)
	}
	return proposal, err
}

func evaluateAsOwner(t *testing.T, h *harness, proposalID string) {
	t.Helper()
	if _, err := h.reviews.Evaluate(context.Background(), EvaluateProposalCommand{
		Actor: owner, ProposalID: proposalID,
		TechnicalScore: 80, FinancialScore: 70, TimelineScore: 90,
	}); err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
}

func TestApproveKeepsEvaluationWrittenAfterItsRead(t *testing.T) {
	h := newHarness(nil, nil)
	project := h.createProject(t)
	proposal := h.submit(t, project.ProjectID, "dev-1")

	racing := &interleavingStore{Store: h.store}
	racing.hook = func() { evaluateAsOwner(t, h, proposal.ProposalID) }
	approvals := h.reviews
	approvals.Proposals = racing

	approved, err := approvals.Approve(context.Background(), owner, proposal.ProposalID)
	if err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	stored, err := h.store.GetProposal(context.Background(), proposal.ProposalID)
	if err != nil {
		t.Fatalf("get proposal: %v", err)
	}
	if stored.Status != entities.ProposalStatusApproved {
		t.Fatalf("expected approved, got %s", stored.Status)
	}
	if stored.Evaluation == nil || stored.Evaluation.OverallScore != 78 {
		t.Fatalf("expected evaluation to survive approval, got %+v", stored.Evaluation)
	}
	if approved.Evaluation == nil {
		t.Fatalf("expected returned proposal to carry the stored evaluation")
	}
}

func TestDeveloperEditKeepsEvaluationWrittenAfterItsRead(t *testing.T) {
	h := newHarness(nil, nil)
	project := h.createProject(t)
	proposal := h.submit(t, project.ProjectID, "dev-1")

	racing := &interleavingStore{Store: h.store}
	racing.hook = func() { evaluateAsOwner(t, h, proposal.ProposalID) }
	edits := h.proposals
	edits.Proposals = racing

	if _, err := edits.UpdateProposal(context.Background(), UpdateProposalCommand{
		Actor:      developer("dev-1"),
		ProposalID: proposal.ProposalID,
		Terms:      entities.FinancialTerms{CorpusFund: 2_000_000, CompletionMonths: 30},
	}); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	stored, err := h.store.GetProposal(context.Background(), proposal.ProposalID)
	if err != nil {
		t.Fatalf("get proposal: %v", err)
	}
	if stored.Terms.CorpusFund != 2_000_000 {
		t.Fatalf("expected new terms, got %+v", stored.Terms)
	}
	if stored.Evaluation == nil {
		t.Fatalf("expected evaluation to survive the developer edit")
	}
}

func TestEvaluationKeepsTermsEditedAfterItsRead(t *testing.T) {
	h := newHarness(nil, nil)
	project := h.createProject(t)
	proposal := h.submit(t, project.ProjectID, "dev-1")

	racing := &interleavingStore{Store: h.store}
	racing.hook = func() {
		if _, err := h.proposals.UpdateProposal(context.Background(), UpdateProposalCommand{
			Actor:      developer("dev-1"),
			ProposalID: proposal.ProposalID,
			Terms:      entities.FinancialTerms{CorpusFund: 3_000_000},
			Summary:    "revised",
		}); err != nil {
			t.Fatalf("update failed: %v", err)
		}
	}
	reviews := h.reviews
	reviews.Proposals = racing

	evaluated, err := reviews.Evaluate(context.Background(), EvaluateProposalCommand{
		Actor: owner, ProposalID: proposal.ProposalID,
		TechnicalScore: 50, FinancialScore: 50, TimelineScore: 50,
	})
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if evaluated.Terms.CorpusFund != 3_000_000 || evaluated.Summary != "revised" {
		t.Fatalf("expected the developer's terms to survive evaluation, got %+v %q", evaluated.Terms, evaluated.Summary)
	}
}
