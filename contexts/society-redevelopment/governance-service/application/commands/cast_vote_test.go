package commands

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"societyhub/contexts/society-redevelopment/governance-service/domain/entities"
	domainerrors "societyhub/contexts/society-redevelopment/governance-service/domain/errors"
)

func vote(session string, choice string) BallotInput {
	return BallotInput{VotingSession: session, Choice: choice}
}

func TestSubmitVoteRejectsDuplicateKey(t *testing.T) {
	h := newHarness(nil, nil)
	project, proposal := h.votingProject(t)

	first, err := h.votes.SubmitVote(context.Background(), CastVoteCommand{
		Actor: memberA, ProjectID: project.ProjectID,
		Ballot:    BallotInput{ProposalID: proposal.ProposalID, VotingSession: "s1", Choice: "yes"},
		IPAddress: "10.0.0.1", UserAgent: "unit-test",
	})
	if err != nil {
		t.Fatalf("first vote failed: %v", err)
	}
	if first.Choice() != entities.VoteChoiceYes || first.IPAddress != "10.0.0.1" {
		t.Fatalf("unexpected stored ballot: %+v", first)
	}

	_, err = h.votes.SubmitVote(context.Background(), CastVoteCommand{
		Actor: memberA, ProjectID: project.ProjectID,
		Ballot: BallotInput{ProposalID: proposal.ProposalID, VotingSession: "s1", Choice: "no"},
	})
	var already *domainerrors.AlreadyVotedError
	if !errors.As(err, &already) {
		t.Fatalf("expected already voted, got %v", err)
	}
	if already.BallotID != first.BallotID {
		t.Fatalf("expected existing ballot %s, got %s", first.BallotID, already.BallotID)
	}

	entry, err := h.store.GetLedgerEntry(context.Background(), project.ProjectID, memberA.UserID)
	if err != nil {
		t.Fatalf("ledger read failed: %v", err)
	}
	if len(entry.Ballots) != 1 || entry.Ballots[0].Choice() != entities.VoteChoiceYes {
		t.Fatalf("expected the original yes ballot only, got %+v", entry.Ballots)
	}

	if _, err := h.votes.SubmitVote(context.Background(), CastVoteCommand{
		Actor: memberA, ProjectID: project.ProjectID,
		Ballot: BallotInput{ProposalID: proposal.ProposalID, VotingSession: "s2", Choice: "no"},
	}); err != nil {
		t.Fatalf("expected a new session to accept a ballot, got %v", err)
	}
}

func TestConcurrentDuplicateVotesStoreOneBallot(t *testing.T) {
	h := newHarness(nil, nil)
	project, _ := h.votingProject(t)

	const attempts = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		dupes     int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.votes.SubmitVote(context.Background(), CastVoteCommand{
				Actor: memberA, ProjectID: project.ProjectID, Ballot: vote("s1", "yes"),
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, domainerrors.ErrAlreadyVoted):
				dupes++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if successes != 1 || dupes != attempts-1 {
		t.Fatalf("expected 1 success and %d duplicates, got %d/%d", attempts-1, successes, dupes)
	}
	ballots, _ := h.store.ListBallotsByProject(context.Background(), project.ProjectID)
	if len(ballots) != 1 {
		t.Fatalf("expected one stored ballot, got %d", len(ballots))
	}
}

func TestBatchVotePartialSuccess(t *testing.T) {
	h := newHarness(nil, nil)
	project, proposal := h.votingProject(t)
	if _, err := h.votes.SubmitVote(context.Background(), CastVoteCommand{
		Actor: memberA, ProjectID: project.ProjectID, Ballot: vote("s1", "yes"),
	}); err != nil {
		t.Fatalf("seed vote failed: %v", err)
	}

	result, err := h.votes.SubmitVotesBatch(context.Background(), CastVotesBatchCommand{
		Actor:     memberA,
		ProjectID: project.ProjectID,
		Ballots: []BallotInput{
			vote("s1", "no"),
			{ProposalID: proposal.ProposalID, VotingSession: "s1", Choice: "abstain"},
			{ProposalID: proposal.ProposalID, VotingSession: "s1", Choice: "yes"},
		},
	})
	if err != nil {
		t.Fatalf("batch failed: %v", err)
	}
	if result.Requested != 3 || result.Added != 1 || result.Duplicates != 2 {
		t.Fatalf("expected 3 requested, 1 added, 2 duplicates, got %+v", result)
	}
	if result.Ballots[0].Choice() != entities.VoteChoiceAbstain {
		t.Fatalf("expected the first in-batch ballot to win, got %s", result.Ballots[0].Choice())
	}
}

func TestBatchVoteAllDuplicates(t *testing.T) {
	h := newHarness(nil, nil)
	project, _ := h.votingProject(t)
	if _, err := h.votes.SubmitVote(context.Background(), CastVoteCommand{
		Actor: memberA, ProjectID: project.ProjectID, Ballot: vote("s1", "yes"),
	}); err != nil {
		t.Fatalf("seed vote failed: %v", err)
	}

	result, err := h.votes.SubmitVotesBatch(context.Background(), CastVotesBatchCommand{
		Actor: memberA, ProjectID: project.ProjectID,
		Ballots: []BallotInput{vote("s1", "no"), vote("s1", "abstain")},
	})
	if !errors.Is(err, domainerrors.ErrAlreadyVoted) {
		t.Fatalf("expected already voted, got %v", err)
	}
	if result.Added != 0 || result.Duplicates != 2 {
		t.Fatalf("expected nothing added, got %+v", result)
	}
}

func TestBatchVoteValidatesBeforeWriting(t *testing.T) {
	h := newHarness(nil, nil)
	project, _ := h.votingProject(t)

	_, err := h.votes.SubmitVotesBatch(context.Background(), CastVotesBatchCommand{
		Actor: memberA, ProjectID: project.ProjectID,
		Ballots: []BallotInput{vote("s1", "yes"), vote("s2", "perhaps")},
	})
	if !errors.Is(err, domainerrors.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	ballots, _ := h.store.ListBallotsByProject(context.Background(), project.ProjectID)
	if len(ballots) != 0 {
		t.Fatalf("expected no ballots written, got %d", len(ballots))
	}

	_, err = h.votes.SubmitVotesBatch(context.Background(), CastVotesBatchCommand{
		Actor: memberA, ProjectID: project.ProjectID,
	})
	if !errors.Is(err, domainerrors.ErrValidation) {
		t.Fatalf("expected validation error for empty batch, got %v", err)
	}
}

func TestVoteDeadlineBoundary(t *testing.T) {
	h := newHarness(nil, nil)
	project := h.createProject(t)
	deadline := h.clock.Now().Add(time.Hour)
	h.openVoting(t, project.ProjectID, deadline)

	h.clock.Set(deadline.Add(-time.Millisecond))
	if _, err := h.votes.SubmitVote(context.Background(), CastVoteCommand{
		Actor: memberA, ProjectID: project.ProjectID, Ballot: vote("s1", "yes"),
	}); err != nil {
		t.Fatalf("expected vote one millisecond before deadline to pass, got %v", err)
	}

	h.clock.Set(deadline)
	_, err := h.votes.SubmitVote(context.Background(), CastVoteCommand{
		Actor: memberB, ProjectID: project.ProjectID, Ballot: vote("s1", "yes"),
	})
	var conflict *domainerrors.StateConflictError
	if !errors.As(err, &conflict) || conflict.Reason != domainerrors.ReasonDeadlinePassed {
		t.Fatalf("expected deadline passed at the deadline, got %v", err)
	}

	eligibility, err := h.votes.CheckEligibility(context.Background(), memberB, project.ProjectID)
	if err != nil {
		t.Fatalf("eligibility failed: %v", err)
	}
	if eligibility.Eligible || eligibility.Reason != EligibilityDeadlinePassed {
		t.Fatalf("expected deadline_passed, got %+v", eligibility)
	}
}

func TestVoteRequiresActiveMembership(t *testing.T) {
	h := newHarness(nil, nil)
	project, _ := h.votingProject(t)

	_, err := h.votes.SubmitVote(context.Background(), CastVoteCommand{
		Actor: outsider, ProjectID: project.ProjectID, Ballot: vote("s1", "yes"),
	})
	if !errors.Is(err, domainerrors.ErrNotEligible) {
		t.Fatalf("expected not eligible, got %v", err)
	}
}

func TestMembershipFailurePropagates(t *testing.T) {
	oracleErr := errors.New("membership backend down")
	h := newHarness(stubOracle{err: oracleErr}, nil)
	project, _ := h.votingProject(t)

	_, err := h.votes.SubmitVote(context.Background(), CastVoteCommand{
		Actor: memberA, ProjectID: project.ProjectID, Ballot: vote("s1", "yes"),
	})
	if !errors.Is(err, oracleErr) {
		t.Fatalf("expected oracle error, got %v", err)
	}
	if errors.Is(err, domainerrors.ErrNotEligible) {
		t.Fatalf("oracle failure must not read as ineligible")
	}
}

func TestVoteOutsideVotingAndForeignProposal(t *testing.T) {
	h := newHarness(nil, nil)
	planning := h.createProject(t)
	_, err := h.votes.SubmitVote(context.Background(), CastVoteCommand{
		Actor: memberA, ProjectID: planning.ProjectID, Ballot: vote("s1", "yes"),
	})
	var conflict *domainerrors.StateConflictError
	if !errors.As(err, &conflict) || conflict.Reason != domainerrors.ReasonVotingNotOpen {
		t.Fatalf("expected voting not open, got %v", err)
	}

	foreign := h.submit(t, planning.ProjectID, "dev-9")
	project, _ := h.votingProject(t)
	_, err = h.votes.SubmitVote(context.Background(), CastVoteCommand{
		Actor: memberA, ProjectID: project.ProjectID,
		Ballot: BallotInput{ProposalID: foreign.ProposalID, VotingSession: "s1", Choice: "yes"},
	})
	if !errors.Is(err, domainerrors.ErrProposalNotFound) {
		t.Fatalf("expected proposal not found for foreign proposal, got %v", err)
	}

	_, err = h.votes.SubmitVote(context.Background(), CastVoteCommand{
		Actor: memberA, ProjectID: project.ProjectID, Ballot: vote(" ", "yes"),
	})
	if !errors.Is(err, domainerrors.ErrValidation) {
		t.Fatalf("expected validation error for blank session, got %v", err)
	}
}

func TestVerifyVote(t *testing.T) {
	h := newHarness(nil, nil)
	project, _ := h.votingProject(t)
	ballot, err := h.votes.SubmitVote(context.Background(), CastVoteCommand{
		Actor: memberA, ProjectID: project.ProjectID, Ballot: vote("s1", "no"),
	})
	if err != nil {
		t.Fatalf("vote failed: %v", err)
	}

	if _, err := h.verify.Execute(context.Background(), memberB, ballot.BallotID); !errors.Is(err, domainerrors.ErrForbidden) {
		t.Fatalf("expected forbidden verify, got %v", err)
	}
	verified, err := h.verify.Execute(context.Background(), owner, ballot.BallotID)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if !verified.IsVerified || verified.VerifiedBy != owner.UserID || verified.Choice() != entities.VoteChoiceNo {
		t.Fatalf("unexpected verified ballot: %+v", verified)
	}
	if _, err := h.verify.Execute(context.Background(), owner, "missing"); !errors.Is(err, domainerrors.ErrBallotNotFound) {
		t.Fatalf("expected ballot not found, got %v", err)
	}
}
