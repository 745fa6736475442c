package commands

import (
	"context"
	"log/slog"
	"strings"

	application "societyhub/contexts/society-redevelopment/governance-service/application"
	"societyhub/contexts/society-redevelopment/governance-service/domain/entities"
	domainerrors "societyhub/contexts/society-redevelopment/governance-service/domain/errors"
	"societyhub/contexts/society-redevelopment/governance-service/ports"
)

// MaxBatchBallots bounds a single batch request.
const MaxBatchBallots = 100

type BallotInput struct {
	ProposalID    string
	VotingSession string
	Choice        string
	Comments      string
}

type CastVoteCommand struct {
	Actor     entities.Actor
	ProjectID string
	Ballot    BallotInput
	IPAddress string
	UserAgent string
}

type CastVotesBatchCommand struct {
	Actor     entities.Actor
	ProjectID string
	Ballots   []BallotInput
	IPAddress string
	UserAgent string
}

// BatchResult reports how many of the requested ballots landed. Duplicates
// counts both keys already in the ledger and repeats inside the batch.
type BatchResult struct {
	Requested  int
	Added      int
	Duplicates int
	Ballots    []entities.Ballot
	Skipped    []entities.Ballot
}

type VoteUseCase struct {
	Projects      ports.ProjectRepository
	Proposals     ports.ProposalRepository
	Ballots       ports.BallotLedger
	Membership    ports.MembershipOracle
	Notifications ports.NotificationDispatcher
	Clock         ports.Clock
	IDGen         ports.IDGenerator
	Logger        *slog.Logger
}

func (uc VoteUseCase) CheckEligibility(ctx context.Context, actor entities.Actor, projectID string) (Eligibility, error) {
	return evaluateEligibility(ctx, uc.Projects, uc.Membership, projectID, actor.UserID, resolveNow(uc.Clock))
}

func (uc VoteUseCase) SubmitVote(ctx context.Context, cmd CastVoteCommand) (entities.Ballot, error) {
	logger := application.ResolveLogger(uc.Logger)
	memberID := strings.TrimSpace(cmd.Actor.UserID)

	eligibility, err := uc.requireEligible(ctx, cmd.Actor, cmd.ProjectID)
	if err != nil {
		return entities.Ballot{}, err
	}
	project := eligibility.Project

	ballots, err := uc.buildBallots(ctx, project, memberID, []BallotInput{cmd.Ballot}, cmd.IPAddress, cmd.UserAgent)
	if err != nil {
		return entities.Ballot{}, err
	}
	ballot := ballots[0]

	existing, inserted, err := uc.Ballots.AppendBallot(ctx, ballot)
	if err != nil {
		return entities.Ballot{}, err
	}
	if !inserted {
		logger.Info("duplicate ballot rejected",
			"event", "governance_vote_duplicate",
			"module", moduleName,
			"layer", "application",
			"project_id", project.ProjectID,
			"member_id", memberID,
			"proposal_id", ballot.ProposalID,
			"voting_session", ballot.VotingSession,
			"existing_ballot_id", existing.BallotID,
		)
		return entities.Ballot{}, &domainerrors.AlreadyVotedError{
			BallotID:      existing.BallotID,
			ProposalID:    existing.ProposalID,
			VotingSession: existing.VotingSession,
		}
	}

	logger.Info("ballot recorded",
		"event", "governance_vote_cast",
		"module", moduleName,
		"layer", "application",
		"project_id", project.ProjectID,
		"member_id", memberID,
		"ballot_id", existing.BallotID,
		"proposal_id", existing.ProposalID,
		"voting_session", existing.VotingSession,
	)
	uc.notifier().notify(ctx, EventVoteCast, project.ProjectID, project.OwnerID, existing.CastAt, map[string]any{
		"project_id":     project.ProjectID,
		"ballot_count":   1,
		"voting_session": existing.VotingSession,
	})
	return existing, nil
}

// SubmitVotesBatch appends every ballot whose key is new and skips the rest.
// It fails only when the caller is ineligible or nothing new was added.
func (uc VoteUseCase) SubmitVotesBatch(ctx context.Context, cmd CastVotesBatchCommand) (BatchResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	memberID := strings.TrimSpace(cmd.Actor.UserID)
	if len(cmd.Ballots) == 0 || len(cmd.Ballots) > MaxBatchBallots {
		return BatchResult{}, domainerrors.ErrValidation
	}

	eligibility, err := uc.requireEligible(ctx, cmd.Actor, cmd.ProjectID)
	if err != nil {
		return BatchResult{}, err
	}
	project := eligibility.Project

	ballots, err := uc.buildBallots(ctx, project, memberID, cmd.Ballots, cmd.IPAddress, cmd.UserAgent)
	if err != nil {
		return BatchResult{}, err
	}

	unique := make([]entities.Ballot, 0, len(ballots))
	repeats := make([]entities.Ballot, 0)
	seen := make(map[entities.BallotKey]struct{}, len(ballots))
	for _, ballot := range ballots {
		if _, ok := seen[ballot.Key()]; ok {
			repeats = append(repeats, ballot)
			continue
		}
		seen[ballot.Key()] = struct{}{}
		unique = append(unique, ballot)
	}

	appended, err := uc.Ballots.AppendBallots(ctx, unique)
	if err != nil {
		return BatchResult{}, err
	}
	for _, skipped := range appended.Duplicates {
		logger.Info("batch ballot skipped as duplicate",
			"event", "governance_vote_batch_duplicate_skipped",
			"module", moduleName,
			"layer", "application",
			"project_id", project.ProjectID,
			"member_id", memberID,
			"existing_ballot_id", skipped.BallotID,
			"proposal_id", skipped.ProposalID,
			"voting_session", skipped.VotingSession,
		)
	}

	result := BatchResult{
		Requested:  len(cmd.Ballots),
		Added:      len(appended.Added),
		Duplicates: len(appended.Duplicates) + len(repeats),
		Ballots:    appended.Added,
		Skipped:    appended.Duplicates,
	}
	if result.Added == 0 {
		first := entities.Ballot{}
		if len(appended.Duplicates) > 0 {
			first = appended.Duplicates[0]
		}
		logger.Warn("batch contained only duplicates",
			"event", "governance_vote_batch_all_duplicates",
			"module", moduleName,
			"layer", "application",
			"project_id", project.ProjectID,
			"member_id", memberID,
			"requested", result.Requested,
		)
		return result, &domainerrors.AlreadyVotedError{
			BallotID:      first.BallotID,
			ProposalID:    first.ProposalID,
			VotingSession: first.VotingSession,
		}
	}

	logger.Info("ballot batch recorded",
		"event", "governance_vote_batch_cast",
		"module", moduleName,
		"layer", "application",
		"project_id", project.ProjectID,
		"member_id", memberID,
		"requested", result.Requested,
		"added", result.Added,
		"duplicates", result.Duplicates,
	)
	uc.notifier().notify(ctx, EventVoteCast, project.ProjectID, project.OwnerID, resolveNow(uc.Clock), map[string]any{
		"project_id":   project.ProjectID,
		"ballot_count": result.Added,
	})
	return result, nil
}

func (uc VoteUseCase) requireEligible(ctx context.Context, actor entities.Actor, projectID string) (Eligibility, error) {
	if strings.TrimSpace(actor.UserID) == "" {
		return Eligibility{}, domainerrors.ErrForbidden
	}
	eligibility, err := uc.CheckEligibility(ctx, actor, projectID)
	if err != nil {
		return Eligibility{}, err
	}
	if !eligibility.Eligible {
		application.ResolveLogger(uc.Logger).Warn("vote rejected by eligibility check",
			"event", "governance_vote_ineligible",
			"module", moduleName,
			"layer", "application",
			"project_id", eligibility.Project.ProjectID,
			"member_id", strings.TrimSpace(actor.UserID),
			"reason", string(eligibility.Reason),
		)
		return Eligibility{}, eligibility.Err()
	}
	return eligibility, nil
}

// buildBallots validates every input before anything is written, so a bad
// item in a batch never leaves the earlier ones applied.
func (uc VoteUseCase) buildBallots(
	ctx context.Context,
	project entities.RedevelopmentProject,
	memberID string,
	inputs []BallotInput,
	ipAddress string,
	userAgent string,
) ([]entities.Ballot, error) {
	now := resolveNow(uc.Clock)
	checked := make(map[string]struct{})
	out := make([]entities.Ballot, 0, len(inputs))
	for _, input := range inputs {
		choice, ok := entities.ParseVoteChoice(input.Choice)
		if !ok {
			return nil, domainerrors.ErrValidation
		}
		key := entities.BallotKey{ProposalID: input.ProposalID, VotingSession: input.VotingSession}.Normalize()
		if key.VotingSession == "" {
			return nil, domainerrors.ErrValidation
		}
		if key.ProposalID != "" {
			if _, done := checked[key.ProposalID]; !done {
				proposal, err := uc.Proposals.GetProposal(ctx, key.ProposalID)
				if err != nil {
					return nil, err
				}
				if proposal.ProjectID != project.ProjectID {
					return nil, domainerrors.ErrProposalNotFound
				}
				checked[key.ProposalID] = struct{}{}
			}
		}
		ballotID, err := uc.IDGen.NewID(ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, entities.Ballot{
			BallotID:      ballotID,
			ProjectID:     project.ProjectID,
			MemberID:      memberID,
			ProposalID:    key.ProposalID,
			VotingSession: key.VotingSession,
			Value:         choice.StoredValue(),
			Comments:      strings.TrimSpace(input.Comments),
			IPAddress:     strings.TrimSpace(ipAddress),
			UserAgent:     strings.TrimSpace(userAgent),
			CastAt:        now,
		})
	}
	return out, nil
}

func (uc VoteUseCase) notifier() notifier {
	return notifier{dispatcher: uc.Notifications, idGen: uc.IDGen, logger: uc.Logger}
}
