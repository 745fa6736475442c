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

// VerifyVoteUseCase lets the project owner attest a ballot. The vote value
// is never modified.
type VerifyVoteUseCase struct {
	Projects      ports.ProjectRepository
	Ballots       ports.BallotLedger
	Notifications ports.NotificationDispatcher
	Clock         ports.Clock
	IDGen         ports.IDGenerator
	Logger        *slog.Logger
}

func (uc VerifyVoteUseCase) Execute(ctx context.Context, actor entities.Actor, ballotID string) (entities.Ballot, error) {
	logger := application.ResolveLogger(uc.Logger)
	ballotID = strings.TrimSpace(ballotID)
	if ballotID == "" {
		return entities.Ballot{}, domainerrors.ErrValidation
	}
	ballot, err := uc.Ballots.GetBallot(ctx, ballotID)
	if err != nil {
		return entities.Ballot{}, err
	}
	project, err := uc.Projects.GetProject(ctx, ballot.ProjectID)
	if err != nil {
		return entities.Ballot{}, err
	}
	if !project.IsOwnedBy(actor.UserID) {
		logger.Warn("ballot verification forbidden",
			"event", "governance_vote_verify_forbidden",
			"module", moduleName,
			"layer", "application",
			"ballot_id", ballotID,
			"actor_id", strings.TrimSpace(actor.UserID),
		)
		return entities.Ballot{}, domainerrors.ErrForbidden
	}

	now := resolveNow(uc.Clock)
	verified, err := uc.Ballots.MarkBallotVerified(ctx, ballotID, project.OwnerID, now)
	if err != nil {
		return entities.Ballot{}, err
	}
	logger.Info("ballot verified",
		"event", "governance_vote_verified",
		"module", moduleName,
		"layer", "application",
		"project_id", project.ProjectID,
		"ballot_id", verified.BallotID,
		"member_id", verified.MemberID,
	)
	uc.notifier().notify(ctx, EventVoteVerified, project.ProjectID, verified.MemberID, now, map[string]any{
		"project_id": project.ProjectID,
		"ballot_id":  verified.BallotID,
	})
	return verified, nil
}

func (uc VerifyVoteUseCase) notifier() notifier {
	return notifier{dispatcher: uc.Notifications, idGen: uc.IDGen, logger: uc.Logger}
}
