package queries

import (
	"context"
	"log/slog"
	"strings"

	application "societyhub/contexts/society-redevelopment/governance-service/application"
	"societyhub/contexts/society-redevelopment/governance-service/domain/entities"
	domainerrors "societyhub/contexts/society-redevelopment/governance-service/domain/errors"
	"societyhub/contexts/society-redevelopment/governance-service/ports"
)

// StatisticsUseCase serves ledger reads. The owner sees the per-voter
// breakdown; active members see aggregates and their own ballots only.
type StatisticsUseCase struct {
	Projects   ports.ProjectRepository
	Ballots    ports.BallotLedger
	Membership ports.MembershipOracle
	Logger     *slog.Logger
}

func (uc StatisticsUseCase) GetStatistics(
	ctx context.Context,
	actor entities.Actor,
	projectID string,
	filter entities.StatisticsFilter,
) (entities.VoteStatistics, error) {
	project, err := uc.Projects.GetProject(ctx, strings.TrimSpace(projectID))
	if err != nil {
		return entities.VoteStatistics{}, err
	}
	detailed := project.IsOwnedBy(actor.UserID)
	if !detailed {
		member, err := uc.isMember(ctx, project, actor)
		if err != nil {
			return entities.VoteStatistics{}, err
		}
		if !member {
			return entities.VoteStatistics{}, domainerrors.ErrForbidden
		}
	}
	stats, err := uc.compute(ctx, project, filter)
	if err != nil {
		return entities.VoteStatistics{}, err
	}
	if !detailed {
		stats = stats.WithoutVoters()
	}
	return stats, nil
}

// ProjectStatistics computes statistics with no caller context. Used by
// workers and by vote handlers that already passed the eligibility gate.
func (uc StatisticsUseCase) ProjectStatistics(
	ctx context.Context,
	projectID string,
	filter entities.StatisticsFilter,
) (entities.VoteStatistics, error) {
	project, err := uc.Projects.GetProject(ctx, strings.TrimSpace(projectID))
	if err != nil {
		return entities.VoteStatistics{}, err
	}
	return uc.compute(ctx, project, filter)
}

func (uc StatisticsUseCase) MyVote(
	ctx context.Context,
	actor entities.Actor,
	projectID string,
	key entities.BallotKey,
) (entities.Ballot, error) {
	entry, err := uc.ledgerEntry(ctx, actor, projectID)
	if err != nil {
		return entities.Ballot{}, err
	}
	ballot, ok := entry.Find(key)
	if !ok {
		return entities.Ballot{}, domainerrors.ErrBallotNotFound
	}
	return ballot, nil
}

func (uc StatisticsUseCase) MyBallots(ctx context.Context, actor entities.Actor, projectID string) (entities.LedgerEntry, error) {
	return uc.ledgerEntry(ctx, actor, projectID)
}

func (uc StatisticsUseCase) ledgerEntry(ctx context.Context, actor entities.Actor, projectID string) (entities.LedgerEntry, error) {
	memberID := strings.TrimSpace(actor.UserID)
	if memberID == "" {
		return entities.LedgerEntry{}, domainerrors.ErrForbidden
	}
	project, err := uc.Projects.GetProject(ctx, strings.TrimSpace(projectID))
	if err != nil {
		return entities.LedgerEntry{}, err
	}
	return uc.Ballots.GetLedgerEntry(ctx, project.ProjectID, memberID)
}

func (uc StatisticsUseCase) compute(
	ctx context.Context,
	project entities.RedevelopmentProject,
	filter entities.StatisticsFilter,
) (entities.VoteStatistics, error) {
	ballots, err := uc.Ballots.ListBallotsByProject(ctx, project.ProjectID)
	if err != nil {
		return entities.VoteStatistics{}, err
	}
	eligible := 0
	if uc.Membership != nil {
		eligible, err = uc.Membership.CountActiveMembers(ctx, project.SocietyID)
		if err != nil {
			application.ResolveLogger(uc.Logger).Warn("eligible member count unavailable",
				"event", "governance_statistics_member_count_failed",
				"module", "society-redevelopment/governance-service",
				"layer", "application",
				"project_id", project.ProjectID,
				"society_id", project.SocietyID,
				"error", err.Error(),
			)
			return entities.VoteStatistics{}, err
		}
	}
	return entities.ComputeStatistics(project, ballots, filter, eligible), nil
}

func (uc StatisticsUseCase) isMember(ctx context.Context, project entities.RedevelopmentProject, actor entities.Actor) (bool, error) {
	if uc.Membership == nil || strings.TrimSpace(actor.UserID) == "" {
		return false, nil
	}
	return uc.Membership.IsActiveMember(ctx, project.SocietyID, strings.TrimSpace(actor.UserID))
}
