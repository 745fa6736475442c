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

type SelectProposalCommand struct {
	Actor      entities.Actor
	ProjectID  string
	ProposalID string
	Reason     string
}

type SelectProposalResult struct {
	Project  entities.RedevelopmentProject
	Selected entities.DeveloperProposal
	Rejected []entities.DeveloperProposal
}

// SelectProposalUseCase closes a project's tender by picking one proposal.
// Validation happens here; the guarded write happens in one ApplySelection
// call so two owners racing on the same project produce a single winner.
type SelectProposalUseCase struct {
	Projects      ports.ProjectRepository
	Proposals     ports.ProposalRepository
	Selections    ports.SelectionStore
	Notifications ports.NotificationDispatcher
	Clock         ports.Clock
	IDGen         ports.IDGenerator
	Logger        *slog.Logger
}

func (uc SelectProposalUseCase) Execute(ctx context.Context, cmd SelectProposalCommand) (SelectProposalResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	projectID := strings.TrimSpace(cmd.ProjectID)
	proposalID := strings.TrimSpace(cmd.ProposalID)
	if proposalID == "" {
		return SelectProposalResult{}, domainerrors.ErrValidation
	}

	proposal, err := uc.Proposals.GetProposal(ctx, proposalID)
	if err != nil {
		return SelectProposalResult{}, err
	}
	if projectID == "" {
		projectID = proposal.ProjectID
	}
	project, err := uc.Projects.GetProject(ctx, projectID)
	if err != nil {
		return SelectProposalResult{}, err
	}
	if !project.IsOwnedBy(cmd.Actor.UserID) {
		logger.Warn("proposal selection forbidden",
			"event", "governance_selection_forbidden",
			"module", moduleName,
			"layer", "application",
			"project_id", project.ProjectID,
			"actor_id", strings.TrimSpace(cmd.Actor.UserID),
		)
		return SelectProposalResult{}, domainerrors.ErrForbidden
	}
	if proposal.ProjectID != project.ProjectID {
		return SelectProposalResult{}, domainerrors.ErrProposalNotFound
	}
	if !proposal.Status.IsSelectable() {
		return SelectProposalResult{}, domainerrors.NewStateConflict(
			string(proposal.Status), "select proposal", domainerrors.ReasonProposalStatus)
	}
	if project.HasSelection() {
		return SelectProposalResult{}, domainerrors.NewStateConflict(
			string(project.Status), "select proposal", domainerrors.ReasonAlreadySelected)
	}
	if project.Status != entities.ProjectStatusVoting {
		return SelectProposalResult{}, domainerrors.NewStateConflict(
			string(project.Status), "select proposal", domainerrors.ReasonIllegalTransition)
	}

	now := resolveNow(uc.Clock)
	result, err := uc.Selections.ApplySelection(ctx, ports.SelectionInput{
		ProjectID:  project.ProjectID,
		ProposalID: proposal.ProposalID,
		OwnerID:    project.OwnerID,
		Reason:     entities.CompetitorRejectionReason,
		SelectedAt: now,
	})
	if err != nil {
		logger.Warn("proposal selection rejected by store",
			"event", "governance_selection_rejected",
			"module", moduleName,
			"layer", "application",
			"project_id", project.ProjectID,
			"proposal_id", proposal.ProposalID,
			"error", err.Error(),
		)
		return SelectProposalResult{}, err
	}

	logger.Info("proposal selected",
		"event", "governance_proposal_selected",
		"module", moduleName,
		"layer", "application",
		"project_id", result.Project.ProjectID,
		"proposal_id", result.Selected.ProposalID,
		"developer_id", result.Selected.DeveloperID,
		"rejected_count", len(result.Rejected),
	)

	// Post-commit fan-out: one event per affected developer.
	n := uc.notifier()
	n.notify(ctx, EventProposalSelected, result.Project.ProjectID, result.Selected.DeveloperID, now, map[string]any{
		"project_id":  result.Project.ProjectID,
		"proposal_id": result.Selected.ProposalID,
		"reason":      strings.TrimSpace(cmd.Reason),
	})
	for _, rejected := range result.Rejected {
		n.notify(ctx, EventProposalRejected, result.Project.ProjectID, rejected.DeveloperID, now, map[string]any{
			"project_id":  result.Project.ProjectID,
			"proposal_id": rejected.ProposalID,
			"reason":      rejected.RejectionReason,
		})
	}
	n.notify(ctx, EventProjectStatus, result.Project.ProjectID, "", now, map[string]any{
		"project_id":  result.Project.ProjectID,
		"from_status": string(entities.ProjectStatusVoting),
		"to_status":   string(result.Project.Status),
	})

	return SelectProposalResult{
		Project:  result.Project,
		Selected: result.Selected,
		Rejected: result.Rejected,
	}, nil
}

func (uc SelectProposalUseCase) notifier() notifier {
	return notifier{dispatcher: uc.Notifications, idGen: uc.IDGen, logger: uc.Logger}
}
