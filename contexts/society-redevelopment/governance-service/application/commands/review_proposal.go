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

type EvaluateProposalCommand struct {
	Actor          entities.Actor
	ProposalID     string
	TechnicalScore float64
	FinancialScore float64
	TimelineScore  float64
	Notes          string
}

type RejectProposalCommand struct {
	Actor      entities.Actor
	ProposalID string
	Reason     string
}

// ReviewProposalUseCase holds the owner-side review actions. None of them
// touch the project status; selection is a separate step.
type ReviewProposalUseCase struct {
	Projects      ports.ProjectRepository
	Proposals     ports.ProposalRepository
	Notifications ports.NotificationDispatcher
	Clock         ports.Clock
	IDGen         ports.IDGenerator
	Weights       entities.ScoreWeights
	Logger        *slog.Logger
}

func (uc ReviewProposalUseCase) Evaluate(ctx context.Context, cmd EvaluateProposalCommand) (entities.DeveloperProposal, error) {
	if !entities.ValidScore(cmd.TechnicalScore) ||
		!entities.ValidScore(cmd.FinancialScore) ||
		!entities.ValidScore(cmd.TimelineScore) {
		return entities.DeveloperProposal{}, domainerrors.ErrValidation
	}
	proposal, project, err := uc.reviewTarget(ctx, cmd.Actor, cmd.ProposalID)
	if err != nil {
		return entities.DeveloperProposal{}, err
	}
	if !proposal.Status.Reviewable() {
		return entities.DeveloperProposal{}, domainerrors.NewStateConflict(
			string(proposal.Status), "evaluate proposal", domainerrors.ReasonProposalStatus)
	}

	weights := uc.Weights
	if !weights.Valid() {
		weights = entities.DefaultScoreWeights()
	}
	now := resolveNow(uc.Clock)
	// The evaluation columns are independent of status, so any reviewable
	// status at write time is accepted.
	proposal, err = uc.Proposals.UpdateProposal(ctx, ports.ProposalChange{
		ProposalID:  proposal.ProposalID,
		AllowedFrom: entities.SelectableStatuses(),
		Action:      "evaluate proposal",
		Evaluation: &entities.Evaluation{
			TechnicalScore: cmd.TechnicalScore,
			FinancialScore: cmd.FinancialScore,
			TimelineScore:  cmd.TimelineScore,
			OverallScore:   weights.OverallScore(cmd.TechnicalScore, cmd.FinancialScore, cmd.TimelineScore),
			EvaluatorID:    project.OwnerID,
			EvaluatedAt:    now,
			Notes:          strings.TrimSpace(cmd.Notes),
		},
		UpdatedAt: now,
	})
	if err != nil {
		return entities.DeveloperProposal{}, err
	}

	application.ResolveLogger(uc.Logger).Info("proposal evaluated",
		"event", "governance_proposal_evaluated",
		"module", moduleName,
		"layer", "application",
		"project_id", project.ProjectID,
		"proposal_id", proposal.ProposalID,
		"overall_score", proposal.Evaluation.OverallScore,
	)
	uc.notifier().notify(ctx, EventProposalReviewed, project.ProjectID, proposal.DeveloperID, now, map[string]any{
		"project_id":    project.ProjectID,
		"proposal_id":   proposal.ProposalID,
		"action":        "evaluated",
		"overall_score": proposal.Evaluation.OverallScore,
	})
	return proposal, nil
}

func (uc ReviewProposalUseCase) Approve(ctx context.Context, actor entities.Actor, proposalID string) (entities.DeveloperProposal, error) {
	return uc.moveTo(ctx, actor, proposalID, entities.ProposalStatusApproved, "approve proposal", "")
}

func (uc ReviewProposalUseCase) MarkUnderReview(ctx context.Context, actor entities.Actor, proposalID string) (entities.DeveloperProposal, error) {
	return uc.moveTo(ctx, actor, proposalID, entities.ProposalStatusUnderReview, "mark proposal under review", "")
}

func (uc ReviewProposalUseCase) Shortlist(ctx context.Context, actor entities.Actor, proposalID string) (entities.DeveloperProposal, error) {
	return uc.moveTo(ctx, actor, proposalID, entities.ProposalStatusShortlisted, "shortlist proposal", "")
}

// Reject closes a single proposal with an owner-supplied reason. It is
// independent of selection and leaves the project untouched.
func (uc ReviewProposalUseCase) Reject(ctx context.Context, cmd RejectProposalCommand) (entities.DeveloperProposal, error) {
	reason := strings.TrimSpace(cmd.Reason)
	if reason == "" {
		return entities.DeveloperProposal{}, domainerrors.ErrValidation
	}
	return uc.moveTo(ctx, cmd.Actor, cmd.ProposalID, entities.ProposalStatusRejected, "reject proposal", reason)
}

func (uc ReviewProposalUseCase) moveTo(
	ctx context.Context,
	actor entities.Actor,
	proposalID string,
	to entities.ProposalStatus,
	action string,
	reason string,
) (entities.DeveloperProposal, error) {
	logger := application.ResolveLogger(uc.Logger)
	proposal, project, err := uc.reviewTarget(ctx, actor, proposalID)
	if err != nil {
		return entities.DeveloperProposal{}, err
	}
	if !proposal.Status.Reviewable() || proposal.Status == to {
		logger.Warn("proposal review rejected",
			"event", "governance_proposal_review_rejected",
			"module", moduleName,
			"layer", "application",
			"proposal_id", proposal.ProposalID,
			"status", string(proposal.Status),
			"action", action,
		)
		return entities.DeveloperProposal{}, domainerrors.NewStateConflict(
			string(proposal.Status), action, domainerrors.ReasonProposalStatus)
	}

	from := proposal.Status
	now := resolveNow(uc.Clock)
	change := ports.ProposalChange{
		ProposalID:  proposal.ProposalID,
		AllowedFrom: []entities.ProposalStatus{from},
		Action:      action,
		Status:      &to,
		UpdatedAt:   now,
	}
	if to == entities.ProposalStatusRejected {
		change.Rejection = &ports.ProposalRejection{Reason: reason, By: project.OwnerID}
	}
	proposal, err = uc.Proposals.UpdateProposal(ctx, change)
	if err != nil {
		return entities.DeveloperProposal{}, err
	}

	logger.Info("proposal status changed",
		"event", "governance_proposal_status_changed",
		"module", moduleName,
		"layer", "application",
		"project_id", project.ProjectID,
		"proposal_id", proposal.ProposalID,
		"from_status", string(from),
		"to_status", string(to),
	)
	eventType := EventProposalReviewed
	data := map[string]any{
		"project_id":  project.ProjectID,
		"proposal_id": proposal.ProposalID,
		"from_status": string(from),
		"to_status":   string(to),
	}
	if to == entities.ProposalStatusRejected {
		eventType = EventProposalRejected
		data["reason"] = reason
	}
	uc.notifier().notify(ctx, eventType, project.ProjectID, proposal.DeveloperID, now, data)
	return proposal, nil
}

// reviewTarget loads the proposal and its project and checks that the actor
// owns the project.
func (uc ReviewProposalUseCase) reviewTarget(
	ctx context.Context,
	actor entities.Actor,
	proposalID string,
) (entities.DeveloperProposal, entities.RedevelopmentProject, error) {
	if strings.TrimSpace(proposalID) == "" {
		return entities.DeveloperProposal{}, entities.RedevelopmentProject{}, domainerrors.ErrValidation
	}
	proposal, err := uc.Proposals.GetProposal(ctx, strings.TrimSpace(proposalID))
	if err != nil {
		return entities.DeveloperProposal{}, entities.RedevelopmentProject{}, err
	}
	project, err := uc.Projects.GetProject(ctx, proposal.ProjectID)
	if err != nil {
		return entities.DeveloperProposal{}, entities.RedevelopmentProject{}, err
	}
	if !project.IsOwnedBy(actor.UserID) {
		return entities.DeveloperProposal{}, entities.RedevelopmentProject{}, domainerrors.ErrForbidden
	}
	return proposal, project, nil
}

func (uc ReviewProposalUseCase) notifier() notifier {
	return notifier{dispatcher: uc.Notifications, idGen: uc.IDGen, logger: uc.Logger}
}
