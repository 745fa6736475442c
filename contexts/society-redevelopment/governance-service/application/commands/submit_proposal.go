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

type SubmitProposalCommand struct {
	Actor     entities.Actor
	ProjectID string
	Terms     entities.FinancialTerms
	Amenities []string
	Summary   string
	Draft     bool
}

// SubmitProposalResult reports whether this submission moved the project to
// proposals_received. Exactly one submission per project observes true.
type SubmitProposalResult struct {
	Proposal          entities.DeveloperProposal
	Project           entities.RedevelopmentProject
	TransitionApplied bool
}

type UpdateProposalCommand struct {
	Actor      entities.Actor
	ProposalID string
	Terms      entities.FinancialTerms
	Amenities  []string
	Summary    string
}

// ProposalUseCase covers the developer side of the proposal lifecycle.
type ProposalUseCase struct {
	Projects      ports.ProjectRepository
	Proposals     ports.ProposalRepository
	Notifications ports.NotificationDispatcher
	Clock         ports.Clock
	IDGen         ports.IDGenerator
	Logger        *slog.Logger
}

func (uc ProposalUseCase) SubmitProposal(ctx context.Context, cmd SubmitProposalCommand) (SubmitProposalResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	logger.Info("proposal submit processing started",
		"event", "governance_proposal_submit_started",
		"module", moduleName,
		"layer", "application",
		"project_id", strings.TrimSpace(cmd.ProjectID),
		"developer_id", strings.TrimSpace(cmd.Actor.UserID),
	)
	if !cmd.Actor.Is(entities.RoleDeveloper) {
		return SubmitProposalResult{}, domainerrors.ErrForbidden
	}
	if strings.TrimSpace(cmd.ProjectID) == "" || !cmd.Terms.Valid() {
		logger.Warn("proposal submit validation failed",
			"event", "governance_proposal_submit_validation_failed",
			"module", moduleName,
			"layer", "application",
			"project_id", strings.TrimSpace(cmd.ProjectID),
			"developer_id", strings.TrimSpace(cmd.Actor.UserID),
		)
		return SubmitProposalResult{}, domainerrors.ErrValidation
	}

	// Early read gives a precise error before allocating ids; the store
	// re-checks status and uniqueness at commit time.
	project, err := uc.Projects.GetProject(ctx, strings.TrimSpace(cmd.ProjectID))
	if err != nil {
		return SubmitProposalResult{}, err
	}
	if !project.Status.AcceptsProposals() {
		return SubmitProposalResult{}, domainerrors.NewStateConflict(
			string(project.Status), "submit proposal", domainerrors.ReasonNotAcceptingProposals)
	}

	now := resolveNow(uc.Clock)
	proposalID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return SubmitProposalResult{}, err
	}
	status := entities.ProposalStatusSubmitted
	if cmd.Draft {
		status = entities.ProposalStatusDraft
	}
	proposal := entities.DeveloperProposal{
		ProposalID:  proposalID,
		ProjectID:   project.ProjectID,
		DeveloperID: strings.TrimSpace(cmd.Actor.UserID),
		Status:      status,
		Terms:       cmd.Terms,
		Amenities:   normalizeAmenities(cmd.Amenities),
		Summary:     strings.TrimSpace(cmd.Summary),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if !cmd.Draft {
		submittedAt := now
		proposal.SubmittedAt = &submittedAt
	}

	result, err := uc.Proposals.InsertProposal(ctx, proposal, now)
	if err != nil {
		logger.Warn("proposal submit rejected by store",
			"event", "governance_proposal_submit_rejected",
			"module", moduleName,
			"layer", "application",
			"project_id", project.ProjectID,
			"developer_id", proposal.DeveloperID,
			"error", err.Error(),
		)
		return SubmitProposalResult{}, err
	}

	logger.Info("proposal submitted",
		"event", "governance_proposal_submitted",
		"module", moduleName,
		"layer", "application",
		"project_id", result.Project.ProjectID,
		"proposal_id", result.Proposal.ProposalID,
		"developer_id", result.Proposal.DeveloperID,
		"status", string(result.Proposal.Status),
		"transition_applied", result.TransitionApplied,
	)
	uc.notifier().notify(ctx, EventProposalSubmitted, result.Project.ProjectID, result.Project.OwnerID, now, map[string]any{
		"project_id":   result.Project.ProjectID,
		"proposal_id":  result.Proposal.ProposalID,
		"developer_id": result.Proposal.DeveloperID,
		"status":       string(result.Proposal.Status),
	})
	if result.TransitionApplied {
		uc.notifier().notify(ctx, EventProjectStatus, result.Project.ProjectID, "", now, map[string]any{
			"project_id":  result.Project.ProjectID,
			"from_status": string(project.Status),
			"to_status":   string(entities.ProjectStatusProposalsReceived),
		})
	}
	return SubmitProposalResult{
		Proposal:          result.Proposal,
		Project:           result.Project,
		TransitionApplied: result.TransitionApplied,
	}, nil
}

// UpdateProposal lets the owning developer revise terms while the proposal
// is still a draft or freshly submitted.
func (uc ProposalUseCase) UpdateProposal(ctx context.Context, cmd UpdateProposalCommand) (entities.DeveloperProposal, error) {
	proposal, err := uc.ownedProposal(ctx, cmd.Actor, cmd.ProposalID)
	if err != nil {
		return entities.DeveloperProposal{}, err
	}
	if !cmd.Terms.Valid() {
		return entities.DeveloperProposal{}, domainerrors.ErrValidation
	}
	if !proposal.Status.DeveloperEditable() {
		return entities.DeveloperProposal{}, domainerrors.NewStateConflict(
			string(proposal.Status), "update proposal", domainerrors.ReasonProposalStatus)
	}
	proposal, err = uc.Proposals.UpdateProposal(ctx, ports.ProposalChange{
		ProposalID: proposal.ProposalID,
		AllowedFrom: []entities.ProposalStatus{
			entities.ProposalStatusDraft,
			entities.ProposalStatusSubmitted,
		},
		Action: "update proposal",
		Content: &ports.ProposalContent{
			Terms:     cmd.Terms,
			Amenities: normalizeAmenities(cmd.Amenities),
			Summary:   strings.TrimSpace(cmd.Summary),
		},
		UpdatedAt: resolveNow(uc.Clock),
	})
	if err != nil {
		return entities.DeveloperProposal{}, err
	}
	application.ResolveLogger(uc.Logger).Info("proposal updated",
		"event", "governance_proposal_updated",
		"module", moduleName,
		"layer", "application",
		"proposal_id", proposal.ProposalID,
		"developer_id", proposal.DeveloperID,
	)
	return proposal, nil
}

// SubmitDraft promotes a draft to submitted, provided the project still
// accepts proposals.
func (uc ProposalUseCase) SubmitDraft(ctx context.Context, actor entities.Actor, proposalID string) (entities.DeveloperProposal, error) {
	proposal, err := uc.ownedProposal(ctx, actor, proposalID)
	if err != nil {
		return entities.DeveloperProposal{}, err
	}
	if proposal.Status != entities.ProposalStatusDraft {
		return entities.DeveloperProposal{}, domainerrors.NewStateConflict(
			string(proposal.Status), "submit draft", domainerrors.ReasonProposalStatus)
	}
	project, err := uc.Projects.GetProject(ctx, proposal.ProjectID)
	if err != nil {
		return entities.DeveloperProposal{}, err
	}
	if !project.Status.AcceptsProposals() {
		return entities.DeveloperProposal{}, domainerrors.NewStateConflict(
			string(project.Status), "submit draft", domainerrors.ReasonNotAcceptingProposals)
	}
	now := resolveNow(uc.Clock)
	submitted := entities.ProposalStatusSubmitted
	proposal, err = uc.Proposals.UpdateProposal(ctx, ports.ProposalChange{
		ProposalID:  proposal.ProposalID,
		AllowedFrom: []entities.ProposalStatus{entities.ProposalStatusDraft},
		Action:      "submit draft",
		Status:      &submitted,
		SubmittedAt: &now,
		UpdatedAt:   now,
	})
	if err != nil {
		return entities.DeveloperProposal{}, err
	}
	uc.notifier().notify(ctx, EventProposalSubmitted, project.ProjectID, project.OwnerID, now, map[string]any{
		"project_id":   project.ProjectID,
		"proposal_id":  proposal.ProposalID,
		"developer_id": proposal.DeveloperID,
		"status":       string(proposal.Status),
	})
	return proposal, nil
}

func (uc ProposalUseCase) WithdrawProposal(ctx context.Context, actor entities.Actor, proposalID string) (entities.DeveloperProposal, error) {
	logger := application.ResolveLogger(uc.Logger)
	proposal, err := uc.ownedProposal(ctx, actor, proposalID)
	if err != nil {
		return entities.DeveloperProposal{}, err
	}
	if !proposal.Status.DeveloperEditable() {
		return entities.DeveloperProposal{}, domainerrors.NewStateConflict(
			string(proposal.Status), "withdraw proposal", domainerrors.ReasonProposalStatus)
	}
	now := resolveNow(uc.Clock)
	withdrawn := entities.ProposalStatusWithdrawn
	proposal, err = uc.Proposals.UpdateProposal(ctx, ports.ProposalChange{
		ProposalID: proposal.ProposalID,
		AllowedFrom: []entities.ProposalStatus{
			entities.ProposalStatusDraft,
			entities.ProposalStatusSubmitted,
		},
		Action:    "withdraw proposal",
		Status:    &withdrawn,
		UpdatedAt: now,
	})
	if err != nil {
		return entities.DeveloperProposal{}, err
	}
	logger.Info("proposal withdrawn",
		"event", "governance_proposal_withdrawn",
		"module", moduleName,
		"layer", "application",
		"proposal_id", proposal.ProposalID,
		"project_id", proposal.ProjectID,
		"developer_id", proposal.DeveloperID,
	)
	uc.notifier().notify(ctx, EventProposalWithdrawn, proposal.ProjectID, "", now, map[string]any{
		"project_id":   proposal.ProjectID,
		"proposal_id":  proposal.ProposalID,
		"developer_id": proposal.DeveloperID,
	})
	return proposal, nil
}

func (uc ProposalUseCase) ownedProposal(ctx context.Context, actor entities.Actor, proposalID string) (entities.DeveloperProposal, error) {
	if strings.TrimSpace(proposalID) == "" {
		return entities.DeveloperProposal{}, domainerrors.ErrValidation
	}
	proposal, err := uc.Proposals.GetProposal(ctx, strings.TrimSpace(proposalID))
	if err != nil {
		return entities.DeveloperProposal{}, err
	}
	if !actor.Is(entities.RoleDeveloper) || proposal.DeveloperID != strings.TrimSpace(actor.UserID) {
		return entities.DeveloperProposal{}, domainerrors.ErrForbidden
	}
	return proposal, nil
}

func (uc ProposalUseCase) notifier() notifier {
	return notifier{dispatcher: uc.Notifications, idGen: uc.IDGen, logger: uc.Logger}
}

func normalizeAmenities(items []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}
