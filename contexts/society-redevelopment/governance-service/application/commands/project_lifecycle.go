package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "societyhub/contexts/society-redevelopment/governance-service/application"
	"societyhub/contexts/society-redevelopment/governance-service/domain/entities"
	domainerrors "societyhub/contexts/society-redevelopment/governance-service/domain/errors"
	"societyhub/contexts/society-redevelopment/governance-service/ports"
)

type CreateProjectCommand struct {
	Actor                     entities.Actor
	SocietyID                 string
	Title                     string
	Description               string
	MinimumApprovalPercentage int
}

type OpenVotingCommand struct {
	Actor     entities.Actor
	ProjectID string
	Deadline  time.Time
}

type AdvanceProjectCommand struct {
	Actor     entities.Actor
	ProjectID string
	To        entities.ProjectStatus
}

type CancelProjectCommand struct {
	Actor     entities.Actor
	ProjectID string
	Reason    string
}

// ProjectLifecycleUseCase drives the owner-controlled edges of the project
// state machine. The automatic proposals_received edge lives in the proposal
// store and the developer_selected edge in the selection coordinator.
type ProjectLifecycleUseCase struct {
	Projects               ports.ProjectRepository
	Notifications          ports.NotificationDispatcher
	Clock                  ports.Clock
	IDGen                  ports.IDGenerator
	DefaultMinimumApproval int
	Logger                 *slog.Logger
}

func (uc ProjectLifecycleUseCase) CreateProject(ctx context.Context, cmd CreateProjectCommand) (entities.RedevelopmentProject, error) {
	logger := application.ResolveLogger(uc.Logger)
	if !cmd.Actor.Is(entities.RoleOwner) {
		return entities.RedevelopmentProject{}, domainerrors.ErrForbidden
	}
	minimum := cmd.MinimumApprovalPercentage
	if minimum == 0 {
		minimum = uc.DefaultMinimumApproval
	}
	if minimum == 0 {
		minimum = entities.DefaultMinimumApprovalPercentage
	}

	now := resolveNow(uc.Clock)
	project := entities.RedevelopmentProject{
		SocietyID:                 strings.TrimSpace(cmd.SocietyID),
		OwnerID:                   strings.TrimSpace(cmd.Actor.UserID),
		Title:                     strings.TrimSpace(cmd.Title),
		Description:               strings.TrimSpace(cmd.Description),
		Status:                    entities.ProjectStatusPlanning,
		MinimumApprovalPercentage: minimum,
		CreatedAt:                 now,
		UpdatedAt:                 now,
	}
	if !project.ValidateCreate() {
		logger.Warn("project create validation failed",
			"event", "governance_project_create_validation_failed",
			"module", moduleName,
			"layer", "application",
			"owner_id", project.OwnerID,
			"society_id", project.SocietyID,
			"minimum_approval_percentage", minimum,
		)
		return entities.RedevelopmentProject{}, domainerrors.ErrValidation
	}

	projectID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.RedevelopmentProject{}, err
	}
	project.ProjectID = projectID
	if err := uc.Projects.CreateProject(ctx, project); err != nil {
		return entities.RedevelopmentProject{}, err
	}

	logger.Info("project created",
		"event", "governance_project_created",
		"module", moduleName,
		"layer", "application",
		"project_id", project.ProjectID,
		"society_id", project.SocietyID,
		"owner_id", project.OwnerID,
	)
	uc.notifier().notify(ctx, EventProjectCreated, project.ProjectID, project.OwnerID, now, map[string]any{
		"project_id": project.ProjectID,
		"society_id": project.SocietyID,
		"status":     string(project.Status),
	})
	return project, nil
}

func (uc ProjectLifecycleUseCase) OpenTender(ctx context.Context, actor entities.Actor, projectID string) (entities.RedevelopmentProject, error) {
	return uc.transition(ctx, actor, projectID, "open tender", entities.ProjectStatusTenderOpen, nil, "")
}

func (uc ProjectLifecycleUseCase) OpenVoting(ctx context.Context, cmd OpenVotingCommand) (entities.RedevelopmentProject, error) {
	if cmd.Deadline.IsZero() || !cmd.Deadline.UTC().After(resolveNow(uc.Clock)) {
		return entities.RedevelopmentProject{}, domainerrors.ErrValidation
	}
	deadline := cmd.Deadline.UTC()
	return uc.transition(ctx, cmd.Actor, cmd.ProjectID, "open voting", entities.ProjectStatusVoting, &deadline, "")
}

// Advance covers the manual developer_selected -> construction -> completed
// progression.
func (uc ProjectLifecycleUseCase) Advance(ctx context.Context, cmd AdvanceProjectCommand) (entities.RedevelopmentProject, error) {
	switch cmd.To {
	case entities.ProjectStatusConstruction, entities.ProjectStatusCompleted:
	default:
		return entities.RedevelopmentProject{}, domainerrors.ErrValidation
	}
	return uc.transition(ctx, cmd.Actor, cmd.ProjectID, "advance to "+string(cmd.To), cmd.To, nil, "")
}

func (uc ProjectLifecycleUseCase) Cancel(ctx context.Context, cmd CancelProjectCommand) (entities.RedevelopmentProject, error) {
	return uc.transition(ctx, cmd.Actor, cmd.ProjectID, "cancel", entities.ProjectStatusCancelled, nil, strings.TrimSpace(cmd.Reason))
}

// DeleteProject removes the project and cascades to its proposals and ballots.
func (uc ProjectLifecycleUseCase) DeleteProject(ctx context.Context, actor entities.Actor, projectID string) error {
	logger := application.ResolveLogger(uc.Logger)
	project, err := uc.Projects.GetProject(ctx, strings.TrimSpace(projectID))
	if err != nil {
		return err
	}
	if !project.IsOwnedBy(actor.UserID) {
		return domainerrors.ErrForbidden
	}
	if err := uc.Projects.DeleteProject(ctx, project.ProjectID); err != nil {
		return err
	}
	logger.Info("project deleted",
		"event", "governance_project_deleted",
		"module", moduleName,
		"layer", "application",
		"project_id", project.ProjectID,
		"owner_id", project.OwnerID,
	)
	return nil
}

func (uc ProjectLifecycleUseCase) transition(
	ctx context.Context,
	actor entities.Actor,
	projectID string,
	action string,
	to entities.ProjectStatus,
	deadline *time.Time,
	reason string,
) (entities.RedevelopmentProject, error) {
	logger := application.ResolveLogger(uc.Logger)
	project, err := uc.Projects.GetProject(ctx, strings.TrimSpace(projectID))
	if err != nil {
		return entities.RedevelopmentProject{}, err
	}
	if !project.IsOwnedBy(actor.UserID) {
		logger.Warn("project transition forbidden",
			"event", "governance_project_transition_forbidden",
			"module", moduleName,
			"layer", "application",
			"project_id", project.ProjectID,
			"actor_id", strings.TrimSpace(actor.UserID),
			"action", action,
		)
		return entities.RedevelopmentProject{}, domainerrors.ErrForbidden
	}
	if !entities.CanTransition(project.Status, to) {
		logger.Warn("project transition rejected",
			"event", "governance_project_transition_rejected",
			"module", moduleName,
			"layer", "application",
			"project_id", project.ProjectID,
			"from_status", string(project.Status),
			"to_status", string(to),
		)
		return entities.RedevelopmentProject{}, domainerrors.NewStateConflict(
			string(project.Status), action, domainerrors.ReasonIllegalTransition)
	}

	now := resolveNow(uc.Clock)
	updated, err := uc.Projects.TransitionProject(ctx, ports.ProjectTransition{
		ProjectID:          project.ProjectID,
		From:               project.Status,
		To:                 to,
		VotingDeadline:     deadline,
		CancellationReason: reason,
		UpdatedAt:          now,
	})
	if err != nil {
		return entities.RedevelopmentProject{}, err
	}

	logger.Info("project state changed",
		"event", "governance_project_state_changed",
		"module", moduleName,
		"layer", "application",
		"project_id", updated.ProjectID,
		"from_status", string(project.Status),
		"to_status", string(updated.Status),
	)
	data := map[string]any{
		"project_id":  updated.ProjectID,
		"from_status": string(project.Status),
		"to_status":   string(updated.Status),
	}
	if updated.VotingDeadline != nil {
		data["voting_deadline"] = updated.VotingDeadline.UTC().Format(time.RFC3339Nano)
	}
	uc.notifier().notify(ctx, EventProjectStatus, updated.ProjectID, "", now, data)
	return updated, nil
}

func (uc ProjectLifecycleUseCase) notifier() notifier {
	return notifier{dispatcher: uc.Notifications, idGen: uc.IDGen, logger: uc.Logger}
}
