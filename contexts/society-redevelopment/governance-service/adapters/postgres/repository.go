package postgresadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"societyhub/contexts/society-redevelopment/governance-service/domain/entities"
	domainerrors "societyhub/contexts/society-redevelopment/governance-service/domain/errors"
	"societyhub/contexts/society-redevelopment/governance-service/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const moduleName = "society-redevelopment/governance-service"

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

func (r *Repository) CreateProject(ctx context.Context, project entities.RedevelopmentProject) error {
	row := projectModelFromEntity(project)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrConflict
		}
		return r.logError("governance_repo_create_project_failed", err, "project_id", row.ProjectID)
	}
	return nil
}

func (r *Repository) GetProject(ctx context.Context, projectID string) (entities.RedevelopmentProject, error) {
	row, err := r.loadProject(r.db.WithContext(ctx), strings.TrimSpace(projectID), false)
	if err != nil {
		if errors.Is(err, domainerrors.ErrProjectNotFound) {
			return entities.RedevelopmentProject{}, err
		}
		return entities.RedevelopmentProject{}, r.logError("governance_repo_get_project_failed", err,
			"project_id", strings.TrimSpace(projectID),
		)
	}
	return row.toEntity(), nil
}

// TransitionProject updates the row only while its status still equals
// input.From; a zero-row update is resolved into NotFound or StateConflict.
func (r *Repository) TransitionProject(ctx context.Context, input ports.ProjectTransition) (entities.RedevelopmentProject, error) {
	projectID := strings.TrimSpace(input.ProjectID)
	updates := map[string]any{
		"status":     string(input.To),
		"updated_at": input.UpdatedAt.UTC(),
	}
	if input.VotingDeadline != nil {
		updates["voting_deadline"] = input.VotingDeadline.UTC()
		updates["voting_closed_at"] = nil
	}
	if input.To == entities.ProjectStatusCancelled {
		updates["cancellation_reason"] = input.CancellationReason
	}

	var updated projectModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&projectModel{}).
			Where("project_id = ? AND status = ?", projectID, string(input.From)).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		row, err := r.loadProject(tx, projectID, false)
		if err != nil {
			return err
		}
		if result.RowsAffected == 0 {
			return domainerrors.NewStateConflict(row.Status, "transition to "+string(input.To), domainerrors.ReasonIllegalTransition)
		}
		updated = row
		return nil
	})
	if err != nil {
		if isDomainError(err) {
			return entities.RedevelopmentProject{}, err
		}
		return entities.RedevelopmentProject{}, r.logError("governance_repo_transition_project_failed", err,
			"project_id", projectID,
			"from_status", string(input.From),
			"to_status", string(input.To),
		)
	}
	return updated.toEntity(), nil
}

// DeleteProject relies on ON DELETE CASCADE for proposals and ballots.
func (r *Repository) DeleteProject(ctx context.Context, projectID string) error {
	result := r.db.WithContext(ctx).
		Where("project_id = ?", strings.TrimSpace(projectID)).
		Delete(&projectModel{})
	if result.Error != nil {
		return r.logError("governance_repo_delete_project_failed", result.Error,
			"project_id", strings.TrimSpace(projectID),
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrProjectNotFound
	}
	return nil
}

func (r *Repository) ListProjectsPastDeadline(ctx context.Context, now time.Time, limit int) ([]entities.RedevelopmentProject, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []projectModel
	if err := r.db.WithContext(ctx).
		Where("status = ? AND voting_deadline IS NOT NULL AND voting_deadline <= ? AND voting_closed_at IS NULL",
			string(entities.ProjectStatusVoting), now.UTC()).
		Order("voting_deadline ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("governance_repo_list_projects_past_deadline_failed", err, "limit", limit)
	}
	items := make([]entities.RedevelopmentProject, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) MarkVotingClosed(ctx context.Context, projectID string, deadline time.Time, at time.Time) error {
	projectID = strings.TrimSpace(projectID)
	result := r.db.WithContext(ctx).
		Model(&projectModel{}).
		Where("project_id = ? AND voting_deadline = ? AND voting_closed_at IS NULL", projectID, deadline.UTC()).
		Update("voting_closed_at", at.UTC())
	if result.Error != nil {
		return r.logError("governance_repo_mark_voting_closed_failed", result.Error,
			"project_id", projectID,
		)
	}
	return nil
}

// InsertProposal locks the project row, so concurrent submissions to one
// project serialize. The automatic status change is a conditional update on
// the locked row and reports whether this call performed it.
func (r *Repository) InsertProposal(
	ctx context.Context,
	proposal entities.DeveloperProposal,
	now time.Time,
) (ports.InsertProposalResult, error) {
	row := proposalModelFromEntity(proposal)
	var result ports.InsertProposalResult
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		project, err := r.loadProject(tx, row.ProjectID, true)
		if err != nil {
			return err
		}
		status := entities.ProjectStatus(project.Status)
		if !status.AcceptsProposals() {
			return domainerrors.NewStateConflict(project.Status, "submit proposal", domainerrors.ReasonNotAcceptingProposals)
		}

		var active int64
		if err := tx.Model(&proposalModel{}).
			Where("project_id = ? AND developer_id = ? AND status <> ?",
				row.ProjectID, row.DeveloperID, string(entities.ProposalStatusWithdrawn)).
			Count(&active).Error; err != nil {
			return err
		}
		if active > 0 {
			return domainerrors.ErrDuplicateProposal
		}
		if err := tx.Create(&row).Error; err != nil {
			if isUniqueViolation(err) {
				return domainerrors.ErrDuplicateProposal
			}
			return err
		}

		flip := tx.Model(&projectModel{}).
			Where("project_id = ? AND status IN ?", row.ProjectID, []string{
				string(entities.ProjectStatusPlanning),
				string(entities.ProjectStatusTenderOpen),
			}).
			Updates(map[string]any{
				"status":                string(entities.ProjectStatusProposalsReceived),
				"proposals_received_at": now.UTC(),
				"updated_at":            now.UTC(),
			})
		if flip.Error != nil {
			return flip.Error
		}
		if flip.RowsAffected == 1 {
			receivedAt := now.UTC()
			project.Status = string(entities.ProjectStatusProposalsReceived)
			project.ProposalsReceivedAt = &receivedAt
			project.UpdatedAt = receivedAt
			result.TransitionApplied = true
		}
		result.Project = project.toEntity()
		result.Proposal = row.toEntity()
		return nil
	})
	if err != nil {
		if isDomainError(err) {
			return ports.InsertProposalResult{}, err
		}
		return ports.InsertProposalResult{}, r.logError("governance_repo_insert_proposal_failed", err,
			"project_id", row.ProjectID,
			"developer_id", row.DeveloperID,
		)
	}
	return result, nil
}

func (r *Repository) GetProposal(ctx context.Context, proposalID string) (entities.DeveloperProposal, error) {
	var row proposalModel
	err := r.db.WithContext(ctx).
		Where("proposal_id = ?", strings.TrimSpace(proposalID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.DeveloperProposal{}, domainerrors.ErrProposalNotFound
		}
		return entities.DeveloperProposal{}, r.logError("governance_repo_get_proposal_failed", err,
			"proposal_id", strings.TrimSpace(proposalID),
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) ListProposalsByProject(ctx context.Context, projectID string) ([]entities.DeveloperProposal, error) {
	var rows []proposalModel
	if err := r.db.WithContext(ctx).
		Where("project_id = ?", strings.TrimSpace(projectID)).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("governance_repo_list_proposals_failed", err,
			"project_id", strings.TrimSpace(projectID),
		)
	}
	items := make([]entities.DeveloperProposal, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

// UpdateProposal writes only the columns of the groups set on change, so a
// stale copy held by another writer cannot clear them.
func (r *Repository) UpdateProposal(ctx context.Context, change ports.ProposalChange) (entities.DeveloperProposal, error) {
	proposalID := strings.TrimSpace(change.ProposalID)
	from := make([]string, 0, len(change.AllowedFrom))
	for _, status := range change.AllowedFrom {
		from = append(from, string(status))
	}
	action := strings.TrimSpace(change.Action)
	if action == "" {
		action = "update proposal"
	}

	var updated proposalModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&proposalModel{}).
			Where("proposal_id = ? AND status IN ?", proposalID, from).
			Updates(proposalChangeColumns(change))
		if result.Error != nil {
			if isUniqueViolation(result.Error) {
				return domainerrors.ErrDuplicateProposal
			}
			return result.Error
		}
		if err := tx.Where("proposal_id = ?", proposalID).First(&updated).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainerrors.ErrProposalNotFound
			}
			return err
		}
		if result.RowsAffected == 0 {
			return domainerrors.NewStateConflict(updated.Status, action, domainerrors.ReasonProposalStatus)
		}
		return nil
	})
	if err != nil {
		if isDomainError(err) {
			return entities.DeveloperProposal{}, err
		}
		return entities.DeveloperProposal{}, r.logError("governance_repo_update_proposal_failed", err,
			"proposal_id", proposalID,
		)
	}
	return updated.toEntity(), nil
}

// ApplySelection runs the whole selection in one transaction. The guard is
// the conditional project update; proposal rows are touched only after it
// succeeds, so a losing racer leaves nothing behind.
func (r *Repository) ApplySelection(ctx context.Context, input ports.SelectionInput) (ports.SelectionResult, error) {
	projectID := strings.TrimSpace(input.ProjectID)
	proposalID := strings.TrimSpace(input.ProposalID)
	at := input.SelectedAt.UTC()
	var result ports.SelectionResult

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var selected proposalModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("proposal_id = ? AND project_id = ?", proposalID, projectID).
			First(&selected).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainerrors.ErrProposalNotFound
			}
			return err
		}
		if !entities.ProposalStatus(selected.Status).IsSelectable() {
			return domainerrors.NewStateConflict(selected.Status, "select proposal", domainerrors.ReasonProposalStatus)
		}

		guard := tx.Model(&projectModel{}).
			Where("project_id = ? AND status = ? AND selected_proposal_id IS NULL",
				projectID, string(entities.ProjectStatusVoting)).
			Updates(map[string]any{
				"selected_proposal_id":  selected.ProposalID,
				"selected_developer_id": selected.DeveloperID,
				"selected_at":           at,
				"status":                string(entities.ProjectStatusDeveloperSelected),
				"updated_at":            at,
			})
		if guard.Error != nil {
			return guard.Error
		}
		if guard.RowsAffected == 0 {
			project, err := r.loadProject(tx, projectID, false)
			if err != nil {
				return err
			}
			if project.SelectedProposalID != nil {
				return domainerrors.NewStateConflict(project.Status, "select proposal", domainerrors.ReasonAlreadySelected)
			}
			return domainerrors.NewStateConflict(project.Status, "select proposal", domainerrors.ReasonIllegalTransition)
		}

		if err := tx.Model(&proposalModel{}).
			Where("proposal_id = ?", selected.ProposalID).
			Updates(map[string]any{
				"status":     string(entities.ProposalStatusSelected),
				"updated_at": at,
			}).Error; err != nil {
			return err
		}
		selected.Status = string(entities.ProposalStatusSelected)
		selected.UpdatedAt = at

		var competitors []proposalModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("project_id = ? AND proposal_id <> ? AND status IN ?", projectID, selected.ProposalID, selectableStatuses()).
			Order("proposal_id ASC").
			Find(&competitors).Error; err != nil {
			return err
		}
		if len(competitors) > 0 {
			if err := tx.Model(&proposalModel{}).
				Where("project_id = ? AND proposal_id <> ? AND status IN ?", projectID, selected.ProposalID, selectableStatuses()).
				Updates(map[string]any{
					"status":           string(entities.ProposalStatusRejected),
					"rejection_reason": input.Reason,
					"rejected_by":      input.OwnerID,
					"updated_at":       at,
				}).Error; err != nil {
				return err
			}
		}
		result.Rejected = make([]entities.DeveloperProposal, 0, len(competitors))
		for _, row := range competitors {
			row.Status = string(entities.ProposalStatusRejected)
			row.RejectionReason = input.Reason
			row.RejectedBy = input.OwnerID
			row.UpdatedAt = at
			result.Rejected = append(result.Rejected, row.toEntity())
		}

		project, err := r.loadProject(tx, projectID, false)
		if err != nil {
			return err
		}
		result.Project = project.toEntity()
		result.Selected = selected.toEntity()
		return nil
	})
	if err != nil {
		if isDomainError(err) {
			return ports.SelectionResult{}, err
		}
		return ports.SelectionResult{}, r.logError("governance_repo_apply_selection_failed", err,
			"project_id", projectID,
			"proposal_id", proposalID,
		)
	}
	return result, nil
}

// AppendBallot is insert-if-absent on the ballot key index. When the insert
// is a no-op, the occupying ballot is loaded and returned.
func (r *Repository) AppendBallot(ctx context.Context, ballot entities.Ballot) (entities.Ballot, bool, error) {
	stored, inserted, err := r.appendBallot(r.db.WithContext(ctx), ballot)
	if err != nil {
		return entities.Ballot{}, false, r.logError("governance_repo_append_ballot_failed", err,
			"project_id", strings.TrimSpace(ballot.ProjectID),
			"member_id", strings.TrimSpace(ballot.MemberID),
		)
	}
	return stored, inserted, nil
}

func (r *Repository) AppendBallots(ctx context.Context, ballots []entities.Ballot) (ports.AppendBallotsResult, error) {
	result := ports.AppendBallotsResult{
		Added:      make([]entities.Ballot, 0, len(ballots)),
		Duplicates: make([]entities.Ballot, 0),
	}
	if len(ballots) == 0 {
		return result, nil
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, ballot := range ballots {
			stored, inserted, err := r.appendBallot(tx, ballot)
			if err != nil {
				return err
			}
			if inserted {
				result.Added = append(result.Added, stored)
			} else {
				result.Duplicates = append(result.Duplicates, stored)
			}
		}
		return nil
	})
	if err != nil {
		return ports.AppendBallotsResult{}, r.logError("governance_repo_append_ballots_failed", err,
			"project_id", strings.TrimSpace(ballots[0].ProjectID),
			"member_id", strings.TrimSpace(ballots[0].MemberID),
			"ballot_count", len(ballots),
		)
	}
	return result, nil
}

func (r *Repository) appendBallot(tx *gorm.DB, ballot entities.Ballot) (entities.Ballot, bool, error) {
	row := ballotModelFromEntity(ballot)
	if row.BallotID == "" {
		row.BallotID = uuid.NewString()
	}
	create := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "project_id"},
			{Name: "member_id"},
			{Name: "proposal_id"},
			{Name: "voting_session"},
		},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return entities.Ballot{}, false, create.Error
	}
	if create.RowsAffected > 0 {
		return row.toEntity(), true, nil
	}

	var existing ballotModel
	if err := tx.
		Where("project_id = ? AND member_id = ? AND proposal_id = ? AND voting_session = ?",
			row.ProjectID, row.MemberID, row.ProposalID, row.VotingSession).
		First(&existing).Error; err != nil {
		return entities.Ballot{}, false, err
	}
	return existing.toEntity(), false, nil
}

func (r *Repository) GetBallot(ctx context.Context, ballotID string) (entities.Ballot, error) {
	var row ballotModel
	err := r.db.WithContext(ctx).
		Where("ballot_id = ?", strings.TrimSpace(ballotID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Ballot{}, domainerrors.ErrBallotNotFound
		}
		return entities.Ballot{}, r.logError("governance_repo_get_ballot_failed", err,
			"ballot_id", strings.TrimSpace(ballotID),
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) GetLedgerEntry(ctx context.Context, projectID string, memberID string) (entities.LedgerEntry, error) {
	var rows []ballotModel
	if err := r.db.WithContext(ctx).
		Where("project_id = ? AND member_id = ?", strings.TrimSpace(projectID), strings.TrimSpace(memberID)).
		Order("cast_at ASC").
		Find(&rows).Error; err != nil {
		return entities.LedgerEntry{}, r.logError("governance_repo_get_ledger_entry_failed", err,
			"project_id", strings.TrimSpace(projectID),
			"member_id", strings.TrimSpace(memberID),
		)
	}
	entry := entities.LedgerEntry{
		ProjectID: strings.TrimSpace(projectID),
		MemberID:  strings.TrimSpace(memberID),
	}
	for _, row := range rows {
		entry.Ballots = append(entry.Ballots, row.toEntity())
	}
	return entry, nil
}

func (r *Repository) ListBallotsByProject(ctx context.Context, projectID string) ([]entities.Ballot, error) {
	var rows []ballotModel
	if err := r.db.WithContext(ctx).
		Where("project_id = ?", strings.TrimSpace(projectID)).
		Order("cast_at ASC, ballot_id ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("governance_repo_list_ballots_failed", err,
			"project_id", strings.TrimSpace(projectID),
		)
	}
	items := make([]entities.Ballot, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) MarkBallotVerified(
	ctx context.Context,
	ballotID string,
	verifierID string,
	verifiedAt time.Time,
) (entities.Ballot, error) {
	result := r.db.WithContext(ctx).
		Model(&ballotModel{}).
		Where("ballot_id = ?", strings.TrimSpace(ballotID)).
		Updates(map[string]any{
			"is_verified": true,
			"verified_by": strings.TrimSpace(verifierID),
			"verified_at": verifiedAt.UTC(),
		})
	if result.Error != nil {
		return entities.Ballot{}, r.logError("governance_repo_mark_ballot_verified_failed", result.Error,
			"ballot_id", strings.TrimSpace(ballotID),
		)
	}
	if result.RowsAffected == 0 {
		return entities.Ballot{}, domainerrors.ErrBallotNotFound
	}
	return r.GetBallot(ctx, ballotID)
}

// Enqueue makes the repository an outbox-backed notification dispatcher.
func (r *Repository) Enqueue(ctx context.Context, envelope ports.EventEnvelope) error {
	return r.AppendOutbox(ctx, envelope)
}

func (r *Repository) AppendOutbox(ctx context.Context, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return r.logError("governance_repo_append_outbox_marshal_failed", err,
			"event_id", strings.TrimSpace(envelope.EventID),
			"event_type", strings.TrimSpace(envelope.EventType),
		)
	}
	row := outboxModel{
		OutboxID:     strings.TrimSpace(envelope.EventID),
		EventType:    strings.TrimSpace(envelope.EventType),
		PartitionKey: strings.TrimSpace(envelope.PartitionKey),
		Payload:      payload,
		Status:       outboxStatusPending,
		CreatedAt:    envelope.OccurredAt.UTC(),
	}
	if row.OutboxID == "" {
		row.OutboxID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "outbox_id"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return r.logError("governance_repo_append_outbox_insert_failed", create.Error,
			"outbox_id", row.OutboxID,
		)
	}
	if create.RowsAffected > 0 {
		return nil
	}

	var existing outboxModel
	if err := r.db.WithContext(ctx).
		Select("payload").
		Where("outbox_id = ?", row.OutboxID).
		First(&existing).Error; err != nil {
		return r.logError("governance_repo_append_outbox_load_existing_failed", err,
			"outbox_id", row.OutboxID,
		)
	}
	if !bytes.Equal(existing.Payload, row.Payload) {
		return domainerrors.ErrConflict
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("governance_repo_list_pending_outbox_failed", err, "limit", limit)
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      append([]byte(nil), row.Payload...),
			CreatedAt:    row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": publishedAt.UTC(),
		})
	if result.Error != nil {
		return r.logError("governance_repo_mark_outbox_published_failed", result.Error,
			"outbox_id", strings.TrimSpace(outboxID),
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrConflict
	}
	return nil
}

// ReserveEvent claims eventID. A row whose expires_at has passed is taken
// over in the same statement, matching the memory store.
func (r *Repository) ReserveEvent(
	ctx context.Context,
	eventID string,
	payloadHash string,
	expiresAt time.Time,
) (bool, error) {
	now := time.Now().UTC()
	row := eventDedupModel{
		EventID:     strings.TrimSpace(eventID),
		PayloadHash: strings.TrimSpace(payloadHash),
		ExpiresAt:   expiresAt.UTC(),
		ProcessedAt: now,
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload_hash", "processed_at", "expires_at"}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Expr{SQL: "governance_event_dedup.expires_at <= ?", Vars: []any{now}},
		}},
	}).Create(&row)
	if create.Error != nil {
		return false, r.logError("governance_repo_reserve_event_failed", create.Error,
			"event_id", row.EventID,
		)
	}
	if create.RowsAffected > 0 {
		return false, nil
	}

	var existing eventDedupModel
	if err := r.db.WithContext(ctx).
		Select("payload_hash").
		Where("event_id = ?", row.EventID).
		First(&existing).Error; err != nil {
		return false, r.logError("governance_repo_reserve_event_load_existing_failed", err,
			"event_id", row.EventID,
		)
	}
	if existing.PayloadHash != row.PayloadHash {
		return false, domainerrors.ErrConflict
	}
	return true, nil
}

func (r *Repository) ReleaseEvent(ctx context.Context, eventID string) error {
	eventID = strings.TrimSpace(eventID)
	if err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Delete(&eventDedupModel{}).Error; err != nil {
		return r.logError("governance_repo_release_event_failed", err, "event_id", eventID)
	}
	return nil
}

func (r *Repository) loadProject(tx *gorm.DB, projectID string, forUpdate bool) (projectModel, error) {
	query := tx
	if forUpdate {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var row projectModel
	if err := query.Where("project_id = ?", projectID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return projectModel{}, domainerrors.ErrProjectNotFound
		}
		return projectModel{}, err
	}
	return row, nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", moduleName,
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("governance repository operation failed", fields...)
	return err
}

func selectableStatuses() []string {
	return []string{
		string(entities.ProposalStatusSubmitted),
		string(entities.ProposalStatusUnderReview),
		string(entities.ProposalStatusShortlisted),
		string(entities.ProposalStatusApproved),
	}
}

// isDomainError reports errors that already carry governance meaning and
// should pass through without adapter logging.
func isDomainError(err error) bool {
	for _, target := range []error{
		domainerrors.ErrProjectNotFound,
		domainerrors.ErrProposalNotFound,
		domainerrors.ErrBallotNotFound,
		domainerrors.ErrStateConflict,
		domainerrors.ErrDuplicateProposal,
		domainerrors.ErrConflict,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ ports.ProjectRepository = (*Repository)(nil)
var _ ports.ProposalRepository = (*Repository)(nil)
var _ ports.SelectionStore = (*Repository)(nil)
var _ ports.BallotLedger = (*Repository)(nil)
var _ ports.NotificationDispatcher = (*Repository)(nil)
var _ ports.OutboxRepository = (*Repository)(nil)
var _ ports.EventDedupStore = (*Repository)(nil)
