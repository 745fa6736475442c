package postgresadapter

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"societyhub/contexts/identity-access/membership-service/domain/entities"
	domainerrors "societyhub/contexts/identity-access/membership-service/domain/errors"
	"societyhub/contexts/identity-access/membership-service/ports"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const moduleName = "identity-access/membership-service"

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS society_memberships (
    membership_id TEXT PRIMARY KEY,
    society_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    status TEXT NOT NULL CHECK (status IN ('active', 'removed')),
    joined_at TIMESTAMPTZ NOT NULL,
    removed_at TIMESTAMPTZ,
    updated_at TIMESTAMPTZ NOT NULL,
    UNIQUE (society_id, user_id)
)`,
	`CREATE INDEX IF NOT EXISTS idx_society_memberships_active
    ON society_memberships (society_id) WHERE status = 'active'`,
}

type membershipModel struct {
	MembershipID string     `gorm:"column:membership_id;primaryKey"`
	SocietyID    string     `gorm:"column:society_id"`
	UserID       string     `gorm:"column:user_id"`
	Status       string     `gorm:"column:status"`
	JoinedAt     time.Time  `gorm:"column:joined_at"`
	RemovedAt    *time.Time `gorm:"column:removed_at"`
	UpdatedAt    time.Time  `gorm:"column:updated_at"`
}

func (membershipModel) TableName() string {
	return "society_memberships"
}

func (m membershipModel) toEntity() entities.SocietyMembership {
	return entities.SocietyMembership{
		MembershipID: m.MembershipID,
		SocietyID:    m.SocietyID,
		UserID:       m.UserID,
		Status:       entities.MembershipStatus(m.Status),
		JoinedAt:     m.JoinedAt.UTC(),
		RemovedAt:    m.RemovedAt,
		UpdatedAt:    m.UpdatedAt.UTC(),
	}
}

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

// Migrate applies the membership schema.
func (r *Repository) Migrate(ctx context.Context) error {
	for _, statement := range schemaStatements {
		if err := r.db.WithContext(ctx).Exec(statement).Error; err != nil {
			return r.logError("membership_repo_migrate_failed", err)
		}
	}
	return nil
}

// UpsertMembership inserts the row or reactivates the existing one for the
// same society and user, keeping the original membership id.
func (r *Repository) UpsertMembership(ctx context.Context, membership entities.SocietyMembership) (entities.SocietyMembership, error) {
	key := entities.MembershipKey{SocietyID: membership.SocietyID, UserID: membership.UserID}.Normalize()
	row := membershipModel{
		MembershipID: membership.MembershipID,
		SocietyID:    key.SocietyID,
		UserID:       key.UserID,
		Status:       string(entities.MembershipStatusActive),
		JoinedAt:     membership.JoinedAt.UTC(),
		UpdatedAt:    membership.UpdatedAt.UTC(),
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "society_id"}, {Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"status":     string(entities.MembershipStatusActive),
			"removed_at": nil,
			"updated_at": row.UpdatedAt,
		}),
	}).Create(&row).Error
	if err != nil {
		return entities.SocietyMembership{}, r.logError("membership_repo_upsert_failed", err,
			"society_id", key.SocietyID,
			"user_id", key.UserID,
		)
	}
	return r.FindMembership(ctx, key)
}

func (r *Repository) RemoveMembership(ctx context.Context, key entities.MembershipKey, removedAt time.Time) (entities.SocietyMembership, error) {
	key = key.Normalize()
	at := removedAt.UTC()
	result := r.db.WithContext(ctx).
		Model(&membershipModel{}).
		Where("society_id = ? AND user_id = ? AND status = ?", key.SocietyID, key.UserID, string(entities.MembershipStatusActive)).
		Updates(map[string]any{
			"status":     string(entities.MembershipStatusRemoved),
			"removed_at": at,
			"updated_at": at,
		})
	if result.Error != nil {
		return entities.SocietyMembership{}, r.logError("membership_repo_remove_failed", result.Error,
			"society_id", key.SocietyID,
			"user_id", key.UserID,
		)
	}
	return r.FindMembership(ctx, key)
}

func (r *Repository) FindMembership(ctx context.Context, key entities.MembershipKey) (entities.SocietyMembership, error) {
	key = key.Normalize()
	var row membershipModel
	err := r.db.WithContext(ctx).
		Where("society_id = ? AND user_id = ?", key.SocietyID, key.UserID).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.SocietyMembership{}, domainerrors.ErrMembershipNotFound
		}
		return entities.SocietyMembership{}, r.logError("membership_repo_find_failed", err,
			"society_id", key.SocietyID,
			"user_id", key.UserID,
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) ListActiveMembers(ctx context.Context, societyID string) ([]entities.SocietyMembership, error) {
	var rows []membershipModel
	err := r.db.WithContext(ctx).
		Where("society_id = ? AND status = ?", societyID, string(entities.MembershipStatusActive)).
		Order("user_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, r.logError("membership_repo_list_failed", err, "society_id", societyID)
	}
	items := make([]entities.SocietyMembership, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) CountActiveMembers(ctx context.Context, societyID string) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&membershipModel{}).
		Where("society_id = ? AND status = ?", societyID, string(entities.MembershipStatusActive)).
		Count(&count).Error
	if err != nil {
		return 0, r.logError("membership_repo_count_failed", err, "society_id", societyID)
	}
	return int(count), nil
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
	r.logger.Error("membership repository operation failed", fields...)
	return err
}

var _ ports.Repository = (*Repository)(nil)
