package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "societyhub/contexts/identity-access/membership-service/application"
	"societyhub/contexts/identity-access/membership-service/domain/entities"
	domainerrors "societyhub/contexts/identity-access/membership-service/domain/errors"
	"societyhub/contexts/identity-access/membership-service/ports"
)

const moduleName = "identity-access/membership-service"

// ManagerRole is the only role allowed to change a society's roster.
const ManagerRole = "owner"

type EnrollMemberCommand struct {
	ActorID   string
	ActorRole string
	SocietyID string
	UserID    string
}

type RemoveMemberCommand struct {
	ActorID   string
	ActorRole string
	SocietyID string
	UserID    string
}

type ManageMembershipUseCase struct {
	Repository ports.Repository
	Cache      ports.MembershipCache
	Clock      ports.Clock
	IDGen      ports.IDGenerator
	Logger     *slog.Logger
}

func (uc ManageMembershipUseCase) Enroll(ctx context.Context, cmd EnrollMemberCommand) (entities.SocietyMembership, error) {
	key, err := uc.authorize(cmd.ActorRole, cmd.SocietyID, cmd.UserID)
	if err != nil {
		return entities.SocietyMembership{}, err
	}
	membershipID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.SocietyMembership{}, err
	}
	now := uc.now()
	membership, err := uc.Repository.UpsertMembership(ctx, entities.SocietyMembership{
		MembershipID: membershipID,
		SocietyID:    key.SocietyID,
		UserID:       key.UserID,
		Status:       entities.MembershipStatusActive,
		JoinedAt:     now,
		UpdatedAt:    now,
	})
	if err != nil {
		return entities.SocietyMembership{}, err
	}
	uc.invalidate(ctx, key)

	application.ResolveLogger(uc.Logger).Info("member enrolled",
		"event", "membership_enrolled",
		"module", moduleName,
		"layer", "application",
		"society_id", key.SocietyID,
		"user_id", key.UserID,
		"actor_id", strings.TrimSpace(cmd.ActorID),
	)
	return membership, nil
}

func (uc ManageMembershipUseCase) Remove(ctx context.Context, cmd RemoveMemberCommand) (entities.SocietyMembership, error) {
	key, err := uc.authorize(cmd.ActorRole, cmd.SocietyID, cmd.UserID)
	if err != nil {
		return entities.SocietyMembership{}, err
	}
	membership, err := uc.Repository.RemoveMembership(ctx, key, uc.now())
	if err != nil {
		return entities.SocietyMembership{}, err
	}
	uc.invalidate(ctx, key)

	application.ResolveLogger(uc.Logger).Info("member removed",
		"event", "membership_removed",
		"module", moduleName,
		"layer", "application",
		"society_id", key.SocietyID,
		"user_id", key.UserID,
		"actor_id", strings.TrimSpace(cmd.ActorID),
	)
	return membership, nil
}

func (uc ManageMembershipUseCase) authorize(role string, societyID string, userID string) (entities.MembershipKey, error) {
	if strings.ToLower(strings.TrimSpace(role)) != ManagerRole {
		return entities.MembershipKey{}, domainerrors.ErrForbidden
	}
	key := entities.MembershipKey{SocietyID: societyID, UserID: userID}.Normalize()
	if key.SocietyID == "" {
		return entities.MembershipKey{}, domainerrors.ErrInvalidSocietyID
	}
	if key.UserID == "" {
		return entities.MembershipKey{}, domainerrors.ErrInvalidUserID
	}
	return key, nil
}

// invalidate drops the cached answer; a stale entry expires with its TTL if
// the cache is unreachable.
func (uc ManageMembershipUseCase) invalidate(ctx context.Context, key entities.MembershipKey) {
	if uc.Cache == nil {
		return
	}
	if err := uc.Cache.Invalidate(ctx, key); err != nil {
		application.ResolveLogger(uc.Logger).Warn("membership cache invalidation failed",
			"event", "membership_cache_invalidate_failed",
			"module", moduleName,
			"layer", "application",
			"society_id", key.SocietyID,
			"user_id", key.UserID,
			"error", err.Error(),
		)
	}
}

func (uc ManageMembershipUseCase) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
