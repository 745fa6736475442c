package queries

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	application "societyhub/contexts/identity-access/membership-service/application"
	"societyhub/contexts/identity-access/membership-service/domain/entities"
	domainerrors "societyhub/contexts/identity-access/membership-service/domain/errors"
	"societyhub/contexts/identity-access/membership-service/ports"
)

const moduleName = "identity-access/membership-service"

// MembershipQueries orchestrates cache-first membership lookups.
type MembershipQueries struct {
	Repository ports.Repository
	Cache      ports.MembershipCache
	Clock      ports.Clock
	CacheTTL   time.Duration
	Logger     *slog.Logger
}

// IsActiveMember reports whether the user currently holds an active
// membership in the society. Lookup failures are returned, never treated as
// a positive answer.
func (q MembershipQueries) IsActiveMember(ctx context.Context, societyID string, userID string) (bool, error) {
	key := entities.MembershipKey{SocietyID: societyID, UserID: userID}.Normalize()
	if key.SocietyID == "" {
		return false, domainerrors.ErrInvalidSocietyID
	}
	if key.UserID == "" {
		return false, domainerrors.ErrInvalidUserID
	}

	logger := application.ResolveLogger(q.Logger)
	now := q.now()
	if q.Cache != nil {
		active, hit, err := q.Cache.Get(ctx, key, now)
		if err != nil {
			logger.Warn("membership cache read failed, falling back to repository",
				"event", "membership_cache_read_failed",
				"module", moduleName,
				"layer", "application",
				"society_id", key.SocietyID,
				"user_id", key.UserID,
				"error", err.Error(),
			)
		} else if hit {
			return active, nil
		}
	}

	membership, err := q.Repository.FindMembership(ctx, key)
	active := false
	switch {
	case err == nil:
		active = membership.IsActive()
	case errors.Is(err, domainerrors.ErrMembershipNotFound):
	default:
		logger.Error("membership lookup failed",
			"event", "membership_lookup_failed",
			"module", moduleName,
			"layer", "application",
			"society_id", key.SocietyID,
			"user_id", key.UserID,
			"error", err.Error(),
		)
		return false, err
	}

	if q.Cache != nil {
		if err := q.Cache.Set(ctx, key, active, now.Add(q.cacheTTL())); err != nil {
			logger.Warn("membership cache write failed",
				"event", "membership_cache_write_failed",
				"module", moduleName,
				"layer", "application",
				"society_id", key.SocietyID,
				"user_id", key.UserID,
				"error", err.Error(),
			)
		}
	}
	logger.Debug("membership resolved",
		"event", "membership_resolved",
		"module", moduleName,
		"layer", "application",
		"society_id", key.SocietyID,
		"user_id", key.UserID,
		"active", active,
	)
	return active, nil
}

// CountActiveMembers sizes the electorate. It always reads the repository.
func (q MembershipQueries) CountActiveMembers(ctx context.Context, societyID string) (int, error) {
	societyID = strings.TrimSpace(societyID)
	if societyID == "" {
		return 0, domainerrors.ErrInvalidSocietyID
	}
	return q.Repository.CountActiveMembers(ctx, societyID)
}

func (q MembershipQueries) ListActiveMembers(ctx context.Context, societyID string) ([]entities.SocietyMembership, error) {
	societyID = strings.TrimSpace(societyID)
	if societyID == "" {
		return nil, domainerrors.ErrInvalidSocietyID
	}
	return q.Repository.ListActiveMembers(ctx, societyID)
}

func (q MembershipQueries) cacheTTL() time.Duration {
	if q.CacheTTL <= 0 {
		return time.Minute
	}
	return q.CacheTTL
}

func (q MembershipQueries) now() time.Time {
	if q.Clock != nil {
		return q.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
