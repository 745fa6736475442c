package ports

import (
	"context"
	"time"

	"societyhub/contexts/identity-access/membership-service/domain/entities"
)

type Repository interface {
	// UpsertMembership stores the membership as active, reactivating a
	// removed row for the same society and user.
	UpsertMembership(ctx context.Context, membership entities.SocietyMembership) (entities.SocietyMembership, error)
	RemoveMembership(ctx context.Context, key entities.MembershipKey, removedAt time.Time) (entities.SocietyMembership, error)
	FindMembership(ctx context.Context, key entities.MembershipKey) (entities.SocietyMembership, error)
	ListActiveMembers(ctx context.Context, societyID string) ([]entities.SocietyMembership, error)
	CountActiveMembers(ctx context.Context, societyID string) (int, error)
}

// MembershipCache stores membership answers with TTL semantics.
type MembershipCache interface {
	Get(ctx context.Context, key entities.MembershipKey, now time.Time) (active bool, hit bool, err error)
	Set(ctx context.Context, key entities.MembershipKey, active bool, expiresAt time.Time) error
	Invalidate(ctx context.Context, key entities.MembershipKey) error
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
