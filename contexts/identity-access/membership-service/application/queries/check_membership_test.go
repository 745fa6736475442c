package queries_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"societyhub/contexts/identity-access/membership-service/adapters/memory"
	"societyhub/contexts/identity-access/membership-service/application/commands"
	"societyhub/contexts/identity-access/membership-service/application/queries"
	"societyhub/contexts/identity-access/membership-service/domain/entities"
	domainerrors "societyhub/contexts/identity-access/membership-service/domain/errors"
)

type failingRepository struct {
	*memory.Store
	err error
}

func (r failingRepository) FindMembership(context.Context, entities.MembershipKey) (entities.SocietyMembership, error) {
	return entities.SocietyMembership{}, r.err
}

func TestIsActiveMemberServesCachedAnswerUntilInvalidated(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	store.Seed("society-1", "member-1")
	q := queries.MembershipQueries{Repository: store, Cache: store, Clock: store, CacheTTL: time.Hour}

	active, err := q.IsActiveMember(ctx, "society-1", "member-1")
	if err != nil || !active {
		t.Fatalf("expected active member, got active=%v err=%v", active, err)
	}

	if _, err := store.RemoveMembership(ctx, entities.MembershipKey{SocietyID: "society-1", UserID: "member-1"}, time.Now()); err != nil {
		t.Fatalf("remove membership: %v", err)
	}
	active, err = q.IsActiveMember(ctx, "society-1", "member-1")
	if err != nil || !active {
		t.Fatalf("expected cached positive answer, got active=%v err=%v", active, err)
	}

	if err := store.Invalidate(ctx, entities.MembershipKey{SocietyID: "society-1", UserID: "member-1"}); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	active, err = q.IsActiveMember(ctx, "society-1", "member-1")
	if err != nil {
		t.Fatalf("lookup after invalidate: %v", err)
	}
	if active {
		t.Fatalf("expected removed member to be inactive after invalidation")
	}
}

func TestIsActiveMemberUnknownUserIsInactive(t *testing.T) {
	store := memory.NewStore()
	q := queries.MembershipQueries{Repository: store, Cache: store}

	active, err := q.IsActiveMember(context.Background(), "society-1", "stranger")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if active {
		t.Fatalf("expected unknown user to be inactive")
	}
}

func TestIsActiveMemberPropagatesLookupFailure(t *testing.T) {
	boom := errors.New("db down")
	store := memory.NewStore()
	q := queries.MembershipQueries{Repository: failingRepository{Store: store, err: boom}}

	if _, err := q.IsActiveMember(context.Background(), "society-1", "member-1"); !errors.Is(err, boom) {
		t.Fatalf("expected lookup failure, got %v", err)
	}
}

func TestIsActiveMemberRequiresIdentifiers(t *testing.T) {
	q := queries.MembershipQueries{Repository: memory.NewStore()}
	if _, err := q.IsActiveMember(context.Background(), " ", "member-1"); !errors.Is(err, domainerrors.ErrInvalidSocietyID) {
		t.Fatalf("expected ErrInvalidSocietyID, got %v", err)
	}
	if _, err := q.IsActiveMember(context.Background(), "society-1", ""); !errors.Is(err, domainerrors.ErrInvalidUserID) {
		t.Fatalf("expected ErrInvalidUserID, got %v", err)
	}
}

func TestRemovingMemberThroughUseCaseInvalidatesCache(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	q := queries.MembershipQueries{Repository: store, Cache: store, Clock: store, CacheTTL: time.Hour}
	manage := commands.ManageMembershipUseCase{Repository: store, Cache: store, Clock: store, IDGen: store}

	if _, err := manage.Enroll(ctx, commands.EnrollMemberCommand{
		ActorID: "owner-1", ActorRole: "owner", SocietyID: "society-1", UserID: "member-1",
	}); err != nil {
		t.Fatalf("enroll: %v", err)
	}
	if active, _ := q.IsActiveMember(ctx, "society-1", "member-1"); !active {
		t.Fatalf("expected enrolled member to be active")
	}
	count, err := q.CountActiveMembers(ctx, "society-1")
	if err != nil || count != 1 {
		t.Fatalf("expected one active member, got %d err=%v", count, err)
	}

	if _, err := manage.Remove(ctx, commands.RemoveMemberCommand{
		ActorID: "owner-1", ActorRole: "owner", SocietyID: "society-1", UserID: "member-1",
	}); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if active, _ := q.IsActiveMember(ctx, "society-1", "member-1"); active {
		t.Fatalf("expected removed member to be inactive")
	}
	count, _ = q.CountActiveMembers(ctx, "society-1")
	if count != 0 {
		t.Fatalf("expected no active members, got %d", count)
	}
}
