package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"societyhub/contexts/identity-access/membership-service/domain/entities"
	domainerrors "societyhub/contexts/identity-access/membership-service/domain/errors"
	"societyhub/contexts/identity-access/membership-service/ports"

	"github.com/google/uuid"
)

// Store is an in-memory adapter implementing the repository and cache ports.
// It is intended for tests and local development wiring.
type Store struct {
	mu sync.RWMutex

	memberships map[entities.MembershipKey]entities.SocietyMembership
	cache       map[entities.MembershipKey]cacheEntry
}

type cacheEntry struct {
	Active    bool
	ExpiresAt time.Time
}

func NewStore() *Store {
	return &Store{
		memberships: make(map[entities.MembershipKey]entities.SocietyMembership),
		cache:       make(map[entities.MembershipKey]cacheEntry),
	}
}

// Seed registers active members directly, bypassing the enrolment use case.
func (s *Store) Seed(societyID string, userIDs ...string) {
	now := time.Now().UTC()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, userID := range userIDs {
		key := entities.MembershipKey{SocietyID: societyID, UserID: userID}.Normalize()
		s.memberships[key] = entities.SocietyMembership{
			MembershipID: uuid.NewString(),
			SocietyID:    key.SocietyID,
			UserID:       key.UserID,
			Status:       entities.MembershipStatusActive,
			JoinedAt:     now,
			UpdatedAt:    now,
		}
		delete(s.cache, key)
	}
}

func (s *Store) UpsertMembership(_ context.Context, membership entities.SocietyMembership) (entities.SocietyMembership, error) {
	key := entities.MembershipKey{SocietyID: membership.SocietyID, UserID: membership.UserID}.Normalize()
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.memberships[key]; ok {
		existing.Status = entities.MembershipStatusActive
		existing.RemovedAt = nil
		existing.UpdatedAt = membership.UpdatedAt
		s.memberships[key] = existing
		return existing, nil
	}
	membership.SocietyID = key.SocietyID
	membership.UserID = key.UserID
	membership.Status = entities.MembershipStatusActive
	s.memberships[key] = membership
	return membership, nil
}

func (s *Store) RemoveMembership(_ context.Context, key entities.MembershipKey, removedAt time.Time) (entities.SocietyMembership, error) {
	key = key.Normalize()
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.memberships[key]
	if !ok {
		return entities.SocietyMembership{}, domainerrors.ErrMembershipNotFound
	}
	if existing.Status == entities.MembershipStatusRemoved {
		return existing, nil
	}
	at := removedAt.UTC()
	existing.Status = entities.MembershipStatusRemoved
	existing.RemovedAt = &at
	existing.UpdatedAt = at
	s.memberships[key] = existing
	return existing, nil
}

func (s *Store) FindMembership(_ context.Context, key entities.MembershipKey) (entities.SocietyMembership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	membership, ok := s.memberships[key.Normalize()]
	if !ok {
		return entities.SocietyMembership{}, domainerrors.ErrMembershipNotFound
	}
	return membership, nil
}

func (s *Store) ListActiveMembers(_ context.Context, societyID string) ([]entities.SocietyMembership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.SocietyMembership, 0)
	for key, membership := range s.memberships {
		if key.SocietyID == societyID && membership.IsActive() {
			items = append(items, membership)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].UserID < items[j].UserID
	})
	return items, nil
}

func (s *Store) CountActiveMembers(ctx context.Context, societyID string) (int, error) {
	items, err := s.ListActiveMembers(ctx, societyID)
	return len(items), err
}

func (s *Store) Get(_ context.Context, key entities.MembershipKey, now time.Time) (bool, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.cache[key.Normalize()]
	if !ok || !now.Before(entry.ExpiresAt) {
		return false, false, nil
	}
	return entry.Active, true, nil
}

func (s *Store) Set(_ context.Context, key entities.MembershipKey, active bool, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[key.Normalize()] = cacheEntry{Active: active, ExpiresAt: expiresAt}
	return nil
}

func (s *Store) Invalidate(_ context.Context, key entities.MembershipKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cache, key.Normalize())
	return nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

var _ ports.Repository = (*Store)(nil)
var _ ports.MembershipCache = (*Store)(nil)
var _ ports.Clock = (*Store)(nil)
var _ ports.IDGenerator = (*Store)(nil)
