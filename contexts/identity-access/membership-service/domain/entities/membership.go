package entities

import (
	"strings"
	"time"
)

type MembershipStatus string

const (
	MembershipStatusActive  MembershipStatus = "active"
	MembershipStatusRemoved MembershipStatus = "removed"
)

// SocietyMembership links a user to a society. Only active memberships count
// towards voting eligibility and the electorate size.
type SocietyMembership struct {
	MembershipID string
	SocietyID    string
	UserID       string
	Status       MembershipStatus
	JoinedAt     time.Time
	RemovedAt    *time.Time
	UpdatedAt    time.Time
}

func (m SocietyMembership) IsActive() bool {
	return m.Status == MembershipStatusActive
}

// MembershipKey identifies a membership independent of its row id.
type MembershipKey struct {
	SocietyID string
	UserID    string
}

func (k MembershipKey) Normalize() MembershipKey {
	return MembershipKey{
		SocietyID: strings.TrimSpace(k.SocietyID),
		UserID:    strings.TrimSpace(k.UserID),
	}
}

func (k MembershipKey) Valid() bool {
	normalized := k.Normalize()
	return normalized.SocietyID != "" && normalized.UserID != ""
}
