package entities

import (
	"strings"
	"time"
)

type VoteChoice string

const (
	VoteChoiceYes     VoteChoice = "yes"
	VoteChoiceNo      VoteChoice = "no"
	VoteChoiceAbstain VoteChoice = "abstain"
)

func ParseVoteChoice(raw string) (VoteChoice, bool) {
	switch VoteChoice(strings.ToLower(strings.TrimSpace(raw))) {
	case VoteChoiceYes:
		return VoteChoiceYes, true
	case VoteChoiceNo:
		return VoteChoiceNo, true
	case VoteChoiceAbstain:
		return VoteChoiceAbstain, true
	default:
		return "", false
	}
}

// StoredValue maps yes/no/abstain onto the persisted true/false/null.
func (c VoteChoice) StoredValue() *bool {
	switch c {
	case VoteChoiceYes:
		value := true
		return &value
	case VoteChoiceNo:
		value := false
		return &value
	default:
		return nil
	}
}

func VoteChoiceFromStored(value *bool) VoteChoice {
	if value == nil {
		return VoteChoiceAbstain
	}
	if *value {
		return VoteChoiceYes
	}
	return VoteChoiceNo
}

// BallotKey is unique within one member's ledger entry for a project.
type BallotKey struct {
	ProposalID    string
	VotingSession string
}

func (k BallotKey) Normalize() BallotKey {
	return BallotKey{
		ProposalID:    strings.TrimSpace(k.ProposalID),
		VotingSession: strings.TrimSpace(k.VotingSession),
	}
}

// Ballot is one row of the member vote ledger. A member's ledger entry for a
// project is the ordered set of ballots sharing (ProjectID, MemberID).
type Ballot struct {
	BallotID      string
	ProjectID     string
	MemberID      string
	ProposalID    string
	VotingSession string
	Value         *bool
	Comments      string
	IPAddress     string
	UserAgent     string
	IsVerified    bool
	VerifiedBy    string
	VerifiedAt    *time.Time
	CastAt        time.Time
}

func (b Ballot) Key() BallotKey {
	return BallotKey{ProposalID: b.ProposalID, VotingSession: b.VotingSession}.Normalize()
}

func (b Ballot) Choice() VoteChoice {
	return VoteChoiceFromStored(b.Value)
}

type LedgerEntry struct {
	ProjectID string
	MemberID  string
	Ballots   []Ballot
}

func (e LedgerEntry) Find(key BallotKey) (Ballot, bool) {
	key = key.Normalize()
	for _, ballot := range e.Ballots {
		if ballot.Key() == key {
			return ballot, true
		}
	}
	return Ballot{}, false
}
