package errors

import (
	"errors"
	"fmt"
)

var (
	ErrValidation         = errors.New("invalid governance input")
	ErrProjectNotFound    = errors.New("project not found")
	ErrProposalNotFound   = errors.New("proposal not found")
	ErrBallotNotFound     = errors.New("ballot not found")
	ErrForbidden          = errors.New("caller is not allowed to perform this action")
	ErrStateConflict      = errors.New("operation is not allowed in the current state")
	ErrAlreadyVoted       = errors.New("you have already voted for this proposal in this session")
	ErrDuplicateProposal  = errors.New("developer already has an active proposal for this project")
	ErrNotEligible        = errors.New("member is not eligible to vote")
	ErrMembershipNotFound = errors.New("membership not found")
	ErrConflict           = errors.New("governance store conflict")
)

// Reasons carried by StateConflictError. Clients match on these strings.
const (
	ReasonNotAcceptingProposals = "project is not accepting proposals"
	ReasonVotingNotOpen         = "project is not open for voting"
	ReasonDeadlinePassed        = "voting deadline has passed"
	ReasonAlreadySelected       = "project already has a selected proposal"
	ReasonIllegalTransition     = "transition is not allowed from the current status"
	ReasonProposalStatus        = "proposal status does not allow this action"
)

// StateConflictError names the current state and the attempted action.
type StateConflictError struct {
	Current string
	Action  string
	Reason  string
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("%s: cannot %s while %s", e.Reason, e.Action, e.Current)
}

func (e *StateConflictError) Unwrap() error {
	return ErrStateConflict
}

func NewStateConflict(current string, action string, reason string) error {
	return &StateConflictError{Current: current, Action: action, Reason: reason}
}

// AlreadyVotedError names the ballot that already occupies the key.
type AlreadyVotedError struct {
	BallotID      string
	ProposalID    string
	VotingSession string
}

func (e *AlreadyVotedError) Error() string {
	target := "the project"
	if e.ProposalID != "" {
		target = "proposal " + e.ProposalID
	}
	return fmt.Sprintf("%s: ballot %s already recorded for %s in session %q",
		ErrAlreadyVoted.Error(), e.BallotID, target, e.VotingSession)
}

func (e *AlreadyVotedError) Unwrap() error {
	return ErrAlreadyVoted
}

// IneligibleError carries the eligibility reason.
type IneligibleError struct {
	Reason string
}

func (e *IneligibleError) Error() string {
	return ErrNotEligible.Error() + ": " + e.Reason
}

func (e *IneligibleError) Unwrap() error {
	return ErrNotEligible
}
