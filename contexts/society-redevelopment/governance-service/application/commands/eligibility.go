package commands

import (
	"context"
	"strings"
	"time"

	"societyhub/contexts/society-redevelopment/governance-service/domain/entities"
	domainerrors "societyhub/contexts/society-redevelopment/governance-service/domain/errors"
	"societyhub/contexts/society-redevelopment/governance-service/ports"
)

type EligibilityReason string

const (
	EligibilityOK             EligibilityReason = "eligible"
	EligibilityVotingNotOpen  EligibilityReason = "voting_not_open"
	EligibilityDeadlinePassed EligibilityReason = "deadline_passed"
	EligibilityNotMember      EligibilityReason = "not_active_member"
)

type Eligibility struct {
	Eligible bool
	Reason   EligibilityReason
	Project  entities.RedevelopmentProject
}

// Err converts an ineligible result into the matching domain error.
func (e Eligibility) Err() error {
	switch e.Reason {
	case EligibilityOK:
		return nil
	case EligibilityVotingNotOpen:
		return domainerrors.NewStateConflict(string(e.Project.Status), "vote", domainerrors.ReasonVotingNotOpen)
	case EligibilityDeadlinePassed:
		return domainerrors.NewStateConflict(string(e.Project.Status), "vote", domainerrors.ReasonDeadlinePassed)
	default:
		return &domainerrors.IneligibleError{Reason: "user is not an active member of the project's society"}
	}
}

// evaluateEligibility is a point-in-time read: state, deadline, membership.
// The oracle is only consulted when the project gates pass.
func evaluateEligibility(
	ctx context.Context,
	projects ports.ProjectRepository,
	oracle ports.MembershipOracle,
	projectID string,
	memberID string,
	now time.Time,
) (Eligibility, error) {
	if strings.TrimSpace(projectID) == "" || strings.TrimSpace(memberID) == "" {
		return Eligibility{}, domainerrors.ErrValidation
	}
	project, err := projects.GetProject(ctx, strings.TrimSpace(projectID))
	if err != nil {
		return Eligibility{}, err
	}
	result := Eligibility{Project: project}
	if project.Status != entities.ProjectStatusVoting {
		result.Reason = EligibilityVotingNotOpen
		return result, nil
	}
	if !project.VotingOpenAt(now) {
		result.Reason = EligibilityDeadlinePassed
		return result, nil
	}
	if oracle == nil {
		result.Reason = EligibilityNotMember
		return result, nil
	}
	active, err := oracle.IsActiveMember(ctx, project.SocietyID, strings.TrimSpace(memberID))
	if err != nil {
		return Eligibility{}, err
	}
	if !active {
		result.Reason = EligibilityNotMember
		return result, nil
	}
	result.Eligible = true
	result.Reason = EligibilityOK
	return result, nil
}
