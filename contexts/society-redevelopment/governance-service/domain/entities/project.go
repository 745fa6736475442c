package entities

import (
	"strings"
	"time"
)

type ProjectStatus string

const (
	ProjectStatusPlanning          ProjectStatus = "planning"
	ProjectStatusTenderOpen        ProjectStatus = "tender_open"
	ProjectStatusProposalsReceived ProjectStatus = "proposals_received"
	ProjectStatusVoting            ProjectStatus = "voting"
	ProjectStatusDeveloperSelected ProjectStatus = "developer_selected"
	ProjectStatusConstruction      ProjectStatus = "construction"
	ProjectStatusCompleted         ProjectStatus = "completed"
	ProjectStatusCancelled         ProjectStatus = "cancelled"
)

const (
	DefaultMinimumApprovalPercentage = 75
	MinMinimumApprovalPercentage     = 50
	MaxMinimumApprovalPercentage     = 100
)

type RedevelopmentProject struct {
	ProjectID                 string
	SocietyID                 string
	OwnerID                   string
	Title                     string
	Description               string
	Status                    ProjectStatus
	VotingDeadline            *time.Time
	MinimumApprovalPercentage int
	SelectedProposalID        string
	SelectedDeveloperID       string
	ProposalsReceivedAt       *time.Time
	SelectedAt                *time.Time
	CancellationReason        string
	// VotingClosedAt is when the closed-voting announcement for the current
	// deadline was queued; reopening voting clears it.
	VotingClosedAt            *time.Time
	CreatedAt                 time.Time
	UpdatedAt                 time.Time
}

// projectTransitions lists every edge the owner or the coordinating
// subsystems may take. Cancellation is handled separately.
var projectTransitions = map[ProjectStatus][]ProjectStatus{
	ProjectStatusPlanning: {
		ProjectStatusTenderOpen,
		ProjectStatusProposalsReceived,
		ProjectStatusVoting,
	},
	ProjectStatusTenderOpen: {
		ProjectStatusProposalsReceived,
	},
	ProjectStatusProposalsReceived: {
		ProjectStatusVoting,
	},
	ProjectStatusVoting: {
		ProjectStatusDeveloperSelected,
	},
	ProjectStatusDeveloperSelected: {
		ProjectStatusConstruction,
	},
	ProjectStatusConstruction: {
		ProjectStatusCompleted,
	},
}

func CanTransition(from ProjectStatus, to ProjectStatus) bool {
	if to == ProjectStatusCancelled {
		return !from.IsTerminal()
	}
	for _, candidate := range projectTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

func (s ProjectStatus) IsTerminal() bool {
	return s == ProjectStatusCompleted || s == ProjectStatusCancelled
}

func (s ProjectStatus) AcceptsProposals() bool {
	switch s {
	case ProjectStatusPlanning, ProjectStatusTenderOpen, ProjectStatusProposalsReceived:
		return true
	default:
		return false
	}
}

// FlipsOnFirstProposal reports whether a submission against a project in this
// status moves it to proposals_received.
func (s ProjectStatus) FlipsOnFirstProposal() bool {
	return s == ProjectStatusPlanning || s == ProjectStatusTenderOpen
}

func IsKnownProjectStatus(value ProjectStatus) bool {
	switch value {
	case ProjectStatusPlanning,
		ProjectStatusTenderOpen,
		ProjectStatusProposalsReceived,
		ProjectStatusVoting,
		ProjectStatusDeveloperSelected,
		ProjectStatusConstruction,
		ProjectStatusCompleted,
		ProjectStatusCancelled:
		return true
	default:
		return false
	}
}

func (p RedevelopmentProject) IsOwnedBy(userID string) bool {
	owner := strings.TrimSpace(p.OwnerID)
	return owner != "" && owner == strings.TrimSpace(userID)
}

// VotingOpenAt is the point-in-time voting gate: status voting and now
// strictly before the deadline.
func (p RedevelopmentProject) VotingOpenAt(now time.Time) bool {
	if p.Status != ProjectStatusVoting || p.VotingDeadline == nil {
		return false
	}
	return now.UTC().Before(p.VotingDeadline.UTC())
}

func (p RedevelopmentProject) HasSelection() bool {
	return strings.TrimSpace(p.SelectedProposalID) != ""
}

func ValidMinimumApproval(value int) bool {
	return value >= MinMinimumApprovalPercentage && value <= MaxMinimumApprovalPercentage
}

func (p RedevelopmentProject) ValidateCreate() bool {
	title := strings.TrimSpace(p.Title)
	return strings.TrimSpace(p.SocietyID) != "" &&
		strings.TrimSpace(p.OwnerID) != "" &&
		title != "" &&
		len(title) <= 200 &&
		ValidMinimumApproval(p.MinimumApprovalPercentage)
}
