package entities

import (
	"math"
	"sort"
	"strings"
)

type VoteStatistics struct {
	ProjectID                 string
	VotingSession             string
	ProposalID                string
	YesCount                  int
	NoCount                   int
	AbstainCount              int
	TotalBallots              int
	UniqueVoters              int
	TotalEligibleMembers      int
	ApprovalPercentage        int
	ParticipationRate         int
	MinimumApprovalPercentage int
	IsApproved                bool
	Voters                    []VoterBreakdown
}

// VoterBreakdown is the owner-only per-member view.
type VoterBreakdown struct {
	MemberID string
	Ballots  []Ballot
}

type StatisticsFilter struct {
	VotingSession string
	ProposalID    string
}

func (f StatisticsFilter) Matches(ballot Ballot) bool {
	session := strings.TrimSpace(f.VotingSession)
	if session != "" && ballot.VotingSession != session {
		return false
	}
	proposal := strings.TrimSpace(f.ProposalID)
	if proposal != "" && ballot.ProposalID != proposal {
		return false
	}
	return true
}

// ComputeStatistics aggregates ballots for one project. Ballots outside the
// filter are ignored. The per-voter breakdown is always populated; callers
// strip it for non-owners.
func ComputeStatistics(
	project RedevelopmentProject,
	ballots []Ballot,
	filter StatisticsFilter,
	totalEligibleMembers int,
) VoteStatistics {
	stats := VoteStatistics{
		ProjectID:                 project.ProjectID,
		VotingSession:             strings.TrimSpace(filter.VotingSession),
		ProposalID:                strings.TrimSpace(filter.ProposalID),
		TotalEligibleMembers:      totalEligibleMembers,
		MinimumApprovalPercentage: project.MinimumApprovalPercentage,
	}
	if stats.MinimumApprovalPercentage == 0 {
		stats.MinimumApprovalPercentage = DefaultMinimumApprovalPercentage
	}

	byMember := make(map[string][]Ballot)
	for _, ballot := range ballots {
		if ballot.ProjectID != project.ProjectID || !filter.Matches(ballot) {
			continue
		}
		switch ballot.Choice() {
		case VoteChoiceYes:
			stats.YesCount++
		case VoteChoiceNo:
			stats.NoCount++
		default:
			stats.AbstainCount++
		}
		stats.TotalBallots++
		byMember[ballot.MemberID] = append(byMember[ballot.MemberID], ballot)
	}
	stats.UniqueVoters = len(byMember)

	stats.ApprovalPercentage = ApprovalPercentage(stats.YesCount, stats.NoCount, stats.AbstainCount)
	stats.ParticipationRate = roundedPercentage(stats.TotalBallots, totalEligibleMembers)
	stats.IsApproved = stats.ApprovalPercentage >= stats.MinimumApprovalPercentage

	stats.Voters = make([]VoterBreakdown, 0, len(byMember))
	for memberID, items := range byMember {
		sort.Slice(items, func(i, j int) bool {
			return items[i].CastAt.Before(items[j].CastAt)
		})
		stats.Voters = append(stats.Voters, VoterBreakdown{MemberID: memberID, Ballots: items})
	}
	sort.Slice(stats.Voters, func(i, j int) bool {
		return stats.Voters[i].MemberID < stats.Voters[j].MemberID
	})
	return stats
}

// ApprovalPercentage counts abstentions in the denominator.
func ApprovalPercentage(yes int, no int, abstain int) int {
	return roundedPercentage(yes, yes+no+abstain)
}

func roundedPercentage(part int, whole int) int {
	if whole <= 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(whole) * 100))
}

func (s VoteStatistics) WithoutVoters() VoteStatistics {
	s.Voters = nil
	return s
}
