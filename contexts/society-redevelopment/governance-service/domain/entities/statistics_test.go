package entities

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func ballotsFor(projectID string, yes int, no int, abstain int) []Ballot {
	out := make([]Ballot, 0, yes+no+abstain)
	add := func(count int, choice VoteChoice) {
		for i := 0; i < count; i++ {
			out = append(out, Ballot{
				BallotID:      string(choice) + "-" + string(rune('a'+len(out))),
				ProjectID:     projectID,
				MemberID:      "member-" + string(rune('a'+len(out))),
				VotingSession: "session-1",
				Value:         choice.StoredValue(),
				CastAt:        time.Unix(int64(len(out)), 0).UTC(),
			})
		}
	}
	add(yes, VoteChoiceYes)
	add(no, VoteChoiceNo)
	add(abstain, VoteChoiceAbstain)
	return out
}

func TestComputeStatisticsCountsAbstentionsInDenominator(t *testing.T) {
	project := RedevelopmentProject{ProjectID: "project-1", MinimumApprovalPercentage: 75}
	stats := ComputeStatistics(project, ballotsFor("project-1", 6, 2, 2), StatisticsFilter{}, 20)

	if stats.YesCount != 6 || stats.NoCount != 2 || stats.AbstainCount != 2 {
		t.Fatalf("unexpected counts: %+v", stats)
	}
	if stats.ApprovalPercentage != 60 {
		t.Fatalf("expected approval 60, got %d", stats.ApprovalPercentage)
	}
	if stats.IsApproved {
		t.Fatalf("expected 60%% to miss a 75%% threshold")
	}
	if stats.ParticipationRate != 50 {
		t.Fatalf("expected participation 50, got %d", stats.ParticipationRate)
	}
	if stats.UniqueVoters != 10 || len(stats.Voters) != 10 {
		t.Fatalf("expected 10 voters, got %d/%d", stats.UniqueVoters, len(stats.Voters))
	}
}

func TestComputeStatisticsEmptyLedger(t *testing.T) {
	stats := ComputeStatistics(RedevelopmentProject{ProjectID: "project-1"}, nil, StatisticsFilter{}, 0)
	if stats.ApprovalPercentage != 0 || stats.ParticipationRate != 0 || stats.IsApproved {
		t.Fatalf("expected zeroed statistics, got %+v", stats)
	}
	if stats.MinimumApprovalPercentage != DefaultMinimumApprovalPercentage {
		t.Fatalf("expected default threshold, got %d", stats.MinimumApprovalPercentage)
	}
}

func TestComputeStatisticsAppliesFilter(t *testing.T) {
	ballots := ballotsFor("project-1", 3, 0, 0)
	ballots[0].VotingSession = "session-2"
	ballots[1].ProposalID = "proposal-1"
	ballots = append(ballots, Ballot{ProjectID: "project-2", MemberID: "stranger", VotingSession: "session-1"})

	project := RedevelopmentProject{ProjectID: "project-1", MinimumApprovalPercentage: 50}
	bySession := ComputeStatistics(project, ballots, StatisticsFilter{VotingSession: "session-1"}, 0)
	if bySession.TotalBallots != 2 {
		t.Fatalf("expected 2 ballots in session-1, got %d", bySession.TotalBallots)
	}
	byProposal := ComputeStatistics(project, ballots, StatisticsFilter{ProposalID: "proposal-1"}, 0)
	if byProposal.TotalBallots != 1 || byProposal.ProposalID != "proposal-1" {
		t.Fatalf("expected one ballot for proposal-1, got %+v", byProposal)
	}
}

func TestWithoutVotersStripsBreakdown(t *testing.T) {
	stats := ComputeStatistics(RedevelopmentProject{ProjectID: "project-1"}, ballotsFor("project-1", 1, 1, 0), StatisticsFilter{}, 2)
	if len(stats.Voters) != 2 {
		t.Fatalf("expected breakdown before stripping")
	}
	if stripped := stats.WithoutVoters(); stripped.Voters != nil || stripped.YesCount != 1 {
		t.Fatalf("expected aggregates without voters, got %+v", stripped)
	}
}

func TestApprovalPercentageProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("approval stays within 0..100", prop.ForAll(
		func(yes int, no int, abstain int) bool {
			value := ApprovalPercentage(yes, no, abstain)
			return value >= 0 && value <= 100
		},
		gen.IntRange(0, 500),
		gen.IntRange(0, 500),
		gen.IntRange(0, 500),
	))

	properties.Property("an abstention never raises approval", prop.ForAll(
		func(yes int, no int, abstain int) bool {
			return ApprovalPercentage(yes, no, abstain+1) <= ApprovalPercentage(yes, no, abstain)
		},
		gen.IntRange(0, 500),
		gen.IntRange(0, 500),
		gen.IntRange(0, 500),
	))

	properties.Property("counts always add up to total ballots", prop.ForAll(
		func(yes int, no int, abstain int) bool {
			stats := ComputeStatistics(RedevelopmentProject{ProjectID: "p"}, ballotsFor("p", yes, no, abstain), StatisticsFilter{}, 0)
			return stats.YesCount+stats.NoCount+stats.AbstainCount == stats.TotalBallots &&
				stats.TotalBallots == yes+no+abstain
		},
		gen.IntRange(0, 20),
		gen.IntRange(0, 20),
		gen.IntRange(0, 20),
	))

	properties.TestingRun(t)
}
