package queries

import (
	"context"
	"errors"
	"testing"
	"time"

	"societyhub/contexts/society-redevelopment/governance-service/adapters/memory"
	"societyhub/contexts/society-redevelopment/governance-service/domain/entities"
	domainerrors "societyhub/contexts/society-redevelopment/governance-service/domain/errors"
)

type stubOracle map[string]bool

func (o stubOracle) IsActiveMember(_ context.Context, societyID string, userID string) (bool, error) {
	return o[societyID+"/"+userID], nil
}

func (o stubOracle) CountActiveMembers(context.Context, string) (int, error) {
	return len(o), nil
}

var (
	owner    = entities.Actor{UserID: "owner-1", Role: entities.RoleOwner}
	member   = entities.Actor{UserID: "member-a", Role: entities.RoleMember}
	outsider = entities.Actor{UserID: "member-z", Role: entities.RoleMember}
)

func seedLedger(t *testing.T) (*memory.Store, entities.RedevelopmentProject) {
	t.Helper()
	store := memory.NewStore()
	deadline := time.Now().UTC().Add(time.Hour)
	project := entities.RedevelopmentProject{
		ProjectID:                 "project-1",
		SocietyID:                 "society-1",
		OwnerID:                   owner.UserID,
		Title:                     "Tower A",
		Status:                    entities.ProjectStatusVoting,
		VotingDeadline:            &deadline,
		MinimumApprovalPercentage: 75,
	}
	if err := store.CreateProject(context.Background(), project); err != nil {
		t.Fatalf("seed project failed: %v", err)
	}
	yes := entities.VoteChoiceYes.StoredValue()
	no := entities.VoteChoiceNo.StoredValue()
	for _, ballot := range []entities.Ballot{
		{BallotID: "b1", ProjectID: "project-1", MemberID: "member-a", VotingSession: "s1", Value: yes},
		{BallotID: "b2", ProjectID: "project-1", MemberID: "member-b", VotingSession: "s1", Value: no},
		{BallotID: "b3", ProjectID: "project-1", MemberID: "member-a", VotingSession: "s2", Value: yes},
	} {
		if _, _, err := store.AppendBallot(context.Background(), ballot); err != nil {
			t.Fatalf("seed ballot failed: %v", err)
		}
	}
	return store, project
}

func newStatistics(store *memory.Store) StatisticsUseCase {
	return StatisticsUseCase{
		Projects: store,
		Ballots:  store,
		Membership: stubOracle{
			"society-1/member-a": true,
			"society-1/member-b": true,
			"society-1/member-c": true,
			"society-1/member-d": true,
		},
	}
}

func TestOwnerSeesVoterBreakdown(t *testing.T) {
	store, project := seedLedger(t)
	stats, err := newStatistics(store).GetStatistics(context.Background(), owner, project.ProjectID, entities.StatisticsFilter{})
	if err != nil {
		t.Fatalf("statistics failed: %v", err)
	}
	if stats.TotalBallots != 3 || stats.UniqueVoters != 2 || len(stats.Voters) != 2 {
		t.Fatalf("unexpected owner statistics: %+v", stats)
	}
	if stats.TotalEligibleMembers != 4 || stats.ParticipationRate != 75 {
		t.Fatalf("expected 4 eligible and 75%% participation, got %+v", stats)
	}
}

func TestMemberSeesAggregatesOnly(t *testing.T) {
	store, project := seedLedger(t)
	stats, err := newStatistics(store).GetStatistics(context.Background(), member, project.ProjectID, entities.StatisticsFilter{VotingSession: "s1"})
	if err != nil {
		t.Fatalf("statistics failed: %v", err)
	}
	if stats.Voters != nil {
		t.Fatalf("member must not see voter breakdown")
	}
	if stats.YesCount != 1 || stats.NoCount != 1 || stats.ApprovalPercentage != 50 {
		t.Fatalf("unexpected session statistics: %+v", stats)
	}
}

func TestOutsiderCannotReadStatistics(t *testing.T) {
	store, project := seedLedger(t)
	_, err := newStatistics(store).GetStatistics(context.Background(), outsider, project.ProjectID, entities.StatisticsFilter{})
	if !errors.Is(err, domainerrors.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestMyVoteAndBallots(t *testing.T) {
	store, project := seedLedger(t)
	uc := newStatistics(store)

	ballot, err := uc.MyVote(context.Background(), member, project.ProjectID, entities.BallotKey{VotingSession: "s2"})
	if err != nil || ballot.BallotID != "b3" {
		t.Fatalf("expected b3, got %+v err=%v", ballot, err)
	}
	if _, err := uc.MyVote(context.Background(), member, project.ProjectID, entities.BallotKey{VotingSession: "s9"}); !errors.Is(err, domainerrors.ErrBallotNotFound) {
		t.Fatalf("expected ballot not found, got %v", err)
	}
	entry, err := uc.MyBallots(context.Background(), member, project.ProjectID)
	if err != nil || len(entry.Ballots) != 2 {
		t.Fatalf("expected two ballots, got %+v err=%v", entry, err)
	}
}

func TestDraftProposalsHiddenFromOthers(t *testing.T) {
	store := memory.NewStore()
	project := entities.RedevelopmentProject{
		ProjectID: "project-2", SocietyID: "society-1", OwnerID: owner.UserID,
		Title: "Tower B", Status: entities.ProjectStatusTenderOpen, MinimumApprovalPercentage: 75,
	}
	if err := store.CreateProject(context.Background(), project); err != nil {
		t.Fatalf("seed project failed: %v", err)
	}
	now := time.Now().UTC()
	for _, proposal := range []entities.DeveloperProposal{
		{ProposalID: "p1", ProjectID: project.ProjectID, DeveloperID: "dev-1", Status: entities.ProposalStatusDraft, CreatedAt: now},
		{ProposalID: "p2", ProjectID: project.ProjectID, DeveloperID: "dev-2", Status: entities.ProposalStatusSubmitted, CreatedAt: now.Add(time.Second)},
	} {
		if _, err := store.InsertProposal(context.Background(), proposal, now); err != nil {
			t.Fatalf("seed proposal failed: %v", err)
		}
	}
	q := ProjectQueries{Projects: store, Proposals: store}

	ownerView, err := q.ListProposals(context.Background(), owner, project.ProjectID)
	if err != nil || len(ownerView) != 2 {
		t.Fatalf("expected owner to see both proposals, got %d err=%v", len(ownerView), err)
	}
	memberView, _ := q.ListProposals(context.Background(), member, project.ProjectID)
	if len(memberView) != 1 || memberView[0].ProposalID != "p2" {
		t.Fatalf("expected member to see only p2, got %+v", memberView)
	}
	devView, _ := q.ListProposals(context.Background(), entities.Actor{UserID: "dev-2", Role: entities.RoleDeveloper}, project.ProjectID)
	if len(devView) != 1 || devView[0].ProposalID != "p2" {
		t.Fatalf("expected developer to see only their own proposal, got %+v", devView)
	}
	if _, err := q.GetProposal(context.Background(), member, "p1"); !errors.Is(err, domainerrors.ErrProposalNotFound) {
		t.Fatalf("expected draft hidden from member, got %v", err)
	}
	if _, err := q.GetProposal(context.Background(), entities.Actor{UserID: "dev-1", Role: entities.RoleDeveloper}, "p1"); err != nil {
		t.Fatalf("expected draft visible to its developer, got %v", err)
	}
}
