package commands

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"societyhub/contexts/society-redevelopment/governance-service/adapters/memory"
	"societyhub/contexts/society-redevelopment/governance-service/domain/entities"
	"societyhub/contexts/society-redevelopment/governance-service/ports"
)

const testSociety = "society-1"

var (
	owner    = entities.Actor{UserID: "owner-1", Role: entities.RoleOwner}
	stranger = entities.Actor{UserID: "owner-2", Role: entities.RoleOwner}
	memberA  = entities.Actor{UserID: "member-a", Role: entities.RoleMember}
	memberB  = entities.Actor{UserID: "member-b", Role: entities.RoleMember}
	outsider = entities.Actor{UserID: "member-z", Role: entities.RoleMember}
)

func developer(id string) entities.Actor {
	return entities.Actor{UserID: id, Role: entities.RoleDeveloper}
}

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now.UTC()
}

// stubOracle is read-only after construction.
type stubOracle struct {
	members map[string]bool
	err     error
}

func (o stubOracle) IsActiveMember(_ context.Context, societyID string, userID string) (bool, error) {
	if o.err != nil {
		return false, o.err
	}
	return o.members[societyID+"/"+userID], nil
}

func (o stubOracle) CountActiveMembers(_ context.Context, _ string) (int, error) {
	if o.err != nil {
		return 0, o.err
	}
	return len(o.members), nil
}

type failingDispatcher struct{}

func (failingDispatcher) Enqueue(context.Context, ports.EventEnvelope) error {
	return errors.New("notification backend unavailable")
}

type harness struct {
	store     *memory.Store
	clock     *fixedClock
	lifecycle ProjectLifecycleUseCase
	proposals ProposalUseCase
	reviews   ReviewProposalUseCase
	selection SelectProposalUseCase
	votes     VoteUseCase
	verify    VerifyVoteUseCase
}

func newHarness(oracle ports.MembershipOracle, dispatcher ports.NotificationDispatcher) *harness {
	store := memory.NewStore()
	clock := &fixedClock{now: time.Now().UTC()}
	if oracle == nil {
		oracle = stubOracle{members: map[string]bool{
			testSociety + "/" + memberA.UserID: true,
			testSociety + "/" + memberB.UserID: true,
		}}
	}
	if dispatcher == nil {
		dispatcher = store
	}
	logger := slog.Default()
	return &harness{
		store: store,
		clock: clock,
		lifecycle: ProjectLifecycleUseCase{
			Projects: store, Notifications: dispatcher, Clock: clock, IDGen: store, Logger: logger,
		},
		proposals: ProposalUseCase{
			Projects: store, Proposals: store, Notifications: dispatcher, Clock: clock, IDGen: store, Logger: logger,
		},
		reviews: ReviewProposalUseCase{
			Projects: store, Proposals: store, Notifications: dispatcher, Clock: clock, IDGen: store,
			Weights: entities.DefaultScoreWeights(), Logger: logger,
		},
		selection: SelectProposalUseCase{
			Projects: store, Proposals: store, Selections: store, Notifications: dispatcher, Clock: clock, IDGen: store, Logger: logger,
		},
		votes: VoteUseCase{
			Projects: store, Proposals: store, Ballots: store, Membership: oracle,
			Notifications: dispatcher, Clock: clock, IDGen: store, Logger: logger,
		},
		verify: VerifyVoteUseCase{
			Projects: store, Ballots: store, Notifications: dispatcher, Clock: clock, IDGen: store, Logger: logger,
		},
	}
}

func (h *harness) createProject(t *testing.T) entities.RedevelopmentProject {
	t.Helper()
	project, err := h.lifecycle.CreateProject(context.Background(), CreateProjectCommand{
		Actor:     owner,
		SocietyID: testSociety,
		Title:     "Tower A redevelopment",
	})
	if err != nil {
		t.Fatalf("create project failed: %v", err)
	}
	return project
}

func (h *harness) submit(t *testing.T, projectID string, developerID string) entities.DeveloperProposal {
	t.Helper()
	result, err := h.proposals.SubmitProposal(context.Background(), SubmitProposalCommand{
		Actor:     developer(developerID),
		ProjectID: projectID,
		Terms:     entities.FinancialTerms{CorpusFund: 1_000_000, CompletionMonths: 36},
	})
	if err != nil {
		t.Fatalf("submit proposal failed: %v", err)
	}
	return result.Proposal
}

func (h *harness) openVoting(t *testing.T, projectID string, deadline time.Time) entities.RedevelopmentProject {
	t.Helper()
	project, err := h.lifecycle.OpenVoting(context.Background(), OpenVotingCommand{
		Actor:     owner,
		ProjectID: projectID,
		Deadline:  deadline,
	})
	if err != nil {
		t.Fatalf("open voting failed: %v", err)
	}
	return project
}

// votingProject returns a project in voting with one submitted proposal.
func (h *harness) votingProject(t *testing.T) (entities.RedevelopmentProject, entities.DeveloperProposal) {
	t.Helper()
	project := h.createProject(t)
	proposal := h.submit(t, project.ProjectID, "dev-1")
	project = h.openVoting(t, project.ProjectID, h.clock.Now().Add(24*time.Hour))
	return project, proposal
}
