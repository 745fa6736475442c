package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"societyhub/contexts/society-redevelopment/governance-service/domain/entities"
	"societyhub/contexts/society-redevelopment/governance-service/ports"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

var storeNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

// votingStore returns a store holding one project in voting with n submitted
// proposals named proposal-0..proposal-(n-1).
func votingStore(t *testing.T, n int) *Store {
	t.Helper()
	ctx := context.Background()
	store := NewStore()
	if err := store.CreateProject(ctx, entities.RedevelopmentProject{
		ProjectID: "project-1", SocietyID: "society-1", OwnerID: "owner-1", Title: "Tower A",
		Status: entities.ProjectStatusTenderOpen, MinimumApprovalPercentage: 75,
		CreatedAt: storeNow, UpdatedAt: storeNow,
	}); err != nil {
		t.Fatalf("create project: %v", err)
	}
	for i := 0; i < n; i++ {
		if _, err := store.InsertProposal(ctx, entities.DeveloperProposal{
			ProposalID:  fmt.Sprintf("proposal-%d", i),
			ProjectID:   "project-1",
			DeveloperID: fmt.Sprintf("developer-%d", i),
			Status:      entities.ProposalStatusSubmitted,
			CreatedAt:   storeNow,
			UpdatedAt:   storeNow,
		}, storeNow); err != nil {
			t.Fatalf("insert proposal %d: %v", i, err)
		}
	}
	deadline := storeNow.Add(24 * time.Hour)
	if _, err := store.TransitionProject(ctx, ports.ProjectTransition{
		ProjectID:      "project-1",
		From:           entities.ProjectStatusProposalsReceived,
		To:             entities.ProjectStatusVoting,
		VotingDeadline: &deadline,
		UpdatedAt:      storeNow,
	}); err != nil {
		t.Fatalf("open voting: %v", err)
	}
	return store
}

func TestBallotKeysAreStoredOnce(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("one stored ballot per key, first write wins", prop.ForAll(
		func(picks []int) bool {
			ctx := context.Background()
			store := NewStore()
			first := make(map[entities.BallotKey]string)
			for i, pick := range picks {
				yes := i%2 == 0
				ballot := entities.Ballot{
					BallotID:      fmt.Sprintf("ballot-%d", i),
					ProjectID:     "project-1",
					MemberID:      "member-1",
					ProposalID:    fmt.Sprintf("proposal-%d", pick%3),
					VotingSession: fmt.Sprintf("session-%d", pick/3),
					Value:         &yes,
					CastAt:        storeNow.Add(time.Duration(i) * time.Second),
				}
				stored, inserted, err := store.AppendBallot(ctx, ballot)
				if err != nil {
					return false
				}
				want, seen := first[ballot.Key()]
				if seen {
					if inserted || stored.BallotID != want {
						return false
					}
					continue
				}
				if !inserted {
					return false
				}
				first[ballot.Key()] = ballot.BallotID
			}
			entry, err := store.GetLedgerEntry(ctx, "project-1", "member-1")
			if err != nil || len(entry.Ballots) != len(first) {
				return false
			}
			for _, ballot := range entry.Ballots {
				if first[ballot.Key()] != ballot.BallotID {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 8)),
	))

	properties.TestingRun(t)
}

func TestConcurrentBallotsForOneKeyStoreOne(t *testing.T) {
	store := NewStore()
	const writers = 16
	var wg sync.WaitGroup
	inserted := make(chan string, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			yes := true
			_, ok, err := store.AppendBallot(context.Background(), entities.Ballot{
				BallotID: fmt.Sprintf("ballot-%d", i), ProjectID: "project-1", MemberID: "member-1",
				ProposalID: "proposal-1", VotingSession: "session-1", Value: &yes, CastAt: storeNow,
			})
			if err != nil {
				t.Errorf("append ballot: %v", err)
				return
			}
			if ok {
				inserted <- fmt.Sprintf("ballot-%d", i)
			}
		}(i)
	}
	wg.Wait()
	close(inserted)
	if len(inserted) != 1 {
		t.Fatalf("expected exactly one insert, got %d", len(inserted))
	}
	entry, err := store.GetLedgerEntry(context.Background(), "project-1", "member-1")
	if err != nil || len(entry.Ballots) != 1 {
		t.Fatalf("expected one stored ballot, got %+v err=%v", entry, err)
	}
}

func TestSelectionLeavesAtMostOneSelected(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("any order of select attempts yields one selected proposal", prop.ForAll(
		func(order []int) bool {
			store := votingStore(t, 4)
			ctx := context.Background()
			wins := 0
			winner := ""
			for i, pick := range order {
				result, err := store.ApplySelection(ctx, ports.SelectionInput{
					ProjectID:  "project-1",
					ProposalID: fmt.Sprintf("proposal-%d", pick),
					OwnerID:    "owner-1",
					Reason:     entities.CompetitorRejectionReason,
					SelectedAt: storeNow.Add(time.Duration(i) * time.Minute),
				})
				if err == nil {
					wins++
					winner = result.Selected.ProposalID
				}
			}
			if wins != 1 {
				return false
			}
			return selectedCount(ctx, store) == 1 && mustProject(ctx, store).SelectedProposalID == winner
		},
		gen.SliceOfN(6, gen.IntRange(0, 3)),
	))

	properties.TestingRun(t)
}

func TestConcurrentSelectionsPickOneWinner(t *testing.T) {
	store := votingStore(t, 4)
	ctx := context.Background()
	var wg sync.WaitGroup
	wins := make(chan string, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := store.ApplySelection(ctx, ports.SelectionInput{
				ProjectID:  "project-1",
				ProposalID: fmt.Sprintf("proposal-%d", i%4),
				OwnerID:    "owner-1",
				Reason:     entities.CompetitorRejectionReason,
				SelectedAt: storeNow,
			})
			if err == nil {
				wins <- result.Selected.ProposalID
			}
		}(i)
	}
	wg.Wait()
	close(wins)
	if len(wins) != 1 {
		t.Fatalf("expected one winning selection, got %d", len(wins))
	}
	if got := selectedCount(ctx, store); got != 1 {
		t.Fatalf("expected one selected proposal, got %d", got)
	}
}

func selectedCount(ctx context.Context, store *Store) int {
	proposals, err := store.ListProposalsByProject(ctx, "project-1")
	if err != nil {
		return -1
	}
	count := 0
	for _, proposal := range proposals {
		if proposal.Status == entities.ProposalStatusSelected {
			count++
		}
	}
	return count
}

func mustProject(ctx context.Context, store *Store) entities.RedevelopmentProject {
	project, _ := store.GetProject(ctx, "project-1")
	return project
}
