package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"societyhub/contexts/society-redevelopment/governance-service/domain/entities"
	domainerrors "societyhub/contexts/society-redevelopment/governance-service/domain/errors"
	"societyhub/contexts/society-redevelopment/governance-service/ports"

	"github.com/google/uuid"
)

type outboxRecord struct {
	message   ports.OutboxMessage
	published bool
}

type dedupRecord struct {
	payloadHash string
	expiresAt   time.Time
}

// Store keeps governance state in process. mu only guards map access;
// conditional writes serialize on a per-project lock (proposals, selection,
// transitions) or a per-ledger-entry lock (ballots), so members voting on
// the same project never wait on each other.
type Store struct {
	mu sync.RWMutex

	projects  map[string]entities.RedevelopmentProject
	proposals map[string]entities.DeveloperProposal
	ballots   map[string]entities.Ballot
	ledger    map[string][]string
	outbox    map[string]outboxRecord
	dedup     map[string]dedupRecord

	projectLocks keyedMutex
	ledgerLocks  keyedMutex
}

func NewStore() *Store {
	return &Store{
		projects:  make(map[string]entities.RedevelopmentProject),
		proposals: make(map[string]entities.DeveloperProposal),
		ballots:   make(map[string]entities.Ballot),
		ledger:    make(map[string][]string),
		outbox:    make(map[string]outboxRecord),
		dedup:     make(map[string]dedupRecord),
	}
}

// keyedMutex hands out one mutex per key.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()
	m.Lock()
	return m.Unlock
}

func ledgerKey(projectID string, memberID string) string {
	return strings.TrimSpace(projectID) + "\x00" + strings.TrimSpace(memberID)
}

func (s *Store) CreateProject(_ context.Context, project entities.RedevelopmentProject) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := strings.TrimSpace(project.ProjectID)
	if _, ok := s.projects[id]; ok {
		return domainerrors.ErrConflict
	}
	project.ProjectID = id
	s.projects[id] = project
	return nil
}

func (s *Store) GetProject(_ context.Context, projectID string) (entities.RedevelopmentProject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	project, ok := s.projects[strings.TrimSpace(projectID)]
	if !ok {
		return entities.RedevelopmentProject{}, domainerrors.ErrProjectNotFound
	}
	return project, nil
}

func (s *Store) TransitionProject(_ context.Context, input ports.ProjectTransition) (entities.RedevelopmentProject, error) {
	projectID := strings.TrimSpace(input.ProjectID)
	unlock := s.projectLocks.lock(projectID)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	project, ok := s.projects[projectID]
	if !ok {
		return entities.RedevelopmentProject{}, domainerrors.ErrProjectNotFound
	}
	if project.Status != input.From {
		return entities.RedevelopmentProject{}, domainerrors.NewStateConflict(
			string(project.Status), "transition to "+string(input.To), domainerrors.ReasonIllegalTransition)
	}
	project.Status = input.To
	project.UpdatedAt = input.UpdatedAt.UTC()
	if input.VotingDeadline != nil {
		deadline := input.VotingDeadline.UTC()
		project.VotingDeadline = &deadline
		project.VotingClosedAt = nil
	}
	if input.To == entities.ProjectStatusCancelled {
		project.CancellationReason = input.CancellationReason
	}
	s.projects[projectID] = project
	return project, nil
}

func (s *Store) DeleteProject(_ context.Context, projectID string) error {
	projectID = strings.TrimSpace(projectID)
	unlock := s.projectLocks.lock(projectID)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[projectID]; !ok {
		return domainerrors.ErrProjectNotFound
	}
	delete(s.projects, projectID)
	for id, proposal := range s.proposals {
		if proposal.ProjectID == projectID {
			delete(s.proposals, id)
		}
	}
	for id, ballot := range s.ballots {
		if ballot.ProjectID == projectID {
			delete(s.ballots, id)
			delete(s.ledger, ledgerKey(ballot.ProjectID, ballot.MemberID))
		}
	}
	return nil
}

func (s *Store) ListProjectsPastDeadline(_ context.Context, now time.Time, limit int) ([]entities.RedevelopmentProject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = 100
	}
	items := make([]entities.RedevelopmentProject, 0)
	for _, project := range s.projects {
		if project.Status != entities.ProjectStatusVoting || project.VotingDeadline == nil || project.VotingClosedAt != nil {
			continue
		}
		if now.UTC().Before(project.VotingDeadline.UTC()) {
			continue
		}
		items = append(items, project)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].VotingDeadline.Before(*items[j].VotingDeadline)
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) MarkVotingClosed(_ context.Context, projectID string, deadline time.Time, at time.Time) error {
	projectID = strings.TrimSpace(projectID)
	unlock := s.projectLocks.lock(projectID)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	project, ok := s.projects[projectID]
	if !ok {
		return domainerrors.ErrProjectNotFound
	}
	if project.VotingClosedAt != nil || project.VotingDeadline == nil || !project.VotingDeadline.Equal(deadline) {
		return nil
	}
	closedAt := at.UTC()
	project.VotingClosedAt = &closedAt
	s.projects[projectID] = project
	return nil
}

func (s *Store) InsertProposal(_ context.Context, proposal entities.DeveloperProposal, now time.Time) (ports.InsertProposalResult, error) {
	projectID := strings.TrimSpace(proposal.ProjectID)
	unlock := s.projectLocks.lock(projectID)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	project, ok := s.projects[projectID]
	if !ok {
		return ports.InsertProposalResult{}, domainerrors.ErrProjectNotFound
	}
	if !project.Status.AcceptsProposals() {
		return ports.InsertProposalResult{}, domainerrors.NewStateConflict(
			string(project.Status), "submit proposal", domainerrors.ReasonNotAcceptingProposals)
	}
	for _, existing := range s.proposals {
		if existing.ProjectID == projectID &&
			existing.DeveloperID == proposal.DeveloperID &&
			existing.Status != entities.ProposalStatusWithdrawn {
			return ports.InsertProposalResult{}, domainerrors.ErrDuplicateProposal
		}
	}

	proposal.ProjectID = projectID
	proposal.Amenities = append([]string(nil), proposal.Amenities...)
	s.proposals[proposal.ProposalID] = proposal

	result := ports.InsertProposalResult{Proposal: proposal, Project: project}
	if project.Status.FlipsOnFirstProposal() {
		receivedAt := now.UTC()
		project.Status = entities.ProjectStatusProposalsReceived
		project.ProposalsReceivedAt = &receivedAt
		project.UpdatedAt = receivedAt
		s.projects[projectID] = project
		result.Project = project
		result.TransitionApplied = true
	}
	return result, nil
}

func (s *Store) GetProposal(_ context.Context, proposalID string) (entities.DeveloperProposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	proposal, ok := s.proposals[strings.TrimSpace(proposalID)]
	if !ok {
		return entities.DeveloperProposal{}, domainerrors.ErrProposalNotFound
	}
	return proposal, nil
}

func (s *Store) ListProposalsByProject(_ context.Context, projectID string) ([]entities.DeveloperProposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	projectID = strings.TrimSpace(projectID)
	items := make([]entities.DeveloperProposal, 0)
	for _, proposal := range s.proposals {
		if proposal.ProjectID == projectID {
			items = append(items, proposal)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

func (s *Store) UpdateProposal(_ context.Context, change ports.ProposalChange) (entities.DeveloperProposal, error) {
	proposalID := strings.TrimSpace(change.ProposalID)
	s.mu.RLock()
	stored, ok := s.proposals[proposalID]
	s.mu.RUnlock()
	if !ok {
		return entities.DeveloperProposal{}, domainerrors.ErrProposalNotFound
	}
	unlock := s.projectLocks.lock(stored.ProjectID)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok = s.proposals[proposalID]
	if !ok {
		return entities.DeveloperProposal{}, domainerrors.ErrProposalNotFound
	}
	if !statusIn(stored.Status, change.AllowedFrom) {
		return entities.DeveloperProposal{}, domainerrors.NewStateConflict(
			string(stored.Status), changeAction(change), domainerrors.ReasonProposalStatus)
	}
	updated := change.Apply(stored)
	s.proposals[proposalID] = updated
	return updated, nil
}

func changeAction(change ports.ProposalChange) string {
	if action := strings.TrimSpace(change.Action); action != "" {
		return action
	}
	return "update proposal"
}

// ApplySelection runs the guard and every write under the project lock, so
// either all of them are visible or none.
func (s *Store) ApplySelection(_ context.Context, input ports.SelectionInput) (ports.SelectionResult, error) {
	projectID := strings.TrimSpace(input.ProjectID)
	unlock := s.projectLocks.lock(projectID)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	project, ok := s.projects[projectID]
	if !ok {
		return ports.SelectionResult{}, domainerrors.ErrProjectNotFound
	}
	if project.HasSelection() {
		return ports.SelectionResult{}, domainerrors.NewStateConflict(
			string(project.Status), "select proposal", domainerrors.ReasonAlreadySelected)
	}
	if project.Status != entities.ProjectStatusVoting {
		return ports.SelectionResult{}, domainerrors.NewStateConflict(
			string(project.Status), "select proposal", domainerrors.ReasonIllegalTransition)
	}
	selected, ok := s.proposals[strings.TrimSpace(input.ProposalID)]
	if !ok || selected.ProjectID != projectID {
		return ports.SelectionResult{}, domainerrors.ErrProposalNotFound
	}
	if !selected.Status.IsSelectable() {
		return ports.SelectionResult{}, domainerrors.NewStateConflict(
			string(selected.Status), "select proposal", domainerrors.ReasonProposalStatus)
	}

	at := input.SelectedAt.UTC()
	selected.Status = entities.ProposalStatusSelected
	selected.UpdatedAt = at
	s.proposals[selected.ProposalID] = selected

	rejected := make([]entities.DeveloperProposal, 0)
	for id, proposal := range s.proposals {
		if proposal.ProjectID != projectID || id == selected.ProposalID || !proposal.Status.IsSelectable() {
			continue
		}
		proposal.Status = entities.ProposalStatusRejected
		proposal.RejectionReason = input.Reason
		proposal.RejectedBy = input.OwnerID
		proposal.UpdatedAt = at
		s.proposals[id] = proposal
		rejected = append(rejected, proposal)
	}
	sort.Slice(rejected, func(i, j int) bool {
		return rejected[i].ProposalID < rejected[j].ProposalID
	})

	project.SelectedProposalID = selected.ProposalID
	project.SelectedDeveloperID = selected.DeveloperID
	project.SelectedAt = &at
	project.Status = entities.ProjectStatusDeveloperSelected
	project.UpdatedAt = at
	s.projects[projectID] = project

	return ports.SelectionResult{Project: project, Selected: selected, Rejected: rejected}, nil
}

func (s *Store) AppendBallot(_ context.Context, ballot entities.Ballot) (entities.Ballot, bool, error) {
	key := ledgerKey(ballot.ProjectID, ballot.MemberID)
	unlock := s.ledgerLocks.lock(key)
	defer unlock()
	return s.appendLocked(key, ballot)
}

// AppendBallots holds the entry lock for the whole batch; keys already in
// the entry are reported as duplicates and skipped.
func (s *Store) AppendBallots(_ context.Context, ballots []entities.Ballot) (ports.AppendBallotsResult, error) {
	result := ports.AppendBallotsResult{
		Added:      make([]entities.Ballot, 0, len(ballots)),
		Duplicates: make([]entities.Ballot, 0),
	}
	if len(ballots) == 0 {
		return result, nil
	}
	key := ledgerKey(ballots[0].ProjectID, ballots[0].MemberID)
	for _, ballot := range ballots[1:] {
		if ledgerKey(ballot.ProjectID, ballot.MemberID) != key {
			return ports.AppendBallotsResult{}, domainerrors.ErrValidation
		}
	}
	unlock := s.ledgerLocks.lock(key)
	defer unlock()
	for _, ballot := range ballots {
		stored, inserted, err := s.appendLocked(key, ballot)
		if err != nil {
			return ports.AppendBallotsResult{}, err
		}
		if inserted {
			result.Added = append(result.Added, stored)
		} else {
			result.Duplicates = append(result.Duplicates, stored)
		}
	}
	return result, nil
}

func (s *Store) appendLocked(key string, ballot entities.Ballot) (entities.Ballot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := ballot.Key()
	for _, id := range s.ledger[key] {
		existing := s.ballots[id]
		if existing.Key() == want {
			return existing, false, nil
		}
	}
	ballot.ProposalID = want.ProposalID
	ballot.VotingSession = want.VotingSession
	if strings.TrimSpace(ballot.BallotID) == "" {
		ballot.BallotID = uuid.NewString()
	}
	s.ballots[ballot.BallotID] = ballot
	s.ledger[key] = append(s.ledger[key], ballot.BallotID)
	return ballot, true, nil
}

func (s *Store) GetBallot(_ context.Context, ballotID string) (entities.Ballot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ballot, ok := s.ballots[strings.TrimSpace(ballotID)]
	if !ok {
		return entities.Ballot{}, domainerrors.ErrBallotNotFound
	}
	return ballot, nil
}

func (s *Store) GetLedgerEntry(_ context.Context, projectID string, memberID string) (entities.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry := entities.LedgerEntry{
		ProjectID: strings.TrimSpace(projectID),
		MemberID:  strings.TrimSpace(memberID),
	}
	for _, id := range s.ledger[ledgerKey(projectID, memberID)] {
		entry.Ballots = append(entry.Ballots, s.ballots[id])
	}
	return entry, nil
}

func (s *Store) ListBallotsByProject(_ context.Context, projectID string) ([]entities.Ballot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	projectID = strings.TrimSpace(projectID)
	items := make([]entities.Ballot, 0)
	for _, ballot := range s.ballots {
		if ballot.ProjectID == projectID {
			items = append(items, ballot)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CastAt.Equal(items[j].CastAt) {
			return items[i].BallotID < items[j].BallotID
		}
		return items[i].CastAt.Before(items[j].CastAt)
	})
	return items, nil
}

func (s *Store) MarkBallotVerified(_ context.Context, ballotID string, verifierID string, verifiedAt time.Time) (entities.Ballot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ballot, ok := s.ballots[strings.TrimSpace(ballotID)]
	if !ok {
		return entities.Ballot{}, domainerrors.ErrBallotNotFound
	}
	at := verifiedAt.UTC()
	ballot.IsVerified = true
	ballot.VerifiedBy = strings.TrimSpace(verifierID)
	ballot.VerifiedAt = &at
	s.ballots[ballot.BallotID] = ballot
	return ballot, nil
}

// Enqueue makes the store an outbox-backed notification dispatcher.
func (s *Store) Enqueue(ctx context.Context, envelope ports.EventEnvelope) error {
	return s.AppendOutbox(ctx, envelope)
}

func (s *Store) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	outboxID := strings.TrimSpace(envelope.EventID)
	if outboxID == "" {
		outboxID = uuid.NewString()
	}
	if existing, ok := s.outbox[outboxID]; ok {
		if !bytes.Equal(existing.message.Payload, payload) {
			return domainerrors.ErrConflict
		}
		return nil
	}
	createdAt := envelope.OccurredAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	s.outbox[outboxID] = outboxRecord{
		message: ports.OutboxMessage{
			OutboxID:     outboxID,
			EventType:    strings.TrimSpace(envelope.EventType),
			PartitionKey: strings.TrimSpace(envelope.PartitionKey),
			Payload:      payload,
			CreatedAt:    createdAt,
		},
	}
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	items := make([]ports.OutboxMessage, 0, len(s.outbox))
	for _, row := range s.outbox {
		if row.published {
			continue
		}
		items = append(items, row.message)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].OutboxID < items[j].OutboxID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.outbox[strings.TrimSpace(outboxID)]
	if !ok {
		return domainerrors.ErrConflict
	}
	row.published = true
	s.outbox[strings.TrimSpace(outboxID)] = row
	return nil
}

// PendingOutboxCount reports notifications not yet relayed.
func (s *Store) PendingOutboxCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, row := range s.outbox {
		if !row.published {
			count++
		}
	}
	return count
}

func (s *Store) ReserveEvent(
	_ context.Context,
	eventID string,
	payloadHash string,
	expiresAt time.Time,
) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.TrimSpace(eventID)
	existing, ok := s.dedup[key]
	if ok {
		if !existing.expiresAt.IsZero() && time.Now().UTC().After(existing.expiresAt.UTC()) {
			delete(s.dedup, key)
		} else {
			if existing.payloadHash != strings.TrimSpace(payloadHash) {
				return false, domainerrors.ErrConflict
			}
			return true, nil
		}
	}

	s.dedup[key] = dedupRecord{
		payloadHash: strings.TrimSpace(payloadHash),
		expiresAt:   expiresAt.UTC(),
	}
	return false, nil
}

func (s *Store) ReleaseEvent(_ context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.dedup, strings.TrimSpace(eventID))
	return nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func statusIn(status entities.ProposalStatus, allowed []entities.ProposalStatus) bool {
	for _, candidate := range allowed {
		if candidate == status {
			return true
		}
	}
	return false
}

var _ ports.ProjectRepository = (*Store)(nil)
var _ ports.ProposalRepository = (*Store)(nil)
var _ ports.SelectionStore = (*Store)(nil)
var _ ports.BallotLedger = (*Store)(nil)
var _ ports.NotificationDispatcher = (*Store)(nil)
var _ ports.OutboxRepository = (*Store)(nil)
var _ ports.EventDedupStore = (*Store)(nil)
