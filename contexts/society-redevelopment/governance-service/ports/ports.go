package ports

import (
	"context"
	"time"

	"societyhub/contexts/society-redevelopment/governance-service/domain/entities"
	contractsv1 "societyhub/contracts/gen/events/v1"
)

// ProjectRepository persists projects. Owner-driven status changes go through
// TransitionProject so a concurrent writer that moved the project first is
// detected instead of overwritten.
type ProjectRepository interface {
	CreateProject(ctx context.Context, project entities.RedevelopmentProject) error
	GetProject(ctx context.Context, projectID string) (entities.RedevelopmentProject, error)
	TransitionProject(ctx context.Context, input ProjectTransition) (entities.RedevelopmentProject, error)
	DeleteProject(ctx context.Context, projectID string) error
	// ListProjectsPastDeadline returns voting projects whose deadline is at or
	// before now and whose closing has not been announced yet.
	ListProjectsPastDeadline(ctx context.Context, now time.Time, limit int) ([]entities.RedevelopmentProject, error)
	// MarkVotingClosed records the announcement for the given deadline. It is
	// a no-op when the deadline has moved or the mark is already set.
	MarkVotingClosed(ctx context.Context, projectID string, deadline time.Time, at time.Time) error
}

// ProjectTransition is a conditional update: it applies only when the
// project's stored status still equals From.
type ProjectTransition struct {
	ProjectID          string
	From               entities.ProjectStatus
	To                 entities.ProjectStatus
	VotingDeadline     *time.Time
	CancellationReason string
	UpdatedAt          time.Time
}

type ProposalRepository interface {
	// InsertProposal stores a new proposal and, in the same atomic unit, moves
	// the project to proposals_received when its status at commit time is
	// planning or tender_open.
	InsertProposal(ctx context.Context, proposal entities.DeveloperProposal, now time.Time) (InsertProposalResult, error)
	GetProposal(ctx context.Context, proposalID string) (entities.DeveloperProposal, error)
	ListProposalsByProject(ctx context.Context, projectID string) ([]entities.DeveloperProposal, error)
	// UpdateProposal applies change only while the stored status is one of
	// change.AllowedFrom and returns the proposal as stored afterwards.
	UpdateProposal(ctx context.Context, change ProposalChange) (entities.DeveloperProposal, error)
}

// ProposalChange names the column groups a single write touches. Nil groups
// keep their stored values, so the developer's edits, the owner's evaluation
// and review moves never overwrite one another.
type ProposalChange struct {
	ProposalID  string
	AllowedFrom []entities.ProposalStatus
	Action      string
	Status      *entities.ProposalStatus
	SubmittedAt *time.Time
	Rejection   *ProposalRejection
	Content     *ProposalContent
	Evaluation  *entities.Evaluation
	UpdatedAt   time.Time
}

type ProposalContent struct {
	Terms     entities.FinancialTerms
	Amenities []string
	Summary   string
}

type ProposalRejection struct {
	Reason string
	By     string
}

// Apply returns proposal with the change's groups written over it.
func (c ProposalChange) Apply(proposal entities.DeveloperProposal) entities.DeveloperProposal {
	if c.Status != nil {
		proposal.Status = *c.Status
	}
	if c.SubmittedAt != nil {
		submittedAt := c.SubmittedAt.UTC()
		proposal.SubmittedAt = &submittedAt
	}
	if c.Rejection != nil {
		proposal.RejectionReason = c.Rejection.Reason
		proposal.RejectedBy = c.Rejection.By
	}
	if c.Content != nil {
		proposal.Terms = c.Content.Terms
		proposal.Amenities = append([]string(nil), c.Content.Amenities...)
		proposal.Summary = c.Content.Summary
	}
	if c.Evaluation != nil {
		evaluation := *c.Evaluation
		evaluation.EvaluatedAt = evaluation.EvaluatedAt.UTC()
		proposal.Evaluation = &evaluation
	}
	proposal.UpdatedAt = c.UpdatedAt.UTC()
	return proposal
}

type InsertProposalResult struct {
	Proposal          entities.DeveloperProposal
	Project           entities.RedevelopmentProject
	TransitionApplied bool
}

// SelectionStore applies the selection as one atomic unit.
type SelectionStore interface {
	ApplySelection(ctx context.Context, input SelectionInput) (SelectionResult, error)
}

type SelectionInput struct {
	ProjectID  string
	ProposalID string
	OwnerID    string
	Reason     string
	SelectedAt time.Time
}

type SelectionResult struct {
	Project  entities.RedevelopmentProject
	Selected entities.DeveloperProposal
	Rejected []entities.DeveloperProposal
}

type BallotLedger interface {
	// AppendBallot inserts the ballot only if its key is absent from the
	// member's ledger entry. The returned ballot is the stored one: the new
	// ballot when inserted, the occupying ballot otherwise.
	AppendBallot(ctx context.Context, ballot entities.Ballot) (existing entities.Ballot, inserted bool, err error)
	// AppendBallots applies AppendBallot per item as one per-entry unit and
	// reports which ballots landed.
	AppendBallots(ctx context.Context, ballots []entities.Ballot) (AppendBallotsResult, error)
	GetBallot(ctx context.Context, ballotID string) (entities.Ballot, error)
	GetLedgerEntry(ctx context.Context, projectID string, memberID string) (entities.LedgerEntry, error)
	ListBallotsByProject(ctx context.Context, projectID string) ([]entities.Ballot, error)
	MarkBallotVerified(ctx context.Context, ballotID string, verifierID string, verifiedAt time.Time) (entities.Ballot, error)
}

type AppendBallotsResult struct {
	Added      []entities.Ballot
	Duplicates []entities.Ballot
}

// MembershipOracle answers whether a user is an active member of a society.
type MembershipOracle interface {
	IsActiveMember(ctx context.Context, societyID string, userID string) (bool, error)
	CountActiveMembers(ctx context.Context, societyID string) (int, error)
}

// NotificationDispatcher accepts fire-and-forget decision events.
type NotificationDispatcher interface {
	Enqueue(ctx context.Context, event EventEnvelope) error
}

type EventEnvelope = contractsv1.Envelope

type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

// EventDedupStore reports alreadyReserved=true when the event id was claimed
// earlier with the same payload hash and that claim has not expired. An
// expired claim is taken over by the next caller.
type EventDedupStore interface {
	ReserveEvent(ctx context.Context, eventID string, payloadHash string, expiresAt time.Time) (bool, error)
	ReleaseEvent(ctx context.Context, eventID string) error
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
