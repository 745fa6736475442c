package commands

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	application "societyhub/contexts/society-redevelopment/governance-service/application"
	"societyhub/contexts/society-redevelopment/governance-service/ports"
)

const moduleName = "society-redevelopment/governance-service"

const (
	EventProjectCreated      = "project.created"
	EventProjectStatus       = "project.status_changed"
	EventProposalSubmitted   = "proposal.submitted"
	EventProposalReviewed    = "proposal.reviewed"
	EventProposalWithdrawn   = "proposal.withdrawn"
	EventProposalSelected    = "proposal.selected"
	EventProposalRejected    = "proposal.rejected"
	EventVoteCast            = "vote.cast"
	EventVoteVerified        = "vote.verified"
	EventProjectVotingClosed = "project.voting_closed"
)

// NotificationEvents lists every event type the module emits.
var NotificationEvents = []string{
	EventProjectCreated,
	EventProjectStatus,
	EventProposalSubmitted,
	EventProposalReviewed,
	EventProposalWithdrawn,
	EventProposalSelected,
	EventProposalRejected,
	EventVoteCast,
	EventVoteVerified,
	EventProjectVotingClosed,
}

func newGovernanceEnvelope(
	eventID string,
	eventType string,
	projectID string,
	recipientID string,
	occurredAt time.Time,
	data map[string]any,
) (ports.EventEnvelope, error) {
	// Notifications are partitioned by project so per-project consumers see
	// decisions in commit order.
	payload, err := json.Marshal(data)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return ports.EventEnvelope{
		EventID:          eventID,
		EventType:        eventType,
		OccurredAt:       occurredAt.UTC(),
		SourceService:    "governance-service",
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: "project_id",
		PartitionKey:     projectID,
		RecipientID:      recipientID,
		Data:             payload,
	}, nil
}

// notifier hands decision events to the dispatcher after the owning write
// has committed. Every failure is logged and swallowed.
type notifier struct {
	dispatcher ports.NotificationDispatcher
	idGen      ports.IDGenerator
	logger     *slog.Logger
}

func (n notifier) notify(
	ctx context.Context,
	eventType string,
	projectID string,
	recipientID string,
	occurredAt time.Time,
	data map[string]any,
) {
	if n.dispatcher == nil || n.idGen == nil {
		return
	}
	logger := application.ResolveLogger(n.logger)
	eventID, err := n.idGen.NewID(ctx)
	if err != nil {
		logNotifyFailure(logger, eventType, projectID, recipientID, err)
		return
	}
	envelope, err := newGovernanceEnvelope(eventID, eventType, projectID, recipientID, occurredAt, data)
	if err != nil {
		logNotifyFailure(logger, eventType, projectID, recipientID, err)
		return
	}
	if err := n.dispatcher.Enqueue(ctx, envelope); err != nil {
		logNotifyFailure(logger, eventType, projectID, recipientID, err)
		return
	}
	logger.Debug("notification enqueued",
		"event", "governance_notification_enqueued",
		"module", moduleName,
		"layer", "application",
		"event_id", eventID,
		"event_type", eventType,
		"project_id", projectID,
		"recipient_id", recipientID,
	)
}

func logNotifyFailure(logger *slog.Logger, eventType string, projectID string, recipientID string, err error) {
	logger.Warn("notification dispatch failed; continuing",
		"event", "governance_notification_dispatch_failed",
		"module", moduleName,
		"layer", "application",
		"event_type", eventType,
		"project_id", projectID,
		"recipient_id", recipientID,
		"error", err.Error(),
	)
}

func resolveNow(clock ports.Clock) time.Time {
	if clock != nil {
		return clock.Now().UTC()
	}
	return time.Now().UTC()
}
