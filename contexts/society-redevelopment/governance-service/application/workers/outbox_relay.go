package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	application "societyhub/contexts/society-redevelopment/governance-service/application"
	"societyhub/contexts/society-redevelopment/governance-service/ports"
)

const defaultRelayBatch = 100

// OutboxRelay hands queued governance notifications to the publisher.
//
// Rows carry the project id as partition key. Notifications of one project
// leave in the order they were queued; a project whose row fails is held
// for the rest of the cycle while other projects keep flowing.
type OutboxRelay struct {
	Outbox    ports.OutboxRepository
	Publisher ports.EventPublisher
	Clock     ports.Clock
	BatchSize int
	Logger    *slog.Logger
}

// RunOnce returns how many rows were published and the joined failures of
// every held project.
func (r OutboxRelay) RunOnce(ctx context.Context) (int, error) {
	log := application.ResolveLogger(r.Logger).With("module", moduleName, "layer", "worker")
	limit := r.BatchSize
	if limit <= 0 {
		limit = defaultRelayBatch
	}

	pending, err := r.Outbox.ListPendingOutbox(ctx, limit)
	if err != nil {
		log.Error("governance notification queue unreadable",
			"event", "governance_outbox_list_failed",
			"error", err.Error(),
		)
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}

	publishedAt := time.Now().UTC()
	if r.Clock != nil {
		publishedAt = r.Clock.Now().UTC()
	}

	held := make(map[string]error)
	published := 0
	for _, row := range pending {
		project := row.PartitionKey
		if _, blocked := held[project]; blocked {
			continue
		}
		if err := r.relay(ctx, row, publishedAt); err != nil {
			held[project] = err
			log.Warn("governance notification held for project",
				"event", "governance_outbox_project_held",
				"project_id", project,
				"outbox_id", row.OutboxID,
				"event_type", row.EventType,
				"error", err.Error(),
			)
			continue
		}
		published++
	}

	if len(held) > 0 {
		failures := make([]error, 0, len(held))
		for project, err := range held {
			failures = append(failures, fmt.Errorf("project %s: %w", project, err))
		}
		return published, errors.Join(failures...)
	}
	log.Debug("governance notifications relayed",
		"event", "governance_outbox_relay_completed",
		"published_count", published,
	)
	return published, nil
}

// relay publishes one row and then marks it. A row that cannot be decoded
// is never marked, so it stays visible to operators in the queue.
func (r OutboxRelay) relay(ctx context.Context, row ports.OutboxMessage, at time.Time) error {
	var envelope ports.EventEnvelope
	if err := json.Unmarshal(row.Payload, &envelope); err != nil {
		return fmt.Errorf("decode %s: %w", row.OutboxID, err)
	}
	topic := envelope.EventType
	if topic == "" {
		topic = row.EventType
	}
	if err := r.Publisher.Publish(ctx, topic, envelope); err != nil {
		return fmt.Errorf("publish %s: %w", envelope.EventID, err)
	}
	if err := r.Outbox.MarkOutboxPublished(ctx, row.OutboxID, at); err != nil {
		return fmt.Errorf("mark %s published: %w", row.OutboxID, err)
	}
	return nil
}
