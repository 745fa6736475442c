package workers

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"societyhub/contexts/society-redevelopment/governance-service/ports"
)

const moduleName = "society-redevelopment/governance-service"

const eventProjectVotingClosed = "project.voting_closed"

func hashPayload(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// newWorkerEnvelope builds envelopes for worker-produced notifications.
// The event id is deterministic so replays collapse in the dedup store.
func newWorkerEnvelope(
	eventID string,
	eventType string,
	projectID string,
	recipientID string,
	occurredAt time.Time,
	data map[string]any,
) (ports.EventEnvelope, error) {
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
