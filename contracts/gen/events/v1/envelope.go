package v1

import (
	"encoding/json"
	"time"
)

// Envelope is the versioned notification envelope shared by the governance
// outbox, the relay worker and every event bus adapter. Fields are append-only.
type Envelope struct {
	EventID          string          `json:"event_id"`
	EventType        string          `json:"event_type"`
	OccurredAt       time.Time       `json:"occurred_at"`
	SourceService    string          `json:"source_service"`
	TraceID          string          `json:"trace_id"`
	SchemaVersion    int             `json:"schema_version"`
	PartitionKeyPath string          `json:"partition_key_path"`
	PartitionKey     string          `json:"partition_key"`
	RecipientID      string          `json:"recipient_id,omitempty"`
	Data             json.RawMessage `json:"data"`
}
