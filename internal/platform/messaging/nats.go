package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	contractsv1 "societyhub/contracts/gen/events/v1"

	"github.com/nats-io/nats.go"
)

// NATSPublisher publishes envelopes as JSON on "<prefix>.<topic>" subjects.
type NATSPublisher struct {
	conn   *nats.Conn
	prefix string
	logger *slog.Logger
}

func NewNATSPublisher(url string, prefix string, logger *slog.Logger) (*NATSPublisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := nats.Connect(url,
		nats.Name("societyhub-governance"),
		nats.MaxReconnects(5),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return &NATSPublisher{conn: conn, prefix: prefix, logger: logger}, nil
}

// Publish checks ctx before sending since nats Publish does not take one.
func (p *NATSPublisher) Publish(ctx context.Context, topic string, event contractsv1.Envelope) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled before publish: %w", err)
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	subject := Subject(p.prefix, topic)
	if err := p.conn.Publish(subject, data); err != nil {
		p.logger.Error("nats publish failed",
			"event", "nats_publish_failed",
			"module", moduleName,
			"layer", "platform",
			"subject", subject,
			"event_id", event.EventID,
			"error", err.Error(),
		)
		return err
	}
	p.logger.Debug("event published",
		"event", "nats_publish",
		"module", moduleName,
		"layer", "platform",
		"subject", subject,
		"event_id", event.EventID,
		"event_type", event.EventType,
	)
	return nil
}

// Close flushes pending messages before closing the connection.
func (p *NATSPublisher) Close() error {
	if p == nil || p.conn == nil {
		return nil
	}
	return p.conn.Drain()
}

// Subject joins prefix and topic with a dot, trimming stray separators.
func Subject(prefix string, topic string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), ".")
	topic = strings.Trim(strings.TrimSpace(topic), ".")
	if prefix == "" {
		return topic
	}
	return prefix + "." + topic
}
