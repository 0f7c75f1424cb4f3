package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const producerName = "minishop-be"

// Publisher emits lifecycle events after a unit of work has committed.
// Publishing is best-effort: a failure never unwinds the committed state.
type Publisher interface {
	// Publish sends an envelope keyed by orderID so all events of one order
	// land on the same partition and keep their order.
	Publish(ctx context.Context, orderID string, env Envelope) error
	Close() error
}

// NewEnvelope wraps a payload in the standard envelope.
func NewEnvelope(eventType string, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}

	return Envelope{
		EventID:      uuid.NewString(),
		EventType:    eventType,
		EventVersion: 1,
		OccurredAt:   time.Now().UTC(),
		Producer:     producerName,
		Payload:      raw,
	}, nil
}

// NoopPublisher drops every event. Used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, orderID string, env Envelope) error { return nil }
func (NoopPublisher) Close() error                                                    { return nil }
