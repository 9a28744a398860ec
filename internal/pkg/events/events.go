package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	TypeOrderCompleted = "order.completed"
	TypeOrderCancelled = "order.cancelled"
	TypeWalletToppedUp = "wallet.topped_up"
)

const envelopeVersion = 1

// Event is a settlement fact published after its transaction committed.
type Event struct {
	Type string
	// Key is the aggregate id; events sharing a key keep their order.
	Key        string
	Recipients []uuid.UUID
	Payload    any
}

// Envelope is the wire form shared by every transport.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// Publisher delivers events. Delivery is best effort: implementations log
// failures instead of returning them, since the state change is already committed.
type Publisher interface {
	Publish(ctx context.Context, e Event)
}

// NewEnvelope wraps e for the wire.
func NewEnvelope(producer string, e Event) (Envelope, error) {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     e.Type,
		EventVersion:  envelopeVersion,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		CorrelationID: e.Key,
		Payload:       payload,
	}, nil
}

// UnwrapPayload decodes an envelope payload into T.
func UnwrapPayload[T any](env Envelope) (T, error) {
	var t T
	err := json.Unmarshal(env.Payload, &t)
	return t, err
}

// Multi fans an event out to several publishers.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, e Event) {
	for _, p := range m {
		if p != nil {
			p.Publish(ctx, e)
		}
	}
}

// Noop discards events.
type Noop struct{}

func (Noop) Publish(context.Context, Event) {}
