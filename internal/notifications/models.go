package notifications

import (
	"time"

	"github.com/google/uuid"

	"carbon-scribe/credit-ledger/credit-ledger-backend/internal/ledger"
)

// Message is the wire format pushed to websocket subscribers whenever
// a ledger mutation commits.
type Message struct {
	ID        uuid.UUID    `json:"id"`
	Type      string       `json:"type"`
	Event     ledger.Event `json:"event"`
	Timestamp time.Time    `json:"timestamp"`
}

// NewMessage wraps a ledger event for delivery.
func NewMessage(event ledger.Event) Message {
	return Message{
		ID:        uuid.New(),
		Type:      string(event.Type),
		Event:     event,
		Timestamp: event.OccurredAt,
	}
}
