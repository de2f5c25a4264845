package ledger

import (
	"time"

	"github.com/google/uuid"
)

// EventType labels a ledger mutation recorded in the event journal.
type EventType string

const (
	EventProjectRegistered EventType = "PROJECT_REGISTERED"
	EventProjectVerified   EventType = "PROJECT_VERIFIED"
	EventCreditsMinted     EventType = "CREDITS_MINTED"
	EventCreditsTransferred EventType = "CREDITS_TRANSFERRED"
	EventCreditsDeposited  EventType = "CREDITS_DEPOSITED"
	EventCreditsWithdrawn  EventType = "CREDITS_WITHDRAWN"
	EventOrderCreated      EventType = "ORDER_CREATED"
	EventOrderCancelled    EventType = "ORDER_CANCELLED"
	EventOrderSwept        EventType = "ORDER_SWEPT"
	EventTradeSettled      EventType = "TRADE_SETTLED"
)

// Event records one successful ledger mutation. Events are appended in
// the same transaction as the mutation they describe, so the journal
// never disagrees with the tables it narrates.
type Event struct {
	ID         uuid.UUID      `json:"id"`
	Type       EventType      `json:"type"`
	Actor      Principal      `json:"actor"`
	EntityID   uint64         `json:"entity_id"`
	Payload    map[string]any `json:"payload,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// EventSink receives events after the transaction that recorded them
// has committed. Implementations must not block the caller.
type EventSink interface {
	Publish(event Event)
}

// NewEvent builds an event with a fresh identifier.
func NewEvent(eventType EventType, actor Principal, entityID uint64, payload map[string]any, occurredAt time.Time) Event {
	return Event{
		ID:         uuid.New(),
		Type:       eventType,
		Actor:      actor,
		EntityID:   entityID,
		Payload:    payload,
		OccurredAt: occurredAt,
	}
}
