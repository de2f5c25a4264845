package notifications

import (
	"go.uber.org/zap"

	"carbon-scribe/credit-ledger/credit-ledger-backend/internal/ledger"
)

// Broadcaster is the delivery channel for ledger messages; the
// websocket hub implements it.
type Broadcaster interface {
	Broadcast(msg Message)
}

// Service fans committed ledger events out to subscribers. It
// implements ledger.EventSink, so the registry and exchange services
// publish through it after every successful transaction.
type Service struct {
	broadcaster Broadcaster
	logger      *zap.Logger
}

// NewService creates the notification service.
func NewService(broadcaster Broadcaster, logger *zap.Logger) *Service {
	return &Service{broadcaster: broadcaster, logger: logger}
}

// Publish delivers a committed ledger event. It never blocks the
// calling transaction path.
func (s *Service) Publish(event ledger.Event) {
	s.logger.Debug("ledger event",
		zap.String("type", string(event.Type)),
		zap.String("actor", string(event.Actor)),
		zap.Uint64("entity_id", event.EntityID),
	)
	s.broadcaster.Broadcast(NewMessage(event))
}
