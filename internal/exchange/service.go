// Package exchange implements the escrow-backed exchange engine:
// listing fungible balance for sale, cancellation, atomic settlement,
// and the sweep that returns escrow held by expired orders.
package exchange

import (
	"context"
	"strconv"
	"time"

	"carbon-scribe/credit-ledger/credit-ledger-backend/internal/ledger"
	"carbon-scribe/credit-ledger/credit-ledger-backend/internal/store"
)

// Service is the exchange engine's synchronous call surface.
type Service interface {
	CreateSellOrder(ctx context.Context, req CreateOrderRequest) (uint64, error)
	CancelSellOrder(ctx context.Context, orderID uint64, sender ledger.Principal) error
	BuyCredits(ctx context.Context, orderID uint64, buyer ledger.Principal) error
	GetOrder(ctx context.Context, orderID uint64) (*ledger.Order, error)
	ListOrders(ctx context.Context) ([]ledger.Order, error)

	// SweepExpired cancels every expired order and returns its escrow
	// to the seller. Expiry alone never deletes an order, so the sweep
	// (or an explicit cancel) is what keeps escrow from being stranded.
	SweepExpired(ctx context.Context) (int, error)
}

// CreateOrderRequest describes a sell listing. Amount is escrowed out
// of the seller's balance for the lifetime of the order.
type CreateOrderRequest struct {
	Seller     ledger.Principal
	Amount     uint64
	Price      uint64
	Expiration time.Time
}

type service struct {
	store store.Store
	sink  ledger.EventSink
	clock ledger.Clock
}

// NewService creates the exchange engine over the shared store.
func NewService(st store.Store, sink ledger.EventSink, clock ledger.Clock) Service {
	if clock == nil {
		clock = ledger.SystemClock
	}
	return &service{store: st, sink: sink, clock: clock}
}

// CreateSellOrder escrows req.Amount from the seller's balance and
// creates the order. Order ids are monotonically increasing and never
// reused.
func (s *service) CreateSellOrder(ctx context.Context, req CreateOrderRequest) (uint64, error) {
	now := s.clock()

	var orderID uint64
	var event ledger.Event
	err := s.store.Atomically(ctx, func(tx store.Tx) error {
		if req.Amount == 0 {
			return ledger.NewError(ledger.KindInvalidAmount, "order", "", "order amount must be positive")
		}
		if req.Price == 0 {
			return ledger.NewError(ledger.KindInvalidAmount, "order", "", "order price must be positive")
		}
		if !req.Expiration.After(now) {
			return ledger.NewError(ledger.KindInvalidExpiration, "order", "", "expiration must be in the future")
		}

		balance, err := tx.Balances().Get(ctx, req.Seller)
		if err != nil {
			return err
		}
		if balance < req.Amount {
			return ledger.NewError(ledger.KindInsufficientBalance, "balance", string(req.Seller), "balance is below the listing amount")
		}

		id, err := tx.NextID(ctx, store.CounterOrders)
		if err != nil {
			return err
		}
		order := ledger.Order{
			ID:         id,
			Seller:     req.Seller,
			Amount:     req.Amount,
			Price:      req.Price,
			Expiration: req.Expiration,
			CreatedAt:  now,
		}
		if err := tx.Orders().Create(ctx, &order); err != nil {
			return err
		}
		if err := tx.Balances().Set(ctx, req.Seller, balance-req.Amount); err != nil {
			return err
		}
		orderID = id
		event = ledger.NewEvent(ledger.EventOrderCreated, req.Seller, id, map[string]any{
			"amount": req.Amount,
			"price":  req.Price,
		}, now)
		return tx.Events().Append(ctx, event)
	})
	if err != nil {
		return 0, err
	}
	s.publish(event)
	return orderID, nil
}

// CancelSellOrder returns the escrowed amount to the seller and
// deletes the order. The owner may cancel regardless of expiration.
func (s *service) CancelSellOrder(ctx context.Context, orderID uint64, sender ledger.Principal) error {
	now := s.clock()

	var event ledger.Event
	err := s.store.Atomically(ctx, func(tx store.Tx) error {
		order, err := tx.Orders().Get(ctx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ledger.NewError(ledger.KindNotFound, "order", formatID(orderID), "order not found")
		}
		if order.Seller != sender {
			return ledger.NewError(ledger.KindUnauthorized, "order", formatID(orderID), "caller is not the order seller")
		}

		if err := releaseEscrow(ctx, tx, order); err != nil {
			return err
		}
		event = ledger.NewEvent(ledger.EventOrderCancelled, sender, orderID, map[string]any{
			"amount": order.Amount,
		}, now)
		return tx.Events().Append(ctx, event)
	})
	if err != nil {
		return err
	}
	s.publish(event)
	return nil
}

// BuyCredits settles the order atomically: the escrowed amount moves
// to the buyer's balance, the price moves from buyer to seller, and
// the order is deleted. On any failure nothing is applied.
func (s *service) BuyCredits(ctx context.Context, orderID uint64, buyer ledger.Principal) error {
	now := s.clock()

	var event ledger.Event
	err := s.store.Atomically(ctx, func(tx store.Tx) error {
		order, err := tx.Orders().Get(ctx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ledger.NewError(ledger.KindNotFound, "order", formatID(orderID), "order not found")
		}
		if order.Expired(now) {
			return ledger.NewError(ledger.KindExpired, "order", formatID(orderID), "order has expired")
		}

		buyerBalance, err := tx.Balances().Get(ctx, buyer)
		if err != nil {
			return err
		}
		if buyerBalance < order.Price {
			return ledger.NewError(ledger.KindInsufficientBalance, "balance", string(buyer), "balance is below the order price")
		}

		// Self-trade settles against a single balance; read it in its
		// post-debit state so the escrow credit is not lost.
		buyerBalance -= order.Price
		buyerBalance, err = ledger.AddAmount(buyerBalance, order.Amount)
		if err != nil {
			return err
		}
		if err := tx.Balances().Set(ctx, buyer, buyerBalance); err != nil {
			return err
		}

		sellerBalance, err := tx.Balances().Get(ctx, order.Seller)
		if err != nil {
			return err
		}
		sellerBalance, err = ledger.AddAmount(sellerBalance, order.Price)
		if err != nil {
			return err
		}
		if err := tx.Balances().Set(ctx, order.Seller, sellerBalance); err != nil {
			return err
		}

		if err := tx.Orders().Delete(ctx, orderID); err != nil {
			return err
		}
		event = ledger.NewEvent(ledger.EventTradeSettled, buyer, orderID, map[string]any{
			"seller": order.Seller,
			"amount": order.Amount,
			"price":  order.Price,
		}, now)
		return tx.Events().Append(ctx, event)
	})
	if err != nil {
		return err
	}
	s.publish(event)
	return nil
}

// GetOrder returns nil for an unknown id; a settled or cancelled order
// reads as absent, which callers treat as a valid state.
func (s *service) GetOrder(ctx context.Context, orderID uint64) (*ledger.Order, error) {
	var order *ledger.Order
	err := s.store.Atomically(ctx, func(tx store.Tx) error {
		var err error
		order, err = tx.Orders().Get(ctx, orderID)
		return err
	})
	return order, err
}

func (s *service) ListOrders(ctx context.Context) ([]ledger.Order, error) {
	var orders []ledger.Order
	err := s.store.Atomically(ctx, func(tx store.Tx) error {
		var err error
		orders, err = tx.Orders().List(ctx)
		return err
	})
	return orders, err
}

func (s *service) SweepExpired(ctx context.Context) (int, error) {
	now := s.clock()

	var events []ledger.Event
	var swept int
	err := s.store.Atomically(ctx, func(tx store.Tx) error {
		expired, err := tx.Orders().ListExpired(ctx, now)
		if err != nil {
			return err
		}
		for i := range expired {
			order := expired[i]
			if err := releaseEscrow(ctx, tx, &order); err != nil {
				return err
			}
			event := ledger.NewEvent(ledger.EventOrderSwept, order.Seller, order.ID, map[string]any{
				"amount": order.Amount,
			}, now)
			if err := tx.Events().Append(ctx, event); err != nil {
				return err
			}
			events = append(events, event)
		}
		swept = len(expired)
		return nil
	})
	if err != nil {
		return 0, err
	}
	for _, event := range events {
		s.publish(event)
	}
	return swept, nil
}

// releaseEscrow credits the escrowed amount back to the seller and
// deletes the order.
func releaseEscrow(ctx context.Context, tx store.Tx, order *ledger.Order) error {
	balance, err := tx.Balances().Get(ctx, order.Seller)
	if err != nil {
		return err
	}
	balance, err = ledger.AddAmount(balance, order.Amount)
	if err != nil {
		return err
	}
	if err := tx.Balances().Set(ctx, order.Seller, balance); err != nil {
		return err
	}
	return tx.Orders().Delete(ctx, order.ID)
}

func (s *service) publish(event ledger.Event) {
	if s.sink != nil && event.Type != "" {
		s.sink.Publish(event)
	}
}

func formatID(id uint64) string {
	return strconv.FormatUint(id, 10)
}
