// Package credits implements the credit registry: minting of credit
// lots against verified projects, owner-to-owner transfer with lot
// merging, and the deposit/withdraw bridge between non-fungible lots
// and the fungible balances traded on the exchange.
package credits

import (
	"context"
	"strconv"
	"time"

	"carbon-scribe/credit-ledger/credit-ledger-backend/internal/ledger"
	"carbon-scribe/credit-ledger/credit-ledger-backend/internal/store"
)

// Service is the credit registry's synchronous call surface.
type Service interface {
	Mint(ctx context.Context, req MintRequest) (uint64, error)
	Transfer(ctx context.Context, req TransferRequest) error
	DepositToBalance(ctx context.Context, req ConvertRequest) error
	WithdrawFromBalance(ctx context.Context, req ConvertRequest) error
	GetCreditInfo(ctx context.Context, creditID uint64) (*ledger.CreditLot, error)
	GetBalance(ctx context.Context, principal ledger.Principal) (uint64, error)
	ListLotsByOwner(ctx context.Context, owner ledger.Principal) ([]ledger.CreditLot, error)
}

// MintRequest describes a credit issuance. Minting is the sole
// value-creation point in the ledger.
type MintRequest struct {
	Owner      ledger.Principal
	Amount     uint64
	ProjectID  uint64
	Expiration time.Time
}

// TransferRequest describes a partial or full lot transfer.
type TransferRequest struct {
	CreditID  uint64
	Sender    ledger.Principal
	Recipient ledger.Principal
	Amount    uint64
}

// ConvertRequest describes a lot-to-balance or balance-to-lot
// conversion.
type ConvertRequest struct {
	CreditID uint64
	Owner    ledger.Principal
	Amount   uint64
}

type service struct {
	store store.Store
	sink  ledger.EventSink
	clock ledger.Clock
}

// NewService creates the credit registry over the shared store.
func NewService(st store.Store, sink ledger.EventSink, clock ledger.Clock) Service {
	if clock == nil {
		clock = ledger.SystemClock
	}
	return &service{store: st, sink: sink, clock: clock}
}

// Mint issues a new credit lot against a verified project. It fails
// with InvalidAmount for a zero amount, ProjectNotVerified for a
// missing or unverified project, and InvalidExpiration for a
// non-future expiration.
func (s *service) Mint(ctx context.Context, req MintRequest) (uint64, error) {
	now := s.clock()

	var lotID uint64
	var event ledger.Event
	err := s.store.Atomically(ctx, func(tx store.Tx) error {
		if req.Amount == 0 {
			return ledger.NewError(ledger.KindInvalidAmount, "credit", "", "mint amount must be positive")
		}
		project, err := tx.Projects().Get(ctx, req.ProjectID)
		if err != nil {
			return err
		}
		if project == nil || !project.Verified {
			return ledger.NewError(ledger.KindProjectNotVerified, "project", formatID(req.ProjectID), "project is not verified")
		}
		if !req.Expiration.After(now) {
			return ledger.NewError(ledger.KindInvalidExpiration, "credit", "", "expiration must be in the future")
		}

		id, err := tx.NextID(ctx, store.CounterCredits)
		if err != nil {
			return err
		}
		lot := ledger.CreditLot{
			ID:         id,
			Owner:      req.Owner,
			Amount:     req.Amount,
			ProjectID:  req.ProjectID,
			Expiration: req.Expiration,
			MintedAt:   now,
		}
		if err := tx.Credits().Create(ctx, &lot); err != nil {
			return err
		}
		lotID = id
		event = ledger.NewEvent(ledger.EventCreditsMinted, req.Owner, id, map[string]any{
			"amount":     req.Amount,
			"project_id": req.ProjectID,
		}, now)
		return tx.Events().Append(ctx, event)
	})
	if err != nil {
		return 0, err
	}
	s.publish(event)
	return lotID, nil
}

// Transfer moves amount from the sender's lot to the recipient,
// merging into an existing recipient lot with the same project and
// expiration when one exists. A lot driven to zero is deleted. Total
// supply per project is unchanged.
func (s *service) Transfer(ctx context.Context, req TransferRequest) error {
	now := s.clock()

	var event ledger.Event
	err := s.store.Atomically(ctx, func(tx store.Tx) error {
		lot, err := s.debitLot(ctx, tx, req.CreditID, req.Sender, req.Amount, now)
		if err != nil {
			return err
		}

		if err := s.creditRecipient(ctx, tx, req.Recipient, req.Amount, lot.ProjectID, lot.Expiration, now); err != nil {
			return err
		}
		event = ledger.NewEvent(ledger.EventCreditsTransferred, req.Sender, req.CreditID, map[string]any{
			"recipient": req.Recipient,
			"amount":    req.Amount,
		}, now)
		return tx.Events().Append(ctx, event)
	})
	if err != nil {
		return err
	}
	s.publish(event)
	return nil
}

// DepositToBalance converts part of a lot into the owner's fungible
// balance, consumed by the exchange. Checks mirror Transfer.
func (s *service) DepositToBalance(ctx context.Context, req ConvertRequest) error {
	now := s.clock()

	var event ledger.Event
	err := s.store.Atomically(ctx, func(tx store.Tx) error {
		if _, err := s.debitLot(ctx, tx, req.CreditID, req.Owner, req.Amount, now); err != nil {
			return err
		}

		balance, err := tx.Balances().Get(ctx, req.Owner)
		if err != nil {
			return err
		}
		updated, err := ledger.AddAmount(balance, req.Amount)
		if err != nil {
			return err
		}
		if err := tx.Balances().Set(ctx, req.Owner, updated); err != nil {
			return err
		}
		event = ledger.NewEvent(ledger.EventCreditsDeposited, req.Owner, req.CreditID, map[string]any{
			"amount": req.Amount,
		}, now)
		return tx.Events().Append(ctx, event)
	})
	if err != nil {
		return err
	}
	s.publish(event)
	return nil
}

// WithdrawFromBalance moves fungible balance back into the named lot.
// The lot must still exist, belong to the caller, and be unexpired; a
// lot fully deposited (hence deleted) cannot be a withdrawal target.
func (s *service) WithdrawFromBalance(ctx context.Context, req ConvertRequest) error {
	now := s.clock()

	var event ledger.Event
	err := s.store.Atomically(ctx, func(tx store.Tx) error {
		lot, err := tx.Credits().Get(ctx, req.CreditID)
		if err != nil {
			return err
		}
		if lot == nil {
			return ledger.NewError(ledger.KindNotFound, "credit", formatID(req.CreditID), "credit lot not found")
		}
		if lot.Owner != req.Owner {
			return ledger.NewError(ledger.KindUnauthorized, "credit", formatID(req.CreditID), "caller does not own this credit lot")
		}
		if req.Amount == 0 {
			return ledger.NewError(ledger.KindInvalidAmount, "credit", formatID(req.CreditID), "amount must be positive")
		}
		if lot.Expired(now) {
			return ledger.NewError(ledger.KindExpired, "credit", formatID(req.CreditID), "credit lot has expired")
		}

		balance, err := tx.Balances().Get(ctx, req.Owner)
		if err != nil {
			return err
		}
		if balance < req.Amount {
			return ledger.NewError(ledger.KindInsufficientBalance, "balance", string(req.Owner), "balance is below the withdrawal amount")
		}

		updated, err := ledger.AddAmount(lot.Amount, req.Amount)
		if err != nil {
			return err
		}
		lot.Amount = updated
		if err := tx.Credits().Update(ctx, lot); err != nil {
			return err
		}
		if err := tx.Balances().Set(ctx, req.Owner, balance-req.Amount); err != nil {
			return err
		}
		event = ledger.NewEvent(ledger.EventCreditsWithdrawn, req.Owner, req.CreditID, map[string]any{
			"amount": req.Amount,
		}, now)
		return tx.Events().Append(ctx, event)
	})
	if err != nil {
		return err
	}
	s.publish(event)
	return nil
}

// GetCreditInfo returns nil for an unknown or fully-transferred lot id;
// callers treat absence as a valid terminal state.
func (s *service) GetCreditInfo(ctx context.Context, creditID uint64) (*ledger.CreditLot, error) {
	var lot *ledger.CreditLot
	err := s.store.Atomically(ctx, func(tx store.Tx) error {
		var err error
		lot, err = tx.Credits().Get(ctx, creditID)
		return err
	})
	return lot, err
}

func (s *service) GetBalance(ctx context.Context, principal ledger.Principal) (uint64, error) {
	var balance uint64
	err := s.store.Atomically(ctx, func(tx store.Tx) error {
		var err error
		balance, err = tx.Balances().Get(ctx, principal)
		return err
	})
	return balance, err
}

func (s *service) ListLotsByOwner(ctx context.Context, owner ledger.Principal) ([]ledger.CreditLot, error) {
	var lots []ledger.CreditLot
	err := s.store.Atomically(ctx, func(tx store.Tx) error {
		var err error
		lots, err = tx.Credits().ListByOwner(ctx, owner)
		return err
	})
	return lots, err
}

// debitLot validates ownership, amount, and expiry, then removes
// amount from the lot, deleting it when exhausted. The returned lot
// carries the pre-debit project and expiration attributes.
func (s *service) debitLot(ctx context.Context, tx store.Tx, creditID uint64, caller ledger.Principal, amount uint64, now time.Time) (*ledger.CreditLot, error) {
	lot, err := tx.Credits().Get(ctx, creditID)
	if err != nil {
		return nil, err
	}
	if lot == nil {
		return nil, ledger.NewError(ledger.KindNotFound, "credit", formatID(creditID), "credit lot not found")
	}
	if lot.Owner != caller {
		return nil, ledger.NewError(ledger.KindUnauthorized, "credit", formatID(creditID), "caller does not own this credit lot")
	}
	if amount == 0 || amount > lot.Amount {
		return nil, ledger.NewError(ledger.KindInvalidAmount, "credit", formatID(creditID), "amount must be positive and within the lot amount")
	}
	if lot.Expired(now) {
		return nil, ledger.NewError(ledger.KindExpired, "credit", formatID(creditID), "credit lot has expired")
	}

	remaining := lot.Amount - amount
	if remaining == 0 {
		if err := tx.Credits().Delete(ctx, creditID); err != nil {
			return nil, err
		}
	} else {
		updated := *lot
		updated.Amount = remaining
		if err := tx.Credits().Update(ctx, &updated); err != nil {
			return nil, err
		}
	}
	return lot, nil
}

// creditRecipient merges amount into an existing recipient lot with
// identical project and expiration, or creates a new lot with those
// exact attributes.
func (s *service) creditRecipient(ctx context.Context, tx store.Tx, recipient ledger.Principal, amount uint64, projectID uint64, expiration time.Time, now time.Time) error {
	existing, err := tx.Credits().FindMergeable(ctx, recipient, projectID, expiration)
	if err != nil {
		return err
	}
	if existing != nil {
		updated, err := ledger.AddAmount(existing.Amount, amount)
		if err != nil {
			return err
		}
		existing.Amount = updated
		return tx.Credits().Update(ctx, existing)
	}

	id, err := tx.NextID(ctx, store.CounterCredits)
	if err != nil {
		return err
	}
	lot := ledger.CreditLot{
		ID:         id,
		Owner:      recipient,
		Amount:     amount,
		ProjectID:  projectID,
		Expiration: expiration,
		MintedAt:   now,
	}
	return tx.Credits().Create(ctx, &lot)
}

func (s *service) publish(event ledger.Event) {
	if s.sink != nil && event.Type != "" {
		s.sink.Publish(event)
	}
}

func formatID(id uint64) string {
	return strconv.FormatUint(id, 10)
}
