package ledger

import (
	"math"
	"time"
)

// Principal identifies a pre-authenticated caller (project owner,
// verifier, trader). Identity and key management live outside the
// ledger; a Principal is an opaque identifier here.
type Principal string

// Project represents a registered mitigation project. Projects start
// unverified and transition once, by verification, to verified. The
// transition is one-way and binds the approving verifier.
type Project struct {
	ID          uint64    `json:"id"`
	Owner       Principal `json:"owner"`
	Description string    `json:"description"`
	Verified    bool      `json:"verified"`
	Verifier    Principal `json:"verifier,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	VerifiedAt  *time.Time `json:"verified_at,omitempty"`
}

// CreditLot is a non-fungible quantity of credits with a single owner,
// project reference, and expiration. A lot present in the store always
// has Amount > 0; a lot driven to zero by transfer or deposit is
// deleted rather than kept as an empty row.
type CreditLot struct {
	ID         uint64    `json:"id"`
	Owner      Principal `json:"owner"`
	Amount     uint64    `json:"amount"`
	ProjectID  uint64    `json:"project_id"`
	Expiration time.Time `json:"expiration"`
	MintedAt   time.Time `json:"minted_at"`
}

// Expired reports whether the lot's expiration has passed at now.
func (l CreditLot) Expired(now time.Time) bool {
	return !l.Expiration.After(now)
}

// Order is an escrow-backed sell listing. The escrowed amount has
// already been debited from the seller's balance and belongs to no
// account until the order is bought or cancelled.
type Order struct {
	ID         uint64    `json:"id"`
	Seller     Principal `json:"seller"`
	Amount     uint64    `json:"amount"`
	Price      uint64    `json:"price"`
	Expiration time.Time `json:"expiration"`
	CreatedAt  time.Time `json:"created_at"`
}

// Expired reports whether the order's expiration has passed at now.
// Expired orders are inert for buying but remain until cancelled or
// swept, so their escrow is never silently dropped.
func (o Order) Expired(now time.Time) bool {
	return !o.Expiration.After(now)
}

// AddAmount returns a+b, or an InvalidAmount error when the sum would
// wrap. Balances and lot amounts must never silently overflow.
func AddAmount(a, b uint64) (uint64, error) {
	if a > math.MaxUint64-b {
		return 0, NewError(KindInvalidAmount, "amount", "", "amount overflow")
	}
	return a + b, nil
}
