// Package store defines the shared, transactional state store behind
// every ledger component. All mutating operations run inside a single
// Atomically callback: either the full set of reads and writes
// applies, or none of it does, and no other operation observes an
// intermediate state.
package store

import (
	"context"
	"time"

	"carbon-scribe/credit-ledger/credit-ledger-backend/internal/ledger"
)

// Counter names a monotonic id sequence owned by the store. Ids are
// allocated inside the same transaction boundary as the insert that
// uses them, so they are never duplicated or reused.
type Counter string

const (
	CounterProjects Counter = "projects"
	CounterCredits  Counter = "credits"
	CounterOrders   Counter = "orders"
)

// Store is the injectable state store shared by the verification
// registry, credit registry, and exchange engine.
type Store interface {
	// Atomically runs fn inside one transaction. Returning an error
	// aborts the transaction with no observable writes.
	Atomically(ctx context.Context, fn func(tx Tx) error) error

	// Close releases the underlying resources.
	Close() error
}

// Tx exposes the ledger tables to a single transaction.
type Tx interface {
	Projects() ProjectRepository
	Verifiers() VerifierRepository
	Credits() CreditRepository
	Balances() BalanceRepository
	Orders() OrderRepository
	Events() EventRepository

	// NextID allocates the next id from the named counter.
	NextID(ctx context.Context, counter Counter) (uint64, error)
}

// ProjectRepository persists project records. Lookups return nil, nil
// when the id is unknown; absence is a valid state, not an error.
type ProjectRepository interface {
	Create(ctx context.Context, project *ledger.Project) error
	Get(ctx context.Context, id uint64) (*ledger.Project, error)
	Update(ctx context.Context, project *ledger.Project) error
	List(ctx context.Context) ([]ledger.Project, error)
}

// VerifierRepository persists the verifier allow-list.
type VerifierRepository interface {
	Add(ctx context.Context, principal ledger.Principal) error
	Remove(ctx context.Context, principal ledger.Principal) error
	Contains(ctx context.Context, principal ledger.Principal) (bool, error)
}

// CreditRepository persists credit lots.
type CreditRepository interface {
	Create(ctx context.Context, lot *ledger.CreditLot) error
	Get(ctx context.Context, id uint64) (*ledger.CreditLot, error)
	Update(ctx context.Context, lot *ledger.CreditLot) error
	Delete(ctx context.Context, id uint64) error

	// FindMergeable returns a lot owned by owner with the same project
	// and expiration, if one exists, so transfers merge instead of
	// proliferating lots.
	FindMergeable(ctx context.Context, owner ledger.Principal, projectID uint64, expiration time.Time) (*ledger.CreditLot, error)

	ListByOwner(ctx context.Context, owner ledger.Principal) ([]ledger.CreditLot, error)
	ListByProject(ctx context.Context, projectID uint64) ([]ledger.CreditLot, error)
}

// BalanceRepository persists fungible per-account balances. Missing
// principals read as zero.
type BalanceRepository interface {
	Get(ctx context.Context, principal ledger.Principal) (uint64, error)
	Set(ctx context.Context, principal ledger.Principal, amount uint64) error
}

// OrderRepository persists open sell orders.
type OrderRepository interface {
	Create(ctx context.Context, order *ledger.Order) error
	Get(ctx context.Context, id uint64) (*ledger.Order, error)
	Delete(ctx context.Context, id uint64) error
	List(ctx context.Context) ([]ledger.Order, error)

	// ListExpired returns orders whose expiration is at or before now.
	ListExpired(ctx context.Context, now time.Time) ([]ledger.Order, error)
}

// EventRepository persists the append-only event journal.
type EventRepository interface {
	Append(ctx context.Context, event ledger.Event) error
	ListRecent(ctx context.Context, limit int) ([]ledger.Event, error)
}
