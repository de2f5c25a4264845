// Package memory provides an in-memory Store used by tests and
// development mode. A global mutex serializes transactions; writes are
// staged in an overlay and applied only when the transaction callback
// succeeds, so a failed operation leaves the store untouched.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"carbon-scribe/credit-ledger/credit-ledger-backend/internal/ledger"
	"carbon-scribe/credit-ledger/credit-ledger-backend/internal/store"
)

// Store is an in-memory implementation of store.Store.
type Store struct {
	mu sync.Mutex

	projects  map[uint64]ledger.Project
	verifiers map[ledger.Principal]struct{}
	credits   map[uint64]ledger.CreditLot
	balances  map[ledger.Principal]uint64
	orders    map[uint64]ledger.Order
	events    []ledger.Event
	counters  map[store.Counter]uint64
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		projects:  make(map[uint64]ledger.Project),
		verifiers: make(map[ledger.Principal]struct{}),
		credits:   make(map[uint64]ledger.CreditLot),
		balances:  make(map[ledger.Principal]uint64),
		orders:    make(map[uint64]ledger.Order),
		counters:  make(map[store.Counter]uint64),
	}
}

// Atomically runs fn under the store mutex against a staged overlay.
// The overlay is committed only when fn returns nil.
func (s *Store) Atomically(ctx context.Context, fn func(tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := newTx(s)
	if err := fn(tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}

// entry is a staged write: a new value or a deletion marker.
type entry[V any] struct {
	value   V
	deleted bool
}

// overlay layers staged writes over a base map until commit.
type overlay[K comparable, V any] struct {
	base   map[K]V
	staged map[K]entry[V]
}

func newOverlay[K comparable, V any](base map[K]V) *overlay[K, V] {
	return &overlay[K, V]{base: base, staged: make(map[K]entry[V])}
}

func (o *overlay[K, V]) get(key K) (V, bool) {
	if e, ok := o.staged[key]; ok {
		if e.deleted {
			var zero V
			return zero, false
		}
		return e.value, true
	}
	v, ok := o.base[key]
	return v, ok
}

func (o *overlay[K, V]) put(key K, value V) {
	o.staged[key] = entry[V]{value: value}
}

func (o *overlay[K, V]) delete(key K) {
	o.staged[key] = entry[V]{deleted: true}
}

// each visits every live key/value pair, staged writes included.
func (o *overlay[K, V]) each(fn func(key K, value V)) {
	for k, v := range o.base {
		if _, ok := o.staged[k]; ok {
			continue
		}
		fn(k, v)
	}
	for k, e := range o.staged {
		if !e.deleted {
			fn(k, e.value)
		}
	}
}

func (o *overlay[K, V]) commit() {
	for k, e := range o.staged {
		if e.deleted {
			delete(o.base, k)
		} else {
			o.base[k] = e.value
		}
	}
}

type memTx struct {
	projects  *overlay[uint64, ledger.Project]
	verifiers *overlay[ledger.Principal, struct{}]
	credits   *overlay[uint64, ledger.CreditLot]
	balances  *overlay[ledger.Principal, uint64]
	orders    *overlay[uint64, ledger.Order]
	counters  *overlay[store.Counter, uint64]

	store        *Store
	stagedEvents []ledger.Event
}

func newTx(s *Store) *memTx {
	return &memTx{
		projects:  newOverlay(s.projects),
		verifiers: newOverlay(s.verifiers),
		credits:   newOverlay(s.credits),
		balances:  newOverlay(s.balances),
		orders:    newOverlay(s.orders),
		counters:  newOverlay(s.counters),
		store:     s,
	}
}

func (t *memTx) commit() {
	t.projects.commit()
	t.verifiers.commit()
	t.credits.commit()
	t.balances.commit()
	t.orders.commit()
	t.counters.commit()
	t.store.events = append(t.store.events, t.stagedEvents...)
}

func (t *memTx) Projects() store.ProjectRepository   { return projectRepo{t} }
func (t *memTx) Verifiers() store.VerifierRepository { return verifierRepo{t} }
func (t *memTx) Credits() store.CreditRepository     { return creditRepo{t} }
func (t *memTx) Balances() store.BalanceRepository   { return balanceRepo{t} }
func (t *memTx) Orders() store.OrderRepository       { return orderRepo{t} }
func (t *memTx) Events() store.EventRepository       { return eventRepo{t} }

func (t *memTx) NextID(ctx context.Context, counter store.Counter) (uint64, error) {
	next, _ := t.counters.get(counter)
	next++
	t.counters.put(counter, next)
	return next, nil
}

type projectRepo struct{ tx *memTx }

func (r projectRepo) Create(ctx context.Context, project *ledger.Project) error {
	r.tx.projects.put(project.ID, *project)
	return nil
}

func (r projectRepo) Get(ctx context.Context, id uint64) (*ledger.Project, error) {
	p, ok := r.tx.projects.get(id)
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r projectRepo) Update(ctx context.Context, project *ledger.Project) error {
	r.tx.projects.put(project.ID, *project)
	return nil
}

func (r projectRepo) List(ctx context.Context) ([]ledger.Project, error) {
	var projects []ledger.Project
	r.tx.projects.each(func(_ uint64, p ledger.Project) {
		projects = append(projects, p)
	})
	sort.Slice(projects, func(i, j int) bool { return projects[i].ID < projects[j].ID })
	return projects, nil
}

type verifierRepo struct{ tx *memTx }

func (r verifierRepo) Add(ctx context.Context, principal ledger.Principal) error {
	r.tx.verifiers.put(principal, struct{}{})
	return nil
}

func (r verifierRepo) Remove(ctx context.Context, principal ledger.Principal) error {
	r.tx.verifiers.delete(principal)
	return nil
}

func (r verifierRepo) Contains(ctx context.Context, principal ledger.Principal) (bool, error) {
	_, ok := r.tx.verifiers.get(principal)
	return ok, nil
}

type creditRepo struct{ tx *memTx }

func (r creditRepo) Create(ctx context.Context, lot *ledger.CreditLot) error {
	r.tx.credits.put(lot.ID, *lot)
	return nil
}

func (r creditRepo) Get(ctx context.Context, id uint64) (*ledger.CreditLot, error) {
	lot, ok := r.tx.credits.get(id)
	if !ok {
		return nil, nil
	}
	return &lot, nil
}

func (r creditRepo) Update(ctx context.Context, lot *ledger.CreditLot) error {
	r.tx.credits.put(lot.ID, *lot)
	return nil
}

func (r creditRepo) Delete(ctx context.Context, id uint64) error {
	r.tx.credits.delete(id)
	return nil
}

func (r creditRepo) FindMergeable(ctx context.Context, owner ledger.Principal, projectID uint64, expiration time.Time) (*ledger.CreditLot, error) {
	var found *ledger.CreditLot
	r.tx.credits.each(func(_ uint64, lot ledger.CreditLot) {
		if lot.Owner != owner || lot.ProjectID != projectID || !lot.Expiration.Equal(expiration) {
			return
		}
		if found == nil || lot.ID < found.ID {
			l := lot
			found = &l
		}
	})
	return found, nil
}

func (r creditRepo) ListByOwner(ctx context.Context, owner ledger.Principal) ([]ledger.CreditLot, error) {
	var lots []ledger.CreditLot
	r.tx.credits.each(func(_ uint64, lot ledger.CreditLot) {
		if lot.Owner == owner {
			lots = append(lots, lot)
		}
	})
	sort.Slice(lots, func(i, j int) bool { return lots[i].ID < lots[j].ID })
	return lots, nil
}

func (r creditRepo) ListByProject(ctx context.Context, projectID uint64) ([]ledger.CreditLot, error) {
	var lots []ledger.CreditLot
	r.tx.credits.each(func(_ uint64, lot ledger.CreditLot) {
		if lot.ProjectID == projectID {
			lots = append(lots, lot)
		}
	})
	sort.Slice(lots, func(i, j int) bool { return lots[i].ID < lots[j].ID })
	return lots, nil
}

type balanceRepo struct{ tx *memTx }

func (r balanceRepo) Get(ctx context.Context, principal ledger.Principal) (uint64, error) {
	amount, _ := r.tx.balances.get(principal)
	return amount, nil
}

func (r balanceRepo) Set(ctx context.Context, principal ledger.Principal, amount uint64) error {
	if amount == 0 {
		r.tx.balances.delete(principal)
		return nil
	}
	r.tx.balances.put(principal, amount)
	return nil
}

type orderRepo struct{ tx *memTx }

func (r orderRepo) Create(ctx context.Context, order *ledger.Order) error {
	r.tx.orders.put(order.ID, *order)
	return nil
}

func (r orderRepo) Get(ctx context.Context, id uint64) (*ledger.Order, error) {
	order, ok := r.tx.orders.get(id)
	if !ok {
		return nil, nil
	}
	return &order, nil
}

func (r orderRepo) Delete(ctx context.Context, id uint64) error {
	r.tx.orders.delete(id)
	return nil
}

func (r orderRepo) List(ctx context.Context) ([]ledger.Order, error) {
	var orders []ledger.Order
	r.tx.orders.each(func(_ uint64, order ledger.Order) {
		orders = append(orders, order)
	})
	sort.Slice(orders, func(i, j int) bool { return orders[i].ID < orders[j].ID })
	return orders, nil
}

func (r orderRepo) ListExpired(ctx context.Context, now time.Time) ([]ledger.Order, error) {
	var orders []ledger.Order
	r.tx.orders.each(func(_ uint64, order ledger.Order) {
		if order.Expired(now) {
			orders = append(orders, order)
		}
	})
	sort.Slice(orders, func(i, j int) bool { return orders[i].ID < orders[j].ID })
	return orders, nil
}

type eventRepo struct{ tx *memTx }

func (r eventRepo) Append(ctx context.Context, event ledger.Event) error {
	r.tx.stagedEvents = append(r.tx.stagedEvents, event)
	return nil
}

// ListRecent returns the journal tail newest-first, matching the
// postgres implementation's ordering.
func (r eventRepo) ListRecent(ctx context.Context, limit int) ([]ledger.Event, error) {
	events := r.tx.store.events
	if len(r.tx.stagedEvents) > 0 {
		combined := make([]ledger.Event, 0, len(events)+len(r.tx.stagedEvents))
		combined = append(combined, events...)
		combined = append(combined, r.tx.stagedEvents...)
		events = combined
	}
	if limit > 0 && len(events) > limit {
		events = events[len(events)-limit:]
	}
	out := make([]ledger.Event, len(events))
	for i, event := range events {
		out[len(events)-1-i] = event
	}
	return out, nil
}
