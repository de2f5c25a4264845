package exchange

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carbon-scribe/credit-ledger/credit-ledger-backend/internal/ledger"
	"carbon-scribe/credit-ledger/credit-ledger-backend/internal/store"
	"carbon-scribe/credit-ledger/credit-ledger-backend/internal/store/memory"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store   *memory.Store
	service Service
}

func newFixture(t *testing.T, balances map[ledger.Principal]uint64) fixture {
	t.Helper()
	st := memory.New()
	ctx := context.Background()

	err := st.Atomically(ctx, func(tx store.Tx) error {
		for principal, amount := range balances {
			if err := tx.Balances().Set(ctx, principal, amount); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	return fixture{store: st, service: NewService(st, nil, ledger.FixedClock(testNow))}
}

func (f fixture) balance(t *testing.T, principal ledger.Principal) uint64 {
	t.Helper()
	var balance uint64
	err := f.store.Atomically(context.Background(), func(tx store.Tx) error {
		var err error
		balance, err = tx.Balances().Get(context.Background(), principal)
		return err
	})
	require.NoError(t, err)
	return balance
}

func TestCreateSellOrder(t *testing.T) {
	f := newFixture(t, map[ledger.Principal]uint64{"seller1": 1000})
	ctx := context.Background()

	id, err := f.service.CreateSellOrder(ctx, CreateOrderRequest{
		Seller: "seller1", Amount: 100, Price: 1000, Expiration: testNow.Add(24 * time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)

	order, err := f.service.GetOrder(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, ledger.Principal("seller1"), order.Seller)
	assert.Equal(t, uint64(100), order.Amount)
	assert.Equal(t, uint64(1000), order.Price)

	// The listed amount is escrowed out of the spendable balance.
	assert.Equal(t, uint64(900), f.balance(t, "seller1"))
}

func TestCreateSellOrderValidation(t *testing.T) {
	f := newFixture(t, map[ledger.Principal]uint64{"seller1": 50})
	ctx := context.Background()

	tests := []struct {
		name string
		req  CreateOrderRequest
		kind ledger.Kind
	}{
		{"zero amount", CreateOrderRequest{Seller: "seller1", Amount: 0, Price: 10, Expiration: testNow.Add(time.Hour)}, ledger.KindInvalidAmount},
		{"zero price", CreateOrderRequest{Seller: "seller1", Amount: 10, Price: 0, Expiration: testNow.Add(time.Hour)}, ledger.KindInvalidAmount},
		{"past expiration", CreateOrderRequest{Seller: "seller1", Amount: 10, Price: 10, Expiration: testNow.Add(-time.Hour)}, ledger.KindInvalidExpiration},
		{"insufficient balance", CreateOrderRequest{Seller: "seller1", Amount: 100, Price: 10, Expiration: testNow.Add(time.Hour)}, ledger.KindInsufficientBalance},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.CreateSellOrder(ctx, tt.req)
			assert.True(t, ledger.IsKind(err, tt.kind), "got %v", err)
			assert.Equal(t, uint64(50), f.balance(t, "seller1"))
		})
	}
}

func TestOrderIDsAreNeverReused(t *testing.T) {
	f := newFixture(t, map[ledger.Principal]uint64{"seller1": 1000})
	ctx := context.Background()

	first, err := f.service.CreateSellOrder(ctx, CreateOrderRequest{Seller: "seller1", Amount: 10, Price: 10, Expiration: testNow.Add(time.Hour)})
	require.NoError(t, err)
	require.NoError(t, f.service.CancelSellOrder(ctx, first, "seller1"))

	second, err := f.service.CreateSellOrder(ctx, CreateOrderRequest{Seller: "seller1", Amount: 10, Price: 10, Expiration: testNow.Add(time.Hour)})
	require.NoError(t, err)
	assert.Greater(t, second, first)
}

func TestCancelSellOrder(t *testing.T) {
	f := newFixture(t, map[ledger.Principal]uint64{"seller1": 1000})
	ctx := context.Background()

	id, err := f.service.CreateSellOrder(ctx, CreateOrderRequest{Seller: "seller1", Amount: 100, Price: 1000, Expiration: testNow.Add(time.Hour)})
	require.NoError(t, err)

	require.NoError(t, f.service.CancelSellOrder(ctx, id, "seller1"))

	order, err := f.service.GetOrder(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, order)
	assert.Equal(t, uint64(1000), f.balance(t, "seller1"))
}

func TestCancelSellOrderUnauthorized(t *testing.T) {
	f := newFixture(t, map[ledger.Principal]uint64{"seller1": 1000})
	ctx := context.Background()

	id, err := f.service.CreateSellOrder(ctx, CreateOrderRequest{Seller: "seller1", Amount: 100, Price: 1000, Expiration: testNow.Add(time.Hour)})
	require.NoError(t, err)

	err = f.service.CancelSellOrder(ctx, id, "unauthorized")
	assert.True(t, ledger.IsKind(err, ledger.KindUnauthorized))

	order, err := f.service.GetOrder(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, uint64(900), f.balance(t, "seller1"))
}

func TestCancelExpiredOrderIsAllowed(t *testing.T) {
	f := newFixture(t, map[ledger.Principal]uint64{"seller1": 1000})
	ctx := context.Background()

	id, err := f.service.CreateSellOrder(ctx, CreateOrderRequest{Seller: "seller1", Amount: 100, Price: 1000, Expiration: testNow.Add(time.Hour)})
	require.NoError(t, err)

	late := NewService(f.store, nil, ledger.FixedClock(testNow.Add(2*time.Hour)))
	require.NoError(t, late.CancelSellOrder(ctx, id, "seller1"))
	assert.Equal(t, uint64(1000), f.balance(t, "seller1"))
}

func TestBuyCredits(t *testing.T) {
	f := newFixture(t, map[ledger.Principal]uint64{"seller1": 1000, "buyer1": 1500})
	ctx := context.Background()

	id, err := f.service.CreateSellOrder(ctx, CreateOrderRequest{Seller: "seller1", Amount: 100, Price: 1000, Expiration: testNow.Add(24 * time.Hour)})
	require.NoError(t, err)

	require.NoError(t, f.service.BuyCredits(ctx, id, "buyer1"))

	// buyer: 1500 + 100 escrow - 1000 price; seller: 900 + 1000 price.
	assert.Equal(t, uint64(600), f.balance(t, "buyer1"))
	assert.Equal(t, uint64(1900), f.balance(t, "seller1"))

	order, err := f.service.GetOrder(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, order)
}

func TestBuyCreditsInsufficientBalanceChangesNothing(t *testing.T) {
	f := newFixture(t, map[ledger.Principal]uint64{"seller1": 1000, "buyer1": 999})
	ctx := context.Background()

	id, err := f.service.CreateSellOrder(ctx, CreateOrderRequest{Seller: "seller1", Amount: 100, Price: 1000, Expiration: testNow.Add(time.Hour)})
	require.NoError(t, err)

	err = f.service.BuyCredits(ctx, id, "buyer1")
	assert.True(t, ledger.IsKind(err, ledger.KindInsufficientBalance))

	assert.Equal(t, uint64(999), f.balance(t, "buyer1"))
	assert.Equal(t, uint64(900), f.balance(t, "seller1"))
	order, err := f.service.GetOrder(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, order)
}

func TestBuyCreditsExpiredOrder(t *testing.T) {
	f := newFixture(t, map[ledger.Principal]uint64{"seller1": 1000, "buyer1": 1500})
	ctx := context.Background()

	id, err := f.service.CreateSellOrder(ctx, CreateOrderRequest{Seller: "seller1", Amount: 100, Price: 1000, Expiration: testNow.Add(time.Hour)})
	require.NoError(t, err)

	late := NewService(f.store, nil, ledger.FixedClock(testNow.Add(2*time.Hour)))
	err = late.BuyCredits(ctx, id, "buyer1")
	assert.True(t, ledger.IsKind(err, ledger.KindExpired))

	// The expired order stays until cancelled or swept.
	order, err := f.service.GetOrder(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, uint64(1500), f.balance(t, "buyer1"))
	assert.Equal(t, uint64(900), f.balance(t, "seller1"))
}

func TestBuyCreditsUnknownOrder(t *testing.T) {
	f := newFixture(t, map[ledger.Principal]uint64{"buyer1": 1500})

	err := f.service.BuyCredits(context.Background(), 42, "buyer1")
	assert.True(t, ledger.IsKind(err, ledger.KindNotFound))
}

func TestBuyOwnOrder(t *testing.T) {
	f := newFixture(t, map[ledger.Principal]uint64{"seller1": 1000})
	ctx := context.Background()

	id, err := f.service.CreateSellOrder(ctx, CreateOrderRequest{Seller: "seller1", Amount: 100, Price: 500, Expiration: testNow.Add(time.Hour)})
	require.NoError(t, err)

	// Self-trade is permitted: the escrowed amount and the price both
	// come back to the same balance.
	require.NoError(t, f.service.BuyCredits(ctx, id, "seller1"))
	assert.Equal(t, uint64(1000), f.balance(t, "seller1"))
}

func TestSweepExpired(t *testing.T) {
	f := newFixture(t, map[ledger.Principal]uint64{"seller1": 1000, "seller2": 500})
	ctx := context.Background()

	expired, err := f.service.CreateSellOrder(ctx, CreateOrderRequest{Seller: "seller1", Amount: 100, Price: 10, Expiration: testNow.Add(time.Hour)})
	require.NoError(t, err)
	open, err := f.service.CreateSellOrder(ctx, CreateOrderRequest{Seller: "seller2", Amount: 200, Price: 10, Expiration: testNow.Add(72 * time.Hour)})
	require.NoError(t, err)

	late := NewService(f.store, nil, ledger.FixedClock(testNow.Add(2*time.Hour)))
	swept, err := late.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, swept)

	gone, err := f.service.GetOrder(ctx, expired)
	require.NoError(t, err)
	assert.Nil(t, gone)
	assert.Equal(t, uint64(1000), f.balance(t, "seller1"))

	kept, err := f.service.GetOrder(ctx, open)
	require.NoError(t, err)
	require.NotNil(t, kept)
	assert.Equal(t, uint64(300), f.balance(t, "seller2"))
}
